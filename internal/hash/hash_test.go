package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityIsStable(t *testing.T) {
	data := map[string]any{
		"name":     "Bill C-12",
		"session":  "44-1",
		"sponsors": []any{"mp-001", "mp-042"},
	}

	first, err := Entity(data)
	require.NoError(t, err)
	second, err := Entity(data)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, first, 64)
}

func TestEntityIgnoresKeyInsertionOrder(t *testing.T) {
	a := map[string]any{}
	a["title"] = "An Act respecting cannabis"
	a["number"] = "C-45"
	a["nested"] = map[string]any{"x": 1.0, "y": 2.0}

	b := map[string]any{}
	b["nested"] = map[string]any{"y": 2.0, "x": 1.0}
	b["number"] = "C-45"
	b["title"] = "An Act respecting cannabis"

	ha, err := Entity(a)
	require.NoError(t, err)
	hb, err := Entity(b)
	require.NoError(t, err)
	require.Equal(t, ha, hb)
}

func TestEntityDetectsChange(t *testing.T) {
	data := map[string]any{"status": "first reading", "number": "C-45"}
	before, err := Entity(data)
	require.NoError(t, err)

	data["status"] = "royal assent"
	after, err := Entity(data)
	require.NoError(t, err)

	require.NotEqual(t, before, after)
}

func TestEntityRejectsUnserializablePayload(t *testing.T) {
	_, err := Entity(map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}
