package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultTable(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	d, ok := r.Lookup("federal_parliament")
	require.True(t, ok)
	require.Equal(t, []string{"bills", "mps", "votes"}, d.Tasks)
	require.Equal(t, "0 2 * * *", d.ProdCron)
	require.Equal(t, "0 * * * *", d.TestCron)

	// Every cataloged scraper must be addressable by jurisdiction code.
	for _, name := range r.Names() {
		d, _ := r.Lookup(name)
		require.NotEmpty(t, d.Codes, name)
	}

	_, ok = r.Lookup("no_such_scraper")
	require.False(t, ok)
}

func TestFromRejectsBadTables(t *testing.T) {
	testCases := []struct {
		name  string
		table []Descriptor
	}{
		{"duplicate name", []Descriptor{
			{Name: "a", Tasks: []string{"x"}},
			{Name: "a", Tasks: []string{"y"}},
		}},
		{"empty name", []Descriptor{{Name: "", Tasks: []string{"x"}}}},
		{"no tasks", []Descriptor{{Name: "a"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := From(tc.table)
			require.Error(t, err)
		})
	}
}

func TestNamesPreservesDeclarationOrder(t *testing.T) {
	r, err := From([]Descriptor{
		{Name: "b", Tasks: []string{"x"}},
		{Name: "a", Tasks: []string{"y"}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, r.Names())
}

func TestResolveCron(t *testing.T) {
	r, err := From([]Descriptor{
		{Name: "federal_parliament", Tasks: []string{"bills"}, ProdCron: "0 2 * * *", TestCron: "0 * * * *"},
		{Name: "bare", Tasks: []string{"bills"}},
	})
	require.NoError(t, err)

	t.Run("descriptor default", func(t *testing.T) {
		got, err := r.ResolveCron("federal_parliament", ModeProd)
		require.NoError(t, err)
		require.Equal(t, "0 2 * * *", got)
	})

	t.Run("fallbacks", func(t *testing.T) {
		got, err := r.ResolveCron("bare", ModeProd)
		require.NoError(t, err)
		require.Equal(t, FallbackProdCron, got)

		got, err = r.ResolveCron("bare", ModeTest)
		require.NoError(t, err)
		require.Equal(t, FallbackTestCron, got)
	})

	t.Run("environment override wins", func(t *testing.T) {
		t.Setenv("FEDERAL_PARLIAMENT_TEST_CRON", "*/5 * * * *")
		got, err := r.ResolveCron("federal_parliament", ModeTest)
		require.NoError(t, err)
		require.Equal(t, "*/5 * * * *", got)
	})

	t.Run("unknown scraper", func(t *testing.T) {
		_, err := r.ResolveCron("nope", ModeProd)
		require.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := r.ResolveCron("bare", Mode("staging"))
		require.Error(t, err)
	})
}

func TestHasTask(t *testing.T) {
	d := Descriptor{Name: "a", Tasks: []string{"bills", "votes"}}
	require.True(t, d.HasTask("bills"))
	require.False(t, d.HasTask("mps"))
}
