package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryQueueRoundTrip(t *testing.T) {
	q := NewMemoryQueue(4)
	defer q.Close()

	payload := Payload{
		Scraper:    "federal_parliament",
		Mode:       "test",
		Tasks:      []string{"bills", "mps", "votes"},
		EnqueuedAt: float64(time.Now().Unix()),
	}
	require.NoError(t, q.Enqueue(context.Background(), payload))
	require.Equal(t, 1, q.Len())

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestMemoryQueueEnqueueRespectsContext(t *testing.T) {
	q := NewMemoryQueue(0)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := q.Enqueue(ctx, Payload{Scraper: "x"})
	require.Error(t, err)
}

func TestMemoryQueueDequeueRespectsContext(t *testing.T) {
	q := NewMemoryQueue(1)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	require.Error(t, err)
}

func TestMemoryQueueEnqueueAfterCloseErrors(t *testing.T) {
	q := NewMemoryQueue(1)
	q.Close()

	err := q.Enqueue(context.Background(), Payload{Scraper: "x"})
	require.ErrorContains(t, err, "queue closed")
}

func TestMemoryQueueCloseIsIdempotent(t *testing.T) {
	q := NewMemoryQueue(1)
	q.Close()
	q.Close()

	_, err := q.Dequeue(context.Background())
	require.Error(t, err)
}
