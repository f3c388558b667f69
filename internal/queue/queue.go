// Package queue defines the scrape job payload and the queue abstractions the
// orchestrator produces into and workers consume from.
package queue

import (
	"context"
	"fmt"
)

// Payload is the unit of work handed from the scheduler to the worker pool.
// It is immutable once serialized; tasks must be a non-empty subset of the
// scraper's declared task list.
type Payload struct {
	Scraper    string   `json:"scraper"`
	Mode       string   `json:"mode"`
	Tasks      []string `json:"tasks"`
	EnqueuedAt float64  `json:"enqueued_at"`
}

// Producer pushes job payloads onto a durable queue. Delivery is
// at-least-once; idempotent upserts downstream make redelivery safe.
type Producer interface {
	Enqueue(ctx context.Context, payload Payload) error
}

// Consumer pops the next job payload, blocking until one is available or the
// context ends.
type Consumer interface {
	Dequeue(ctx context.Context) (Payload, error)
}

// UnavailableError reports that the queue backend could not be reached. A
// dropped schedule tick means a missed scrape cycle with no automatic
// compensation, so callers must log it rather than swallow it.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("queue unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
