// Package worker bounds the number of concurrently running ingestion jobs.
// Document ingestion is embedding-API heavy; running an unbounded number of
// uploads at once would trip provider rate limits, so the HTTP server funnels
// ingestion work through a shared Pool.
package worker

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit is the default number of jobs allowed to run at once.
const DefaultLimit = 2

// Pool runs jobs with bounded concurrency. The zero value is not usable;
// construct with NewPool.
type Pool struct {
	sem   *semaphore.Weighted
	limit int64
}

// NewPool returns a Pool that allows at most limit jobs to run concurrently.
// A non-positive limit falls back to DefaultLimit.
func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Pool{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}
}

// Do runs fn once a slot is available, blocking until then or until ctx is
// done. fn's error is returned as-is so callers can inspect it with errors.Is.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("worker: waiting for slot: %w", err)
	}
	defer p.sem.Release(1)
	return fn()
}

// TryDo runs fn if a slot is free, returning false immediately when the pool
// is saturated.
func (p *Pool) TryDo(fn func() error) (bool, error) {
	if !p.sem.TryAcquire(1) {
		return false, nil
	}
	defer p.sem.Release(1)
	return true, fn()
}
