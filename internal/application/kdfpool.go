package application

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// KDFPool bounds how many key derivations and password hashes run at once.
type KDFPool struct {
	sem     *semaphore.Weighted
	workers int
}

// NewKDFPool creates a pool admitting at most workers concurrent derivations.
// Values below 1 are treated as 1.
func NewKDFPool(workers int) *KDFPool {
	if workers < 1 {
		workers = 1
	}
	return &KDFPool{sem: semaphore.NewWeighted(int64(workers)), workers: workers}
}

// Workers returns the pool size.
func (p *KDFPool) Workers() int {
	return p.workers
}

// Do runs fn once a slot is free. It returns ctx's error without running fn
// if ctx is done first.
func (p *KDFPool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for kdf worker: %w", err)
	}
	defer p.sem.Release(1)

	return fn()
}
