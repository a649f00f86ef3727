// Package worker is the bounded concurrency runtime shared by encode,
// verify, and repair: a fixed-size pool of goroutines drains task
// closures, wrapped in a threadgroup for cooperative cancellation at task
// boundaries.
package worker

import (
	"context"

	"github.com/NebulousLabs/threadgroup"
	"golang.org/x/sync/errgroup"

	"github.com/rTiGd2/ParXive/errs"
)

// Pool runs bounded, cancellable task closures. It wraps a threadgroup for
// Stop/StopChan cooperative shutdown and an errgroup, semaphore-bounded to
// Threads concurrent goroutines, for fan-out/fan-in with first-error
// propagation.
type Pool struct {
	tg      threadgroup.ThreadGroup
	threads int
}

// New creates a Pool that runs at most threads task closures concurrently.
// threads <= 0 is treated as 1 (never fully serial-disable the pool, since
// callers rely on it to bound resource use, not as an optional feature).
func New(threads int) *Pool {
	if threads <= 0 {
		threads = 1
	}
	return &Pool{threads: threads}
}

// Stop signals every outstanding task to cancel at its next boundary and
// blocks until all have returned.
func (p *Pool) Stop() error {
	return p.tg.Stop()
}

// Task is one unit of pool work: an encode-stripe, verify-file, or
// repair-stripe closure. It receives a context cancelled when the pool is
// stopped, and should check it at internal iteration boundaries (between
// stripes, between file chunks) rather than only at entry.
type Task func(ctx context.Context) error

// Run submits every task in tasks, runs up to p.threads concurrently, and
// returns the first non-nil error (all other tasks still run to
// completion; Run does not cancel siblings on a sibling's failure — callers
// that want fail-fast should watch ctx.Done() themselves via errgroup's
// derived context).
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	if err := p.tg.Add(); err != nil {
		return errs.New(errs.KindInternal, "Pool.Run", err).WithVariant("PoolStopped")
	}
	defer p.tg.Done()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.tg.StopChan():
			cancel()
		case <-runCtx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(p.threads)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			select {
			case <-p.tg.StopChan():
				return errs.New(errs.KindInternal, "Pool.Run", nil).WithVariant("Stopped")
			default:
			}
			return task(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		if _, ok := err.(*errs.Error); ok {
			return err
		}
		return errs.New(errs.KindInternal, "Pool.Run", err)
	}
	return nil
}
