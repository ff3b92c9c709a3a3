// Package asynctasks runs detached background work (periodic flush,
// backup) and joins it cleanly on shutdown.
package asynctasks

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Runner tracks a set of long-running background tasks so Shutdown can
// wait for all of them to return.
type Runner struct {
	group *errgroup.Group
	ctx   context.Context
	mu    sync.Mutex
	flags map[string]*bool
}

// NewRunner creates a Runner bound to ctx; cancelling ctx signals every
// task spawned through Go to stop.
func NewRunner(ctx context.Context) *Runner {
	g, gctx := errgroup.WithContext(ctx)
	return &Runner{group: g, ctx: gctx, flags: make(map[string]*bool)}
}

// Context returns the context tasks should observe for cancellation.
func (r *Runner) Context() context.Context {
	return r.ctx
}

// Go launches fn on its own goroutine, tracked by the runner's group.
func (r *Runner) Go(fn func(ctx context.Context) error) {
	r.group.Go(func() error {
		return fn(r.ctx)
	})
}

// acquireExclusive reports whether the named exclusive slot was free
// and, if so, claims it; the caller must release it via the returned
// func once its task has finished.
func (r *Runner) acquireExclusive(name string) (release func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inProgress, exists := r.flags[name]
	if !exists {
		b := false
		inProgress = &b
		r.flags[name] = inProgress
	}
	if *inProgress {
		return nil, false
	}
	*inProgress = true
	return func() {
		r.mu.Lock()
		*inProgress = false
		r.mu.Unlock()
	}, true
}

// TryGo launches fn only if the named exclusive task is not already
// running (e.g. a backup that must not overlap itself). It reports
// whether the task was actually started. A non-nil error from fn is
// propagated to Wait and cancels the runner's shared context, so this
// is for tasks whose failure should stop their peers (the periodic
// flush/meta-refresh loop).
func (r *Runner) TryGo(name string, fn func(ctx context.Context) error) bool {
	release, ok := r.acquireExclusive(name)
	if !ok {
		return false
	}
	r.group.Go(func() error {
		defer release()
		return fn(r.ctx)
	})
	return true
}

// TryGoDetached behaves like TryGo but never feeds fn's error back
// into the group: a failing backup must not cancel the shared context
// other tasks (the flush timer) observe. The result is instead handed
// to onDone, mirroring the store engine's documented
// backup(dst_path, on_done) contract.
func (r *Runner) TryGoDetached(name string, fn func(ctx context.Context) error, onDone func(err error)) bool {
	release, ok := r.acquireExclusive(name)
	if !ok {
		return false
	}
	r.group.Go(func() error {
		defer release()
		err := fn(r.ctx)
		if onDone != nil {
			onDone(err)
		}
		return nil
	})
	return true
}

// Wait blocks until every spawned task has returned, propagating the
// first non-nil error.
func (r *Runner) Wait() error {
	return r.group.Wait()
}
