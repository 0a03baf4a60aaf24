// SPDX-License-Identifier: EPL-2.0

package clip

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ik5/audmix/mixer"
)

// AsyncLoader loads clips in the background. LoadClip never blocks: it
// starts a load on first request and reports mixer.ErrClipPending until the
// result is in.
type AsyncLoader struct {
	ctx   context.Context
	inner mixer.ClipLoader
	sem   *semaphore.Weighted

	mtx     sync.Mutex
	entries map[mixer.ClipRef]*entry
	wg      sync.WaitGroup
}

type entry struct {
	clip mixer.Clip
	err  error
	done bool
}

// NewAsyncLoader wraps inner, running at most workers loads at once.
// Loads still waiting for a worker once ctx is done are dropped and stay
// pending, so the clip is never marked as missing.
func NewAsyncLoader(ctx context.Context, inner mixer.ClipLoader, workers int) *AsyncLoader {
	if workers <= 0 {
		workers = 1
	}
	return &AsyncLoader{
		ctx:     ctx,
		inner:   inner,
		sem:     semaphore.NewWeighted(int64(workers)),
		entries: make(map[mixer.ClipRef]*entry),
	}
}

func (a *AsyncLoader) LoadClip(ref mixer.ClipRef) (mixer.Clip, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	e, ok := a.entries[ref]
	if !ok {
		e = &entry{}
		a.entries[ref] = e
		a.wg.Add(1)
		go a.load(ref, e)
	}
	if !e.done {
		return nil, mixer.ErrClipPending
	}
	return e.clip, e.err
}

func (a *AsyncLoader) load(ref mixer.ClipRef, e *entry) {
	defer a.wg.Done()

	var (
		c   mixer.Clip
		err error
	)
	if err = a.sem.Acquire(a.ctx, 1); err == nil {
		c, err = a.inner.LoadClip(ref)
		a.sem.Release(1)
	} else {
		err = fmt.Errorf("%w: %w", mixer.ErrClipPending, err)
	}
	// pending and abandoned loads are retried on the next request
	if errors.Is(err, mixer.ErrClipPending) {
		a.mtx.Lock()
		delete(a.entries, ref)
		a.mtx.Unlock()
		return
	}

	a.mtx.Lock()
	e.clip, e.err, e.done = c, err, true
	a.mtx.Unlock()
}

// Loaded reports whether ref has finished loading, successfully or not.
func (a *AsyncLoader) Loaded(ref mixer.ClipRef) bool {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	e, ok := a.entries[ref]
	return ok && e.done
}

// Request starts loading every ref that is not loaded or loading yet.
func (a *AsyncLoader) Request(refs ...mixer.ClipRef) {
	for _, ref := range refs {
		a.LoadClip(ref)
	}
}

// Wait blocks until every load started so far has finished.
func (a *AsyncLoader) Wait() {
	a.wg.Wait()
}

// Preload loads refs through loader with at most limit loads in flight and
// returns every failure joined together. It stops starting new loads once
// ctx is done.
func Preload(ctx context.Context, loader mixer.ClipLoader, refs []mixer.ClipRef, limit int) error {
	if limit <= 0 {
		limit = 1
	}
	var (
		g    errgroup.Group
		mtx  sync.Mutex
		errs []error
	)
	g.SetLimit(limit)

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := loader.LoadClip(ref); err != nil {
				mtx.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", ref.Key, err))
				mtx.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
