package paging

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/gammazero/deque"
	"golang.org/x/sync/errgroup"
)

// MultiPage is one page of a multi-symbol endpoint.
type MultiPage[T any] struct {
	Items         map[string][]T
	NextPageToken string
}

// MultiFetchFunc fetches one multi-symbol page.
type MultiFetchFunc[R any, T any] func(ctx context.Context, req R) (MultiPage[T], error)

// FanOutResult holds the per-symbol queues filled by FanOut.
type FanOutResult[T any] struct {
	mu     sync.Mutex
	queues map[string]*Queue[T]
	order  []string
	done   bool
	err    error

	g *errgroup.Group
}

// FanOut starts one goroutine that walks every page starting at req and
// pushes each symbol's items onto its queue. Queues exist up front for
// symbols; others are created on first sight. Cancelling ctx stops the walk.
func FanOut[R Request[R], T any](ctx context.Context, req R, symbols []string, fetch MultiFetchFunc[R, T]) *FanOutResult[T] {
	r := &FanOutResult[T]{
		queues: make(map[string]*Queue[T], len(symbols)),
	}
	for _, s := range symbols {
		r.queue(s)
	}

	g, gctx := errgroup.WithContext(ctx)
	r.g = g
	g.Go(func() error {
		err := walk(gctx, req, fetch, r.push)
		r.closeAll(err)
		return err
	})
	return r
}

// walk follows NextPageToken from req and hands each page to push.
func walk[R Request[R], T any](ctx context.Context, req R, fetch MultiFetchFunc[R, T], push func(MultiPage[T])) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := fetch(ctx, req)
		if err != nil {
			return err
		}
		push(page)
		if page.NextPageToken == "" {
			return nil
		}
		req = req.WithPageToken(page.NextPageToken)
	}
}

// push distributes a page. New symbols are registered in sorted order.
func (r *FanOutResult[T]) push(page MultiPage[T]) {
	symbols := make([]string, 0, len(page.Items))
	for s := range page.Items {
		symbols = append(symbols, s)
	}
	slices.Sort(symbols)
	for _, s := range symbols {
		r.queue(s).push(page.Items[s])
	}
}

// Symbol returns the queue for symbol. A symbol that has not been seen yet
// gets an empty queue that is filled if the symbol shows up later.
func (r *FanOutResult[T]) Symbol(symbol string) *Queue[T] {
	return r.queue(symbol)
}

// Symbols lists every known symbol: the requested ones first, then the rest
// in order of first appearance.
func (r *FanOutResult[T]) Symbols() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Wait blocks until the walk ends and returns its error.
func (r *FanOutResult[T]) Wait() error {
	return r.g.Wait()
}

func (r *FanOutResult[T]) queue(symbol string) *Queue[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[symbol]
	if !ok {
		q = newQueue[T]()
		if r.done {
			q.close(r.err)
		}
		r.queues[symbol] = q
		r.order = append(r.order, symbol)
	}
	return q
}

func (r *FanOutResult[T]) closeAll(err error) {
	r.mu.Lock()
	r.done = true
	r.err = err
	qs := make([]*Queue[T], 0, len(r.queues))
	for _, q := range r.queues {
		qs = append(qs, q)
	}
	r.mu.Unlock()
	for _, q := range qs {
		q.close(err)
	}
}

// Queue is an unbounded FIFO of one symbol's items.
type Queue[T any] struct {
	mu     sync.Mutex
	items  deque.Deque[T]
	wake   chan struct{} // closed and replaced on every push and on close
	closed bool
	err    error
}

func newQueue[T any]() *Queue[T] {
	return &Queue[T]{wake: make(chan struct{})}
}

func (q *Queue[T]) push(items []T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	for _, item := range items {
		q.items.PushBack(item)
	}
	close(q.wake)
	q.wake = make(chan struct{})
}

func (q *Queue[T]) close(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.err = err
	close(q.wake)
}

// Next returns the next item. ok is false once the walk has ended and the
// queue is drained; err is then the walk's error, if any. Next also returns
// when ctx is done.
func (q *Queue[T]) Next(ctx context.Context) (item T, ok bool, err error) {
	for {
		q.mu.Lock()
		if q.items.Len() > 0 {
			item = q.items.PopFront()
			q.mu.Unlock()
			return item, true, nil
		}
		if q.closed {
			err = q.err
			q.mu.Unlock()
			return item, false, err
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return item, false, ctx.Err()
		}
	}
}

// All yields items until the queue is drained. A terminal error is yielded
// last.
func (q *Queue[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			item, ok, err := q.Next(ctx)
			if err != nil {
				yield(item, err)
				return
			}
			if !ok {
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
