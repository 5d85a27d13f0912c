package ui

import (
	"context"
	"io"
	"sync"

	"github.com/a-h/templ"
)

// AsyncState is what an AsyncNode renders with.
type AsyncState[T any] struct {
	Loading bool
	Value   T
	Err     error
}

// AsyncNode renders a loading state, runs load once per mount in the
// background and re-renders with the result.
type AsyncNode[T any] struct {
	load   func(ctx context.Context) (T, error)
	render func(AsyncState[T]) templ.Component

	mu      sync.Mutex
	state   AsyncState[T]
	started bool
	sched   Scheduler
	cancel  context.CancelFunc
}

// Await returns a node that renders load's result once it is available.
func Await[T any](load func(ctx context.Context) (T, error), render func(AsyncState[T]) templ.Component) *AsyncNode[T] {
	return &AsyncNode[T]{load: load, render: render}
}

// Render implements templ.Component.
func (n *AsyncNode[T]) Render(ctx context.Context, w io.Writer) error {
	n.mu.Lock()
	if s := SchedulerFrom(ctx); s != nil {
		n.sched = s
	}
	if !n.started {
		n.start(ctx)
	}
	state := n.state
	n.mu.Unlock()

	out := n.render(state)
	if out == nil {
		return nil
	}
	return out.Render(ctx, w)
}

// start runs with n.mu held. The load keeps ctx values (the ambient scope)
// but lives until Unmount rather than until the render returns.
func (n *AsyncNode[T]) start(ctx context.Context) {
	n.started = true
	n.state = AsyncState[T]{Loading: true}

	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	n.cancel = cancel
	register(ctx, n)

	go func() {
		v, err := n.load(lctx)

		n.mu.Lock()
		if lctx.Err() != nil {
			n.mu.Unlock()
			return
		}
		n.state = AsyncState[T]{Value: v, Err: err}
		sched := n.sched
		n.mu.Unlock()

		if sched != nil {
			sched.Invalidate()
		}
	}()
}

// State returns the current state.
func (n *AsyncNode[T]) State() AsyncState[T] {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Unmount cancels a pending load. The next render starts a new one.
func (n *AsyncNode[T]) Unmount() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.started = false
	n.sched = nil
	n.state = AsyncState[T]{}
	return nil
}
