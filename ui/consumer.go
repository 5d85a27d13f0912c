package ui

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/a-h/templ"
	"github.com/sghaida/scopedi/di"
)

// Request maps local names to the tokens a consumer needs.
type Request map[string]di.Token

// Injected holds what Inject resolved, keyed by the requested names.
type Injected struct {
	// Scope is the ambient scope the request was resolved against.
	Scope *di.Scope

	values map[string]any
	owners map[string]*di.Scope
}

// Get returns the instance injected under name.
func (in Injected) Get(name string) (any, bool) {
	v, ok := in.values[name]
	return v, ok
}

// Owner returns the scope that owns the instance injected under name.
func (in Injected) Owner(name string) (*di.Scope, bool) {
	s, ok := in.owners[name]
	return s, ok
}

// Lookup returns the instance injected under name as T.
func Lookup[T any](in Injected, name string) (T, bool) {
	v, ok := in.values[name].(T)
	return v, ok
}

// MustGet returns the instance injected under name as T or panics.
func MustGet[T any](in Injected, name string) T {
	v, ok := Lookup[T](in, name)
	if !ok {
		panic(fmt.Errorf("%w: %q as %T", ErrNotInjected, name, v))
	}
	return v
}

// Inject resolves every entry of req against the ambient scope of ctx.
// Names are resolved in sorted order; the first failure is returned.
func Inject(ctx context.Context, req Request) (Injected, error) {
	scope := AmbientScope(ctx)
	in := Injected{
		Scope:  scope,
		values: make(map[string]any, len(req)),
		owners: make(map[string]*di.Scope, len(req)),
	}
	for _, name := range slices.Sorted(maps.Keys(req)) {
		v, owner, err := scope.Lookup(req[name])
		if err != nil {
			return Injected{}, fmt.Errorf("inject %q: %w", name, err)
		}
		in.values[name] = v
		in.owners[name] = owner
	}
	return in, nil
}

// ConsumerNode renders with injected instances and re-renders when the
// scopes owning them report a state change.
type ConsumerNode struct {
	request Request
	render  func(Injected) templ.Component

	mu      sync.Mutex
	sched   Scheduler
	subs    map[*di.Scope]func()
	mounted bool
}

// Consumer returns a node that injects req and renders with render.
func Consumer(req Request, render func(Injected) templ.Component) *ConsumerNode {
	return &ConsumerNode{
		request: req,
		render:  render,
		subs:    make(map[*di.Scope]func()),
	}
}

// Render implements templ.Component. Resolution failures are returned as
// render errors.
func (c *ConsumerNode) Render(ctx context.Context, w io.Writer) error {
	in, err := Inject(ctx, c.request)
	if err != nil {
		return err
	}
	c.watch(ctx, in)

	out := c.render(in)
	if out == nil {
		return nil
	}
	return out.Render(ctx, w)
}

// watch subscribes once per owning scope, through the scheduler when it
// shares subscriptions.
func (c *ConsumerNode) watch(ctx context.Context, in Injected) {
	sched := SchedulerFrom(ctx)
	if sched == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		c.mounted = true
		register(ctx, c)
	}
	c.sched = sched

	owners := make(map[*di.Scope]struct{}, len(in.owners))
	for _, owner := range in.owners {
		owners[owner] = struct{}{}
	}
	w, shared := sched.(watcher)
	for owner := range owners {
		if _, ok := c.subs[owner]; ok {
			continue
		}
		if shared {
			c.subs[owner] = w.watch(owner)
			continue
		}
		c.subs[owner] = owner.Subscribe(func(di.Token) { c.changed() })
	}
	for owner, cancel := range c.subs {
		if _, ok := owners[owner]; !ok {
			cancel()
			delete(c.subs, owner)
		}
	}
}

func (c *ConsumerNode) changed() {
	c.mu.Lock()
	sched := c.sched
	c.mu.Unlock()

	if sched != nil {
		sched.Invalidate()
	}
}

// Unmount drops every subscription.
func (c *ConsumerNode) Unmount() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for owner, cancel := range c.subs {
		cancel()
		delete(c.subs, owner)
	}
	c.sched = nil
	c.mounted = false
	return nil
}
