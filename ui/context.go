package ui

import (
	"context"
	"sync"

	"github.com/sghaida/scopedi/di"
)

type (
	scopeKey     struct{}
	schedulerKey struct{}
	registryKey  struct{}
	debugKey     struct{}
)

// implicitRoot is the ambient scope when no Root or ProviderNode set one.
var implicitRoot = sync.OnceValue(func() *di.Scope {
	return di.MustNewScope(nil, nil, di.WithLabel("implicit root"))
})

// WithScope makes s the ambient scope for everything rendered with ctx.
func WithScope(ctx context.Context, s *di.Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the ambient scope carried by ctx, if any.
func ScopeFrom(ctx context.Context) (*di.Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*di.Scope)
	return s, ok && s != nil
}

// AmbientScope returns the nearest scope in ctx, or the implicit empty root.
func AmbientScope(ctx context.Context) *di.Scope {
	if s, ok := ScopeFrom(ctx); ok {
		return s
	}
	return implicitRoot()
}

// Scheduler re-renders a mounted tree. Root implements it.
type Scheduler interface {
	Invalidate()
}

// watcher is implemented by schedulers that hold one subscription per scope
// for all of their consumers, so one notification schedules one render.
type watcher interface {
	watch(owner *di.Scope) (release func())
}

// WithScheduler attaches the scheduler consumers notify on state changes.
func WithScheduler(ctx context.Context, s Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, s)
}

// SchedulerFrom returns the scheduler in ctx, nil when rendering statically.
func SchedulerFrom(ctx context.Context) Scheduler {
	s, _ := ctx.Value(schedulerKey{}).(Scheduler)
	return s
}

// Unmounter is implemented by nodes that hold resources across renders.
type Unmounter interface {
	Unmount() error
}

type registry interface {
	register(u Unmounter)
}

func withRegistry(ctx context.Context, r registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// register hands u to the mounting Root so Root.Unmount releases it.
func register(ctx context.Context, u Unmounter) {
	if r, ok := ctx.Value(registryKey{}).(registry); ok {
		r.register(u)
	}
}

func withDebug(ctx context.Context, on bool) context.Context {
	return context.WithValue(ctx, debugKey{}, on)
}

func debugFrom(ctx context.Context) bool {
	on, _ := ctx.Value(debugKey{}).(bool)
	return on
}
