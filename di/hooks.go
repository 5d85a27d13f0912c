package di

import (
	"time"

	"go.uber.org/zap"
)

// Hooks observes scope activity. internal/metrics exports it to Prometheus.
type Hooks interface {
	ScopeCreated(s *Scope)
	Constructed(s *Scope, tok Token, took time.Duration)
	Notified(s *Scope, tok Token, subscribers int)
	ScopeDisposed(s *Scope)
}

type noopHooks struct{}

func (noopHooks) ScopeCreated(*Scope) {}

func (noopHooks) Constructed(*Scope, Token, time.Duration) {}

func (noopHooks) Notified(*Scope, Token, int) {}

func (noopHooks) ScopeDisposed(*Scope) {}

// Option configures a Scope.
type Option func(*options)

type options struct {
	label  string
	logger *zap.Logger
	hooks  Hooks
}

// WithLabel names the scope in logs, errors and Fprint output.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithLogger sets the logger. Child scopes inherit it.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHooks sets the activity hooks. Child scopes inherit them.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		if h != nil {
			o.hooks = h
		}
	}
}
