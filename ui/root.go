package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/a-h/templ"
	"github.com/sghaida/scopedi/di"
	"go.uber.org/zap"
)

// maxPasses bounds how often one flush re-renders a tree that keeps
// invalidating itself.
const maxPasses = 32

// Root mounts a tree and re-renders it when consumers invalidate it.
//
// Rendering is synchronous: Invalidate renders before it returns, unless a
// render is already running (the running one loops once more) or a Batch is
// open (the batch renders once when it closes).
type Root struct {
	tree      templ.Component
	scope     *di.Scope
	ownsScope bool
	log       *zap.Logger
	debug     bool
	out       io.Writer
	onError   func(error)

	mu        sync.Mutex
	ctx       context.Context // base context of the mount, reused by re-renders
	rendering bool
	dirty     bool
	batch     int
	unmounted bool
	nodes     []Unmounter
	seen      map[Unmounter]struct{}
	watches   map[*di.Scope]*watch
	output    string
	renders   int
	err       error
}

// watch is the Root's subscription to one scope, shared by n consumers.
type watch struct {
	n      int
	cancel func()
}

// RootOption configures a Root.
type RootOption func(*Root)

// WithRootScope uses s, typically bootstrapped with di.NewScope before the
// first render, as the scope of the whole tree. The Root does not dispose it.
func WithRootScope(s *di.Scope) RootOption {
	return func(r *Root) { r.scope = s }
}

// WithLogger sets the logger for render failures and lifecycle events.
func WithLogger(l *zap.Logger) RootOption {
	return func(r *Root) {
		if l != nil {
			r.log = l
		}
	}
}

// WithDebug wraps every ProviderNode's output in a section listing its providers.
func WithDebug(on bool) RootOption {
	return func(r *Root) { r.debug = on }
}

// WithOutput writes every successful render to w.
func WithOutput(w io.Writer) RootOption {
	return func(r *Root) { r.out = w }
}

// WithErrorHandler receives failures of renders triggered by Invalidate or
// Batch, which have no caller to return them to.
func WithErrorHandler(fn func(error)) RootOption {
	return func(r *Root) { r.onError = fn }
}

// NewRoot prepares tree for mounting. Nothing renders until Render.
func NewRoot(tree templ.Component, opts ...RootOption) *Root {
	r := &Root{
		tree:    tree,
		log:     zap.NewNop(),
		seen:    make(map[Unmounter]struct{}),
		watches: make(map[*di.Scope]*watch),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scope == nil {
		r.scope = di.MustNewScope(nil, nil, di.WithLabel("root"), di.WithLogger(r.log))
		r.ownsScope = true
	}
	return r
}

// Scope returns the root scope of the tree.
func (r *Root) Scope() *di.Scope { return r.scope }

// Render mounts the tree on first call and renders it synchronously.
func (r *Root) Render(ctx context.Context) error {
	r.mu.Lock()
	if r.unmounted {
		r.mu.Unlock()
		return ErrUnmounted
	}
	r.ctx = ctx
	r.mu.Unlock()

	return r.flush()
}

// Invalidate implements Scheduler.
func (r *Root) Invalidate() {
	r.mu.Lock()
	if r.unmounted || r.ctx == nil {
		r.mu.Unlock()
		return
	}
	if r.rendering || r.batch > 0 {
		r.dirty = true
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if err := r.flush(); err != nil {
		r.report(err)
	}
}

// Batch runs fn and renders at most once afterwards, however many state
// changes fn causes.
func (r *Root) Batch(fn func()) {
	r.mu.Lock()
	r.batch++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.batch--
		pending := r.batch == 0 && r.dirty && !r.rendering && !r.unmounted
		r.mu.Unlock()

		if pending {
			if err := r.flush(); err != nil {
				r.report(err)
			}
		}
	}()
	fn()
}

// Output returns the last successful render.
func (r *Root) Output() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.output
}

// Renders counts render passes, failed ones included.
func (r *Root) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

// Err returns the failure of the last render pass, nil if it succeeded.
func (r *Root) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Unmount releases every mounted node, children first, and disposes the
// root scope when the Root created it.
func (r *Root) Unmount() error {
	r.mu.Lock()
	if r.unmounted {
		r.mu.Unlock()
		return nil
	}
	r.unmounted = true
	nodes := r.nodes
	watches := r.watches
	r.nodes = nil
	r.seen = nil
	r.watches = nil
	r.mu.Unlock()

	var errs []error
	for i := len(nodes) - 1; i >= 0; i-- {
		errs = append(errs, nodes[i].Unmount())
	}
	for _, w := range watches {
		w.cancel()
	}
	if r.ownsScope {
		errs = append(errs, r.scope.Dispose())
	}

	err := errors.Join(errs...)
	r.log.Debug("root unmounted", zap.Int("nodes", len(nodes)), zap.Error(err))
	return err
}

func (r *Root) register(u Unmounter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unmounted {
		return
	}
	if _, ok := r.seen[u]; ok {
		return
	}
	r.seen[u] = struct{}{}
	r.nodes = append(r.nodes, u)
}

// watch subscribes r to owner once, however many consumers depend on it.
func (r *Root) watch(owner *di.Scope) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unmounted {
		return func() {}
	}
	w, ok := r.watches[owner]
	if !ok {
		w = &watch{cancel: owner.Subscribe(func(di.Token) { r.Invalidate() })}
		r.watches[owner] = w
	}
	w.n++

	var once sync.Once
	return func() {
		once.Do(func() { r.unwatch(owner, w) })
	}
}

func (r *Root) unwatch(owner *di.Scope, w *watch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w.n--
	if w.n > 0 || r.watches[owner] != w {
		return
	}
	w.cancel()
	delete(r.watches, owner)
}

// flush renders until no invalidation arrived during the last pass and
// returns the error of the first pass.
func (r *Root) flush() error {
	r.mu.Lock()
	if r.rendering {
		r.dirty = true
		r.mu.Unlock()
		return nil
	}
	r.rendering = true
	r.mu.Unlock()

	var first error
	for pass := 0; ; pass++ {
		r.mu.Lock()
		r.dirty = false
		ctx := r.ctx
		r.mu.Unlock()

		err := r.renderOnce(ctx)
		if pass == 0 {
			first = err
		} else if err != nil {
			r.report(err)
		}

		r.mu.Lock()
		again := r.dirty && !r.unmounted
		if !again || pass+1 >= maxPasses {
			r.rendering = false
			r.dirty = false
			r.mu.Unlock()
			if again {
				r.report(ErrRenderLoop)
			}
			return first
		}
		r.mu.Unlock()
	}
}

func (r *Root) renderOnce(ctx context.Context) error {
	rctx := WithScope(ctx, r.scope)
	rctx = WithScheduler(rctx, r)
	rctx = withRegistry(rctx, r)
	rctx = withDebug(rctx, r.debug)

	var buf bytes.Buffer
	err := r.tree.Render(rctx, &buf)

	r.mu.Lock()
	r.renders++
	r.err = err
	if err == nil {
		r.output = buf.String()
	}
	n := r.renders
	r.mu.Unlock()

	if err != nil {
		r.log.Error("render failed", zap.Int("pass", n), zap.Error(err))
		return err
	}
	r.log.Debug("rendered", zap.Int("pass", n), zap.Int("bytes", buf.Len()))

	if r.out != nil {
		if _, werr := r.out.Write(buf.Bytes()); werr != nil {
			return werr
		}
	}
	return nil
}

func (r *Root) report(err error) {
	if r.onError != nil {
		r.onError(err)
	}
}
