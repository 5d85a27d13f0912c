package di

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a Scope.
type Status int

const (
	// StatusUninitialized is reported by owners (ui.ProviderNode) before they
	// created their scope. A *Scope itself is never in this state.
	StatusUninitialized Status = iota
	// StatusActive scopes resolve and cache instances.
	StatusActive
	// StatusDisposed scopes reject every resolution.
	StatusDisposed
)

// String returns a human-readable status.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusActive:
		return "active"
	case StatusDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Resolver is the lookup surface handed to constructors.
type Resolver interface {
	// Get resolves tok or fails; it never returns a nil instance.
	Get(tok Token) (any, error)
	// Optional resolves tok, reporting ok=false instead of an error when tok
	// is bound nowhere in the chain.
	Optional(tok Token) (val any, ok bool, err error)
	// Scope returns the scope the lookup runs in.
	Scope() *Scope
}

// tree is shared by every scope created under the same root.
type tree struct {
	// mu serialises resolution and disposal across the whole chain.
	mu sync.Mutex

	// Notifications raised while mu is held are queued and delivered by the
	// goroutine releasing it, so subscribers may resolve again.
	qmu     sync.Mutex
	held    bool
	pending []notification
}

type notification struct {
	scope *Scope
	tok   Token
}

func (t *tree) lock() {
	t.mu.Lock()
	t.qmu.Lock()
	t.held = true
	t.qmu.Unlock()
}

func (t *tree) unlock() {
	t.qmu.Lock()
	t.held = false
	pending := t.pending
	t.pending = nil
	t.qmu.Unlock()
	t.mu.Unlock()

	for _, n := range pending {
		n.scope.deliver(n.tok)
	}
}

// enqueue queues n if mu is held and reports whether it did.
func (t *tree) enqueue(n notification) bool {
	t.qmu.Lock()
	defer t.qmu.Unlock()
	if !t.held {
		return false
	}
	t.pending = append(t.pending, n)
	return true
}

// Scope owns a set of bindings and the singletons built from them.
//
// Scopes are safe for concurrent use. Resolution of the whole tree is
// serialised; constructors re-enter through the Resolver they receive.
type Scope struct {
	id     string
	label  string
	parent *Scope
	tree   *tree
	log    *zap.Logger
	base   *zap.Logger // inherited by children, without this scope's fields
	hooks  Hooks

	providers []Provider
	bindings  map[Token]recipe
	instances map[Token]any

	// built records construction order for Dispose.
	built    []any
	observed map[any]struct{}
	cancels  []func()
	children map[*Scope]struct{}
	disposed atomic.Bool

	subMu  sync.Mutex
	subs   []subscriber
	nextID uint64
}

type subscriber struct {
	id uint64
	fn func(Token)
}

// NewScope validates providers and returns an active scope over parent.
// parent may be nil for a root scope.
//
// Later declarations for the same token replace earlier ones.
func NewScope(providers []Provider, parent *Scope, opts ...Option) (*Scope, error) {
	o := options{logger: zap.NewNop(), hooks: noopHooks{}}
	if parent != nil {
		o.logger = parent.base
		o.hooks = parent.hooks
	}
	for _, opt := range opts {
		opt(&o)
	}

	bindings := make(map[Token]recipe, len(providers))
	for i, p := range providers {
		if p == nil {
			return nil, &ConfigurationError{Index: i, Reason: "nil provider"}
		}
		tok, r, reason := p.compile()
		if reason != "" {
			return nil, &ConfigurationError{Index: i, Token: tok, Reason: reason}
		}
		bindings[tok] = r
	}

	s := &Scope{
		id:        uuid.NewString(),
		label:     o.label,
		parent:    parent,
		base:      o.logger,
		hooks:     o.hooks,
		providers: append([]Provider(nil), providers...),
		bindings:  bindings,
		instances: make(map[Token]any),
		observed:  make(map[any]struct{}),
		children:  make(map[*Scope]struct{}),
	}
	if s.label == "" {
		s.label = "child"
		if parent == nil {
			s.label = "root"
		}
	}
	s.log = o.logger.With(zap.String("scope", s.label), zap.String("scope_id", s.id))

	if parent == nil {
		s.tree = &tree{}
	} else {
		s.tree = parent.tree
		s.tree.mu.Lock()
		if parent.disposed.Load() {
			s.tree.mu.Unlock()
			return nil, parent.disposedErr()
		}
		parent.children[s] = struct{}{}
		s.tree.mu.Unlock()
	}

	s.log.Debug("scope created", zap.Int("providers", len(bindings)))
	s.hooks.ScopeCreated(s)
	return s, nil
}

// MustNewScope is NewScope that panics on error. Use it for bootstrapping.
func MustNewScope(providers []Provider, parent *Scope, opts ...Option) *Scope {
	s, err := NewScope(providers, parent, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// ID returns the unique scope id.
func (s *Scope) ID() string { return s.id }

// Label returns the scope label ("root" or "child" unless set).
func (s *Scope) Label() string { return s.label }

// Parent returns the parent scope, nil for a root.
func (s *Scope) Parent() *Scope { return s.parent }

// IsRoot reports whether s has no parent.
func (s *Scope) IsRoot() bool { return s.parent == nil }

// Providers returns the declarations s was created with.
func (s *Scope) Providers() []Provider {
	return append([]Provider(nil), s.providers...)
}

// Status reports whether s is active or disposed.
func (s *Scope) Status() Status {
	if s.disposed.Load() {
		return StatusDisposed
	}
	return StatusActive
}

// Has reports whether tok is bound anywhere in the chain. It is false on a
// disposed scope.
func (s *Scope) Has(tok Token) bool {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	for sc := s; sc != nil; sc = sc.parent {
		if sc.disposed.Load() {
			return false
		}
		if _, ok := sc.bindings[tok]; ok {
			return true
		}
	}
	return false
}

// Get resolves tok from s or its ancestors.
func (s *Scope) Get(tok Token) (any, error) {
	v, _, err := s.Lookup(tok)
	return v, err
}

// Lookup resolves tok and also returns the scope that owns the instance.
func (s *Scope) Lookup(tok Token) (any, *Scope, error) {
	s.tree.lock()
	defer s.tree.unlock()

	res := &resolution{}
	defer res.close()
	return s.resolve(res, tok)
}

// Optional resolves tok, reporting ok=false when it is bound nowhere.
// Failures other than a miss on tok itself are returned as errors.
func (s *Scope) Optional(tok Token) (any, bool, error) {
	v, err := s.Get(tok)
	return optionalResult(v, err, tok, nil)
}

// Scope implements Resolver.
func (s *Scope) Scope() *Scope { return s }

// Subscribe registers fn for state changes of instances owned by s.
// It is a no-op on a disposed scope.
func (s *Scope) Subscribe(fn func(Token)) (cancel func()) {
	if fn == nil || s.disposed.Load() {
		return func() {}
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify tells every subscriber of s that the state behind tok changed.
// Services that do not embed State can call it after mutating themselves.
//
// A change raised while the tree is resolving or disposing, from a
// constructor or a Close method, reaches subscribers once that call returns.
func (s *Scope) Notify(tok Token) {
	if s.disposed.Load() {
		return
	}
	if s.tree.enqueue(notification{scope: s, tok: tok}) {
		return
	}
	s.deliver(tok)
}

func (s *Scope) deliver(tok Token) {
	if s.disposed.Load() {
		return
	}

	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	s.log.Debug("state changed", zap.Stringer("token", tok), zap.Int("subscribers", len(subs)))
	for _, sub := range subs {
		sub.fn(tok)
	}
	s.hooks.Notified(s, tok, len(subs))
}

// Dispose drops every cached instance, disposes child scopes first and closes
// constructed instances that implement io.Closer, newest first. Disposing
// twice is a no-op.
func (s *Scope) Dispose() error {
	s.tree.lock()
	defer s.tree.unlock()
	return s.dispose()
}

func (s *Scope) dispose() error {
	if s.disposed.Load() {
		return nil
	}

	var errs []error
	for child := range s.children {
		errs = append(errs, child.dispose())
	}

	s.disposed.Store(true)
	for _, cancel := range s.cancels {
		cancel()
	}
	for i := len(s.built) - 1; i >= 0; i-- {
		inst := s.built[i]
		if c, ok := inst.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %T: %w", inst, err))
			}
		}
	}

	s.instances = nil
	s.built = nil
	s.observed = nil
	s.cancels = nil
	s.children = nil
	s.subMu.Lock()
	s.subs = nil
	s.subMu.Unlock()
	if s.parent != nil && s.parent.children != nil {
		delete(s.parent.children, s)
	}

	s.log.Debug("scope disposed")
	s.hooks.ScopeDisposed(s)
	return errors.Join(errs...)
}

func (s *Scope) disposedErr() error {
	return &DisposedScopeError{ScopeID: s.id, Label: s.label}
}

// resolve walks the chain with tree.mu held.
func (s *Scope) resolve(res *resolution, tok Token) (any, *Scope, error) {
	if tok == nil {
		return nil, nil, &UnresolvedTokenError{Token: nilToken{}, Path: res.tokens()}
	}
	for sc := s; sc != nil; sc = sc.parent {
		if sc.disposed.Load() {
			return nil, nil, sc.disposedErr()
		}
		if v, ok := sc.instances[tok]; ok {
			return v, sc, nil
		}
		if r, ok := sc.bindings[tok]; ok {
			return sc.construct(res, tok, r)
		}
	}
	return nil, nil, &UnresolvedTokenError{Token: tok, Path: res.tokens()}
}

// construct builds tok in s, where its binding lives, so the instance sees
// the bindings of s and its ancestors only.
func (s *Scope) construct(res *resolution, tok Token, r recipe) (any, *Scope, error) {
	f := frame{scope: s, tok: tok}
	if res.active(f) {
		return nil, nil, &CyclicDependencyError{Path: append(res.tokens(), tok)}
	}
	res.push(f)
	defer res.pop()

	if r.kind == kindAlias {
		return s.resolve(res, r.alias)
	}

	start := time.Now()
	var v any
	switch r.kind {
	case kindValue:
		v = r.value
	default:
		var err error
		v, err = callCtor(r.ctor, &session{scope: s, res: res})
		if err != nil {
			return nil, nil, &ConstructError{Token: tok, Err: err}
		}
		if isNil(v) {
			return nil, nil, &ConstructError{Token: tok, Err: ErrNilInstance}
		}
		s.built = append(s.built, v)
	}

	s.instances[tok] = v
	s.observe(tok, v)

	took := time.Since(start)
	s.log.Debug("constructed", zap.Stringer("token", tok), zap.Duration("took", took))
	s.hooks.Constructed(s, tok, took)
	return v, s, nil
}

// observe subscribes s to v once per instance. A value cached by several
// scopes notifies each of them.
func (s *Scope) observe(tok Token, v any) {
	o, ok := v.(Observable)
	if !ok {
		return
	}
	if hashable(v) {
		if _, seen := s.observed[v]; seen {
			return
		}
		s.observed[v] = struct{}{}
	}
	s.cancels = append(s.cancels, o.Subscribe(func() { s.Notify(tok) }))
}

func callCtor(ctor Constructor, r Resolver) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v = nil
			err = fmt.Errorf("%w: %v", ErrConstructorPanic, rec)
		}
	}()
	return ctor(r)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func hashable(v any) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}

// optionalResult turns a miss on tok itself, requested at path, into
// ok=false. Misses deeper in the graph stay errors.
func optionalResult(v any, err error, tok Token, path []Token) (any, bool, error) {
	if err == nil {
		return v, true, nil
	}
	var miss *UnresolvedTokenError
	if errors.As(err, &miss) && miss.Token == tok && samePath(miss.Path, path) {
		return nil, false, nil
	}
	return nil, false, err
}

type nilToken struct{}

func (nilToken) String() string { return "<nil token>" }

func (nilToken) token() {}

type frame struct {
	scope *Scope
	tok   Token
}

// resolution tracks one top-level lookup.
type resolution struct {
	stack []frame

	// closed is set once the top-level call returns; constructors that kept
	// their Resolver fall back to locking lookups from then on.
	closed atomic.Bool
}

func (r *resolution) push(f frame) { r.stack = append(r.stack, f) }

func (r *resolution) pop() { r.stack = r.stack[:len(r.stack)-1] }

func (r *resolution) close() { r.closed.Store(true) }

func (r *resolution) active(f frame) bool {
	for _, g := range r.stack {
		if g == f {
			return true
		}
	}
	return false
}

func (r *resolution) tokens() []Token {
	out := make([]Token, len(r.stack))
	for i, f := range r.stack {
		out[i] = f.tok
	}
	return out
}

// session is the Resolver a constructor receives.
type session struct {
	scope *Scope
	res   *resolution
}

func (x *session) Get(tok Token) (any, error) {
	if x.res.closed.Load() {
		return x.scope.Get(tok)
	}
	v, _, err := x.scope.resolve(x.res, tok)
	return v, err
}

func (x *session) Optional(tok Token) (any, bool, error) {
	if x.res.closed.Load() {
		return x.scope.Optional(tok)
	}
	v, _, err := x.scope.resolve(x.res, tok)
	return optionalResult(v, err, tok, x.res.tokens())
}

func (x *session) Scope() *Scope { return x.scope }

func samePath(a, b []Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
