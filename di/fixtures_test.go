package di_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sghaida/scopedi/di"
)

//
// -----------------------------------------------------------------------------
// Shared fixtures
// -----------------------------------------------------------------------------

type loggerConfig struct {
	Allow bool
}

var loggerConfigKey = di.NewKey[loggerConfig]("LoggerConfig")

type logger interface {
	Log(msg string)
	Lines() []string
}

type baseLogger struct {
	cfg   loggerConfig
	lines []string
}

func (l *baseLogger) Log(msg string) { l.lines = append(l.lines, msg) }

func (l *baseLogger) Lines() []string { return l.lines }

type enhancedLogger struct {
	baseLogger
}

func (l *enhancedLogger) Log(msg string) { l.lines = append(l.lines, "** "+msg) }

func newBaseLogger(r di.Resolver) (logger, error) {
	cfg, ok, err := di.ResolveOptional[loggerConfig](r, loggerConfigKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		cfg = loggerConfig{Allow: true}
	}
	return &baseLogger{cfg: cfg}, nil
}

func newEnhancedLogger(r di.Resolver) (*enhancedLogger, error) {
	return &enhancedLogger{}, nil
}

type counterState struct {
	Count int
}

type counterService struct {
	*di.State[counterState]
	log logger
}

func newCounterService(r di.Resolver) (*counterService, error) {
	l, err := di.ResolveType[logger](r)
	if err != nil {
		return nil, err
	}
	return &counterService{State: di.NewState(counterState{}), log: l}, nil
}

func (c *counterService) Increment() {
	c.log.Log("increment")
	c.Set(func(prev counterState) counterState {
		prev.Count++
		return prev
	})
}

// ctorCounter counts constructor invocations.
type ctorCounter struct {
	mu sync.Mutex
	n  int
}

func (c *ctorCounter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *ctorCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type closer struct {
	name  string
	order *[]string
	err   error
}

func (c *closer) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

var errBoom = errors.New("boom")

// flusher bumps a counter when its scope is disposed.
type flusher struct {
	counter *counterService
}

func newFlusher(r di.Resolver) (*flusher, error) {
	c, err := di.ResolveType[*counterService](r)
	if err != nil {
		return nil, err
	}
	return &flusher{counter: c}, nil
}

func (f *flusher) Close() error {
	f.counter.Increment()
	return nil
}

// returnsWithin fails t when fn is still running after d.
func returnsWithin(t *testing.T, d time.Duration, fn func()) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("call did not return")
	}
}

// recordingHooks captures hook calls.
type recordingHooks struct {
	mu          sync.Mutex
	created     int
	constructed []string
	notified    []string
	disposed    int
}

func (h *recordingHooks) ScopeCreated(*di.Scope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created++
}

func (h *recordingHooks) Constructed(_ *di.Scope, tok di.Token, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.constructed = append(h.constructed, tok.String())
}

func (h *recordingHooks) Notified(_ *di.Scope, tok di.Token, _ int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notified = append(h.notified, tok.String())
}

func (h *recordingHooks) ScopeDisposed(*di.Scope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposed++
}
