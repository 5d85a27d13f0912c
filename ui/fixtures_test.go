package ui_test

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/a-h/templ"
	"github.com/sghaida/scopedi/di"
	"github.com/sghaida/scopedi/ui"
)

//
// -----------------------------------------------------------------------------
// Shared fixtures
// -----------------------------------------------------------------------------

type logger interface {
	Name() string
}

type baseLogger struct{}

func (*baseLogger) Name() string { return "base" }

type enhancedLogger struct{}

func (*enhancedLogger) Name() string { return "enhanced" }

func newBaseLogger(di.Resolver) (logger, error) { return &baseLogger{}, nil }

func newEnhancedLogger(di.Resolver) (*enhancedLogger, error) { return &enhancedLogger{}, nil }

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
	c.Set(func(prev counterState) counterState {
		prev.Count++
		return prev
	})
}

// warmer bumps the counter while it is being constructed.
type warmer struct{}

func newWarmer(r di.Resolver) (*warmer, error) {
	c, err := di.ResolveType[*counterService](r)
	if err != nil {
		return nil, err
	}
	c.Increment()
	return &warmer{}, nil
}

var (
	loggerToken  = di.TypeOf[logger]()
	counterToken = di.TypeOf[*counterService]()
)

// text renders a fixed string.
func text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

// loggerView renders the injected logger's name.
func loggerView() *ui.ConsumerNode {
	return ui.Consumer(ui.Request{"log": loggerToken}, func(in ui.Injected) templ.Component {
		return text("[" + ui.MustGet[logger](in, "log").Name() + "]")
	})
}

// counterView renders the injected counter.
func counterView() *ui.ConsumerNode {
	return ui.Consumer(ui.Request{"counter": counterToken}, func(in ui.Injected) templ.Component {
		c := ui.MustGet[*counterService](in, "counter")
		return text(fmt.Sprintf("count=%d;", c.Get().Count))
	})
}

// countingScheduler counts invalidations.
type countingScheduler struct {
	mu sync.Mutex
	n  int
}

func (s *countingScheduler) Invalidate() {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *countingScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
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
