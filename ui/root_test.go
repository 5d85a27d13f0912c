package ui_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/sghaida/scopedi/di"
	"github.com/sghaida/scopedi/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// counterTree is a provider with the logger and counter and a view under it.
func counterTree() *ui.ProviderNode {
	return ui.Provide([]di.Provider{di.Class(newBaseLogger), di.Class(newCounterService)}, counterView())
}

// errorSink collects errors passed to an error handler.
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) handle(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func (s *errorSink) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

//
// -----------------------------------------------------------------------------
// Rendering
// -----------------------------------------------------------------------------

// TestRoot_StateChangeRendersOnce verifies one Increment produces exactly one
// extra render with the new value.
func TestRoot_StateChangeRendersOnce(t *testing.T) {
	t.Parallel()

	tree := counterTree()
	root := ui.NewRoot(tree, ui.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, root.Render(context.Background()))
	assert.Equal(t, "count=0;", root.Output())
	assert.Equal(t, 1, root.Renders())

	svc := di.MustResolve[*counterService](tree.Scope(), counterToken)
	svc.Increment()
	assert.Equal(t, "count=1;", root.Output())
	assert.Equal(t, 2, root.Renders())

	svc.Increment()
	assert.Equal(t, "count=2;", root.Output())
	assert.Equal(t, 3, root.Renders())
}

// TestRoot_ConsumersOfOneScopeShareARender verifies one state change renders
// the tree once however many consumers watch the owning scope.
func TestRoot_ConsumersOfOneScopeShareARender(t *testing.T) {
	t.Parallel()

	views := []*ui.ConsumerNode{counterView(), counterView(), counterView()}
	tree := ui.Provide([]di.Provider{di.Class(newBaseLogger), di.Class(newCounterService)},
		views[0], views[1], views[2])
	root := ui.NewRoot(tree)
	require.NoError(t, root.Render(context.Background()))
	assert.Equal(t, 1, root.Renders())

	svc := di.MustResolve[*counterService](tree.Scope(), counterToken)
	svc.Increment()
	assert.Equal(t, "count=1;count=1;count=1;", root.Output())
	assert.Equal(t, 2, root.Renders())

	require.NoError(t, views[0].Unmount())
	svc.Increment()
	assert.Equal(t, 3, root.Renders())

	require.NoError(t, root.Unmount())
	svc.Increment()
	assert.Equal(t, 3, root.Renders())
}

// TestRoot_StateChangeFromConstructor verifies a service changing watched state
// while it is constructed outside a render re-renders the tree.
func TestRoot_StateChangeFromConstructor(t *testing.T) {
	t.Parallel()

	tree := ui.Provide([]di.Provider{
		di.Class(newBaseLogger),
		di.Class(newCounterService),
		di.Class(newWarmer),
	}, counterView())
	root := ui.NewRoot(tree)
	require.NoError(t, root.Render(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := di.ResolveType[*warmer](tree.Scope())
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("resolution did not return")
	}

	assert.Equal(t, "count=1;", root.Output())
	assert.Equal(t, 2, root.Renders())
	require.NoError(t, root.Unmount())
}

// TestRoot_SharedValueRebound verifies consumers under a child binding the same
// observable value as an ancestor re-render when it changes.
func TestRoot_SharedValueRebound(t *testing.T) {
	t.Parallel()

	shared := di.NewState(counterState{})
	tok := di.NewKey[*di.State[counterState]]("shared")

	boot := di.MustNewScope([]di.Provider{di.Value(tok, shared)}, nil)
	_, err := boot.Get(tok)
	require.NoError(t, err)

	view := ui.Consumer(ui.Request{"n": tok}, func(in ui.Injected) templ.Component {
		st := ui.MustGet[*di.State[counterState]](in, "n")
		return text(fmt.Sprintf("n=%d;", st.Get().Count))
	})
	root := ui.NewRoot(ui.Provide([]di.Provider{di.Value(tok, shared)}, view), ui.WithRootScope(boot))
	require.NoError(t, root.Render(context.Background()))
	assert.Equal(t, "n=0;", root.Output())

	shared.Set(func(counterState) counterState { return counterState{Count: 7} })
	assert.Equal(t, "n=7;", root.Output())
	assert.Equal(t, 2, root.Renders())
	require.NoError(t, root.Unmount())
}

// TestRoot_BatchCoalesces verifies several changes inside Batch render once.
func TestRoot_BatchCoalesces(t *testing.T) {
	t.Parallel()

	tree := counterTree()
	root := ui.NewRoot(tree)
	require.NoError(t, root.Render(context.Background()))

	svc := di.MustResolve[*counterService](tree.Scope(), counterToken)
	root.Batch(func() {
		svc.Increment()
		svc.Increment()
		svc.Increment()
		assert.Equal(t, 1, root.Renders())
	})

	assert.Equal(t, "count=3;", root.Output())
	assert.Equal(t, 2, root.Renders())

	root.Batch(func() {})
	assert.Equal(t, 2, root.Renders())
}

// TestRoot_InvalidateBeforeRenderIsIgnored verifies nothing renders until the
// tree is mounted.
func TestRoot_InvalidateBeforeRenderIsIgnored(t *testing.T) {
	t.Parallel()

	root := ui.NewRoot(text("x"))
	root.Invalidate()
	assert.Zero(t, root.Renders())
	assert.Empty(t, root.Output())
}

// TestRoot_WithOutput verifies every successful render is written out.
func TestRoot_WithOutput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	tree := counterTree()
	root := ui.NewRoot(tree, ui.WithOutput(&out))
	require.NoError(t, root.Render(context.Background()))

	di.MustResolve[*counterService](tree.Scope(), counterToken).Increment()
	assert.Equal(t, "count=0;count=1;", out.String())
}

// TestRoot_UnresolvedTokenFailsRender verifies a missing provider surfaces from
// Render with its typed error.
func TestRoot_UnresolvedTokenFailsRender(t *testing.T) {
	t.Parallel()

	root := ui.NewRoot(counterView())
	err := root.Render(context.Background())

	var unresolved *di.UnresolvedTokenError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, counterToken, unresolved.Token)
	assert.Empty(t, root.Output())
}

// TestRoot_FailedRerenderKeepsOutput verifies a failing re-render is reported
// to the handler and the previous output survives.
func TestRoot_FailedRerenderKeepsOutput(t *testing.T) {
	t.Parallel()

	errView := errors.New("view failed")
	view := ui.Consumer(ui.Request{"counter": counterToken}, func(in ui.Injected) templ.Component {
		c := ui.MustGet[*counterService](in, "counter")
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			if c.Get().Count > 0 {
				return errView
			}
			_, err := io.WriteString(w, "ok")
			return err
		})
	})
	tree := ui.Provide([]di.Provider{di.Class(newBaseLogger), di.Class(newCounterService)}, view)

	sink := &errorSink{}
	root := ui.NewRoot(tree, ui.WithErrorHandler(sink.handle))
	require.NoError(t, root.Render(context.Background()))

	di.MustResolve[*counterService](tree.Scope(), counterToken).Increment()

	assert.Equal(t, "ok", root.Output())
	require.ErrorIs(t, root.Err(), errView)
	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], errView)
}

// TestRoot_RenderLoopIsBounded verifies a tree that invalidates on every render
// stops and reports ErrRenderLoop.
func TestRoot_RenderLoopIsBounded(t *testing.T) {
	t.Parallel()

	restless := templ.ComponentFunc(func(ctx context.Context, _ io.Writer) error {
		ui.SchedulerFrom(ctx).Invalidate()
		return nil
	})

	sink := &errorSink{}
	root := ui.NewRoot(restless, ui.WithErrorHandler(sink.handle))
	require.NoError(t, root.Render(context.Background()))

	assert.Equal(t, 32, root.Renders())
	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ui.ErrRenderLoop)
}

//
// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// TestRoot_Unmount verifies unmounting disposes owned scopes and stops
// re-renders.
func TestRoot_Unmount(t *testing.T) {
	t.Parallel()

	tree := counterTree()
	root := ui.NewRoot(tree)
	require.NoError(t, root.Render(context.Background()))

	scope := tree.Scope()
	svc := di.MustResolve[*counterService](scope, counterToken)

	require.NoError(t, root.Unmount())
	require.NoError(t, root.Unmount())
	assert.Equal(t, di.StatusDisposed, scope.Status())
	assert.Equal(t, di.StatusDisposed, root.Scope().Status())

	svc.Increment()
	assert.Equal(t, 1, root.Renders())
	assert.ErrorIs(t, root.Render(context.Background()), ui.ErrUnmounted)
}

// TestRoot_WithRootScope verifies a bootstrapped scope is visible to the tree
// and survives Unmount.
func TestRoot_WithRootScope(t *testing.T) {
	t.Parallel()

	boot := di.MustNewScope([]di.Provider{di.Class(newBaseLogger)}, nil, di.WithLabel("app"))
	root := ui.NewRoot(loggerView(), ui.WithRootScope(boot))
	assert.Same(t, boot, root.Scope())

	require.NoError(t, root.Render(context.Background()))
	assert.Equal(t, "[base]", root.Output())

	require.NoError(t, root.Unmount())
	assert.Equal(t, di.StatusActive, boot.Status())
}
