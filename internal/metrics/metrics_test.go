package metrics_test

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sghaida/scopedi/di"
	"github.com/sghaida/scopedi/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	*di.State[int]
}

func newCounter(di.Resolver) (*counter, error) {
	return &counter{State: di.NewState(0)}, nil
}

func (c *counter) bump() {
	c.Set(func(n int) int { return n + 1 })
}

// TestCollector_ScopeLifecycle verifies scope counters follow creation and
// cascading disposal.
func TestCollector_ScopeLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	root := di.MustNewScope(nil, nil, di.WithHooks(c))
	child := di.MustNewScope(nil, root)
	_ = di.MustNewScope(nil, child)

	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(`
# HELP readi_scopes_active Number of scopes not yet disposed
# TYPE readi_scopes_active gauge
readi_scopes_active 3
# HELP readi_scopes_created_total Total number of scopes created
# TYPE readi_scopes_created_total counter
readi_scopes_created_total 3
`), "readi_scopes_active", "readi_scopes_created_total"))

	require.NoError(t, child.Dispose())
	require.NoError(t, child.Dispose())
	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(`
# HELP readi_scopes_active Number of scopes not yet disposed
# TYPE readi_scopes_active gauge
readi_scopes_active 1
`), "readi_scopes_active"))
}

// TestCollector_ConstructionsAndNotifications verifies per-token counters.
func TestCollector_ConstructionsAndNotifications(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg, metrics.WithNamespace("test"))

	s := di.MustNewScope([]di.Provider{di.Class(newCounter)}, nil, di.WithHooks(c), di.WithLabel("app"))
	cancel := s.Subscribe(func(di.Token) {})
	defer cancel()

	svc := di.MustResolve[*counter](s, di.TypeOf[*counter]())
	_ = di.MustResolve[*counter](s, di.TypeOf[*counter]())
	svc.bump()
	svc.bump()

	n, err := testutil.GatherAndCount(reg, "test_constructions_total", "test_construction_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var out bytes.Buffer
	require.NoError(t, metrics.WriteText(&out, reg, "test_"))
	assert.Contains(t, out.String(), `test_constructions_total{scope="app",token="*metrics_test.counter"} 1`)
	assert.Contains(t, out.String(), `test_notifications_total{token="*metrics_test.counter"} 2`)
	assert.Contains(t, out.String(), `test_notification_subscribers{token="*metrics_test.counter"} 1`)
}

// TestWriteText_FiltersByPrefix verifies unrelated families are skipped.
func TestWriteText_FiltersByPrefix(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg)
	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "other_total", Help: "unrelated"})
	reg.MustRegister(other)
	other.Inc()

	var out bytes.Buffer
	require.NoError(t, metrics.WriteText(&out, reg, "readi_"))
	assert.NotContains(t, out.String(), "other_total")
	assert.Contains(t, out.String(), "readi_scopes_created_total 0")
}
