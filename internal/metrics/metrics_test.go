package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveItem(t *testing.T) {
	m := New()
	m.ObserveItem(true, true, false, time.Second)
	m.ObserveItem(true, false, true, time.Second)
	m.ObserveItem(false, false, false, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.items.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.items.WithLabelValues(OutcomeFail)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.changes.WithLabelValues("availability")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.changes.WithLabelValues("quantity")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveItem(true, true, true, time.Second)
	m.SetDecisions(1, 2)
	m.FinishRun(time.Second)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("/nonexistent/x.prom"))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.SetDecisions(3, 1)
	m.ObserveItem(true, true, false, 500*time.Millisecond)
	m.FinishRun(3 * time.Second)

	path := filepath.Join(t.TempDir(), "collector", "catalogsync.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `catalogsync_items_total{outcome="ok"} 1`), text)
	assert.True(t, strings.Contains(text, `catalogsync_decisions{available="true"} 3`), text)
	assert.True(t, strings.Contains(text, "catalogsync_run_duration_seconds 3"), text)

	assert.NoError(t, m.WriteTextfile(""))
}
