// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package qualitygate

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songforge/platform/policy"
)

func fillHealthy(m *Monitor, n int) {
	for i := 0; i < n; i++ {
		m.RecordRubric("pop", true)
		m.RecordReproducibility(1.0)
		m.RecordPolicy(map[policy.Severity]int{policy.SeverityMild: 1})
		m.RecordLatency("compose", 1200)
	}
}

func TestEvaluateAllUnknownWhenEmpty(t *testing.T) {
	m := NewMonitor()
	report := m.Evaluate()

	assert.Equal(t, StatusUnknown, report.Overall)
	for name, g := range report.Gates {
		assert.Equal(t, StatusUnknown, g.Status, "gate %s", name)
	}
}

func TestEvaluateUnknownBelowMinimumSamples(t *testing.T) {
	m := NewMonitor()
	fillHealthy(m, minSamples-1)

	report := m.Evaluate()
	assert.Equal(t, StatusUnknown, report.Overall)
}

func TestEvaluateAllPass(t *testing.T) {
	m := NewMonitor()
	fillHealthy(m, 50)

	report := m.Evaluate()
	require.Equal(t, StatusPass, report.Overall)

	rubric := report.Gates[GateRubricPassRate]
	assert.Equal(t, StatusPass, rubric.Status)
	assert.Equal(t, 1.0, rubric.Value)
	assert.Equal(t, targetPassRate, rubric.Target)
	assert.NotEmpty(t, rubric.Message)
	assert.False(t, rubric.Timestamp.IsZero())
}

func TestRubricGateFailsBelowTarget(t *testing.T) {
	m := NewMonitor()
	fillHealthy(m, 50)
	// 10 failures over 60 samples drops the rate below 0.95.
	for i := 0; i < 10; i++ {
		m.RecordRubric("pop", false)
	}

	report := m.Evaluate()
	assert.Equal(t, StatusFail, report.Overall)
	assert.Equal(t, StatusFail, report.Gates[GateRubricPassRate].Status)
	assert.InDelta(t, 50.0/60.0, report.Gates[GateRubricPassRate].Value, 0.001)
}

func TestPolicyGateFailsOnSingleHighSeverity(t *testing.T) {
	m := NewMonitor()
	fillHealthy(m, 50)
	m.RecordPolicy(map[policy.Severity]int{policy.SeverityStrong: 1})

	report := m.Evaluate()
	assert.Equal(t, StatusFail, report.Gates[GatePolicy].Status)
	assert.Equal(t, 1.0, report.Gates[GatePolicy].Value)
	// Mild violations alone never trip the gate.
	assert.Equal(t, StatusPass, report.Gates[GateRubricPassRate].Status)
}

func TestLatencyGateP95(t *testing.T) {
	m := NewMonitor()
	fillHealthy(m, 50)
	// Four slow phases out of 54 land inside the top 5%, tripping the gate.
	for i := 0; i < 4; i++ {
		m.RecordLatency("retrieve", 90000)
	}
	report := m.Evaluate()
	assert.Equal(t, StatusFail, report.Gates[GateLatencyP95].Status)

	m2 := NewMonitor()
	fillHealthy(m2, 100)
	m2.RecordLatency("retrieve", 90000)
	report = m2.Evaluate()
	assert.Equal(t, StatusPass, report.Gates[GateLatencyP95].Status)
}

func TestWindowEvictsOldSamples(t *testing.T) {
	m := NewMonitor()
	// A window full of failures, then a full window of passes on top.
	for i := 0; i < defaultWindowSize; i++ {
		m.RecordRubric("pop", false)
	}
	for i := 0; i < defaultWindowSize; i++ {
		m.RecordRubric("pop", true)
	}
	fillHealthy(m, minSamples)

	report := m.Evaluate()
	assert.Equal(t, StatusPass, report.Gates[GateRubricPassRate].Status)
}

func TestOverallFailBeatsUnknown(t *testing.T) {
	m := NewMonitor()
	// Only the rubric window has enough samples, and it is failing.
	for i := 0; i < 20; i++ {
		m.RecordRubric("pop", false)
	}
	report := m.Evaluate()
	assert.Equal(t, StatusFail, report.Overall)
}

func TestReproducibilityGate(t *testing.T) {
	m := NewMonitor()
	fillHealthy(m, 50)
	for i := 0; i < 5; i++ {
		m.RecordReproducibility(0.5)
	}

	report := m.Evaluate()
	g := report.Gates[GateReproducibility]
	assert.Equal(t, StatusFail, g.Status)
	assert.Less(t, g.Value, targetReproRate)
}

func TestPrometheusExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMonitor(WithRegistry(reg))
	fillHealthy(m, 50)
	m.Evaluate()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.gaugeOverall))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gaugeStatus.WithLabelValues(GateRubricPassRate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gaugeValue.WithLabelValues(GateReproducibility)))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "songforge_quality_gate_status")
	assert.Contains(t, names, "songforge_quality_gate_overall")
}

func TestPercentile(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}
	assert.Equal(t, 95.0, percentile(values, 0.95))
	assert.Equal(t, 7.0, percentile([]float64{7}, 0.95))
}

func TestWindowSnapshotOrder(t *testing.T) {
	w := newWindow[int](3)
	w.add(1)
	w.add(2)
	assert.Equal(t, []int{1, 2}, w.snapshot())

	w.add(3)
	w.add(4)
	assert.Equal(t, []int{2, 3, 4}, w.snapshot())
}

func TestEvaluateTimestampsUseClock(t *testing.T) {
	m := NewMonitor()
	fixed := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	report := m.Evaluate()
	assert.Equal(t, fixed, report.Timestamp)
	assert.Equal(t, fixed, report.Gates[GateLatencyP95].Timestamp)
}
