// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

// Package qualitygate aggregates rubric, reproducibility, policy, and
// latency samples into four rolling-window gates with an overall status.
package qualitygate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"songforge/platform/policy"
	"songforge/platform/shared/logger"
)

// Status of one gate or of the whole monitor.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// Gate names.
const (
	GateRubricPassRate  = "rubric_pass_rate"
	GateReproducibility = "reproducibility"
	GatePolicy          = "policy_violations"
	GateLatencyP95      = "latency_p95"
)

const (
	defaultWindowSize = 200
	minSamples        = 10

	targetPassRate    = 0.95
	targetReproRate   = 0.99
	targetHighSev     = 0
	targetLatencyMS   = 60000.0
	latencyPercentile = 0.95
)

// GateReport is one gate's evaluation.
type GateReport struct {
	Gate      string    `json:"gate"`
	Status    Status    `json:"status"`
	Value     float64   `json:"value"`
	Target    float64   `json:"target"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Report is a full evaluation across the four gates.
type Report struct {
	Overall   Status                `json:"overall"`
	Gates     map[string]GateReport `json:"gates"`
	Timestamp time.Time             `json:"timestamp"`
}

type rubricSample struct {
	genre string
	pass  bool
}

type policySample struct {
	high  int
	total int
}

type latencySample struct {
	phase string
	ms    float64
}

// Monitor holds the four rolling windows. Each window carries its own
// lock, so recorders on different windows never contend.
type Monitor struct {
	rubric  *window[rubricSample]
	repro   *window[float64]
	policy  *window[policySample]
	latency *window[latencySample]

	log *logger.Logger
	now func() time.Time

	gaugeStatus  *prometheus.GaugeVec
	gaugeValue   *prometheus.GaugeVec
	gaugeOverall prometheus.Gauge
}

// Option tunes monitor construction.
type Option func(*Monitor)

// WithRegistry registers the gate gauges on reg. Without it the monitor
// keeps the gauges unregistered and exposition is up to the caller.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(m *Monitor) {
		reg.MustRegister(m.gaugeStatus, m.gaugeValue, m.gaugeOverall)
	}
}

func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		rubric:  newWindow[rubricSample](defaultWindowSize),
		repro:   newWindow[float64](defaultWindowSize),
		policy:  newWindow[policySample](defaultWindowSize),
		latency: newWindow[latencySample](defaultWindowSize),
		log:     logger.New("quality-gate"),
		now:     time.Now,
		gaugeStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "songforge_quality_gate_status",
				Help: "Gate status: 1 pass, 0 fail, -1 unknown",
			},
			[]string{"gate"},
		),
		gaugeValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "songforge_quality_gate_value",
				Help: "Current windowed value per gate",
			},
			[]string{"gate"},
		),
		gaugeOverall: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "songforge_quality_gate_overall",
				Help: "Overall gate status: 1 pass, 0 fail, -1 unknown",
			},
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RecordRubric records one rubric verdict tagged by genre.
func (m *Monitor) RecordRubric(genre string, pass bool) {
	m.rubric.add(rubricSample{genre: genre, pass: pass})
}

// RecordReproducibility records one replay test rate in [0,1].
func (m *Monitor) RecordReproducibility(rate float64) {
	m.repro.add(rate)
}

// RecordPolicy records one enforcement snapshot. High severity is the
// strong plus extreme count.
func (m *Monitor) RecordPolicy(counts map[policy.Severity]int) {
	total := 0
	for _, n := range counts {
		total += n
	}
	m.policy.add(policySample{
		high:  counts[policy.SeverityStrong] + counts[policy.SeverityExtreme],
		total: total,
	})
}

// RecordLatency records one workflow phase duration in milliseconds.
func (m *Monitor) RecordLatency(phase string, ms float64) {
	m.latency.add(latencySample{phase: phase, ms: ms})
}

// Evaluate computes all four gates and the overall status, and pushes
// the result into the prometheus gauges.
func (m *Monitor) Evaluate() Report {
	now := m.now()
	gates := map[string]GateReport{
		GateRubricPassRate:  m.evalRubric(now),
		GateReproducibility: m.evalRepro(now),
		GatePolicy:          m.evalPolicy(now),
		GateLatencyP95:      m.evalLatency(now),
	}

	overall := StatusPass
	for _, g := range gates {
		switch {
		case g.Status == StatusFail:
			overall = StatusFail
		case g.Status == StatusUnknown && overall == StatusPass:
			overall = StatusUnknown
		}
	}

	for name, g := range gates {
		m.gaugeStatus.WithLabelValues(name).Set(statusValue(g.Status))
		m.gaugeValue.WithLabelValues(name).Set(g.Value)
	}
	m.gaugeOverall.Set(statusValue(overall))

	if overall == StatusFail {
		m.log.Warn("", "", "", "quality gate failing", map[string]interface{}{
			"gates": failingGates(gates),
		})
	}
	return Report{Overall: overall, Gates: gates, Timestamp: now}
}

func (m *Monitor) evalRubric(now time.Time) GateReport {
	samples := m.rubric.snapshot()
	g := GateReport{Gate: GateRubricPassRate, Target: targetPassRate, Timestamp: now}
	if len(samples) < minSamples {
		g.Status = StatusUnknown
		g.Message = fmt.Sprintf("%d of %d samples needed", len(samples), minSamples)
		return g
	}

	passed := 0
	for _, s := range samples {
		if s.pass {
			passed++
		}
	}
	g.Value = float64(passed) / float64(len(samples))
	g.Status = statusFor(g.Value >= g.Target)
	g.Message = fmt.Sprintf("%.3f pass rate over %d reports", g.Value, len(samples))
	return g
}

func (m *Monitor) evalRepro(now time.Time) GateReport {
	samples := m.repro.snapshot()
	g := GateReport{Gate: GateReproducibility, Target: targetReproRate, Timestamp: now}
	if len(samples) < minSamples {
		g.Status = StatusUnknown
		g.Message = fmt.Sprintf("%d of %d samples needed", len(samples), minSamples)
		return g
	}

	var sum float64
	for _, r := range samples {
		sum += r
	}
	g.Value = sum / float64(len(samples))
	g.Status = statusFor(g.Value >= g.Target)
	g.Message = fmt.Sprintf("%.3f mean reproducibility over %d replays", g.Value, len(samples))
	return g
}

func (m *Monitor) evalPolicy(now time.Time) GateReport {
	samples := m.policy.snapshot()
	g := GateReport{Gate: GatePolicy, Target: targetHighSev, Timestamp: now}
	if len(samples) < minSamples {
		g.Status = StatusUnknown
		g.Message = fmt.Sprintf("%d of %d samples needed", len(samples), minSamples)
		return g
	}

	high := 0
	for _, s := range samples {
		high += s.high
	}
	g.Value = float64(high)
	g.Status = statusFor(high == 0)
	g.Message = fmt.Sprintf("%d high-severity violations over %d snapshots", high, len(samples))
	return g
}

func (m *Monitor) evalLatency(now time.Time) GateReport {
	samples := m.latency.snapshot()
	g := GateReport{Gate: GateLatencyP95, Target: targetLatencyMS, Timestamp: now}
	if len(samples) < minSamples {
		g.Status = StatusUnknown
		g.Message = fmt.Sprintf("%d of %d samples needed", len(samples), minSamples)
		return g
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.ms
	}
	g.Value = percentile(values, latencyPercentile)
	g.Status = statusFor(g.Value <= g.Target)
	g.Message = fmt.Sprintf("p95 %.0f ms over %d phases", g.Value, len(samples))
	return g
}

// percentile computes the nearest-rank percentile of values.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func statusFor(ok bool) Status {
	if ok {
		return StatusPass
	}
	return StatusFail
}

func statusValue(s Status) float64 {
	switch s {
	case StatusPass:
		return 1
	case StatusFail:
		return 0
	default:
		return -1
	}
}

func failingGates(gates map[string]GateReport) []string {
	var out []string
	for name, g := range gates {
		if g.Status == StatusFail {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
