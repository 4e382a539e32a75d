package systems

import (
	"context"
	"time"
)

// System is a frame processor driven by the Manager at a fixed rate.
type System interface {
	Name() string
	// FixedUpdate advances the system to now; dt is the fixed step.
	FixedUpdate(now time.Time, dt time.Duration) error
	Shutdown(ctx context.Context) error
}

// Priority defines execution order; higher runs first.
type Priority uint16

const (
	PriorityLow    Priority = 500
	PriorityNormal Priority = 600
	PriorityHigh   Priority = 1000
)

// Metrics provides runtime metrics for a system.
type Metrics struct {
	ExecutionCount       uint64        `json:"executionCount"`
	TotalExecutionTime   time.Duration `json:"totalExecutionTime"`
	AverageExecutionTime time.Duration `json:"averageExecutionTime"`
	MaxExecutionTime     time.Duration `json:"maxExecutionTime"`
	ErrorCount           uint64        `json:"errorCount"`
	LastError            string        `json:"lastError,omitempty"`
	LastExecutionTime    time.Time     `json:"lastExecutionTime"`
}

func (m *Metrics) record(at time.Time, took time.Duration, err error) {
	m.ExecutionCount++
	m.TotalExecutionTime += took
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	if took > m.MaxExecutionTime {
		m.MaxExecutionTime = took
	}
	m.LastExecutionTime = at
	if err != nil {
		m.ErrorCount++
		m.LastError = err.Error()
	}
}

// Func adapts a plain step function into a System with a no-op shutdown.
type Func struct {
	Label string
	Step  func(now time.Time, dt time.Duration) error
}

func (f Func) Name() string { return f.Label }

func (f Func) FixedUpdate(now time.Time, dt time.Duration) error { return f.Step(now, dt) }

func (Func) Shutdown(context.Context) error { return nil }
