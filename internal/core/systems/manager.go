package systems

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zeusync/handgrab/internal/core/observability/log"
)

var (
	ErrDuplicateSystem = errors.New("system already registered")
	ErrInvalidTickRate = errors.New("tick rate must be positive")
)

type entry struct {
	system   System
	priority Priority
	order    int
	metrics  Metrics
}

// Manager runs registered systems in priority order at a fixed tick rate.
// Systems of equal priority run in registration order.
type Manager struct {
	mx      sync.Mutex
	entries []*entry
	step    time.Duration
	clock   func() time.Time
	logger  log.Log
	frames  uint64
}

type Option func(*Manager)

// WithClock replaces time.Now as the frame timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

func NewManager(tickRate int, logger log.Log, opts ...Option) (*Manager, error) {
	if tickRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTickRate, tickRate)
	}
	if logger == nil {
		logger = log.Provide()
	}
	m := &Manager{
		step:   time.Second / time.Duration(tickRate),
		clock:  time.Now,
		logger: logger.With(log.String("component", "systems")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Step is the fixed frame duration.
func (m *Manager) Step() time.Duration { return m.step }

func (m *Manager) Register(s System, p Priority) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	for _, e := range m.entries {
		if e.system.Name() == s.Name() {
			return fmt.Errorf("%s: %w", s.Name(), ErrDuplicateSystem)
		}
	}
	m.entries = append(m.entries, &entry{system: s, priority: p, order: len(m.entries)})
	sort.SliceStable(m.entries, func(i, j int) bool {
		if m.entries[i].priority != m.entries[j].priority {
			return m.entries[i].priority > m.entries[j].priority
		}
		return m.entries[i].order < m.entries[j].order
	})
	m.logger.Debug("system registered", log.String("system", s.Name()), log.Int("priority", int(p)))
	return nil
}

// ExecutionOrder lists system names in the order Tick runs them.
func (m *Manager) ExecutionOrder() []string {
	m.mx.Lock()
	defer m.mx.Unlock()
	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.system.Name()
	}
	return names
}

func (m *Manager) Metrics(name string) (Metrics, bool) {
	m.mx.Lock()
	defer m.mx.Unlock()
	for _, e := range m.entries {
		if e.system.Name() == name {
			return e.metrics, true
		}
	}
	return Metrics{}, false
}

// Frames is the number of completed ticks.
func (m *Manager) Frames() uint64 {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.frames
}

// Tick runs every system once. A failing system is logged and counted; the
// remaining systems still run.
func (m *Manager) Tick(now time.Time) {
	m.mx.Lock()
	defer m.mx.Unlock()
	for _, e := range m.entries {
		start := time.Now()
		err := e.system.FixedUpdate(now, m.step)
		e.metrics.record(now, time.Since(start), err)
		if err != nil {
			m.logger.Warn("system update failed", log.String("system", e.system.Name()), log.Error(err))
		}
	}
	m.frames++
}

// Run ticks until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.step)
	defer ticker.Stop()

	m.logger.Info("frame loop started", log.Duration("step", m.step))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("frame loop stopped", log.Uint64("frames", m.Frames()))
			return nil
		case <-ticker.C:
			m.Tick(m.clock())
		}
	}
}

// Shutdown stops systems in reverse execution order and joins their errors.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mx.Lock()
	entries := append([]*entry(nil), m.entries...)
	m.mx.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		s := entries[i].system
		if err := s.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
