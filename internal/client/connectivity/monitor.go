// Package connectivity tracks whether the backend is reachable.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

//go:generate moq -out prober_mock.go . Prober

// Prober checks the backend once.
type Prober interface {
	Health(ctx context.Context) error
}

// Signal reports a connectivity transition.
type Signal struct {
	At     time.Time
	Online bool
}

// Monitor polls the backend and publishes transitions on Signals.
type Monitor struct {
	prober   Prober
	logger   *slog.Logger
	signals  chan Signal
	interval time.Duration
	timeout  time.Duration
	online   bool
	known    bool
	mu       sync.RWMutex
}

// NewMonitor creates monitor probing every interval, each probe bounded by timeout.
func NewMonitor(prober Prober, interval, timeout time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		prober:   prober,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		signals:  make(chan Signal, 1),
	}
}

// Signals returns the channel of transitions.
// Only the latest undelivered transition is kept.
func (m *Monitor) Signals() <-chan Signal {
	return m.signals
}

// Online reports the last known state. Unknown counts as offline.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a state reported by the host, e.g. an OS network event.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	changed := !m.known || m.online != online
	m.online, m.known = online, true
	m.mu.Unlock()

	if !changed {
		return
	}
	m.logger.Info("Connectivity changed", "online", online)
	m.publish(Signal{Online: online, At: time.Now()})
}

// Probe checks the backend once and records the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Health(pctx)
	if err != nil {
		m.logger.Debug("Health probe failed", "error", err)
	}
	m.SetOnline(err == nil)
	return err == nil
}

// Run probes until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// publish заменяет недоставленный сигнал новым, не блокируя вызывающего
func (m *Monitor) publish(sig Signal) {
	for {
		select {
		case m.signals <- sig:
			return
		default:
		}
		select {
		case <-m.signals:
		default:
		}
	}
}
