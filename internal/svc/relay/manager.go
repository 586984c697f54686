package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"weir/internal/config"
	"weir/internal/core/bus"
	"weir/internal/metrics"
)

// Manager owns every configured relay task: one goroutine per task, a
// shared shutdown, and snapshots for the API.
type Manager struct {
	registry *bus.Registry
	metrics  *metrics.Metrics
	log      *logrus.Entry

	mu     sync.Mutex
	tasks  []Task
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a manager with no tasks.
func NewManager(registry *bus.Registry, m *metrics.Metrics) *Manager {
	return &Manager{
		registry: registry,
		metrics:  m,
		log:      logrus.WithField("svc", "relay"),
	}
}

// StartTasks builds and launches one task per relay entry. A malformed
// entry fails the whole call before anything starts.
func (m *Manager) StartTasks(cfg *config.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return errors.New("relay tasks already started")
	}

	tasks := make([]Task, 0, len(cfg.Relays))
	for i, rc := range cfg.Relays {
		task, err := newTask(rc, m.registry, m.metrics, cfg.Bus.SubscriberBuffer)
		if err != nil {
			return fmt.Errorf("relay %d: %w", i, err)
		}
		tasks = append(tasks, task)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.tasks = tasks
	for _, task := range tasks {
		m.wg.Add(1)
		go m.runTask(ctx, task)
	}
	return nil
}

func newTask(rc config.RelayConfig, registry *bus.Registry, m *metrics.Metrics, buffer uint32) (Task, error) {
	switch rc.Mode {
	case "pull":
		return NewPullTask(rc, registry, m, buffer)
	case "push":
		return NewPushTask(rc, registry, m, buffer)
	default:
		return nil, fmt.Errorf("mode must be pull or push, got %q", rc.Mode)
	}
}

func (m *Manager) runTask(ctx context.Context, task Task) {
	defer m.wg.Done()

	info := task.Info()
	log := m.log.WithFields(logrus.Fields{
		"mode":   info.Mode,
		"stream": info.App + "/" + info.Name,
	})
	log.Info("relay task starting")
	if err := task.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Warn("relay task ended")
		return
	}
	log.Info("relay task stopped")
}

// Stop cancels every task and waits for them to wind down.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}

// Restart stops every task and starts fresh ones from cfg. The API's
// relay restart endpoint lands here.
func (m *Manager) Restart(cfg *config.Config) error {
	m.Stop()

	m.mu.Lock()
	m.tasks = nil
	m.mu.Unlock()

	return m.StartTasks(cfg)
}

// GetTasks snapshots every task for the API.
func (m *Manager) GetTasks() []TaskInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]TaskInfo, 0, len(m.tasks))
	for _, t := range m.tasks {
		infos = append(infos, t.Info())
	}
	return infos
}

// TaskCount returns the number of configured tasks.
func (m *Manager) TaskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
