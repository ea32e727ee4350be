package upload

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/upload/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/upload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

// Manager admits upload tasks from a FIFO queue while keeping at most
// Concurrency of them uploading at once.
//
// Tasks leave the queue when they are admitted or cancelled, and the manager
// forgets a task once it reaches a terminal status, so a long-running
// manager does not accumulate finished work.
//
// Thread Safety: all methods are safe for concurrent use.
type Manager struct {
	transport uploadtypes.Transport
	cfg       uploadtypes.ManagerConfig
	logger    *slog.Logger
	metrics   *metrics.Collector

	// ctx is the parent of every task's context; cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards the admission check-and-increment and everything below
	mu     sync.Mutex
	queue  []*Task
	live   []*Task
	index  map[string]*Task
	active int
	closed bool
}

// Stats is a point-in-time view of the manager's scheduling state.
type Stats struct {
	Queued int
	Active int
}

// New creates a manager that uploads through transport.
//
// Example:
//
//	m, err := upload.New(s3transport.New(presigner),
//	    upload.WithConcurrency(4),
//	    upload.WithLogger(slog.Default()),
//	)
func New(transport uploadtypes.Transport, opts ...uploadtypes.Option) (*Manager, error) {
	if transport == nil {
		return nil, errors.NewError("new", errors.ErrInvalidInput).
			WithMessage("transport cannot be nil")
	}

	cfg := uploadtypes.ManagerConfig{
		Concurrency: DefaultConcurrency,
		MaxRetries:  DefaultMaxRetries,
		BaseDelay:   DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	// A limit below one would stall every task forever.
	if cfg.Concurrency <= 0 {
		return nil, errors.NewError("new", errors.ErrInvalidConcurrency)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var collector *metrics.Collector
	if cfg.Registerer != nil {
		var err error
		collector, err = metrics.NewCollector(cfg.Namespace, cfg.Registerer)
		if err != nil {
			return nil, errors.NewError("new", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		transport: transport,
		cfg:       cfg,
		logger:    logger,
		metrics:   collector,
		ctx:       ctx,
		cancel:    cancel,
		index:     make(map[string]*Task),
	}, nil
}

// Add queues a new task for intent and returns it immediately.
// opts override the manager's default retry policy for this task only.
// Subscribing to the returned task right away never misses a transition
// other than the ones already reflected in its State.
func (m *Manager) Add(intent *uploadtypes.Intent, opts ...uploadtypes.TaskOption) (*Task, error) {
	if err := validation.ValidateIntent(intent); err != nil {
		return nil, err
	}

	taskOpts := make([]uploadtypes.TaskOption, 0, len(opts)+3)
	taskOpts = append(taskOpts,
		WithMaxRetries(m.cfg.MaxRetries),
		WithBaseDelay(m.cfg.BaseDelay),
		WithTaskLogger(m.logger),
	)
	taskOpts = append(taskOpts, opts...)
	task := NewTask(m.transport, intent, taskOpts...)

	// Registered before the task is visible to anyone else, so the terminal
	// snapshot cannot be missed.
	task.Subscribe(func(s uploadtypes.State) {
		if s.Status.IsTerminal() {
			m.forget(task)
		}
	})

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.NewError("add", errors.ErrManagerClosed)
	}
	m.queue = append(m.queue, task)
	m.live = append(m.live, task)
	m.index[task.ID()] = task
	m.mu.Unlock()

	m.logger.Debug("upload queued",
		slog.String("task_id", task.ID()),
		slog.String("file", intent.Name()),
	)

	m.process()
	return task, nil
}

// Task returns the live task with the given id.
func (m *Manager) Task(id string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.index[id]
	return t, ok
}

// Tasks returns the live (non-terminal) tasks in submission order.
func (m *Manager) Tasks() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.live)
}

// Stats returns the current queue length and number of occupied slots.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Queued: len(m.queue), Active: m.active}
}

// Close stops accepting work, cancels every live task and waits for running
// tasks to return.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	live := slices.Clone(m.live)
	m.mu.Unlock()

	m.cancel()
	for _, task := range live {
		task.Cancel()
	}
	m.wg.Wait()
	return nil
}

// process admits queued tasks while slots are free. It is safe to call
// redundantly; the active count is the only gate against over-admission.
func (m *Manager) process() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for !m.closed && m.active < m.cfg.Concurrency {
		task := m.popQueuedLocked()
		if task == nil {
			break
		}
		m.active++
		m.wg.Add(1)
		go m.run(task)
	}

	m.metrics.SetQueued(len(m.queue))
	m.metrics.SetActive(m.active)
}

// popQueuedLocked removes and returns the first task still queued.
func (m *Manager) popQueuedLocked() *Task {
	for len(m.queue) > 0 {
		task := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		if task.State().Status == uploadtypes.StatusQueued {
			return task
		}
	}
	return nil
}

// run drives one admitted task and frees its slot when Start returns,
// even if a cancelled transport is still draining in the background.
func (m *Manager) run(task *Task) {
	defer m.wg.Done()

	started := time.Now()
	err := task.Start(m.ctx)
	state := task.State()
	m.metrics.ObserveCompletion(string(state.Status), time.Since(started))

	if err != nil && !errors.IsCancelled(err) {
		m.logger.Debug("task finished with error",
			slog.String("task_id", task.ID()),
			slog.String("error", err.Error()),
		)
	}

	m.mu.Lock()
	m.active--
	m.mu.Unlock()

	m.process()
}

// forget drops a terminal task from the queue and the live index.
func (m *Manager) forget(task *Task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.index, task.ID())
	isTask := func(t *Task) bool { return t == task }
	m.live = slices.DeleteFunc(m.live, isTask)
	m.queue = slices.DeleteFunc(m.queue, isTask)
	m.metrics.SetQueued(len(m.queue))
}
