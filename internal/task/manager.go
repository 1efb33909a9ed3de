package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned when no queue slot is free
	ErrQueueFull = errors.New("task queue is full")
	// ErrShutdown is returned once the manager has been shut down
	ErrShutdown = errors.New("task manager is shut down")
)

// StatusCallback is a function that is called when a task status changes
type StatusCallback func(task Task)

// Runner processes one task
type Runner func(ctx context.Context, task Task)

// Manager manages tasks
type Manager struct {
	tasks              map[string]*Task
	mu                 sync.RWMutex
	statusCallbacks    map[string][]StatusCallback
	callbackMu         sync.RWMutex
	maxConcurrentTasks int
	taskQueue          chan string
	ctx                context.Context
	cancel             context.CancelFunc
	wg                 sync.WaitGroup
	startOnce          sync.Once
	now                func() time.Time
}

// NewManager creates a new task manager. Workers are started by Start.
func NewManager(maxConcurrentTasks, queueSize int) *Manager {
	if maxConcurrentTasks < 1 {
		maxConcurrentTasks = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		tasks:              make(map[string]*Task),
		statusCallbacks:    make(map[string][]StatusCallback),
		maxConcurrentTasks: maxConcurrentTasks,
		taskQueue:          make(chan string, queueSize),
		ctx:                ctx,
		cancel:             cancel,
		now:                time.Now,
	}
}

// Start launches the worker pool. Calling it more than once has no effect.
func (m *Manager) Start(run Runner) {
	m.startOnce.Do(func() {
		for i := 0; i < m.maxConcurrentTasks; i++ {
			m.wg.Add(1)
			go m.worker(run)
		}
	})
}

// CreateTask creates a new pending task
func (m *Manager) CreateTask(query, variant, apiKey, repoName string) Task {
	now := time.Now()
	task := &Task{
		ID:        uuid.New().String(),
		Query:     query,
		Variant:   variant,
		APIKey:    apiKey,
		RepoName:  repoName,
		Status:    StatusPending,
		Message:   "Task created",
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.mu.Unlock()

	return task.snapshot()
}

// Enqueue schedules a task for a worker
func (m *Manager) Enqueue(id string) error {
	if m.ctx.Err() != nil {
		return ErrShutdown
	}
	if _, err := m.GetTask(id); err != nil {
		return err
	}
	select {
	case m.taskQueue <- id:
		return nil
	default:
		return ErrQueueFull
	}
}

// GetTask retrieves a copy of a task by ID
func (m *Manager) GetTask(id string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("task not found: %s", id)
	}

	return task.snapshot(), nil
}

// UpdateTask updates a task's status
func (m *Manager) UpdateTask(id string, status Status, message string) error {
	return m.mutate(id, func(t *Task) { t.UpdateStatus(status, message) })
}

// SetTaskError marks a task failed, keeping the raw model output if any
func (m *Manager) SetTaskError(id string, err error, raw string) error {
	return m.mutate(id, func(t *Task) { t.SetError(err, raw) })
}

// CompleteTask stores the result and marks the task completed
func (m *Manager) CompleteTask(id string, result Result, message string) error {
	return m.mutate(id, func(t *Task) {
		t.Result = &result
		t.UpdateStatus(StatusCompleted, message)
	})
}

// SetTaskRepoURL sets the repository URL for a task
func (m *Manager) SetTaskRepoURL(id string, repoURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task not found: %s", id)
	}

	task.RepoURL = repoURL
	task.UpdatedAt = time.Now()

	return nil
}

func (m *Manager) mutate(id string, fn func(t *Task)) error {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}

	fn(task)
	snap := task.snapshot()
	m.mu.Unlock()

	// Notify callbacks
	m.notifyCallbacks(snap)

	return nil
}

// SubscribeToTask subscribes to task status updates
func (m *Manager) SubscribeToTask(taskID string, callback StatusCallback) error {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()

	// Check if task exists
	m.mu.RLock()
	_, ok := m.tasks[taskID]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("task not found: %s", taskID)
	}

	m.statusCallbacks[taskID] = append(m.statusCallbacks[taskID], callback)
	return nil
}

// notifyCallbacks notifies all callbacks for a task in registration order
func (m *Manager) notifyCallbacks(task Task) {
	m.callbackMu.RLock()
	callbacks := append([]StatusCallback(nil), m.statusCallbacks[task.ID]...)
	m.callbackMu.RUnlock()

	for _, callback := range callbacks {
		callback(task)
	}

	// Clean up callbacks if task is terminal
	if task.IsTerminal() {
		m.callbackMu.Lock()
		delete(m.statusCallbacks, task.ID)
		m.callbackMu.Unlock()
	}
}

// Prune drops finished tasks not updated for longer than ttl and returns how
// many were removed. Pending and running tasks are kept.
func (m *Manager) Prune(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var removed []string
	for id, task := range m.tasks {
		if task.IsTerminal() && task.UpdatedAt.Before(cutoff) {
			delete(m.tasks, id)
			removed = append(removed, id)
		}
	}
	m.mu.Unlock()

	m.callbackMu.Lock()
	for _, id := range removed {
		delete(m.statusCallbacks, id)
	}
	m.callbackMu.Unlock()

	return len(removed)
}

// Len returns the number of tracked tasks
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

// worker processes tasks from the queue
func (m *Manager) worker(run Runner) {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case id := <-m.taskQueue:
			task, err := m.GetTask(id)
			if err != nil {
				continue
			}
			run(m.ctx, task)
		}
	}
}

// Shutdown stops the workers and waits for in-flight tasks to return
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}
