package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"paperbase/models"
)

var (
	tasksCompletedCounter prometheus.Counter
	taskRetriesCounter    prometheus.Counter
	tasksDeadCounter      prometheus.Counter
)

func init() {
	tasksCompletedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paperbase_tasks_completed_total",
		Help: "Anzahl erfolgreich abgeschlossener Hintergrund-Tasks.",
	})
	taskRetriesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paperbase_task_retries_total",
		Help: "Anzahl der Wiederholungsversuche für Hintergrund-Tasks.",
	})
	tasksDeadCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paperbase_tasks_dead_total",
		Help: "Anzahl endgültig fehlgeschlagener Hintergrund-Tasks.",
	})
	prometheus.MustRegister(tasksCompletedCounter, taskRetriesCounter, tasksDeadCounter)
}

// Task ist eine Arbeitseinheit für den WorkerPool.
type Task struct {
	ID      string
	Type    string
	PaperID *uint
	UserID  *uint
	Run     func(ctx context.Context) error
}

// RetryPolicy steuert, wie oft und mit welchem Abstand ein fehlgeschlagener
// Task wiederholt wird. Nach MaxAttempts Versuchen landet er im
// Dead-Letter-Status und wird nicht erneut angefasst.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultRetryPolicy verdoppelt den Abstand pro Versuch, beginnend bei einer
// Minute.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt-1)) * time.Minute
		},
	}
}

// TaskTracker persistiert den Lebenszyklus eines Tasks.
type TaskTracker interface {
	TaskPending(ctx context.Context, task Task) error
	TaskRunning(ctx context.Context, task Task) error
	TaskCompleted(ctx context.Context, task Task, result datatypes.JSON) error
	TaskFailed(ctx context.Context, task Task, attempts int, taskErr error) error
	TaskDead(ctx context.Context, task Task, attempts int, taskErr error) error
}

// WorkerPool verarbeitet Tasks asynchron mit fester Worker-Anzahl.
type WorkerPool struct {
	Logger  *zap.Logger
	Policy  RetryPolicy
	Tracker TaskTracker

	queue    chan Task
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopping chan struct{}

	mu      sync.Mutex
	stopped bool
}

// NewWorkerPool erstellt einen neuen WorkerPool. Start muss separat
// aufgerufen werden.
func NewWorkerPool(workers, queueSize int, policy RetryPolicy, tracker TaskTracker, logger *zap.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool{
		Logger:   logger,
		Policy:   policy,
		Tracker:  tracker,
		queue:    make(chan Task, queueSize),
		ctx:      ctx,
		cancel:   cancel,
		stopping: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool
}

// Enqueue reiht einen Task ein und gibt seine Task-ID zurück. Bei voller
// Queue wird ein Fehler zurückgegeben statt zu blockieren.
func (p *WorkerPool) Enqueue(ctx context.Context, task Task) (string, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return "", fmt.Errorf("worker pool gestoppt")
	}
	p.mu.Unlock()

	if err := p.Tracker.TaskPending(ctx, task); err != nil {
		return "", fmt.Errorf("task konnte nicht angelegt werden: %w", err)
	}

	// Gesendet wird nur unter dem Lock; Stop schließt die Queue unter
	// demselben Lock.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		_ = p.Tracker.TaskDead(ctx, task, 0, fmt.Errorf("worker pool gestoppt"))
		return "", fmt.Errorf("worker pool gestoppt")
	}
	select {
	case p.queue <- task:
		return task.ID, nil
	default:
		_ = p.Tracker.TaskDead(ctx, task, 0, fmt.Errorf("queue voll"))
		return "", fmt.Errorf("task-queue voll")
	}
}

// Stop nimmt keine neuen Tasks mehr an und wartet, bis die Queue leer ist.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopping)
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.process(task)
	}
}

func (p *WorkerPool) process(task Task) {
	log := p.Logger.With(zap.String("task_id", task.ID), zap.String("task_type", task.Type))
	log.Info("Starte Task-Verarbeitung")

	if err := p.Tracker.TaskRunning(p.ctx, task); err != nil {
		log.Error("Task-Status konnte nicht aktualisiert werden", zap.Error(err))
	}

	for attempt := 1; ; attempt++ {
		err := task.Run(p.ctx)
		if err == nil {
			tasksCompletedCounter.Inc()
			if trackErr := p.Tracker.TaskCompleted(p.ctx, task, datatypes.JSON([]byte(`{"status":"completed"}`))); trackErr != nil {
				log.Error("Task-Abschluss konnte nicht gespeichert werden", zap.Error(trackErr))
			}
			log.Info("Task abgeschlossen", zap.Int("attempts", attempt))
			return
		}

		if attempt >= p.Policy.MaxAttempts {
			tasksDeadCounter.Inc()
			if trackErr := p.Tracker.TaskDead(p.ctx, task, attempt, err); trackErr != nil {
				log.Error("Dead-Letter-Status konnte nicht gespeichert werden", zap.Error(trackErr))
			}
			log.Error("Task endgültig fehlgeschlagen", zap.Int("attempts", attempt), zap.Error(err))
			return
		}

		taskRetriesCounter.Inc()
		if trackErr := p.Tracker.TaskFailed(p.ctx, task, attempt, err); trackErr != nil {
			log.Error("Fehlversuch konnte nicht gespeichert werden", zap.Error(trackErr))
		}

		delay := p.Policy.Backoff(attempt)
		log.Warn("Task fehlgeschlagen, nächster Versuch geplant",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		if delay <= 0 {
			continue
		}

		select {
		case <-p.stopping:
			tasksDeadCounter.Inc()
			_ = p.Tracker.TaskDead(context.Background(), task, attempt, err)
			log.Warn("Pool wird gestoppt, Task nicht erneut versucht", zap.Int("attempts", attempt))
			return
		case <-p.ctx.Done():
			tasksDeadCounter.Inc()
			_ = p.Tracker.TaskDead(context.Background(), task, attempt, p.ctx.Err())
			return
		case <-time.After(delay):
		}
	}
}

// TaskPending legt den Task-Datensatz im Status pending an.
func (s *Store) TaskPending(ctx context.Context, task Task) error {
	record := models.ProcessingTask{
		TaskID:   task.ID,
		TaskType: task.Type,
		PaperID:  task.PaperID,
		UserID:   task.UserID,
		Status:   models.TaskPending,
	}
	return s.DB.WithContext(ctx).Create(&record).Error
}

// TaskRunning markiert den Task als laufend und setzt started_at.
func (s *Store) TaskRunning(ctx context.Context, task Task) error {
	now := time.Now()
	return s.DB.WithContext(ctx).Model(&models.ProcessingTask{}).
		Where("task_id = ?", task.ID).
		Updates(map[string]any{"status": models.TaskRunning, "started_at": &now}).Error
}

// TaskCompleted markiert den Task als abgeschlossen.
func (s *Store) TaskCompleted(ctx context.Context, task Task, result datatypes.JSON) error {
	now := time.Now()
	return s.DB.WithContext(ctx).Model(&models.ProcessingTask{}).
		Where("task_id = ?", task.ID).
		Updates(map[string]any{
			"status":       models.TaskCompleted,
			"result":       result,
			"completed_at": &now,
		}).Error
}

// TaskFailed protokolliert einen Fehlversuch vor dem nächsten Retry.
func (s *Store) TaskFailed(ctx context.Context, task Task, attempts int, taskErr error) error {
	return s.DB.WithContext(ctx).Model(&models.ProcessingTask{}).
		Where("task_id = ?", task.ID).
		Updates(map[string]any{
			"status":        models.TaskFailed,
			"attempts":      attempts,
			"error_message": taskErr.Error(),
		}).Error
}

// TaskDead verschiebt den Task in den Dead-Letter-Status.
func (s *Store) TaskDead(ctx context.Context, task Task, attempts int, taskErr error) error {
	now := time.Now()
	return s.DB.WithContext(ctx).Model(&models.ProcessingTask{}).
		Where("task_id = ?", task.ID).
		Updates(map[string]any{
			"status":        models.TaskDead,
			"attempts":      attempts,
			"error_message": taskErr.Error(),
			"completed_at":  &now,
		}).Error
}
