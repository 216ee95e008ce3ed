package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"paperbase/models"
)

// fakeTracker zeichnet Statusübergänge pro Task auf.
type fakeTracker struct {
	mu       sync.Mutex
	statuses map[string][]models.TaskStatus
	attempts map[string]int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		statuses: make(map[string][]models.TaskStatus),
		attempts: make(map[string]int),
	}
}

func (f *fakeTracker) record(id string, status models.TaskStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = append(f.statuses[id], status)
}

func (f *fakeTracker) TaskPending(_ context.Context, task Task) error {
	f.record(task.ID, models.TaskPending)
	return nil
}

func (f *fakeTracker) TaskRunning(_ context.Context, task Task) error {
	f.record(task.ID, models.TaskRunning)
	return nil
}

func (f *fakeTracker) TaskCompleted(_ context.Context, task Task, _ datatypes.JSON) error {
	f.record(task.ID, models.TaskCompleted)
	return nil
}

func (f *fakeTracker) TaskFailed(_ context.Context, task Task, attempts int, _ error) error {
	f.mu.Lock()
	f.attempts[task.ID] = attempts
	f.mu.Unlock()
	f.record(task.ID, models.TaskFailed)
	return nil
}

func (f *fakeTracker) TaskDead(_ context.Context, task Task, attempts int, _ error) error {
	f.mu.Lock()
	f.attempts[task.ID] = attempts
	f.mu.Unlock()
	f.record(task.ID, models.TaskDead)
	return nil
}

func (f *fakeTracker) history(id string) []models.TaskStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.TaskStatus, len(f.statuses[id]))
	copy(out, f.statuses[id])
	return out
}

func immediateRetryPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     func(int) time.Duration { return 0 },
	}
}

func TestWorkerPoolRunsTask(t *testing.T) {
	tracker := newFakeTracker()
	pool := NewWorkerPool(2, 8, immediateRetryPolicy(3), tracker, zap.NewNop())

	done := make(chan struct{})
	id, err := pool.Enqueue(context.Background(), Task{
		Type: "paper_processing",
		Run: func(context.Context) error {
			close(done)
			return nil
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed")
	}
	pool.Stop()

	history := tracker.history(id)
	assert.Equal(t, []models.TaskStatus{models.TaskPending, models.TaskRunning, models.TaskCompleted}, history)
}

func TestWorkerPoolRetriesThenSucceeds(t *testing.T) {
	tracker := newFakeTracker()
	pool := NewWorkerPool(1, 8, immediateRetryPolicy(3), tracker, zap.NewNop())

	var mu sync.Mutex
	calls := 0
	id, err := pool.Enqueue(context.Background(), Task{
		Type: "paper_processing",
		Run: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		},
	})
	require.NoError(t, err)
	pool.Stop()

	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()

	history := tracker.history(id)
	require.NotEmpty(t, history)
	assert.Equal(t, models.TaskCompleted, history[len(history)-1])
}

func TestWorkerPoolDeadLetterAfterMaxAttempts(t *testing.T) {
	tracker := newFakeTracker()
	pool := NewWorkerPool(1, 8, immediateRetryPolicy(3), tracker, zap.NewNop())

	var mu sync.Mutex
	calls := 0
	id, err := pool.Enqueue(context.Background(), Task{
		Type: "paper_processing",
		Run: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return errors.New("permanent")
		},
	})
	require.NoError(t, err)
	pool.Stop()

	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()

	history := tracker.history(id)
	require.NotEmpty(t, history)
	assert.Equal(t, models.TaskDead, history[len(history)-1])

	tracker.mu.Lock()
	assert.Equal(t, 3, tracker.attempts[id])
	tracker.mu.Unlock()
}

func TestWorkerPoolQueueFull(t *testing.T) {
	tracker := newFakeTracker()
	// Ein Worker, der blockiert, plus Queue-Größe 1
	pool := NewWorkerPool(1, 1, immediateRetryPolicy(1), tracker, zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	blocking := func(context.Context) error {
		close(started)
		<-release
		return nil
	}
	_, err := pool.Enqueue(context.Background(), Task{Type: "a", Run: blocking})
	require.NoError(t, err)
	<-started

	_, err = pool.Enqueue(context.Background(), Task{Type: "b", Run: func(context.Context) error { return nil }})
	require.NoError(t, err)

	_, err = pool.Enqueue(context.Background(), Task{Type: "c", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)

	close(release)
	pool.Stop()
}

// gateTracker blockiert in TaskPending, bis release geschlossen wird.
type gateTracker struct {
	*fakeTracker
	entered chan struct{}
	release chan struct{}
}

func (g *gateTracker) TaskPending(ctx context.Context, task Task) error {
	close(g.entered)
	<-g.release
	return g.fakeTracker.TaskPending(ctx, task)
}

func TestWorkerPoolEnqueueDuringStop(t *testing.T) {
	tracker := &gateTracker{
		fakeTracker: newFakeTracker(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	pool := NewWorkerPool(1, 4, immediateRetryPolicy(1), tracker, zap.NewNop())

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("enqueue panic: %v", r)
			}
		}()
		_, err := pool.Enqueue(context.Background(), Task{
			Type: "late",
			Run:  func(context.Context) error { return nil },
		})
		errCh <- err
	}()

	// Stop läuft durch, während Enqueue noch im Tracker hängt
	<-tracker.entered
	pool.Stop()
	close(tracker.release)

	err := <-errCh
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "panic")

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	require.Len(t, tracker.statuses, 1)
	for _, history := range tracker.statuses {
		assert.Equal(t, models.TaskDead, history[len(history)-1])
	}
}

func TestWorkerPoolStopCutsBackoffShort(t *testing.T) {
	tracker := newFakeTracker()
	policy := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return time.Hour },
	}
	pool := NewWorkerPool(1, 4, policy, tracker, zap.NewNop())

	attempted := make(chan struct{})
	var once sync.Once
	id, err := pool.Enqueue(context.Background(), Task{
		Type: "flaky",
		Run: func(context.Context) error {
			once.Do(func() { close(attempted) })
			return errors.New("transient")
		},
	})
	require.NoError(t, err)
	<-attempted

	start := time.Now()
	pool.Stop()
	assert.Less(t, time.Since(start), 5*time.Second)

	history := tracker.history(id)
	require.NotEmpty(t, history)
	assert.Equal(t, models.TaskDead, history[len(history)-1])
}

func TestWorkerPoolEnqueueAfterStop(t *testing.T) {
	pool := NewWorkerPool(1, 4, immediateRetryPolicy(1), newFakeTracker(), zap.NewNop())
	pool.Stop()

	_, err := pool.Enqueue(context.Background(), Task{Type: "late", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestDefaultRetryPolicyBackoff(t *testing.T) {
	policy := DefaultRetryPolicy(3)
	assert.Equal(t, time.Minute, policy.Backoff(1))
	assert.Equal(t, 2*time.Minute, policy.Backoff(2))
	assert.Equal(t, 4*time.Minute, policy.Backoff(3))
}
