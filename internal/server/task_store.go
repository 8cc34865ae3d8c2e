package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"telegram-chat-stats/internal/domain"
)

// DefaultTaskTTL — сколько хранится запись о задаче.
const DefaultTaskTTL = 24 * time.Hour

// TaskStatus представляет статус задачи обработки
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

var (
	ErrTaskNotFound = errors.New("задача не найдена")
	// ErrTaskFinished - попытка изменить уже завершенную задачу.
	ErrTaskFinished = errors.New("задача уже завершена")
)

// Task — обработка одного набора файлов экспорта.
type Task struct {
	ID string
	// Hash — общий хеш набора файлов, тот же ключ, что у кеша отчетов.
	Hash         string
	Files        []string
	Status       TaskStatus
	Result       *domain.Report
	ErrorMessage string
	CreatedAt    time.Time
	FinishedAt   time.Time
	ExpiresAt    time.Time
}

func (t *Task) finished() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// TaskStore хранит задачи и не дает запустить второй раз обработку того же набора файлов.
type TaskStore struct {
	mutex  sync.RWMutex
	tasks  map[string]*Task
	byHash map[string]string
	ttl    time.Duration
	now    func() time.Time
}

// NewTaskStore создает хранилище; ttl <= 0 заменяется на DefaultTaskTTL.
func NewTaskStore(ttl time.Duration) *TaskStore {
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}
	return &TaskStore{
		tasks:  make(map[string]*Task),
		byHash: make(map[string]string),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Submit регистрирует набор файлов с общим хешем hash.
// Если тот же набор уже ждет обработки, обрабатывается или готов, возвращается
// существующая задача и created == false. Упавшие задачи не переиспользуются.
func (ts *TaskStore) Submit(hash string, files []string) (task *Task, created bool) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	if id, ok := ts.byHash[hash]; ok {
		if existing, ok := ts.tasks[id]; ok {
			return existing.snapshot(), false
		}
	}

	now := ts.now()
	t := &Task{
		ID:        uuid.NewString(),
		Hash:      hash,
		Files:     append([]string(nil), files...),
		Status:    TaskStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ts.ttl),
	}
	ts.tasks[t.ID] = t
	ts.byHash[hash] = t.ID
	return t.snapshot(), true
}

// Start переводит задачу из pending в processing.
func (ts *TaskStore) Start(id string) error {
	return ts.update(id, func(t *Task) {
		t.Status = TaskStatusProcessing
	})
}

// Complete сохраняет отчет и завершает задачу.
func (ts *TaskStore) Complete(id string, report *domain.Report) error {
	return ts.update(id, func(t *Task) {
		t.Status = TaskStatusCompleted
		t.Result = report
		t.FinishedAt = ts.now()
	})
}

// Fail завершает задачу с ошибкой и освобождает хеш: повторная отправка
// тех же файлов запустит новую обработку.
func (ts *TaskStore) Fail(id string, cause error) error {
	return ts.update(id, func(t *Task) {
		t.Status = TaskStatusFailed
		t.ErrorMessage = cause.Error()
		t.FinishedAt = ts.now()
		if ts.byHash[t.Hash] == t.ID {
			delete(ts.byHash, t.Hash)
		}
	})
}

func (ts *TaskStore) update(id string, apply func(*Task)) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	t, ok := ts.tasks[id]
	if !ok {
		return fmt.Errorf("задача %s: %w", id, ErrTaskNotFound)
	}
	if t.finished() {
		return fmt.Errorf("задача %s (%s): %w", id, t.Status, ErrTaskFinished)
	}
	apply(t)
	return nil
}

// Get возвращает копию задачи. Копия не меняется при последующих обновлениях
// из горутины обработки.
func (ts *TaskStore) Get(id string) (*Task, error) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	t, ok := ts.tasks[id]
	if !ok {
		return nil, fmt.Errorf("задача %s: %w", id, ErrTaskNotFound)
	}
	return t.snapshot(), nil
}

// Lookup ищет живую задачу по хешу набора файлов.
func (ts *TaskStore) Lookup(hash string) (*Task, bool) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	t, ok := ts.tasks[ts.byHash[hash]]
	if !ok {
		return nil, false
	}
	return t.snapshot(), true
}

// Len возвращает число задач, включая просроченные, но еще не удаленные.
func (ts *TaskStore) Len() int {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()
	return len(ts.tasks)
}

// CleanupExpired удаляет просроченные задачи вместе с их хешами.
func (ts *TaskStore) CleanupExpired() {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := ts.now()
	for id, t := range ts.tasks {
		if !now.After(t.ExpiresAt) {
			continue
		}
		delete(ts.tasks, id)
		if ts.byHash[t.Hash] == id {
			delete(ts.byHash, t.Hash)
		}
	}
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных задач
func (ts *TaskStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ts.CleanupExpired()
			}
		}
	}()
}

func (t *Task) snapshot() *Task {
	cp := *t
	cp.Files = append([]string(nil), t.Files...)
	return &cp
}
