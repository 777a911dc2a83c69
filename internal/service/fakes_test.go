package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"smart-reminder/internal/model"
	"smart-reminder/internal/repository"
)

var errDiskFull = errors.New("disk full")

type memoryStore struct {
	mu      sync.Mutex
	nextID  uint
	tasks   map[uint]model.Task
	failOn  map[string]bool
	updates int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tasks: make(map[uint]model.Task), failOn: make(map[string]bool)}
}

func (m *memoryStore) fail(op string) error {
	if m.failOn[op] {
		return &repository.StorageError{Op: op, Err: errDiskFull}
	}
	return nil
}

func (m *memoryStore) Insert(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("insert"); err != nil {
		return err
	}
	m.nextID++
	task.ID = m.nextID
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryStore) Update(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update"); err != nil {
		return err
	}
	cur, ok := m.tasks[task.ID]
	if !ok || cur.UserID != task.UserID {
		return &repository.StorageError{Op: "update", Err: repository.ErrNotFound}
	}
	m.updates++
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryStore) Delete(_ context.Context, userID, taskID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete"); err != nil {
		return err
	}
	cur, ok := m.tasks[taskID]
	if !ok || cur.UserID != userID {
		return &repository.StorageError{Op: "delete", Err: repository.ErrNotFound}
	}
	delete(m.tasks, taskID)
	return nil
}

func (m *memoryStore) FindByID(_ context.Context, userID, taskID uint) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tasks[taskID]
	if !ok || cur.UserID != userID {
		return nil, &repository.StorageError{Op: "find", Err: repository.ErrNotFound}
	}
	return &cur, nil
}

func (m *memoryStore) Query(_ context.Context, p model.Predicate) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("query"); err != nil {
		return nil, err
	}
	var out []model.Task
	for _, t := range m.tasks {
		if p.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AnchorDate != out[j].AnchorDate {
			return out[i].AnchorDate < out[j].AnchorDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) get(id uint) model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

type recordingNotifier struct {
	mu        sync.Mutex
	seq       int
	live      map[string]Notification
	scheduled []Notification
	cancelled []string
	failNext  bool
	failAll   bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{live: make(map[string]Notification)}
}

func (r *recordingNotifier) Schedule(_ context.Context, n Notification) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll || r.failNext {
		r.failNext = false
		return "", fmt.Errorf("%w: permission denied", ErrNotification)
	}
	r.seq++
	handle := fmt.Sprintf("n-%d", r.seq)
	r.live[handle] = n
	r.scheduled = append(r.scheduled, n)
	return handle, nil
}

func (r *recordingNotifier) Cancel(_ context.Context, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, handle)
	delete(r.live, handle)
	return nil
}

func (r *recordingNotifier) liveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *recordingNotifier) liveFor(handle *string) (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if handle == nil {
		return Notification{}, false
	}
	n, ok := r.live[*handle]
	return n, ok
}

func fixedClock(s string) func() time.Time {
	t := at(s)
	return func() time.Time { return t }
}

func at(s string) time.Time {
	out, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return out
}

func intptr(v int) *int { return &v }

func strptr(s string) *string { return &s }
