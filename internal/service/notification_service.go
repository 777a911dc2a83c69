package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var ErrNotification = errors.New("notification: scheduling failed")

// Notification is a single reminder addressed to a user.
type Notification struct {
	UserID uint
	Title  string
	Body   string
	At     time.Time
}

// Notifier schedules and cancels reminders by opaque handle.
type Notifier interface {
	Schedule(ctx context.Context, n Notification) (string, error)
	Cancel(ctx context.Context, handle string) error
}

// Deliverer pushes a fired reminder to the user.
type Deliverer interface {
	Deliver(ctx context.Context, userID uint, title, body string) error
}

// NotificationService is a Notifier backed by one-shot cron entries.
type NotificationService struct {
	scheduler *SchedulerService
	now       func() time.Time

	mu        sync.Mutex
	deliverer Deliverer
	entries   map[string]cron.EntryID
}

func NewNotificationService(scheduler *SchedulerService) *NotificationService {
	return &NotificationService{
		scheduler: scheduler,
		now:       time.Now,
		entries:   make(map[string]cron.EntryID),
	}
}

// SetDeliverer wires the transport that fired reminders are sent through.
func (s *NotificationService) SetDeliverer(d Deliverer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliverer = d
}

func (s *NotificationService) Schedule(_ context.Context, n Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deliverer == nil {
		return "", fmt.Errorf("%w: no delivery channel", ErrNotification)
	}
	if !n.At.After(s.now()) {
		return "", fmt.Errorf("%w: trigger %s is not in the future", ErrNotification, n.At.Format(time.RFC3339))
	}

	handle := uuid.NewString()
	s.entries[handle] = s.scheduler.ScheduleAt(n.At, func() {
		s.fire(handle, n)
	})
	return handle, nil
}

// Cancel removes a pending reminder. Unknown or already fired handles are
// not an error.
func (s *NotificationService) Cancel(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[handle]
	if !ok {
		return nil
	}
	delete(s.entries, handle)
	s.scheduler.Remove(id)
	return nil
}

// Live reports how many reminders are waiting to fire.
func (s *NotificationService) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *NotificationService) fire(handle string, n Notification) {
	s.mu.Lock()
	id, ok := s.entries[handle]
	delete(s.entries, handle)
	d := s.deliverer
	s.mu.Unlock()
	if !ok {
		return
	}
	s.scheduler.Remove(id)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Deliver(ctx, n.UserID, n.Title, n.Body); err != nil {
		log.Printf("[error] deliver reminder user=%d: %v", n.UserID, err)
		return
	}
	log.Printf("[info] reminder delivered user=%d", n.UserID)
}
