package service

import (
	"context"
	"log"
	"time"

	"smart-reminder/internal/model"
)

const reminderTitle = "Task Reminder"

// Coordinator keeps a record's stored notification handle in step with its
// reminder: at most one live reminder per Task record, firing at
// deadline - reminder offset.
type Coordinator struct {
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	enabled  bool
}

func NewCoordinator(notifier Notifier, loc *time.Location, enabled bool) *Coordinator {
	if loc == nil {
		loc = time.Local
	}
	return &Coordinator{notifier: notifier, loc: loc, now: time.Now, enabled: enabled}
}

// WithClock replaces the wall clock, mainly for tests.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// OnCreate schedules the reminder for rec and returns its handle. Schedule
// kinds, triggers already in the past and a disabled switch yield nil.
// Notifier failures are logged and also yield nil; only a malformed record
// is an error.
func (c *Coordinator) OnCreate(ctx context.Context, rec model.Task) (*string, error) {
	if rec.Kind != model.KindTask || rec.IsDone() {
		return nil, nil
	}
	trigger, err := rec.ReminderAt(c.loc)
	if err != nil {
		return nil, err
	}
	if !c.enabled || !trigger.After(c.now()) {
		return nil, nil
	}

	handle, err := c.notifier.Schedule(ctx, Notification{
		UserID: rec.UserID,
		Title:  reminderTitle,
		Body:   "It's time for: " + rec.Title,
		At:     trigger,
	})
	if err != nil {
		log.Printf("[warn] schedule reminder task=%d: %v", rec.ID, err)
		return nil, nil
	}
	return &handle, nil
}

// OnUpdate cancels the old reminder before scheduling one for next.
func (c *Coordinator) OnUpdate(ctx context.Context, prev, next model.Task) (*string, error) {
	c.cancel(ctx, prev)
	return c.OnCreate(ctx, next)
}

func (c *Coordinator) OnDelete(ctx context.Context, rec model.Task) {
	c.cancel(ctx, rec)
}

func (c *Coordinator) cancel(ctx context.Context, rec model.Task) {
	if rec.NotificationHandle == nil {
		return
	}
	if err := c.notifier.Cancel(ctx, *rec.NotificationHandle); err != nil {
		log.Printf("[warn] cancel reminder task=%d handle=%s: %v", rec.ID, *rec.NotificationHandle, err)
	}
}
