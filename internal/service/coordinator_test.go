package service

import (
	"context"
	"testing"
	"time"

	"smart-reminder/internal/model"
)

func scenarioTask() model.Task {
	return model.Task{
		ID:                    7,
		UserID:                1,
		Kind:                  model.KindTask,
		Title:                 "Submit report",
		AnchorDate:            "2024-03-10",
		Time:                  "2:30 PM",
		Status:                model.StatusPending,
		RepeatFrequency:       model.RepeatNone,
		ReminderOffsetMinutes: 5,
	}
}

func TestOnCreateSchedulesAtDeadlineMinusOffset(t *testing.T) {
	n := newRecordingNotifier()
	c := NewCoordinator(n, time.UTC, true).WithClock(fixedClock("2024-03-10 09:00"))

	handle, err := c.OnCreate(context.Background(), scenarioTask())
	if err != nil {
		t.Fatalf("on create: %v", err)
	}
	got, ok := n.liveFor(handle)
	if !ok {
		t.Fatalf("expected a live notification, handle=%v", handle)
	}
	if !got.At.Equal(at("2024-03-10 14:25")) {
		t.Fatalf("trigger = %s, want 2024-03-10 14:25", got.At)
	}
	if got.Title != "Task Reminder" || got.Body != "It's time for: Submit report" || got.UserID != 1 {
		t.Fatalf("unexpected notification content: %+v", got)
	}
}

func TestOnCreateReturnsNil(t *testing.T) {
	meeting := scenarioTask()
	meeting.Kind = model.KindMeeting
	meeting.Time = "10:00 AM"

	done := scenarioTask()
	done.Status = model.StatusDone

	cases := []struct {
		name    string
		rec     model.Task
		now     string
		enabled bool
	}{
		{"schedule kind", meeting, "2024-03-10 09:00", true},
		{"trigger in the past", scenarioTask(), "2024-03-10 14:26", true},
		{"trigger exactly now", scenarioTask(), "2024-03-10 14:25", true},
		{"reminders disabled", scenarioTask(), "2024-03-10 09:00", false},
		{"already done", done, "2024-03-10 09:00", true},
	}
	for _, tc := range cases {
		n := newRecordingNotifier()
		c := NewCoordinator(n, time.UTC, tc.enabled).WithClock(fixedClock(tc.now))
		handle, err := c.OnCreate(context.Background(), tc.rec)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if handle != nil || len(n.scheduled) != 0 {
			t.Fatalf("%s: expected no notification, got handle %v (%d scheduled)", tc.name, handle, len(n.scheduled))
		}
	}
}

func TestOnCreateSwallowsNotifierFailure(t *testing.T) {
	n := newRecordingNotifier()
	n.failAll = true
	c := NewCoordinator(n, time.UTC, true).WithClock(fixedClock("2024-03-10 09:00"))
	handle, err := c.OnCreate(context.Background(), scenarioTask())
	if err != nil || handle != nil {
		t.Fatalf("expected nil handle and nil error, got %v %v", handle, err)
	}
}

func TestOnCreateRejectsMalformedTime(t *testing.T) {
	rec := scenarioTask()
	rec.Time = "14:30"
	c := NewCoordinator(newRecordingNotifier(), time.UTC, true).WithClock(fixedClock("2024-03-10 09:00"))
	if _, err := c.OnCreate(context.Background(), rec); err == nil {
		t.Fatal("expected a format error")
	}
}

func TestOnUpdateKeepsAtMostOneLiveNotification(t *testing.T) {
	n := newRecordingNotifier()
	c := NewCoordinator(n, time.UTC, true).WithClock(fixedClock("2024-03-10 09:00"))
	ctx := context.Background()

	rec := scenarioTask()
	handle, err := c.OnCreate(ctx, rec)
	if err != nil {
		t.Fatalf("on create: %v", err)
	}
	rec.NotificationHandle = handle

	for i, clock := range []string{"3:00 PM", "4:15 PM"} {
		next := rec
		next.Time = clock
		h, err := c.OnUpdate(ctx, rec, next)
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if n.liveCount() != 1 {
			t.Fatalf("update %d: %d live notifications, want 1", i, n.liveCount())
		}
		next.NotificationHandle = h
		rec = next
	}

	got, ok := n.liveFor(rec.NotificationHandle)
	if !ok || !got.At.Equal(at("2024-03-10 16:10")) {
		t.Fatalf("live notification does not follow the latest deadline: %+v", got)
	}
	if len(n.cancelled) != 2 {
		t.Fatalf("expected two cancels, got %v", n.cancelled)
	}

	c.OnDelete(ctx, rec)
	if n.liveCount() != 0 {
		t.Fatalf("delete left %d live notifications", n.liveCount())
	}
}

func TestOnUpdateToScheduleKindCancelsOnly(t *testing.T) {
	n := newRecordingNotifier()
	c := NewCoordinator(n, time.UTC, true).WithClock(fixedClock("2024-03-10 09:00"))
	ctx := context.Background()

	rec := scenarioTask()
	rec.NotificationHandle, _ = c.OnCreate(ctx, rec)
	next := rec
	next.Kind = model.KindWork
	h, err := c.OnUpdate(ctx, rec, next)
	if err != nil || h != nil {
		t.Fatalf("expected nil handle, got %v %v", h, err)
	}
	if n.liveCount() != 0 {
		t.Fatalf("old reminder was not cancelled")
	}
}
