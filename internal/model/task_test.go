package model

import (
	"errors"
	"testing"
	"time"

	"smart-reminder/internal/timeutil"
)

func strptr(s string) *string { return &s }

func validTask() Task {
	return Task{
		UserID:                1,
		Kind:                  KindTask,
		Title:                 "Pay rent",
		AnchorDate:            "2024-03-10",
		Time:                  "2:30 PM",
		Status:                StatusPending,
		RepeatFrequency:       RepeatNone,
		ReminderOffsetMinutes: DefaultReminderOffsetMinutes,
	}
}

func TestTaskValidateSuccess(t *testing.T) {
	if err := validTask().Validate(); err != nil {
		t.Fatalf("expected valid task, got error: %v", err)
	}

	schedule := validTask()
	schedule.Kind = KindClass
	schedule.RepeatFrequency = RepeatWeekly
	schedule.RepeatDays = WeekdaySet{time.Monday, time.Wednesday}
	schedule.StartDate = strptr("2024-03-01")
	schedule.EndDate = strptr("2024-06-01")
	if err := schedule.Validate(); err != nil {
		t.Fatalf("expected valid schedule, got error: %v", err)
	}
}

func TestTaskValidateInvariants(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Task)
		want   error
	}{
		{"bad kind", func(t *Task) { t.Kind = "Errand" }, ErrInvalidKind},
		{"bad status", func(t *Task) { t.Status = "archived" }, ErrInvalidStatus},
		{"bad time", func(t *Task) { t.Time = "14:30" }, timeutil.ErrFormat},
		{"bad date", func(t *Task) { t.AnchorDate = "10/03/2024" }, timeutil.ErrFormat},
		{"weekly without days", func(t *Task) { t.RepeatFrequency = RepeatWeekly }, ErrInvalidRepeat},
		{"days without weekly", func(t *Task) {
			t.Kind = KindRoutine
			t.RepeatFrequency = RepeatDaily
			t.RepeatDays = WeekdaySet{time.Friday}
		}, ErrInvalidRepeat},
		{"task with range", func(t *Task) { t.StartDate = strptr("2024-03-01") }, ErrInvalidRepeat},
		{"end before start", func(t *Task) {
			t.Kind = KindWork
			t.StartDate = strptr("2024-03-10")
			t.EndDate = strptr("2024-03-01")
		}, ErrInvalidRepeat},
	}
	for _, tc := range cases {
		task := validTask()
		tc.mutate(&task)
		if err := task.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	task := validTask()
	task.ReminderOffsetMinutes = -1
	if err := task.Validate(); err == nil {
		t.Fatal("expected error for negative reminder offset")
	}
}

func TestKindVariant(t *testing.T) {
	if _, ok := KindTask.Variant().(DeadlineItem); !ok {
		t.Fatal("Task must be a deadline item")
	}
	for _, k := range []Kind{KindClass, KindRoutine, KindMeeting, KindWork} {
		if _, ok := k.Variant().(WindowItem); !ok {
			t.Fatalf("%s must be a window item", k)
		}
		if !k.IsSchedule() {
			t.Fatalf("%s must be a schedule kind", k)
		}
	}
	if KindTask.IsSchedule() {
		t.Fatal("Task is not a schedule kind")
	}
}

func TestTaskReminderAt(t *testing.T) {
	task := validTask()
	at, err := task.ReminderAt(time.UTC)
	if err != nil {
		t.Fatalf("reminder at: %v", err)
	}
	if at.Format("2006-01-02 15:04") != "2024-03-10 14:25" {
		t.Fatalf("unexpected reminder instant: %s", at)
	}
}

func TestWeekdaySetScanValue(t *testing.T) {
	set, err := ParseWeekdaySet([]string{"wed", "Mon", "Mon"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v, err := set.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != `["Mon","Wed"]` {
		t.Fatalf("unexpected stored value: %v", v)
	}

	var back WeekdaySet
	if err := back.Scan([]byte(`["Sat","Sun"]`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !back.Contains(time.Saturday) || !back.Contains(time.Sunday) || len(back) != 2 {
		t.Fatalf("unexpected scanned set: %v", back)
	}

	var empty WeekdaySet
	if err := empty.Scan(nil); err != nil || empty != nil {
		t.Fatalf("expected nil set from NULL, got %v (%v)", empty, err)
	}
	if v, _ := empty.Value(); v != nil {
		t.Fatalf("expected NULL for empty set, got %v", v)
	}

	if _, err := ParseWeekdaySet([]string{"Funday"}); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
}

func TestPredicateMatches(t *testing.T) {
	task := validTask()
	cases := []struct {
		p    Predicate
		want bool
	}{
		{Predicate{}, true},
		{Predicate{UserID: 1}, true},
		{Predicate{UserID: 2}, false},
		{Predicate{AnchorDate: "2024-03-10"}, true},
		{Predicate{AnchorDateAfter: "2024-03-10"}, false},
		{Predicate{AnchorDateAfter: "2024-03-09"}, true},
		{Predicate{ExcludeStatus: StatusDone}, true},
		{Predicate{Status: StatusDone}, false},
		{Predicate{Kind: KindTask}, true},
		{Predicate{ExcludeKind: KindTask}, false},
	}
	for i, tc := range cases {
		if got := tc.p.Matches(task); got != tc.want {
			t.Fatalf("case %d: Matches(%+v) = %v, want %v", i, tc.p, got, tc.want)
		}
	}
}
