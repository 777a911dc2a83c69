package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"smart-reminder/internal/timeutil"
)

// Kind is the type of a planner item. Task is the only kind with a hard
// deadline; the rest are schedule kinds.
type Kind string

const (
	KindTask    Kind = "Task"
	KindClass   Kind = "Class"
	KindRoutine Kind = "Routine"
	KindMeeting Kind = "Meeting"
	KindWork    Kind = "Work"
)

var Kinds = []Kind{KindTask, KindClass, KindRoutine, KindMeeting, KindWork}

func (k Kind) IsValid() bool {
	switch k {
	case KindTask, KindClass, KindRoutine, KindMeeting, KindWork:
		return true
	default:
		return false
	}
}

func (k Kind) IsSchedule() bool {
	return k.IsValid() && k != KindTask
}

// Variant is the closed set of deadline semantics: DeadlineItem or WindowItem.
type Variant interface {
	variant()
}

// DeadlineItem can be missed.
type DeadlineItem struct{}

// WindowItem is considered over once its time passes; it is never missed.
type WindowItem struct{}

func (DeadlineItem) variant() {}
func (WindowItem) variant()   {}

func (k Kind) Variant() Variant {
	if k == KindTask {
		return DeadlineItem{}
	}
	return WindowItem{}
}

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

type RepeatFrequency string

const (
	RepeatNone   RepeatFrequency = "none"
	RepeatDaily  RepeatFrequency = "daily"
	RepeatWeekly RepeatFrequency = "weekly"
)

func (r RepeatFrequency) IsValid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly:
		return true
	default:
		return false
	}
}

const DefaultReminderOffsetMinutes = 5

var (
	ErrInvalidKind   = errors.New("model: invalid kind")
	ErrInvalidStatus = errors.New("model: invalid status")
	ErrInvalidRepeat = errors.New("model: invalid repeat settings")
)

// Task is a persisted planner record: a one-off task or a schedule item.
type Task struct {
	ID                    uint            `gorm:"primaryKey"`
	UserID                uint            `gorm:"index"`
	Kind                  Kind            `gorm:"index;size:16"`
	Title                 string
	Description           string
	Location              string
	AnchorDate            string          `gorm:"index;size:10"` // YYYY-MM-DD
	Time                  string          `gorm:"size:8"`        // H:MM AM/PM
	Status                Status          `gorm:"index;size:16"`
	RepeatFrequency       RepeatFrequency `gorm:"size:16"`
	RepeatDays            WeekdaySet      `gorm:"type:text"`
	StartDate             *string         `gorm:"size:10"`
	EndDate               *string         `gorm:"size:10"`
	NotificationHandle    *string
	ReminderOffsetMinutes int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (t Task) IsDone() bool {
	return t.Status == StatusDone
}

// Deadline is the instant of the record's anchor occurrence.
func (t Task) Deadline(loc *time.Location) (time.Time, error) {
	return timeutil.Deadline(t.AnchorDate, t.Time, loc)
}

// ReminderAt is the deadline shifted back by the reminder offset.
func (t Task) ReminderAt(loc *time.Location) (time.Time, error) {
	deadline, err := t.Deadline(loc)
	if err != nil {
		return time.Time{}, err
	}
	return deadline.Add(-time.Duration(t.ReminderOffsetMinutes) * time.Minute), nil
}

func (t Task) Validate() error {
	if !t.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: title is required")
	}
	if t.Status != StatusPending && t.Status != StatusDone {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if _, err := timeutil.ParseDate(t.AnchorDate, time.UTC); err != nil {
		return err
	}
	if _, err := timeutil.To24Hour(t.Time); err != nil {
		return err
	}
	if t.ReminderOffsetMinutes < 0 {
		return fmt.Errorf("model: reminder offset must be >= 0, got %d", t.ReminderOffsetMinutes)
	}
	if !t.RepeatFrequency.IsValid() {
		return fmt.Errorf("%w: frequency %q", ErrInvalidRepeat, t.RepeatFrequency)
	}
	if (t.RepeatFrequency == RepeatWeekly) != (len(t.RepeatDays) > 0) {
		return fmt.Errorf("%w: repeat days are required for weekly and only for weekly", ErrInvalidRepeat)
	}
	if t.Kind == KindTask && (t.StartDate != nil || t.EndDate != nil) {
		return fmt.Errorf("%w: a Task has a single due date, not a range", ErrInvalidRepeat)
	}
	for _, bound := range []*string{t.StartDate, t.EndDate} {
		if bound == nil {
			continue
		}
		if _, err := timeutil.ParseDate(*bound, time.UTC); err != nil {
			return err
		}
	}
	if t.StartDate != nil && t.EndDate != nil && *t.EndDate < *t.StartDate {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidRepeat, *t.EndDate, *t.StartDate)
	}
	return nil
}
