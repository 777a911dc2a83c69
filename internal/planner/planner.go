// Package planner turns a screen selection (view, type filter, reference
// date) into either a raw record predicate or a date-range expansion request.
//
// The two strategies disagree on purpose: raw views look only at a record's
// anchor date and never expand recurrence, so a repeating record shows under
// Today only when its own anchor date is today. Only the planner view honours
// the repeat pattern.
package planner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"smart-reminder/internal/model"
	"smart-reminder/internal/timeutil"
)

type View string

const (
	ViewAll       View = "All"
	ViewToday     View = "Today"
	ViewUpcoming  View = "Upcoming"
	ViewCompleted View = "Completed"
	ViewPlanner   View = "Planner"
)

type TypeFilter string

const (
	FilterAll      TypeFilter = "All"
	FilterTask     TypeFilter = "Task"
	FilterSchedule TypeFilter = "Schedule"
)

var (
	ErrUnknownView   = errors.New("planner: unknown view")
	ErrUnknownFilter = errors.New("planner: unknown type filter")
)

// Selection is either RawPredicate or RangeExpansion.
type Selection interface {
	selection()
}

// RawPredicate filters un-expanded records.
type RawPredicate struct {
	Predicate model.Predicate
}

// RangeExpansion asks for every record matching Owner to be expanded over
// [Start, End] and partitioned into tasks and schedules.
type RangeExpansion struct {
	Owner model.Predicate
	Start time.Time
	End   time.Time
}

func (RawPredicate) selection()   {}
func (RangeExpansion) selection() {}

func ParseView(s string) (View, error) {
	for _, v := range []View{ViewAll, ViewToday, ViewUpcoming, ViewCompleted, ViewPlanner} {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

func ParseFilter(s string) (TypeFilter, error) {
	if strings.TrimSpace(s) == "" {
		return FilterAll, nil
	}
	for _, f := range []TypeFilter{FilterAll, FilterTask, FilterSchedule} {
		if strings.EqualFold(string(f), strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

// Select plans the query for one of the tab views or the single-day planner.
func Select(userID uint, view View, filter TypeFilter, ref time.Time) (Selection, error) {
	p, err := withFilter(model.Predicate{UserID: userID}, filter)
	if err != nil {
		return nil, err
	}
	today := timeutil.FormatDate(ref)

	switch view {
	case ViewAll:
	case ViewToday:
		p.AnchorDate = today
	case ViewUpcoming:
		p.AnchorDateAfter = today
		p.ExcludeStatus = model.StatusDone
	case ViewCompleted:
		p.Status = model.StatusDone
	case ViewPlanner:
		return SelectRange(userID, filter, ref, ref)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	return RawPredicate{Predicate: p}, nil
}

// SelectRange plans a multi-day expansion over [start, end].
func SelectRange(userID uint, filter TypeFilter, start, end time.Time) (Selection, error) {
	p, err := withFilter(model.Predicate{UserID: userID}, filter)
	if err != nil {
		return nil, err
	}
	return RangeExpansion{
		Owner: p,
		Start: timeutil.StartOfDay(start),
		End:   timeutil.StartOfDay(end),
	}, nil
}

func withFilter(p model.Predicate, filter TypeFilter) (model.Predicate, error) {
	switch filter {
	case FilterAll, "":
	case FilterTask:
		p.Kind = model.KindTask
	case FilterSchedule:
		p.ExcludeKind = model.KindTask
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownFilter, filter)
	}
	return p, nil
}
