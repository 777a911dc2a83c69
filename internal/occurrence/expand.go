// Package occurrence expands planner records into concrete dated instances.
package occurrence

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"smart-reminder/internal/model"
	"smart-reminder/internal/timeutil"
)

const idSeparator = "-"

var (
	ErrInvalidRange = errors.New("occurrence: window start is after window end")
	ErrInvalidID    = errors.New("occurrence: malformed occurrence id")
)

// Occurrence is one dated instance of a record. It is never persisted.
type Occurrence struct {
	ID       string
	Date     time.Time
	Deadline time.Time
	Record   model.Task
}

func (o Occurrence) Kind() model.Kind {
	return o.Record.Kind
}

// DateString is the occurrence date as YYYY-MM-DD.
func (o Occurrence) DateString() string {
	return timeutil.FormatDate(o.Date)
}

// ID builds "<recordID>-<YYYY-MM-DD>".
func ID(recordID uint, date time.Time) string {
	return strconv.FormatUint(uint64(recordID), 10) + idSeparator + timeutil.FormatDate(date)
}

// RecordID recovers the originating record id from an occurrence id. A bare
// numeric id is accepted as well.
func RecordID(occurrenceID string) (uint, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(occurrenceID), idSeparator)
	id, err := strconv.ParseUint(head, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, occurrenceID)
	}
	return uint(id), nil
}

// Single returns the anchor occurrence of rec without honouring its repeat
// pattern.
func Single(rec model.Task, loc *time.Location) (Occurrence, error) {
	day, err := timeutil.ParseDate(rec.AnchorDate, loc)
	if err != nil {
		return Occurrence{}, err
	}
	return build(rec, day)
}

// Expand returns the occurrences of rec whose date lies in the inclusive
// window [start, end], in ascending date order. Only the calendar day of
// start and end is considered; the window's location is used for dates.
func Expand(rec model.Task, start, end time.Time) ([]Occurrence, error) {
	start = timeutil.StartOfDay(start)
	end = timeutil.StartOfDay(end.In(start.Location()))
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, timeutil.FormatDate(start), timeutil.FormatDate(end))
	}
	loc := start.Location()

	anchor, err := timeutil.ParseDate(rec.AnchorDate, loc)
	if err != nil {
		return nil, err
	}
	if _, err := timeutil.To24Hour(rec.Time); err != nil {
		return nil, err
	}

	if rec.RepeatFrequency == model.RepeatNone || rec.RepeatFrequency == "" {
		if anchor.Before(start) || anchor.After(end) {
			return nil, nil
		}
		occ, err := build(rec, anchor)
		if err != nil {
			return nil, err
		}
		return []Occurrence{occ}, nil
	}

	lower, upper, err := bounds(rec, anchor, loc)
	if err != nil {
		return nil, err
	}
	from := start
	if lower.After(from) {
		from = lower
	}
	to := end
	if upper != nil && upper.Before(to) {
		to = *upper
	}

	var out []Occurrence
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if !matches(rec, day) {
			continue
		}
		occ, err := build(rec, day)
		if err != nil {
			return nil, err
		}
		out = append(out, occ)
	}
	return out, nil
}

// ExpandAll expands every record and merges the result in deadline order.
func ExpandAll(recs []model.Task, start, end time.Time) ([]Occurrence, error) {
	var out []Occurrence
	for _, rec := range recs {
		occs, err := Expand(rec, start, end)
		if err != nil {
			return nil, fmt.Errorf("expand record %d: %w", rec.ID, err)
		}
		out = append(out, occs...)
	}
	SortByDeadline(out)
	return out, nil
}

// SortByDeadline orders occurrences by deadline, then by id.
func SortByDeadline(occs []Occurrence) {
	sort.SliceStable(occs, func(i, j int) bool {
		if !occs[i].Deadline.Equal(occs[j].Deadline) {
			return occs[i].Deadline.Before(occs[j].Deadline)
		}
		return occs[i].ID < occs[j].ID
	})
}

func matches(rec model.Task, day time.Time) bool {
	switch rec.RepeatFrequency {
	case model.RepeatDaily:
		return true
	case model.RepeatWeekly:
		return rec.RepeatDays.Contains(day.Weekday())
	default:
		return false
	}
}

// bounds is [StartDate ?? AnchorDate, EndDate ?? +inf]; a nil upper bound
// means unbounded.
func bounds(rec model.Task, anchor time.Time, loc *time.Location) (time.Time, *time.Time, error) {
	lower := anchor
	if rec.StartDate != nil {
		d, err := timeutil.ParseDate(*rec.StartDate, loc)
		if err != nil {
			return time.Time{}, nil, err
		}
		lower = d
	}
	if rec.EndDate == nil {
		return lower, nil, nil
	}
	upper, err := timeutil.ParseDate(*rec.EndDate, loc)
	if err != nil {
		return time.Time{}, nil, err
	}
	return lower, &upper, nil
}

func build(rec model.Task, day time.Time) (Occurrence, error) {
	clock, err := timeutil.To24Hour(rec.Time)
	if err != nil {
		return Occurrence{}, err
	}
	deadline, err := timeutil.CombineDateTime(day, clock)
	if err != nil {
		return Occurrence{}, err
	}
	return Occurrence{
		ID:       ID(rec.ID, day),
		Date:     day,
		Deadline: deadline,
		Record:   rec,
	}, nil
}
