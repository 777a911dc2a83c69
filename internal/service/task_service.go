package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"smart-reminder/internal/deadline"
	"smart-reminder/internal/model"
	"smart-reminder/internal/occurrence"
	"smart-reminder/internal/planner"
	"smart-reminder/internal/timeutil"
)

// TaskStore is the persistence the task service needs.
type TaskStore interface {
	Insert(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, userID, taskID uint) error
	FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error)
	Query(ctx context.Context, p model.Predicate) ([]model.Task, error)
}

// RecordInput represents data required to create a record. Date and Time
// use YYYY-MM-DD and "H:MM AM/PM".
type RecordInput struct {
	Kind                  model.Kind
	Title                 string
	Description           string
	Location              string
	Date                  string
	Time                  string
	Repeat                model.RepeatFrequency
	RepeatDays            model.WeekdaySet
	StartDate             *string
	EndDate               *string
	ReminderOffsetMinutes *int
}

// RecordPatch changes the non-nil fields of a record. An empty StartDate or
// EndDate clears the bound.
type RecordPatch struct {
	Kind                  *model.Kind
	Title                 *string
	Description           *string
	Location              *string
	Date                  *string
	Time                  *string
	Status                *model.Status
	Repeat                *model.RepeatFrequency
	RepeatDays            *model.WeekdaySet
	StartDate             *string
	EndDate               *string
	ReminderOffsetMinutes *int
}

// Entry is an occurrence with its state at listing time.
type Entry struct {
	Occurrence     occurrence.Occurrence
	Classification deadline.Classification
}

// Listing holds every entry plus the Task / schedule partition.
type Listing struct {
	Entries   []Entry
	Tasks     []Entry
	Schedules []Entry
}

// RecordWatcher is told when a record's occurrences change under it.
type RecordWatcher interface {
	ReleaseRecord(recordID uint) int
}

// TaskService wraps record-related business logic.
type TaskService struct {
	store         TaskStore
	coordinator   *Coordinator
	watcher       RecordWatcher
	loc           *time.Location
	defaultOffset int
}

func NewTaskService(store TaskStore, coordinator *Coordinator, loc *time.Location, defaultOffset int) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	if defaultOffset < 0 {
		defaultOffset = model.DefaultReminderOffsetMinutes
	}
	return &TaskService{store: store, coordinator: coordinator, loc: loc, defaultOffset: defaultOffset}
}

// WithWatcher registers w to be released after a record is marked done,
// edited or deleted.
func (s *TaskService) WithWatcher(w RecordWatcher) *TaskService {
	s.watcher = w
	return s
}

func (s *TaskService) Location() *time.Location {
	return s.loc
}

// CreateRecord validates in, schedules its reminder and stores it. The
// reminder is withdrawn when the insert fails.
func (s *TaskService) CreateRecord(ctx context.Context, userID uint, in RecordInput) (*model.Task, error) {
	task := model.Task{
		UserID:                userID,
		Kind:                  in.Kind,
		Title:                 strings.TrimSpace(in.Title),
		Description:           strings.TrimSpace(in.Description),
		Location:              strings.TrimSpace(in.Location),
		AnchorDate:            in.Date,
		Time:                  in.Time,
		Status:                model.StatusPending,
		RepeatFrequency:       in.Repeat,
		RepeatDays:            in.RepeatDays,
		StartDate:             in.StartDate,
		EndDate:               in.EndDate,
		ReminderOffsetMinutes: s.defaultOffset,
	}
	if task.RepeatFrequency == "" {
		task.RepeatFrequency = model.RepeatNone
	}
	if in.ReminderOffsetMinutes != nil {
		task.ReminderOffsetMinutes = *in.ReminderOffsetMinutes
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	handle, err := s.coordinator.OnCreate(ctx, task)
	if err != nil {
		return nil, err
	}
	task.NotificationHandle = handle

	if err := s.store.Insert(ctx, &task); err != nil {
		s.coordinator.OnDelete(ctx, task)
		return nil, err
	}
	log.Printf("[info] record created id=%d user=%d kind=%s reminder=%t", task.ID, userID, task.Kind, handle != nil)
	return &task, nil
}

// ListOccurrences resolves a view selection into classified occurrences.
func (s *TaskService) ListOccurrences(ctx context.Context, userID uint, view planner.View, filter planner.TypeFilter, ref, now time.Time) (Listing, error) {
	sel, err := planner.Select(userID, view, filter, ref.In(s.loc))
	if err != nil {
		return Listing{}, err
	}
	return s.resolve(ctx, sel, now)
}

// ListRange expands every matching record over [start, end].
func (s *TaskService) ListRange(ctx context.Context, userID uint, filter planner.TypeFilter, start, end, now time.Time) (Listing, error) {
	sel, err := planner.SelectRange(userID, filter, start.In(s.loc), end.In(s.loc))
	if err != nil {
		return Listing{}, err
	}
	return s.resolve(ctx, sel, now)
}

func (s *TaskService) resolve(ctx context.Context, sel planner.Selection, now time.Time) (Listing, error) {
	var occs []occurrence.Occurrence
	switch sel := sel.(type) {
	case planner.RawPredicate:
		recs, err := s.store.Query(ctx, sel.Predicate)
		if err != nil {
			return Listing{}, err
		}
		for _, rec := range recs {
			occ, err := occurrence.Single(rec, s.loc)
			if err != nil {
				return Listing{}, fmt.Errorf("record %d: %w", rec.ID, err)
			}
			occs = append(occs, occ)
		}
	case planner.RangeExpansion:
		recs, err := s.store.Query(ctx, sel.Owner)
		if err != nil {
			return Listing{}, err
		}
		occs, err = occurrence.ExpandAll(recs, sel.Start, sel.End)
		if err != nil {
			return Listing{}, err
		}
	default:
		return Listing{}, fmt.Errorf("unsupported selection %T", sel)
	}

	var out Listing
	for _, occ := range occs {
		e := Entry{Occurrence: occ, Classification: deadline.Classify(occ, now, occ.Record.Status)}
		out.Entries = append(out.Entries, e)
		if occ.Kind() == model.KindTask {
			out.Tasks = append(out.Tasks, e)
		} else {
			out.Schedules = append(out.Schedules, e)
		}
	}
	return out, nil
}

// ListMissed returns pending Task occurrences whose deadline has passed,
// optionally only those anchored today.
func (s *TaskService) ListMissed(ctx context.Context, userID uint, todayOnly bool, now time.Time) ([]Entry, error) {
	p := model.Predicate{UserID: userID, Kind: model.KindTask, Status: model.StatusPending}
	if todayOnly {
		p.AnchorDate = timeutil.FormatDate(now.In(s.loc))
	}
	listing, err := s.resolve(ctx, planner.RawPredicate{Predicate: p}, now)
	if err != nil {
		return nil, err
	}
	var missed []Entry
	for _, e := range listing.Entries {
		if e.Classification.State == deadline.Missed {
			missed = append(missed, e)
		}
	}
	return missed, nil
}

// Occurrence loads the record behind occID and returns the dated instance
// the id names, or the anchor instance for a bare record id.
func (s *TaskService) Occurrence(ctx context.Context, userID uint, occID string) (occurrence.Occurrence, error) {
	rec, err := s.load(ctx, userID, occID)
	if err != nil {
		return occurrence.Occurrence{}, err
	}
	_, dateStr, ok := strings.Cut(strings.TrimSpace(occID), "-")
	if !ok {
		return occurrence.Single(*rec, s.loc)
	}
	day, err := timeutil.ParseDate(dateStr, s.loc)
	if err != nil {
		return occurrence.Occurrence{}, err
	}
	occs, err := occurrence.Expand(*rec, day, day)
	if err != nil {
		return occurrence.Occurrence{}, err
	}
	if len(occs) == 0 {
		return occurrence.Occurrence{}, fmt.Errorf("%w: %q has no occurrence on %s", occurrence.ErrInvalidID, occID, dateStr)
	}
	return occs[0], nil
}

// MarkDone flags the originating record as done and withdraws its reminder.
// The flag is shared by every occurrence of a repeating record.
func (s *TaskService) MarkDone(ctx context.Context, userID uint, occID string) (*model.Task, error) {
	rec, err := s.load(ctx, userID, occID)
	if err != nil {
		return nil, err
	}
	if rec.IsDone() {
		return rec, nil
	}
	prev := *rec
	rec.Status = model.StatusDone
	rec.NotificationHandle = nil
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.coordinator.OnDelete(ctx, prev)
	s.release(rec.ID)
	log.Printf("[info] record done id=%d user=%d", rec.ID, userID)
	return rec, nil
}

// EditRecord applies patch to the originating record and replaces its
// reminder. The old reminder is cancelled only once the edit is stored, so a
// failed update leaves the record and its reminder as they were.
func (s *TaskService) EditRecord(ctx context.Context, userID uint, occID string, patch RecordPatch) (*model.Task, error) {
	prev, err := s.load(ctx, userID, occID)
	if err != nil {
		return nil, err
	}
	next := *prev
	patch.apply(&next)
	if err := next.Validate(); err != nil {
		return nil, err
	}

	handle, err := s.coordinator.OnCreate(ctx, next)
	if err != nil {
		return nil, err
	}
	next.NotificationHandle = handle
	if err := s.store.Update(ctx, &next); err != nil {
		s.coordinator.OnDelete(ctx, next)
		return nil, err
	}
	s.coordinator.OnDelete(ctx, *prev)
	s.release(next.ID)
	log.Printf("[info] record edited id=%d user=%d reminder=%t", next.ID, userID, handle != nil)
	return &next, nil
}

// DeleteRecord removes the originating record with all its occurrences.
func (s *TaskService) DeleteRecord(ctx context.Context, userID uint, occID string) error {
	rec, err := s.load(ctx, userID, occID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, rec.ID); err != nil {
		return err
	}
	s.coordinator.OnDelete(ctx, *rec)
	s.release(rec.ID)
	log.Printf("[info] record deleted id=%d user=%d", rec.ID, userID)
	return nil
}

// RestoreReminders reschedules every pending Task record. Reminders only
// live in memory, so stored handles are stale after a restart; any that are
// still live are replaced.
func (s *TaskService) RestoreReminders(ctx context.Context) (int, error) {
	recs, err := s.store.Query(ctx, model.Predicate{Kind: model.KindTask, Status: model.StatusPending})
	if err != nil {
		return 0, err
	}
	restored := 0
	for i := range recs {
		rec := recs[i]
		handle, err := s.coordinator.OnUpdate(ctx, rec, rec)
		if err != nil {
			log.Printf("[warn] restore reminder task=%d: %v", rec.ID, err)
			continue
		}
		if handle != nil {
			restored++
		}
		if rec.NotificationHandle == nil && handle == nil {
			continue
		}
		rec.NotificationHandle = handle
		if err := s.store.Update(ctx, &rec); err != nil {
			s.coordinator.OnDelete(ctx, rec)
			return restored, err
		}
	}
	return restored, nil
}

func (s *TaskService) release(recordID uint) {
	if s.watcher == nil {
		return
	}
	if n := s.watcher.ReleaseRecord(recordID); n > 0 {
		log.Printf("[info] released %d countdowns of record %d", n, recordID)
	}
}

func (s *TaskService) load(ctx context.Context, userID uint, occID string) (*model.Task, error) {
	id, err := occurrence.RecordID(occID)
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, userID, id)
}

func (p RecordPatch) apply(t *model.Task) {
	if p.Kind != nil {
		t.Kind = *p.Kind
	}
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Location != nil {
		t.Location = strings.TrimSpace(*p.Location)
	}
	if p.Date != nil {
		t.AnchorDate = *p.Date
	}
	if p.Time != nil {
		t.Time = *p.Time
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Repeat != nil {
		t.RepeatFrequency = *p.Repeat
		if *p.Repeat != model.RepeatWeekly && p.RepeatDays == nil {
			t.RepeatDays = nil
		}
	}
	if p.RepeatDays != nil {
		t.RepeatDays = *p.RepeatDays
	}
	if p.StartDate != nil {
		t.StartDate = optional(*p.StartDate)
	}
	if p.EndDate != nil {
		t.EndDate = optional(*p.EndDate)
	}
	if p.ReminderOffsetMinutes != nil {
		t.ReminderOffsetMinutes = *p.ReminderOffsetMinutes
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
