package service

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"smart-reminder/internal/deadline"
	"smart-reminder/internal/model"
	"smart-reminder/internal/occurrence"
)

// CountdownService runs at most one live countdown per occurrence.
type CountdownService struct {
	scheduler *SchedulerService
	interval  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	watches map[string]*Watch
}

func NewCountdownService(scheduler *SchedulerService, interval time.Duration) *CountdownService {
	if interval <= 0 {
		interval = time.Second
	}
	return &CountdownService{
		scheduler: scheduler,
		interval:  interval,
		now:       time.Now,
		watches:   make(map[string]*Watch),
	}
}

func (s *CountdownService) WithClock(now func() time.Time) *CountdownService {
	s.now = now
	return s
}

// Watch is a running countdown. Release stops it; it also stops by itself
// once the occurrence leaves the pending state.
type Watch struct {
	svc      *CountdownService
	occID    string
	recordID uint

	mu       sync.Mutex
	entry    cron.EntryID
	released bool
}

// Watch classifies occ now and, while it stays pending, every interval,
// passing each result to onTick. A previous watch on the same occurrence is
// released first.
func (s *CountdownService) Watch(occ occurrence.Occurrence, status model.Status, onTick func(deadline.Classification)) (*Watch, deadline.Classification, error) {
	s.mu.Lock()
	if prev, ok := s.watches[occ.ID]; ok {
		s.mu.Unlock()
		prev.Release()
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	first := deadline.Classify(occ, s.now(), status)
	w := &Watch{svc: s, occID: occ.ID, recordID: occ.Record.ID}
	if !first.IsPending() {
		w.released = true
		return w, first, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	id, err := s.scheduler.ScheduleInterval(s.interval, func() {
		c := deadline.Classify(occ, s.now(), status)
		onTick(c)
		if !c.IsPending() {
			w.Release()
		}
	})
	if err != nil {
		return nil, first, err
	}
	w.entry = id
	s.watches[occ.ID] = w
	return w, first, nil
}

// Release stops the countdown of an occurrence and reports whether one was
// running.
func (s *CountdownService) Release(occID string) bool {
	s.mu.Lock()
	w, ok := s.watches[occID]
	s.mu.Unlock()
	if ok {
		w.Release()
	}
	return ok
}

// ReleaseRecord stops every countdown of the record's occurrences and
// returns how many were running.
func (s *CountdownService) ReleaseRecord(recordID uint) int {
	s.mu.Lock()
	var stale []*Watch
	for _, w := range s.watches {
		if w.recordID == recordID {
			stale = append(stale, w)
		}
	}
	s.mu.Unlock()
	for _, w := range stale {
		w.Release()
	}
	return len(stale)
}

// Active is the number of running countdowns.
func (s *CountdownService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

func (w *Watch) Release() {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		return
	}
	w.released = true
	id := w.entry
	w.mu.Unlock()

	w.svc.scheduler.Remove(id)
	w.svc.mu.Lock()
	if w.svc.watches[w.occID] == w {
		delete(w.svc.watches, w.occID)
	}
	w.svc.mu.Unlock()
}

func (w *Watch) Released() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.released
}
