package planner

import (
	"errors"
	"testing"
	"time"

	"smart-reminder/internal/model"
)

var ref = time.Date(2024, 3, 10, 15, 45, 0, 0, time.UTC)

func raw(t *testing.T, view View, filter TypeFilter) model.Predicate {
	t.Helper()
	sel, err := Select(42, view, filter, ref)
	if err != nil {
		t.Fatalf("select %s/%s: %v", view, filter, err)
	}
	rp, ok := sel.(RawPredicate)
	if !ok {
		t.Fatalf("select %s/%s: expected RawPredicate, got %T", view, filter, sel)
	}
	return rp.Predicate
}

func TestSelectRawViews(t *testing.T) {
	cases := []struct {
		view View
		want model.Predicate
	}{
		{ViewAll, model.Predicate{UserID: 42}},
		{ViewToday, model.Predicate{UserID: 42, AnchorDate: "2024-03-10"}},
		{ViewUpcoming, model.Predicate{UserID: 42, AnchorDateAfter: "2024-03-10", ExcludeStatus: model.StatusDone}},
		{ViewCompleted, model.Predicate{UserID: 42, Status: model.StatusDone}},
	}
	for _, tc := range cases {
		if got := raw(t, tc.view, FilterAll); got != tc.want {
			t.Fatalf("%s: got %+v, want %+v", tc.view, got, tc.want)
		}
	}
}

func TestSelectCombinesTypeFilter(t *testing.T) {
	p := raw(t, ViewToday, FilterTask)
	if p.Kind != model.KindTask || p.AnchorDate != "2024-03-10" {
		t.Fatalf("unexpected task filter predicate: %+v", p)
	}
	p = raw(t, ViewUpcoming, FilterSchedule)
	if p.ExcludeKind != model.KindTask || p.Kind != "" || p.ExcludeStatus != model.StatusDone {
		t.Fatalf("unexpected schedule filter predicate: %+v", p)
	}
}

func TestSelectPlannerIsSingleDayRange(t *testing.T) {
	sel, err := Select(42, ViewPlanner, FilterAll, ref)
	if err != nil {
		t.Fatalf("select planner: %v", err)
	}
	rng, ok := sel.(RangeExpansion)
	if !ok {
		t.Fatalf("expected RangeExpansion, got %T", sel)
	}
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if !rng.Start.Equal(day) || !rng.End.Equal(day) || rng.Owner.UserID != 42 {
		t.Fatalf("unexpected range: %+v", rng)
	}
}

func TestRawTodayIgnoresRecurrence(t *testing.T) {
	repeating := model.Task{
		UserID:          42,
		Kind:            model.KindRoutine,
		AnchorDate:      "2024-03-01",
		RepeatFrequency: model.RepeatDaily,
		Status:          model.StatusPending,
	}
	if raw(t, ViewToday, FilterAll).Matches(repeating) {
		t.Fatal("raw Today must not match a daily record anchored on another day")
	}
}

func TestSelectRejectsUnknownInput(t *testing.T) {
	if _, err := Select(1, View("Someday"), FilterAll, ref); !errors.Is(err, ErrUnknownView) {
		t.Fatalf("expected ErrUnknownView, got %v", err)
	}
	if _, err := Select(1, ViewAll, TypeFilter("Chores"), ref); !errors.Is(err, ErrUnknownFilter) {
		t.Fatalf("expected ErrUnknownFilter, got %v", err)
	}
}

func TestParseViewAndFilter(t *testing.T) {
	if v, err := ParseView("upcoming"); err != nil || v != ViewUpcoming {
		t.Fatalf("ParseView: %v %v", v, err)
	}
	if f, err := ParseFilter(""); err != nil || f != FilterAll {
		t.Fatalf("ParseFilter empty: %v %v", f, err)
	}
	if f, err := ParseFilter("schedule"); err != nil || f != FilterSchedule {
		t.Fatalf("ParseFilter: %v %v", f, err)
	}
}
