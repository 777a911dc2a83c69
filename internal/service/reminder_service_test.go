package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"smart-reminder/internal/model"
)

func TestDailySummary(t *testing.T) {
	f := newFixture("2024-03-08 09:00")
	f.create(t, reportInput())
	f.create(t, RecordInput{
		Kind: model.KindClass, Title: "Algebra <II>", Date: "2024-03-03", Time: "9:00 AM",
		Repeat: model.RepeatWeekly, RepeatDays: model.WeekdaySet{time.Sunday}, Location: "Room 4",
	})
	late := reportInput()
	late.Title = "Old bill"
	late.Date = "2024-03-09"
	f.create(t, late)

	summary, err := NewReminderService(f.svc).DailySummary(context.Background(), model.User{ID: 1}, at("2024-03-10 10:00"))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{
		"<b>Daily report</b>",
		"2024-03-10",
		"⏳ Submit report <i>(Task)</i>",
		"2:30 PM · 4h 30m",
		"✅ Algebra &lt;II&gt; <i>(Class)</i>",
		"📍 Room 4",
		"<b>Missed</b>",
		"⚠️ Old bill",
	} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary misses %q:\n%s", want, summary)
		}
	}
}

func TestDailySummaryEmptyDay(t *testing.T) {
	f := newFixture("2024-03-08 09:00")
	summary, err := NewReminderService(f.svc).DailySummary(context.Background(), model.User{ID: 1}, at("2024-03-10 10:00"))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(summary, "nothing due today") || strings.Contains(summary, "Missed") {
		t.Fatalf("unexpected empty summary:\n%s", summary)
	}
}
