package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"smart-reminder/internal/deadline"
	"smart-reminder/internal/model"
	"smart-reminder/internal/planner"
	"smart-reminder/internal/timeutil"
)

// ReminderService builds human-readable summaries for periodic reports.
type ReminderService struct {
	tasks *TaskService
}

func NewReminderService(tasks *TaskService) *ReminderService {
	return &ReminderService{tasks: tasks}
}

// DailySummary lists today's expanded agenda and the tasks already missed.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	now = now.In(s.tasks.Location())
	today, err := s.tasks.ListRange(ctx, user.ID, planner.FilterAll, now, now, now)
	if err != nil {
		return "", err
	}
	missed, err := s.tasks.ListMissed(ctx, user.ID, false, now)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", timeutil.FormatDate(now)))

	builder.WriteString("🔥 <b>Tasks</b>\n")
	if len(today.Tasks) == 0 {
		builder.WriteString("— nothing due today\n")
	}
	for _, e := range today.Tasks {
		builder.WriteString(FormatEntry(e))
	}

	builder.WriteString("\n📅 <b>Schedule</b>\n")
	if len(today.Schedules) == 0 {
		builder.WriteString("— free day\n")
	}
	for _, e := range today.Schedules {
		builder.WriteString(FormatEntry(e))
	}

	if len(missed) > 0 {
		builder.WriteString("\n⚠️ <b>Missed</b>\n")
		for _, e := range missed {
			builder.WriteString(FormatEntry(e))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatEntry renders one classified occurrence as an HTML line.
func FormatEntry(e Entry) string {
	var sb strings.Builder
	occ := e.Occurrence

	icon := "🟢"
	switch e.Classification.State {
	case deadline.Missed:
		icon = "⚠️"
	case deadline.Done:
		icon = "✅"
	default:
		if occ.Kind() == model.KindTask {
			icon = "⏳"
		}
	}

	title := html.EscapeString(strings.TrimSpace(occ.Record.Title))
	sb.WriteString(fmt.Sprintf("%s %s <i>(%s)</i>", icon, title, occ.Kind()))
	sb.WriteString(fmt.Sprintf("\n   ⏰ %s %s · %s",
		occ.DateString(), timeutil.FormatDisplayTime(occ.Deadline), html.EscapeString(e.Classification.Label)))
	if loc := strings.TrimSpace(occ.Record.Location); loc != "" {
		sb.WriteString(fmt.Sprintf("\n   📍 %s", html.EscapeString(loc)))
	}
	if desc := strings.TrimSpace(occ.Record.Description); desc != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(desc)))
	}
	sb.WriteString(fmt.Sprintf("\n   🆔 <code>%s</code>", occ.ID))

	sb.WriteByte('\n')
	return sb.String()
}
