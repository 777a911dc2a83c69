// Package deadline decides whether an occurrence is pending, missed or done
// and renders the remaining time.
package deadline

import (
	"fmt"
	"time"

	"smart-reminder/internal/model"
	"smart-reminder/internal/occurrence"
)

type State string

const (
	Pending State = "Pending"
	Missed  State = "Missed"
	Done    State = "Done"
)

type Classification struct {
	State State
	Label string
}

func (c Classification) IsPending() bool {
	return c.State == Pending
}

var (
	done   = Classification{State: Done, Label: "Done"}
	missed = Classification{State: Missed, Label: "Missed"}
)

// Classify evaluates occ at now. A done status overrides everything; past the
// deadline a DeadlineItem is missed and a WindowItem counts as done.
func Classify(occ occurrence.Occurrence, now time.Time, status model.Status) Classification {
	if status == model.StatusDone {
		return done
	}
	if !now.Before(occ.Deadline) {
		switch occ.Kind().Variant().(type) {
		case model.DeadlineItem:
			return missed
		case model.WindowItem:
			return done
		}
	}
	return Classification{State: Pending, Label: FormatCountdown(occ.Deadline.Sub(now))}
}

// FormatCountdown renders d starting from its largest non-zero unit:
// "2d 3h", "3h 5m", "5m" or "42s".
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
