package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"smart-reminder/internal/model"
	"smart-reminder/internal/planner"
	"smart-reminder/internal/service"
	"smart-reminder/internal/timeutil"
)

var errUnterminatedQuote = errors.New("unterminated quote")

// splitArgs splits command arguments on spaces, keeping "quoted words"
// together.
func splitArgs(s string) ([]string, error) {
	var (
		out     []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			if started {
				out = append(out, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, errUnterminatedQuote
	}
	if started {
		out = append(out, current.String())
	}
	return out, nil
}

func parseKind(s string) (model.Kind, error) {
	for _, k := range model.Kinds {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", model.ErrInvalidKind, s)
}

func parseRepeat(s string) (model.RepeatFrequency, error) {
	r := model.RepeatFrequency(strings.ToLower(strings.TrimSpace(s)))
	if r == "" || r == "no" || r == "-" {
		r = model.RepeatNone
	}
	if !r.IsValid() {
		return "", fmt.Errorf("%w: frequency %q", model.ErrInvalidRepeat, s)
	}
	return r, nil
}

func parseDays(s string) (model.WeekdaySet, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, nil
	}
	return model.ParseWeekdaySet(fields)
}

// normalizeTime accepts "2:30 PM" or "14:30" and returns the display form.
func normalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	up := strings.ToUpper(s)
	if _, err := timeutil.To24Hour(up); err == nil {
		return up, nil
	}
	return timeutil.From24Hour(s)
}

func normalizeDate(s string, loc *time.Location) (string, error) {
	d, err := timeutil.ParseDate(s, loc)
	if err != nil {
		return "", err
	}
	return timeutil.FormatDate(d), nil
}

// parsePatch reads field=value pairs into a record patch.
func parsePatch(args []string, loc *time.Location) (service.RecordPatch, error) {
	var p service.RecordPatch
	if len(args) == 0 {
		return p, errors.New("nothing to change, use field=value")
	}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return p, fmt.Errorf("expected field=value, got %q", arg)
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			p.Title = &value
		case "description", "desc":
			p.Description = &value
		case "location", "where":
			p.Location = &value
		case "kind", "type":
			k, err := parseKind(value)
			if err != nil {
				return p, err
			}
			p.Kind = &k
		case "date":
			d, err := normalizeDate(value, loc)
			if err != nil {
				return p, err
			}
			p.Date = &d
		case "time":
			t, err := normalizeTime(value)
			if err != nil {
				return p, err
			}
			p.Time = &t
		case "status":
			st := model.Status(strings.ToLower(value))
			if st != model.StatusPending && st != model.StatusDone {
				return p, fmt.Errorf("%w: %q", model.ErrInvalidStatus, value)
			}
			p.Status = &st
		case "repeat":
			r, err := parseRepeat(value)
			if err != nil {
				return p, err
			}
			p.Repeat = &r
		case "days":
			days, err := parseDays(value)
			if err != nil {
				return p, err
			}
			p.RepeatDays = &days
		case "start":
			if value != "" {
				d, err := normalizeDate(value, loc)
				if err != nil {
					return p, err
				}
				value = d
			}
			p.StartDate = &value
		case "end":
			if value != "" {
				d, err := normalizeDate(value, loc)
				if err != nil {
					return p, err
				}
				value = d
			}
			p.EndDate = &value
		case "offset", "remind":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return p, fmt.Errorf("offset must be a whole number of minutes >= 0, got %q", value)
			}
			p.ReminderOffsetMinutes = &n
		default:
			return p, fmt.Errorf("unknown field %q", key)
		}
	}
	return p, nil
}

// listArgs holds the optional arguments of the listing commands.
type listArgs struct {
	filter planner.TypeFilter
	dates  []time.Time
	all    bool
}

// parseListArgs accepts, in any order, a type filter (task, schedule), up to
// two dates and the word "all".
func parseListArgs(args []string, loc *time.Location) (listArgs, error) {
	out := listArgs{filter: planner.FilterAll}
	for _, arg := range args {
		if strings.EqualFold(arg, "all") {
			out.all = true
			continue
		}
		if f, err := planner.ParseFilter(arg); err == nil {
			out.filter = f
			continue
		}
		d, err := timeutil.ParseDate(arg, loc)
		if err != nil {
			return out, fmt.Errorf("unexpected argument %q", arg)
		}
		if len(out.dates) == 2 {
			return out, errors.New("at most two dates")
		}
		out.dates = append(out.dates, d)
	}
	return out, nil
}
