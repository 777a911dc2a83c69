package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrInvalidWeekday = errors.New("model: invalid weekday token")

var weekdayTokens = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func WeekdayToken(d time.Weekday) string {
	return weekdayTokens[d]
}

func ParseWeekday(token string) (time.Weekday, error) {
	for i, t := range weekdayTokens {
		if strings.EqualFold(t, strings.TrimSpace(token)) {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, token)
}

// WeekdaySet is stored as a JSON array of tokens, e.g. ["Mon","Wed"], or NULL
// when empty.
type WeekdaySet []time.Weekday

func ParseWeekdaySet(tokens []string) (WeekdaySet, error) {
	out := make(WeekdaySet, 0, len(tokens))
	for _, tok := range tokens {
		d, err := ParseWeekday(tok)
		if err != nil {
			return nil, err
		}
		if !out.Contains(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s WeekdaySet) Contains(d time.Weekday) bool {
	for _, v := range s {
		if v == d {
			return true
		}
	}
	return false
}

func (s WeekdaySet) Tokens() []string {
	out := make([]string, 0, len(s))
	for _, d := range s {
		out = append(out, WeekdayToken(d))
	}
	return out
}

func (s WeekdaySet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(s.Tokens())
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (s *WeekdaySet) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("model: cannot scan %T into WeekdaySet", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	var tokens []string
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return fmt.Errorf("model: decode weekdays: %w", err)
	}
	parsed, err := ParseWeekdaySet(tokens)
	if err != nil {
		return err
	}
	if len(parsed) == 0 {
		parsed = nil
	}
	*s = parsed
	return nil
}
