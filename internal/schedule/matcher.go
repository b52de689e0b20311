// Package schedule decides whether schedule entries are currently open.
// Matching is pure: no clock access, no mutation, and malformed entries fail
// closed so one bad entry cannot mask the rest of a schedule.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/G-districts/Gschool-connect/internal/domain"
)

// Match reports whether a single entry's window contains now. Unknown entry
// types and unparseable fields return false.
func Match(entry domain.ScheduleEntry, now time.Time) bool {
	switch entry.Type {
	case domain.EntryWeekly:
		ok, err := weeklyMatch(entry, now)
		return err == nil && ok
	case domain.EntryOneOff:
		ok, err := oneOffMatch(entry, now)
		return err == nil && ok
	default:
		return false
	}
}

// MatchErr is Match with the parse error exposed, for callers that log
// malformed entries before failing closed.
func MatchErr(entry domain.ScheduleEntry, now time.Time) (bool, error) {
	switch entry.Type {
	case domain.EntryWeekly:
		return weeklyMatch(entry, now)
	case domain.EntryOneOff:
		return oneOffMatch(entry, now)
	default:
		return false, fmt.Errorf("unknown schedule entry type %q", entry.Type)
	}
}

// Active reports whether any entry in the schedule matches now (logical OR).
func Active(s domain.Schedule, now time.Time) bool {
	for _, entry := range s.Entries {
		if Match(entry, now) {
			return true
		}
	}
	return false
}

// weeklyMatch checks the local weekday and same-day clock window, both ends
// inclusive. An end earlier than start never matches; windows do not wrap
// past midnight.
func weeklyMatch(entry domain.ScheduleEntry, now time.Time) (bool, error) {
	if len(entry.Days) == 0 {
		return false, fmt.Errorf("weekly entry has no days")
	}

	weekday := mondayWeekday(now.Weekday())
	found := false
	for _, d := range entry.Days {
		if d == weekday {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}

	startH, startM, err := parseClock(entry.Start)
	if err != nil {
		return false, fmt.Errorf("weekly start: %w", err)
	}
	endH, endM, err := parseClock(entry.End)
	if err != nil {
		return false, fmt.Errorf("weekly end: %w", err)
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), startH, startM, 0, 0, now.Location())
	end := time.Date(now.Year(), now.Month(), now.Day(), endH, endM, 0, 0, now.Location())
	return !now.Before(start) && !now.After(end), nil
}

// oneOffMatch checks start <= now <= end over absolute instants.
func oneOffMatch(entry domain.ScheduleEntry, now time.Time) (bool, error) {
	start, err := parseInstant(entry.StartISO)
	if err != nil {
		return false, fmt.Errorf("oneoff start: %w", err)
	}
	end, err := parseInstant(entry.EndISO)
	if err != nil {
		return false, fmt.Errorf("oneoff end: %w", err)
	}
	return !now.Before(start) && !now.After(end), nil
}

// mondayWeekday converts Go's Sunday-based weekday to the Monday=0 numbering
// schedules are stored in.
func mondayWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// parseClock parses "HH:MM" (and tolerates "HH:MM:SS" by ignoring seconds).
func parseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("clock time %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("clock time %q: %w", s, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("clock time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock time %q out of range", s)
	}
	return hour, minute, nil
}

// parseInstant parses an ISO-8601 timestamp, accepting both "Z" and explicit
// offsets, and a bare local datetime as a fallback.
func parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("timestamp %q: unrecognized format", s)
}
