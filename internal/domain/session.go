// Package domain contains core domain types for G-School Connect.
package domain

// Controls are the policy knobs a session applies to its enrolled students.
type Controls struct {
	FocusMode bool     `json:"focusMode"`
	Allowlist []string `json:"allowlist"`
	ExamMode  bool     `json:"examMode"`
	ExamURL   string   `json:"examUrl"`
}

// Schedule entry kinds.
const (
	EntryWeekly = "weekly"
	EntryOneOff = "oneoff"
)

// ScheduleEntry is a tagged time window. Weekly entries use local weekday
// numbers 0-6 and same-day "HH:MM" clock times; an end before start never
// matches (midnight-spanning windows are not supported). One-off entries use
// inclusive ISO-8601 instants.
type ScheduleEntry struct {
	Type     string `json:"type"`
	Days     []int  `json:"days,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	StartISO string `json:"startISO,omitempty"`
	EndISO   string `json:"endISO,omitempty"`
}

// Schedule is an ordered list of entries; a session is schedule-active if any
// entry matches.
type Schedule struct {
	Entries []ScheduleEntry `json:"entries"`
}

// Session is a teacher-defined group of students sharing a command queue and
// policy controls, active either by schedule or by manual override.
type Session struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Teacher  string   `json:"teacher"`
	Students []string `json:"students"`
	Controls Controls `json:"controls"`
	Schedule Schedule `json:"schedule"`
	Manual   bool     `json:"manual"`
}

// Enrolled reports whether the student is on this session's roster.
func (s *Session) Enrolled(studentID string) bool {
	for _, id := range s.Students {
		if id == studentID {
			return true
		}
	}
	return false
}

// Roster returns the enrolled-student set for request-scoped filtering.
func (s *Session) Roster() map[string]struct{} {
	roster := make(map[string]struct{}, len(s.Students))
	for _, id := range s.Students {
		roster[id] = struct{}{}
	}
	return roster
}
