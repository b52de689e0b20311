// Package session maintains the authoritative active-session set.
package session

import (
	"log/slog"
	"sort"
	"time"

	"github.com/G-districts/Gschool-connect/internal/domain"
	"github.com/G-districts/Gschool-connect/internal/schedule"
)

// Reconcile recomputes the active set for the document at the given instant.
// A session is active iff it is schedule-active or its manual flag is set —
// the set is a pure function of (sessions, manual flags, now), so stale cache
// entries and ids of deleted sessions fall out on every pass. The document's
// own cache is not touched; callers persist the result.
func Reconcile(doc *domain.Document, now time.Time) []string {
	out := make([]string, 0, len(doc.Sessions))
	for _, sess := range doc.Sessions {
		if sess.Manual || scheduleActive(sess, now) {
			out = append(out, sess.ID)
		}
	}
	sort.Strings(out)
	return out
}

// Apply reconciles and writes the result back into the document's cache.
func Apply(doc *domain.Document, now time.Time) []string {
	doc.ActiveSessions = Reconcile(doc, now)
	return doc.ActiveSessions
}

// ActiveForStudent returns the active session ids whose roster contains the
// student, in session enumeration order.
func ActiveForStudent(doc *domain.Document, studentID string, now time.Time) []string {
	active := make(map[string]struct{})
	for _, sid := range Apply(doc, now) {
		active[sid] = struct{}{}
	}

	var out []string
	for _, sess := range doc.Sessions {
		if _, ok := active[sess.ID]; ok && sess.Enrolled(studentID) {
			out = append(out, sess.ID)
		}
	}
	return out
}

// Start sets the manual override and activates the session immediately.
func Start(doc *domain.Document, sessionID string) error {
	sess := doc.FindSession(sessionID)
	if sess == nil {
		return domain.ErrSessionNotFound
	}
	sess.Manual = true
	if !doc.IsActive(sessionID) {
		doc.ActiveSessions = append(doc.ActiveSessions, sessionID)
		sort.Strings(doc.ActiveSessions)
	}
	return nil
}

// End clears the manual override and deactivates immediately. A session whose
// schedule window is still open re-enters the active set on the next
// reconciliation; End only cancels the manual override.
func End(doc *domain.Document, sessionID string) error {
	sess := doc.FindSession(sessionID)
	if sess == nil {
		return domain.ErrSessionNotFound
	}
	sess.Manual = false
	out := doc.ActiveSessions[:0]
	for _, sid := range doc.ActiveSessions {
		if sid != sessionID {
			out = append(out, sid)
		}
	}
	doc.ActiveSessions = out
	return nil
}

// scheduleActive wraps the matcher and logs malformed entries once per pass
// before failing them closed.
func scheduleActive(sess *domain.Session, now time.Time) bool {
	for _, entry := range sess.Schedule.Entries {
		ok, err := schedule.MatchErr(entry, now)
		if err != nil {
			slog.Warn("Skipping malformed schedule entry", "session_id", sess.ID, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
