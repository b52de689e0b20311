// Package queue implements the bounded command queues and their delivery
// semantics: a capped append log per session with per-student read cursors,
// and a capped one-shot mailbox per student.
package queue

import (
	"log/slog"
	"time"

	"github.com/G-districts/Gschool-connect/internal/domain"
)

// EnqueueSession stamps the command with the session id, the enqueue
// timestamp and the session's next sequence number, then appends it to the
// session log, evicting from the front past the cap. The caller has already
// verified the session is active.
func EnqueueSession(doc *domain.Document, sessionID string, cmd domain.Command) domain.Command {
	doc.SessionSeqs[sessionID]++
	cmd.SessionID = sessionID
	cmd.Seq = doc.SessionSeqs[sessionID]
	if cmd.TS == 0 {
		cmd.TS = time.Now().Unix()
	}

	q := append(doc.PendingBySession[sessionID], cmd)
	if len(q) > domain.SessionQueueCap {
		q = q[len(q)-domain.SessionQueueCap:]
	}
	doc.PendingBySession[sessionID] = q
	return cmd
}

// EnqueueStudent appends a one-shot command to the student's mailbox, capped
// at the student queue size. These deliveries bypass session membership.
func EnqueueStudent(doc *domain.Document, studentID string, cmd domain.Command) domain.Command {
	if cmd.TS == 0 {
		cmd.TS = time.Now().Unix()
	}
	q := append(doc.PendingPerStudent[studentID], cmd)
	if len(q) > domain.StudentQueueCap {
		q = q[len(q)-domain.StudentQueueCap:]
	}
	doc.PendingPerStudent[studentID] = q
	return cmd
}

// DrainStudent returns and clears the student's one-shot mailbox.
func DrainStudent(doc *domain.Document, studentID string) []domain.Command {
	out := doc.PendingPerStudent[studentID]
	if len(out) == 0 {
		return nil
	}
	delete(doc.PendingPerStudent, studentID)
	return out
}

// DrainSessions delivers, for each given active session the student is
// enrolled in, every logged command the student has not seen yet, then
// advances that student's cursor. The shared log is never mutated by a read,
// so concurrent enqueues and other students' polls are unaffected. Commands
// whose session stamp does not match the queue they sit in are treated as
// corrupt: skipped, logged, and compacted out of the log.
func DrainSessions(doc *domain.Document, studentID string, activeSessionIDs []string) []domain.Command {
	var out []domain.Command
	for _, sid := range activeSessionIDs {
		sess := doc.FindSession(sid)
		if sess == nil || !sess.Enrolled(studentID) {
			continue
		}

		q := doc.PendingBySession[sid]
		if len(q) == 0 {
			continue
		}

		clean := q[:0]
		dropped := 0
		cursor := cursorFor(doc, sid, studentID)
		for _, cmd := range q {
			if cmd.SessionID != sid {
				dropped++
				continue
			}
			clean = append(clean, cmd)
			if cmd.Seq > cursor {
				out = append(out, cmd)
				cursor = cmd.Seq
			}
		}
		if dropped > 0 {
			slog.Warn("Dropped commands with mismatched session stamp",
				"session_id", sid, "dropped", dropped)
			doc.PendingBySession[sid] = clean
		}
		setCursor(doc, sid, studentID, cursor)
	}
	return out
}

// DropSession discards a session's log, its sequence counter and every
// student cursor for it. Called when the session is deleted.
func DropSession(doc *domain.Document, sessionID string) {
	delete(doc.PendingBySession, sessionID)
	delete(doc.SessionSeqs, sessionID)
	delete(doc.Cursors, sessionID)
}

func cursorFor(doc *domain.Document, sessionID, studentID string) uint64 {
	if m := doc.Cursors[sessionID]; m != nil {
		return m[studentID]
	}
	return 0
}

func setCursor(doc *domain.Document, sessionID, studentID string, seq uint64) {
	m := doc.Cursors[sessionID]
	if m == nil {
		m = make(map[string]uint64)
		doc.Cursors[sessionID] = m
	}
	m[studentID] = seq
}
