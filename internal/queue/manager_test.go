package queue

import (
	"fmt"
	"testing"

	"github.com/G-districts/Gschool-connect/internal/domain"
)

func docWithSession(id string, students ...string) *domain.Document {
	doc := domain.NewDocument()
	doc.Sessions = []*domain.Session{{ID: id, Name: id, Students: students}}
	return doc
}

func TestEnqueueSessionCapKeepsNewest(t *testing.T) {
	doc := docWithSession("sess_1", "alice")

	for i := 0; i < 205; i++ {
		EnqueueSession(doc, "sess_1", domain.Command{
			Type:    domain.CommandNotify,
			Message: fmt.Sprintf("msg-%d", i),
		})
	}

	q := doc.PendingBySession["sess_1"]
	if len(q) != domain.SessionQueueCap {
		t.Fatalf("Expected %d queued commands, got %d", domain.SessionQueueCap, len(q))
	}
	if q[0].Message != "msg-5" {
		t.Errorf("Expected oldest surviving command msg-5, got %s", q[0].Message)
	}
	if q[len(q)-1].Message != "msg-204" {
		t.Errorf("Expected newest command msg-204, got %s", q[len(q)-1].Message)
	}
	// Order preserved, sequence monotonic.
	for i := 1; i < len(q); i++ {
		if q[i].Seq != q[i-1].Seq+1 {
			t.Fatalf("Sequence gap at %d: %d -> %d", i, q[i-1].Seq, q[i].Seq)
		}
	}
}

func TestEnqueueStampsImmutableFields(t *testing.T) {
	doc := docWithSession("sess_1", "alice")

	cmd := EnqueueSession(doc, "sess_1", domain.Command{Type: domain.CommandNotify})
	if cmd.SessionID != "sess_1" {
		t.Errorf("Expected session stamp sess_1, got %q", cmd.SessionID)
	}
	if cmd.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", cmd.Seq)
	}
	if cmd.TS == 0 {
		t.Error("Expected enqueue timestamp to be set")
	}
}

func TestDrainStudentIsIdempotentTerminal(t *testing.T) {
	doc := domain.NewDocument()
	EnqueueStudent(doc, "alice", domain.Command{Type: domain.CommandCloseTabs})
	EnqueueStudent(doc, "alice", domain.Command{Type: domain.CommandRestoreTabs})

	first := DrainStudent(doc, "alice")
	if len(first) != 2 {
		t.Fatalf("Expected 2 commands on first drain, got %d", len(first))
	}
	if second := DrainStudent(doc, "alice"); len(second) != 0 {
		t.Errorf("Expected empty second drain, got %d commands", len(second))
	}
}

func TestEnqueueStudentCap(t *testing.T) {
	doc := domain.NewDocument()
	for i := 0; i < domain.StudentQueueCap+7; i++ {
		EnqueueStudent(doc, "bob", domain.Command{Type: domain.CommandNotify, Message: fmt.Sprintf("m%d", i)})
	}
	q := doc.PendingPerStudent["bob"]
	if len(q) != domain.StudentQueueCap {
		t.Fatalf("Expected cap %d, got %d", domain.StudentQueueCap, len(q))
	}
	if q[0].Message != "m7" {
		t.Errorf("Expected oldest m7, got %s", q[0].Message)
	}
}

func TestDrainSessionsEveryStudentSeesEveryCommand(t *testing.T) {
	doc := docWithSession("sess_1", "alice", "bob")
	EnqueueSession(doc, "sess_1", domain.Command{Type: domain.CommandNotify, Message: "hi"})

	got := DrainSessions(doc, "alice", []string{"sess_1"})
	if len(got) != 1 || got[0].Message != "hi" {
		t.Fatalf("alice: expected [hi], got %v", got)
	}

	// The first poll must not consume the broadcast for the second student.
	got = DrainSessions(doc, "bob", []string{"sess_1"})
	if len(got) != 1 || got[0].Message != "hi" {
		t.Fatalf("bob: expected [hi], got %v", got)
	}

	// But each student sees a command exactly once.
	if got := DrainSessions(doc, "alice", []string{"sess_1"}); len(got) != 0 {
		t.Errorf("alice second poll: expected empty, got %v", got)
	}
}

func TestDrainSessionsConcurrentEnqueueSurvives(t *testing.T) {
	doc := docWithSession("sess_1", "alice")
	EnqueueSession(doc, "sess_1", domain.Command{Type: domain.CommandNotify, Message: "one"})

	if got := DrainSessions(doc, "alice", []string{"sess_1"}); len(got) != 1 {
		t.Fatalf("Expected 1 command, got %d", len(got))
	}

	// A command enqueued after the read remains for the next poll.
	EnqueueSession(doc, "sess_1", domain.Command{Type: domain.CommandNotify, Message: "two"})
	got := DrainSessions(doc, "alice", []string{"sess_1"})
	if len(got) != 1 || got[0].Message != "two" {
		t.Fatalf("Expected [two], got %v", got)
	}
}

func TestDrainSessionsSkipsUnenrolledAndUnknown(t *testing.T) {
	doc := docWithSession("sess_1", "alice")
	EnqueueSession(doc, "sess_1", domain.Command{Type: domain.CommandNotify})

	if got := DrainSessions(doc, "mallory", []string{"sess_1"}); len(got) != 0 {
		t.Errorf("Unenrolled student should get nothing, got %v", got)
	}
	if got := DrainSessions(doc, "alice", []string{"ghost"}); len(got) != 0 {
		t.Errorf("Unknown session should deliver nothing, got %v", got)
	}
}

func TestDrainSessionsDropsMismatchedStamps(t *testing.T) {
	doc := docWithSession("sess_1", "alice")
	EnqueueSession(doc, "sess_1", domain.Command{Type: domain.CommandNotify, Message: "good"})
	// Simulate queue corruption: a command stamped for another session.
	doc.PendingBySession["sess_1"] = append(doc.PendingBySession["sess_1"],
		domain.Command{Type: domain.CommandNotify, Message: "evil", SessionID: "sess_2", Seq: 99})

	got := DrainSessions(doc, "alice", []string{"sess_1"})
	if len(got) != 1 || got[0].Message != "good" {
		t.Fatalf("Expected only the well-stamped command, got %v", got)
	}
	// Corrupt entry compacted out of the log.
	if len(doc.PendingBySession["sess_1"]) != 1 {
		t.Errorf("Expected corrupt command dropped from the log, got %v", doc.PendingBySession["sess_1"])
	}
}

func TestDropSession(t *testing.T) {
	doc := docWithSession("sess_1", "alice")
	EnqueueSession(doc, "sess_1", domain.Command{Type: domain.CommandNotify})
	DrainSessions(doc, "alice", []string{"sess_1"})

	DropSession(doc, "sess_1")
	if _, ok := doc.PendingBySession["sess_1"]; ok {
		t.Error("Expected pending log removed")
	}
	if _, ok := doc.SessionSeqs["sess_1"]; ok {
		t.Error("Expected sequence counter removed")
	}
	if _, ok := doc.Cursors["sess_1"]; ok {
		t.Error("Expected cursors removed")
	}
}
