package policy

import (
	"reflect"
	"testing"
	"time"

	"github.com/G-districts/Gschool-connect/internal/domain"
)

var now = time.Date(2026, 1, 14, 10, 30, 0, 0, time.Local)

func activeSession(id string, students []string, c domain.Controls) *domain.Session {
	return &domain.Session{ID: id, Name: id, Students: students, Controls: c, Manual: true}
}

func TestComposeMergesOverlappingSessions(t *testing.T) {
	doc := domain.NewDocument()
	doc.Sessions = []*domain.Session{
		activeSession("sess_a", []string{"alice"}, domain.Controls{
			FocusMode: true, Allowlist: []string{"a.com"},
		}),
		activeSession("sess_b", []string{"alice"}, domain.Controls{
			FocusMode: false, Allowlist: []string{"b.com"},
		}),
	}

	got := Compose(doc, "alice", now)
	if !got.FocusMode {
		t.Error("Expected focusMode true when any session enables it")
	}
	if !reflect.DeepEqual(got.Allowlist, []string{"a.com", "b.com"}) {
		t.Errorf("Expected allowlist union, got %v", got.Allowlist)
	}
	if !reflect.DeepEqual(got.SessionIDs, []string{"sess_a", "sess_b"}) {
		t.Errorf("Expected both contributing sessions, got %v", got.SessionIDs)
	}
}

func TestComposeFirstExamURLWins(t *testing.T) {
	doc := domain.NewDocument()
	doc.Sessions = []*domain.Session{
		activeSession("sess_a", []string{"alice"}, domain.Controls{ExamMode: true}),
		activeSession("sess_b", []string{"alice"}, domain.Controls{ExamMode: true, ExamURL: "https://exam.example/1"}),
		activeSession("sess_c", []string{"alice"}, domain.Controls{ExamMode: true, ExamURL: "https://exam.example/2"}),
	}

	got := Compose(doc, "alice", now)
	if !got.ExamMode {
		t.Error("Expected examMode true")
	}
	if got.ExamURL != "https://exam.example/1" {
		t.Errorf("Expected first non-empty exam URL to win, got %q", got.ExamURL)
	}
}

func TestComposeIgnoresInactiveAndUnenrolled(t *testing.T) {
	doc := domain.NewDocument()
	inactive := activeSession("sess_off", []string{"alice"}, domain.Controls{FocusMode: true})
	inactive.Manual = false
	doc.Sessions = []*domain.Session{
		inactive,
		activeSession("sess_other", []string{"bob"}, domain.Controls{FocusMode: true}),
	}

	got := Compose(doc, "alice", now)
	if got.FocusMode || len(got.SessionIDs) != 0 {
		t.Errorf("Expected empty policy, got %+v", got)
	}
}

func TestApplySceneAllowed(t *testing.T) {
	p := domain.EffectivePolicy{FocusMode: false, Allowlist: []string{"a.com"}, ExamMode: true}
	scenes := &domain.SceneSet{
		Allowed: []domain.Scene{{ID: "s1", Type: domain.SceneAllowed, Allow: []string{"math.example"}}},
		Current: &domain.SceneRef{ID: "s1", Type: domain.SceneAllowed},
	}

	got, blocks := ApplyScene(p, scenes)
	if !got.FocusMode {
		t.Error("Allow-type scene should force focus mode")
	}
	if !reflect.DeepEqual(got.Allowlist, []string{"math.example"}) {
		t.Errorf("Allow-type scene should replace the allowlist, got %v", got.Allowlist)
	}
	if !got.ExamMode {
		t.Error("Scene layer must never demote exam mode")
	}
	if blocks != nil {
		t.Errorf("Allow-type scene should not add blocks, got %v", blocks)
	}
}

func TestApplySceneBlocked(t *testing.T) {
	p := domain.EffectivePolicy{Allowlist: []string{"a.com"}}
	scenes := &domain.SceneSet{
		Blocked: []domain.Scene{{ID: "s2", Type: domain.SceneBlocked, Block: []string{"games.example"}}},
		Current: &domain.SceneRef{ID: "s2", Type: domain.SceneBlocked},
	}

	got, blocks := ApplyScene(p, scenes)
	if got.FocusMode {
		t.Error("Block-type scene must not touch focus mode")
	}
	if !reflect.DeepEqual(got.Allowlist, []string{"a.com"}) {
		t.Errorf("Block-type scene must not touch the allowlist, got %v", got.Allowlist)
	}
	if !reflect.DeepEqual(blocks, []string{"games.example"}) {
		t.Errorf("Expected scene block patterns, got %v", blocks)
	}
}

func TestApplySceneNoCurrent(t *testing.T) {
	p := domain.EffectivePolicy{Allowlist: []string{"a.com"}}
	got, blocks := ApplyScene(p, &domain.SceneSet{})
	if !reflect.DeepEqual(got, p) || blocks != nil {
		t.Errorf("No current scene should be a no-op, got %+v blocks %v", got, blocks)
	}
}
