package control

import (
	"context"
	"testing"
	"time"

	"github.com/G-districts/Gschool-connect/internal/domain"
)

func TestHeartbeatUpdatesPresenceAndTimeline(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	activeSession(t, s, "sess_1", "alice@school.example")

	res, err := s.Heartbeat(ctx, HeartbeatInput{
		Student:     "alice@school.example",
		StudentName: "Alice",
		Tab:         domain.Tab{ID: 1, URL: "https://docs.example/essay", Title: "Essay"},
		Tabs:        []domain.Tab{{ID: 1, URL: "https://docs.example/essay"}},
		TabShots:    map[string]string{"1": "data:image/png;base64,AAA"},
	})
	if err != nil {
		t.Fatalf("Heartbeat() error: %v", err)
	}
	if !res.OK || !res.ExtensionEnabled {
		t.Errorf("Expected enabled heartbeat, got %+v", res)
	}
	if len(res.ActiveForStudent) != 1 || res.ActiveForStudent[0] != "sess_1" {
		t.Errorf("Expected active session surfaced, got %v", res.ActiveForStudent)
	}

	doc, _ := s.Document(ctx)
	pres := doc.Presence["alice@school.example"]
	if pres == nil || pres.StudentName != "Alice" || pres.Tab.URL != "https://docs.example/essay" {
		t.Fatalf("Presence not recorded: %+v", pres)
	}
	if len(doc.History["alice@school.example"]) != 1 {
		t.Errorf("Expected one timeline entry, got %v", doc.History["alice@school.example"])
	}
}

func TestHeartbeatGuestIsNeverPersisted(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	res, err := s.Heartbeat(ctx, HeartbeatInput{
		Student:     "guest42@school.example",
		StudentName: "Guest",
		Tab:         domain.Tab{URL: "https://anything.example"},
	})
	if err != nil {
		t.Fatalf("Heartbeat() error: %v", err)
	}
	if res.ExtensionEnabled {
		t.Error("Guests must get a disabled extension")
	}

	doc, _ := s.Document(ctx)
	if len(doc.Presence) != 0 || len(doc.History) != 0 {
		t.Error("Guest heartbeat must not persist anything")
	}
}

func TestHeartbeatTimelineDeduplicatesRapidSamples(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.Local)
	beat := func(offset time.Duration, url string) {
		t.Helper()
		s.now = func() time.Time { return base.Add(offset) }
		if _, err := s.Heartbeat(ctx, HeartbeatInput{
			Student: "alice@school.example",
			Tab:     domain.Tab{URL: url},
		}); err != nil {
			t.Fatalf("Heartbeat() error: %v", err)
		}
	}

	beat(0, "https://a.example")
	beat(5*time.Second, "https://a.example")  // same URL within the gap: skipped
	beat(8*time.Second, "https://b.example")  // URL change: recorded
	beat(30*time.Second, "https://b.example") // same URL past the gap: recorded

	doc, _ := s.Document(ctx)
	timeline := doc.History["alice@school.example"]
	if len(timeline) != 3 {
		t.Fatalf("Expected 3 timeline entries, got %d: %v", len(timeline), timeline)
	}
}

func TestHeartbeatPrunesClosedTabShots(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.Heartbeat(ctx, HeartbeatInput{
		Student:  "alice@school.example",
		Tabs:     []domain.Tab{{ID: 1}, {ID: 2}},
		TabShots: map[string]string{"1": "shot1", "2": "shot2"},
	}); err != nil {
		t.Fatalf("Heartbeat() error: %v", err)
	}
	// Tab 2 closed.
	if _, err := s.Heartbeat(ctx, HeartbeatInput{
		Student: "alice@school.example",
		Tabs:    []domain.Tab{{ID: 1}},
	}); err != nil {
		t.Fatalf("Heartbeat() error: %v", err)
	}

	doc, _ := s.Document(ctx)
	shots := doc.Presence["alice@school.example"].TabShots
	if _, ok := shots["2"]; ok {
		t.Errorf("Closed tab shot must be pruned, got %v", shots)
	}
	if _, ok := shots["1"]; !ok {
		t.Errorf("Open tab shot must survive, got %v", shots)
	}
}

func TestTimelineQueries(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.Local)
	s.now = func() time.Time { return base }
	if _, err := s.Heartbeat(ctx, HeartbeatInput{
		Student: "alice@school.example", Tab: domain.Tab{URL: "https://a.example"},
	}); err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return base.Add(time.Minute) }
	if _, err := s.Heartbeat(ctx, HeartbeatInput{
		Student: "bob@school.example", Tab: domain.Tab{URL: "https://b.example"},
	}); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Timeline(ctx, "alice@school.example", 0, 0)
	if err != nil {
		t.Fatalf("Timeline() error: %v", err)
	}
	if len(entries) != 1 || entries[0].URL != "https://a.example" {
		t.Errorf("Per-student query wrong: %v", entries)
	}

	entries, err = s.Timeline(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("Timeline() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected both students' entries, got %v", entries)
	}
	if entries[0].Student != "bob@school.example" {
		t.Errorf("Cross-student query must be newest first, got %v", entries)
	}

	entries, _ = s.Timeline(ctx, "alice@school.example", base.Add(time.Hour).Unix(), 0)
	if len(entries) != 0 {
		t.Errorf("Future cutoff must filter everything, got %v", entries)
	}
}

func TestAlertsReportAndClear(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if err := s.ReportAlert(ctx, domain.Alert{Student: "alice@school.example", Score: 0.9}); err != nil {
		t.Fatalf("ReportAlert() error: %v", err)
	}
	if err := s.ReportAlert(ctx, domain.Alert{}); err == nil {
		t.Error("Missing student must fail")
	}

	alerts, err := s.Alerts(ctx, 0)
	if err != nil {
		t.Fatalf("Alerts() error: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Kind != "off_task" {
		t.Errorf("Expected defaulted kind, got %v", alerts)
	}

	if err := s.ClearAlerts(ctx, "alice@school.example"); err != nil {
		t.Fatalf("ClearAlerts() error: %v", err)
	}
	alerts, _ = s.Alerts(ctx, 0)
	if len(alerts) != 0 {
		t.Errorf("Expected no alerts, got %v", alerts)
	}
}

func TestOffTaskCheckVerdicts(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, _, err := s.UpdateClass(ctx, ClassPatch{
		Allowlist: &[]string{"*://*.docs.example/*"},
	}, "teacher@gdistrict.org")
	if err != nil {
		t.Fatalf("UpdateClass() error: %v", err)
	}

	onTask, err := s.OffTaskCheck(ctx, "alice@school.example", "https://www.docs.example/essay")
	if err != nil {
		t.Fatalf("OffTaskCheck() error: %v", err)
	}
	if !onTask {
		t.Error("Allowlisted host must be on task")
	}

	onTask, err = s.OffTaskCheck(ctx, "alice@school.example", "https://roblox.docs.example/play")
	if err != nil {
		t.Fatalf("OffTaskCheck() error: %v", err)
	}
	if onTask {
		t.Error("Bad keyword must override the allowlist")
	}

	onTask, err = s.OffTaskCheck(ctx, "alice@school.example", "https://other.example")
	if err != nil {
		t.Fatalf("OffTaskCheck() error: %v", err)
	}
	if onTask {
		t.Error("Unlisted host must be off task")
	}

	events, err := s.OffTaskEvents(ctx, 0)
	if err != nil {
		t.Fatalf("OffTaskEvents() error: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("Expected 3 recorded verdicts, got %d", len(events))
	}
}

func TestPolicyDrainsPendingAndAppliesOverrides(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	focus := true
	if _, err := s.SetStudentOverride(ctx, "alice@school.example", &focus, nil, ""); err != nil {
		t.Fatalf("SetStudentOverride() error: %v", err)
	}
	if _, err := s.SendStudentCommand(ctx, "alice@school.example", "", domain.Command{
		Type: domain.CommandNotify, Message: "hi",
	}, ""); err != nil {
		t.Fatalf("SendStudentCommand() error: %v", err)
	}

	view, err := s.Policy(ctx, "alice@school.example", "")
	if err != nil {
		t.Fatalf("Policy() error: %v", err)
	}
	if !view.FocusMode {
		t.Error("Student override must force focus mode")
	}
	if len(view.Pending) != 1 || view.Pending[0].Message != "hi" {
		t.Errorf("Expected drained one-shot, got %v", view.Pending)
	}
	if view.BlockedRedirect == "" {
		t.Error("Blocked redirect must have a default")
	}

	// Second poll: mailbox already drained.
	view, _ = s.Policy(ctx, "alice@school.example", "")
	if len(view.Pending) != 0 {
		t.Errorf("Expected empty pending on second poll, got %v", view.Pending)
	}
}
