package control

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/G-districts/Gschool-connect/internal/domain"
	"github.com/G-districts/Gschool-connect/internal/identity"
	"github.com/G-districts/Gschool-connect/internal/policy"
	"github.com/G-districts/Gschool-connect/internal/queue"
	"github.com/G-districts/Gschool-connect/internal/session"
)

// timelineGapSeconds is the minimum spacing between history samples for the
// same URL.
const timelineGapSeconds = 15

// HeartbeatInput is what a student agent reports on each beat.
type HeartbeatInput struct {
	Student     string            `json:"student"`
	StudentName string            `json:"student_name"`
	Tab         domain.Tab        `json:"tab"`
	Tabs        []domain.Tab      `json:"tabs"`
	Screenshot  string            `json:"screenshot"`
	TabShots    map[string]string `json:"tabshots"`
	ShotLog     []ShotLogEntry    `json:"shot_log"`
}

// ShotLogEntry is one screenshot-history sample inside a heartbeat.
type ShotLogEntry struct {
	TabID   int    `json:"tabId"`
	DataURL string `json:"dataUrl"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

// HeartbeatResult is returned to the agent: the global kill switch plus the
// student's live session view.
type HeartbeatResult struct {
	OK               bool                   `json:"ok"`
	ServerTime       int64                  `json:"server_time"`
	ExtensionEnabled bool                   `json:"extension_enabled"`
	ActiveForStudent []string               `json:"active_for_student,omitempty"`
	Effective        domain.EffectivePolicy `json:"effective_state"`
}

// Heartbeat updates presence, timeline and screenshot history for the student
// and returns their current session view. Guest identities get a disabled
// response and nothing is persisted for them.
func (s *Service) Heartbeat(ctx context.Context, in HeartbeatInput) (HeartbeatResult, error) {
	now := s.now().Unix()
	if identity.IsGuest(in.Student, in.StudentName) {
		return HeartbeatResult{OK: true, ServerTime: now, ExtensionEnabled: false}, nil
	}

	res := HeartbeatResult{OK: true, ServerTime: now}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		res.ExtensionEnabled = d.ExtensionEnabled
		if in.Student == "" {
			return nil
		}

		pres := d.Presence[in.Student]
		if pres == nil {
			pres = &domain.Presence{}
			d.Presence[in.Student] = pres
		}
		pres.LastSeen = now
		pres.StudentName = in.StudentName
		pres.Tab = in.Tab
		pres.Tabs = in.Tabs
		pres.Screenshot = in.Screenshot
		pres.TabShots = mergeTabShots(pres.TabShots, in.TabShots, in.Tabs)

		s.recordTimeline(d, in.Student, in.Tab, now)
		s.recordShotLog(d, in.Student, in.ShotLog, now)

		res.ActiveForStudent = session.ActiveForStudent(d, in.Student, s.now())
		res.Effective = policy.Compose(d, in.Student, s.now())
		return nil
	})
	if err != nil {
		return HeartbeatResult{}, fmt.Errorf("heartbeat for %s: %w", in.Student, err)
	}
	return res, nil
}

// mergeTabShots folds new per-tab screenshots in, then drops shots for tabs
// that are no longer open.
func mergeTabShots(have, incoming map[string]string, tabs []domain.Tab) map[string]string {
	if have == nil {
		have = map[string]string{}
	}
	for k, v := range incoming {
		have[k] = v
	}
	open := make(map[string]struct{}, len(tabs))
	for _, t := range tabs {
		open[fmt.Sprint(t.ID)] = struct{}{}
	}
	for k := range have {
		if _, ok := open[k]; !ok {
			delete(have, k)
		}
	}
	return have
}

func (s *Service) recordTimeline(d *domain.Document, student string, tab domain.Tab, now int64) {
	u := strings.TrimSpace(tab.URL)
	if u == "" {
		return
	}
	timeline := d.History[student]
	if len(timeline) > 0 {
		last := timeline[len(timeline)-1]
		if last.URL == u && now-last.TS < timelineGapSeconds {
			return
		}
	}
	timeline = append(timeline, domain.TimelineEntry{
		TS:         now,
		Title:      strings.TrimSpace(tab.Title),
		URL:        u,
		FavIconURL: tab.FavIconURL,
	})
	if len(timeline) > domain.TimelineCap {
		timeline = timeline[len(timeline)-domain.TimelineCap:]
	}
	d.History[student] = timeline
}

func (s *Service) recordShotLog(d *domain.Document, student string, shots []ShotLogEntry, now int64) {
	if len(shots) == 0 {
		return
	}
	if len(shots) > domain.ShotsPerHeartbeat {
		shots = shots[:domain.ShotsPerHeartbeat]
	}
	hist := d.Screenshots[student]
	for _, sh := range shots {
		hist = append(hist, domain.Screenshot{
			TS:      now,
			TabID:   sh.TabID,
			DataURL: sh.DataURL,
			Title:   sh.Title,
			URL:     sh.URL,
		})
	}
	if len(hist) > domain.ScreenshotCap {
		hist = hist[len(hist)-domain.ScreenshotCap:]
	}
	d.Screenshots[student] = hist
}

// Presence returns the live presence map.
func (s *Service) Presence(ctx context.Context) (map[string]*domain.Presence, error) {
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	return d.Presence, nil
}

// Timeline returns history entries. With a student, entries since the cutoff
// in ascending order; without, all students' entries newest first, each
// stamped with its student id.
func (s *Service) Timeline(ctx context.Context, student string, since int64, limit int) ([]domain.TimelineEntry, error) {
	limit = clamp(limit, 1, 1000, 200)
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := []domain.TimelineEntry{}
	if student != "" {
		for _, e := range d.History[student] {
			if e.TS >= since {
				out = append(out, e)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].TS < out[j].TS })
	} else {
		for sid, entries := range d.History {
			for _, e := range entries {
				if e.TS >= since {
					e.Student = sid
					out = append(out, e)
				}
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].TS > out[j].TS })
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Screenshots returns screenshot history, per student or across everyone
// newest first.
func (s *Service) Screenshots(ctx context.Context, student string, limit int) ([]domain.Screenshot, error) {
	limit = clamp(limit, 1, 500, 100)
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := []domain.Screenshot{}
	if student != "" {
		for _, sh := range d.Screenshots[student] {
			sh.Student = student
			out = append(out, sh)
		}
	} else {
		for sid, shots := range d.Screenshots {
			for _, sh := range shots {
				sh.Student = sid
				out = append(out, sh)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].TS > out[j].TS })
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ReportAlert records an off-task (or similar) alert about a student.
func (s *Service) ReportAlert(ctx context.Context, a domain.Alert) error {
	if a.Student == "" {
		return fmt.Errorf("%w: student required", domain.ErrValidation)
	}
	if a.Kind == "" {
		a.Kind = "off_task"
	}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		a.TS = s.now().Unix()
		d.Alerts = append(d.Alerts, a)
		if len(d.Alerts) > domain.AlertCap {
			d.Alerts = d.Alerts[len(d.Alerts)-domain.AlertCap:]
		}
		s.audit(d, domain.AuditEntry{Event: "alert", Student: a.Student, Detail: a.Kind})
		return nil
	})
	if err == nil {
		s.publish("alert", a)
	}
	return err
}

// Alerts returns the most recent alerts.
func (s *Service) Alerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	limit = clamp(limit, 1, domain.AlertCap, 200)
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := d.Alerts
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ClearAlerts drops alerts for one student, or all of them.
func (s *Service) ClearAlerts(ctx context.Context, student string) error {
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if student == "" {
			d.Alerts = []domain.Alert{}
			return nil
		}
		kept := d.Alerts[:0]
		for _, a := range d.Alerts {
			if a.Student != student {
				kept = append(kept, a)
			}
		}
		d.Alerts = kept
		return nil
	})
	return err
}

var allowPattern = regexp.MustCompile(`\*\://\*\.(.+?)/\*`)

// offTaskKeywords fail a URL regardless of the allowlist.
var offTaskKeywords = []string{"coolmath", "roblox", "twitch", "steam", "epicgames"}

// OffTaskCheck verifies a URL against the effective allowlist (class list,
// replaced by an allow-type current scene) and records the verdict.
func (s *Service) OffTaskCheck(ctx context.Context, student, rawURL string) (bool, error) {
	if student == "" || rawURL == "" {
		return false, fmt.Errorf("%w: student and url required", domain.ErrValidation)
	}

	var event domain.OffTaskEvent
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		allowed := s.effectiveAllowDomains(d)

		host := ""
		if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
			host = strings.ToLower(u.Hostname())
		}
		onTask := false
		for dom := range allowed {
			if host != "" && strings.HasSuffix(host, dom) {
				onTask = true
				break
			}
		}
		lower := strings.ToLower(rawURL)
		for _, kw := range offTaskKeywords {
			if strings.Contains(lower, kw) {
				onTask = false
				break
			}
		}

		event = domain.OffTaskEvent{Student: student, URL: rawURL, TS: s.now().Unix(), OnTask: onTask}
		d.OffTaskEvents = append(d.OffTaskEvents, event)
		if len(d.OffTaskEvents) > domain.OffTaskCap {
			d.OffTaskEvents = d.OffTaskEvents[len(d.OffTaskEvents)-domain.OffTaskCap:]
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("offtask check: %w", err)
	}
	s.publish("offtask", event)
	return event.OnTask, nil
}

// effectiveAllowDomains extracts bare domains from the class allowlist, with
// an allow-type current scene replacing the class list.
func (s *Service) effectiveAllowDomains(d *domain.Document) map[string]struct{} {
	patterns := d.Classes[domain.DefaultClassID].Allowlist
	scenes := s.scenes.Load("")
	if scenes.Current != nil {
		if sc := scenes.Find(scenes.Current.ID); sc != nil && sc.Type == domain.SceneAllowed {
			patterns = sc.Allow
		}
	}
	out := make(map[string]struct{}, len(patterns))
	for _, p := range patterns {
		if m := allowPattern.FindStringSubmatch(p); m != nil {
			out[strings.ToLower(m[1])] = struct{}{}
		}
	}
	return out
}

// OffTaskEvents returns the most recent verdicts, used by the dashboard feed
// catch-up.
func (s *Service) OffTaskEvents(ctx context.Context, limit int) ([]domain.OffTaskEvent, error) {
	limit = clamp(limit, 1, domain.OffTaskCap, 200)
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := d.OffTaskEvents
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// PolicyView is everything the extension needs from one policy poll.
type PolicyView struct {
	BlockedRedirect string                     `json:"blocked_redirect"`
	Categories      map[string]domain.Category `json:"categories"`
	FocusMode       bool                       `json:"focus_mode"`
	Paused          bool                       `json:"paused"`
	Announcement    string                     `json:"announcement"`
	Class           ClassInfo                  `json:"class"`
	Allowlist       []string                   `json:"allowlist"`
	TeacherBlocks   []string                   `json:"teacher_blocks"`
	ChatEnabled     bool                       `json:"chat_enabled"`
	Pending         []domain.Command           `json:"pending"`
	TS              int64                      `json:"ts"`
	CurrentScene    *domain.SceneRef           `json:"current_scene"`
	ActiveSessions  []string                   `json:"active_sessions"`
}

// ClassInfo is the legacy class block in a policy response.
type ClassInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// defaultBlockedRedirect is shown when no redirect is configured.
const defaultBlockedRedirect = "https://blocked.gdistrict.org/Gschool%20block"

// Policy assembles the full extension policy for a student: class flags with
// per-student overrides, the scene layer for the named session scope, and the
// drained one-shot mailbox.
func (s *Service) Policy(ctx context.Context, student, sessionID string) (PolicyView, error) {
	view := PolicyView{}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		cls := d.Classes[domain.DefaultClassID]

		focus := cls.FocusMode
		paused := cls.Paused
		if ov := d.StudentOverrides[student]; ov != nil && student != "" {
			if ov.FocusMode != nil {
				focus = *ov.FocusMode
			}
			if ov.Paused != nil {
				paused = *ov.Paused
			}
		}

		allowlist := append([]string{}, cls.Allowlist...)
		blocks := append([]string{}, cls.TeacherBlocks...)

		scenes := s.scenes.Load(sessionID)
		merged, extraBlocks := policy.ApplyScene(domain.EffectivePolicy{
			FocusMode: focus,
			Allowlist: allowlist,
		}, scenes)
		focus = merged.FocusMode
		allowlist = merged.Allowlist
		blocks = append(blocks, extraBlocks...)

		pending := queue.DrainStudent(d, student)
		if pending == nil {
			pending = []domain.Command{}
		}

		redirect := d.Settings.BlockedRedirect
		if redirect == "" {
			redirect = defaultBlockedRedirect
		}

		view = PolicyView{
			BlockedRedirect: redirect,
			Categories:      d.Categories,
			FocusMode:       focus,
			Paused:          paused,
			Announcement:    d.Announcement,
			Class:           ClassInfo{ID: domain.DefaultClassID, Name: cls.Name, Active: cls.Active},
			Allowlist:       allowlist,
			TeacherBlocks:   blocks,
			ChatEnabled:     d.Settings.ChatEnabled,
			Pending:         pending,
			TS:              s.now().Unix(),
			CurrentScene:    scenes.Current,
		}
		if student != "" {
			view.ActiveSessions = session.ActiveForStudent(d, student, s.now())
		}
		return nil
	})
	if err != nil {
		return PolicyView{}, fmt.Errorf("compose policy: %w", err)
	}
	return view, nil
}

func clamp(v, min, max, fallback int) int {
	if v == 0 {
		return fallback
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
