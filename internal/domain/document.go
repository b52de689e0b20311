package domain

// History and queue caps. Oldest entries are evicted first on overflow.
const (
	SessionQueueCap   = 200
	StudentQueueCap   = 50
	TimelineCap       = 500
	ScreenshotCap     = 200
	AlertCap          = 500
	OffTaskCap        = 2000
	RaiseCap          = 200
	ChatCap           = 200
	AuditCap          = 500
	ExamViolationCap  = 500
	ShotsPerHeartbeat = 10
)

// Settings are document-level toggles shared by every class.
type Settings struct {
	ChatEnabled     bool   `json:"chat_enabled"`
	BlockedRedirect string `json:"blocked_redirect,omitempty"`
	Passcode        string `json:"passcode,omitempty"`
}

// Class is the legacy class-wide control block (single "period1" class in the
// original deployment), layered under session policy by /api/policy.
type Class struct {
	Name          string   `json:"name"`
	Active        bool     `json:"active"`
	FocusMode     bool     `json:"focus_mode"`
	Paused        bool     `json:"paused"`
	Allowlist     []string `json:"allowlist"`
	TeacherBlocks []string `json:"teacher_blocks"`
	Students      []string `json:"students"`
}

// DefaultClassID is the single legacy class every deployment starts with.
const DefaultClassID = "period1"

// Document is the whole shared state: sessions, queues, presence, history and
// the rest. It is loaded, mutated and written back as a unit; the store
// serializes those passes and bumps Version on every save.
type Document struct {
	Version  uint64            `json:"version"`
	Settings Settings          `json:"settings"`
	Classes  map[string]*Class `json:"classes"`

	Students       []Student  `json:"students"`
	Sessions       []*Session `json:"sessions"`
	ActiveSessions []string   `json:"active_sessions"`

	PendingBySession  map[string][]Command `json:"pending_by_session"`
	PendingPerStudent map[string][]Command `json:"pending_per_student"`
	// SessionSeqs assigns each session queue a monotonic sequence counter;
	// Cursors track, per session then per student, the highest delivered seq.
	SessionSeqs map[string]uint64            `json:"session_seqs"`
	Cursors     map[string]map[string]uint64 `json:"cursors"`

	StudentOverrides map[string]*Override `json:"student_overrides"`

	Presence    map[string]*Presence       `json:"presence"`
	History     map[string][]TimelineEntry `json:"history"`
	Screenshots map[string][]Screenshot    `json:"screenshots"`

	Alerts         []Alert          `json:"alerts"`
	OffTaskEvents  []OffTaskEvent   `json:"offtask_events"`
	Raises         []RaiseHand      `json:"raises"`
	Polls          map[string]*Poll `json:"polls"`
	AttentionCheck *AttentionCheck  `json:"attention_check,omitempty"`
	ExamState      ExamState        `json:"exam_state"`
	ExamViolations []ExamViolation  `json:"exam_violations"`

	Chat  map[string][]ChatMessage `json:"chat"`
	Audit []AuditEntry             `json:"audit"`

	Announcement     string              `json:"announcements"`
	ExtensionEnabled bool                `json:"extension_enabled"`
	Categories       map[string]Category `json:"categories"`

	// Global admin overrides, independent of any class or session.
	Allowlist     []string `json:"allowlist"`
	TeacherBlocks []string `json:"teacher_blocks"`
}

// NewDocument returns a document with the default class and all containers
// initialized.
func NewDocument() *Document {
	d := &Document{ExtensionEnabled: true}
	d.EnsureDefaults()
	return d
}

// EnsureDefaults repairs missing maps and the default class after a load, so
// one malformed file never takes the whole service down.
func (d *Document) EnsureDefaults() {
	if d.Classes == nil {
		d.Classes = make(map[string]*Class)
	}
	if _, ok := d.Classes[DefaultClassID]; !ok {
		d.Classes[DefaultClassID] = &Class{
			Name:          "Period 1",
			Active:        true,
			Allowlist:     []string{},
			TeacherBlocks: []string{},
			Students:      []string{},
		}
	}
	if d.Students == nil {
		d.Students = []Student{}
	}
	if d.Sessions == nil {
		d.Sessions = []*Session{}
	}
	if d.ActiveSessions == nil {
		d.ActiveSessions = []string{}
	}
	if d.PendingBySession == nil {
		d.PendingBySession = make(map[string][]Command)
	}
	if d.PendingPerStudent == nil {
		d.PendingPerStudent = make(map[string][]Command)
	}
	if d.SessionSeqs == nil {
		d.SessionSeqs = make(map[string]uint64)
	}
	if d.Cursors == nil {
		d.Cursors = make(map[string]map[string]uint64)
	}
	if d.StudentOverrides == nil {
		d.StudentOverrides = make(map[string]*Override)
	}
	if d.Presence == nil {
		d.Presence = make(map[string]*Presence)
	}
	if d.History == nil {
		d.History = make(map[string][]TimelineEntry)
	}
	if d.Screenshots == nil {
		d.Screenshots = make(map[string][]Screenshot)
	}
	if d.Alerts == nil {
		d.Alerts = []Alert{}
	}
	if d.OffTaskEvents == nil {
		d.OffTaskEvents = []OffTaskEvent{}
	}
	if d.Raises == nil {
		d.Raises = []RaiseHand{}
	}
	if d.Polls == nil {
		d.Polls = make(map[string]*Poll)
	}
	if d.ExamViolations == nil {
		d.ExamViolations = []ExamViolation{}
	}
	if d.Chat == nil {
		d.Chat = make(map[string][]ChatMessage)
	}
	if d.Audit == nil {
		d.Audit = []AuditEntry{}
	}
	if d.Categories == nil {
		d.Categories = make(map[string]Category)
	}
	if d.Allowlist == nil {
		d.Allowlist = []string{}
	}
	if d.TeacherBlocks == nil {
		d.TeacherBlocks = []string{}
	}
}

// FindSession returns the session with the given id, or nil.
func (d *Document) FindSession(id string) *Session {
	for _, s := range d.Sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// IsActive reports whether the session id is in the cached active set. The
// cache is stale by definition; reconcile before trusting it for
// authorization.
func (d *Document) IsActive(id string) bool {
	for _, sid := range d.ActiveSessions {
		if sid == id {
			return true
		}
	}
	return false
}
