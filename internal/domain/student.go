package domain

// Student is a registry entry for an enrollable student identity.
type Student struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// User is an authenticated console account (teacher or admin).
type User struct {
	Email    string `json:"email"`
	Password string `json:"-"`
	Role     string `json:"role"`
}

// Console roles.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Tab is a browser tab snapshot reported by a student agent.
type Tab struct {
	ID         int    `json:"id,omitempty"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	FavIconURL string `json:"favIconUrl,omitempty"`
}

// Presence is the live state of one student agent, refreshed on heartbeat.
type Presence struct {
	LastSeen    int64             `json:"last_seen"`
	StudentName string            `json:"student_name"`
	Tab         Tab               `json:"tab"`
	Tabs        []Tab             `json:"tabs"`
	Screenshot  string            `json:"screenshot,omitempty"`
	TabShots    map[string]string `json:"tabshots,omitempty"`
}

// TimelineEntry is one browsing-history sample for a student.
type TimelineEntry struct {
	TS         int64  `json:"ts"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	FavIconURL string `json:"favIconUrl,omitempty"`
	Student    string `json:"student,omitempty"`
}

// Screenshot is one stored screenshot history record.
type Screenshot struct {
	TS      int64  `json:"ts"`
	TabID   int    `json:"tabId,omitempty"`
	DataURL string `json:"dataUrl"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Student string `json:"student,omitempty"`
}

// Alert is an off-task (or similar) report about a student.
type Alert struct {
	TS      int64   `json:"ts"`
	Student string  `json:"student"`
	Kind    string  `json:"kind"`
	Score   float64 `json:"score"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Note    string  `json:"note"`
}

// OffTaskEvent records one URL check verdict.
type OffTaskEvent struct {
	Student string `json:"student"`
	URL     string `json:"url"`
	TS      int64  `json:"ts"`
	OnTask  bool   `json:"on_task"`
}

// RaiseHand is a pending hand-raise from a student.
type RaiseHand struct {
	Student string `json:"student"`
	Note    string `json:"note"`
	TS      int64  `json:"ts"`
}

// PollResponse is one student's answer to a poll.
type PollResponse struct {
	Student string `json:"student"`
	Answer  string `json:"answer"`
	TS      int64  `json:"ts"`
}

// Poll is a session-scoped question with recorded responses.
type Poll struct {
	Question  string         `json:"question"`
	Options   []string       `json:"options"`
	Responses []PollResponse `json:"responses"`
}

// AttentionResponse is one student's acknowledgement of an attention check.
type AttentionResponse struct {
	Response string `json:"response"`
	TS       int64  `json:"ts"`
}

// AttentionCheck is the persisted state of the most recent attention check.
// The timeout is interpreted client-side; late responses are still recorded.
type AttentionCheck struct {
	Title     string                       `json:"title"`
	Timeout   int                          `json:"timeout"`
	SessionID string                       `json:"session_id"`
	Started   int64                        `json:"started"`
	Responses map[string]AttentionResponse `json:"responses"`
}

// ExamState mirrors the last exam start/end for dashboards.
type ExamState struct {
	Active bool   `json:"active"`
	URL    string `json:"url,omitempty"`
}

// ExamViolation is a student-reported exam lock breach.
type ExamViolation struct {
	Student string `json:"student"`
	URL     string `json:"url"`
	Reason  string `json:"reason"`
	TS      int64  `json:"ts"`
}

// ChatMessage is one class-chat entry.
type ChatMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// DirectMessage is one DM-thread entry backed by the relational store.
type DirectMessage struct {
	From string `json:"from"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// AuditEntry is one best-effort audit-log record.
type AuditEntry struct {
	Event   string `json:"event"`
	Target  string `json:"target,omitempty"`
	Student string `json:"student,omitempty"`
	Detail  string `json:"detail,omitempty"`
	By      string `json:"by,omitempty"`
	TS      int64  `json:"ts"`
}

// Category is an admin-defined URL category with an optional block page.
type Category struct {
	URLs      []string `json:"urls"`
	BlockPage string   `json:"blockPage"`
}
