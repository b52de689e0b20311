package domain

// Command type tags understood by student agents.
const (
	CommandNotify         = "notify"
	CommandOpenTabs       = "open_tabs"
	CommandRestoreTabs    = "restore_tabs"
	CommandCloseTabs      = "close_tabs"
	CommandExamStart      = "exam_start"
	CommandExamEnd        = "exam_end"
	CommandPoll           = "poll"
	CommandAttentionCheck = "attention_check"
)

// Command is a single queued instruction. SessionID, Seq and TS are stamped at
// enqueue time and immutable afterwards; consumers verify the session stamp
// against the queue the command was read from before delivering it.
type Command struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Seq       uint64 `json:"seq,omitempty"`
	TS        int64  `json:"ts"`

	// Type-specific fields, present per Type.
	Title    string   `json:"title,omitempty"`
	Message  string   `json:"message,omitempty"`
	URL      string   `json:"url,omitempty"`
	URLs     []string `json:"urls,omitempty"`
	PollID   string   `json:"id,omitempty"`
	Question string   `json:"question,omitempty"`
	Options  []string `json:"options,omitempty"`
	Timeout  int      `json:"timeout,omitempty"`
}
