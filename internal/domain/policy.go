package domain

// EffectivePolicy is the merged focus/allowlist/exam state a student should
// enforce. Computed on demand, never persisted.
type EffectivePolicy struct {
	FocusMode  bool     `json:"focusMode"`
	Allowlist  []string `json:"allowlist"`
	ExamMode   bool     `json:"examMode"`
	ExamURL    string   `json:"examUrl"`
	SessionIDs []string `json:"session_ids"`
}

// Override carries per-student teacher overrides layered onto class flags.
type Override struct {
	FocusMode *bool `json:"focus_mode,omitempty"`
	Paused    *bool `json:"paused,omitempty"`
}
