package domain

// Scene type tags.
const (
	SceneAllowed = "allowed"
	SceneBlocked = "blocked"
)

// Scene is an external policy layer: allow-only (replaces the allowlist and
// forces focus mode) or block-augmenting (appends block patterns).
type Scene struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	Allow []string `json:"allow,omitempty"`
	Block []string `json:"block,omitempty"`
	Icon  string   `json:"icon,omitempty"`
}

// SceneRef identifies the currently applied scene.
type SceneRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// SceneSet is the stored scene collection for one scope (global or
// per-session file).
type SceneSet struct {
	Allowed []Scene   `json:"allowed"`
	Blocked []Scene   `json:"blocked"`
	Current *SceneRef `json:"current"`
}

// Find returns the full scene object for an id, searching both buckets.
func (s *SceneSet) Find(id string) *Scene {
	for i := range s.Allowed {
		if s.Allowed[i].ID == id {
			return &s.Allowed[i]
		}
	}
	for i := range s.Blocked {
		if s.Blocked[i].ID == id {
			return &s.Blocked[i]
		}
	}
	return nil
}
