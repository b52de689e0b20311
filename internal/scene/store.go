// Package scene persists scene sets: one global scenes file plus an optional
// per-session file keyed by sanitized session id. The core consumes scenes
// read-only through the policy composer.
package scene

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/G-districts/Gschool-connect/internal/domain"
)

var sessionIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Store reads and writes scene sets under a base directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a scene store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scenes directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// pathFor returns the per-session scene file when a session id is present,
// otherwise the global file.
func (s *Store) pathFor(sessionID string) string {
	if sessionID == "" {
		return filepath.Join(s.dir, "scenes.json")
	}
	safe := sessionIDSanitizer.ReplaceAllString(sessionID, "")
	return filepath.Join(s.dir, "scene."+safe+".json")
}

// Load returns the scene set for the session scope. A missing or unreadable
// per-session file falls back to the global file as a seed; any remaining
// failure yields an empty, well-shaped set. Load never returns an error —
// scenes fail open to empty for display and closed for policy (an empty set
// has no current scene to apply).
func (s *Store) Load(sessionID string) *domain.SceneSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(sessionID)
}

func (s *Store) loadLocked(sessionID string) *domain.SceneSet {
	set, err := readSceneFile(s.pathFor(sessionID))
	if err == nil {
		return set
	}
	if !os.IsNotExist(err) {
		slog.Warn("Unreadable scene file, using fallback", "session_id", sessionID, "error", err)
	}
	if sessionID != "" {
		if set, err := readSceneFile(s.pathFor("")); err == nil {
			return set
		}
	}
	return emptySet()
}

// Save writes the scene set for the session scope.
func (s *Store) Save(sessionID string, set *domain.SceneSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalize(set)
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scenes: %w", err)
	}
	path := s.pathFor(sessionID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scenes file: %w", err)
	}
	return nil
}

// Update applies fn to the loaded set and saves the result atomically with
// respect to other Update/Save calls.
func (s *Store) Update(sessionID string, fn func(*domain.SceneSet) error) (*domain.SceneSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.loadLocked(sessionID)
	if err := fn(set); err != nil {
		return nil, err
	}
	normalize(set)
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scenes: %w", err)
	}
	if err := os.WriteFile(s.pathFor(sessionID), data, 0o644); err != nil {
		return nil, fmt.Errorf("write scenes file: %w", err)
	}
	return set, nil
}

func readSceneFile(path string) (*domain.SceneSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var set domain.SceneSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	normalize(&set)
	return &set, nil
}

func normalize(set *domain.SceneSet) {
	if set.Allowed == nil {
		set.Allowed = []domain.Scene{}
	}
	if set.Blocked == nil {
		set.Blocked = []domain.Scene{}
	}
}

func emptySet() *domain.SceneSet {
	return &domain.SceneSet{Allowed: []domain.Scene{}, Blocked: []domain.Scene{}}
}
