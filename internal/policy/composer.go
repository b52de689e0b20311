// Package policy composes the effective per-student policy from every active
// session covering the student, and layers the current scene on top.
package policy

import (
	"sort"
	"time"

	"github.com/G-districts/Gschool-connect/internal/domain"
	"github.com/G-districts/Gschool-connect/internal/session"
)

// Compose reconciles the active set and merges the controls of every active
// session enrolling the student: focus and exam flags OR together, allowlists
// union (sorted), and the first non-empty exam URL in enumeration order wins.
func Compose(doc *domain.Document, studentID string, now time.Time) domain.EffectivePolicy {
	active := make(map[string]struct{})
	for _, sid := range session.Apply(doc, now) {
		active[sid] = struct{}{}
	}

	merged := domain.EffectivePolicy{Allowlist: []string{}, SessionIDs: []string{}}
	allow := make(map[string]struct{})
	for _, sess := range doc.Sessions {
		if _, ok := active[sess.ID]; !ok || !sess.Enrolled(studentID) {
			continue
		}
		merged.SessionIDs = append(merged.SessionIDs, sess.ID)

		c := sess.Controls
		if c.FocusMode {
			merged.FocusMode = true
		}
		if c.ExamMode {
			merged.ExamMode = true
			if merged.ExamURL == "" && c.ExamURL != "" {
				merged.ExamURL = c.ExamURL
			}
		}
		for _, u := range c.Allowlist {
			allow[u] = struct{}{}
		}
	}

	for u := range allow {
		merged.Allowlist = append(merged.Allowlist, u)
	}
	sort.Strings(merged.Allowlist)
	return merged
}

// ApplyScene layers the current scene over a session-composed policy. An
// allow-type scene replaces the allowlist and forces focus mode; a block-type
// scene appends extra block patterns without touching focus. The scene layer
// never demotes exam mode. The returned blocks slice carries the scene's
// extra block patterns for callers that expose teacher blocks.
func ApplyScene(p domain.EffectivePolicy, scenes *domain.SceneSet) (domain.EffectivePolicy, []string) {
	if scenes == nil || scenes.Current == nil {
		return p, nil
	}
	scene := scenes.Find(scenes.Current.ID)
	if scene == nil {
		return p, nil
	}

	switch scene.Type {
	case domain.SceneAllowed:
		p.Allowlist = append([]string{}, scene.Allow...)
		p.FocusMode = true
		return p, nil
	case domain.SceneBlocked:
		return p, append([]string{}, scene.Block...)
	default:
		return p, nil
	}
}
