package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/G-districts/Gschool-connect/internal/domain"
)

// Scene handlers. Every endpoint accepts the usual session scope; without one
// it operates on the global scene file.

func (h *Handler) listScenes(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.scenes.Load(sessionScope(r)))
}

// sceneBridge serves the scene set at its legacy static-file path for
// extensions that fetch it directly.
func (h *Handler) sceneBridge(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.scenes.Load(sessionScope(r)))
}

// upsertScene creates or replaces one scene in its type bucket.
func (h *Handler) upsertScene(w http.ResponseWriter, r *http.Request) {
	var sc domain.Scene
	if err := decode(r, &sc); err != nil {
		writeError(w, err)
		return
	}
	if sc.Type != domain.SceneAllowed && sc.Type != domain.SceneBlocked {
		writeError(w, fmt.Errorf("%w: scene type must be allowed or blocked", domain.ErrValidation))
		return
	}
	if sc.Name == "" {
		writeError(w, fmt.Errorf("%w: scene name required", domain.ErrValidation))
		return
	}
	if sc.ID == "" {
		sc.ID = "scene_" + uuid.NewString()[:8]
	}

	set, err := h.scenes.Update(sessionScope(r), func(set *domain.SceneSet) error {
		removeScene(set, sc.ID)
		if sc.Type == domain.SceneAllowed {
			set.Allowed = append(set.Allowed, sc)
		} else {
			set.Blocked = append(set.Blocked, sc)
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "scene": sc, "scenes": set})
}

func (h *Handler) deleteScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, err := h.scenes.Update(sessionScope(r), func(set *domain.SceneSet) error {
		if set.Find(id) == nil {
			return fmt.Errorf("scene %s: %w", id, domain.ErrNotFound)
		}
		removeScene(set, id)
		if set.Current != nil && set.Current.ID == id {
			set.Current = nil
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// applyScene makes a scene current for the scope.
func (h *Handler) applyScene(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	set, err := h.scenes.Update(sessionScope(r), func(set *domain.SceneSet) error {
		sc := set.Find(req.ID)
		if sc == nil {
			return fmt.Errorf("scene %s: %w", req.ID, domain.ErrNotFound)
		}
		set.Current = &domain.SceneRef{ID: sc.ID, Name: sc.Name, Type: sc.Type}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "current": set.Current})
}

// clearScene drops the current scene for the scope.
func (h *Handler) clearScene(w http.ResponseWriter, r *http.Request) {
	_, err := h.scenes.Update(sessionScope(r), func(set *domain.SceneSet) error {
		set.Current = nil
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) exportScenes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="scenes.json"`)
	JSON(w, http.StatusOK, h.scenes.Load(sessionScope(r)))
}

// importScenes replaces the whole scene set for the scope.
func (h *Handler) importScenes(w http.ResponseWriter, r *http.Request) {
	var set domain.SceneSet
	if err := decode(r, &set); err != nil {
		writeError(w, err)
		return
	}
	if set.Current != nil && set.Find(set.Current.ID) == nil {
		set.Current = nil
	}
	if err := h.scenes.Save(sessionScope(r), &set); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"imported": len(set.Allowed) + len(set.Blocked),
	})
}

func removeScene(set *domain.SceneSet, id string) {
	kept := set.Allowed[:0]
	for _, sc := range set.Allowed {
		if sc.ID != id {
			kept = append(kept, sc)
		}
	}
	set.Allowed = kept
	kept = set.Blocked[:0]
	for _, sc := range set.Blocked {
		if sc.ID != id {
			kept = append(kept, sc)
		}
	}
	set.Blocked = kept
}
