package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/G-districts/Gschool-connect/internal/auth"
	"github.com/G-districts/Gschool-connect/internal/control"
	"github.com/G-districts/Gschool-connect/internal/domain"
)

// login exchanges console credentials for a bearer token.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.repo.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		Error(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	token, err := auth.NewAccessToken(h.secret, h.issuer, h.tokenTTL, auth.Claims{
		Email: user.Email,
		Role:  user.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"token": token,
		"email": user.Email,
		"role":  user.Role,
	})
}

// me echoes the authenticated identity.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		Error(w, http.StatusUnauthorized, "missing_token")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"email": claims.Email, "role": claims.Role})
}

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.svc.Students(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"students": students})
}

func (h *Handler) getStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Student(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, st)
}

func (h *Handler) upsertStudent(w http.ResponseWriter, r *http.Request) {
	var st domain.Student
	if err := decode(r, &st); err != nil {
		writeError(w, err)
		return
	}
	saved, err := h.svc.UpsertStudent(r.Context(), st)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, saved)
}

func (h *Handler) deleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteStudent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// importStudents replaces the whole registry.
func (h *Handler) importStudents(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Students []domain.Student `json:"students"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	count, err := h.svc.ImportStudents(r.Context(), req.Students)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "imported": count})
}

func (h *Handler) exportStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.svc.Students(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"students": students})
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Document(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, doc.Settings)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch control.SettingsPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	settings, err := h.svc.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, settings)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Document(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"categories": doc.Categories})
}

func (h *Handler) setCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		domain.Category
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.SetCategory(r.Context(), req.Name, req.Category); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCategory(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) getOverrides(w http.ResponseWriter, r *http.Request) {
	allowlist, blocks, err := h.svc.GlobalOverrides(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"allowlist": allowlist, "teacher_blocks": blocks})
}

func (h *Handler) setOverrides(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Allowlist     []string `json:"allowlist"`
		TeacherBlocks []string `json:"teacher_blocks"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.SetGlobalOverrides(r.Context(), req.Allowlist, req.TeacherBlocks, actor(r)); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) classState(w http.ResponseWriter, r *http.Request) {
	cls, settings, err := h.svc.ClassState(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"class": cls, "settings": settings})
}

func (h *Handler) classSet(w http.ResponseWriter, r *http.Request) {
	var patch control.ClassPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	cls, settings, err := h.svc.UpdateClass(r.Context(), patch, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"class": cls, "settings": settings})
}

func (h *Handler) classToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string `json:"key"`
		Value bool   `json:"value"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cls, err := h.svc.ToggleClassFlag(r.Context(), req.Key, req.Value, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "class": cls})
}

func (h *Handler) extensionToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.SetExtensionEnabled(r.Context(), req.Enabled, actor(r)); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
