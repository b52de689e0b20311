package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/G-districts/Gschool-connect/internal/control"
	"github.com/G-districts/Gschool-connect/internal/domain"
)

// Teacher console handlers: session registry, command fan-out and the live
// monitoring views.

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, active, err := h.svc.Sessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"sessions": sessions, "active": active})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, active, err := h.svc.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"session": sess, "active": active})
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var sess domain.Session
	if err := decode(r, &sess); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.svc.CreateSession(r.Context(), sess, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, created)
}

func (h *Handler) updateSession(w http.ResponseWriter, r *http.Request) {
	var patch control.SessionPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.svc.UpdateSession(r.Context(), chi.URLParam(r, "id"), patch, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSession(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	active, err := h.svc.StartSession(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "active": active})
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	active, err := h.svc.EndSession(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "active": active})
}

func (h *Handler) activeSessions(w http.ResponseWriter, r *http.Request) {
	active, err := h.svc.ReconcileAndGetActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"active": active})
}

// sendCommand queues a command on a session, optionally copied to one
// student's mailbox.
func (h *Handler) sendCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session string `json:"session"`
		Student string `json:"student"`
		domain.Command
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sid := req.Session
	if sid == "" {
		sid = sessionScope(r)
	}
	stamped, err := h.svc.SendCommand(r.Context(), sid, req.Student, req.Command, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "command": stamped})
}

// sendStudentCommand queues a one-shot command directly to a student.
func (h *Handler) sendStudentCommand(w http.ResponseWriter, r *http.Request) {
	student := chi.URLParam(r, "student")
	var cmd domain.Command
	if err := decode(r, &cmd); err != nil {
		writeError(w, err)
		return
	}
	stamped, err := h.svc.SendStudentCommand(r.Context(), student, sessionScope(r), cmd, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "command": stamped})
}

func (h *Handler) notify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session string `json:"session"`
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Session == "" {
		req.Session = sessionScope(r)
	}
	if err := h.svc.Notify(r.Context(), req.Session, req.Title, req.Message, actor(r)); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) openTabs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session string   `json:"session"`
		Student string   `json:"student"`
		URLs    []string `json:"urls"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Session == "" {
		req.Session = sessionScope(r)
	}
	if err := h.svc.OpenTabs(r.Context(), req.Session, req.Student, req.URLs, actor(r)); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) tabsAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Student string `json:"student"`
		Action  string `json:"action"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.TabsAction(r.Context(), req.Student, req.Action, actor(r)); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// setStudent layers per-student focus/pause overrides.
func (h *Handler) setStudent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Student   string `json:"student"`
		FocusMode *bool  `json:"focus_mode"`
		Paused    *bool  `json:"paused"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ov, err := h.svc.SetStudentOverride(r.Context(), req.Student, req.FocusMode, req.Paused, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "override": ov})
}

func (h *Handler) createPoll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session  string   `json:"session"`
		Question string   `json:"question"`
		Options  []string `json:"options"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Session == "" {
		req.Session = sessionScope(r)
	}
	pollID, err := h.svc.CreatePoll(r.Context(), req.Session, req.Question, req.Options, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "poll_id": pollID})
}

func (h *Handler) pollResults(w http.ResponseWriter, r *http.Request) {
	polls, err := h.svc.Polls(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"polls": polls})
}

func (h *Handler) startAttentionCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session string `json:"session"`
		Title   string `json:"title"`
		Timeout int    `json:"timeout"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Session == "" {
		req.Session = sessionScope(r)
	}
	if err := h.svc.StartAttentionCheck(r.Context(), req.Session, req.Title, req.Timeout, actor(r)); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) attentionResults(w http.ResponseWriter, r *http.Request) {
	check, err := h.svc.AttentionResults(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"check": check})
}

func (h *Handler) exam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session string `json:"session"`
		Action  string `json:"action"`
		URL     string `json:"url"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Session == "" {
		req.Session = sessionScope(r)
	}
	if err := h.svc.Exam(r.Context(), req.Session, req.Action, req.URL, actor(r)); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) examViolations(w http.ResponseWriter, r *http.Request) {
	violations, err := h.svc.ExamViolations(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"violations": violations})
}

func (h *Handler) clearExamViolations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Student string `json:"student"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.ClearExamViolations(r.Context(), req.Student); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.Alerts(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (h *Handler) clearAlerts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Student string `json:"student"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.ClearAlerts(r.Context(), req.Student); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) presence(w http.ResponseWriter, r *http.Request) {
	pres, err := h.svc.Presence(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"presence": pres})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Timeline(r.Context(),
		r.URL.Query().Get("student"), queryInt64(r, "since"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"timeline": entries})
}

func (h *Handler) screenshots(w http.ResponseWriter, r *http.Request) {
	shots, err := h.svc.Screenshots(r.Context(), r.URL.Query().Get("student"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"screenshots": shots})
}

func (h *Handler) offTaskEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.OffTaskEvents(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) hands(w http.ResponseWriter, r *http.Request) {
	hands, err := h.svc.Hands(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"hands": hands})
}

func (h *Handler) clearHands(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Student string `json:"student"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	remaining, err := h.svc.ClearHands(r.Context(), req.Student)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "remaining": remaining})
}

// dmSend is the teacher side of a DM thread.
func (h *Handler) dmSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Student string `json:"student"`
		Text    string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.SendDM(r.Context(), req.Student, domain.RoleTeacher, actor(r), req.Text); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) dmThread(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.DMThread(r.Context(), chi.URLParam(r, "student"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (h *Handler) announce(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Announce(r.Context(), req.Message, actor(r)); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) auditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.AuditLog(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"audit": entries})
}
