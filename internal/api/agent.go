package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/G-districts/Gschool-connect/internal/classify"
	"github.com/G-districts/Gschool-connect/internal/control"
	"github.com/G-districts/Gschool-connect/internal/domain"
)

// heartbeat handles the periodic agent check-in.
func (h *Handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	var in control.HeartbeatInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Heartbeat(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// policy assembles the full extension policy for one student.
func (h *Handler) policy(w http.ResponseWriter, r *http.Request) {
	student := r.URL.Query().Get("student")
	view, err := h.svc.Policy(r.Context(), student, sessionScope(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

// pollCommands drains everything queued for one student.
func (h *Handler) pollCommands(w http.ResponseWriter, r *http.Request) {
	student := chi.URLParam(r, "student")
	cmds, err := h.svc.PollCommands(r.Context(), student)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "commands": cmds})
}

// effectiveState returns the merged session-layer policy for one student.
func (h *Handler) effectiveState(w http.ResponseWriter, r *http.Request) {
	student := chi.URLParam(r, "student")
	state, err := h.svc.EffectiveState(r.Context(), student)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, state)
}

func (h *Handler) offTaskCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Student string `json:"student"`
		URL     string `json:"url"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	onTask, err := h.svc.OffTaskCheck(r.Context(), req.Student, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"ok": true, "on_task": onTask})
}

// classifyURL runs the in-process keyword classifier.
func (h *Handler) classifyURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL  string `json:"url"`
		HTML string `json:"html"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.URL == "" {
		Error(w, http.StatusBadRequest, "url required")
		return
	}
	JSON(w, http.StatusOK, classify.Classify(req.URL, req.HTML))
}

func (h *Handler) postAlert(w http.ResponseWriter, r *http.Request) {
	var a domain.Alert
	if err := decode(r, &a); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.ReportAlert(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) raiseHand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Student string `json:"student"`
		Note    string `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.RaiseHand(r.Context(), req.Student, req.Note); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) pollResponse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PollID  string `json:"poll_id"`
		Student string `json:"student"`
		Answer  string `json:"answer"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.RecordPollResponse(r.Context(), req.PollID, req.Student, req.Answer); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) attentionResponse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Student  string `json:"student"`
		Response string `json:"response"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.RecordAttentionResponse(r.Context(), req.Student, req.Response); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) examViolation(w http.ResponseWriter, r *http.Request) {
	var v domain.ExamViolation
	if err := decode(r, &v); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.ReportExamViolation(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// chatGet returns recent class-chat messages plus the enabled flag.
func (h *Handler) chatGet(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classID")
	enabled, msgs, err := h.svc.ChatMessages(r.Context(), classID, queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"enabled": enabled, "messages": msgs})
}

func (h *Handler) chatPost(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classID")
	var req struct {
		From string `json:"from"`
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.PostChat(r.Context(), classID, req.From, req.Text); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// dmReply is the student side of a DM thread.
func (h *Handler) dmReply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Student string `json:"student"`
		Text    string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.SendDM(r.Context(), req.Student, domain.RoleStudent, req.Student, req.Text); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// dmThreadForStudent lets a student agent read its own thread.
func (h *Handler) dmThreadForStudent(w http.ResponseWriter, r *http.Request) {
	student := chi.URLParam(r, "student")
	msgs, err := h.svc.DMThread(r.Context(), student)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"messages": msgs})
}
