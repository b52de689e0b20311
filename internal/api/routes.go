package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/G-districts/Gschool-connect/internal/auth"
	"github.com/G-districts/Gschool-connect/internal/domain"
)

// RegisterRoutes wires the full HTTP surface. The student agent surface is
// unauthenticated (agents identify by student id and are constrained by the
// roster scoping middleware); the console surface requires a teacher or admin
// bearer token.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.login)

		// Student agent surface.
		r.Post("/heartbeat", h.heartbeat)
		r.Get("/policy", h.policy)
		r.Get("/commands/{student}", h.pollCommands)
		r.Get("/state/{student}", h.effectiveState)
		r.Post("/offtask/check", h.offTaskCheck)
		r.Post("/ai/classify", h.classifyURL)
		r.Post("/alert", h.postAlert)
		r.Post("/raise_hand", h.raiseHand)
		r.Post("/poll/response", h.pollResponse)
		r.Post("/attention_response", h.attentionResponse)
		r.Post("/exam/violation", h.examViolation)
		r.Get("/chat/{classID}", h.chatGet)
		r.Post("/chat/{classID}", h.chatPost)
		r.Post("/dm/reply", h.dmReply)
		r.Get("/dm/me/{student}", h.dmThreadForStudent)
		r.Get("/scenes.json", h.sceneBridge)

		// Presentation signaling: the viewer side is open, room control and
		// the offer inbox are console-only.
		r.Route("/present", func(r chi.Router) {
			r.Get("/status/{room}", h.presentStatus)
			r.Post("/offer/{room}", h.presentOffer)
			r.Get("/answer/{room}/{client}", h.presentPollAnswer)
			r.Post("/candidates/{room}/{client}/{side}", h.presentPostCandidates)
			r.Get("/candidates/{room}/{client}/{side}", h.presentFetchCandidates)

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware(h.secret, h.issuer))
				r.Use(auth.RequireRole(domain.RoleTeacher, domain.RoleAdmin))
				r.Post("/start/{room}", h.presentStart)
				r.Post("/end/{room}", h.presentEnd)
				r.Get("/offers/{room}", h.presentOffers)
				r.Post("/answer/{room}", h.presentAnswer)
			})
		})

		// Teacher console surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.secret, h.issuer))
			r.Use(auth.RequireRole(domain.RoleTeacher, domain.RoleAdmin))

			r.Get("/me", h.me)

			r.Get("/sessions", h.listSessions)
			r.Post("/sessions", h.createSession)
			r.Get("/sessions/active", h.activeSessions)
			r.Get("/sessions/{id}", h.getSession)
			r.Patch("/sessions/{id}", h.updateSession)
			r.Delete("/sessions/{id}", h.deleteSession)
			r.Post("/sessions/{id}/start", h.startSession)
			r.Post("/sessions/{id}/end", h.endSession)

			r.Get("/students", h.listStudents)
			r.Post("/students", h.upsertStudent)
			r.Post("/students/import", h.importStudents)
			r.Get("/students/export", h.exportStudents)
			r.Get("/students/{id}", h.getStudent)
			r.Delete("/students/{id}", h.deleteStudent)

			r.Post("/command", h.sendCommand)
			r.Post("/student/{student}/command", h.sendStudentCommand)
			r.Post("/notify", h.notify)
			r.Post("/open_tabs", h.openTabs)
			r.Post("/student/tabs_action", h.tabsAction)
			r.Post("/student/set", h.setStudent)

			r.Post("/poll", h.createPoll)
			r.Get("/poll/results", h.pollResults)
			r.Post("/attention_check", h.startAttentionCheck)
			r.Get("/attention_results", h.attentionResults)
			r.Post("/exam", h.exam)
			r.Get("/exam/violations", h.examViolations)
			r.Post("/exam/violations/clear", h.clearExamViolations)

			r.Get("/presence", h.presence)
			r.Get("/timeline", h.timeline)
			r.Get("/screenshots", h.screenshots)
			r.Get("/alerts", h.listAlerts)
			r.Post("/alerts/clear", h.clearAlerts)
			r.Get("/offtask/events", h.offTaskEvents)
			r.Get("/hands", h.hands)
			r.Post("/hands/clear", h.clearHands)

			r.Post("/dm/send", h.dmSend)
			r.Get("/dm/{student}", h.dmThread)
			r.Post("/announce", h.announce)
			r.Get("/audit", h.auditLog)

			r.Get("/scenes", h.listScenes)
			r.Post("/scenes", h.upsertScene)
			r.Delete("/scenes/{id}", h.deleteScene)
			r.Post("/scenes/apply", h.applyScene)
			r.Post("/scenes/clear", h.clearScene)
			r.Get("/scenes/export", h.exportScenes)
			r.Post("/scenes/import", h.importScenes)

			r.Get("/settings", h.getSettings)
			r.Post("/settings", h.updateSettings)
			r.Get("/categories", h.listCategories)
			r.Post("/categories", h.setCategory)
			r.Delete("/categories/{name}", h.deleteCategory)
			r.Get("/overrides", h.getOverrides)
			r.Post("/overrides", h.setOverrides)
			r.Get("/class", h.classState)
			r.Post("/class/set", h.classSet)
			r.Post("/class/toggle", h.classToggle)
			r.Post("/extension/toggle", h.extensionToggle)
		})
	})

	// Legacy static path for extensions fetching the scene file directly.
	r.Get("/scene.json", h.sceneBridge)
}
