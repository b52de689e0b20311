package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/G-districts/Gschool-connect/internal/signal"
)

// Presentation signaling handlers. Teachers start and end rooms and answer
// offers; viewers post offers, poll answers and exchange ICE candidates.

func (h *Handler) presentStart(w http.ResponseWriter, r *http.Request) {
	room := h.relay.Start(chi.URLParam(r, "room"))
	JSON(w, http.StatusOK, map[string]any{"ok": true, "room": room})
}

func (h *Handler) presentEnd(w http.ResponseWriter, r *http.Request) {
	h.relay.End(chi.URLParam(r, "room"))
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) presentStatus(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]bool{
		"active": h.relay.Active(chi.URLParam(r, "room")),
	})
}

// presentOffer stores a viewer offer and returns the (possibly minted)
// client id to poll the answer with.
func (h *Handler) presentOffer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"client_id"`
		SDP      string `json:"sdp"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.SDP == "" {
		Error(w, http.StatusBadRequest, "sdp required")
		return
	}
	clientID := h.relay.Offer(chi.URLParam(r, "room"), req.ClientID, req.SDP)
	JSON(w, http.StatusOK, map[string]any{"ok": true, "client_id": clientID})
}

func (h *Handler) presentOffers(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"offers": h.relay.Offers(chi.URLParam(r, "room")),
	})
}

func (h *Handler) presentAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"client_id"`
		SDP      string `json:"sdp"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ClientID == "" || req.SDP == "" {
		Error(w, http.StatusBadRequest, "client_id and sdp required")
		return
	}
	h.relay.Answer(chi.URLParam(r, "room"), req.ClientID, req.SDP)
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) presentPollAnswer(w http.ResponseWriter, r *http.Request) {
	sdp := h.relay.PollAnswer(chi.URLParam(r, "room"), chi.URLParam(r, "client"))
	JSON(w, http.StatusOK, map[string]string{"sdp": sdp})
}

func (h *Handler) presentPostCandidates(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Candidates []any `json:"candidates"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.relay.AddCandidates(
		chi.URLParam(r, "room"),
		chi.URLParam(r, "client"),
		signal.ParseSide(chi.URLParam(r, "side")),
		req.Candidates,
	)
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// presentFetchCandidates is fetch-and-clear: each candidate is handed out
// once, to the side it is addressed to.
func (h *Handler) presentFetchCandidates(w http.ResponseWriter, r *http.Request) {
	cands := h.relay.TakeCandidates(
		chi.URLParam(r, "room"),
		chi.URLParam(r, "client"),
		signal.ParseSide(chi.URLParam(r, "side")),
	)
	JSON(w, http.StatusOK, map[string]any{"candidates": cands})
}
