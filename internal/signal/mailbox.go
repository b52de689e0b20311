// Package signal is the REST-polled WebRTC signaling relay for teacher
// presentations. State is purely in-memory: a restart simply ends every
// presentation.
package signal

import (
	"regexp"
	"sync"

	"github.com/google/uuid"
)

var idPattern = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SanitizeID strips anything but safe identifier characters from room and
// client ids.
func SanitizeID(s string) string {
	return idPattern.ReplaceAllString(s, "")
}

// room is one presentation: pending viewer offers, teacher answers and both
// sides' trickle ICE candidates, keyed by viewer client id.
type room struct {
	active      bool
	offers      map[string]string
	answers     map[string]string
	viewerCand  map[string][]any
	teacherCand map[string][]any
}

func newRoom() *room {
	return &room{
		offers:      map[string]string{},
		answers:     map[string]string{},
		viewerCand:  map[string][]any{},
		teacherCand: map[string][]any{},
	}
}

// Relay holds every presentation room.
type Relay struct {
	mu    sync.Mutex
	rooms map[string]*room
}

// NewRelay creates an empty relay.
func NewRelay() *Relay {
	return &Relay{rooms: map[string]*room{}}
}

func (r *Relay) room(id string) *room {
	rm := r.rooms[id]
	if rm == nil {
		rm = newRoom()
		r.rooms[id] = rm
	}
	return rm
}

// Start marks a room live.
func (r *Relay) Start(roomID string) string {
	roomID = SanitizeID(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room(roomID).active = true
	return roomID
}

// End tears a room down, discarding all pending signaling state.
func (r *Relay) End(roomID string) {
	roomID = SanitizeID(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[roomID] = newRoom()
}

// Active reports whether a room is live.
func (r *Relay) Active(roomID string) bool {
	roomID = SanitizeID(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.rooms[roomID]
	return rm != nil && rm.active
}

// Offer stores a viewer's SDP offer and returns the client id, generating one
// when the viewer did not bring its own.
func (r *Relay) Offer(roomID, clientID, sdp string) string {
	roomID = SanitizeID(roomID)
	clientID = SanitizeID(clientID)
	if clientID == "" {
		clientID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room(roomID).offers[clientID] = sdp
	return clientID
}

// Offers returns the pending viewer offers for the teacher to answer.
func (r *Relay) Offers(roomID string) map[string]string {
	roomID = SanitizeID(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]string{}
	for k, v := range r.room(roomID).offers {
		out[k] = v
	}
	return out
}

// Answer stores the teacher's SDP answer for one viewer and retires the
// viewer's offer.
func (r *Relay) Answer(roomID, clientID, sdp string) {
	roomID = SanitizeID(roomID)
	clientID = SanitizeID(clientID)
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.room(roomID)
	rm.answers[clientID] = sdp
	delete(rm.offers, clientID)
}

// PollAnswer returns the stored answer for a viewer, empty while the teacher
// has not answered yet.
func (r *Relay) PollAnswer(roomID, clientID string) string {
	roomID = SanitizeID(roomID)
	clientID = SanitizeID(clientID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.room(roomID).answers[clientID]
}

// Side names which peer posted the candidates.
type Side string

const (
	SideViewer  Side = "viewer"
	SideTeacher Side = "teacher"
)

// ParseSide maps a loose path segment onto a side; anything not starting with
// "v" is the teacher.
func ParseSide(s string) Side {
	if len(s) > 0 && (s[0] == 'v' || s[0] == 'V') {
		return SideViewer
	}
	return SideTeacher
}

// AddCandidates appends trickle ICE candidates from one side.
func (r *Relay) AddCandidates(roomID, clientID string, from Side, cands []any) {
	if len(cands) == 0 {
		return
	}
	roomID = SanitizeID(roomID)
	clientID = SanitizeID(clientID)
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.room(roomID)
	if from == SideViewer {
		rm.viewerCand[clientID] = append(rm.viewerCand[clientID], cands...)
	} else {
		rm.teacherCand[clientID] = append(rm.teacherCand[clientID], cands...)
	}
}

// TakeCandidates fetches and clears the candidates addressed TO the given
// side, i.e. those the opposite peer posted.
func (r *Relay) TakeCandidates(roomID, clientID string, to Side) []any {
	roomID = SanitizeID(roomID)
	clientID = SanitizeID(clientID)
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.room(roomID)
	var bucket map[string][]any
	if to == SideViewer {
		bucket = rm.teacherCand
	} else {
		bucket = rm.viewerCand
	}
	out := bucket[clientID]
	bucket[clientID] = nil
	if out == nil {
		out = []any{}
	}
	return out
}
