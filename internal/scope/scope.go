// Package scope enforces session roster boundaries around HTTP requests.
// When a request names a session, inbound payloads are rewritten and outbound
// JSON is filtered so only that session's enrolled students are addressable
// or visible.
package scope

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/G-districts/Gschool-connect/internal/store"
)

const (
	// SessionQueryParam names a session on any scoped request.
	SessionQueryParam = "session"
	// SessionHeader is the header alternative to the query parameter.
	SessionHeader = "X-Session-ID"
)

// studentIDKeys are the payload keys treated as student identifiers, checked
// in order. "student" wins over the generic "id" when both are present.
var studentIDKeys = [...]string{"student", "email", "id", "user", "student_id"}

type contextKey int

const sessionIDKey contextKey = iota

// WithSessionID pins a session id on the context, taking priority over the
// query parameter and header. Used by locked teacher-board routes.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sid)
}

// SessionIDFromContext returns the pinned session id, if any.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// resolveSessionID picks the session id from context, query parameter, header
// or a buffered JSON body, first non-empty wins.
func resolveSessionID(r *http.Request, body map[string]any) string {
	if sid := SessionIDFromContext(r.Context()); sid != "" {
		return sid
	}
	if sid := r.URL.Query().Get(SessionQueryParam); sid != "" {
		return sid
	}
	if sid := r.Header.Get(SessionHeader); sid != "" {
		return sid
	}
	for _, key := range []string{"session", "session_id"} {
		if v, ok := body[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Middleware scopes requests to the roster of the session they name. Requests
// without a session id pass through untouched. An unknown session id yields an
// empty roster: everything is filtered, nothing leaks.
func Middleware(docs store.DocumentStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := bufferJSONBody(r)
			sid := resolveSessionID(r, body)
			if sid == "" {
				next.ServeHTTP(w, r)
				return
			}

			roster := rosterFor(r.Context(), docs, sid)

			if body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
				if students, ok := body["students"].([]any); ok {
					body["students"] = intersect(students, roster)
				}
				if id := extractStudentID(body); id != "" && len(roster) > 0 {
					if _, member := roster[id]; !member {
						writeIgnored(w)
						return
					}
				}
				replaceBody(r, body)
			}

			rec := &recorder{header: make(http.Header)}
			next.ServeHTTP(rec, r.WithContext(WithSessionID(r.Context(), sid)))
			rec.flush(w, roster)
		})
	}
}

func rosterFor(ctx context.Context, docs store.DocumentStore, sid string) map[string]struct{} {
	doc, err := docs.Load(ctx)
	if err != nil {
		slog.Warn("Roster lookup failed, scoping to empty roster", "session", sid, "error", err)
		return map[string]struct{}{}
	}
	sess := doc.FindSession(sid)
	if sess == nil {
		return map[string]struct{}{}
	}
	return sess.Roster()
}

// bufferJSONBody reads and parses a JSON request body, restoring it on the
// request. Returns nil when there is no parseable JSON object.
func bufferJSONBody(r *http.Request) map[string]any {
	if r.Body == nil || !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(data))

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}
	return body
}

func replaceBody(r *http.Request, body map[string]any) {
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	r.ContentLength = int64(len(data))
}

func intersect(students []any, roster map[string]struct{}) []any {
	kept := []any{}
	for _, v := range students {
		if s, ok := v.(string); ok {
			if _, member := roster[s]; member {
				kept = append(kept, s)
			}
		}
	}
	return kept
}

// extractStudentID scans a body for a single student identifier at the top
// level and one level down under "data".
func extractStudentID(body map[string]any) string {
	if id := idFromMap(body); id != "" {
		return id
	}
	if data, ok := body["data"].(map[string]any); ok {
		return idFromMap(data)
	}
	return ""
}

func idFromMap(m map[string]any) string {
	for _, key := range studentIDKeys {
		if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// writeIgnored answers a roster violation with a success-shaped no-op so the
// caller cannot probe roster membership.
func writeIgnored(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true,"ignored":true,"reason":"student not in session"}`))
}

// FilterByRoster recursively drops list entries whose student identifier is
// not on the roster. An empty roster drops every identified entry. Values
// without an identifier pass through with their children filtered.
func FilterByRoster(v any, roster map[string]struct{}) any {
	switch val := v.(type) {
	case []any:
		out := []any{}
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				if id := idFromMap(m); id != "" {
					if _, member := roster[id]; !member {
						continue
					}
				}
			}
			out = append(out, FilterByRoster(item, roster))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = FilterByRoster(item, roster)
		}
		return out
	default:
		return v
	}
}

// recorder buffers a response so the body can be roster-filtered before it
// reaches the client.
type recorder struct {
	header http.Header
	status int
	buf    bytes.Buffer
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.buf.Write(p)
}

// flush replays the buffered response, filtering JSON payloads by roster.
// If a JSON payload cannot be filtered it is suppressed entirely rather than
// passed through unfiltered.
func (r *recorder) flush(w http.ResponseWriter, roster map[string]struct{}) {
	if r.status == 0 {
		r.status = http.StatusOK
	}

	body := r.buf.Bytes()
	if strings.Contains(r.header.Get("Content-Type"), "application/json") && len(body) > 0 {
		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			slog.Warn("Scoped response is not valid JSON, suppressing body", "error", err)
			body = []byte("{}")
		} else {
			filtered, err := json.Marshal(FilterByRoster(payload, roster))
			if err != nil {
				slog.Warn("Failed to encode filtered response, suppressing body", "error", err)
				body = []byte("{}")
			} else {
				body = filtered
			}
		}
		r.header.Del("Content-Length")
	}

	for k, vals := range r.header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(r.status)
	_, _ = w.Write(body)
}
