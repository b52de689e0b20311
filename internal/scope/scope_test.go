package scope

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/G-districts/Gschool-connect/internal/domain"
	"github.com/G-districts/Gschool-connect/internal/store"
)

func newScopedStore(t *testing.T) store.DocumentStore {
	t.Helper()
	docs, err := store.NewFileDocumentStore(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("NewFileDocumentStore() error: %v", err)
	}
	_, err = docs.Update(context.Background(), func(d *domain.Document) error {
		d.Sessions = append(d.Sessions, &domain.Session{
			ID:       "sess_1",
			Name:     "Period 1",
			Students: []string{"s1@school.example", "s2@school.example"},
		})
		return nil
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return docs
}

func echoHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if len(body) == 0 {
			body = []byte(`{}`)
		}
		_, _ = w.Write(body)
	})
}

func TestNoSessionPassesThrough(t *testing.T) {
	docs := newScopedStore(t)
	handler := Middleware(docs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"student":"outsider@school.example"}]`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/presence", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), "outsider") {
		t.Error("Unscoped request must not be filtered")
	}
}

func TestOutboundFilterKeepsRosterMembers(t *testing.T) {
	docs := newScopedStore(t)
	handler := Middleware(docs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"student":"s1@school.example","tab":"a"},
			{"student":"s2@school.example","tab":"b"},
			{"student":"s3@school.example","tab":"c"}
		]`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/presence?session=sess_1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var out []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Expected 2 entries after filtering, got %d: %v", len(out), out)
	}
	for _, entry := range out {
		if entry["student"] == "s3@school.example" {
			t.Error("Off-roster student leaked through filter")
		}
	}
}

func TestUnknownSessionFiltersEverything(t *testing.T) {
	docs := newScopedStore(t)
	handler := Middleware(docs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"student":"s1@school.example"}]`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/presence?session=no_such", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var out []any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Unknown session must scope to empty, got %v", out)
	}
}

func TestSessionIDFromHeader(t *testing.T) {
	docs := newScopedStore(t)
	handler := Middleware(docs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"student":"s3@school.example"}]`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/presence", nil)
	req.Header.Set(SessionHeader, "sess_1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var out []any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Header-named session must still filter, got %v", out)
	}
}

func TestInboundStudentsListIntersected(t *testing.T) {
	docs := newScopedStore(t)

	var seen map[string]any
	handler := Middleware(docs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&seen)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	payload := `{"session":"sess_1","students":["s1@school.example","s3@school.example"],"message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/command", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	students, ok := seen["students"].([]any)
	if !ok {
		t.Fatalf("handler saw no students list: %v", seen)
	}
	if len(students) != 1 || students[0] != "s1@school.example" {
		t.Errorf("Expected students intersected to roster, got %v", students)
	}
}

func TestOffRosterSingleIdentifierShortCircuits(t *testing.T) {
	docs := newScopedStore(t)

	called := false
	handler := Middleware(docs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	payload := `{"session":"sess_1","student":"s3@school.example","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/notify", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if called {
		t.Fatal("Handler must not run for an off-roster student")
	}
	if rr.Code != http.StatusOK {
		t.Errorf("Expected success-shaped response, got %d", rr.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["ok"] != true || out["ignored"] != true {
		t.Errorf("Expected ok+ignored response, got %v", out)
	}
}

func TestNestedDataIdentifierChecked(t *testing.T) {
	docs := newScopedStore(t)
	handler := Middleware(docs)(echoHandler(t))

	payload := `{"session":"sess_1","data":{"email":"s3@school.example"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/heartbeat", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["ignored"] != true {
		t.Errorf("Identifier under data must be checked, got %v", out)
	}
}

func TestOnRosterIdentifierPassesThrough(t *testing.T) {
	docs := newScopedStore(t)
	handler := Middleware(docs)(echoHandler(t))

	payload := `{"session":"sess_1","student":"s1@school.example","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/notify", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["ignored"] == true {
		t.Error("On-roster student must reach the handler")
	}
	if out["message"] != "hi" {
		t.Errorf("Body not preserved through middleware: %v", out)
	}
}

func TestStudentKeyWinsOverGenericID(t *testing.T) {
	roster := map[string]struct{}{"s1@school.example": {}}
	filtered := FilterByRoster([]any{
		map[string]any{"id": "poll_1", "student": "s1@school.example"},
		map[string]any{"id": "poll_2", "student": "s3@school.example"},
	}, roster)

	list, ok := filtered.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("Expected 1 entry, got %v", filtered)
	}
}

func TestFilterByRosterRecursesNestedStructures(t *testing.T) {
	roster := map[string]struct{}{"s1@school.example": {}}
	in := map[string]any{
		"presence": map[string]any{
			"entries": []any{
				map[string]any{"student": "s1@school.example"},
				map[string]any{"student": "s2@school.example"},
			},
		},
		"count": float64(2),
	}

	out := FilterByRoster(in, roster).(map[string]any)
	entries := out["presence"].(map[string]any)["entries"].([]any)
	if len(entries) != 1 {
		t.Errorf("Expected nested list filtered to 1, got %v", entries)
	}
	if out["count"] != float64(2) {
		t.Error("Scalar values must pass through unchanged")
	}
}

func TestContextSessionIDTakesPriority(t *testing.T) {
	docs := newScopedStore(t)
	handler := Middleware(docs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"student":"s1@school.example"}]`))
	}))

	// Context pins an unknown session even though the query names a real one.
	req := httptest.NewRequest(http.MethodGet, "/api/presence?session=sess_1", nil)
	req = req.WithContext(WithSessionID(req.Context(), "locked_session"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var out []any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Context session id must win over query parameter, got %v", out)
	}
}
