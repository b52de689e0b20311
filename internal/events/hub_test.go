package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func TestPublishReachesSubscriber(t *testing.T) {
	hub := NewHub("*", true)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Subscribers() != 1 {
		t.Fatal("Subscriber never registered")
	}

	hub.Publish("alert", map[string]string{"student": "alice@school.example"})

	var env Envelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if env.Type != "alert" || env.TS == 0 {
		t.Errorf("Unexpected envelope: %+v", env)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub("*", true)
	// Must be a no-op, not a panic or a block.
	hub.Publish("alert", nil)
	if hub.Subscribers() != 0 {
		t.Errorf("Expected no subscribers, got %d", hub.Subscribers())
	}
}

func TestOriginRejectedInProduction(t *testing.T) {
	hub := NewHub("https://console.gdistrict.org", false)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", resp.StatusCode)
	}
}
