package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/Choreo/internal/events"
)

// waitFor polls a condition until it returns true or timeout expires.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("timeout waiting for: %s", msg)
}

func dialEvents(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(wsEventsHandler))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	var e events.Event
	if err := json.Unmarshal(msg, &e); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}
	return e
}

func TestWebSocketReceivesRecentEvents(t *testing.T) {
	events.Clear()
	for i := 0; i < 5; i++ {
		events.Emit("info", "trigger.fired", "", map[string]interface{}{"i": i})
	}

	conn := dialEvents(t, "")
	for i := 0; i < 5; i++ {
		if e := readEvent(t, conn); e.Name != "trigger.fired" {
			t.Errorf("expected 'trigger.fired', got '%s'", e.Name)
		}
	}
}

func TestWebSocketReceivesNewEvents(t *testing.T) {
	events.Clear()
	conn := dialEvents(t, "")

	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", "phase.completed", "", map[string]interface{}{"phase": "horde"})
	}()

	e := readEvent(t, conn)
	if e.Name != "phase.completed" {
		t.Errorf("expected 'phase.completed', got '%s'", e.Name)
	}
	if e.Fields["phase"] != "horde" {
		t.Errorf("expected phase 'horde', got '%v'", e.Fields["phase"])
	}
}

func TestWebSocketPrefixFilter(t *testing.T) {
	events.Clear()
	events.Emit("info", "trigger.armed", "", nil)
	events.Emit("info", "level.started", "", nil)

	conn := dialEvents(t, "?prefix=level.,phase.")
	if e := readEvent(t, conn); e.Name != "level.started" {
		t.Fatalf("expected replay filtered to level.started, got %s", e.Name)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", "trigger.fired", "", nil)
		events.Emit("info", "phase.started", "", nil)
	}()
	if e := readEvent(t, conn); e.Name != "phase.started" {
		t.Errorf("expected phase.started, got %s", e.Name)
	}
}

func TestParsePrefixes(t *testing.T) {
	got := parsePrefixes(" phase., ,level.")
	if len(got) != 2 || got[0] != "phase." || got[1] != "level." {
		t.Errorf("unexpected prefixes %v", got)
	}
	if parsePrefixes("") != nil {
		t.Error("expected no prefixes for an empty value")
	}
}

func TestWebSocketResumesAfterSeq(t *testing.T) {
	events.Clear()
	events.Emit("info", "phase.started", "", map[string]interface{}{"phase": "a"})
	events.Emit("info", "phase.started", "", map[string]interface{}{"phase": "b"})
	events.Emit("info", "phase.started", "", map[string]interface{}{"phase": "c"})
	recent := events.RecentEvents(3)
	seen := recent[1].Seq

	conn := dialEvents(t, "?since="+strconv.FormatUint(seen, 10))
	e := readEvent(t, conn)
	if e.Fields["phase"] != "c" || e.Seq != seen+1 {
		t.Fatalf("expected to resume at phase c (seq %d), got %v seq %d", seen+1, e.Fields["phase"], e.Seq)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", "phase.started", "", map[string]interface{}{"phase": "d"})
	}()
	if e := readEvent(t, conn); e.Fields["phase"] != "d" {
		t.Errorf("expected live phase d next, got %v", e.Fields["phase"])
	}
}

func TestWebSocketRejectsBadSince(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(wsEventsHandler))
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"?since=latest", nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", resp)
	}
}

func TestWebSocketDisconnectCleansUp(t *testing.T) {
	events.Clear()
	events.CloseAllSubscribers()

	server := httptest.NewServer(http.HandlerFunc(wsEventsHandler))
	defer server.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		events.Emit("info", "system.startup", "", nil)
	}()
	if e := readEvent(t, conn); e.Name != "system.startup" {
		t.Errorf("expected 'system.startup', got '%s'", e.Name)
	}

	conn.Close()

	// The writer notices the close on its next write.
	for i := 0; i < 5; i++ {
		events.Emit("info", "system.startup", "", nil)
		time.Sleep(50 * time.Millisecond)
	}

	waitFor(t, 5*time.Second, func() bool {
		return events.SubscriberCount() == 0
	}, "subscriber count to return to 0 after close")
}

func TestWebSocketMultipleClients(t *testing.T) {
	events.Clear()
	conn1 := dialEvents(t, "")
	conn2 := dialEvents(t, "")

	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", "level.finished", "", map[string]interface{}{"scene": "menu"})
	}()

	if e := readEvent(t, conn1); e.Name != "level.finished" {
		t.Errorf("client1: expected 'level.finished', got '%s'", e.Name)
	}
	if e := readEvent(t, conn2); e.Name != "level.finished" {
		t.Errorf("client2: expected 'level.finished', got '%s'", e.Name)
	}
}
