package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/Choreo/internal/events"
)

const (
	// Number of recent events replayed on connect
	recentEventsCount = 50

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second // must be less than pongWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Operator consoles are served from other origins; access is gated by
	// basic auth on the route instead.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// parsePrefixes splits a comma separated ?prefix= value.
func parsePrefixes(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// wsEventsHandler streams journal events. ?prefix=phase.,level. narrows the
// stream. ?since=<seq> resumes after the last event a client saw instead of
// replaying the most recent ones.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		since  uint64
		resume bool
	)
	if raw := q.Get("since"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "since must be an event sequence number", http.StatusBadRequest)
			return
		}
		since, resume = n, true
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "err", err)
		return
	}

	// Subscribe before reading the backlog so nothing emitted in between is
	// lost; events already replayed are skipped by sequence number.
	sub := events.Subscribe(parsePrefixes(q.Get("prefix"))...)
	closeAll := func() {
		events.Unsubscribe(sub)
		conn.Close()
		if n := sub.Dropped(); n > 0 {
			logger.Warn("ws client missed events", "dropped", n)
		}
	}

	var lastSeq uint64
	send := func(e events.Event) bool {
		if e.Seq <= lastSeq || !sub.Wants(e.Name) {
			return true
		}
		lastSeq = e.Seq
		data, err := json.Marshal(e)
		if err != nil {
			return true
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug("ws write failed", "err", err)
			return false
		}
		return true
	}

	var backlog []events.Event
	if resume {
		var complete bool
		backlog, complete = events.Since(since)
		if !complete {
			logger.Info("ws resume is missing evicted events", "since", since)
		}
		lastSeq = since
	} else {
		backlog = events.RecentEvents(recentEventsCount)
	}
	for _, e := range backlog {
		if !send(e) {
			closeAll()
			return
		}
	}

	// The reader only exists to process pongs and notice the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			closeAll()
			return

		case e, ok := <-sub.C:
			if !ok {
				conn.Close()
				return
			}
			if !send(e) {
				closeAll()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				closeAll()
				return
			}
		}
	}
}
