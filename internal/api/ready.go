package api

import (
	"net/http"
	"strings"
	"sync"
)

type readinessState struct {
	mu               sync.RWMutex
	directorReady    bool
	mqttConnected    bool
	mqttOptional     bool
	journalConnected bool
	journalOptional  bool
}

var readiness = &readinessState{mqttOptional: true, journalOptional: true}

// SetDirectorReady marks whether a level is loaded and ticking.
func SetDirectorReady(ready bool) {
	readiness.mu.Lock()
	readiness.directorReady = ready
	readiness.mu.Unlock()
}

// SetMQTTConnected records broker connectivity.
func SetMQTTConnected(connected bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mu.Unlock()
}

// SetMQTTOptional controls whether a missing broker fails /ready.
func SetMQTTOptional(optional bool) {
	readiness.mu.Lock()
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
}

// SetJournalConnected records journal health.
func SetJournalConnected(connected bool) {
	readiness.mu.Lock()
	readiness.journalConnected = connected
	readiness.mu.Unlock()
}

// SetJournalOptional controls whether a failing journal fails /ready.
func SetJournalOptional(optional bool) {
	readiness.mu.Lock()
	readiness.journalOptional = optional
	readiness.mu.Unlock()
}

type CheckStatus struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool                   `json:"ready"`
	Checks      map[string]CheckStatus `json:"checks"`
	NotReadyMsg string                 `json:"message,omitempty"`
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	directorReady := readiness.directorReady
	mqttConnected, mqttOptional := readiness.mqttConnected, readiness.mqttOptional
	journalConnected, journalOptional := readiness.journalConnected, readiness.journalOptional
	readiness.mu.RUnlock()

	resp := ReadinessResponse{Ready: true, Checks: make(map[string]CheckStatus)}
	var failing []string

	check := func(name string, ok, optional bool) {
		switch {
		case ok:
			resp.Checks[name] = CheckStatus{Status: "ok", Optional: optional}
		case optional:
			resp.Checks[name] = CheckStatus{Status: "unavailable", Optional: true}
		default:
			resp.Checks[name] = CheckStatus{Status: "not_ready"}
			resp.Ready = false
			failing = append(failing, name)
		}
	}
	check("director", directorReady, false)
	check("mqtt", mqttConnected, mqttOptional)
	check("journal", journalConnected, journalOptional)

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
		resp.NotReadyMsg = "not ready: " + strings.Join(failing, ", ")
	}
	writeJSON(w, status, resp)
}
