package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/AaronLay10/Choreo/internal/events"
	"github.com/AaronLay10/Choreo/internal/orchestrator"
)

// Alert severity levels
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert event types
const (
	AlertMQTTDisconnected   = "mqtt_disconnected"
	AlertJournalUnavailable = "journal_unavailable"
	AlertPhaseStalled       = "phase_stalled"
)

// AlertPayload is the JSON structure sent to the webhook.
type AlertPayload struct {
	Engine    string                 `json:"engine"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// AlertConfig holds alert configuration.
type AlertConfig struct {
	WebhookURL             string
	MQTTDisconnectDelay    time.Duration
	JournalDisconnectDelay time.Duration
	// StallAfter is how long a started level may sit in one phase before
	// phase.stalled is raised. Zero disables the watchdog.
	StallAfter time.Duration
}

// outage tracks one dependency and alerts once it has been down for delay,
// then once more when it recovers.
type outage struct {
	alert    string
	severity string
	down     string
	restored string
	delay    time.Duration

	up    bool
	since time.Time
	sent  bool
}

func (o *outage) observe(connected bool, now time.Time) {
	if connected {
		if !o.up && o.sent {
			sendAlert(o.alert, SeverityInfo, o.restored, map[string]interface{}{
				"recovered_at": now.UTC().Format(time.RFC3339),
			})
		}
		o.up, o.sent, o.since = true, false, time.Time{}
		return
	}

	if o.up {
		o.since = now
	}
	o.up = false

	if o.sent || o.since.IsZero() {
		return
	}
	if down := now.Sub(o.since); down >= o.delay {
		o.sent = true
		sendAlert(o.alert, o.severity, o.down, map[string]interface{}{
			"disconnected_since":   o.since.UTC().Format(time.RFC3339),
			"disconnected_seconds": int(down.Seconds()),
		})
	}
}

// stallWatch raises phase.stalled when neither a transition nor a reset
// happens for the configured window.
type stallWatch struct {
	after       time.Duration
	level       string
	transitions int
	resets      int
	since       time.Time
	sent        bool
}

func (s *stallWatch) observe(st orchestrator.Stats, now time.Time) {
	if s.after <= 0 {
		return
	}
	if !st.Started || st.Finished {
		s.since, s.sent = time.Time{}, false
		return
	}
	if s.since.IsZero() || st.LevelID != s.level || st.Transitions != s.transitions || st.Resets != s.resets {
		s.level, s.transitions, s.resets = st.LevelID, st.Transitions, st.Resets
		s.since, s.sent = now, false
		return
	}
	if s.sent || now.Sub(s.since) < s.after {
		return
	}
	s.sent = true
	fields := map[string]interface{}{
		"phase":         st.Phase,
		"level_id":      st.LevelID,
		"stalled_for_s": int(now.Sub(s.since).Seconds()),
	}
	events.Emit("warning", "phase.stalled", "no phase progress", fields)
	sendAlert(AlertPhaseStalled, SeverityWarning, "phase stalled: "+st.Phase, fields)
}

var (
	alertMu     sync.Mutex
	alertConfig AlertConfig
	mqttOutage  *outage
	jrnlOutage  *outage
	stall       *stallWatch
	httpClient  = &http.Client{Timeout: 10 * time.Second}
)

// InitAlerts configures the webhook and resets all tracking. Everything is
// assumed healthy at start.
func InitAlerts(cfg AlertConfig) {
	alertMu.Lock()
	defer alertMu.Unlock()

	alertConfig = cfg
	mqttOutage = &outage{
		alert: AlertMQTTDisconnected, severity: SeverityWarning,
		down: "MQTT broker disconnected", restored: "MQTT connection restored",
		delay: cfg.MQTTDisconnectDelay, up: true,
	}
	jrnlOutage = &outage{
		alert: AlertJournalUnavailable, severity: SeverityCritical,
		down: "event journal unavailable", restored: "event journal restored",
		delay: cfg.JournalDisconnectDelay, up: true,
	}
	stall = &stallWatch{after: cfg.StallAfter}

	if cfg.WebhookURL != "" {
		logger.Info("alerts enabled", "mqtt_delay", cfg.MQTTDisconnectDelay,
			"journal_delay", cfg.JournalDisconnectDelay, "stall_after", cfg.StallAfter)
	}
}

// GetAlertWebhookURL returns the configured webhook URL.
func GetAlertWebhookURL() string {
	alertMu.Lock()
	defer alertMu.Unlock()
	return alertConfig.WebhookURL
}

// SendAlert posts an alert to the webhook in the background, or logs it
// when no webhook is configured.
func SendAlert(event, severity, message string, details map[string]interface{}) {
	alertMu.Lock()
	defer alertMu.Unlock()
	sendAlert(event, severity, message, details)
}

// sendAlert requires alertMu.
func sendAlert(event, severity, message string, details map[string]interface{}) {
	if alertConfig.WebhookURL == "" {
		logger.Warn("alert", "event", event, "severity", severity, "msg", message, "details", details)
		return
	}

	engine := GetEngineName()
	if engine == "" {
		engine = "unknown"
	}
	payload := AlertPayload{
		Engine:    engine,
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Severity:  severity,
		Message:   message,
		Details:   details,
	}
	go sendWebhook(alertConfig.WebhookURL, payload)
}

func sendWebhook(url string, payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("alert: marshal failed", "err", err)
		return
	}

	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Error("alert: webhook POST failed", "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Error("alert: webhook rejected", "status", resp.StatusCode)
	}
}

// CheckAndAlertMQTT feeds the MQTT connection state to the alert tracker.
func CheckAndAlertMQTT(connected bool) {
	checkOutage(func() *outage { return mqttOutage }, connected, time.Now())
}

// CheckAndAlertJournal feeds the journal state to the alert tracker.
func CheckAndAlertJournal(connected bool) {
	checkOutage(func() *outage { return jrnlOutage }, connected, time.Now())
}

func checkOutage(get func() *outage, connected bool, now time.Time) {
	alertMu.Lock()
	defer alertMu.Unlock()
	if o := get(); o != nil {
		o.observe(connected, now)
	}
}

// CheckStall feeds director stats to the stall watchdog.
func CheckStall(st orchestrator.Stats) {
	checkStallAt(st, time.Now())
}

func checkStallAt(st orchestrator.Stats, now time.Time) {
	alertMu.Lock()
	defer alertMu.Unlock()
	if stall != nil {
		stall.observe(st, now)
	}
}

var (
	probeMu   sync.Mutex
	mqttProbe func() bool
)

// SetMQTTProbe registers the function the monitor polls for broker state.
func SetMQTTProbe(probe func() bool) {
	probeMu.Lock()
	mqttProbe = probe
	probeMu.Unlock()
}

func getMQTTProbe() func() bool {
	probeMu.Lock()
	defer probeMu.Unlock()
	return mqttProbe
}

// StartAlertMonitor polls connection state and director progress until ctx
// ends.
func StartAlertMonitor(ctx context.Context, checkInterval time.Duration) {
	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if probe := getMQTTProbe(); probe != nil {
				SetMQTTConnected(probe())
			}
			if events.GetJournal() != nil {
				SetJournalConnected(events.JournalHealthy())
			}

			readiness.mu.RLock()
			mqttConnected, mqttOptional := readiness.mqttConnected, readiness.mqttOptional
			journalConnected, journalOptional := readiness.journalConnected, readiness.journalOptional
			readiness.mu.RUnlock()

			// Optional means the dependency is not configured.
			if !mqttOptional {
				CheckAndAlertMQTT(mqttConnected)
			}
			if !journalOptional {
				CheckAndAlertJournal(journalConnected)
			}
			if st, ok := fetchStats(ctx); ok {
				CheckStall(st)
			}
		}
	}()
}
