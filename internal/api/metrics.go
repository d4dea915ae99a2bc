package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/Choreo/internal/events"
	"github.com/AaronLay10/Choreo/internal/orchestrator"
	"github.com/AaronLay10/Choreo/internal/version"
)

var metricsState = &MetricsState{}

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu         sync.RWMutex
	startTime  time.Time
	engineName string
}

// InitMetrics records the start time. Call once at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
}

// SetEngineName sets the engine label on every metric.
func SetEngineName(name string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.engineName = name
}

// GetEngineName returns the engine label.
func GetEngineName() string {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	return metricsState.engineName
}

// fetchStats asks the tick goroutine for director stats with a short
// deadline so a wedged loop cannot hang a scrape.
func fetchStats(ctx context.Context) (orchestrator.Stats, bool) {
	if controller == nil {
		return orchestrator.Stats{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	var st orchestrator.Stats
	if err := controller.Do(ctx, func(d *orchestrator.Director) { st = d.Stats() }); err != nil {
		return orchestrator.Stats{}, false
	}
	return st, true
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	engineName := metricsState.engineName
	metricsState.mu.RUnlock()

	readiness.mu.RLock()
	directorReady := readiness.directorReady
	mqttConnected := readiness.mqttConnected
	journalConnected := readiness.journalConnected
	readiness.mu.RUnlock()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	st, haveStats := fetchStats(r.Context())

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	labels := fmt.Sprintf(`engine="%s",instance="%s",version="%s"`, engineName, hostname, version.Version)

	writeMetric(w, "choreo_uptime_seconds", "gauge",
		"Number of seconds since the engine started", time.Since(startTime).Seconds(), labels)
	writeMetric(w, "choreo_director_ready", "gauge",
		"Whether a level is loaded and ticking (1) or not (0)", boolGauge(directorReady), labels)
	writeMetric(w, "choreo_events_total", "counter",
		"Total number of events emitted since startup", events.TotalCount(), labels)
	writeMetric(w, "choreo_mqtt_connected", "gauge",
		"Whether the MQTT broker is connected (1) or not (0)", boolGauge(mqttConnected), labels)
	writeMetric(w, "choreo_journal_connected", "gauge",
		"Whether the event journal is healthy (1) or not (0)", boolGauge(journalConnected), labels)
	writeMetric(w, "choreo_ws_clients", "gauge",
		"Number of active WebSocket client connections", events.SubscriberCount(), labels)
	writeMetric(w, "choreo_ws_dropped_events_total", "counter",
		"Events dropped for WebSocket clients that fell behind", events.DroppedCount(), labels)

	if !haveStats {
		return
	}
	levelLabels := fmt.Sprintf(`%s,level="%s"`, labels, st.LevelID)
	writeMetric(w, "choreo_phase_transitions_total", "counter",
		"Phase transitions in the current level", st.Transitions, levelLabels)
	writeMetric(w, "choreo_level_resets_total", "counter",
		"Resets in the current level", st.Resets, levelLabels)
	writeMetric(w, "choreo_trigger_fires_total", "counter",
		"Trigger firings in the current level", st.Fires, levelLabels)
	writeMetric(w, "choreo_pending_tasks", "gauge",
		"Scheduled tasks waiting on the level clock", st.Pending, levelLabels)
	writeMetric(w, "choreo_level_clock_seconds", "gauge",
		"Level clock time", st.Clock.Seconds(), levelLabels)
	writeMetric(w, "choreo_level_finished", "gauge",
		"Whether the current level has finished (1) or not (0)", boolGauge(st.Finished), levelLabels)
}

func writeMetric(w io.Writer, name, mtype, help string, value interface{}, labels string) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
	if labels != "" {
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	} else {
		fmt.Fprintf(w, "%s %v\n", name, value)
	}
}
