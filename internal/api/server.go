package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AaronLay10/Choreo/internal/events"
	"github.com/AaronLay10/Choreo/internal/orchestrator"
	"github.com/AaronLay10/Choreo/internal/state"
	"github.com/AaronLay10/Choreo/internal/storage"
)

// controlTimeout bounds how long a handler waits for the tick goroutine.
const controlTimeout = 2 * time.Second

// Controller runs functions on the tick goroutine. host.Runner implements it.
type Controller interface {
	Do(ctx context.Context, fn func(*orchestrator.Director)) error
}

var (
	controller Controller
	logger     = log.Default().WithPrefix("api")
)

// SetController sets the controller used by state and operator endpoints.
func SetController(c Controller) {
	controller = c
}

// SetLogger replaces the package logger.
func SetLogger(l *log.Logger) {
	logger = l
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "choreo",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// eventsHandler serves the in-memory buffer, or the journal with
// ?source=journal[&limit=N].
func eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("source") != "journal" {
		writeJSON(w, http.StatusOK, events.Snapshot())
		return
	}

	j := events.GetJournal()
	if j == nil {
		writeJSON(w, http.StatusNotFound, OperatorResponse{Error: "journal not configured"})
		return
	}
	limit := storage.DefaultQueryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, OperatorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	rows, err := j.Query(limit)
	if err != nil {
		logger.Error("journal query failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, OperatorResponse{Error: "journal unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// StateResponse is the /state body.
type StateResponse struct {
	Stats  orchestrator.Stats `json:"stats"`
	Values map[string]any     `json:"values"`
}

func stateHandler(w http.ResponseWriter, r *http.Request) {
	var resp StateResponse
	err := control(r.Context(), func(d *orchestrator.Director) {
		resp.Stats = d.Stats()
		resp.Values = exportValues(d.Store())
	})
	if err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func exportValues(s *state.Store) map[string]any {
	out := make(map[string]any)
	for k, v := range s.Values() {
		out[k.String()] = state.Export(v)
	}
	return out
}

type OperatorResponse struct {
	OK    bool   `json:"ok"`
	Phase string `json:"phase,omitempty"`
	Error string `json:"error,omitempty"`
}

// operatorHandler wraps a director command as a POST endpoint that reports
// the phase current after it ran.
func operatorHandler(event string, cmd func(d *orchestrator.Director)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, OperatorResponse{Error: "method not allowed"})
			return
		}

		var phase string
		err := control(r.Context(), func(d *orchestrator.Director) {
			cmd(d)
			if cur := d.Current(); cur != nil {
				phase = cur.Name()
			}
		})
		if err != nil {
			writeControlError(w, err)
			return
		}

		events.Emit("info", event, "", map[string]interface{}{"phase": phase})
		writeJSON(w, http.StatusOK, OperatorResponse{OK: true, Phase: phase})
	}
}

// InformRequest is the /operator/inform body. Persist stores the value
// instead of only notifying.
type InformRequest struct {
	Key     string      `json:"key"`
	Value   interface{} `json:"value"`
	Persist bool        `json:"persist"`
}

func operatorInformHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, OperatorResponse{Error: "method not allowed"})
		return
	}

	var req InformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, OperatorResponse{Error: "invalid JSON"})
		return
	}
	if req.Key == "" {
		writeJSON(w, http.StatusBadRequest, OperatorResponse{Error: "key required"})
		return
	}
	key, err := state.ParseKey(req.Key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, OperatorResponse{Error: err.Error()})
		return
	}
	if req.Persist && req.Value == nil && key.Kind() != state.KindBool {
		writeJSON(w, http.StatusBadRequest, OperatorResponse{Error: "value required"})
		return
	}
	v, err := state.ParseValue(key.Kind(), req.Value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, OperatorResponse{Error: err.Error()})
		return
	}

	var phase string
	err = control(r.Context(), func(d *orchestrator.Director) {
		switch {
		case req.Persist:
			d.Store().Set(key, v)
		case req.Value == nil:
			d.Store().Inform(key)
		default:
			d.Store().InformValue(key, v)
		}
		if cur := d.Current(); cur != nil {
			phase = cur.Name()
		}
	})
	if err != nil {
		writeControlError(w, err)
		return
	}

	events.Emit("info", "operator.inform", "", map[string]interface{}{
		"key":     key.String(),
		"persist": req.Persist,
	})
	writeJSON(w, http.StatusOK, OperatorResponse{OK: true, Phase: phase})
}

var errNoController = errors.New("engine not running")

func control(ctx context.Context, fn func(*orchestrator.Director)) error {
	if controller == nil {
		return errNoController
	}
	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()
	return controller.Do(ctx, fn)
}

func writeControlError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, OperatorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// NewMux builds the route table. Probes and metrics stay unauthenticated.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/events", RequireAnyRole(eventsHandler))
	mux.HandleFunc("/ws/events", RequireAnyRole(wsEventsHandler))
	mux.HandleFunc("/state", RequireAnyRole(stateHandler))
	mux.HandleFunc("/operator/reset", RequireAnyRole(operatorHandler("operator.reset", (*orchestrator.Director).Reset)))
	mux.HandleFunc("/operator/advance", RequireAnyRole(operatorHandler("operator.advance", (*orchestrator.Director).Advance)))
	mux.HandleFunc("/operator/inform", RequireAdmin(operatorInformHandler))
	return mux
}

// Serve runs the API on addr until ctx ends, using TLS when configured.
func Serve(ctx context.Context, addr string) error {
	tlsCfg, err := LoadTLSConfig()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", addr, "tls", tlsCfg != nil, "auth", IsAuthEnabled())
	if tlsCfg != nil {
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
