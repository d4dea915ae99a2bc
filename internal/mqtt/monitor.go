package mqtt

import (
	"sync"
	"time"

	"github.com/AaronLay10/Choreo/internal/events"
)

// Presence tracks a registered collaborator's health.
type Presence struct {
	ID           string
	Role         string
	LastSeen     time.Time
	HeartbeatSec int
	Connected    bool
}

// Monitor tracks collaborator registration and heartbeats. A collaborator
// that misses its heartbeat is dropped from the registry so the publisher
// stops telling it about state.
type Monitor struct {
	mu        sync.RWMutex
	present   map[string]*Presence
	roles     map[string]RoleSpec
	registry  *CollaboratorRegistry
	tolerance float64 // multiplier for heartbeat interval (e.g., 2.0 = 2x heartbeat)
	now       func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewMonitor creates a new collaborator monitor.
// tolerance is the multiplier for heartbeat interval before considering disconnected.
func NewMonitor(roles map[string]RoleSpec, registry *CollaboratorRegistry, tolerance float64) *Monitor {
	if tolerance <= 1.0 {
		tolerance = 2.0 // default: miss 1 heartbeat
	}
	return &Monitor{
		present:   make(map[string]*Presence),
		roles:     roles,
		registry:  registry,
		tolerance: tolerance,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// HandleRegistration validates a registration payload and, if valid,
// registers the collaborator.
func (m *Monitor) HandleRegistration(payload *RegistrationPayload) *ValidationResult {
	result := ValidateRegistration(payload, m.roles)

	m.mu.Lock()
	defer m.mu.Unlock()

	id := payload.Collaborator.ID
	existing, seen := m.present[id]
	isReconnect := seen && existing != nil && !existing.Connected

	if !result.Valid {
		events.Emit("error", "collaborator.rejected", "registration validation failed", map[string]interface{}{
			"collaborator": id,
			"errors":       result.Errors,
		})
		return result
	}

	m.present[id] = &Presence{
		ID:           id,
		Role:         payload.Collaborator.Role,
		LastSeen:     m.now(),
		HeartbeatSec: payload.Collaborator.HeartbeatSec,
		Connected:    true,
	}
	m.registry.RegisterFromPayload(payload)

	events.Emit("info", "collaborator.registered", "", map[string]interface{}{
		"collaborator": id,
		"role":         payload.Collaborator.Role,
		"outputs":      payload.Outputs,
		"reconnect":    isReconnect,
	})
	return result
}

// Heartbeat records that a collaborator is alive. Unknown ids are ignored;
// a collaborator must register first.
func (m *Monitor) Heartbeat(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.present[id]
	if !ok || !p.Connected {
		return false
	}
	p.LastSeen = m.now()
	return true
}

// Start begins the background health check loop.
func (m *Monitor) Start(checkInterval time.Duration) {
	m.wg.Add(1)
	go m.healthCheckLoop(checkInterval)
}

// Stop stops the background health check loop.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) healthCheckLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.checkHealth()
		}
	}
}

func (m *Monitor) checkHealth() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	for id, p := range m.present {
		if !p.Connected || p.HeartbeatSec <= 0 {
			continue
		}

		timeout := time.Duration(float64(p.HeartbeatSec)*m.tolerance) * time.Second
		if now.Sub(p.LastSeen) > timeout {
			p.Connected = false
			m.registry.Unregister(id)

			events.Emit("warning", "collaborator.disconnected", "heartbeat timeout", map[string]interface{}{
				"collaborator": id,
				"role":         p.Role,
				"last_seen":    p.LastSeen.Format(time.RFC3339),
				"timeout_sec":  timeout.Seconds(),
			})
		}
	}
}

// GetPresence returns a copy of a collaborator's presence (for inspection).
func (m *Monitor) GetPresence(id string) *Presence {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.present[id]; ok {
		cpy := *p
		return &cpy
	}
	return nil
}

// Connected returns the ids of currently connected collaborators.
func (m *Monitor) Connected() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, p := range m.present {
		if p.Connected {
			ids = append(ids, id)
		}
	}
	return ids
}
