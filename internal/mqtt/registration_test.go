package mqtt

import (
	"testing"
	"time"

	"github.com/AaronLay10/Choreo/internal/state"
)

func TestParseRegistration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "valid",
			input: `{"version": 1, "collaborator": {"id": "spawner-1", "role": "spawner", "heartbeat_sec": 5}, "outputs": ["spawn_enemy"]}`,
		},
		{
			name:    "wrong version",
			input:   `{"version": 2, "collaborator": {"id": "x"}}`,
			wantErr: true,
		},
		{
			name:    "missing id",
			input:   `{"version": 1, "collaborator": {"role": "hud"}}`,
			wantErr: true,
		},
		{
			name:    "invalid JSON",
			input:   `{not json}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistration([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseRegistration() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRegistration(t *testing.T) {
	roles := map[string]RoleSpec{
		"spawner": {Required: true, Outputs: []string{"spawn_enemy"}},
	}

	tests := []struct {
		name      string
		payload   *RegistrationPayload
		wantValid bool
		wantErrs  int
		wantWarns int
	}{
		{
			name: "valid spawner",
			payload: &RegistrationPayload{
				Version:      1,
				Collaborator: CollaboratorInfo{ID: "s1", Role: "spawner"},
				Inputs:       []string{"enemy_spawned", "enemy_died"},
				Outputs:      []string{"spawn_enemy"},
			},
			wantValid: true,
		},
		{
			name: "missing required output",
			payload: &RegistrationPayload{
				Version:      1,
				Collaborator: CollaboratorInfo{ID: "s2", Role: "spawner"},
			},
			wantValid: false,
			wantErrs:  1,
		},
		{
			name: "unknown keys",
			payload: &RegistrationPayload{
				Version:      1,
				Collaborator: CollaboratorInfo{ID: "s3", Role: "spawner"},
				Inputs:       []string{"gold"},
				Outputs:      []string{"spawn_enemy", "loot"},
			},
			wantValid: false,
			wantErrs:  2,
		},
		{
			name: "unrecognized role",
			payload: &RegistrationPayload{
				Version:      1,
				Collaborator: CollaboratorInfo{ID: "x", Role: "jukebox"},
				Outputs:      []string{"message"},
			},
			wantValid: true,
			wantWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateRegistration(tt.payload, roles)
			if result.Valid != tt.wantValid {
				t.Errorf("expected Valid=%v, got %v", tt.wantValid, result.Valid)
			}
			if len(result.Errors) != tt.wantErrs {
				t.Errorf("expected %d errors, got %d: %v", tt.wantErrs, len(result.Errors), result.Errors)
			}
			if len(result.Warnings) != tt.wantWarns {
				t.Errorf("expected %d warnings, got %d: %v", tt.wantWarns, len(result.Warnings), result.Warnings)
			}
		})
	}
}

func TestCollaboratorRegistry(t *testing.T) {
	registry := NewCollaboratorRegistry()
	registry.Register(&Collaborator{ID: "hud", Role: "hud", Outputs: []state.Key{state.KeyMessage}})
	registry.Register(&Collaborator{ID: "hud2", Role: "hud", Outputs: []state.Key{state.KeyMessage, state.KeyCountdown}})

	if !registry.Exists("hud") || registry.Exists("nobody") {
		t.Error("unexpected existence result")
	}
	if registry.Len() != 2 {
		t.Errorf("expected 2 collaborators, got %d", registry.Len())
	}

	got := registry.Get("hud2")
	got.Outputs[0] = state.KeyKillCount
	if registry.Get("hud2").Outputs[0] != state.KeyMessage {
		t.Error("expected Get to return a copy")
	}

	registry.Unregister("hud2")
	if registry.Wants(state.KeyCountdown) {
		t.Error("expected countdown unwanted after unregister")
	}
	if !registry.Wants(state.KeyMessage) {
		t.Error("expected message still wanted by hud")
	}

	// Re-registering replaces outputs.
	registry.Register(&Collaborator{ID: "hud", Outputs: []state.Key{state.KeyPhase}})
	if registry.Wants(state.KeyMessage) {
		t.Error("expected message unwanted after re-register")
	}

	registry.Clear()
	if registry.Len() != 0 || registry.Wants(state.KeyPhase) {
		t.Error("expected empty registry after clear")
	}
}

func TestMissingRoles(t *testing.T) {
	roles := map[string]RoleSpec{
		"spawner":  {Required: true},
		"renderer": {Required: true},
		"hud":      {},
	}
	registry := NewCollaboratorRegistry()
	registry.Register(&Collaborator{ID: "r1", Role: "renderer"})

	missing := MissingRoles(roles, registry)
	if len(missing) != 1 || missing[0] != "spawner" {
		t.Errorf("expected [spawner], got %v", missing)
	}
}

func TestMonitor_HeartbeatTimeout(t *testing.T) {
	registry := NewCollaboratorRegistry()
	monitor := NewMonitor(nil, registry, 2.0)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	monitor.now = func() time.Time { return now }

	result := monitor.HandleRegistration(&RegistrationPayload{
		Version:      1,
		Collaborator: CollaboratorInfo{ID: "spawner-1", Role: "spawner", HeartbeatSec: 5},
		Outputs:      []string{"spawn_enemy"},
	})
	if !result.Valid {
		t.Fatalf("expected valid registration: %v", result.Errors)
	}

	now = now.Add(8 * time.Second)
	if !monitor.Heartbeat("spawner-1") {
		t.Fatal("expected heartbeat accepted")
	}
	now = now.Add(9 * time.Second)
	monitor.checkHealth()
	if p := monitor.GetPresence("spawner-1"); p == nil || !p.Connected {
		t.Fatal("expected still connected within 2x heartbeat")
	}

	now = now.Add(2 * time.Second)
	monitor.checkHealth()
	if p := monitor.GetPresence("spawner-1"); p.Connected {
		t.Error("expected disconnected after timeout")
	}
	if registry.Exists("spawner-1") {
		t.Error("expected registry entry dropped")
	}
	if monitor.Heartbeat("spawner-1") {
		t.Error("expected heartbeat from disconnected collaborator to be ignored")
	}
	if len(monitor.Connected()) != 0 {
		t.Error("expected no connected collaborators")
	}
}

func TestMonitor_RejectsInvalid(t *testing.T) {
	registry := NewCollaboratorRegistry()
	monitor := NewMonitor(map[string]RoleSpec{"hud": {Outputs: []string{"message"}}}, registry, 0)

	result := monitor.HandleRegistration(&RegistrationPayload{
		Version:      1,
		Collaborator: CollaboratorInfo{ID: "hud-1", Role: "hud"},
	})
	if result.Valid {
		t.Error("expected invalid registration")
	}
	if registry.Exists("hud-1") {
		t.Error("expected rejected collaborator not registered")
	}
}
