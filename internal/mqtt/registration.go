package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/AaronLay10/Choreo/internal/state"
)

// RegistrationPayload represents a v1 collaborator registration message,
// published to <prefix>/register when a renderer, spawner or HUD comes up.
type RegistrationPayload struct {
	Version      int               `json:"version"`
	Collaborator CollaboratorInfo  `json:"collaborator"`
	Inputs       []string          `json:"inputs"`
	Outputs      []string          `json:"outputs"`
	Meta         map[string]string `json:"meta,omitempty"`
}

// CollaboratorInfo contains collaborator metadata.
type CollaboratorInfo struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	HeartbeatSec int    `json:"heartbeat_sec"`
}

// ParseRegistration parses a registration payload from JSON bytes.
func ParseRegistration(data []byte) (*RegistrationPayload, error) {
	var payload RegistrationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid registration JSON: %w", err)
	}

	if payload.Version != 1 {
		return nil, fmt.Errorf("unsupported registration version: %d", payload.Version)
	}

	if payload.Collaborator.ID == "" {
		return nil, fmt.Errorf("collaborator.id is required")
	}

	return &payload, nil
}

// RoleSpec describes a collaborator role the engine expects, from
// engine.yaml.
type RoleSpec struct {
	Required bool
	Outputs  []string
}

// ValidationResult contains validation outcome.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// ValidateRegistration checks that every key a collaborator names is in
// the vocabulary and that it subscribes to the outputs its role requires.
func ValidateRegistration(payload *RegistrationPayload, roles map[string]RoleSpec) *ValidationResult {
	result := &ValidationResult{Valid: true}

	for _, name := range payload.Inputs {
		if _, err := state.ParseKey(name); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("input: %v", err))
			result.Valid = false
		}
	}
	for _, name := range payload.Outputs {
		if _, err := state.ParseKey(name); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("output: %v", err))
			result.Valid = false
		}
	}

	spec, known := roles[payload.Collaborator.Role]
	if !known {
		if len(roles) > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unrecognized role: %s", payload.Collaborator.Role))
		}
		return result
	}

	for _, want := range spec.Outputs {
		if !containsString(payload.Outputs, want) {
			result.Errors = append(result.Errors, fmt.Sprintf("role %s: missing output %s", payload.Collaborator.Role, want))
			result.Valid = false
		}
	}

	return result
}

// MissingRoles returns required roles with no registered collaborator.
func MissingRoles(roles map[string]RoleSpec, registry *CollaboratorRegistry) []string {
	present := make(map[string]bool)
	for _, c := range registry.All() {
		present[c.Role] = true
	}
	var missing []string
	for role, spec := range roles {
		if spec.Required && !present[role] {
			missing = append(missing, role)
		}
	}
	return missing
}

func containsString(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
