package mqtt

import (
	"sync"

	"github.com/AaronLay10/Choreo/internal/state"
)

// Collaborator holds runtime information about a registered collaborator.
type Collaborator struct {
	ID      string
	Role    string
	Inputs  []state.Key
	Outputs []state.Key
}

// CollaboratorRegistry tracks which collaborators are present and which
// keys each wants to be told about.
type CollaboratorRegistry struct {
	mu     sync.RWMutex
	byID   map[string]*Collaborator
	wanted map[state.Key]int
}

// NewCollaboratorRegistry creates a new empty registry.
func NewCollaboratorRegistry() *CollaboratorRegistry {
	return &CollaboratorRegistry{
		byID:   make(map[string]*Collaborator),
		wanted: make(map[state.Key]int),
	}
}

// Register adds or replaces a collaborator.
func (r *CollaboratorRegistry) Register(c *Collaborator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(c.ID)
	cpy := copyCollaborator(c)
	r.byID[c.ID] = cpy
	for _, k := range cpy.Outputs {
		r.wanted[k]++
	}
}

// RegisterFromPayload registers a collaborator from a validated payload.
// Unknown key names are dropped.
func (r *CollaboratorRegistry) RegisterFromPayload(payload *RegistrationPayload) {
	c := &Collaborator{ID: payload.Collaborator.ID, Role: payload.Collaborator.Role}
	for _, name := range payload.Inputs {
		if k, err := state.ParseKey(name); err == nil {
			c.Inputs = append(c.Inputs, k)
		}
	}
	for _, name := range payload.Outputs {
		if k, err := state.ParseKey(name); err == nil {
			c.Outputs = append(c.Outputs, k)
		}
	}
	r.Register(c)
}

// Unregister removes a collaborator.
func (r *CollaboratorRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

func (r *CollaboratorRegistry) removeLocked(id string) {
	old, ok := r.byID[id]
	if !ok {
		return
	}
	for _, k := range old.Outputs {
		if r.wanted[k]--; r.wanted[k] <= 0 {
			delete(r.wanted, k)
		}
	}
	delete(r.byID, id)
}

// Get returns a copy of a collaborator, or nil if not found.
func (r *CollaboratorRegistry) Get(id string) *Collaborator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.byID[id]; ok {
		return copyCollaborator(c)
	}
	return nil
}

// Exists returns true if the collaborator is registered.
func (r *CollaboratorRegistry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// Wants reports whether any registered collaborator subscribed to key.
func (r *CollaboratorRegistry) Wants(key state.Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.wanted[key] > 0
}

// All returns copies of all registered collaborators.
func (r *CollaboratorRegistry) All() []*Collaborator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Collaborator, 0, len(r.byID))
	for _, c := range r.byID {
		result = append(result, copyCollaborator(c))
	}
	return result
}

// Len returns the number of registered collaborators.
func (r *CollaboratorRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Clear removes all collaborators.
func (r *CollaboratorRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*Collaborator)
	r.wanted = make(map[state.Key]int)
}

func copyCollaborator(c *Collaborator) *Collaborator {
	cpy := *c
	cpy.Inputs = append([]state.Key{}, c.Inputs...)
	cpy.Outputs = append([]state.Key{}, c.Outputs...)
	return &cpy
}
