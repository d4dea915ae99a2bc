// Package level loads declarative level files and registers their phases,
// triggers and actions with a director.
package level

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/Choreo/internal/events"
)

// Version is the only supported level file version.
const Version = 1

// Level is the top-level document loaded from YAML.
type Level struct {
	Version   int                    `yaml:"version"`
	Info      Info                   `yaml:"level"`
	Initial   map[string]interface{} `yaml:"initial"`
	Phases    []PhaseDef             `yaml:"phases"`
	Reactions []WhenDef              `yaml:"reactions"`
}

// Info identifies the level.
type Info struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	LeadIn      string `yaml:"lead_in"`
	FinishScene string `yaml:"finish_scene"`
}

// PhaseDef is one gameplay beat.
type PhaseDef struct {
	Name       string      `yaml:"name"`
	Execute    []ActionDef `yaml:"execute"`
	When       []WhenDef   `yaml:"when"`
	OnFinished []ActionDef `yaml:"on_finished"`
}

// WhenDef binds a trigger to actions. Repeat without Until re-arms forever.
type WhenDef struct {
	Trigger  TriggerDef  `yaml:"trigger"`
	Execute  []ActionDef `yaml:"execute"`
	Until    *UntilDef   `yaml:"until"`
	Repeat   bool        `yaml:"repeat"`
	Then     []ActionDef `yaml:"then"`
	ThenWhen *WhenDef    `yaml:"then_when"`
}

// TriggerDef selects exactly one trigger kind.
type TriggerDef struct {
	After    string       `yaml:"after"`
	Key      string       `yaml:"key"`
	AtLeast  *float64     `yaml:"at_least"`
	Expr     string       `yaml:"expr"`
	Sequence []TriggerDef `yaml:"sequence"`
}

// UntilDef selects a stop condition.
type UntilDef struct {
	Count *CountDef `yaml:"count"`
	Expr  string    `yaml:"expr"`
}

// CountDef is a counter stop condition.
type CountDef struct {
	Key       string `yaml:"key"`
	Threshold int    `yaml:"threshold"`
}

// ActionDef selects exactly one action.
type ActionDef struct {
	Set        *KeyValue `yaml:"set"`
	Inform     *KeyValue `yaml:"inform"`
	Add        *AddDef   `yaml:"add"`
	Message    *string   `yaml:"message"`
	Advance    bool      `yaml:"advance"`
	Reset      bool      `yaml:"reset"`
	Log        string    `yaml:"log"`
	Experience int       `yaml:"experience"`
}

// KeyValue names a key and an optional value.
type KeyValue struct {
	Key   string      `yaml:"key"`
	Value interface{} `yaml:"value"`
}

// AddDef increments an int key.
type AddDef struct {
	Key   string `yaml:"key"`
	Delta int    `yaml:"delta"`
}

// Load reads, parses and validates a level file.
func Load(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read level file: %w", err)
	}
	lv, err := Parse(data)
	if err != nil {
		return nil, err
	}
	events.Emit("info", "level.loaded", "", map[string]interface{}{
		"path":      path,
		"level_id":  lv.Info.ID,
		"phases":    len(lv.Phases),
		"reactions": len(lv.Reactions),
	})
	return lv, nil
}

// initialKeys returns the names in Initial in a stable order so initial
// writes notify listeners the same way every run.
func (lv *Level) initialKeys() []string {
	names := make([]string, 0, len(lv.Initial))
	for name := range lv.Initial {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse decodes and validates a level document.
func Parse(data []byte) (*Level, error) {
	var lv Level
	if err := yaml.Unmarshal(data, &lv); err != nil {
		return nil, fmt.Errorf("failed to parse level YAML: %w", err)
	}

	if lv.Version != Version {
		return nil, fmt.Errorf("unsupported level version: %d", lv.Version)
	}

	if err := lv.Validate(); err != nil {
		return nil, err
	}

	return &lv, nil
}
