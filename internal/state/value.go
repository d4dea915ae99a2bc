package state

import (
	"fmt"
	"time"
)

// Kind is the value kind a key conventionally holds.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindPoint
	KindDuration
	KindProgress
	KindPayload
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindPoint:
		return "point"
	case KindDuration:
		return "duration"
	case KindProgress:
		return "progress"
	case KindPayload:
		return "payload"
	default:
		return "invalid"
	}
}

// Value is the closed set of things the store can hold. Only the types in
// this file implement it.
type Value interface {
	Kind() Kind
	sealed()
}

type Int int

type Float float64

type Bool bool

// Point is a 2D position in collaborator (world) coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Duration time.Duration

// Payload carries opaque collaborator data (touch targets, HUD text, spawn
// requests). The store never looks inside it.
type Payload struct {
	Data any
}

func (Int) Kind() Kind      { return KindInt }
func (Float) Kind() Kind    { return KindFloat }
func (Bool) Kind() Kind     { return KindBool }
func (Point) Kind() Kind    { return KindPoint }
func (Duration) Kind() Kind { return KindDuration }
func (Payload) Kind() Kind  { return KindPayload }

func (Int) sealed()      {}
func (Float) sealed()    {}
func (Bool) sealed()     {}
func (Point) sealed()    {}
func (Duration) sealed() {}
func (Payload) sealed()  {}

// Progress is the player's accrued progress. It is mutable and therefore
// the one value kind that snapshots clone.
type Progress struct {
	Experience int             `json:"experience"`
	Level      int             `json:"level"`
	Abilities  map[string]bool `json:"abilities,omitempty"`
}

func (*Progress) Kind() Kind { return KindProgress }
func (*Progress) sealed()    {}

// Clone returns a deep copy. Cloning nil yields nil.
func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	c := &Progress{Experience: p.Experience, Level: p.Level}
	if p.Abilities != nil {
		c.Abilities = make(map[string]bool, len(p.Abilities))
		for k, v := range p.Abilities {
			c.Abilities[k] = v
		}
	}
	return c
}

// Export converts a value into plain Go data suitable for JSON encoding or
// script bindings.
func Export(v Value) any {
	switch t := v.(type) {
	case Int:
		return int(t)
	case Float:
		return float64(t)
	case Bool:
		return bool(t)
	case Point:
		return map[string]any{"x": t.X, "y": t.Y}
	case Duration:
		return time.Duration(t).Seconds()
	case *Progress:
		if t == nil {
			return nil
		}
		abilities := make(map[string]any, len(t.Abilities))
		for k, on := range t.Abilities {
			abilities[k] = on
		}
		return map[string]any{
			"experience": t.Experience,
			"level":      t.Level,
			"abilities":  abilities,
		}
	case Payload:
		return t.Data
	default:
		return nil
	}
}

// ParseValue converts decoded YAML/JSON data into the value kind k.
// Durations accept Go duration strings or a number of seconds.
func ParseValue(k Kind, raw any) (Value, error) {
	switch k {
	case KindInt:
		n, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("expected number for int, got %T", raw)
		}
		return Int(int(n)), nil
	case KindFloat:
		n, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("expected number for float, got %T", raw)
		}
		return Float(n), nil
	case KindBool:
		if raw == nil {
			return Bool(true), nil
		}
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return Bool(b), nil
	case KindPoint:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected {x, y} for point, got %T", raw)
		}
		x, okX := toFloat(m["x"])
		y, okY := toFloat(m["y"])
		if !okX || !okY {
			return nil, fmt.Errorf("point requires numeric x and y")
		}
		return Point{X: x, Y: y}, nil
	case KindDuration:
		switch t := raw.(type) {
		case string:
			d, err := time.ParseDuration(t)
			if err != nil {
				return nil, fmt.Errorf("invalid duration %q: %w", t, err)
			}
			return Duration(d), nil
		default:
			secs, ok := toFloat(raw)
			if !ok {
				return nil, fmt.Errorf("expected duration, got %T", raw)
			}
			return Duration(time.Duration(secs * float64(time.Second))), nil
		}
	case KindProgress:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected mapping for progress, got %T", raw)
		}
		p := &Progress{}
		if xp, ok := toFloat(m["experience"]); ok {
			p.Experience = int(xp)
		}
		if lvl, ok := toFloat(m["level"]); ok {
			p.Level = int(lvl)
		}
		if abilities, ok := m["abilities"].(map[string]any); ok {
			p.Abilities = make(map[string]bool, len(abilities))
			for name, v := range abilities {
				on, _ := v.(bool)
				p.Abilities[name] = on
			}
		}
		return p, nil
	case KindPayload:
		return Payload{Data: raw}, nil
	default:
		return nil, fmt.Errorf("cannot parse value of kind %s", k)
	}
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
