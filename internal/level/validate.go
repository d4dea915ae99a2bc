package level

import (
	"errors"
	"fmt"
	"time"

	"github.com/AaronLay10/Choreo/internal/orchestrator"
	"github.com/AaronLay10/Choreo/internal/state"
)

// Validate checks keys, values, durations, expressions and action shapes,
// returning every problem found joined into one error.
func (lv *Level) Validate() error {
	var errs []error
	add := func(path string, err error) {
		errs = append(errs, fmt.Errorf("%s: %w", path, err))
	}

	if lv.Info.ID == "" {
		errs = append(errs, errors.New("level.id is required"))
	}
	if lv.Info.LeadIn != "" {
		if _, err := parseDuration(lv.Info.LeadIn); err != nil {
			add("level.lead_in", err)
		}
	}
	if len(lv.Phases) == 0 {
		errs = append(errs, errors.New("at least one phase is required"))
	}

	for _, name := range lv.initialKeys() {
		raw := lv.Initial[name]
		key, err := state.ParseKey(name)
		if err != nil {
			add("initial", err)
			continue
		}
		if _, err := state.ParseValue(key.Kind(), raw); err != nil {
			add("initial."+name, err)
		}
	}

	seen := make(map[string]bool)
	for i, p := range lv.Phases {
		path := fmt.Sprintf("phases[%d]", i)
		if p.Name == "" {
			add(path, errors.New("name is required"))
		} else if seen[p.Name] {
			add(path, fmt.Errorf("duplicate phase name %q", p.Name))
		}
		seen[p.Name] = true

		validateActions(path+".execute", p.Execute, add)
		validateActions(path+".on_finished", p.OnFinished, add)
		for j, w := range p.When {
			validateWhen(fmt.Sprintf("%s.when[%d]", path, j), w, add)
		}
	}

	for i, w := range lv.Reactions {
		validateWhen(fmt.Sprintf("reactions[%d]", i), w, add)
	}

	return errors.Join(errs...)
}

func validateWhen(path string, w WhenDef, add func(string, error)) {
	validateTrigger(path+".trigger", w.Trigger, add)
	validateActions(path+".execute", w.Execute, add)
	validateActions(path+".then", w.Then, add)

	if u := w.Until; u != nil {
		switch {
		case u.Count != nil && u.Expr != "":
			add(path+".until", errors.New("count and expr are mutually exclusive"))
		case u.Count != nil:
			if _, err := state.ParseKey(u.Count.Key); err != nil {
				add(path+".until.count", err)
			}
			if u.Count.Threshold <= 0 {
				add(path+".until.count", errors.New("threshold must be positive"))
			}
		case u.Expr != "":
			if err := orchestrator.CheckStoreExpr(u.Expr); err != nil {
				add(path+".until.expr", err)
			}
		default:
			add(path+".until", errors.New("count or expr is required"))
		}
	}

	if w.ThenWhen != nil {
		validateWhen(path+".then_when", *w.ThenWhen, add)
	}
}

func validateTrigger(path string, t TriggerDef, add func(string, error)) {
	kinds := 0
	if t.After != "" {
		kinds++
		if _, err := parseDuration(t.After); err != nil {
			add(path+".after", err)
		}
	}
	if t.Key != "" {
		kinds++
		if _, err := state.ParseKey(t.Key); err != nil {
			add(path+".key", err)
		}
		if t.AtLeast != nil && t.Expr != "" {
			add(path, errors.New("at_least and expr are mutually exclusive"))
		}
		if t.Expr != "" {
			if err := orchestrator.CheckKeyExpr(t.Expr); err != nil {
				add(path+".expr", err)
			}
		}
	} else if t.AtLeast != nil || t.Expr != "" {
		add(path, errors.New("at_least and expr require key"))
	}
	if t.Sequence != nil {
		kinds++
		if len(t.Sequence) == 0 {
			add(path+".sequence", errors.New("at least one step is required"))
		}
		for i, step := range t.Sequence {
			validateTrigger(fmt.Sprintf("%s.sequence[%d]", path, i), step, add)
		}
	}

	switch kinds {
	case 0:
		add(path, errors.New("empty trigger"))
	case 1:
	default:
		add(path, errors.New("after, key and sequence are mutually exclusive"))
	}
}

func validateActions(path string, actions []ActionDef, add func(string, error)) {
	for i, a := range actions {
		validateAction(fmt.Sprintf("%s[%d]", path, i), a, add)
	}
}

func validateAction(path string, a ActionDef, add func(string, error)) {
	kinds := 0
	if a.Set != nil {
		kinds++
		key, err := state.ParseKey(a.Set.Key)
		if err != nil {
			add(path+".set", err)
		} else if _, err := state.ParseValue(key.Kind(), a.Set.Value); err != nil {
			add(path+".set", err)
		}
	}
	if a.Inform != nil {
		kinds++
		key, err := state.ParseKey(a.Inform.Key)
		if err != nil {
			add(path+".inform", err)
		} else if a.Inform.Value != nil {
			if _, err := state.ParseValue(key.Kind(), a.Inform.Value); err != nil {
				add(path+".inform", err)
			}
		}
	}
	if a.Add != nil {
		kinds++
		key, err := state.ParseKey(a.Add.Key)
		if err != nil {
			add(path+".add", err)
		} else if key.Kind() != state.KindInt {
			add(path+".add", fmt.Errorf("key %s is %s, not int", key, key.Kind()))
		}
	}
	if a.Message != nil {
		kinds++
	}
	if a.Advance {
		kinds++
	}
	if a.Reset {
		kinds++
	}
	if a.Log != "" {
		kinds++
	}
	if a.Experience != 0 {
		kinds++
	}

	switch kinds {
	case 0:
		add(path, errors.New("unknown or empty action"))
	case 1:
	default:
		add(path, errors.New("exactly one action per entry"))
	}
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
