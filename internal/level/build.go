package level

import (
	"fmt"
	"time"

	"github.com/AaronLay10/Choreo/internal/orchestrator"
	"github.com/AaronLay10/Choreo/internal/state"
)

// Plan is the result of registering a level with a director.
type Plan struct {
	Phases []*orchestrator.Phase
	LeadIn time.Duration
}

// Build writes the initial values into the director's store, registers the
// phases in order and arms the reactions. The caller starts the director
// with the returned lead-in.
func Build(lv *Level, d *orchestrator.Director) (*Plan, error) {
	store := d.Store()
	for _, name := range lv.initialKeys() {
		raw := lv.Initial[name]
		key, err := state.ParseKey(name)
		if err != nil {
			return nil, err
		}
		v, err := state.ParseValue(key.Kind(), raw)
		if err != nil {
			return nil, fmt.Errorf("initial %s: %w", name, err)
		}
		store.Set(key, v)
	}

	plan := &Plan{}
	if lv.Info.LeadIn != "" {
		leadIn, err := parseDuration(lv.Info.LeadIn)
		if err != nil {
			return nil, fmt.Errorf("lead_in: %w", err)
		}
		plan.LeadIn = leadIn
	}

	for _, pd := range lv.Phases {
		p := d.NewPhase(pd.Name)
		start, err := buildActions(pd.Execute)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %w", pd.Name, err)
		}
		p.Execute(start...)
		finished, err := buildActions(pd.OnFinished)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %w", pd.Name, err)
		}
		p.OnFinished(finished...)
		for _, w := range pd.When {
			t, err := buildTrigger(w.Trigger)
			if err != nil {
				return nil, fmt.Errorf("phase %s: %w", pd.Name, err)
			}
			if err := configure(p.When(t), w); err != nil {
				return nil, fmt.Errorf("phase %s: %w", pd.Name, err)
			}
		}
		plan.Phases = append(plan.Phases, p)
	}
	d.SetPhaseSequence(plan.Phases...)

	for i, w := range lv.Reactions {
		t, err := buildTrigger(w.Trigger)
		if err != nil {
			return nil, fmt.Errorf("reaction %d: %w", i, err)
		}
		if err := configure(d.When(t), w); err != nil {
			return nil, fmt.Errorf("reaction %d: %w", i, err)
		}
	}

	return plan, nil
}

func configure(stage *orchestrator.WhenStage, w WhenDef) error {
	actions, err := buildActions(w.Execute)
	if err != nil {
		return err
	}
	stage.Execute(actions...)

	then, err := buildActions(w.Then)
	if err != nil {
		return err
	}

	stop, err := buildStop(w)
	if err != nil {
		return err
	}
	if stop != nil {
		stage.Until(stop)
	}
	stage.Then(then...)

	if w.ThenWhen != nil {
		t, err := buildTrigger(w.ThenWhen.Trigger)
		if err != nil {
			return err
		}
		return configure(stage.ThenWhen(t), *w.ThenWhen)
	}
	return nil
}

func buildStop(w WhenDef) (orchestrator.StopCondition, error) {
	switch {
	case w.Until != nil && w.Until.Count != nil:
		key, err := state.ParseKey(w.Until.Count.Key)
		if err != nil {
			return nil, err
		}
		return orchestrator.CountReached(key, w.Until.Count.Threshold), nil
	case w.Until != nil && w.Until.Expr != "":
		return orchestrator.Expr(w.Until.Expr), nil
	case w.Repeat:
		return orchestrator.Never(), nil
	}
	return nil, nil
}

func buildTrigger(t TriggerDef) (orchestrator.Trigger, error) {
	switch {
	case t.After != "":
		d, err := parseDuration(t.After)
		if err != nil {
			return nil, err
		}
		return orchestrator.After(d), nil
	case t.Key != "":
		key, err := state.ParseKey(t.Key)
		if err != nil {
			return nil, err
		}
		switch {
		case t.AtLeast != nil:
			return orchestrator.OnKeyAtLeast(key, *t.AtLeast), nil
		case t.Expr != "":
			return orchestrator.OnKeyExpr(key, t.Expr), nil
		}
		return orchestrator.OnKey(key), nil
	case t.Sequence != nil:
		if len(t.Sequence) == 0 {
			return nil, fmt.Errorf("empty sequence")
		}
		steps := make([]orchestrator.Trigger, 0, len(t.Sequence))
		for _, sd := range t.Sequence {
			step, err := buildTrigger(sd)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
		return orchestrator.Sequence(steps...), nil
	}
	return nil, fmt.Errorf("empty trigger")
}

func buildActions(defs []ActionDef) ([]orchestrator.Action, error) {
	out := make([]orchestrator.Action, 0, len(defs))
	for _, a := range defs {
		act, err := buildAction(a)
		if err != nil {
			return nil, err
		}
		out = append(out, act)
	}
	return out, nil
}

func buildAction(a ActionDef) (orchestrator.Action, error) {
	switch {
	case a.Set != nil:
		key, v, err := keyValue(a.Set)
		if err != nil {
			return nil, fmt.Errorf("set: %w", err)
		}
		return orchestrator.Set(key, v), nil
	case a.Inform != nil:
		if a.Inform.Value == nil {
			key, err := state.ParseKey(a.Inform.Key)
			if err != nil {
				return nil, fmt.Errorf("inform: %w", err)
			}
			return orchestrator.Inform(key), nil
		}
		key, v, err := keyValue(a.Inform)
		if err != nil {
			return nil, fmt.Errorf("inform: %w", err)
		}
		return orchestrator.InformValue(key, v), nil
	case a.Add != nil:
		key, err := state.ParseKey(a.Add.Key)
		if err != nil {
			return nil, fmt.Errorf("add: %w", err)
		}
		return orchestrator.Add(key, a.Add.Delta), nil
	case a.Message != nil:
		return orchestrator.Message(*a.Message), nil
	case a.Advance:
		return orchestrator.Advance(), nil
	case a.Reset:
		return orchestrator.Reset(), nil
	case a.Log != "":
		return orchestrator.Log(a.Log), nil
	case a.Experience != 0:
		return orchestrator.GainExperience(a.Experience), nil
	}
	return nil, fmt.Errorf("unknown or empty action")
}

func keyValue(kv *KeyValue) (state.Key, state.Value, error) {
	key, err := state.ParseKey(kv.Key)
	if err != nil {
		return 0, nil, err
	}
	v, err := state.ParseValue(key.Kind(), kv.Value)
	if err != nil {
		return 0, nil, err
	}
	return key, v, nil
}
