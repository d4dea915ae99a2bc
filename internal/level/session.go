package level

import (
	"github.com/AaronLay10/Choreo/internal/orchestrator"
	"github.com/AaronLay10/Choreo/internal/state"
)

// Instantiate creates a fresh store and director for lv and builds the
// level into it. attach, when non-nil, runs on the empty store before the
// initial values are written so listeners such as the MQTT publisher see
// them. The director is returned unstarted.
func Instantiate(lv *Level, attach func(*state.Store), opts ...orchestrator.Option) (*orchestrator.Director, *Plan, error) {
	store := state.New()
	if attach != nil {
		attach(store)
	}

	base := []orchestrator.Option{orchestrator.WithLevelID(lv.Info.ID)}
	if lv.Info.FinishScene != "" {
		base = append(base, orchestrator.WithFinishScene(lv.Info.FinishScene))
	}
	d := orchestrator.New(store, append(base, opts...)...)

	plan, err := Build(lv, d)
	if err != nil {
		return nil, nil, err
	}
	return d, plan, nil
}
