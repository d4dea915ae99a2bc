package orchestrator

import (
	"fmt"

	"github.com/d5/tengo/v2"

	"github.com/AaronLay10/Choreo/internal/state"
)

const resultVar = "__result"

// program is a compiled boolean tengo expression. Variables are declared at
// compile time and rebound before every run.
type program struct {
	src      string
	compiled *tengo.Compiled
}

func compileExpr(expr string, names []string) (*program, error) {
	script := tengo.NewScript([]byte(resultVar + " := (" + expr + ")"))
	for _, name := range names {
		if err := script.Add(name, nil); err != nil {
			return nil, fmt.Errorf("declare %s: %w", name, err)
		}
	}
	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	return &program{src: expr, compiled: compiled}, nil
}

func (p *program) eval(vars map[string]any) (bool, error) {
	for name, v := range vars {
		if err := p.compiled.Set(name, v); err != nil {
			return false, fmt.Errorf("bind %s: %w", name, err)
		}
	}
	if err := p.compiled.Run(); err != nil {
		return false, fmt.Errorf("run %q: %w", p.src, err)
	}
	return p.compiled.Get(resultVar).Bool(), nil
}

// storeVarNames lists the variables a store expression can reference: every
// key's wire name and its base_ twin.
func storeVarNames() []string {
	keys := state.Keys()
	names := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		names = append(names, k.String(), "base_"+k.String())
	}
	return names
}

// CheckKeyExpr compiles an expression for OnKeyExpr without running it.
func CheckKeyExpr(expr string) error {
	_, err := compileExpr(expr, []string{"value"})
	return err
}

// CheckStoreExpr compiles an expression for Expr without running it.
func CheckStoreExpr(expr string) error {
	_, err := compileExpr(expr, storeVarNames())
	return err
}
