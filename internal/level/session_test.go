package level

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AaronLay10/Choreo/internal/orchestrator"
	"github.com/AaronLay10/Choreo/internal/state"
)

func TestInstantiate(t *testing.T) {
	lv, err := Load("testdata/forest.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var seen []state.Key
	attach := func(s *state.Store) {
		for _, k := range state.Keys() {
			s.Subscribe(state.ListenerFunc(func(k state.Key, _ state.Value) { seen = append(seen, k) }), k)
		}
	}
	d, plan, err := Instantiate(lv, attach, orchestrator.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if d.LevelID() != lv.Info.ID {
		t.Errorf("expected level id %q, got %q", lv.Info.ID, d.LevelID())
	}
	if len(plan.Phases) != len(lv.Phases) {
		t.Errorf("expected %d phases, got %d", len(lv.Phases), len(plan.Phases))
	}
	if len(seen) != len(lv.Initial) {
		t.Errorf("expected listeners to see %d initial writes, got %d", len(lv.Initial), len(seen))
	}
	if d.Stats().Started {
		t.Error("expected director unstarted")
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arena.yaml")
	other := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	w, err := Watch(path)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(other, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("version: 1\nlevel: {id: arena}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Changes:
		abs, _ := filepath.Abs(path)
		if got != abs {
			t.Errorf("expected change for %s, got %s", abs, got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	if err := w.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
