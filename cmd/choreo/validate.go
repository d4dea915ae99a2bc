package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/Choreo/internal/level"
	"github.com/AaronLay10/Choreo/internal/orchestrator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <level.yaml>",
	Short: "Check a level file without running it",
	Long: `Parse and validate a level, then build it against a scratch director
so expression and value errors surface too. Every problem is reported.

Examples:
  choreo validate levels/forest.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	lv, err := level.Load(args[0])
	if err != nil {
		return fmt.Errorf("%s:\n%w", args[0], err)
	}
	if _, _, err := level.Instantiate(lv, nil, orchestrator.WithLogger(log.New(io.Discard))); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	name := lv.Info.Name
	if name == "" {
		name = lv.Info.ID
	}
	fmt.Fprintf(out, "%s: ok (%s, %d phases, %d reactions)\n", args[0], name, len(lv.Phases), len(lv.Reactions))
	return nil
}

