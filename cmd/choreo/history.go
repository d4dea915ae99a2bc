package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/Choreo/internal/storage"
)

var (
	flagHistoryLevel string
	flagHistoryLimit int
	flagHistoryJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Summarize journaled level attempts",
	Long: `Read the event journal and summarize each level attempt: phases
reached, resets, trigger firings and whether it finished.

The journal comes from engine.yaml or CHOREO_JOURNAL_DRIVER.

Examples:
  choreo history --level forest
  choreo history --level forest --limit 5000 --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagHistoryLevel, "level", "", "Level id to summarize (required)")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", storage.DefaultQueryLimit, "Number of journal rows to read")
	historyCmd.Flags().BoolVar(&flagHistoryJSON, "json", false, "Print JSON instead of a table")
	_ = historyCmd.MarkFlagRequired("level")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, env, err := loadConfig()
	if err != nil {
		return err
	}
	journal, err := openJournal(cfg, env, flagHistoryLevel)
	if err != nil {
		return err
	}
	if journal == nil {
		return errors.New("no journal configured (set journal.driver or CHOREO_JOURNAL_DRIVER)")
	}
	defer journal.Close()

	rows, err := journal.Query(flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}
	attempts := storage.Summarize(rows)

	out := cmd.OutOrStdout()
	if flagHistoryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(attempts)
	}

	fmt.Fprintf(out, "Attempts - %s\n\n", flagHistoryLevel)
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No attempts recorded yet.")
		return nil
	}
	writeAttempts(out, attempts)
	return nil
}

func writeAttempts(out io.Writer, attempts []storage.Attempt) {
	fmt.Fprintf(out, "  %-16s  %-8s  %-6s  %-5s  %-9s  %s\n", "Started", "Duration", "Resets", "Fires", "Finished", "Phases")
	fmt.Fprintf(out, "  %-16s  %-8s  %-6s  %-5s  %-9s  %s\n", "-------", "--------", "------", "-----", "--------", "------")
	for _, a := range attempts {
		dur := "-"
		if !a.Ended.IsZero() {
			dur = a.Duration.Round(time.Second).String()
		}
		fmt.Fprintf(out, "  %-16s  %-8s  %-6d  %-5d  %-9t  %s\n",
			a.Started.Local().Format("2006-01-02 15:04"), dur, a.Resets, a.Fires, a.Finished, strings.Join(a.Phases, " > "))
	}
}
