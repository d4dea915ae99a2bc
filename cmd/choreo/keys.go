package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/Choreo/internal/state"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the state keys levels and collaborators can use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "  %-18s  %s\n", "Key", "Kind")
		fmt.Fprintf(out, "  %-18s  %s\n", "---", "----")
		for _, k := range state.Keys() {
			fmt.Fprintf(out, "  %-18s  %s\n", k, k.Kind())
		}
	},
}
