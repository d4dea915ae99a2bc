package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/Choreo/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "choreo %s", version.Version)
		if c := version.Commit(); c != "" {
			fmt.Fprintf(out, " (%s)", c)
		}
		fmt.Fprintf(out, " %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
