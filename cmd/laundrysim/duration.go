package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"laundry-branch-monitor/internal/sim"
)

func newDurationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duration SERVICES",
		Short: "Print the sequential duration of a service list",
		Long: `Print how long a transaction with the given services runs end to end.

Examples:
  laundrysim duration "Cuci, Kering"        # 60 minutes
  laundrysim duration "Cuci, Cuci, Bilas"   # repeated units run in parallel`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts := sim.ParseServices(strings.Join(args, ","))
			if counts.Empty() {
				return fmt.Errorf("no known service in %q", strings.Join(args, " "))
			}
			d := counts.Duration()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d minutes\n", counts, int(d.Minutes()))
			return nil
		},
	}
}
