package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "laundrysim",
		Short:         "Simulate laundry machine occupancy for one branch day",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSimulateCmd(), newDurationCmd())
	return root
}
