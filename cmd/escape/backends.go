package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/willbeason/escape-fractal/pkg/device"
)

func backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List device adapters usable with --strategy=device",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			for _, name := range device.Available() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
