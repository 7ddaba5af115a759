package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-embedded/dfucore/supervisor"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the core's protocol version and build identifier.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "protocol %s, build %s\n", supervisor.ProtocolVersion, supervisor.BuildID)
			return nil
		},
	}
}
