package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fenwick-embedded/dfucore/internal/logging"
)

func newRunCommand() *cobra.Command {
	var imagePath string
	var raw bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a firmware image through a simulated DFU session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if imagePath == "" {
				return fmt.Errorf("dfusim run: --image is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var rawOut io.Writer
			if raw {
				rawOut = cmd.OutOrStdout()
			}

			logger := logging.NewLogrusAdapter(setUpLogging())
			st, err := runSession(cfg, imagePath, logger, rawOut)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "final state: %s (from %s)\n", st.State, st.PreviousState)
			fmt.Fprintf(cmd.OutOrStdout(), "packets processed: %d, dropped: %d, errors: %d\n",
				st.PacketsProcessed, st.PacketsDropped, st.ErrorCount)
			fmt.Fprintf(cmd.OutOrStdout(), "app launch attempts: %d, recovery attempts: %d\n",
				st.AppLaunchAttempts, st.RecoveryAttempts)
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "path to a firmware image (row-file or flat binary)")
	cmd.Flags().BoolVar(&raw, "raw", false, "also write framed ACK/NACK bytes to stdout as the core emits them")
	return cmd
}
