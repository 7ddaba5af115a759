package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-embedded/dfucore/internal/logging"
)

// newStatsCommand runs the same simulated session as `run` but prints
// only the final Stats snapshot as JSON, for scripting against.
func newStatsCommand() *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Replay a firmware image and print the final Supervisor stats as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if imagePath == "" {
				return fmt.Errorf("dfusim stats: --image is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := logging.NewLogrusAdapter(setUpLogging())
			st, err := runSession(cfg, imagePath, logger, nil)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "path to a firmware image (row-file or flat binary)")
	return cmd
}
