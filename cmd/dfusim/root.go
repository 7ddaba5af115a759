package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fenwick-embedded/dfucore/config"
)

var (
	configPath string
	logLevel   string
	verbose    bool
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "dfusim",
		Short: "Simulate a DFU bootloader session against an in-memory flash device.",
		Long: "dfusim drives the bootloader core's Supervisor through a full session " +
			"without real hardware, for local development and manual exploration.",
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to config.Default())")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr instead of discarding")

	root.AddCommand(newRunCommand())
	root.AddCommand(newStatsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func setUpLogging() *logrus.Logger {
	l := logrus.New()
	if !verbose {
		l.SetOutput(nullWriter{})
		return l
	}
	if lvl, err := logrus.ParseLevel(logLevel); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }
