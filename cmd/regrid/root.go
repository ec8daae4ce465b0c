package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go.ngs.io/regrid/internal/config"
)

const version = "0.1.0"

var (
	logLevel string

	// log is set up by the root command before any subcommand runs.
	log *logrus.Logger
)

// RootCmd is the main command.
var RootCmd = &cobra.Command{
	Use:   "regrid",
	Short: "Mask-aware regridding of ocean model fields.",
	Long: `Regrid moves ocean and ice-shelf model fields between structured grids,
filling masked regions first so that coastal values are not contaminated.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		log, err = config.NewLogger(logLevel)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of regrid",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("regrid v%s\n", version)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	RootCmd.AddCommand(versionCmd, runCmd, gridsCmd, gridCmd, topoCmd)
}
