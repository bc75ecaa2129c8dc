// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/carvalue/carvalue/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the CarValue CLI.
func NewRootCmd() *cobra.Command {
	cmd := newBareRootCmd()

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// newBareRootCmd returns the root command with global flags but no
// subcommands, so tests can attach commands built with fake dependencies.
func newBareRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "carvalue",
		Short: "CarValue - used car price reports",
		Long: `CarValue is an HTTP API where users sign up, submit used car
sales reports and have them approved for price estimation.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.BindFlags(cmd.PersistentFlags())

	return cmd
}

// loadConfig resolves the effective configuration for cmd from the config
// file, the override flags and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.Options{
		Path:   configFile,
		Flags:  cmd.Flags(),
		Getenv: os.Getenv,
	})
}
