// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the FrameKit CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "framekit",
		Short: "FrameKit - embedded application shell",
		Long: `FrameKit runs a plugin-based application shell and keeps its
state channels synchronized with an embedding host process.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewRunCmd())

	return cmd
}
