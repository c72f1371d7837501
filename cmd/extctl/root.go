// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package main

import (
	"github.com/spf13/cobra"
)

var configFile string

// NewRootCmd builds extctl's root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extctl",
		Short: "Inspect and exercise extensions embedded in shared libraries",
		Long: `extctl scans shared objects for embedded extension-system metadata,
lists, filters, exports and browses what it finds. It never loads a
library or constructs an extension.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDescribeCmd())
	cmd.AddCommand(newBrowseCmd())

	return cmd
}
