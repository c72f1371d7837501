// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glyphix/extsystem/internal/logging"
)

func newListCmd() *cobra.Command {
	var scanRoot string
	var query string

	cmd := &cobra.Command{
		Use:   "list [path]",
		Short: "Scan a directory and list matching extension descriptors",
		Long: `list scans a directory and prints every descriptor that matches
--query, an expression like:

  interface_name=IWidget and name=alpha,beta

Values within one key are OR'd; different keys are AND'd.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				scanRoot = args[0]
			}
			if scanRoot == "" {
				return fmt.Errorf("list requires a path to scan")
			}

			cfg, err := loadConfig(cmd, configFile)
			if err != nil {
				return err
			}
			logger := logging.Setup("extctl", "dev", cfg.Format, cmd.ErrOrStderr())
			reg := buildRegistry(cfg, logger)

			if _, err := reg.SearchDirectory(context.Background(), scanRoot, true, ""); err != nil {
				return err
			}

			filter, err := parseFilter(query)
			if err != nil {
				return fmt.Errorf("parsing --query: %w", err)
			}

			for _, d := range reg.Extensions(filter) {
				cmd.Printf("%s/%s v%d\tentry_point=%s\tlibrary=%s\n",
					d.InterfaceName(), d.Name(), d.Version(), d.EntryPoint(), d.LibraryFilename())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "filter expression, e.g. interface_name=IWidget and name=alpha")
	return cmd
}
