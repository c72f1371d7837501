// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glyphix/extsystem/internal/logging"
)

func newScanCmd() *cobra.Command {
	var recursive bool
	var pattern string
	var batchFile string

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory (or an HCL batch config) for extension libraries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configFile)
			if err != nil {
				return err
			}
			logger := logging.Setup("extctl", "dev", cfg.Format, cmd.ErrOrStderr())
			reg := buildRegistry(cfg, logger)

			var roots []scanRoot
			if batchFile != "" {
				roots, err = loadBatchConfig(batchFile)
				if err != nil {
					return fmt.Errorf("loading batch config: %w", err)
				}
			} else {
				if len(args) != 1 {
					return fmt.Errorf("scan requires exactly one path argument unless --batch is given")
				}
				roots = []scanRoot{{Label: args[0], Path: args[0], Recursive: recursive, Pattern: pattern}}
			}

			ctx := context.Background()
			total := 0
			for _, root := range roots {
				records, err := reg.SearchDirectory(ctx, root.Path, root.Recursive, root.Pattern)
				if err != nil {
					return fmt.Errorf("scanning %q: %w", root.Path, err)
				}
				for _, record := range records {
					cmd.Printf("%s: %d extension(s)\n", record.Path, len(record.Descriptors))
					total += len(record.Descriptors)
				}
			}
			cmd.Printf("total: %d extension(s) across %d root(s)\n", total, len(roots))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "recurse into subdirectories")
	cmd.Flags().StringVar(&pattern, "glob", "", "additional glob pattern applied to file basenames")
	cmd.Flags().StringVar(&batchFile, "batch", "", "HCL file listing multiple roots to scan")

	return cmd
}
