// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	jsonschemavalidate "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/glyphix/extsystem/internal/logging"
)

// descriptorExport is the shape extctl describe emits - a stable,
// schema-validated projection of extsystem.Descriptor independent of its
// internal map representation.
type descriptorExport struct {
	InterfaceName   string            `json:"interface_name" yaml:"interface_name"`
	Name            string            `json:"name" yaml:"name"`
	Version         uint64            `json:"version" yaml:"version"`
	EntryPoint      string            `json:"entry_point" yaml:"entry_point"`
	LibraryFilename string            `json:"library_filename" yaml:"library_filename"`
	Extra           map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func descriptorExportSchema() (*jsonschema.Schema, error) {
	reflector := &jsonschema.Reflector{ExpandedStruct: true}
	return reflector.Reflect(descriptorExport{}), nil
}

func newDescribeCmd() *cobra.Command {
	var scanRoot string
	var format string
	var printSchema bool

	cmd := &cobra.Command{
		Use:   "describe [path]",
		Short: "Scan a directory and export every descriptor as validated JSON or YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				schema, err := descriptorExportSchema()
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(schema)
			}

			if len(args) != 1 {
				return fmt.Errorf("describe requires a path to scan")
			}
			scanRoot = args[0]

			cfg, err := loadConfig(cmd, configFile)
			if err != nil {
				return err
			}
			logger := logging.Setup("extctl", "dev", cfg.Format, cmd.ErrOrStderr())
			reg := buildRegistry(cfg, logger)

			if _, err := reg.SearchDirectory(context.Background(), scanRoot, true, ""); err != nil {
				return err
			}

			var exports []descriptorExport
			for _, d := range reg.Extensions(nil) {
				data := d.Data()
				extra := map[string]string{}
				for k, v := range data {
					switch k {
					case "interface_name", "name", "version", "entry_point", "library_filename", "api_version":
					default:
						extra[k] = v
					}
				}
				exports = append(exports, descriptorExport{
					InterfaceName:   d.InterfaceName(),
					Name:            d.Name(),
					Version:         d.Version(),
					EntryPoint:      d.EntryPoint(),
					LibraryFilename: d.LibraryFilename(),
					Extra:           extra,
				})
			}

			if err := validateExports(exports); err != nil {
				return fmt.Errorf("internal: generated export failed its own schema: %w", err)
			}

			if format == "yaml" {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(exports)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(exports)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().BoolVar(&printSchema, "schema", false, "print the export JSON schema instead of scanning")

	return cmd
}

// validateExports round-trips exports through encoding/json and validates
// them against the reflected schema, guarding against the export shape and
// the schema reflection silently drifting apart.
func validateExports(exports []descriptorExport) error {
	schema, err := descriptorExportSchema()
	if err != nil {
		return err
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	compiler := jsonschemavalidate.NewCompiler()
	unmarshaled, err := jsonschemavalidate.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return err
	}
	if err := compiler.AddResource("descriptor.json", unmarshaled); err != nil {
		return err
	}
	compiled, err := compiler.Compile("descriptor.json")
	if err != nil {
		return err
	}

	for _, export := range exports {
		raw, err := json.Marshal(export)
		if err != nil {
			return err
		}
		doc, err := jsonschemavalidate.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return err
		}
		if err := compiled.Validate(doc); err != nil {
			return err
		}
	}
	return nil
}
