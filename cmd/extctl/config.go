// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package main

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

// Config holds extctl's persistent settings, loadable from a YAML file and
// overridable by command-line flags.
type Config struct {
	VerifyCompiler bool   `koanf:"verify_compiler"`
	CheckUPX       bool   `koanf:"check_upx"`
	DebugOutput    bool   `koanf:"debug_output"`
	MaxFileSizeMB  int    `koanf:"max_file_size_mb"`
	Format         string `koanf:"format"`
}

func defaultConfig() Config {
	return Config{
		VerifyCompiler: false,
		CheckUPX:       true,
		DebugOutput:    false,
		MaxFileSizeMB:  512,
		Format:         "json",
	}
}

// loadConfig layers defaults, an optional YAML file, and the invoking
// command's own flags, in that order of increasing precedence.
func loadConfig(cmd *cobra.Command, configPath string) (Config, error) {
	k := koanf.New(".")
	cfg := defaultConfig()
	defaults := map[string]any{
		"verify_compiler":  cfg.VerifyCompiler,
		"check_upx":        cfg.CheckUPX,
		"debug_output":     cfg.DebugOutput,
		"max_file_size_mb": cfg.MaxFileSizeMB,
		"format":           cfg.Format,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, err
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return Config{}, err
			}
		}
	}

	if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
		return Config{}, err
	}

	var out Config
	if err := k.Unmarshal("", &out); err != nil {
		return Config{}, err
	}
	return out, nil
}
