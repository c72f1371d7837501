// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package main

import (
	"log/slog"

	"github.com/c2h5oh/datasize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/glyphix/extsystem/internal/diagnostics"
	"github.com/glyphix/extsystem/internal/telemetry"
	"github.com/glyphix/extsystem/pkg/extsystem"
)

// buildRegistry constructs a Registry wired up per cfg: metrics against the
// default Prometheus registerer, slog-based diagnostics, and the
// configured size/UPX/debug-output knobs. cfg.VerifyCompiler is not
// forwarded: compiler verification stays off.
func buildRegistry(cfg Config, logger *slog.Logger) *extsystem.Registry {
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	opts := []extsystem.Option{
		extsystem.WithMetrics(metrics),
		extsystem.WithLogger(logger),
		extsystem.WithMaxFileSize(datasize.ByteSize(cfg.MaxFileSizeMB) * datasize.MB),
		extsystem.WithMessageHandler(func(session diagnostics.ScanSession, message string) {
			logger.Warn(message, "scan_session", string(session))
		}),
	}
	if cfg.CheckUPX {
		opts = append(opts, extsystem.WithUPXDetection())
	}
	if cfg.DebugOutput {
		opts = append(opts, extsystem.WithEnableDebugOutput())
	}

	return extsystem.New(opts...)
}
