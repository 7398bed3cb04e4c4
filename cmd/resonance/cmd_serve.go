// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/resonance/internal/util"
	"github.com/AleutianAI/resonance/services/backend"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// runServeCommand runs the reference healing backend until SIGINT or
// SIGTERM, then shuts it down gracefully.
//
// The backend uses the same effective salt as the client so that remote and
// local results agree.
func runServeCommand(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, backendServiceName, true)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	dataDir := a.cfg.Server.DataDir
	if dataDir != "" {
		dataDir = util.ExpandHome(dataDir)
	}

	srv, err := backend.New(backend.Config{
		Addr:          addr,
		Salt:          a.cfg.Signature.EffectiveSalt(),
		RatePerMinute: a.cfg.Server.RatePerMinute,
		Burst:         a.cfg.Server.Burst,
		DataDir:       dataDir,
		ServiceName:   backendServiceName,
	}, a.logger.Slog())
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.printer.Success(fmt.Sprintf("Healing backend starting on %s", addr))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gCtx)
	})
	g.Go(func() error {
		<-gCtx.Done()
		if ctx.Err() != nil {
			a.logger.Info("shutdown requested")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	a.printer.Muted("Healing backend stopped")
	return nil
}
