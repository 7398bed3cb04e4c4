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

	"github.com/AleutianAI/resonance/internal/connectivity"
	"github.com/AleutianAI/resonance/internal/sustainability"
	"github.com/AleutianAI/resonance/pkg/ux"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runResolveCommand(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, cliServiceName, false)
	if err != nil {
		return err
	}
	defer a.Close()

	baseURL, route := a.resolve()
	a.printer.Fields("Backend", []ux.Field{
		{Key: "Host", Value: a.cfg.Environment.Host},
		{Key: "Route", Value: route.String()},
		{Key: "Base URL", Value: baseURL},
	})
	return nil
}

// runProbeCommand probes the resolved backend once. An unreachable backend
// is a result, not a failure: the command still exits zero.
func runProbeCommand(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, cliServiceName, false)
	if err != nil {
		return err
	}
	defer a.Close()

	baseURL, _ := a.resolve()
	prober := connectivity.NewProber(newHTTPClient(), connectivity.ProberConfig{
		Path:    a.cfg.Backend.ProbePath,
		Timeout: a.cfg.Timeouts.Util().Probe,
	}, a.logger.Slog())

	state := prober.Probe(commandContext(cmd), baseURL)
	printState(a.printer, baseURL, state)
	return nil
}

func printState(p *ux.Printer, baseURL string, state connectivity.State) {
	switch state {
	case connectivity.Connected:
		p.Success(fmt.Sprintf("%s is reachable (%s)", baseURL, state))
	default:
		p.Warning(fmt.Sprintf("%s is unreachable (%s), analyses will run locally", baseURL, state))
	}
}

// runStatusCommand probes the backend, fetches the metrics snapshot and
// counts history entries concurrently.
func runStatusCommand(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, cliServiceName, false)
	if err != nil {
		return err
	}
	defer a.Close()

	baseURL, route := a.resolve()
	prober := connectivity.NewProber(newHTTPClient(), connectivity.ProberConfig{
		Path:    a.cfg.Backend.ProbePath,
		Timeout: a.cfg.Timeouts.Util().Probe,
	}, a.logger.Slog())
	poller := a.newPoller()

	var (
		state      connectivity.State
		snapshot   sustainability.Snapshot
		historyLen int
	)

	g, gCtx := errgroup.WithContext(commandContext(cmd))
	g.Go(func() error {
		state = prober.Probe(gCtx, baseURL)
		return nil
	})
	g.Go(func() error {
		snapshot = poller.Refresh(gCtx)
		return nil
	})
	g.Go(func() error {
		history, closeHistory, err := a.openHistory()
		if err != nil {
			return err
		}
		defer closeHistory()
		historyLen, err = history.Len(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	a.printer.Title("Resonance Status")
	printState(a.printer, baseURL, state)
	a.printer.Fields("Client", []ux.Field{
		{Key: "Route", Value: route.String()},
		{Key: "Base URL", Value: baseURL},
		{Key: "Connectivity", Value: state.String()},
		{Key: "History", Value: historySummary(a, historyLen)},
	})
	printSnapshot(a.printer, snapshot)
	return nil
}

func historySummary(a *app, n int) string {
	if a.cfg.History.Path == "" {
		return fmt.Sprintf("%d entries (in memory)", n)
	}
	return fmt.Sprintf("%d of %d entries", n, a.cfg.History.Capacity)
}
