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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/resonance/internal/sustainability"
	"github.com/AleutianAI/resonance/pkg/ux"
	"github.com/spf13/cobra"
)

// runMetricsCommand prints one sustainability snapshot, or keeps polling
// with --watch until SIGINT or SIGTERM.
func runMetricsCommand(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, cliServiceName, false)
	if err != nil {
		return err
	}
	defer a.Close()

	show := func(s sustainability.Snapshot) {
		if metricsJSON {
			_ = writeJSON(cmd.OutOrStdout(), s)
			return
		}
		printSnapshot(a.printer, s)
	}

	if !metricsWatch {
		show(a.newPoller().Refresh(commandContext(cmd)))
		return nil
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := a.newPoller(sustainability.WithOnUpdate(show))
	if err := poller.Start(ctx); err != nil {
		return err
	}
	a.printer.Muted(fmt.Sprintf("Refreshing every %s, Ctrl+C to stop", poller.Interval()))

	<-ctx.Done()
	poller.Stop()
	return nil
}

// printSnapshot prints a snapshot, flagging the default one.
func printSnapshot(p *ux.Printer, s sustainability.Snapshot) {
	if s.IsDefault() {
		p.Warning("Sustainability metrics unavailable, showing defaults")
	}
	p.Fields("Sustainability", []ux.Field{
		{Key: "Total Analyses", Value: fmt.Sprintf("%d", s.TotalAnalyses)},
		{Key: "Carbon Offset", Value: fmt.Sprintf("%.1f kg", s.CarbonOffsetKg)},
		{Key: "Trees Planted", Value: fmt.Sprintf("%.1f", s.TreesPlanted)},
		{Key: "Renewable Energy", Value: fmt.Sprintf("%.1f kWh", s.RenewableEnergyKwh)},
		{Key: "Consciousness Events", Value: fmt.Sprintf("%d", s.ConsciousnessEvents)},
		{Key: "Planetary Healing", Value: p.ProgressBar(s.PlanetaryHealingScore, 20)},
		{Key: "Source", Value: string(s.Source)},
		{Key: "Fetched", Value: s.FetchedAt.Format(time.RFC3339)},
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
