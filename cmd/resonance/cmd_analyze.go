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

	"github.com/AleutianAI/resonance/internal/analysis"
	"github.com/AleutianAI/resonance/pkg/ux"
	"github.com/spf13/cobra"
)

// runAnalyzeCommand analyzes one text and prints the result.
//
// # Description
//
// The backend is tried first unless --local is set. A local result without
// --local prints an offline notice before the result. The result has the
// same shape either way and only its mode differs.
func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
	text, err := readInputText(cmd, analyzeText, args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, cliServiceName, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)

	var fallback *analysis.TransportError
	rt, err := a.startClient(ctx, !analyzeLocal, analysis.WithOnFallback(func(e *analysis.TransportError) {
		fallback = e
	}))
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.orchestrator.Analyze(ctx, analysis.Request{
		Text:      text,
		Intention: analysis.Intention(analyzeIntention),
	})
	if err != nil {
		return err
	}

	if result.Mode == analysis.ModeLocal && !analyzeLocal {
		reason := "startup probe failed"
		if fallback != nil {
			reason = string(fallback.Reason)
		}
		notice := a.printer
		if analyzeJSON {
			notice = ux.NewPrinter(cmd.ErrOrStderr(), nil, ux.PersonalityMachine)
		}
		notice.WarningBox("Offline mode",
			fmt.Sprintf("The healing backend at %s is unavailable (%s).\nThe result was computed locally.",
				rt.baseURL, reason))
	}

	if analyzeJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	printResult(a.printer, result)
	return nil
}

// printResult prints one analysis result as a field block.
func printResult(p *ux.Printer, r *analysis.Result) {
	p.Fields("Resonance Analysis", resultFields(p, r))
}

func resultFields(p *ux.Printer, r *analysis.Result) []ux.Field {
	return []ux.Field{
		{Key: "ID", Value: r.ID},
		{Key: "Intention", Value: string(r.Intention)},
		{Key: "Frequency", Value: fmt.Sprintf("%.0f Hz", r.FrequencyHz)},
		{Key: "Resonance", Value: fmt.Sprintf("%.0f", r.Resonance)},
		{Key: "Regenerative Score", Value: p.ProgressBar(r.RegenerativeScore, 20)},
		{Key: "Trees", Value: fmt.Sprintf("%.1f", r.TreesEquivalent)},
		{Key: "Grade", Value: string(r.Grade)},
		{Key: "Mode", Value: string(r.Mode)},
	}
}
