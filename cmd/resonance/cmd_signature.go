// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/AleutianAI/resonance/pkg/signature"
	"github.com/AleutianAI/resonance/pkg/ux"
	"github.com/spf13/cobra"
)

// runSignatureCommand prints the raw signature and every derived metric.
// It never touches the network and accepts empty text. --tenant beats
// --salt, which beats the configured salt.
func runSignatureCommand(cmd *cobra.Command, args []string) error {
	text, err := readInputText(cmd, "", args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, cliServiceName, false)
	if err != nil {
		return err
	}
	defer a.Close()

	salt := a.cfg.Signature.EffectiveSalt()
	switch {
	case signatureTenant != "":
		salt = signature.SaltFor(signatureTenant)
	case cmd.Flags().Changed("salt"):
		salt = signatureSalt
	}

	m := signature.NewEngine(salt).Analyze(text)

	if signatureJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Salt uint32 `json:"salt"`
			signature.Metrics
		}{Salt: salt, Metrics: m})
	}

	a.printer.Fields("Signature", []ux.Field{
		{Key: "Salt", Value: fmt.Sprintf("%d", salt)},
		{Key: "Signature", Value: fmt.Sprintf("%d", m.Signature)},
		{Key: "Consciousness", Value: fmt.Sprintf("%.2f", m.Consciousness)},
		{Key: "Frequency", Value: fmt.Sprintf("%.0f Hz", m.FrequencyHz)},
		{Key: "Resonance", Value: fmt.Sprintf("%.0f", m.Resonance)},
		{Key: "Regenerative Score", Value: fmt.Sprintf("%.3f", m.RegenerativeScore)},
		{Key: "Grade", Value: string(m.Grade)},
	})
	return nil
}
