// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// runHistoryCommand lists stored analyses, newest first. Without
// history.path the history lives only as long as one command, so there is
// nothing to show.
func runHistoryCommand(cmd *cobra.Command, _ []string) error {
	if historyLimit < 0 {
		return fmt.Errorf("--limit must be >= 0, got %d", historyLimit)
	}

	a, err := newApp(cmd, cliServiceName, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.History.Path == "" {
		a.printer.Warning("History is kept in memory; set history.path in the config to persist it")
		return nil
	}

	history, closeHistory, err := a.openHistory()
	if err != nil {
		return err
	}
	defer closeHistory()

	entries, err := history.List(commandContext(cmd))
	if err != nil {
		return err
	}
	slices.Reverse(entries)
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	if historyJSON {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		a.printer.Info("No analyses recorded yet")
		return nil
	}
	for _, r := range entries {
		a.printer.Info(fmt.Sprintf("%s  %-7s %-8s %3.0f Hz  %-2s  %s",
			r.CreatedAt.Local().Format(time.DateTime), r.Mode, r.Intention, r.FrequencyHz, r.Grade, r.ID))
	}
	return nil
}
