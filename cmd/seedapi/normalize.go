// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"seedapi/internal/document"
	"seedapi/internal/normalizer"
	"seedapi/internal/table"

	"github.com/spf13/cobra"
)

var normalizePrimaryKey string

type normalizedTable struct {
	table.Summary
	Data []*table.Row `json:"data"`
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Print the tables derived from a seed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := document.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		tables, err := normalizer.Normalize(doc, normalizer.WithPrimaryKey(normalizePrimaryKey))
		if err != nil {
			return err
		}

		out := make(map[string]normalizedTable, len(tables))
		for name, t := range tables {
			out[name] = normalizedTable{Summary: t.Summary(), Data: t.Rows}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizePrimaryKey, "primary-key", table.DefaultPrimaryKey, "primary key column")
}
