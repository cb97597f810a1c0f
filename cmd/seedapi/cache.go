// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"seedapi/internal/config"
	"seedapi/internal/store"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the seed document cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached seed documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(s store.Store) error {
			return listCache(cmd.Context(), s, cmd.OutOrStdout())
		})
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge <user>/<repo>",
	Short: "Remove a cached seed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, repo, ok := strings.Cut(args[0], "/")
		if !ok || user == "" || repo == "" {
			return fmt.Errorf("want <user>/<repo>, got %q", args[0])
		}
		return withCache(func(s store.Store) error {
			return s.Delete(cmd.Context(), user, repo)
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd, cachePurgeCmd)
}

func withCache(fn func(store.Store) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Cache.Driver == "memory" {
		return fmt.Errorf("the memory cache only lives inside a running server")
	}

	s, closeCache, err := openCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()
	return fn(s)
}

func listCache(ctx context.Context, s store.Store, w io.Writer) error {
	docs, err := s.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tBYTES\tUPDATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", d.ID, len(d.Content), d.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
