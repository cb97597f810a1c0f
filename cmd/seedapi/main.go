// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "seedapi",
	Short:        "Serve a JSON seed document as a REST API",
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file (default $SEEDAPI_CONFIG)")
	rootCmd.AddCommand(serveCmd, normalizeCmd, cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
