// Copyright 2022-2023 VMware, Inc.
//
// This product is licensed to you under the BSD-2 license (the "License").
// You may not use this product except in compliance with the BSD-2 License.
// This product may include a number of subcomponents with separate copyright
// notices and license terms. Your use of these subcomponents is subject to
// the terms and conditions of the subcomponent's license, as noted in the
// LICENSE file.
//
// SPDX-License-Identifier: BSD-2-Clause

// Package cmd implements the tuf-client command-line tool: init, refresh
// and get subcommands wired to the updater package.
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	DefaultMetadataDir = "tuf_metadata"
	DefaultDownloadDir = "tuf_download"
)

var Verbosity bool
var RepositoryURL string
var TargetsURL string

var rootCmd = &cobra.Command{
	Use:   "tuf-client",
	Short: "tuf-client - a client-side CLI tool for The Update Framework (TUF)",
	Long: `tuf-client is a CLI tool that implements the client workflow specified by
The Update Framework (TUF) specification.

It queries for available targets and downloads them securely: every
downloaded file is verified against signed metadata.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Help()
			os.Exit(0)
		}
	},
}

// Execute runs the tuf-client root command.
func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&Verbosity, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&RepositoryURL, "url", "u", "", "base URL of the TUF repository's metadata")
	rootCmd.PersistentFlags().StringVarP(&TargetsURL, "targets-url", "t", "", "base URL of the TUF repository's targets (defaults to --url)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func ensureTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
