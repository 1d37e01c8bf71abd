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

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:     "reset",
	Aliases: []string{"r"},
	Short:   "Reset the local environment, deleting cached metadata and downloads",
	Args:    cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resetCmdRun()
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func resetCmdRun() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	for _, dir := range []string{filepath.Join(cwd, DefaultMetadataDir), filepath.Join(cwd, DefaultDownloadDir)} {
		fmt.Printf("delete %q and all of its contents? (y/n)\n", dir)
		if !askForConfirmation() {
			fmt.Printf("%q was not deleted\n", dir)
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
		fmt.Printf("%q was deleted\n", dir)
	}
	return nil
}

func askForConfirmation() bool {
	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}
	switch strings.ToLower(response) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
