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
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:     "refresh",
	Aliases: []string{"r"},
	Short:   "Refresh trusted top-level metadata from the repository",
	Args:    cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return refreshCmdRun()
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func refreshCmdRun() error {
	up, err := newUpdater()
	if err != nil {
		return err
	}
	if err := up.Refresh(context.Background()); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	fmt.Println("refresh successful")
	return nil
}
