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

var getCmd = &cobra.Command{
	Use:     "get",
	Aliases: []string{"g"},
	Short:   "Download a target file",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getCmdRun(args[0])
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func getCmdRun(target string) error {
	up, err := newUpdater()
	if err != nil {
		return err
	}

	ctx := context.Background()
	targetInfo, err := up.GetTargetInfo(ctx, target)
	if err != nil {
		return fmt.Errorf("target %s not found: %w", target, err)
	}

	if path, err := up.FindCachedTarget(targetInfo, ""); err == nil {
		fmt.Printf("target %s is already present at %s\n", target, path)
		return nil
	}

	path, err := up.DownloadTarget(ctx, targetInfo, "", TargetsURL)
	if err != nil {
		return fmt.Errorf("failed to download target %s: %w", target, err)
	}
	fmt.Printf("downloaded target %s to %s\n", target, path)
	return nil
}
