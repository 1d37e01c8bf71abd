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
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tuf-go/coretuf/metadata"
)

var rootPath string

var initCmd = &cobra.Command{
	Use:     "init",
	Aliases: []string{"i"},
	Short:   "Initialize the client with trusted root.json metadata",
	Args:    cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		if RepositoryURL == "" {
			return fmt.Errorf("required flag \"url\" not set")
		}
		return initializeCmd()
	},
}

func init() {
	initCmd.Flags().StringVarP(&rootPath, "file", "f", "", "path to a trusted root.json (fetches <url>/1.root.json if omitted)")
	rootCmd.AddCommand(initCmd)
}

func initializeCmd() error {
	metadataDir, downloadDir, err := prepareEnvironment()
	if err != nil {
		return err
	}

	var rootBytes []byte
	if rootPath == "" {
		fmt.Printf("no root.json provided, fetching 1.root.json from %s\n", RepositoryURL)
		rootBytes, err = fetchInitialRoot()
		if err != nil {
			return err
		}
	} else {
		rootBytes, err = os.ReadFile(rootPath)
		if err != nil {
			return err
		}
	}

	if _, err := metadata.Root().FromBytes(rootBytes); err != nil {
		return fmt.Errorf("root.json failed to parse: %w", err)
	}

	if err := os.WriteFile(filepath.Join(metadataDir, "root.json"), rootBytes, 0o644); err != nil {
		return err
	}

	fmt.Println("initialization successful")
	fmt.Printf("metadata: %s\ndownloads: %s\n", metadataDir, downloadDir)
	return nil
}

func prepareEnvironment() (metadataDir, downloadDir string, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("getting working directory: %w", err)
	}
	metadataDir = filepath.Join(cwd, DefaultMetadataDir)
	downloadDir = filepath.Join(cwd, DefaultDownloadDir)
	if err := os.MkdirAll(metadataDir, 0o750); err != nil {
		return "", "", fmt.Errorf("creating metadata folder: %w", err)
	}
	if err := os.MkdirAll(downloadDir, 0o750); err != nil {
		return "", "", fmt.Errorf("creating download folder: %w", err)
	}
	return metadataDir, downloadDir, nil
}

func fetchInitialRoot() ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, ensureTrailingSlash(RepositoryURL)+"1.root.json", nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching 1.root.json: http status %d", res.StatusCode)
	}
	return io.ReadAll(res.Body)
}
