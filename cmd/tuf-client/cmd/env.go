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

	"github.com/sirupsen/logrus"

	"github.com/tuf-go/coretuf/config"
	"github.com/tuf-go/coretuf/fetcher"
	"github.com/tuf-go/coretuf/internal/logging"
	"github.com/tuf-go/coretuf/metadata"
	"github.com/tuf-go/coretuf/store"
	"github.com/tuf-go/coretuf/updater"
	"github.com/tuf-go/coretuf/verify"
)

// newUpdater builds an Updater rooted at the current working directory's
// metadata/download folders, failing if the client hasn't been
// initialized yet (no local root.json).
func newUpdater() (*updater.Updater, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	metadataDir := filepath.Join(cwd, DefaultMetadataDir)
	downloadDir := filepath.Join(cwd, DefaultDownloadDir)
	if _, err := os.Stat(filepath.Join(metadataDir, "root.json")); err != nil {
		return nil, fmt.Errorf("no local root.json: run `tuf-client init` first: %w", err)
	}

	log := logrus.New()
	if Verbosity {
		log.SetLevel(logrus.DebugLevel)
	}
	metadata.SetLogger(logging.New(log))

	targetsURL := TargetsURL
	if targetsURL == "" {
		targetsURL = RepositoryURL
	}
	cfg := config.New(metadataDir, RepositoryURL)
	cfg.LocalTargetsDir = downloadDir
	cfg.RemoteTargetsURL = targetsURL

	st := store.New(metadataDir, downloadDir)
	return updater.New(cfg, st, fetcher.New(), verify.New())
}
