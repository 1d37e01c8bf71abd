// Copyright 2023 VMware, Inc.
//
// This product is licensed to you under the BSD-2 license (the "License").
// You may not use this product except in compliance with the BSD-2 License.
// This product may include a number of subcomponents with separate copyright
// notices and license terms. Your use of these subcomponents is subject to
// the terms and conditions of the subcomponent's license, as noted in the
// LICENSE file.
//
// SPDX-License-Identifier: BSD-2-Clause

package metadata

var log Logger = DiscardLogger{}

// Logger partially mirrors go-logr/logr's interface so the core never
// imports a concrete logging library; embedders wire their own via
// SetLogger.
type Logger interface {
	// Info logs a non-error message with key/value pairs.
	Info(msg string, kv ...any)
	// Error logs an error with a message and key/value pairs.
	Error(err error, msg string, kv ...any)
}

// DiscardLogger is the default Logger: it drops everything. Libraries
// should be quiet unless an embedder opts in.
type DiscardLogger struct{}

func (DiscardLogger) Info(msg string, kv ...any)             {}
func (DiscardLogger) Error(err error, msg string, kv ...any) {}

// SetLogger installs the Logger used by this package for the remainder of
// the process. Not safe to call concurrently with logging operations.
func SetLogger(logger Logger) {
	log = logger
}

// GetLogger returns the currently installed Logger.
func GetLogger() Logger {
	return log
}
