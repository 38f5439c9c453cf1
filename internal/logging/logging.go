// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide structured logger.
//
// Components take a prefixed sub-logger with For and log with key-value
// pairs:
//
//	log := logging.For("relay")
//	log.Info("request", "method", r.Method, "status", 200)
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Format selects the log line encoding.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
)

var (
	mu     sync.RWMutex
	root   = newLogger(os.Stderr, log.InfoLevel, FormatText)
	closer io.Closer
)

func newLogger(w io.Writer, level log.Level, format Format) *log.Logger {
	opts := log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	}
	switch format {
	case FormatJSON:
		opts.Formatter = log.JSONFormatter
		opts.TimeFormat = time.RFC3339
	case FormatLogfmt:
		opts.Formatter = log.LogfmtFormatter
		opts.TimeFormat = time.RFC3339
	default:
		opts.Formatter = log.TextFormatter
	}
	return log.NewWithOptions(w, opts)
}

// ParseLevel converts a level name, defaulting to info.
func ParseLevel(level string) log.Level {
	parsed, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return parsed
}

// Configure replaces the root logger. An empty file logs to stderr.
func Configure(level string, format Format, file string) error {
	var out io.Writer = os.Stderr
	var c io.Closer
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out, c = f, f
	}

	l := newLogger(out, ParseLevel(level), format)

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		closer.Close()
	}
	root, closer = l, c
	return nil
}

// SetOutput redirects the root logger, keeping its level. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root.SetOutput(w)
}

// Logger returns the root logger.
func Logger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// For returns a sub-logger tagged with a component prefix.
func For(component string) *log.Logger {
	return Logger().WithPrefix(component)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
