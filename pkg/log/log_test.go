// Copyright 2026 cpmsync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "log_transfer",
			op: func(t *testing.T, logger *Logger) {
				logger.LogTransfer(context.Background(), TransferOperation{
					Path:      "admin/home.html",
					Direction: "download",
					Status:    "NEW",
					IsNew:     true,
				})
			},
			wantLogs: []string{
				"+ admin/home.html                          download   NEW",
			},
		},
		{
			name: "log_server_operation",
			op: func(t *testing.T, logger *Logger) {
				logger.StartServerOperation(context.Background(), ServerOperation{
					Command: "sync",
					Server:  "https://sis.example.org",
					Root:    "web_root",
				})
			},
			wantLogs: []string{
				"[sync https://sis.example.org]",
				"◆ sync • web_root",
			},
		},
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("published %d files", 3)
				logger.Warningf("%d files unverified", 1)
				logger.Errorf("publish failed for %s", "home.html")
				logger.Successf("synced %d files", 7)
			},
			wantLogs: []string{
				"ℹ️  published 3 files",
				"⚠️  1 files unverified",
				"❌ publish failed for home.html",
				"✅ synced 7 files",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("syncing workspace")
			},
			wantLogs: []string{
				"cpmsync • syncing workspace",
			},
		},
		{
			name: "log_newline",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("first")
				logger.LogNewline()
				logger.Info("second")
			},
			wantLogs: []string{
				"ℹ️  first",
				"",
				"ℹ️  second",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(buf, zerolog.InfoLevel)

			tt.op(t, logger)

			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := New(io.Discard, zerolog.InfoLevel)

	ctx := NewContext(context.Background(), logger)
	got := FromContext(ctx)
	assert.Same(t, logger, got, "logger from context should be the same instance")

	assert.Panics(t, func() {
		FromContext(context.Background())
	}, "FromContext should panic when logger is missing")
}

func TestTransferFormatting(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name       string
		op         TransferOperation
		wantSymbol string
	}{
		{
			name: "new_download",
			op: TransferOperation{
				Path:      "scripts/app.js",
				Direction: "download",
				Status:    "NEW",
				IsNew:     true,
			},
			wantSymbol: "+",
		},
		{
			name: "modified_download",
			op: TransferOperation{
				Path:       "scripts/app.js",
				Direction:  "download",
				Status:     "UPDATED",
				IsModified: true,
			},
			wantSymbol: "⟳",
		},
		{
			name: "verified_publish",
			op: TransferOperation{
				Path:       "scripts/app.js",
				Direction:  "publish",
				Status:     "VERIFIED",
				IsVerified: true,
			},
			wantSymbol: "✓",
		},
		{
			name: "failed_publish",
			op: TransferOperation{
				Path:      "scripts/app.js",
				Direction: "publish",
				Status:    "FAILED",
				IsFailed:  true,
			},
			wantSymbol: "✗",
		},
		{
			name: "unchanged",
			op: TransferOperation{
				Path:      "scripts/app.js",
				Direction: "download",
				Status:    "UNCHANGED",
			},
			wantSymbol: "•",
		},
	}

	logger := New(io.Discard, zerolog.InfoLevel)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := strings.TrimSpace(logger.formatTransfer(tt.op))
			assert.True(t, strings.HasPrefix(line, tt.wantSymbol), "line %q should start with %q", line, tt.wantSymbol)
			assert.Contains(t, line, tt.op.Path)
			assert.Contains(t, line, tt.op.Direction)
			assert.Contains(t, line, tt.op.Status)
		})
	}
}

func TestEndServerOperationClearsState(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	buf := &bytes.Buffer{}
	logger := New(buf, zerolog.InfoLevel)

	logger.StartServerOperation(context.Background(), ServerOperation{Command: "publish", Server: "https://sis.example.org", Root: "web_root"})
	logger.LogTransfer(context.Background(), TransferOperation{Path: "a.html", Direction: "publish", Status: "OK"})
	logger.EndServerOperation(context.Background())

	// Ending twice is a no-op.
	logger.EndServerOperation(context.Background())
}
