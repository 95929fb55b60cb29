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

package status

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📊 SyncStatus is the state of one workspace file relative to the server.
type SyncStatus int

const (
	StatusUnknown   SyncStatus = iota
	StatusNew                  // File exists only on one side
	StatusModified             // Both sides exist, content differs
	StatusUnchanged            // Both sides match
	StatusPublished            // Uploaded this run, not yet verified
	StatusVerified             // Uploaded and round-trip confirmed
	StatusFailed               // Operation failed for this file
)

func (s SyncStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusUnchanged:
		return "unchanged"
	case StatusPublished:
		return "published"
	case StatusVerified:
		return "verified"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📄 FileInfo tracks one file through an operation.
type FileInfo struct {
	Path     string // Remote path
	Status   SyncStatus
	Size     int64
	Checksum string // SHA-256 of the last content seen
	Error    error
}

// 💾 Workspace handles local file operations under the managed root.
type Workspace interface {
	WriteFile(ctx context.Context, path string, content []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	DeleteFile(ctx context.Context, path string) error
	FileExists(ctx context.Context, path string) (bool, error)
	CreateDir(ctx context.Context, path string) error
}

// 📈 Reporter tracks per-file status and operation progress.
type Reporter interface {
	Track(ctx context.Context, path string, info FileInfo)
	Get(ctx context.Context, path string) (FileInfo, error)
	List(ctx context.Context) []FileInfo

	StartOperation(ctx context.Context, name string, total int)
	UpdateProgress(ctx context.Context, processed int)
	FinishOperation(ctx context.Context)
}

// 🔧 Manager implements Workspace and Reporter over one managed root.
type Manager struct {
	baseDir   string
	formatter Formatter

	mu    sync.RWMutex
	files map[string]FileInfo

	operation string
	total     int
	processed int
}

// 🏭 New creates a manager rooted at baseDir.
func New(baseDir string) *Manager {
	return &Manager{
		baseDir:   filepath.Clean(baseDir),
		formatter: NewConsoleFormatter(),
		files:     make(map[string]FileInfo),
	}
}

// BaseDir returns the managed root.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

func (m *Manager) abs(path string) string {
	return filepath.Join(m.baseDir, filepath.FromSlash(path))
}

// Checksum generates a SHA-256 hash of content.
func Checksum(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// Workspace implementation

func (m *Manager) WriteFile(ctx context.Context, path string, content []byte) error {
	absPath := m.abs(path)

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	// Temp file in the same directory so the rename stays atomic.
	tempPath := absPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tempPath, absPath); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (m *Manager) ReadFile(ctx context.Context, path string) ([]byte, error) {
	content, err := os.ReadFile(m.abs(path))
	if err != nil {
		return nil, errors.Errorf("reading file: %w", err)
	}
	return content, nil
}

func (m *Manager) DeleteFile(ctx context.Context, path string) error {
	if err := os.Remove(m.abs(path)); err != nil {
		return errors.Errorf("deleting file: %w", err)
	}
	return nil
}

func (m *Manager) FileExists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(m.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Errorf("checking file existence: %w", err)
}

func (m *Manager) CreateDir(ctx context.Context, path string) error {
	if err := os.MkdirAll(m.abs(path), 0755); err != nil {
		return errors.Errorf("creating directory: %w", err)
	}
	return nil
}

// Compare classifies local content against what the server holds.
func Compare(local []byte, localExists bool, remote []byte, remoteExists bool) SyncStatus {
	switch {
	case !localExists && !remoteExists:
		return StatusUnknown
	case localExists != remoteExists:
		return StatusNew
	case Checksum(local) == Checksum(remote):
		return StatusUnchanged
	default:
		return StatusModified
	}
}

// Reporter implementation

func (m *Manager) Track(ctx context.Context, path string, info FileInfo) {
	m.mu.Lock()
	m.files[path] = info
	m.mu.Unlock()

	logger := zerolog.Ctx(ctx)
	msg := m.formatter.FormatFile(path, info.Status)
	if info.Error != nil {
		logger.Error().Str("path", path).Err(info.Error).Msg(m.formatter.FormatError(info.Error))
		return
	}
	logger.Info().Str("path", path).Str("status", info.Status.String()).Msg(msg)
}

func (m *Manager) Get(ctx context.Context, path string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.files[path]
	if !ok {
		return FileInfo{}, errors.Errorf("file not tracked: %s", path)
	}
	return info, nil
}

func (m *Manager) List(ctx context.Context) []FileInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]FileInfo, 0, len(m.files))
	for _, info := range m.files {
		files = append(files, info)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

func (m *Manager) StartOperation(ctx context.Context, name string, total int) {
	m.mu.Lock()
	m.operation = name
	m.total = total
	m.processed = 0
	m.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Str("operation", name).
		Int("total", total).
		Msg(m.formatter.FormatProgress(0, total))
}

func (m *Manager) UpdateProgress(ctx context.Context, processed int) {
	m.mu.Lock()
	m.processed = processed
	total := m.total
	m.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Int("processed", processed).
		Int("total", total).
		Msg(m.formatter.FormatProgress(processed, total))
}

func (m *Manager) FinishOperation(ctx context.Context) {
	m.mu.Lock()
	total := m.total
	m.processed = total
	m.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Int("processed", total).
		Int("total", total).
		Msg(m.formatter.FormatProgress(total, total))
}

// Summary tallies tracked files by status.
func (m *Manager) Summary(ctx context.Context) map[SyncStatus]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := map[SyncStatus]int{}
	for _, info := range m.files {
		counts[info.Status]++
	}
	return counts
}
