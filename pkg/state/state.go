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

// Package state persists the customContentId cache across runs in a
// .cpmsync.lock file. The cache maps remote paths to the server-assigned
// identifier of their customization record; publishing with the right id
// updates the record in place instead of creating a duplicate.
//
// Entries never expire by time. They are evicted when the server rejects an
// upload that used them (stale) and cleared wholesale on explicit refresh.
// The cache deliberately outlives tree-cache invalidation.
package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/pathmap"
)

// DefaultLockName is the conventional lock file name, stored next to the
// config file.
const DefaultLockName = ".cpmsync.lock"

// lockFile is the on-disk shape.
type lockFile struct {
	LastUpdated time.Time        `json:"last_updated"`
	Server      string           `json:"server"`
	ContentIDs  map[string]int64 `json:"content_ids"`
}

// 🗄️ Store is the shared content-identifier cache.
type Store struct {
	path string

	mu   sync.Mutex
	data lockFile
}

// Load reads the lock file at path, or starts an empty store when the file
// does not exist yet.
func Load(ctx context.Context, path, server string) (*Store, error) {
	logger := zerolog.Ctx(ctx)

	s := &Store{
		path: path,
		data: lockFile{
			Server:     server,
			ContentIDs: map[string]int64{},
		},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug().Str("path", path).Msg("no lock file yet, starting empty")
		return s, nil
	}
	if err != nil {
		return nil, errors.Errorf("reading lock file: %w", err)
	}

	var data lockFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Errorf("parsing lock file %s: %w", path, err)
	}
	if data.ContentIDs == nil {
		data.ContentIDs = map[string]int64{}
	}

	// Identifiers are only meaningful against the server that issued them.
	if data.Server != "" && data.Server != server {
		logger.Warn().
			Str("lock_server", data.Server).
			Str("config_server", server).
			Msg("lock file belongs to a different server, discarding cached identifiers")
		return s, nil
	}

	s.data = data
	s.data.Server = server
	return s, nil
}

// Get returns the cached identifier for a remote path.
func (s *Store) Get(remotePath string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.data.ContentIDs[pathmap.LookupKey(remotePath)]
	return id, ok
}

// Put records an identifier and saves. Non-positive ids are ignored; the
// absence of a record is what id 0 means, not a cacheable fact.
func (s *Store) Put(ctx context.Context, remotePath string, id int64) error {
	if id <= 0 {
		return nil
	}

	s.mu.Lock()
	s.data.ContentIDs[pathmap.LookupKey(remotePath)] = id
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().
		Str("path", remotePath).
		Int64("content_id", id).
		Msg("cached content identifier")
	return s.Save(ctx)
}

// Evict drops a cache entry, typically after the server rejected it.
func (s *Store) Evict(ctx context.Context, remotePath string) error {
	s.mu.Lock()
	delete(s.data.ContentIDs, pathmap.LookupKey(remotePath))
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Str("path", remotePath).Msg("evicted content identifier")
	return s.Save(ctx)
}

// Clear drops every entry. Used by refresh and clear-auth.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.data.ContentIDs = map[string]int64{}
	s.mu.Unlock()
	return s.Save(ctx)
}

// Len returns the number of cached identifiers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.ContentIDs)
}

// Save writes the lock file atomically (temp file + rename).
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	s.data.LastUpdated = time.Now().UTC()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return errors.Errorf("encoding lock file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Errorf("creating lock file directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return errors.Errorf("writing temp lock file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return errors.Errorf("renaming lock file: %w", err)
	}
	return nil
}
