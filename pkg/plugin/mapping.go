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

// Package plugin handles plugin attribution (which installed plugin owns a
// customization) and packaging of plugin directories into installable ZIP
// archives.
package plugin

import (
	"context"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/cpm"
	"github.com/cpmtools/cpmsync/pkg/pathmap"
)

// 🔖 Info attributes a customization to an installed plugin.
type Info struct {
	ID      string
	Name    string
	Enabled bool
}

// 🗂️ Index maps normalized remote paths (files and their folder chains) to
// plugin attribution. Built once per tree load from the bulk query and
// cached until an explicit refresh.
type Index struct {
	byPath map[string]Info
}

// MappingAPI is the slice of the CPM client the index builder needs.
type MappingAPI interface {
	PluginMappings(ctx context.Context) ([]cpm.PluginMappingRow, error)
}

// LoadIndex runs the bulk attribution query and builds the index.
func LoadIndex(ctx context.Context, api MappingAPI) (*Index, error) {
	rows, err := api.PluginMappings(ctx)
	if err != nil {
		return nil, errors.Errorf("loading plugin mappings: %w", err)
	}

	idx := BuildIndex(rows)
	zerolog.Ctx(ctx).Debug().Int("rows", len(rows)).Int("paths", len(idx.byPath)).Msg("built plugin mapping index")
	return idx, nil
}

// BuildIndex builds an index from query rows. File entries propagate up
// their folder chain: a folder inherits the attribution of the first file
// found beneath it, and an existing folder entry is never overwritten.
func BuildIndex(rows []cpm.PluginMappingRow) *Index {
	idx := &Index{byPath: map[string]Info{}}

	for _, row := range rows {
		filePath := path.Join("/", row.CPMPath, row.Filename)
		info := Info{
			ID:      row.PluginID,
			Name:    row.PluginName,
			Enabled: row.Enabled,
		}
		idx.byPath[pathmap.LookupKey(filePath)] = info

		// Walk the folder chain toward the root.
		for dir := path.Dir(filePath); dir != "/" && dir != "."; dir = path.Dir(dir) {
			key := pathmap.LookupKey(dir)
			if _, ok := idx.byPath[key]; !ok {
				idx.byPath[key] = info
			}
		}
	}

	return idx
}

// Lookup returns the attribution for a remote path, if any.
func (i *Index) Lookup(remotePath string) (Info, bool) {
	if i == nil {
		return Info{}, false
	}
	info, ok := i.byPath[pathmap.LookupKey(remotePath)]
	return info, ok
}

// HasUnder reports whether any attributed file lives under the folder.
func (i *Index) HasUnder(folderPath string) bool {
	if i == nil {
		return false
	}
	prefix := pathmap.LookupKey(folderPath)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	for key := range i.byPath {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// Len returns the number of indexed paths.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byPath)
}
