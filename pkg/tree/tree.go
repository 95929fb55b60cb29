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

// Package tree builds FileNode views of the remote content tree, one folder
// level per fetch, with plugin attribution and custom-content propagation.
package tree

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/cpm"
	"github.com/cpmtools/cpmsync/pkg/pathmap"
	"github.com/cpmtools/cpmsync/pkg/plugin"
)

// 🌳 FileNode is one entry of the remote tree.
type FileNode struct {
	Name     string
	Path     string // remote path, case-preserving
	IsFolder bool

	// IsCustom marks a non-stock override, reported by the server or
	// implied by plugin attribution.
	IsCustom bool

	// HasCustomFiles is the bottom-up OR of IsCustom/HasCustomFiles over a
	// folder's children, within the fetched depth.
	HasCustomFiles bool

	// Plugin attributes the customization to an installed plugin, when the
	// bulk mapping query knows about it.
	Plugin *plugin.Info

	Children []*FileNode // populated to the fetched depth, folders first
}

// API is the slice of the CPM client the builder needs.
type API interface {
	GetFolderTree(ctx context.Context, path string, maxDepth int) (*cpm.TreeFolder, error)
}

// 🏗️ Builder fetches and caches folder listings. Child lists are cached per
// folder path combined with the inherited plugin context, so a folder seen
// under two different attributions is cached separately.
type Builder struct {
	api      API
	mappings *plugin.Index

	mu    sync.Mutex
	cache map[string][]*FileNode
}

// NewBuilder creates a builder. mappings may be nil when attribution is
// unavailable.
func NewBuilder(api API, mappings *plugin.Index) *Builder {
	return &Builder{
		api:      api,
		mappings: mappings,
		cache:    map[string][]*FileNode{},
	}
}

// Refresh drops the folder cache and the attribution index. The next fetch
// sees the server's current state.
func (b *Builder) Refresh(mappings *plugin.Index) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache = map[string][]*FileNode{}
	b.mappings = mappings
}

// cacheKey combines a folder path with the inherited plugin context.
func cacheKey(folderPath string, inherited *plugin.Info) string {
	key := pathmap.LookupKey(folderPath)
	if inherited != nil {
		key += "\x00" + inherited.ID
	}
	return key
}

// Children lists one folder level, fetching (depth 1) on cache miss.
// inherited carries the plugin attribution of the enclosing folder; it only
// sticks to children the server already flags as custom.
func (b *Builder) Children(ctx context.Context, folderPath string, inherited *plugin.Info) ([]*FileNode, error) {
	key := cacheKey(folderPath, inherited)

	b.mu.Lock()
	if nodes, ok := b.cache[key]; ok {
		b.mu.Unlock()
		return nodes, nil
	}
	b.mu.Unlock()

	folder, err := b.api.GetFolderTree(ctx, pathmap.NormalizeRemote(folderPath), 1)
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", folderPath, err)
	}

	nodes := b.build(ctx, folder, pathmap.NormalizeRemote(folderPath), inherited)

	b.mu.Lock()
	b.cache[key] = nodes
	b.mu.Unlock()
	return nodes, nil
}

// Walk builds the tree under folderPath down to maxDepth levels in a single
// fetch, returning the root folder node with HasCustomFiles computed
// bottom-up over everything fetched.
func (b *Builder) Walk(ctx context.Context, folderPath string, maxDepth int) (*FileNode, error) {
	normalized := pathmap.NormalizeRemote(folderPath)

	folder, err := b.api.GetFolderTree(ctx, normalized, maxDepth)
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", folderPath, err)
	}

	root := &FileNode{
		Name:     folder.Text,
		Path:     normalized,
		IsFolder: true,
		IsCustom: folder.Custom,
	}
	if info, ok := b.mappings.Lookup(normalized); ok {
		root.Plugin = &info
	}
	root.Children = b.build(ctx, folder, normalized, root.Plugin)
	for _, child := range root.Children {
		if child.IsCustom || child.HasCustomFiles {
			root.HasCustomFiles = true
		}
	}
	return root, nil
}

// build converts one fetched folder into child nodes: folders first, then
// files, each group sorted case-insensitively; nested levels recurse over
// whatever the fetch already carried.
func (b *Builder) build(ctx context.Context, folder *cpm.TreeFolder, folderPath string, inherited *plugin.Info) []*FileNode {
	logger := zerolog.Ctx(ctx)
	nodes := make([]*FileNode, 0, len(folder.SubFolders)+len(folder.Pages))

	subFolders := make([]cpm.TreeFolder, 0, len(folder.SubFolders))
	for _, sub := range folder.SubFolders {
		if sub.Text == "" {
			logger.Warn().Str("parent", folderPath).Msg("skipping subfolder with empty name")
			continue
		}
		subFolders = append(subFolders, sub)
	}
	sort.SliceStable(subFolders, func(i, j int) bool {
		return strings.ToLower(subFolders[i].Text) < strings.ToLower(subFolders[j].Text)
	})

	for _, sub := range subFolders {
		childPath := joinRemote(folderPath, sub.Text)
		node := &FileNode{
			Name:     sub.Text,
			Path:     childPath,
			IsFolder: true,
			IsCustom: sub.Custom,
		}
		node.Plugin = b.attribution(childPath, sub.Custom, inherited)

		sub := sub
		node.Children = b.build(ctx, &sub, childPath, node.Plugin)
		for _, child := range node.Children {
			if child.IsCustom || child.HasCustomFiles {
				node.HasCustomFiles = true
				break
			}
		}
		nodes = append(nodes, node)
	}

	pages := make([]cpm.TreePage, 0, len(folder.Pages))
	for _, page := range folder.Pages {
		if page.Text == "" {
			logger.Warn().Str("parent", folderPath).Msg("skipping file with empty name")
			continue
		}
		pages = append(pages, page)
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return strings.ToLower(pages[i].Text) < strings.ToLower(pages[j].Text)
	})

	for _, page := range pages {
		childPath := joinRemote(folderPath, page.Text)
		node := &FileNode{
			Name: page.Text,
			Path: childPath,
		}
		node.Plugin = b.attribution(childPath, page.Custom, inherited)
		node.IsCustom = page.Custom || node.Plugin != nil
		nodes = append(nodes, node)
	}

	return nodes
}

// attribution resolves plugin ownership: a direct index hit wins; the
// inherited parent attribution applies only to entries the server already
// flags as custom.
func (b *Builder) attribution(remotePath string, serverCustom bool, inherited *plugin.Info) *plugin.Info {
	if info, ok := b.mappings.Lookup(remotePath); ok {
		return &info
	}
	if serverCustom && inherited != nil {
		return inherited
	}
	return nil
}

// CustomFiles returns the remote paths of every custom (non-folder) node in
// the subtree, depth-first.
func CustomFiles(node *FileNode) []string {
	var paths []string
	var walk func(n *FileNode)
	walk = func(n *FileNode) {
		if !n.IsFolder && n.IsCustom {
			paths = append(paths, n.Path)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(node)
	return paths
}

func joinRemote(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
