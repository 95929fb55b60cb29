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

// Package pathmap translates between remote CPM paths and local filesystem
// paths under a configured root. Remote paths always start with "/" and use
// "/" separators; they are case-preserving but compared case-insensitively.
package pathmap

import (
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/config"
)

// ErrNotInManagedRoot means a local path escapes the managed root; such
// files must never be uploaded.
var ErrNotInManagedRoot = errors.New("file is outside the managed root")

// Extensions the server treats as page content. Key paths strip them.
var contentExtensions = []string{".html", ".htm", ".js", ".css", ".txt"}

// NormalizeRemote collapses redundant leading slashes and backslashes and
// guarantees a single leading "/". Pure.
func NormalizeRemote(remotePath string) string {
	p := strings.ReplaceAll(remotePath, "\\", "/")
	p = strings.TrimLeft(p, "/")
	return "/" + p
}

// LookupKey is the canonical (case-folded) form of a remote path used as a
// cache or index key. Display paths keep their original case.
func LookupKey(remotePath string) string {
	return strings.ToLower(NormalizeRemote(remotePath))
}

// LocalFromRemote maps a remote path onto the local root. Pure; never fails.
func LocalFromRemote(remotePath, root string) string {
	rel := strings.TrimLeft(NormalizeRemote(remotePath), "/")
	return filepath.Join(root, filepath.FromSlash(rel))
}

// RemoteFromLocal maps a local path under root back to its remote path.
// Returns ErrNotInManagedRoot when the path is not under root.
func RemoteFromLocal(localPath, root string) (string, error) {
	rel, err := filepath.Rel(root, localPath)
	if err != nil {
		return "", errors.Errorf("relativizing %s against %s: %w", localPath, root, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.Errorf("%s: %w", localPath, ErrNotInManagedRoot)
	}
	if rel == "." {
		return "/", nil
	}
	return "/" + rel, nil
}

// KeyPath derives the dotted key the publish endpoint wants: leading slash
// stripped, separators become dots, a known content extension dropped.
// "/admin/foo/bar.html" -> "admin.foo.bar".
func KeyPath(remotePath string) string {
	p := strings.TrimLeft(NormalizeRemote(remotePath), "/")
	for _, ext := range contentExtensions {
		if strings.HasSuffix(strings.ToLower(p), ext) {
			p = p[:len(p)-len(ext)]
			break
		}
	}
	return strings.ReplaceAll(p, "/", ".")
}

// IsContentFile reports whether the remote path names a publishable page
// file by extension.
func IsContentFile(remotePath string) bool {
	lower := strings.ToLower(remotePath)
	for _, ext := range contentExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ResolveRoot finds the managed root for a workspace. The chain is
// deterministic and never creates directories:
//
//  1. explicit cfg.Root, if it exists on disk (joined with workspace when
//     relative); if it contains the conventional web-root subdirectory,
//     that subdirectory wins
//  2. <workspace>/<web_root_name>
//  3. <workspace>/*/<web_root_name> (one level down, first match in
//     lexical order)
//  4. the workspace itself
func ResolveRoot(cfg *config.Config, workspace string) string {
	webRoot := cfg.WebRootName
	if webRoot == "" {
		webRoot = "web_root"
	}

	if cfg.Root != "" {
		root := cfg.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(workspace, root)
		}
		if nested := filepath.Join(root, webRoot); isDir(nested) {
			return nested
		}
		if isDir(root) {
			return root
		}
	}

	if top := filepath.Join(workspace, webRoot); isDir(top) {
		return top
	}

	entries, err := os.ReadDir(workspace)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			nested := filepath.Join(workspace, entry.Name(), webRoot)
			if isDir(nested) {
				return nested
			}
		}
	}

	return workspace
}

// InitRoot creates the conventional web-root directory. This is the single
// place the tool ever creates a root, and it only runs from the explicit
// user-confirmed command.
func InitRoot(cfg *config.Config, workspace string) (string, error) {
	root := filepath.Join(workspace, cfg.WebRootName)
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", errors.Errorf("creating root %s: %w", root, err)
	}
	return root, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
