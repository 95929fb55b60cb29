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

package plugin

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ConventionalDirs are the plugin subdirectory names the platform installer
// recognizes. Packaging includes whichever of these exist.
var ConventionalDirs = []string{
	"web_root",
	"queries_root",
	"user_schema_root",
	"permissions_root",
	"MessageKeys",
	"pagecataloging",
}

// 📦 PackageOptions tunes a packaging run
type PackageOptions struct {
	Dirs            []string // overrides ConventionalDirs when non-empty
	Output          string   // output directory; defaults to the plugin root
	ExcludePatterns []string // doublestar globs matched against archive paths
}

// Package zips plugin.xml plus the conventional subdirectories under
// rootDir into <name>-<version>.zip. Returns the archive path.
func Package(ctx context.Context, rootDir string, m *Manifest, opts PackageOptions) (string, error) {
	logger := zerolog.Ctx(ctx)

	dirs := opts.Dirs
	if len(dirs) == 0 {
		dirs = ConventionalDirs
	}

	include := []string{"plugin.xml"}
	for _, dir := range dirs {
		if info, err := os.Stat(filepath.Join(rootDir, dir)); err == nil && info.IsDir() {
			include = append(include, dir)
		}
	}
	if len(include) == 1 {
		if _, err := os.Stat(filepath.Join(rootDir, "plugin.xml")); err != nil {
			return "", errors.Errorf("nothing to package under %s: %w", rootDir, err)
		}
	}

	name := m.Name
	if name == "" {
		name = filepath.Base(rootDir)
	}
	name = strings.ReplaceAll(name, " ", "_")

	outDir := opts.Output
	if outDir == "" {
		outDir = rootDir
	}
	zipPath := filepath.Join(outDir, fmt.Sprintf("%s-%s.zip", name, m.Version))

	out, err := os.Create(zipPath)
	if err != nil {
		return "", errors.Errorf("creating archive %s: %w", zipPath, err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	for _, item := range include {
		if err := addToArchive(w, rootDir, item, opts.ExcludePatterns); err != nil {
			w.Close()
			return "", errors.Errorf("archiving %s: %w", item, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", errors.Errorf("finalizing archive: %w", err)
	}

	logger.Info().Str("archive", zipPath).Strs("contents", include).Msg("packaged plugin")
	return zipPath, nil
}

// addToArchive adds a file or directory tree, keeping paths relative to the
// plugin root with forward slashes.
func addToArchive(w *zip.Writer, rootDir, item string, excludes []string) error {
	return filepath.Walk(filepath.Join(rootDir, item), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		for _, pattern := range excludes {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return nil
			}
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		entry, err := w.Create(rel)
		if err != nil {
			return err
		}
		_, err = io.Copy(entry, f)
		return err
	})
}
