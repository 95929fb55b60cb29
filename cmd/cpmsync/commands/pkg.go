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

package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/cmd/cpmsync/opts"
	"github.com/cpmtools/cpmsync/pkg/plugin"
)

// NewPackageCmd creates the package command
func NewPackageCmd(o *opts.RootOpts) *cobra.Command {
	var (
		bump   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Build an installable plugin archive from the workspace",
		Long: `Package zips the workspace's plugin.xml and conventional content
directories into a versioned archive ready for installation. With --bump the
manifest version is incremented and saved first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			manifest, err := plugin.ReadManifest(filepath.Join(o.Workspace, "plugin.xml"))
			if err != nil {
				return errors.Errorf("reading plugin manifest: %w", err)
			}

			if bump != "" {
				if err := manifest.Bump(bump); err != nil {
					return err
				}
				if err := manifest.Save(); err != nil {
					return err
				}
				o.Console.Infof("version bumped to %s", manifest.Version)
			}

			pkgOpts := plugin.PackageOptions{
				Output:          output,
				ExcludePatterns: nil,
			}
			if o.Config.Package != nil {
				pkgOpts.Dirs = o.Config.Package.Dirs
				pkgOpts.ExcludePatterns = o.Config.Package.ExcludePatterns
				if pkgOpts.Output == "" {
					pkgOpts.Output = o.Config.Package.Output
				}
			}

			archive, err := plugin.Package(ctx, o.Workspace, manifest, pkgOpts)
			if err != nil {
				return errors.Errorf("packaging plugin: %w", err)
			}

			o.Console.Successf("wrote %s", archive)
			return nil
		},
	}

	cmd.Flags().StringVar(&bump, "bump", "", "bump the manifest version first: major, minor, or patch")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory for the archive")
	return cmd
}
