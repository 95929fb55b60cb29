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
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/cmd/cpmsync/opts"
	"github.com/cpmtools/cpmsync/pkg/pathmap"
	"github.com/cpmtools/cpmsync/pkg/template"
)

// NewNewCmd creates the new command
func NewNewCmd(o *opts.RootOpts) *cobra.Command {
	var (
		tmplName string
		title    string
		author   string
		doPub    bool
	)

	cmd := &cobra.Command{
		Use:   "new <path>",
		Short: "Create a page file from a starter template",
		Long: `New creates a workspace file at the given path with starter content for
its file type. With --publish the file is also uploaded to the server as a
new customization.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			remote, err := remoteFor(o, args[0])
			if err != nil {
				return err
			}
			if !pathmap.IsContentFile(remote) {
				return errors.Errorf("%s: templates exist only for page file types (%s)", remote, strings.Join(template.Names(), ", "))
			}

			if title == "" {
				title = strings.TrimSuffix(filepath.Base(remote), filepath.Ext(remote))
			}

			vars := template.Vars{Title: title, Author: author}
			var content string
			if tmplName != "" {
				content, err = template.Render(tmplName, vars)
			} else {
				content, err = template.ForPath(remote, vars)
			}
			if err != nil {
				return err
			}

			local := pathmap.LocalFromRemote(remote, o.Root)
			if _, statErr := os.Stat(local); statErr == nil {
				return errors.Errorf("%s already exists", local)
			}
			if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
				return errors.Errorf("creating parent directories: %w", err)
			}
			if err := os.WriteFile(local, []byte(content), 0644); err != nil {
				return errors.Errorf("writing %s: %w", local, err)
			}
			o.Console.Successf("created %s", local)

			if !doPub {
				return nil
			}

			deps, err := o.Connect(ctx)
			if err != nil {
				return err
			}
			result, err := deps.Publisher.Publish(ctx, remote, content)
			if err != nil {
				return errors.Errorf("publishing %s: %w", remote, err)
			}
			if result.Verified {
				o.Console.Successf("published %s", remote)
			} else {
				o.Console.Warningf("published %s but could not verify", remote)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tmplName, "template", "t", "", "template name (defaults to the file extension)")
	cmd.Flags().StringVar(&title, "title", "", "page title (defaults to the file name)")
	cmd.Flags().StringVar(&author, "author", "", "author for the file header")
	cmd.Flags().BoolVar(&doPub, "publish", false, "publish the new file to the server")
	return cmd
}
