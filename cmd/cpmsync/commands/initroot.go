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
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/cmd/cpmsync/opts"
	"github.com/cpmtools/cpmsync/pkg/pathmap"
)

// NewInitRootCmd creates the init-root command
func NewInitRootCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-root",
		Short: "Create the managed root directory",
		Long: `Init-root creates the managed root directory in the workspace. Other
commands only resolve the root; this is the one command that creates it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := pathmap.InitRoot(o.Config, o.Workspace)
			if err != nil {
				return errors.Errorf("creating managed root: %w", err)
			}

			// Later commands resolve to the directory just created.
			o.Root = root
			o.Console.Successf("managed root ready at %s", root)
			return nil
		},
	}

	return cmd
}
