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

	"github.com/cpmtools/cpmsync/cmd/cpmsync/opts"
	"github.com/cpmtools/cpmsync/pkg/log"
	"github.com/cpmtools/cpmsync/pkg/operation"
)

// NewSyncCmd creates the sync command
func NewSyncCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [folder]",
		Short: "Download every customized file into the workspace",
		Long: `Sync walks the server's page tree from the given folder (the root by
default) and downloads the active content of every customized file into the
managed root, skipping files that match the configured ignore patterns and
files whose local copy is already current.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			folder := "/"
			if len(args) == 1 {
				folder = args[0]
			}

			deps, err := o.Connect(ctx)
			if err != nil {
				return err
			}

			o.Console.StartServerOperation(ctx, log.ServerOperation{
				Command: "sync",
				Server:  o.Config.Server.URL,
				Root:    o.Root,
			})
			defer o.Console.EndServerOperation(ctx)

			op := operation.NewSyncOperation(operation.Options{
				Config:    o.Config,
				Resolver:  deps.Resolver,
				Publisher: deps.Publisher,
				Tree:      deps.Tree,
				Status:    deps.Status,
				Folder:    folder,
			})

			runner := operation.NewRunner(1)
			if err := runner.Run(ctx, op); err != nil {
				return err
			}

			o.Console.Success("sync complete")
			return nil
		},
	}

	return cmd
}
