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
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/cmd/cpmsync/opts"
)

// NewDeleteCmd creates the delete command
func NewDeleteCmd(o *opts.RootOpts) *cobra.Command {
	var (
		isDir bool
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "delete <path>...",
		Short: "Delete customizations on the server",
		Long: `Delete removes server-side customizations. The stock vendor content, if
any, becomes active again. Local workspace files are not touched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := o.Connect(ctx)
			if err != nil {
				return err
			}

			remotes := make([]string, 0, len(args))
			for _, arg := range args {
				remote, err := remoteFor(o, arg)
				if err != nil {
					return err
				}
				remotes = append(remotes, remote)
			}

			if !yes {
				prompt := fmt.Sprintf("Delete %d server customization(s)?", len(remotes))
				confirmed, err := pterm.DefaultInteractiveConfirm.Show(prompt)
				if err != nil {
					return errors.Errorf("reading confirmation: %w", err)
				}
				if !confirmed {
					o.Console.Info("aborted")
					return nil
				}
			}

			for _, remote := range remotes {
				if isDir {
					err = deps.Client.DeleteFolder(ctx, remote)
				} else {
					err = deps.Client.DeleteFile(ctx, remote)
				}
				if err != nil {
					return errors.Errorf("deleting %s: %w", remote, err)
				}

				// The customization record is gone, so the cached id is too.
				if evictErr := deps.IDs.Evict(ctx, remote); evictErr != nil {
					o.Console.Warningf("could not update identifier cache: %v", evictErr)
				}
				o.Console.Successf("deleted %s", remote)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&isDir, "dir", false, "delete a folder instead of a file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
