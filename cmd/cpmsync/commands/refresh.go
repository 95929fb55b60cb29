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
)

// NewRefreshCmd creates the refresh command
func NewRefreshCmd(o *opts.RootOpts) *cobra.Command {
	var identifiers bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Drop cached server state",
		Long: `Refresh clears the session and re-reads the plugin mapping index, so the
next command sees the server's current state. With --identifiers the
persistent customization-identifier cache is cleared too; identifiers are
rediscovered on the next publish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := o.Connect(ctx)
			if err != nil {
				return err
			}

			deps.Client.ClearAuth()
			deps.Tree.Refresh(deps.Mappings)

			if identifiers {
				if err := deps.IDs.Clear(ctx); err != nil {
					return err
				}
				o.Console.Info("identifier cache cleared")
			}

			o.Console.Success("caches refreshed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&identifiers, "identifiers", false, "also clear the customization identifier cache")
	return cmd
}
