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
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cpmtools/cpmsync/cmd/cpmsync/opts"
	"github.com/cpmtools/cpmsync/pkg/operation"
	"github.com/cpmtools/cpmsync/pkg/status"
)

// NewStatusCmd creates the status command
func NewStatusCmd(o *opts.RootOpts) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Compare workspace files against the server",
		Long: `Status walks the server's customized files and compares each against its
workspace copy, without changing either side. Drifted files are listed;
pass --all to include unchanged files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := o.Connect(ctx)
			if err != nil {
				return err
			}

			op := operation.NewStatusOperation(operation.Options{
				Config:    o.Config,
				Resolver:  deps.Resolver,
				Publisher: deps.Publisher,
				Tree:      deps.Tree,
				Status:    deps.Status,
			})

			runner := operation.NewRunner(1)
			if err := runner.Run(ctx, op); err != nil {
				return err
			}

			rows := pterm.TableData{{"Status", "Path"}}
			var drifted int
			for _, info := range deps.Status.List(ctx) {
				if info.Status == status.StatusUnchanged && !all {
					continue
				}
				if info.Status != status.StatusUnchanged {
					drifted++
				}
				rows = append(rows, []string{info.Status.String(), info.Path})
			}

			if len(rows) > 1 {
				if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
					return err
				}
			}

			if drifted == 0 {
				o.Console.Success("workspace is up to date")
			} else {
				o.Console.Warningf("%d file(s) differ from the server", drifted)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "also list unchanged files")
	return cmd
}
