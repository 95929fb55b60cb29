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
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/cmd/cpmsync/opts"
)

// NewTestCmd creates the test command
func NewTestCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check connectivity and credentials",
		Long: `Test exercises both authentication paths against the configured server:
the public web service and the page management service. Each check reports
independently so a partial credential problem is visible.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := o.Connect(ctx)
			if err != nil {
				return err
			}

			o.Console.Header("testing connection to " + o.Config.Server.URL)
			report := deps.Client.TestConnection(ctx)

			rows := pterm.TableData{{"Check", "Result", "Detail"}}
			rows = append(rows, checkRow("public web service", report.BasicAPI, report.BasicErr))
			rows = append(rows, checkRow("page management service", report.CPMTree, report.CPMErr))
			if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
				return err
			}

			if !report.BasicAPI || !report.CPMTree {
				return errors.New("one or more connection checks failed")
			}
			o.Console.Success("all checks passed")
			return nil
		},
	}

	return cmd
}

func checkRow(name string, ok bool, detail string) []string {
	if ok {
		return []string{name, pterm.Green("ok"), ""}
	}
	return []string{name, pterm.Red("failed"), detail}
}
