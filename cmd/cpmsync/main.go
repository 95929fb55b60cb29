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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cpmtools/cpmsync/cmd/cpmsync/commands"
	"github.com/cpmtools/cpmsync/cmd/cpmsync/opts"
)

func main() {
	o := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "cpmsync",
		Short: "Sync customized pages between a local workspace and a CPM server",
		Long: `cpmsync mirrors a school platform's customizable page tree into a local
directory, and publishes local edits back with verification. The directory
layout matches the server's page tree, rooted at the managed web root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initRootOpts(cmd.Context(), o)
		},
	}

	addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewDownloadCmd(o),
		commands.NewPublishCmd(o),
		commands.NewSyncCmd(o),
		commands.NewStatusCmd(o),
		commands.NewTreeCmd(o),
		commands.NewNewCmd(o),
		commands.NewPackageCmd(o),
		commands.NewDeleteCmd(o),
		commands.NewTestCmd(o),
		commands.NewRefreshCmd(o),
		commands.NewInitRootCmd(o),
	)

	ctx := setupLogging(context.Background())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if o.Console != nil {
			o.Console.Errorf("%v", err)
		} else {
			fmt.Fprintf(os.Stderr, "cpmsync: %v\n", err)
		}
		os.Exit(1)
	}
}
