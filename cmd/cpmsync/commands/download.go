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
	"github.com/cpmtools/cpmsync/pkg/log"
	"github.com/cpmtools/cpmsync/pkg/resolve"
)

// NewDownloadCmd creates the download command
func NewDownloadCmd(o *opts.RootOpts) *cobra.Command {
	var (
		stock   bool
		version int64
	)

	cmd := &cobra.Command{
		Use:   "download <path>...",
		Short: "Download page content into the workspace",
		Long: `Download fetches the effective content of one or more pages and writes
them to the matching paths under the managed root. By default the active
content is fetched: the customization when one exists, the stock text
otherwise.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := o.Connect(ctx)
			if err != nil {
				return err
			}

			variant := resolve.Active
			if stock {
				variant = resolve.Stock
			}
			if version > 0 {
				variant = resolve.Historical(version)
			}

			o.Console.StartServerOperation(ctx, log.ServerOperation{
				Command: "download",
				Server:  o.Config.Server.URL,
				Root:    o.Root,
			})
			defer o.Console.EndServerOperation(ctx)

			for _, arg := range args {
				remote, err := remoteFor(o, arg)
				if err != nil {
					return err
				}

				res, err := deps.Resolver.Resolve(ctx, remote, variant)
				if err != nil {
					return errors.Errorf("downloading %s: %w", remote, err)
				}

				rel := localRel(remote)
				existed, err := deps.Status.FileExists(ctx, rel)
				if err != nil {
					return err
				}
				if err := deps.Status.WriteFile(ctx, rel, []byte(res.Content)); err != nil {
					return err
				}

				o.Console.LogTransfer(ctx, log.TransferOperation{
					Path:       remote,
					Direction:  "download",
					Status:     variant.String(),
					IsNew:      !existed,
					IsModified: existed,
				})
			}

			o.Console.Successf("downloaded %d file(s)", len(args))
			return nil
		},
	}

	cmd.Flags().BoolVar(&stock, "stock", false, "fetch the vendor built-in text instead of the active content")
	cmd.Flags().Int64Var(&version, "version", 0, "fetch a specific historical version by id")
	return cmd
}
