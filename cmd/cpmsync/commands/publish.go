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
	"github.com/cpmtools/cpmsync/pkg/pathmap"
)

// NewPublishCmd creates the publish command
func NewPublishCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <path>...",
		Short: "Publish workspace files to the server",
		Long: `Publish uploads local file content as the page's customization and
verifies each upload by downloading the content back. A failed verification
is reported but does not abort the run: the server already accepted the
write.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := o.Connect(ctx)
			if err != nil {
				return err
			}

			o.Console.StartServerOperation(ctx, log.ServerOperation{
				Command: "publish",
				Server:  o.Config.Server.URL,
				Root:    o.Root,
			})
			defer o.Console.EndServerOperation(ctx)

			var unverified int
			for _, arg := range args {
				remote, err := remoteFor(o, arg)
				if err != nil {
					return err
				}
				if !pathmap.IsContentFile(remote) {
					return errors.Errorf("%s is not a publishable page type", remote)
				}

				content, err := deps.Status.ReadFile(ctx, localRel(remote))
				if err != nil {
					return errors.Errorf("reading local copy of %s: %w", remote, err)
				}

				result, err := deps.Publisher.Publish(ctx, remote, string(content))
				if err != nil {
					o.Console.LogTransfer(ctx, log.TransferOperation{
						Path:      remote,
						Direction: "publish",
						Status:    "failed",
						IsFailed:  true,
					})
					return errors.Errorf("publishing %s: %w", remote, err)
				}

				status := "verified"
				if !result.Verified {
					status = "unverified"
					unverified++
				}
				o.Console.LogTransfer(ctx, log.TransferOperation{
					Path:       remote,
					Direction:  "publish",
					Status:     status,
					IsVerified: result.Verified,
				})
			}

			if unverified > 0 {
				o.Console.Warningf("%d file(s) published but could not be verified", unverified)
			} else {
				o.Console.Successf("published %d file(s)", len(args))
			}
			return nil
		},
	}

	return cmd
}
