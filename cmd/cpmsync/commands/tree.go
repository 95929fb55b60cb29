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

	"github.com/cpmtools/cpmsync/cmd/cpmsync/opts"
	"github.com/cpmtools/cpmsync/pkg/tree"
)

// NewTreeCmd creates the tree command
func NewTreeCmd(o *opts.RootOpts) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Render the remote page tree",
		Long: `Tree renders the server's page tree from the given folder (the root by
default). Customized entries are marked, and entries owned by an installed
plugin carry the plugin name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := o.Connect(ctx)
			if err != nil {
				return err
			}

			folderPath := "/"
			if len(args) == 1 {
				folderPath = args[0]
			}

			root, err := deps.Tree.Walk(ctx, folderPath, depth)
			if err != nil {
				return err
			}

			rendered := pterm.TreeNode{
				Text:     pterm.Bold.Sprint(labelFor(root)),
				Children: treeNodes(root.Children),
			}
			return pterm.DefaultTree.WithRoot(rendered).Render()
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 3, "how many folder levels to fetch")
	return cmd
}

func treeNodes(nodes []*tree.FileNode) []pterm.TreeNode {
	out := make([]pterm.TreeNode, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, pterm.TreeNode{
			Text:     labelFor(node),
			Children: treeNodes(node.Children),
		})
	}
	return out
}

func labelFor(node *tree.FileNode) string {
	label := node.Name
	if node.IsFolder {
		label = pterm.Cyan(label + "/")
		if node.HasCustomFiles {
			label += pterm.Yellow(" •")
		}
	} else if node.IsCustom {
		label = pterm.Green(label) + pterm.Yellow(" ●")
	}
	if node.Plugin != nil {
		label += pterm.Gray(fmt.Sprintf(" [%s]", node.Plugin.Name))
	}
	return label
}
