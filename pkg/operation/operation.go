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

// Package operation implements the bulk commands: walking the remote tree,
// reconciling it with the workspace, and reporting drift. Single-file
// transfers are handled directly by resolve and publish; this package
// coordinates them across whole subtrees.
package operation

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/config"
	"github.com/cpmtools/cpmsync/pkg/pathmap"
	"github.com/cpmtools/cpmsync/pkg/publish"
	"github.com/cpmtools/cpmsync/pkg/resolve"
	"github.com/cpmtools/cpmsync/pkg/status"
	"github.com/cpmtools/cpmsync/pkg/tree"
)

// 🎯 Operation is one executable bulk command.
type Operation interface {
	Name() string
	Execute(ctx context.Context) error
}

// 🔧 Options bundles the collaborators every operation needs.
type Options struct {
	Config    *config.Config
	Resolver  *resolve.Resolver
	Publisher *publish.Coordinator
	Tree      *tree.Builder
	Status    *status.Manager // rooted at the managed web root
	Folder    string          // remote folder to operate on, "" means the root
}

// Validate checks that the required collaborators are present.
func (o Options) Validate() error {
	if o.Config == nil {
		return errors.New("config is required")
	}
	if o.Resolver == nil {
		return errors.New("resolver is required")
	}
	if o.Tree == nil {
		return errors.New("tree builder is required")
	}
	if o.Status == nil {
		return errors.New("status manager is required")
	}
	return nil
}

// 📦 BaseOperation carries the shared collaborators.
type BaseOperation struct {
	Options
}

// 🏭 NewBaseOperation creates the shared base.
func NewBaseOperation(opts Options) BaseOperation {
	return BaseOperation{Options: opts}
}

// folder is the normalized starting folder for tree walks.
func (op *BaseOperation) folder() string {
	return pathmap.NormalizeRemote(op.Folder)
}

// ignored reports whether a remote path matches any configured ignore
// pattern. Patterns are doublestar globs against the slash-separated path
// without its leading slash.
func (op *BaseOperation) ignored(remotePath string) bool {
	rel := pathmap.NormalizeRemote(remotePath)[1:]
	for _, pattern := range op.Config.Sync.IgnorePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
