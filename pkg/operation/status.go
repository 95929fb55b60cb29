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

package operation

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/pathmap"
	"github.com/cpmtools/cpmsync/pkg/resolve"
	"github.com/cpmtools/cpmsync/pkg/status"
	"github.com/cpmtools/cpmsync/pkg/tree"
)

// 📦 NewStatusOperation creates the drift report: each remote custom file
// compared against its workspace copy. Results land in the status manager.
func NewStatusOperation(opts Options) Operation {
	return &statusOperation{BaseOperation: NewBaseOperation(opts)}
}

type statusOperation struct {
	BaseOperation
}

func (op *statusOperation) Name() string { return "status" }

// Execute compares the server's custom files against the workspace without
// touching either side.
func (op *statusOperation) Execute(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	root, err := op.Tree.Walk(ctx, op.folder(), op.Config.Sync.MaxDepth)
	if err != nil {
		return errors.Errorf("walking remote tree: %w", err)
	}

	paths := tree.CustomFiles(root)
	op.Status.StartOperation(ctx, op.Name(), len(paths))
	defer op.Status.FinishOperation(ctx)

	var drifted int
	for i, remotePath := range paths {
		if op.ignored(remotePath) {
			continue
		}

		res, err := op.Resolver.Resolve(ctx, remotePath, resolve.Active)
		if err != nil {
			op.Status.Track(ctx, remotePath, status.FileInfo{
				Path:   remotePath,
				Status: status.StatusFailed,
				Error:  err,
			})
			continue
		}
		remote := []byte(res.Content)

		local := pathmap.NormalizeRemote(remotePath)[1:]
		localContent, readErr := op.Status.ReadFile(ctx, local)
		localExists := readErr == nil

		st := status.Compare(localContent, localExists, remote, true)
		if st != status.StatusUnchanged {
			drifted++
		}
		op.Status.Track(ctx, remotePath, status.FileInfo{
			Path:     remotePath,
			Status:   st,
			Size:     int64(len(remote)),
			Checksum: status.Checksum(remote),
		})
		op.Status.UpdateProgress(ctx, i+1)
	}

	logger.Info().
		Int("checked", len(paths)).
		Int("drifted", drifted).
		Msg("status complete")
	return nil
}
