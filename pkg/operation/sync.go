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
	"bytes"
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/cpmtools/cpmsync/pkg/pathmap"
	"github.com/cpmtools/cpmsync/pkg/resolve"
	"github.com/cpmtools/cpmsync/pkg/status"
	"github.com/cpmtools/cpmsync/pkg/tree"
)

const syncWorkers = 4

// 📦 NewSyncOperation creates the bulk download operation: every custom file
// on the server, written into the workspace.
func NewSyncOperation(opts Options) Operation {
	return &syncOperation{BaseOperation: NewBaseOperation(opts)}
}

type syncOperation struct {
	BaseOperation

	mu      sync.Mutex
	written int
	skipped int
}

func (op *syncOperation) Name() string { return "sync" }

// 🏃 Execute walks the remote tree and downloads each custom file's active
// content. Files matching ignore patterns are skipped; files whose local
// copy already matches are left alone.
func (op *syncOperation) Execute(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	root, err := op.Tree.Walk(ctx, op.folder(), op.Config.Sync.MaxDepth)
	if err != nil {
		return errors.Errorf("walking remote tree: %w", err)
	}

	var paths []string
	for _, remotePath := range tree.CustomFiles(root) {
		if op.ignored(remotePath) {
			logger.Debug().Str("path", remotePath).Msg("ignored by pattern")
			continue
		}
		paths = append(paths, remotePath)
	}

	op.Status.StartOperation(ctx, op.Name(), len(paths))
	defer op.Status.FinishOperation(ctx)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(syncWorkers)

	var processed int
	for _, remotePath := range paths {
		remotePath := remotePath
		group.Go(func() error {
			if err := op.downloadOne(ctx, remotePath); err != nil {
				op.Status.Track(ctx, remotePath, status.FileInfo{
					Path:   remotePath,
					Status: status.StatusFailed,
					Error:  err,
				})
				return err
			}
			op.mu.Lock()
			processed++
			n := processed
			op.mu.Unlock()
			op.Status.UpdateProgress(ctx, n)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info().
		Int("written", op.written).
		Int("unchanged", op.skipped).
		Msg("sync complete")
	return nil
}

func (op *syncOperation) downloadOne(ctx context.Context, remotePath string) error {
	res, err := op.Resolver.Resolve(ctx, remotePath, resolve.Active)
	if err != nil {
		return errors.Errorf("resolving %s: %w", remotePath, err)
	}

	local := pathmap.NormalizeRemote(remotePath)[1:]
	content := []byte(res.Content)

	if existing, readErr := op.Status.ReadFile(ctx, local); readErr == nil && bytes.Equal(existing, content) {
		op.mu.Lock()
		op.skipped++
		op.mu.Unlock()
		op.Status.Track(ctx, remotePath, status.FileInfo{
			Path:     remotePath,
			Status:   status.StatusUnchanged,
			Size:     int64(len(content)),
			Checksum: status.Checksum(content),
		})
		return nil
	}

	existed, err := op.Status.FileExists(ctx, local)
	if err != nil {
		return errors.Errorf("checking %s: %w", local, err)
	}
	if err := op.Status.WriteFile(ctx, local, content); err != nil {
		return errors.Errorf("writing %s: %w", local, err)
	}

	op.mu.Lock()
	op.written++
	op.mu.Unlock()

	st := status.StatusNew
	if existed {
		st = status.StatusModified
	}
	op.Status.Track(ctx, remotePath, status.FileInfo{
		Path:     remotePath,
		Status:   st,
		Size:     int64(len(content)),
		Checksum: status.Checksum(content),
	})
	return nil
}
