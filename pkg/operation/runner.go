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
	"golang.org/x/sync/errgroup"
)

// 🏃 Runner executes operations, optionally in parallel.
type Runner struct {
	parallel int // worker limit for RunAll, 1 means sequential
}

// 🏗️ NewRunner creates a runner. parallel < 1 defaults to 1.
func NewRunner(parallel int) *Runner {
	if parallel < 1 {
		parallel = 1
	}
	return &Runner{parallel: parallel}
}

// 🏃 Run executes one operation.
func (r *Runner) Run(ctx context.Context, op Operation) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("operation", op.Name()).Msg("running operation")

	if err := op.Execute(ctx); err != nil {
		return errors.Errorf("%s: %w", op.Name(), err)
	}
	return nil
}

// ⚡ RunAll executes operations with the configured worker limit, stopping
// at the first failure.
func (r *Runner) RunAll(ctx context.Context, ops ...Operation) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.parallel)

	for _, op := range ops {
		op := op
		group.Go(func() error {
			return r.Run(ctx, op)
		})
	}
	return group.Wait()
}
