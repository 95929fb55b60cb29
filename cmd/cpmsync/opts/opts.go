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

// Package opts carries the dependency bundle shared by all commands.
package opts

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/config"
	"github.com/cpmtools/cpmsync/pkg/cpm"
	"github.com/cpmtools/cpmsync/pkg/log"
	"github.com/cpmtools/cpmsync/pkg/plugin"
	"github.com/cpmtools/cpmsync/pkg/publish"
	"github.com/cpmtools/cpmsync/pkg/resolve"
	"github.com/cpmtools/cpmsync/pkg/state"
	"github.com/cpmtools/cpmsync/pkg/status"
	"github.com/cpmtools/cpmsync/pkg/tree"
)

// 🎯 RootOpts is what every command gets before it runs. Connect is deferred
// so local-only commands work without server credentials.
type RootOpts struct {
	ConfigPath string
	Config     *config.Config
	Console    *log.Logger
	Workspace  string // directory the command runs in
	Root       string // managed local root, resolved from config
}

// 📦 Deps holds the server-backed collaborators.
type Deps struct {
	Client    *cpm.Client
	IDs       *state.Store
	Resolver  *resolve.Resolver
	Publisher *publish.Coordinator
	Mappings  *plugin.Index
	Tree      *tree.Builder
	Status    *status.Manager
}

// 🔌 Connect builds the client stack. The plugin mapping index is optional
// enrichment: a failure there degrades attribution, not the command.
func (o *RootOpts) Connect(ctx context.Context) (*Deps, error) {
	client, err := cpm.New(ctx, o.Config)
	if err != nil {
		return nil, errors.Errorf("creating client: %w", err)
	}

	ids, err := state.Load(ctx, filepath.Join(o.Workspace, state.DefaultLockName), o.Config.Server.URL)
	if err != nil {
		return nil, errors.Errorf("loading identifier cache: %w", err)
	}

	resolver := resolve.New(client, ids)
	publisher := publish.New(client, resolver, ids)

	mappings, err := plugin.LoadIndex(ctx, client)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("plugin mappings unavailable, attribution disabled")
		mappings = nil
	}

	return &Deps{
		Client:    client,
		IDs:       ids,
		Resolver:  resolver,
		Publisher: publisher,
		Mappings:  mappings,
		Tree:      tree.NewBuilder(client, mappings),
		Status:    status.New(o.Root),
	}, nil
}
