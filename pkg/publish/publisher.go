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

// Package publish coordinates customization uploads. The server updates an
// existing customization record only when the upload carries its
// customContentId; a wrong or missing id silently creates a duplicate. The
// coordinator owns the id-lookup, stale-id retry and post-upload
// verification policy around that constraint.
package publish

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/cpm"
	"github.com/cpmtools/cpmsync/pkg/pathmap"
	"github.com/cpmtools/cpmsync/pkg/resolve"
	"github.com/cpmtools/cpmsync/pkg/state"
)

// API is the slice of the CPM client the coordinator needs.
type API interface {
	GetPageContent(ctx context.Context, path string, loadFolderInfo bool) (*cpm.PageContent, error)
	PublishPageContent(ctx context.Context, req cpm.PublishRequest) (*cpm.PublishResult, error)
}

// ContentResolver re-fetches authoritative content for verification.
type ContentResolver interface {
	Resolve(ctx context.Context, remotePath string, variant resolve.Variant) (resolve.Resolution, error)
}

// 📤 Result reports a completed publish. Verified false is a warning, not a
// failure: the write already happened server-side.
type Result struct {
	Verified   bool
	Identifier int64
}

// 🚀 Coordinator serializes and verifies uploads per remote path.
type Coordinator struct {
	api      API
	resolver ContentResolver
	ids      *state.Store

	mu    sync.Mutex
	paths map[string]*sync.Mutex
}

// New creates a coordinator.
func New(api API, resolver ContentResolver, ids *state.Store) *Coordinator {
	return &Coordinator{
		api:      api,
		resolver: resolver,
		ids:      ids,
		paths:    map[string]*sync.Mutex{},
	}
}

// pathLock returns the mutex serializing publish+verify for one remote
// path. Concurrent publishes of the same path would otherwise race the
// evict-then-retry sequence and corrupt the identifier cache.
func (c *Coordinator) pathLock(remotePath string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := pathmap.LookupKey(remotePath)
	lock, ok := c.paths[key]
	if !ok {
		lock = &sync.Mutex{}
		c.paths[key] = lock
	}
	return lock
}

// Publish uploads newContent for remotePath and verifies it landed.
//
//  1. A cached identifier is tried first.
//  2. If the server rejects it as stale, the entry is evicted and the
//     identifier re-discovered from metadata — one retry, never a loop.
//  3. With no identifier anywhere, the upload carries id 0 so the server
//     creates the customization; the issued id is cached for next time.
//  4. The authoritative content is re-fetched and byte-compared; a mismatch
//     is reported, not raised.
func (c *Coordinator) Publish(ctx context.Context, remotePath, newContent string) (Result, error) {
	lock := c.pathLock(remotePath)
	lock.Lock()
	defer lock.Unlock()

	logger := zerolog.Ctx(ctx)
	remotePath = pathmap.NormalizeRemote(remotePath)

	id, cached := c.ids.Get(remotePath)
	if cached {
		logger.Debug().Str("path", remotePath).Int64("content_id", id).Msg("publishing with cached identifier")
		result, err := c.upload(ctx, remotePath, newContent, id)
		if err == nil {
			return c.verify(ctx, remotePath, newContent, result)
		}
		if !errors.Is(err, cpm.ErrStaleIdentifier) {
			return Result{}, err
		}

		logger.Warn().Str("path", remotePath).Int64("content_id", id).Msg("cached identifier rejected, refetching")
		if evictErr := c.ids.Evict(ctx, remotePath); evictErr != nil {
			logger.Warn().Err(evictErr).Str("path", remotePath).Msg("could not evict stale identifier")
		}
	}

	id, err := c.discoverIdentifier(ctx, remotePath)
	if err != nil {
		return Result{}, err
	}

	result, err := c.upload(ctx, remotePath, newContent, id)
	if err != nil {
		return Result{}, err
	}
	return c.verify(ctx, remotePath, newContent, result)
}

// discoverIdentifier queries file metadata for an existing customization
// record. A missing file or missing record both mean "create": id 0.
func (c *Coordinator) discoverIdentifier(ctx context.Context, remotePath string) (int64, error) {
	page, err := c.api.GetPageContent(ctx, remotePath, true)
	if err != nil {
		// The metadata endpoint errors for paths with no asset yet. Fall
		// through to a create upload; if the server is actually down the
		// upload fails with the real error.
		zerolog.Ctx(ctx).Debug().Err(err).Str("path", remotePath).Msg("no metadata for path, uploading as create")
		return 0, nil
	}

	if page.ActiveCustomContentID == nil || *page.ActiveCustomContentID <= 0 {
		return 0, nil
	}

	id := *page.ActiveCustomContentID
	if err := c.ids.Put(ctx, remotePath, id); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", remotePath).Msg("could not persist discovered identifier")
	}
	return id, nil
}

// upload performs the multipart post and caches any server-issued id.
func (c *Coordinator) upload(ctx context.Context, remotePath, content string, id int64) (*cpm.PublishResult, error) {
	result, err := c.api.PublishPageContent(ctx, cpm.PublishRequest{
		ContentID:  id,
		Content:    content,
		RemotePath: remotePath,
		KeyPath:    pathmap.KeyPath(remotePath),
	})
	if err != nil {
		return nil, err
	}

	if result.ContentID > 0 {
		if err := c.ids.Put(ctx, remotePath, result.ContentID); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", remotePath).Msg("could not persist issued identifier")
		}
	}
	return result, nil
}

// verify re-downloads the authoritative content and compares.
func (c *Coordinator) verify(ctx context.Context, remotePath, want string, uploaded *cpm.PublishResult) (Result, error) {
	logger := zerolog.Ctx(ctx)

	id := uploaded.ContentID
	if id == 0 {
		if cached, ok := c.ids.Get(remotePath); ok {
			id = cached
		}
	}

	res, err := c.resolver.Resolve(ctx, remotePath, resolve.Active)
	if err != nil {
		// The upload succeeded; a failed verification read is a warning.
		logger.Warn().Err(err).Str("path", remotePath).Msg("publish verification fetch failed")
		return Result{Verified: false, Identifier: id}, nil
	}

	verified := res.Content == want
	if !verified {
		logger.Warn().
			Str("path", remotePath).
			Int("sent_bytes", len(want)).
			Int("got_bytes", len(res.Content)).
			Msg("published content differs from server readback")
	}
	if res.Identifier > 0 {
		id = res.Identifier
	}
	return Result{Verified: verified, Identifier: id}, nil
}
