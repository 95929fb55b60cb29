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

package publish

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/cpm"
	"github.com/cpmtools/cpmsync/pkg/resolve"
	"github.com/cpmtools/cpmsync/pkg/state"
)

// 🔧 fakeServer plays the CPM publish endpoint: it remembers content per
// path, rejects configured identifiers as stale, and issues new ids.
type fakeServer struct {
	content    map[string]string
	ids        map[string]int64
	nextID     int64
	staleIDs   map[int64]bool
	uploads    []int64 // content ids seen, in order
	metaCalls  int
	failUpload error
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		content:  map[string]string{},
		ids:      map[string]int64{},
		nextID:   100,
		staleIDs: map[int64]bool{},
	}
}

func (f *fakeServer) GetPageContent(ctx context.Context, path string, loadFolderInfo bool) (*cpm.PageContent, error) {
	f.metaCalls++
	text, ok := f.content[path]
	if !ok {
		return nil, errors.Errorf("no asset at %s", path)
	}
	page := &cpm.PageContent{ActiveCustomText: &text, BuiltInText: "stock"}
	if id, ok := f.ids[path]; ok {
		page.ActiveCustomContentID = &id
	}
	return page, nil
}

func (f *fakeServer) GetVersionContent(ctx context.Context, versionID int64) (string, error) {
	return "", errors.New("not supported")
}

func (f *fakeServer) PublishPageContent(ctx context.Context, req cpm.PublishRequest) (*cpm.PublishResult, error) {
	f.uploads = append(f.uploads, req.ContentID)
	if f.failUpload != nil {
		return nil, f.failUpload
	}
	if f.staleIDs[req.ContentID] {
		return nil, errors.Errorf("returnMessage %q: %w", "A save error occurred", cpm.ErrStaleIdentifier)
	}

	id := req.ContentID
	if id == 0 {
		f.nextID++
		id = f.nextID
	}
	f.ids[req.RemotePath] = id
	f.content[req.RemotePath] = req.Content
	return &cpm.PublishResult{Message: "The file was published successfully", ContentID: id}, nil
}

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.Load(context.Background(), filepath.Join(t.TempDir(), state.DefaultLockName), "https://ps.example.edu")
	require.NoError(t, err)
	return store
}

func newCoordinator(t *testing.T, server *fakeServer) (*Coordinator, *state.Store) {
	t.Helper()
	ids := newTestStore(t)
	resolver := resolve.New(server, ids)
	return New(server, resolver, ids), ids
}

func TestPublish_CreatesWhenNoAssetExists(t *testing.T) {
	server := newFakeServer()
	coord, ids := newCoordinator(t, server)

	result, err := coord.Publish(context.Background(), "/admin/new.html", "hello")
	require.NoError(t, err)

	assert.True(t, result.Verified, "readback should match what was sent")
	assert.Equal(t, []int64{0}, server.uploads, "first upload should be a create")
	assert.Equal(t, "hello", server.content["/admin/new.html"])

	id, ok := ids.Get("/admin/new.html")
	assert.True(t, ok, "issued identifier should be cached")
	assert.Equal(t, result.Identifier, id)
}

func TestPublish_UsesCachedIdentifier(t *testing.T) {
	server := newFakeServer()
	coord, ids := newCoordinator(t, server)
	require.NoError(t, ids.Put(context.Background(), "/admin/home.html", 42))
	server.content["/admin/home.html"] = "old"
	server.ids["/admin/home.html"] = 42

	_, err := coord.Publish(context.Background(), "/admin/home.html", "new")
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, server.uploads, "cached identifier should be used directly")
	assert.Equal(t, 1, server.metaCalls, "only the verification read hits metadata")
}

func TestPublish_StaleIdentifierRetriesOnce(t *testing.T) {
	server := newFakeServer()
	coord, ids := newCoordinator(t, server)

	// Server-side the record was recreated under id 77; our cache still
	// holds the dead 42.
	require.NoError(t, ids.Put(context.Background(), "/admin/home.html", 42))
	server.staleIDs[42] = true
	server.content["/admin/home.html"] = "old"
	server.ids["/admin/home.html"] = 77

	result, err := coord.Publish(context.Background(), "/admin/home.html", "new")
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Equal(t, []int64{42, 77}, server.uploads, "stale upload then one retry with the rediscovered id")
	assert.Equal(t, int64(77), result.Identifier)

	id, _ := ids.Get("/admin/home.html")
	assert.Equal(t, int64(77), id, "cache should hold the live identifier")
}

func TestPublish_StaleTwiceFails(t *testing.T) {
	server := newFakeServer()
	coord, ids := newCoordinator(t, server)

	require.NoError(t, ids.Put(context.Background(), "/admin/home.html", 42))
	server.staleIDs[42] = true
	server.staleIDs[77] = true
	server.content["/admin/home.html"] = "old"
	server.ids["/admin/home.html"] = 77

	_, err := coord.Publish(context.Background(), "/admin/home.html", "new")
	require.Error(t, err, "a second stale rejection must not loop")
	assert.ErrorIs(t, err, cpm.ErrStaleIdentifier)
	assert.Equal(t, []int64{42, 77}, server.uploads)
}

func TestPublish_UploadFailureSurfaces(t *testing.T) {
	server := newFakeServer()
	server.failUpload = errors.Errorf("boom: %w", cpm.ErrRemoteUnavailable)
	coord, _ := newCoordinator(t, server)

	_, err := coord.Publish(context.Background(), "/admin/home.html", "new")
	require.Error(t, err)
	assert.ErrorIs(t, err, cpm.ErrRemoteUnavailable)
}

func TestPublish_VerificationMismatchIsNotAnError(t *testing.T) {
	server := newFakeServer()
	coord, _ := newCoordinator(t, server)

	result, err := coord.Publish(context.Background(), "/admin/home.html", "hello")
	require.NoError(t, err)
	require.True(t, result.Verified)

	// Re-publish through a server that stores altered bytes.
	mangled := &mangleServer{fakeServer: server}
	resolver := resolve.New(mangled, newTestStore(t))
	coord2 := New(mangled, resolver, newTestStore(t))

	result, err = coord2.Publish(context.Background(), "/admin/home.html", "hello")
	require.NoError(t, err, "mismatch is a warning, not a failure")
	assert.False(t, result.Verified)
}

// mangleServer stores altered content so verification reads back different
// bytes.
type mangleServer struct {
	*fakeServer
}

func (m *mangleServer) PublishPageContent(ctx context.Context, req cpm.PublishRequest) (*cpm.PublishResult, error) {
	req.Content += "\n<!-- server injected -->"
	return m.fakeServer.PublishPageContent(ctx, req)
}
