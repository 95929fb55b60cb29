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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/config"
	"github.com/cpmtools/cpmsync/pkg/cpm"
	"github.com/cpmtools/cpmsync/pkg/resolve"
	"github.com/cpmtools/cpmsync/pkg/state"
	"github.com/cpmtools/cpmsync/pkg/status"
	"github.com/cpmtools/cpmsync/pkg/tree"
)

// fakeRemote serves a fixed folder tree and per-path page content, standing
// in for the live server behind both the tree builder and the resolver.
type fakeRemote struct {
	root    *cpm.TreeFolder
	content map[string]string // remote path -> active custom text
}

func (f *fakeRemote) GetFolderTree(ctx context.Context, path string, maxDepth int) (*cpm.TreeFolder, error) {
	return f.root, nil
}

func (f *fakeRemote) GetPageContent(ctx context.Context, path string, loadFolderInfo bool) (*cpm.PageContent, error) {
	text, ok := f.content[path]
	if !ok {
		return &cpm.PageContent{BuiltInText: "is not available"}, nil
	}
	return &cpm.PageContent{ActiveCustomText: &text}, nil
}

func (f *fakeRemote) GetVersionContent(ctx context.Context, versionID int64) (string, error) {
	return "", nil
}

func sampleRemote() *fakeRemote {
	return &fakeRemote{
		root: &cpm.TreeFolder{
			Text: "root",
			SubFolders: []cpm.TreeFolder{
				{
					Text: "admin",
					Pages: []cpm.TreePage{
						{Text: "home.html", Custom: true},
						{Text: "stock.html", Custom: false},
					},
				},
			},
			Pages: []cpm.TreePage{
				{Text: "index.html", Custom: true},
				{Text: "skipme.html", Custom: true},
			},
		},
		content: map[string]string{
			"/admin/home.html": "<h1>home</h1>",
			"/index.html":      "<h1>index</h1>",
			"/skipme.html":     "<h1>skip</h1>",
		},
	}
}

func newOptions(t *testing.T, remote *fakeRemote, ignore []string) (Options, string) {
	t.Helper()
	dir := t.TempDir()

	store, err := state.Load(context.Background(), filepath.Join(dir, state.DefaultLockName), "https://sis.example.org")
	require.NoError(t, err)

	opts := Options{
		Config: &config.Config{
			Sync: &config.SyncArgs{IgnorePatterns: ignore, MaxDepth: 10},
		},
		Resolver: resolve.New(remote, store),
		Tree:     tree.NewBuilder(remote, nil),
		Status:   status.New(dir),
	}
	return opts, dir
}

func TestOptionsValidate(t *testing.T) {
	remote := sampleRemote()
	opts, _ := newOptions(t, remote, nil)
	require.NoError(t, opts.Validate())

	assert.Error(t, Options{}.Validate())

	missing := opts
	missing.Resolver = nil
	assert.Error(t, missing.Validate())
}

func TestSyncDownloadsCustomFiles(t *testing.T) {
	remote := sampleRemote()
	opts, dir := newOptions(t, remote, nil)

	op := NewSyncOperation(opts)
	require.NoError(t, op.Execute(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "admin", "home.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>home</h1>", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>index</h1>", string(data))

	// Stock pages stay remote-only.
	_, err = os.Stat(filepath.Join(dir, "admin", "stock.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestSyncHonorsIgnorePatterns(t *testing.T) {
	remote := sampleRemote()
	opts, dir := newOptions(t, remote, []string{"skipme.*"})

	op := NewSyncOperation(opts)
	require.NoError(t, op.Execute(context.Background()))

	_, err := os.Stat(filepath.Join(dir, "skipme.html"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(dir, "index.html"))
	assert.NoError(t, err)
}

func TestSyncIsIdempotent(t *testing.T) {
	remote := sampleRemote()
	opts, _ := newOptions(t, remote, nil)

	op := NewSyncOperation(opts)
	require.NoError(t, op.Execute(context.Background()))

	// The second run finds every file already in place.
	second := NewSyncOperation(opts).(*syncOperation)
	require.NoError(t, second.Execute(context.Background()))
	assert.Zero(t, second.written)
	assert.Equal(t, 3, second.skipped)
}

func TestStatusReportsDrift(t *testing.T) {
	remote := sampleRemote()
	opts, dir := newOptions(t, remote, nil)

	// index.html matches the server, home.html differs, skipme.html is absent.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>index</h1>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "admin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "admin", "home.html"), []byte("<h1>edited locally</h1>"), 0o644))

	op := NewStatusOperation(opts)
	require.NoError(t, op.Execute(context.Background()))

	files := opts.Status.List(context.Background())
	byPath := map[string]status.FileInfo{}
	for _, f := range files {
		byPath[f.Path] = f
	}

	assert.Equal(t, status.StatusUnchanged, byPath["/index.html"].Status)
	assert.Equal(t, status.StatusModified, byPath["/admin/home.html"].Status)
	assert.Equal(t, status.StatusNew, byPath["/skipme.html"].Status)
}

func TestRunnerWrapsOperationName(t *testing.T) {
	r := NewRunner(0)
	err := r.Run(context.Background(), failingOp{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "explode")
}

type failingOp struct{}

func (failingOp) Name() string                      { return "explode" }
func (failingOp) Execute(ctx context.Context) error { return errors.New("boom") }
