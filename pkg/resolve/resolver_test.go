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

package resolve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/cpm"
	"github.com/cpmtools/cpmsync/pkg/state"
)

// 🔧 fakeContentAPI serves canned page content.
type fakeContentAPI struct {
	pages    map[string]*cpm.PageContent
	versions map[int64]string
	calls    int
}

func (f *fakeContentAPI) GetPageContent(ctx context.Context, path string, loadFolderInfo bool) (*cpm.PageContent, error) {
	f.calls++
	page, ok := f.pages[path]
	if !ok {
		return nil, errors.Errorf("no such page: %s", path)
	}
	return page, nil
}

func (f *fakeContentAPI) GetVersionContent(ctx context.Context, versionID int64) (string, error) {
	text, ok := f.versions[versionID]
	if !ok {
		return "", errors.Errorf("no such version: %d", versionID)
	}
	return text, nil
}

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.Load(context.Background(), filepath.Join(t.TempDir(), state.DefaultLockName), "https://ps.example.edu")
	require.NoError(t, err)
	return store
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func TestIsSentinel(t *testing.T) {
	assert.True(t, IsSentinel("This page is not available"))
	assert.True(t, IsSentinel("is not available"))
	assert.False(t, IsSentinel("<h1>Hello</h1>"))
	assert.False(t, IsSentinel(""))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		page    *cpm.PageContent
		variant Variant
		want    Resolution
	}{
		{
			name: "active_prefers_customization",
			page: &cpm.PageContent{
				ActiveCustomText:      strPtr("<h1>custom</h1>"),
				BuiltInText:           "<h1>stock</h1>",
				ActiveCustomContentID: int64Ptr(42),
			},
			variant: Active,
			want:    Resolution{Content: "<h1>custom</h1>", Identifier: 42},
		},
		{
			name: "active_falls_back_to_stock",
			page: &cpm.PageContent{
				BuiltInText: "<h1>stock</h1>",
			},
			variant: Active,
			want:    Resolution{Content: "<h1>stock</h1>"},
		},
		{
			name: "sentinel_customization_is_ignored",
			page: &cpm.PageContent{
				ActiveCustomText: strPtr("The selected file is not available"),
				BuiltInText:      "<h1>stock</h1>",
			},
			variant: Active,
			want:    Resolution{Content: "<h1>stock</h1>"},
		},
		{
			name: "sentinel_stock_becomes_empty",
			page: &cpm.PageContent{
				BuiltInText: "This page is not available",
			},
			variant: Active,
			want:    Resolution{Content: ""},
		},
		{
			name: "stock_ignores_customization",
			page: &cpm.PageContent{
				ActiveCustomText:      strPtr("<h1>custom</h1>"),
				BuiltInText:           "<h1>stock</h1>",
				ActiveCustomContentID: int64Ptr(42),
			},
			variant: Stock,
			want:    Resolution{Content: "<h1>stock</h1>", Identifier: 42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeContentAPI{pages: map[string]*cpm.PageContent{"/admin/home.html": tt.page}}
			r := New(api, newTestStore(t))

			got, err := r.Resolve(context.Background(), "/admin/home.html", tt.variant)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_WritesIdentifierThrough(t *testing.T) {
	api := &fakeContentAPI{pages: map[string]*cpm.PageContent{
		"/admin/home.html": {
			ActiveCustomText:      strPtr("custom"),
			BuiltInText:           "stock",
			ActiveCustomContentID: int64Ptr(7),
		},
	}}
	ids := newTestStore(t)
	r := New(api, ids)

	_, err := r.Resolve(context.Background(), "/admin/home.html", Active)
	require.NoError(t, err)

	id, ok := ids.Get("/admin/home.html")
	assert.True(t, ok, "identifier should be cached")
	assert.Equal(t, int64(7), id)
}

func TestResolve_Historical(t *testing.T) {
	api := &fakeContentAPI{versions: map[int64]string{99: "<h1>old</h1>"}}
	r := New(api, newTestStore(t))

	got, err := r.Resolve(context.Background(), "/admin/home.html", Historical(99))
	require.NoError(t, err)
	assert.Equal(t, "<h1>old</h1>", got.Content)
	assert.Zero(t, api.calls, "historical resolution should not fetch page metadata")
}

func TestVersions(t *testing.T) {
	api := &fakeContentAPI{pages: map[string]*cpm.PageContent{
		"/admin/home.html": {
			BuiltInText:            "stock",
			VersionAssetContentIDs: []int64{5, 4, 3},
		},
	}}
	r := New(api, newTestStore(t))

	got, err := r.Versions(context.Background(), "/admin/home.html")
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3}, got)
}
