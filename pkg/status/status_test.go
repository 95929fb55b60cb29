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

package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesParents(t *testing.T) {
	ctx := context.Background()
	mgr := New(t.TempDir())

	require.NoError(t, mgr.WriteFile(ctx, "admin/students/list.html", []byte("<h1>hi</h1>")))

	content, err := mgr.ReadFile(ctx, "admin/students/list.html")
	require.NoError(t, err)
	assert.Equal(t, "<h1>hi</h1>", string(content))
}

func TestWriteFileLeavesNoTempBehind(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	mgr := New(base)

	require.NoError(t, mgr.WriteFile(ctx, "a.html", []byte("x")))

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.html", entries[0].Name())
}

func TestFileExists(t *testing.T) {
	ctx := context.Background()
	mgr := New(t.TempDir())

	exists, err := mgr.FileExists(ctx, "missing.html")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, mgr.WriteFile(ctx, "present.html", []byte("x")))
	exists, err = mgr.FileExists(ctx, "present.html")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteFile(t *testing.T) {
	ctx := context.Background()
	mgr := New(t.TempDir())

	require.NoError(t, mgr.WriteFile(ctx, "doomed.html", []byte("x")))
	require.NoError(t, mgr.DeleteFile(ctx, "doomed.html"))

	exists, err := mgr.FileExists(ctx, "doomed.html")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name         string
		local        []byte
		localExists  bool
		remote       []byte
		remoteExists bool
		want         SyncStatus
	}{
		{name: "both_match", local: []byte("a"), localExists: true, remote: []byte("a"), remoteExists: true, want: StatusUnchanged},
		{name: "differ", local: []byte("a"), localExists: true, remote: []byte("b"), remoteExists: true, want: StatusModified},
		{name: "remote_only", remote: []byte("b"), remoteExists: true, want: StatusNew},
		{name: "local_only", local: []byte("a"), localExists: true, want: StatusNew},
		{name: "neither", want: StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.local, tt.localExists, tt.remote, tt.remoteExists))
		})
	}
}

func TestTrackAndList(t *testing.T) {
	ctx := context.Background()
	mgr := New(t.TempDir())

	mgr.Track(ctx, "/b.html", FileInfo{Path: "/b.html", Status: StatusModified})
	mgr.Track(ctx, "/a.html", FileInfo{Path: "/a.html", Status: StatusVerified})

	files := mgr.List(ctx)
	require.Len(t, files, 2)
	assert.Equal(t, "/a.html", files[0].Path, "listing is sorted by path")
	assert.Equal(t, StatusVerified, files[0].Status)

	info, err := mgr.Get(ctx, "/b.html")
	require.NoError(t, err)
	assert.Equal(t, StatusModified, info.Status)

	_, err = mgr.Get(ctx, "/untracked.html")
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	mgr := New(t.TempDir())

	mgr.Track(ctx, "/a.html", FileInfo{Path: "/a.html", Status: StatusVerified})
	mgr.Track(ctx, "/b.html", FileInfo{Path: "/b.html", Status: StatusVerified})
	mgr.Track(ctx, "/c.html", FileInfo{Path: "/c.html", Status: StatusFailed})

	counts := mgr.Summary(ctx)
	assert.Equal(t, 2, counts[StatusVerified])
	assert.Equal(t, 1, counts[StatusFailed])
}

func TestSyncStatusString(t *testing.T) {
	assert.Equal(t, "new", StatusNew.String())
	assert.Equal(t, "verified", StatusVerified.String())
	assert.Equal(t, "unknown", SyncStatus(99).String())
}

func TestBaseDirIsCleaned(t *testing.T) {
	dir := t.TempDir()
	mgr := New(dir + string(filepath.Separator))
	assert.Equal(t, dir, mgr.BaseDir())
}
