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

package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmtools/cpmsync/pkg/cpm"
)

func TestBuildIndex(t *testing.T) {
	index := BuildIndex([]cpm.PluginMappingRow{
		{CPMPath: "scripts/exporter", Filename: "app.js", PluginName: "Grade Exporter", PluginID: "12", Enabled: true},
		{CPMPath: "admin", Filename: "extra.html", PluginName: "Admin Pack", PluginID: "31", Enabled: false},
	})

	info, ok := index.Lookup("/scripts/exporter/app.js")
	require.True(t, ok)
	assert.Equal(t, "Grade Exporter", info.Name)
	assert.Equal(t, "12", info.ID)
	assert.True(t, info.Enabled)

	// The folder chain above a mapped file is attributed too.
	info, ok = index.Lookup("/scripts/exporter")
	require.True(t, ok, "parent folder should be attributed")
	assert.Equal(t, "Grade Exporter", info.Name)

	info, ok = index.Lookup("/admin/extra.html")
	require.True(t, ok)
	assert.False(t, info.Enabled)

	_, ok = index.Lookup("/unrelated/file.html")
	assert.False(t, ok)
}

func TestBuildIndex_FirstPluginKeepsFolder(t *testing.T) {
	index := BuildIndex([]cpm.PluginMappingRow{
		{CPMPath: "shared", Filename: "a.js", PluginName: "First", PluginID: "1", Enabled: true},
		{CPMPath: "shared", Filename: "b.js", PluginName: "Second", PluginID: "2", Enabled: true},
	})

	info, ok := index.Lookup("/shared")
	require.True(t, ok)
	assert.Equal(t, "First", info.Name, "folder attribution goes to the first mapping seen")

	info, _ = index.Lookup("/shared/b.js")
	assert.Equal(t, "Second", info.Name, "file attribution stays exact")
}

func TestLookup_CaseInsensitive(t *testing.T) {
	index := BuildIndex([]cpm.PluginMappingRow{
		{CPMPath: "Scripts", Filename: "App.js", PluginName: "Exporter", PluginID: "5", Enabled: true},
	})

	_, ok := index.Lookup("/scripts/app.js")
	assert.True(t, ok)
}

func TestHasUnder(t *testing.T) {
	index := BuildIndex([]cpm.PluginMappingRow{
		{CPMPath: "scripts/exporter", Filename: "app.js", PluginName: "Exporter", PluginID: "5", Enabled: true},
	})

	assert.True(t, index.HasUnder("/scripts"))
	assert.True(t, index.HasUnder("/scripts/exporter"))
	assert.False(t, index.HasUnder("/admin"))
}

func TestNilIndexIsSafe(t *testing.T) {
	var index *Index

	_, ok := index.Lookup("/anything")
	assert.False(t, ok)
	assert.False(t, index.HasUnder("/anything"))
	assert.Zero(t, index.Len())
}
