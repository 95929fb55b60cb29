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

// Package resolve decides which textual variant of a remote page is
// authoritative: the active customization, the vendor-shipped stock text,
// or a specific historical version.
package resolve

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/cpm"
	"github.com/cpmtools/cpmsync/pkg/state"
)

// The server answers with a human-readable placeholder instead of content
// when a text field has nothing behind it ("Active custom file is not
// available" and friends). Placeholder text must resolve to empty, never be
// written to disk or displayed as file content.
const sentinelPhrase = "is not available"

// IsSentinel reports whether s is an availability placeholder rather than
// real content.
func IsSentinel(s string) bool {
	return strings.Contains(s, sentinelPhrase)
}

// FilterSentinel maps placeholder text to the empty string.
func FilterSentinel(s string) string {
	if IsSentinel(s) {
		return ""
	}
	return s
}

// 🔖 Variant selects which content variant to resolve
type Variant struct {
	kind      string
	versionID int64
}

var (
	// Active is the effective content: the customization when one exists,
	// otherwise the stock text.
	Active = Variant{kind: "active"}
	// Stock is the vendor-shipped built-in text.
	Stock = Variant{kind: "stock"}
)

// Historical selects a specific version by its opaque asset-content id.
func Historical(versionID int64) Variant {
	return Variant{kind: "historical", versionID: versionID}
}

func (v Variant) String() string {
	return v.kind
}

// ContentAPI is the slice of the CPM client the resolver needs.
type ContentAPI interface {
	GetPageContent(ctx context.Context, path string, loadFolderInfo bool) (*cpm.PageContent, error)
	GetVersionContent(ctx context.Context, versionID int64) (string, error)
}

// 📤 Resolution is a resolved variant plus the identifier of the backing
// customization record (0 when none exists).
type Resolution struct {
	Content    string
	Identifier int64
}

// 🔍 Resolver fetches and selects page content. Identifier discoveries are
// written through to the shared cache so later publishes skip the metadata
// round trip.
type Resolver struct {
	api ContentAPI
	ids *state.Store
}

// New creates a resolver over the given API slice and identifier cache.
func New(api ContentAPI, ids *state.Store) *Resolver {
	return &Resolver{api: api, ids: ids}
}

// Resolve fetches the requested variant for a remote path.
func (r *Resolver) Resolve(ctx context.Context, remotePath string, variant Variant) (Resolution, error) {
	logger := zerolog.Ctx(ctx)

	if variant.kind == "historical" {
		text, err := r.api.GetVersionContent(ctx, variant.versionID)
		if err != nil {
			return Resolution{}, errors.Errorf("resolving version %d of %s: %w", variant.versionID, remotePath, err)
		}
		return Resolution{Content: FilterSentinel(text)}, nil
	}

	// Metadata is always requested with folder info so the identifier comes
	// back with the content and can be cached in the same round trip.
	page, err := r.api.GetPageContent(ctx, remotePath, true)
	if err != nil {
		return Resolution{}, errors.Errorf("resolving %s: %w", remotePath, err)
	}

	res := Resolution{}
	if page.ActiveCustomContentID != nil && *page.ActiveCustomContentID > 0 {
		res.Identifier = *page.ActiveCustomContentID
		if err := r.ids.Put(ctx, remotePath, res.Identifier); err != nil {
			// Cache persistence is an accelerator, not a correctness
			// requirement. Keep going.
			logger.Warn().Err(err).Str("path", remotePath).Msg("could not persist content identifier")
		}
	}

	switch variant.kind {
	case "active":
		if page.ActiveCustomText != nil && !IsSentinel(*page.ActiveCustomText) {
			res.Content = *page.ActiveCustomText
		} else {
			res.Content = FilterSentinel(page.BuiltInText)
		}
	case "stock":
		res.Content = FilterSentinel(page.BuiltInText)
	default:
		return Resolution{}, errors.Errorf("unknown variant %q", variant.kind)
	}

	logger.Debug().
		Str("path", remotePath).
		Str("variant", variant.kind).
		Int64("content_id", res.Identifier).
		Int("bytes", len(res.Content)).
		Msg("resolved content")
	return res, nil
}

// Versions lists the opaque historical version ids known for a remote path,
// newest first as the server reports them.
func (r *Resolver) Versions(ctx context.Context, remotePath string) ([]int64, error) {
	page, err := r.api.GetPageContent(ctx, remotePath, true)
	if err != nil {
		return nil, errors.Errorf("listing versions of %s: %w", remotePath, err)
	}
	return page.VersionAssetContentIDs, nil
}
