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

package cpm

import (
	"gitlab.com/tozd/go/errors"
)

// Sentinel errors for the failure modes callers are expected to branch on.
// Wrap with errors.Errorf("...: %w", Err...) and match with errors.Is.
var (
	// ErrRemoteUnavailable covers connectivity failures, non-2xx responses
	// and authentication failures against the CPM server.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrApplication is an HTTP 200 response whose returnMessage reports a
	// failure. The server uses 200 for application-level errors.
	ErrApplication = errors.New("application error")

	// ErrStaleIdentifier means the server rejected a cached customContentId.
	// The publish coordinator evicts the cache entry and retries once.
	ErrStaleIdentifier = errors.New("stale content identifier")

	// ErrNotConfigured is returned when the server URL or credentials
	// required for the requested auth method are missing.
	ErrNotConfigured = errors.New("not configured")
)
