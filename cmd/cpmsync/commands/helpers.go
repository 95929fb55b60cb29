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

// Package commands wires the CLI surface: each constructor returns one
// cobra command bound to the shared RootOpts bundle.
package commands

import (
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/cmd/cpmsync/opts"
	"github.com/cpmtools/cpmsync/pkg/pathmap"
)

// remoteFor accepts either a server path ("/admin/foo.html") or a workspace
// file path and returns the normalized remote path.
func remoteFor(o *opts.RootOpts, arg string) (string, error) {
	if strings.HasPrefix(arg, "/") && !strings.HasPrefix(arg, o.Root) {
		return pathmap.NormalizeRemote(arg), nil
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", errors.Errorf("resolving %s: %w", arg, err)
	}
	remote, err := pathmap.RemoteFromLocal(abs, o.Root)
	if err != nil {
		return "", errors.Errorf("%s is neither a server path nor inside %s: %w", arg, o.Root, err)
	}
	return remote, nil
}

// localRel converts a remote path to the workspace-relative path used by the
// status manager.
func localRel(remotePath string) string {
	return pathmap.NormalizeRemote(remotePath)[1:]
}
