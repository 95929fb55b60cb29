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
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"gitlab.com/tozd/go/errors"
)

// 📜 Manifest is the plugin.xml descriptor at a plugin root.
type Manifest struct {
	Name    string
	Version string

	path string
	doc  *etree.Document
}

// ReadManifest parses plugin.xml.
func ReadManifest(path string) (*Manifest, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, errors.Errorf("reading %s: %w", path, err)
	}

	root := doc.SelectElement("plugin")
	if root == nil {
		return nil, errors.Errorf("%s has no <plugin> root element", path)
	}

	return &Manifest{
		Name:    root.SelectAttrValue("name", ""),
		Version: root.SelectAttrValue("version", ""),
		path:    path,
		doc:     doc,
	}, nil
}

// Bump increments the named part of the semantic version: "major", "minor"
// or "patch". Missing parts count as zero.
func (m *Manifest) Bump(part string) error {
	fields := strings.Split(m.Version, ".")
	nums := make([]int, 3)
	for i := 0; i < 3 && i < len(fields); i++ {
		n, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return errors.Errorf("version %q is not semantic: %w", m.Version, err)
		}
		nums[i] = n
	}

	switch part {
	case "major":
		nums[0]++
		nums[1] = 0
		nums[2] = 0
	case "minor":
		nums[1]++
		nums[2] = 0
	case "patch":
		nums[2]++
	default:
		return errors.Errorf("unknown version part %q (want major, minor or patch)", part)
	}

	m.Version = fmt.Sprintf("%d.%d.%d", nums[0], nums[1], nums[2])
	return nil
}

// Save writes the (possibly bumped) version back to plugin.xml, preserving
// the rest of the document.
func (m *Manifest) Save() error {
	root := m.doc.SelectElement("plugin")
	root.CreateAttr("version", m.Version)
	if err := m.doc.WriteToFile(m.path); err != nil {
		return errors.Errorf("writing %s: %w", m.path, err)
	}
	return nil
}
