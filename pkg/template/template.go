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

// Package template renders starter page content for new files.
package template

import (
	"sort"
	"strings"
	"time"

	"github.com/aymerick/raymond"
	"gitlab.com/tozd/go/errors"
)

// 📝 Vars feeds the starter templates.
type Vars struct {
	Title  string
	Author string
	Date   string
}

const htmlPage = `<!-- {{title}} -->
<!-- Created {{date}}{{#if author}} by {{author}}{{/if}} -->
<h1>{{title}}</h1>
<p>Replace this with your page content.</p>
`

const jsPage = `/*
 * {{title}}
 * Created {{date}}{{#if author}} by {{author}}{{/if}}
 */

(function () {
	'use strict';

})();
`

const cssPage = `/*
 * {{title}}
 * Created {{date}}{{#if author}} by {{author}}{{/if}}
 */
`

const textPage = `{{title}}
Created {{date}}{{#if author}} by {{author}}{{/if}}
`

var byExtension = map[string]string{
	".html": htmlPage,
	".htm":  htmlPage,
	".js":   jsPage,
	".css":  cssPage,
	".txt":  textPage,
}

// Names lists the selectable template names.
func Names() []string {
	names := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		names = append(names, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(names)
	return names
}

// ✨ Render produces starter content for the named template (an extension
// like "html", with or without the dot).
func Render(name string, vars Vars) (string, error) {
	ext := strings.ToLower(name)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	source, ok := byExtension[ext]
	if !ok {
		return "", errors.Errorf("no template for %q (know %s)", name, strings.Join(Names(), ", "))
	}

	if vars.Date == "" {
		vars.Date = time.Now().Format("2006-01-02")
	}

	out, err := raymond.Render(source, map[string]string{
		"title":  vars.Title,
		"author": vars.Author,
		"date":   vars.Date,
	})
	if err != nil {
		return "", errors.Errorf("rendering %s template: %w", name, err)
	}
	return out, nil
}

// ForPath picks the template matching a file path's extension, falling back
// to the text template.
func ForPath(path string, vars Vars) (string, error) {
	dot := strings.LastIndex(path, ".")
	if dot < 0 {
		return Render("txt", vars)
	}
	ext := strings.ToLower(path[dot:])
	if _, ok := byExtension[ext]; !ok {
		return Render("txt", vars)
	}
	return Render(ext, vars)
}
