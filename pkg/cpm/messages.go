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
	"strings"
)

// 📬 MessageSet classifies the returnMessage strings the CPM server embeds
// in otherwise-200 responses. The server's message vocabulary is not
// formally documented, so the sets are configurable rather than hard-coded;
// anything unrecognized is treated as a failure and logged for triage.
type MessageSet struct {
	PublishSuccess []string // publish accepted
	CreateSuccess  []string // asset/customization created
	StaleID        []string // cached customContentId rejected
}

// DefaultMessageSet returns the message vocabulary observed in the wild.
func DefaultMessageSet() *MessageSet {
	return &MessageSet{
		PublishSuccess: []string{
			"The file was published successfully",
		},
		CreateSuccess: []string{
			"Custom file was created successfully",
			"File was created successfully",
			"File created successfully",
		},
		StaleID: []string{
			"A save error occurred",
			"A system error occurred",
			"There was an issue saving",
		},
	}
}

// MessageKind classifies a returnMessage.
type MessageKind int

const (
	MessageUnknown MessageKind = iota
	MessagePublishSuccess
	MessageCreateSuccess
	MessageStaleID
)

// Classify matches a returnMessage against the configured vocabulary.
// Success phrases match exactly; failure phrases match on prefix since the
// server appends detail text to some of them.
func (m *MessageSet) Classify(msg string) MessageKind {
	for _, s := range m.PublishSuccess {
		if msg == s {
			return MessagePublishSuccess
		}
	}
	for _, s := range m.CreateSuccess {
		if msg == s {
			return MessageCreateSuccess
		}
	}
	for _, s := range m.StaleID {
		if strings.HasPrefix(msg, s) {
			return MessageStaleID
		}
	}
	return MessageUnknown
}

// Merge overlays any non-empty lists from other onto m.
func (m *MessageSet) Merge(other *MessageSet) {
	if other == nil {
		return
	}
	if len(other.PublishSuccess) > 0 {
		m.PublishSuccess = other.PublishSuccess
	}
	if len(other.CreateSuccess) > 0 {
		m.CreateSuccess = other.CreateSuccess
	}
	if len(other.StaleID) > 0 {
		m.StaleID = other.StaleID
	}
}
