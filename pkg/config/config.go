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

package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// Auth method values. Hybrid uses the admin session for CPM and PowerQuery
// endpoints and OAuth for everything else, matching how the server gates them.
const (
	AuthSession = "session"
	AuthOAuth   = "oauth"
	AuthHybrid  = "hybrid"
)

// 🖥️ ServerArgs describes the CPM server and its credentials
type ServerArgs struct {
	URL          string `json:"url" yaml:"url" hcl:"url"`
	AuthMethod   string `json:"auth_method,omitempty" yaml:"auth_method,omitempty" hcl:"auth_method,optional"`
	Username     string `json:"username,omitempty" yaml:"username,omitempty" hcl:"username,optional"`
	Password     string `json:"password,omitempty" yaml:"password,omitempty" hcl:"password,optional"`
	ClientID     string `json:"client_id,omitempty" yaml:"client_id,omitempty" hcl:"client_id,optional"`
	ClientSecret string `json:"client_secret,omitempty" yaml:"client_secret,omitempty" hcl:"client_secret,optional"`

	// InsecureSkipVerify disables TLS verification. District servers
	// routinely run self-signed certificates.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty" hcl:"insecure_skip_verify,optional"`
}

// 🔄 SyncArgs tunes bulk download behavior
type SyncArgs struct {
	// IgnorePatterns are doublestar globs matched against remote paths
	IgnorePatterns []string `json:"ignore_patterns,omitempty" yaml:"ignore_patterns,omitempty" hcl:"ignore_patterns,optional"`
	MaxDepth       int      `json:"max_depth,omitempty" yaml:"max_depth,omitempty" hcl:"max_depth,optional"`
}

// 📦 PackageArgs tunes plugin packaging
type PackageArgs struct {
	// Dirs overrides the conventional plugin subdirectory set
	Dirs            []string `json:"dirs,omitempty" yaml:"dirs,omitempty" hcl:"dirs,optional"`
	Output          string   `json:"output,omitempty" yaml:"output,omitempty" hcl:"output,optional"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty" yaml:"exclude_patterns,omitempty" hcl:"exclude_patterns,optional"`
}

// 📬 MessageOverrides extends the server returnMessage vocabulary. The
// vendor never documented these strings, so deployments can adjust them
// without a rebuild.
type MessageOverrides struct {
	PublishSuccess []string `json:"publish_success,omitempty" yaml:"publish_success,omitempty" hcl:"publish_success,optional"`
	CreateSuccess  []string `json:"create_success,omitempty" yaml:"create_success,omitempty" hcl:"create_success,optional"`
	StaleID        []string `json:"stale_id,omitempty" yaml:"stale_id,omitempty" hcl:"stale_id,optional"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Server      ServerArgs        `json:"server" yaml:"server" hcl:"server,block"`
	Root        string            `json:"root,omitempty" yaml:"root,omitempty" hcl:"root,optional"`
	WebRootName string            `json:"web_root_name,omitempty" yaml:"web_root_name,omitempty" hcl:"web_root_name,optional"`
	Sync        *SyncArgs         `json:"sync,omitempty" yaml:"sync,omitempty" hcl:"sync,block"`
	Package     *PackageArgs      `json:"package,omitempty" yaml:"package,omitempty" hcl:"package,block"`
	Messages    *MessageOverrides `json:"messages,omitempty" yaml:"messages,omitempty" hcl:"messages,block"`
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if cfg.Server.URL == "" {
		return errors.Errorf("server.url is required")
	}
	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")

	if cfg.Server.AuthMethod == "" {
		cfg.Server.AuthMethod = AuthHybrid
	}
	switch cfg.Server.AuthMethod {
	case AuthSession, AuthOAuth, AuthHybrid:
	default:
		return errors.Errorf("server.auth_method must be one of session, oauth, hybrid (got %q)", cfg.Server.AuthMethod)
	}

	if cfg.WebRootName == "" {
		cfg.WebRootName = "web_root"
	}

	if cfg.Sync == nil {
		cfg.Sync = &SyncArgs{}
	}
	if cfg.Sync.MaxDepth <= 0 {
		cfg.Sync.MaxDepth = 10
	}

	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s (%s auth) -> %s", cfg.Server.URL, cfg.Server.AuthMethod, cfg.Root)
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

func init() {
	Register(&HCLParser{})
}

func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var cfg Config
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
