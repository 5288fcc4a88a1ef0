// Copyright 2025 walteh LLC
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
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/copyedit/pkg/glob"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidConfig is returned when a loaded configuration cannot be used
var ErrInvalidConfig = errors.Base("invalid configuration")

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse decodes data on top of cfg. Keys absent from data leave the
	// current values alone.
	Parse(ctx context.Context, data []byte, cfg *Config) error

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

// 📚 Config represents the complete configuration
type Config struct {
	Port            int      `json:"port" yaml:"port"`
	Model           string   `json:"model" yaml:"model"`
	StyleGuide      string   `json:"styleGuide" yaml:"style_guide"`
	CopyBible       string   `json:"copyBible" yaml:"copy_bible"`
	ReferenceGuide  string   `json:"referenceGuide" yaml:"reference_guide"`
	SourcePatterns  []string `json:"sourcePatterns" yaml:"source_patterns"`
	ExcludePatterns []string `json:"excludePatterns" yaml:"exclude_patterns"`
	Shortcut        string   `json:"shortcut" yaml:"shortcut"`
	AccentColor     string   `json:"accentColor" yaml:"accent_color"`

	location string
}

// 🏗️ Defaults returns the configuration used when nothing else is set
func Defaults() *Config {
	return &Config{
		Port:            4800,
		StyleGuide:      "./docs/style-guide.md",
		CopyBible:       "./docs/copy-bible.md",
		ReferenceGuide:  "./reference/copy-guide.md",
		SourcePatterns:  []string{"components/**/*.tsx", "src/**/*.tsx", "src/**/*.ts", "app/**/*.tsx"},
		ExcludePatterns: []string{"node_modules", ".next", "dist", "build"},
		Shortcut:        "ctrl+shift+h",
		AccentColor:     "#3b82f6",
	}
}

// Location returns the config file the values were loaded from, if any
func (cfg *Config) Location() string {
	return cfg.location
}

// 🎯 Load reads path and decodes it on top of the defaults
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Defaults()
	if err := cfg.LoadFile(ctx, path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadFile decodes the config file at path on top of cfg
func (cfg *Config) LoadFile(ctx context.Context, path string) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return errors.Errorf("no parser found for file: %s", path)
	}

	if err := p.Parse(ctx, data, cfg); err != nil {
		return errors.Errorf("parsing config: %w", err)
	}

	cfg.location = path
	return nil
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.WithDetails(ErrInvalidConfig, "reason", "port out of range", "port", cfg.Port)
	}
	if len(cfg.SourcePatterns) == 0 {
		return errors.WithDetails(ErrInvalidConfig, "reason", "source_patterns is required")
	}
	for _, pattern := range cfg.SourcePatterns {
		if strings.TrimSpace(pattern) == "" {
			return errors.WithDetails(ErrInvalidConfig, "reason", "empty source pattern")
		}
		if _, err := glob.Compile(pattern); err != nil {
			return errors.WithDetails(ErrInvalidConfig, "reason", err.Error())
		}
	}
	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf(":%d [%s] -%s", cfg.Port, strings.Join(cfg.SourcePatterns, " "), strings.Join(cfg.ExcludePatterns, " -"))
}

// ClientView is the part of the config an editing surface may see
type ClientView struct {
	Model      string `json:"model"`
	StyleGuide string `json:"styleGuide"`
	CopyBible  string `json:"copyBible"`
	Shortcut   string `json:"shortcut"`
}

// Client returns the fields safe to hand to a browser
func (cfg *Config) Client() ClientView {
	return ClientView{
		Model:      cfg.Model,
		StyleGuide: cfg.StyleGuide,
		CopyBible:  cfg.CopyBible,
		Shortcut:   cfg.Shortcut,
	}
}

// 🔄 Update applies the runtime updatable string fields of update and
// returns the keys that actually changed. Unknown keys, non string values
// and document paths that are absolute or leave the project are ignored.
func (cfg *Config) Update(update map[string]any) []string {
	fields := map[string]*string{
		"model":      &cfg.Model,
		"styleGuide": &cfg.StyleGuide,
		"copyBible":  &cfg.CopyBible,
	}

	var changed []string
	for _, key := range []string{"model", "styleGuide", "copyBible"} {
		raw, ok := update[key]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok || *fields[key] == value {
			continue
		}
		if key != "model" && !IsProjectPath(value) {
			continue
		}
		*fields[key] = value
		changed = append(changed, key)
	}
	return changed
}

// IsProjectPath reports whether path is a relative path that stays inside
// the directory it is resolved against
func IsProjectPath(path string) bool {
	return path != "" && filepath.IsLocal(filepath.Clean(path))
}

// Clone returns a deep copy of cfg
func (cfg *Config) Clone() *Config {
	c := *cfg
	c.SourcePatterns = append([]string(nil), cfg.SourcePatterns...)
	c.ExcludePatterns = append([]string(nil), cfg.ExcludePatterns...)
	return &c
}
