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
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// PortEnv overrides the configured port
const PortEnv = "COPYEDIT_PORT"

// ConfigFiles are looked up in the project root, first match wins
var ConfigFiles = []string{".copyedit.yaml", ".copyedit.yml", ".copyedit.json", ".copyedit.hcl"}

// Overrides are explicit values, typically from command line flags. Nil and
// empty fields are not applied.
type Overrides struct {
	Port            *int
	Model           *string
	SourcePatterns  []string
	ExcludePatterns []string
}

// 🎯 Resolve builds the effective configuration for a project root.
//
// Later sources win: defaults, the package.json "copyedit" key, the config
// file (path, or the first of ConfigFiles found in root), the COPYEDIT_PORT
// environment variable, then overrides.
func Resolve(ctx context.Context, root, path string, overrides Overrides) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	cfg := Defaults()

	if _, err := cfg.LoadPackageJSON(ctx, root); err != nil {
		return nil, err
	}

	if path == "" {
		path = discover(root)
	}
	if path != "" {
		if err := cfg.LoadFile(ctx, path); err != nil {
			return nil, err
		}
	}

	if raw, ok := os.LookupEnv(PortEnv); ok {
		if port, err := strconv.Atoi(raw); err == nil {
			cfg.Port = port
		} else {
			logger.Warn().Str("value", raw).Msg("ignoring non numeric " + PortEnv)
		}
	}

	if overrides.Port != nil {
		cfg.Port = *overrides.Port
	}
	if overrides.Model != nil {
		cfg.Model = *overrides.Model
	}
	if len(overrides.SourcePatterns) > 0 {
		cfg.SourcePatterns = overrides.SourcePatterns
	}
	if len(overrides.ExcludePatterns) > 0 {
		cfg.ExcludePatterns = overrides.ExcludePatterns
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	logger.Debug().
		Str("location", cfg.Location()).
		Int("port", cfg.Port).
		Strs("source_patterns", cfg.SourcePatterns).
		Msg("resolved configuration")

	return cfg, nil
}

func discover(root string) string {
	for _, name := range ConfigFiles {
		candidate := filepath.Join(root, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
