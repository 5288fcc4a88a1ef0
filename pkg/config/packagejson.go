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
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// PackageJSONKey is the package.json key holding copyedit settings
const PackageJSONKey = "copyedit"

// 📦 LoadPackageJSON decodes the "copyedit" object of root/package.json on
// top of cfg. A missing file, invalid JSON or a missing key is not an error:
// it reports false and leaves cfg untouched.
func (cfg *Config) LoadPackageJSON(ctx context.Context, root string) (bool, error) {
	logger := zerolog.Ctx(ctx)

	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return false, nil
	}

	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(data, &pkg); err != nil {
		logger.Debug().Err(err).Msg("ignoring unreadable package.json")
		return false, nil
	}

	raw, ok := pkg[PackageJSONKey]
	if !ok || len(raw) == 0 || raw[0] != '{' {
		return false, nil
	}

	next := cfg.Clone()
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(next); err != nil {
		return false, errors.Errorf("parsing package.json %q key: %w", PackageJSONKey, err)
	}
	next.location = cfg.location
	*cfg = *next

	logger.Debug().Msg("applied package.json settings")
	return true, nil
}
