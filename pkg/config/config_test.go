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
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "yaml_full",
			file: ".copyedit.yaml",
			config: `
port: 5000
model: house-model
style_guide: ./guide.md
source_patterns:
  - "site/**/*.html"
exclude_patterns:
  - vendor
accent_color: "#000"
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5000, cfg.Port, "port should match")
				assert.Equal(t, "house-model", cfg.Model, "model should match")
				assert.Equal(t, "./guide.md", cfg.StyleGuide, "style guide should match")
				assert.Equal(t, "./docs/copy-bible.md", cfg.CopyBible, "copy bible should keep default")
				assert.Equal(t, []string{"site/**/*.html"}, cfg.SourcePatterns, "patterns should be replaced")
				assert.Equal(t, []string{"vendor"}, cfg.ExcludePatterns, "excludes should be replaced")
				assert.Equal(t, "#000", cfg.AccentColor, "accent color should match")
			},
		},
		{
			name:   "yaml_empty_keeps_defaults",
			file:   ".copyedit.yml",
			config: "",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Defaults().Port, cfg.Port)
				assert.Equal(t, Defaults().SourcePatterns, cfg.SourcePatterns)
			},
		},
		{
			name:        "yaml_unknown_field",
			file:        ".copyedit.yaml",
			config:      "api_key: secret\n",
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name:   "json",
			file:   ".copyedit.json",
			config: `{"port": 4900, "sourcePatterns": ["src/**/*.tsx"], "shortcut": "alt+e"}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 4900, cfg.Port)
				assert.Equal(t, []string{"src/**/*.tsx"}, cfg.SourcePatterns)
				assert.Equal(t, "alt+e", cfg.Shortcut)
				assert.Equal(t, Defaults().ExcludePatterns, cfg.ExcludePatterns)
			},
		},
		{
			name:        "json_unknown_field",
			file:        ".copyedit.json",
			config:      `{"destination": "/tmp"}`,
			wantErr:     true,
			errContains: "parsing JSON",
		},
		{
			name: "hcl",
			file: ".copyedit.hcl",
			config: `
port            = defaults.port + 1
copy_bible      = "./bible.md"
source_patterns = ["app/**/*.tsx", "lib/*.ts"]
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 4801, cfg.Port)
				assert.Equal(t, "./bible.md", cfg.CopyBible)
				assert.Equal(t, "./docs/style-guide.md", cfg.StyleGuide)
				assert.Equal(t, []string{"app/**/*.tsx", "lib/*.ts"}, cfg.SourcePatterns)
			},
		},
		{
			name:        "hcl_unknown_attribute",
			file:        ".copyedit.hcl",
			config:      `destination = "/tmp"`,
			wantErr:     true,
			errContains: "decoding HCL",
		},
		{
			name:        "invalid_port",
			file:        ".copyedit.yaml",
			config:      "port: 70000\n",
			wantErr:     true,
			errContains: "invalid configuration",
		},
		{
			name:        "empty_patterns",
			file:        ".copyedit.yaml",
			config:      "source_patterns: []\n",
			wantErr:     true,
			errContains: "invalid configuration",
		},
		{
			name:        "unsupported_extension",
			file:        ".copyedit.toml",
			config:      "port = 1",
			wantErr:     true,
			errContains: "no parser found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			path := writeFile(t, t.TempDir(), tt.file, tt.config)

			cfg, err := Load(ctx, path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, path, cfg.Location())
			tt.check(t, cfg)
		})
	}
}

func TestHCLEnvFunction(t *testing.T) {
	t.Setenv("COPYEDIT_TEST_MODEL", "from-env")
	path := writeFile(t, t.TempDir(), ".copyedit.hcl", `model = env("COPYEDIT_TEST_MODEL")`)

	cfg, err := Load(testContext(t), path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Model)
}

func TestValidateSentinel(t *testing.T) {
	cfg := Defaults()
	cfg.Port = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestResolvePrecedence(t *testing.T) {
	ctx := testContext(t)
	root := t.TempDir()

	writeFile(t, root, "package.json", `{
  "name": "site",
  "copyedit": {"port": 4100, "model": "pkg-model", "styleGuide": "./pkg-guide.md"}
}`)
	writeFile(t, root, ".copyedit.yaml", "port: 4200\nmodel: file-model\n")

	t.Run("package_json_then_file", func(t *testing.T) {
		cfg, err := Resolve(ctx, root, "", Overrides{})
		require.NoError(t, err)
		assert.Equal(t, 4200, cfg.Port)
		assert.Equal(t, "file-model", cfg.Model)
		assert.Equal(t, "./pkg-guide.md", cfg.StyleGuide)
		assert.Equal(t, filepath.Join(root, ".copyedit.yaml"), cfg.Location())
	})

	t.Run("env_beats_file", func(t *testing.T) {
		t.Setenv(PortEnv, "4300")
		cfg, err := Resolve(ctx, root, "", Overrides{})
		require.NoError(t, err)
		assert.Equal(t, 4300, cfg.Port)
	})

	t.Run("bad_env_is_ignored", func(t *testing.T) {
		t.Setenv(PortEnv, "not-a-port")
		cfg, err := Resolve(ctx, root, "", Overrides{})
		require.NoError(t, err)
		assert.Equal(t, 4200, cfg.Port)
	})

	t.Run("overrides_beat_env", func(t *testing.T) {
		t.Setenv(PortEnv, "4300")
		port := 4400
		cfg, err := Resolve(ctx, root, "", Overrides{Port: &port, SourcePatterns: []string{"**/*.html"}})
		require.NoError(t, err)
		assert.Equal(t, 4400, cfg.Port)
		assert.Equal(t, []string{"**/*.html"}, cfg.SourcePatterns)
	})

	t.Run("explicit_path", func(t *testing.T) {
		other := writeFile(t, t.TempDir(), "custom.json", `{"port": 4500}`)
		cfg, err := Resolve(ctx, root, other, Overrides{})
		require.NoError(t, err)
		assert.Equal(t, 4500, cfg.Port)
		assert.Equal(t, "pkg-model", cfg.Model)
	})
}

func TestResolveWithoutFiles(t *testing.T) {
	cfg, err := Resolve(testContext(t), t.TempDir(), "", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadPackageJSONIgnoresNoise(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid_json", content: "{not json"},
		{name: "missing_key", content: `{"name": "site"}`},
		{name: "non_object_key", content: `{"copyedit": "yes"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, "package.json", tt.content)

			cfg := Defaults()
			ok, err := cfg.LoadPackageJSON(testContext(t), root)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, Defaults(), cfg)
		})
	}
}

func TestUpdate(t *testing.T) {
	cfg := Defaults()

	changed := cfg.Update(map[string]any{
		"model":      "new-model",
		"styleGuide": cfg.StyleGuide,
		"copyBible":  42,
		"port":       "9999",
	})

	assert.Equal(t, []string{"model"}, changed)
	assert.Equal(t, "new-model", cfg.Model)
	assert.Equal(t, 4800, cfg.Port)
	assert.Equal(t, ClientView{
		Model:      "new-model",
		StyleGuide: "./docs/style-guide.md",
		CopyBible:  "./docs/copy-bible.md",
		Shortcut:   "ctrl+shift+h",
	}, cfg.Client())
}

func TestUpdateKeepsDocumentsInsideProject(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		apply bool
	}{
		{name: "relative", path: "docs/voice.md", apply: true},
		{name: "dot_relative", path: "./guides/voice.md", apply: true},
		{name: "absolute", path: "/etc/passwd", apply: false},
		{name: "parent", path: "../secrets.md", apply: false},
		{name: "cleaned_parent", path: "docs/../../secrets.md", apply: false},
		{name: "empty", path: "", apply: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()

			changed := cfg.Update(map[string]any{"styleGuide": tt.path, "copyBible": tt.path})

			if tt.apply {
				assert.Equal(t, []string{"styleGuide", "copyBible"}, changed)
				assert.Equal(t, tt.path, cfg.StyleGuide)
				assert.Equal(t, tt.path, cfg.CopyBible)
				return
			}
			assert.Empty(t, changed)
			assert.Equal(t, Defaults().StyleGuide, cfg.StyleGuide)
			assert.Equal(t, Defaults().CopyBible, cfg.CopyBible)
		})
	}
}
