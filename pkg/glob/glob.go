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

// Package glob turns include/exclude path patterns into the concrete set of
// files a rewrite should scan.
package glob

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrConfiguration is returned when there is nothing usable to scan.
var ErrConfiguration = errors.Base("invalid scan configuration")

// 🧩 Compile turns a pattern into an anchored regular expression.
//
// `**` matches any number of path segments (including zero) and swallows one
// following slash, `*` matches within a single segment. Everything else is
// literal.
func Compile(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); {
		switch {
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i += 2
			if i < len(pattern) && pattern[i] == '/' {
				i++
			}
		case pattern[i] == '*':
			b.WriteString("[^/]*")
			i++
		default:
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
			i++
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, errors.Errorf("compiling pattern %q: %w", pattern, err)
	}
	return re, nil
}

// 🔍 Excluded reports whether any segment of a slash separated relative path
// equals one of the exclude names.
func Excluded(rel string, exclude []string) bool {
	for _, segment := range strings.Split(rel, "/") {
		for _, name := range exclude {
			if segment == name {
				return true
			}
		}
	}
	return false
}

// 🎯 Resolve returns the sorted absolute paths under root matched by any
// include pattern and not living under an excluded directory name.
func Resolve(ctx context.Context, root string, include, exclude []string) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	if len(include) == 0 {
		return nil, errors.WithDetails(ErrConfiguration, "reason", "no include patterns")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving project root: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, errors.WithDetails(ErrConfiguration, "root", absRoot)
	}

	regexes := make([]*regexp.Regexp, 0, len(include))
	bases := make([]string, 0, len(include))
	seenBase := map[string]bool{}
	for _, pattern := range include {
		re, err := Compile(pattern)
		if err != nil {
			return nil, err
		}
		regexes = append(regexes, re)

		base, _ := doublestar.SplitPattern(pattern)
		if !seenBase[base] {
			seenBase[base] = true
			bases = append(bases, base)
		}
	}

	matched := map[string]bool{}
	for _, base := range bases {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("resolving files: %w", err)
		}

		start := filepath.Join(absRoot, filepath.FromSlash(base))
		walkErr := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// unreadable entries contribute nothing
				logger.Debug().Str("path", path).Err(err).Msg("skipping unreadable path")
				if d != nil && d.IsDir() && path != start {
					return fs.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != start && Excluded(d.Name(), exclude) {
					return fs.SkipDir
				}
				return nil
			}

			rel, err := filepath.Rel(absRoot, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if Excluded(rel, exclude) {
				return nil
			}

			for _, re := range regexes {
				if re.MatchString(rel) {
					matched[path] = true
					break
				}
			}
			return nil
		})
		if walkErr != nil {
			logger.Debug().Str("base", base).Err(walkErr).Msg("walk stopped early")
		}
	}

	files := make([]string, 0, len(matched))
	for path := range matched {
		files = append(files, path)
	}
	sort.Strings(files)

	logger.Debug().
		Strs("include", include).
		Strs("exclude", exclude).
		Int("files", len(files)).
		Msg("resolved source files")

	return files, nil
}
