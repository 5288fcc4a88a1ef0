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

// Package prefs keeps a tally of which copy styles a writer picks.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/copyedit/pkg/source"
	"gitlab.com/tozd/go/errors"
)

const (
	// Dir is the project relative directory holding copyedit state
	Dir = ".copyedit"

	// File is the preferences file inside Dir
	File = "preferences.json"
)

// ErrEmptyLabel is returned when a pick has no label
var ErrEmptyLabel = errors.Base("missing required field: label")

// 📊 Preferences counts picks per style label
type Preferences struct {
	Picks      map[string]int `json:"picks"`
	TotalPicks int            `json:"totalPicks"`
}

// 🏆 Top returns the n most picked labels formatted as "label (pct%)"
func (p Preferences) Top(n int) []string {
	if p.TotalPicks == 0 || n <= 0 {
		return nil
	}

	labels := make([]string, 0, len(p.Picks))
	for label := range p.Picks {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if p.Picks[labels[i]] != p.Picks[labels[j]] {
			return p.Picks[labels[i]] > p.Picks[labels[j]]
		}
		return labels[i] < labels[j]
	})
	if len(labels) > n {
		labels = labels[:n]
	}

	out := make([]string, len(labels))
	for i, label := range labels {
		pct := math.Round(float64(p.Picks[label]) / float64(p.TotalPicks) * 100)
		out[i] = fmt.Sprintf("%s (%d%%)", label, int(pct))
	}
	return out
}

// 💾 Store persists preferences below a project root
type Store struct {
	mu    sync.Mutex
	files *source.Store
	path  string
}

// 🏭 NewStore creates a store writing to root/.copyedit/preferences.json
func NewStore(files *source.Store) *Store {
	return &Store{
		files: files,
		path:  filepath.Join(files.Root(), Dir, File),
	}
}

// Path returns the preferences file location
func (s *Store) Path() string {
	return s.path
}

// 📖 Load reads the stored preferences. A missing or unreadable file yields
// empty preferences.
func (s *Store) Load(ctx context.Context) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) Preferences {
	prefs := Preferences{Picks: map[string]int{}}

	raw, err := s.files.ReadFile(ctx, s.path)
	if err != nil {
		return prefs
	}
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("path", s.path).Msg("ignoring unreadable preferences")
		return Preferences{Picks: map[string]int{}}
	}
	if prefs.Picks == nil {
		prefs.Picks = map[string]int{}
	}
	return prefs
}

// ✍️ RecordPick counts one more pick of label and saves the result
func (s *Store) RecordPick(ctx context.Context, label string) (Preferences, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Preferences{}, ErrEmptyLabel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.load(ctx)
	prefs.Picks[label]++
	prefs.TotalPicks++

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return Preferences{}, errors.Errorf("creating preferences directory: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return Preferences{}, errors.Errorf("encoding preferences: %w", err)
	}

	if err := s.files.WriteFileAtomic(ctx, s.path, string(data)); err != nil {
		return Preferences{}, errors.Errorf("saving preferences: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("label", label).Int("total", prefs.TotalPicks).Msg("recorded style pick")
	return prefs, nil
}
