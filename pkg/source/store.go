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

// Package source reads and writes the project files a rewrite touches. The
// filesystem is the system of record: nothing is cached between calls.
package source

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 💾 Store handles file access below a project root
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// 🏭 NewStore creates a store rooted at root
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving root: %w", err)
	}
	return &Store{
		root:  filepath.Clean(abs),
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the absolute project root
func (s *Store) Root() string {
	return s.root
}

// 🔒 getAbsPath returns the absolute path for a root relative or absolute path
func (s *Store) getAbsPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.root, path)
}

// Rel returns the slash separated path of path relative to the root
func (s *Store) Rel(path string) string {
	rel, err := filepath.Rel(s.root, s.getAbsPath(path))
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// 🔐 Lock serializes writers of one file and returns the unlock func
func (s *Store) Lock(path string) func() {
	abs := s.getAbsPath(path)

	s.mu.Lock()
	l, ok := s.locks[abs]
	if !ok {
		l = &sync.Mutex{}
		s.locks[abs] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// 📖 ReadFile reads the full current content of a file
func (s *Store) ReadFile(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(s.getAbsPath(path))
	if err != nil {
		return "", errors.Errorf("reading file: %w", err)
	}
	return string(content), nil
}

// ✍️ WriteFileAtomic replaces a file through a temp file and rename, keeping
// the original permissions.
func (s *Store) WriteFileAtomic(ctx context.Context, path string, content string) error {
	absPath := s.getAbsPath(path)

	mode := os.FileMode(0o644)
	if info, err := os.Stat(absPath); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(absPath), "."+filepath.Base(absPath)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("setting file mode: %w", err)
	}

	// Rename temp file to target (atomic operation)
	if err := os.Rename(tempPath, absPath); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", s.Rel(absPath)).Int("bytes", len(content)).Msg("wrote file")
	return nil
}
