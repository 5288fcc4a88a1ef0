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

// Package refdoc caches the reference documents (style guide, copy bible)
// handed to copy generation. It is never used for the source files a
// rewrite touches.
package refdoc

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

type entry struct {
	content string
	modTime time.Time
	size    int64
}

// 📚 Cache holds document contents keyed by path and modification time.
// Entries are dropped when the file changes on disk, when Invalidate is
// called, or when a later stat shows a different modification time.
type Cache struct {
	root string

	mu      sync.Mutex
	entries map[string]entry
	watched map[string]bool

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// 🏭 New creates a cache resolving relative paths against root. When the
// platform cannot watch files the cache still works through modification
// times.
func New(ctx context.Context, root string) *Cache {
	logger := zerolog.Ctx(ctx)

	c := &Cache{
		root:    root,
		entries: make(map[string]entry),
		watched: make(map[string]bool),
		done:    make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug().Err(err).Msg("file watching unavailable, relying on modification times")
		return c
	}
	c.watcher = watcher

	c.wg.Add(1)
	go c.watch(ctx)

	return c
}

func (c *Cache) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(c.root, path)
}

// 📖 Read returns the content of path, from the cache when the file has not
// changed since it was last read.
func (c *Cache) Read(ctx context.Context, path string) (string, error) {
	abs := c.abs(path)

	info, err := os.Stat(abs)
	if err != nil {
		c.Invalidate(abs)
		return "", errors.Errorf("reading reference document: %w", err)
	}

	c.mu.Lock()
	cached, ok := c.entries[abs]
	c.mu.Unlock()
	if ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.content, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		c.Invalidate(abs)
		return "", errors.Errorf("reading reference document: %w", err)
	}

	c.mu.Lock()
	c.entries[abs] = entry{content: string(data), modTime: info.ModTime(), size: info.Size()}
	c.mu.Unlock()

	c.ensureWatched(ctx, filepath.Dir(abs))

	return string(data), nil
}

// SafeRead is Read that yields an empty document on any failure
func (c *Cache) SafeRead(ctx context.Context, path string) string {
	content, err := c.Read(ctx, path)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("reference document unavailable")
		return ""
	}
	return content
}

// Invalidate drops the cached content of path
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, c.abs(path))
}

// Cached reports whether path currently has a cache entry
func (c *Cache) Cached(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[c.abs(path)]
	return ok
}

// Close stops watching. The cache keeps working through modification times.
func (c *Cache) Close() error {
	if c.watcher == nil {
		return nil
	}

	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}

	err := c.watcher.Close()
	c.wg.Wait()
	if err != nil {
		return errors.Errorf("closing watcher: %w", err)
	}
	return nil
}

// ensureWatched watches the directory of a document; editors often replace
// files through a rename, which a watch on the file itself would miss.
func (c *Cache) ensureWatched(ctx context.Context, dir string) {
	if c.watcher == nil {
		return
	}

	c.mu.Lock()
	if c.watched[dir] {
		c.mu.Unlock()
		return
	}
	c.watched[dir] = true
	c.mu.Unlock()

	if err := c.watcher.Add(dir); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("dir", dir).Msg("cannot watch reference directory")
		c.mu.Lock()
		delete(c.watched, dir)
		c.mu.Unlock()
	}
}

func (c *Cache) watch(ctx context.Context) {
	defer c.wg.Done()
	logger := zerolog.Ctx(ctx)

	for {
		select {
		case <-c.done:
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if c.Cached(event.Name) {
				c.Invalidate(event.Name)
				logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("reference document changed")
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			logger.Debug().Err(err).Msg("reference watcher error")
		}
	}
}
