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

package rewrite

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/walteh/copyedit/pkg/glob"
	"github.com/walteh/copyedit/pkg/match"
	"github.com/walteh/copyedit/pkg/score"
	"github.com/walteh/copyedit/pkg/source"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// protectedSegment marks directories holding the editor's own UI source
	protectedSegment = "editor"

	maxQuoteLength = 80
)

// 📝 Request asks for oldText to be replaced by newText somewhere in the
// files matched by SourcePatterns.
type Request struct {
	OldText         string            `json:"oldText"`
	NewText         string            `json:"newText"`
	Context         match.EditContext `json:"context"`
	SourcePatterns  []string          `json:"sourcePatterns"`
	ExcludePatterns []string          `json:"excludePatterns"`
}

// 🎯 Candidate is one span that plausibly holds the old text
type Candidate struct {
	File   string `json:"-"`
	Rel    string `json:"file"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Span   string `json:"span"`
	Line   int    `json:"line"`
	Score  int    `json:"score"`
}

// End returns the first byte after the candidate span
func (c Candidate) End() int {
	return c.Offset + c.Length
}

// 🗺️ Plan is everything a rewrite decided before touching the disk
type Plan struct {
	Request     Request
	Candidates  []Candidate // ranked, best first
	Best        Candidate
	Replacement string // NewText encoded like Best.Span
}

// Ambiguous reports whether more than one span competed
func (p *Plan) Ambiguous() bool {
	return len(p.Candidates) > 1
}

// ⚙️ Engine relocates and rewrites text below a project root
type Engine struct {
	store       *source.Store
	concurrency int
}

// 🏭 New creates an engine working on the files of store
func New(store *source.Store) *Engine {
	return &Engine{
		store:       store,
		concurrency: runtime.GOMAXPROCS(0),
	}
}

// Root returns the project root the engine works in
func (e *Engine) Root() string {
	return e.store.Root()
}

// 🔍 Plan finds and ranks every candidate for req without writing anything
func (e *Engine) Plan(ctx context.Context, req Request) (*Plan, error) {
	logger := zerolog.Ctx(ctx)

	if req.OldText == "" || req.NewText == "" || req.OldText == req.NewText {
		return nil, ErrInvalidRequest
	}

	candidates, err := e.Find(ctx, req)
	if err != nil {
		return nil, err
	}

	best := candidates[0]
	plan := &Plan{
		Request:     req,
		Candidates:  candidates,
		Best:        best,
		Replacement: PreserveEncoding(best.Span, req.NewText),
	}

	if plan.Ambiguous() {
		logger.Warn().
			Int("matches", len(candidates)).
			Int("score", best.Score).
			Str("file", best.Rel).
			Int("line", best.Line).
			Msg("multiple matches found, using best")
	}

	return plan, nil
}

// Find returns every span that could hold req.OldText, best first. Ties keep
// file order, then position order. req.NewText is ignored.
func (e *Engine) Find(ctx context.Context, req Request) ([]Candidate, error) {
	logger := zerolog.Ctx(ctx)

	if req.OldText == "" {
		return nil, ErrInvalidRequest
	}

	files, err := glob.Resolve(ctx, e.store.Root(), req.SourcePatterns, req.ExcludePatterns)
	if err != nil {
		return nil, errors.Errorf("resolving source files: %w", err)
	}

	variants := match.Variants(req.OldText)

	// one slot per file keeps candidate order equal to file order
	slots := make([][]Candidate, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, file := range files {
		if e.isProtected(file) {
			continue
		}
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := e.store.ReadFile(gctx, file)
			if err != nil {
				logger.Debug().Str("file", file).Err(err).Msg("skipping unreadable file")
				return nil
			}
			slots[i] = e.collect(file, content, variants, req.Context)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("scanning source files: %w", err)
	}

	var candidates []Candidate
	for _, slot := range slots {
		candidates = append(candidates, slot...)
	}

	if len(candidates) == 0 {
		return nil, errors.Errorf("%w: %q", ErrNotFound, quote(req.OldText))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates, nil
}

// ✍️ Rewrite replaces req.OldText with req.NewText in the best matching span.
// It never panics and never returns a bare error: failures are reported in
// the outcome.
func (e *Engine) Rewrite(ctx context.Context, req Request) Outcome {
	logger := zerolog.Ctx(ctx)

	plan, err := e.Plan(ctx, req)
	if err != nil {
		logger.Info().Err(err).Msg("rewrite not planned")
		return Failed(err)
	}

	return e.Apply(ctx, plan)
}

// 💾 Apply writes a plan to disk. The file is re-read under its lock so the
// splice happens against the current content.
func (e *Engine) Apply(ctx context.Context, plan *Plan) Outcome {
	logger := zerolog.Ctx(ctx)
	best := plan.Best

	unlock := e.store.Lock(best.File)
	defer unlock()

	current, err := e.store.ReadFile(ctx, best.File)
	if err != nil {
		return Failed(errors.Errorf("%w: %s", ErrWriteIO, err.Error()))
	}

	if best.End() > len(current) || current[best.Offset:best.End()] != best.Span {
		return Failed(errors.Errorf("%w: %s", ErrStaleSource, best.Rel))
	}

	modified := current[:best.Offset] + plan.Replacement + current[best.End():]
	if err := e.store.WriteFileAtomic(ctx, best.File, modified); err != nil {
		return Failed(errors.Errorf("%w: %s", ErrWriteIO, err.Error()))
	}

	logger.Info().
		Str("file", best.Rel).
		Int("line", best.Line).
		Int("matches", len(plan.Candidates)).
		Int("score", best.Score).
		Msg("rewrote source text")

	return Succeeded(best.Rel, best.Line, len(plan.Candidates))
}

func (e *Engine) collect(file, content string, variants []string, ctx match.EditContext) []Candidate {
	rel := e.store.Rel(file)

	var out []Candidate
	for _, variant := range variants {
		for _, span := range match.FindSpans(content, variant) {
			out = append(out, Candidate{
				File:   file,
				Rel:    rel,
				Offset: span.Offset,
				Length: span.Length,
				Span:   content[span.Offset:span.End()],
				Line:   LineAt(content, span.Offset),
				Score:  score.Score(content, span.Offset, span.Length, ctx),
			})
		}
	}
	return out
}

// isProtected reports whether file lives under an editor directory of the
// project
func (e *Engine) isProtected(file string) bool {
	for _, segment := range strings.Split(e.store.Rel(file), "/") {
		if segment == protectedSegment {
			return true
		}
	}
	return false
}

// LineAt returns the 1-based line holding byte offset
func LineAt(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	return strings.Count(content[:offset], "\n") + 1
}

func quote(s string) string {
	if utf8.RuneCountInString(s) <= maxQuoteLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxQuoteLength]) + "..."
}
