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

// Package ledger records the rewrites produced by one user action so the
// action can be reversed as a whole.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/copyedit/pkg/match"
	"github.com/walteh/copyedit/pkg/rewrite"
)

// 🔌 Rewriter performs a forward rewrite. *rewrite.Engine satisfies it.
type Rewriter interface {
	Rewrite(ctx context.Context, req rewrite.Request) rewrite.Outcome
}

// 🖼️ Surface restores the visible text of an element. The element handle is
// whatever the caller committed; the ledger never looks inside it.
type Surface interface {
	SetText(ctx context.Context, element any, text string) error
}

// Edit is one requested change to one element
type Edit struct {
	Element any               `json:"elementId" yaml:"element"`
	OldText string            `json:"oldText" yaml:"old_text"`
	NewText string            `json:"newText" yaml:"new_text"`
	Context match.EditContext `json:"context" yaml:"context"`
}

// 📝 Entry is one attempted rewrite of one element
type Entry struct {
	Element any               `json:"elementId"`
	OldText string            `json:"oldText"`
	NewText string            `json:"newText"`
	Context match.EditContext `json:"context"`
	Outcome rewrite.Outcome   `json:"writeResult"`
}

// 📸 Snapshot is the ordered set of entries produced by one user action.
// Entries are kept in the order they were applied.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Entries   []Entry   `json:"entries"`
}

// Reversal reports what undo did for one entry
type Reversal struct {
	Element        any              `json:"elementId"`
	Text           string           `json:"text"`
	SourceReverted bool             `json:"sourceReverted"`
	Outcome        *rewrite.Outcome `json:"outcome,omitempty"`
	SurfaceError   string           `json:"surfaceError,omitempty"`
}

// 📋 Report is the result of undoing a snapshot. Entries are listed in the
// order they were reversed.
type Report struct {
	SnapshotID uuid.UUID  `json:"snapshotId"`
	Reverted   bool       `json:"reverted"`
	Partial    bool       `json:"partial"`
	Entries    []Reversal `json:"entries"`
}

// 📚 Ledger holds the most recent snapshot of one editing session
type Ledger struct {
	mu sync.Mutex

	rewriter Rewriter
	include  []string
	exclude  []string
	current  *Snapshot
	now      func() time.Time
}

// 🏭 New creates a ledger that rewrites through rw, scanning the files
// matched by include and not excluded by exclude.
func New(rw Rewriter, include, exclude []string) *Ledger {
	return &Ledger{
		rewriter: rw,
		include:  include,
		exclude:  exclude,
		now:      time.Now,
	}
}

// Commit stores entries as the current snapshot, discarding any previous one
func (l *Ledger) Commit(entries []Entry) *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commitLocked(entries)
}

func (l *Ledger) commitLocked(entries []Entry) *Snapshot {
	snap := &Snapshot{
		ID:        uuid.New(),
		CreatedAt: l.now(),
		Entries:   append([]Entry(nil), entries...),
	}
	l.current = snap
	return snap
}

// ⚡ Apply rewrites every edit one after another and commits the entries as
// a single snapshot. Edits may land in the same file, so they are never run
// concurrently.
func (l *Ledger) Apply(ctx context.Context, edits []Edit) *Snapshot {
	logger := zerolog.Ctx(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]Entry, 0, len(edits))
	for _, edit := range edits {
		out := l.rewriter.Rewrite(ctx, l.request(edit.OldText, edit.NewText, edit.Context))
		entries = append(entries, Entry{
			Element: edit.Element,
			OldText: edit.OldText,
			NewText: edit.NewText,
			Context: edit.Context,
			Outcome: out,
		})
	}

	snap := l.commitLocked(entries)
	logger.Debug().
		Str("snapshot", snap.ID.String()).
		Int("entries", len(entries)).
		Msg("committed snapshot")
	return snap
}

// Current returns the held snapshot, or nil
func (l *Ledger) Current() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// ↩️ Undo reverses the current snapshot, last entry first. For each entry the
// visible text is restored before the source; the source is only touched
// when the original rewrite succeeded, and it goes through a fresh forward
// rewrite instead of a remembered offset. A failed reversal is recorded and
// the remaining entries are still processed. surface may be nil when there
// is no rendered view to restore.
//
// The second result is false when there was nothing to undo.
func (l *Ledger) Undo(ctx context.Context, surface Surface) (*Report, bool) {
	logger := zerolog.Ctx(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	snap := l.current
	if snap == nil {
		return nil, false
	}
	l.current = nil

	report := &Report{
		SnapshotID: snap.ID,
		Reverted:   true,
		Entries:    make([]Reversal, 0, len(snap.Entries)),
	}

	for i := len(snap.Entries) - 1; i >= 0; i-- {
		entry := snap.Entries[i]
		rev := Reversal{Element: entry.Element, Text: entry.OldText}

		if surface != nil {
			if err := surface.SetText(ctx, entry.Element, entry.OldText); err != nil {
				rev.SurfaceError = err.Error()
				report.Partial = true
				logger.Warn().Err(err).Int("entry", i).Msg("restoring visible text failed")
			}
		}

		if entry.Outcome.Success {
			out := l.rewriter.Rewrite(ctx, l.request(entry.NewText, entry.OldText, entry.Context))
			rev.Outcome = &out
			rev.SourceReverted = out.Success
			if !out.Success {
				report.Partial = true
				logger.Warn().Str("error", out.Error).Int("entry", i).Msg("source reversal failed")
			}
		}

		report.Entries = append(report.Entries, rev)
	}

	logger.Info().
		Str("snapshot", snap.ID.String()).
		Int("entries", len(report.Entries)).
		Bool("partial", report.Partial).
		Msg("undid snapshot")

	return report, true
}

func (l *Ledger) request(oldText, newText string, ctx match.EditContext) rewrite.Request {
	return rewrite.Request{
		OldText:         oldText,
		NewText:         newText,
		Context:         ctx,
		SourcePatterns:  l.include,
		ExcludePatterns: l.exclude,
	}
}
