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

package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/walteh/copyedit/pkg/ledger"
	"github.com/walteh/copyedit/pkg/match"
	"github.com/walteh/copyedit/pkg/prefs"
	"github.com/walteh/copyedit/pkg/rewrite"
	"gitlab.com/tozd/go/errors"
)

// writeRequest is the body of POST /write and one item of POST /write-batch
type writeRequest struct {
	ElementID any               `json:"elementId"`
	OldText   string            `json:"oldText"`
	NewText   string            `json:"newText"`
	Context   match.EditContext `json:"context"`
}

func (w writeRequest) edit() ledger.Edit {
	return ledger.Edit{
		Element: w.ElementID,
		OldText: w.OldText,
		NewText: w.NewText,
		Context: w.Context,
	}
}

type batchRequest struct {
	Edits []writeRequest `json:"edits"`
}

type batchResponse struct {
	SnapshotID string            `json:"snapshotId"`
	Results    []rewrite.Outcome `json:"results"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// statusFor maps a rewrite outcome to an HTTP status
func statusFor(out rewrite.Outcome) int {
	if out.Success {
		return http.StatusOK
	}
	err := out.Err()
	switch {
	case errors.Is(err, rewrite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rewrite.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleWrite rewrites one element and makes it the session's undoable action
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	out := s.rewriter.Rewrite(ctx, s.request(req))

	// a rejected request changed nothing, the previous action stays undoable
	if !errors.Is(out.Err(), rewrite.ErrInvalidRequest) {
		edit := req.edit()
		s.sessions.ledger(ctx).Commit([]ledger.Entry{{
			Element: edit.Element,
			OldText: edit.OldText,
			NewText: edit.NewText,
			Context: edit.Context,
			Outcome: out,
		}})
	}

	writeJSON(w, statusFor(out), out)
}

// handleWriteBatch rewrites every element in order as one undoable action
func (s *Server) handleWriteBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Edits) == 0 {
		writeError(w, http.StatusBadRequest, "edits must be a non-empty array")
		return
	}

	edits := make([]ledger.Edit, len(req.Edits))
	for i, e := range req.Edits {
		edits[i] = e.edit()
	}

	snap := s.sessions.ledger(r.Context()).Apply(r.Context(), edits)

	resp := batchResponse{SnapshotID: snap.ID.String(), Results: make([]rewrite.Outcome, len(snap.Entries))}
	for i, entry := range snap.Entries {
		resp.Results[i] = entry.Outcome
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUndo reverses the session's latest action. The browser restores its
// own rendered text from the returned entries.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	var (
		report *ledger.Report
		ok     bool
	)
	if l, found := s.sessions.lookup(r.Context()); found {
		report, ok = l.Undo(r.Context(), nil)
	}
	if !ok {
		s.metrics.ObserveUndo(false, false)
		writeError(w, http.StatusNotFound, "nothing to undo")
		return
	}
	s.metrics.ObserveUndo(true, report.Partial)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.cfgMu.RLock()
	view := s.cfg.Client()
	s.cfgMu.RUnlock()
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	var update map[string]any
	if !decode(w, r, &update) {
		return
	}

	s.cfgMu.Lock()
	changed := s.cfg.Update(update)
	view := s.cfg.Client()
	s.cfgMu.Unlock()

	if len(changed) > 0 {
		zerolog.Ctx(r.Context()).Info().Strs("keys", changed).Msg("config updated")
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prefs.Load(r.Context()))
}

func (s *Server) handlePostPreferences(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if !decode(w, r, &req) {
		return
	}

	got, err := s.prefs.RecordPick(r.Context(), req.Label)
	if err != nil {
		if errors.Is(err, prefs.ErrEmptyLabel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("recording style pick")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, got)
}

// handleDoc serves one of the configured reference documents
func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	s.cfgMu.RLock()
	paths := map[string]string{
		"style-guide":     s.cfg.StyleGuide,
		"copy-bible":      s.cfg.CopyBible,
		"reference-guide": s.cfg.ReferenceGuide,
	}
	s.cfgMu.RUnlock()

	path, ok := paths[chi.URLParam(r, "name")]
	if !ok || path == "" {
		writeError(w, http.StatusNotFound, "unknown document")
		return
	}

	abs, ok := s.projectPath(path)
	if !ok {
		zerolog.Ctx(r.Context()).Warn().Str("path", path).Msg("reference document outside the project root")
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	content, err := s.docs.Read(r.Context(), abs)
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Str("path", path).Msg("reference document unavailable")
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

// projectPath resolves path against the project root and reports whether it
// stays inside it
func (s *Server) projectPath(path string) (string, bool) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.root, path)
	}
	rel, err := filepath.Rel(s.root, filepath.Clean(abs))
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(s.root, rel), true
}

func (s *Server) request(req writeRequest) rewrite.Request {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return rewrite.Request{
		OldText:         req.OldText,
		NewText:         req.NewText,
		Context:         req.Context,
		SourcePatterns:  s.cfg.SourcePatterns,
		ExcludePatterns: s.cfg.ExcludePatterns,
	}
}
