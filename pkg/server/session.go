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
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/copyedit/pkg/ledger"
	"github.com/walteh/copyedit/pkg/metrics"
)

type sessionKey struct{}

// sessions hands out one ledger per editing session
type sessions struct {
	mu      sync.Mutex
	ledgers map[string]*ledger.Ledger

	rewriter ledger.Rewriter
	include  []string
	exclude  []string
	metrics  *metrics.Metrics
}

func newSessions(rw ledger.Rewriter, include, exclude []string, m *metrics.Metrics) *sessions {
	return &sessions{
		ledgers:  make(map[string]*ledger.Ledger),
		rewriter: rw,
		include:  include,
		exclude:  exclude,
		metrics:  m,
	}
}

// middleware resolves the session id, minting one when the request has none
func (s *sessions) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(SessionHeader, id)

		ctx := context.WithValue(r.Context(), sessionKey{}, id)
		logger := zerolog.Ctx(ctx).With().Str("session", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
	})
}

// ledger returns the ledger of the request's session, creating it on first use
func (s *sessions) ledger(ctx context.Context) *ledger.Ledger {
	id, _ := ctx.Value(sessionKey{}).(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[id]
	if !ok {
		l = ledger.New(s.rewriter, s.include, s.exclude)
		s.ledgers[id] = l
		s.metrics.SetSessions(len(s.ledgers))
	}
	return l
}

// lookup returns the ledger of the request's session without creating one
func (s *sessions) lookup(ctx context.Context) (*ledger.Ledger, bool) {
	id, _ := ctx.Value(sessionKey{}).(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[id]
	return l, ok
}

// Len returns the number of sessions holding a ledger
func (s *sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledgers)
}
