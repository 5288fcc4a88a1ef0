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

/*
Package server exposes the rewrite engine and the edit ledger to an editing
surface running in the browser.

	POST /write         one element, one snapshot
	POST /write-batch   many elements, one snapshot, applied in order
	POST /undo          reverse the session's latest snapshot
	GET  /config        browser safe settings
	POST /config        update model, styleGuide, copyBible
	GET  /preferences   style pick tally
	POST /preferences   record a style pick
	GET  /docs/{name}   style-guide, copy-bible, reference-guide
	GET  /metrics       Prometheus exposition
	GET  /health

Every response carries the X-Copyedit-Session header. Requests without one
get a fresh session; each session owns its own undo ledger.
*/
package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/walteh/copyedit/pkg/config"
	"github.com/walteh/copyedit/pkg/metrics"
	"github.com/walteh/copyedit/pkg/prefs"
	"github.com/walteh/copyedit/pkg/refdoc"
	"github.com/walteh/copyedit/pkg/rewrite"
	"gitlab.com/tozd/go/errors"
)

const (
	// SessionHeader carries the editing session id
	SessionHeader = "X-Copyedit-Session"

	// ListenHost is the only interface the server binds
	ListenHost = "127.0.0.1"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// 🌐 Server serves the editing API for one project
type Server struct {
	cfgMu sync.RWMutex
	cfg   *config.Config
	root  string

	rewriter *instrumented
	prefs    *prefs.Store
	docs     *refdoc.Cache
	metrics  *metrics.Metrics
	sessions *sessions

	router chi.Router
}

// 🏭 New wires a server. cfg is copied; runtime updates through POST /config
// do not leak back to the caller.
func New(ctx context.Context, cfg *config.Config, engine *rewrite.Engine, prefsStore *prefs.Store, docs *refdoc.Cache, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg.Clone(),
		root:     engine.Root(),
		rewriter: &instrumented{next: engine, metrics: m},
		prefs:    prefsStore,
		docs:     docs,
		metrics:  m,
	}
	s.sessions = newSessions(s.rewriter, cfg.SourcePatterns, cfg.ExcludePatterns, m)
	s.router = s.routes(*zerolog.Ctx(ctx))
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Use(s.sessions.middleware)

	r.Get("/health", s.handleHealth)
	r.Post("/write", s.handleWrite)
	r.Post("/write-batch", s.handleWriteBatch)
	r.Post("/undo", s.handleUndo)
	r.Get("/config", s.handleGetConfig)
	r.Post("/config", s.handlePostConfig)
	r.Get("/preferences", s.handleGetPreferences)
	r.Post("/preferences", s.handlePostPreferences)
	r.Get("/docs/{name}", s.handleDoc)
	r.Handle("/metrics", s.metrics.Handler())

	return r
}

// Addr returns the loopback address Serve listens on
func (s *Server) Addr() string {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return net.JoinHostPort(ListenHost, strconv.Itoa(s.cfg.Port))
}

// 🚀 Serve listens on the configured port of the loopback interface until
// ctx is done
func (s *Server) Serve(ctx context.Context) error {
	addr := s.Addr()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Errorf("listening on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	logger := zerolog.Ctx(ctx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("copyedit server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Errorf("shutting down server: %w", err)
		}
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Errorf("serving: %w", err)
	}
}

// cors allows pages served from a loopback origin to call the API. Other
// origins get no CORS headers, so browsers refuse to hand them responses.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); loopbackOrigin(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)
			h.Set("Access-Control-Expose-Headers", SessionHeader)
			h.Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loopbackOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// instrumented times every rewrite into the metrics
type instrumented struct {
	next    *rewrite.Engine
	metrics *metrics.Metrics
}

func (i *instrumented) Rewrite(ctx context.Context, req rewrite.Request) rewrite.Outcome {
	start := time.Now()
	out := i.next.Rewrite(ctx, req)
	i.metrics.ObserveRewrite(out, time.Since(start))
	return out
}
