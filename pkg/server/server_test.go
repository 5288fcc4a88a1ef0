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

package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/copyedit/pkg/config"
	"github.com/walteh/copyedit/pkg/metrics"
	"github.com/walteh/copyedit/pkg/prefs"
	"github.com/walteh/copyedit/pkg/refdoc"
	"github.com/walteh/copyedit/pkg/rewrite"
	"github.com/walteh/copyedit/pkg/server"
	"github.com/walteh/copyedit/pkg/source"
)

type testEnv struct {
	root string
	srv  *server.Server
	http *httptest.Server
}

func newTestEnv(t *testing.T, files map[string]string) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, files, nil)
}

func newTestEnvWithConfig(t *testing.T, files map[string]string, configure func(cfg *config.Config)) *testEnv {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	cfg := config.Defaults()
	cfg.SourcePatterns = []string{"**/*.html"}
	if configure != nil {
		configure(cfg)
	}

	store, err := source.NewStore(root)
	require.NoError(t, err)

	docs := refdoc.New(ctx, root)
	t.Cleanup(func() { docs.Close() })

	srv := server.New(ctx, cfg, rewrite.New(store), prefs.NewStore(store), docs, metrics.New())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{root: root, srv: srv, http: ts}
}

func (e *testEnv) do(t *testing.T, method, path, session, body string) (*http.Response, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.http.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(server.SessionHeader, session)
	}

	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func (e *testEnv) read(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(e.root, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(content)
}

func TestHealthAndSession(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, body)
	assert.NotEmpty(t, resp.Header.Get(server.SessionHeader))

	resp, _ = env.do(t, http.MethodGet, "/health", "abc", "")
	assert.Equal(t, "abc", resp.Header.Get(server.SessionHeader))
}

func TestPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	req, err := http.NewRequest(http.MethodOptions, env.http.URL+"/write", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := env.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), server.SessionHeader)
}

func TestCORSOrigins(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{name: "localhost", origin: "http://localhost:3000", want: "http://localhost:3000"},
		{name: "loopback_ipv4", origin: "http://127.0.0.1:5173", want: "http://127.0.0.1:5173"},
		{name: "loopback_ipv6", origin: "http://[::1]:8080", want: "http://[::1]:8080"},
		{name: "remote_site", origin: "https://evil.example", want: ""},
		{name: "localhost_lookalike", origin: "http://localhost.evil.example", want: ""},
		{name: "no_origin", origin: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, env.http.URL+"/health", nil)
			require.NoError(t, err)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			resp, err := env.http.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestAddrIsLoopback(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, "127.0.0.1:4800", env.srv.Addr())
}

func TestUndoWithoutSessionKeepsNoLedger(t *testing.T) {
	env := newTestEnv(t, nil)

	for i := 0; i < 3; i++ {
		resp, _ := env.do(t, http.MethodPost, "/undo", "", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	_, body := env.do(t, http.MethodGet, "/metrics", "", "")
	assert.Contains(t, body, `copyedit_sessions 0`)
}

func TestWriteStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantJSON   string
	}{
		{
			name:       "success",
			body:       `{"oldText":"Get Started","newText":"Start free","context":{"tagName":"button","className":"cta","parentTag":""}}`,
			wantStatus: http.StatusOK,
			wantJSON:   `{"success":true,"file":"index.html","line":2,"matchCount":1}`,
		},
		{
			name:       "not_found",
			body:       `{"oldText":"Nowhere to be seen","newText":"x"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing_fields",
			body:       `{"oldText":"Get Started"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid_json",
			body:       `{"oldText":`,
			wantStatus: http.StatusBadRequest,
			wantJSON:   `{"error":"invalid JSON body"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, map[string]string{
				"index.html": "<main>\n  <button class=\"cta\">Get Started</button>\n</main>\n",
			})

			resp, body := env.do(t, http.MethodPost, "/write", "s1", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, body)
			if tt.wantJSON != "" {
				assert.JSONEq(t, tt.wantJSON, body)
			}
			if tt.wantStatus != http.StatusOK {
				assert.Contains(t, env.read(t, "index.html"), "Get Started")
			}
		})
	}
}

func TestWriteThenUndo(t *testing.T) {
	original := "<main>\n  <h1>Ship faster</h1>\n</main>\n"
	env := newTestEnv(t, map[string]string{"index.html": original})

	resp, body := env.do(t, http.MethodPost, "/write", "s1", `{"elementId":7,"oldText":"Ship faster","newText":"Launch today","context":{"tagName":"h1"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, env.read(t, "index.html"), "Launch today")

	// another session has nothing to undo
	resp, body = env.do(t, http.MethodPost, "/undo", "s2", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"nothing to undo"}`, body)

	resp, body = env.do(t, http.MethodPost, "/undo", "s1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, original, env.read(t, "index.html"))

	var report struct {
		SnapshotID string `json:"snapshotId"`
		Reverted   bool   `json:"reverted"`
		Partial    bool   `json:"partial"`
		Entries    []struct {
			ElementID      float64 `json:"elementId"`
			Text           string  `json:"text"`
			SourceReverted bool    `json:"sourceReverted"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &report))
	assert.NotEmpty(t, report.SnapshotID)
	assert.True(t, report.Reverted)
	assert.False(t, report.Partial)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, float64(7), report.Entries[0].ElementID)
	assert.Equal(t, "Ship faster", report.Entries[0].Text)
	assert.True(t, report.Entries[0].SourceReverted)

	resp, _ = env.do(t, http.MethodPost, "/undo", "s1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidWriteKeepsPreviousUndo(t *testing.T) {
	original := "<p>Alpha</p>\n"
	env := newTestEnv(t, map[string]string{"index.html": original})

	resp, _ := env.do(t, http.MethodPost, "/write", "s1", `{"oldText":"Alpha","newText":"Beta"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/write", "s1", `{"oldText":"Beta","newText":"Beta"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/undo", "s1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, original, env.read(t, "index.html"))
}

func TestWriteBatchAndUndo(t *testing.T) {
	original := "<nav>\n  <a>Docs</a>\n  <a>Pricing</a>\n</nav>\n"
	env := newTestEnv(t, map[string]string{"nav.html": original})

	resp, body := env.do(t, http.MethodPost, "/write-batch", "s1", `{"edits":[
		{"elementId":"docs","oldText":"Docs","newText":"Guides","context":{"tagName":"a"}},
		{"elementId":"pricing","oldText":"Pricing","newText":"Plans","context":{"tagName":"a"}},
		{"elementId":"ghost","oldText":"Careers","newText":"Jobs"}
	]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var batch struct {
		SnapshotID string            `json:"snapshotId"`
		Results    []rewrite.Outcome `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &batch))
	assert.NotEmpty(t, batch.SnapshotID)
	require.Len(t, batch.Results, 3)
	assert.True(t, batch.Results[0].Success)
	assert.True(t, batch.Results[1].Success)
	assert.False(t, batch.Results[2].Success)
	assert.Equal(t, "<nav>\n  <a>Guides</a>\n  <a>Plans</a>\n</nav>\n", env.read(t, "nav.html"))

	resp, body = env.do(t, http.MethodPost, "/undo", "s1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, original, env.read(t, "nav.html"))
	assert.Contains(t, body, `"elementId":"ghost"`)
}

func TestWriteBatchRejectsEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, _ := env.do(t, http.MethodPost, "/write-batch", "s1", `{"edits":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfigRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/config", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"model":"","styleGuide":"./docs/style-guide.md","copyBible":"./docs/copy-bible.md","shortcut":"ctrl+shift+h"}`, body)

	resp, body = env.do(t, http.MethodPost, "/config", "", `{"model":"house","shortcut":"alt+x","port":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"model":"house","styleGuide":"./docs/style-guide.md","copyBible":"./docs/copy-bible.md","shortcut":"ctrl+shift+h"}`, body)
}

func TestPreferencesRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/preferences", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"picks":{},"totalPicks":0}`, body)

	resp, body = env.do(t, http.MethodPost, "/preferences", "", `{"label":"punchy"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"picks":{"punchy":1},"totalPicks":1}`, body)

	resp, _ = env.do(t, http.MethodPost, "/preferences", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDocsRoute(t *testing.T) {
	env := newTestEnv(t, map[string]string{"docs/style-guide.md": "# Be brief"})

	resp, body := env.do(t, http.MethodGet, "/docs/style-guide", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "# Be brief", body)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")

	resp, _ = env.do(t, http.MethodGet, "/docs/copy-bible", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/docs/secrets", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDocsRouteStaysInsideProject(t *testing.T) {
	outside := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(outside, []byte("PRIVATE KEY MATERIAL"), 0o600))

	t.Run("config_update_cannot_point_outside", func(t *testing.T) {
		env := newTestEnv(t, map[string]string{"docs/style-guide.md": "# Be brief"})

		for _, path := range []string{outside, "../../id_rsa", "docs/../../id_rsa"} {
			resp, body := env.do(t, http.MethodPost, "/config", "", `{"styleGuide":`+strconv.Quote(path)+`}`)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, `"styleGuide":"./docs/style-guide.md"`, path)
		}

		resp, body := env.do(t, http.MethodGet, "/docs/style-guide", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "# Be brief", body)
	})

	t.Run("configured_path_outside_is_not_served", func(t *testing.T) {
		env := newTestEnvWithConfig(t, nil, func(cfg *config.Config) {
			cfg.StyleGuide = outside
			cfg.CopyBible = "../" + filepath.Base(filepath.Dir(outside)) + "/id_rsa"
		})

		for _, name := range []string{"style-guide", "copy-bible"} {
			resp, body := env.do(t, http.MethodGet, "/docs/"+name, "", "")
			assert.Equal(t, http.StatusNotFound, resp.StatusCode, name)
			assert.NotContains(t, body, "PRIVATE KEY MATERIAL")
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t, map[string]string{"index.html": "<p>Alpha</p>"})

	env.do(t, http.MethodPost, "/write", "s1", `{"oldText":"Alpha","newText":"Beta"}`)
	env.do(t, http.MethodPost, "/undo", "s2", "")

	resp, body := env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `copyedit_rewrites_total{result="success"} 1`)
	assert.Contains(t, body, `copyedit_undos_total{result="empty"} 1`)
	assert.Contains(t, body, `copyedit_sessions 1`)
}

func TestServeListenerStopsWithContext(t *testing.T) {
	env := newTestEnv(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))

	done := make(chan error, 1)
	go func() { done <- env.srv.ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
