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

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/copyedit/pkg/rewrite"
	"gitlab.com/tozd/go/errors"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestResult(t *testing.T) {
	tests := []struct {
		name string
		out  rewrite.Outcome
		want string
	}{
		{name: "success", out: rewrite.Succeeded("a.html", 1, 1), want: ResultSuccess},
		{name: "not_found", out: rewrite.Failed(errors.Errorf("%w: %q", rewrite.ErrNotFound, "x")), want: ResultNotFound},
		{name: "invalid", out: rewrite.Failed(rewrite.ErrInvalidRequest), want: ResultInvalid},
		{name: "configuration", out: rewrite.Failed(rewrite.ErrConfiguration), want: ResultInvalid},
		{name: "stale", out: rewrite.Failed(rewrite.ErrStaleSource), want: ResultStale},
		{name: "other", out: rewrite.Failed(errors.New("disk on fire")), want: ResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Result(tt.out))
		})
	}
}

func TestMetricsExposition(t *testing.T) {
	m := New()

	m.ObserveRewrite(rewrite.Succeeded("a.html", 1, 2), 5*time.Millisecond)
	m.ObserveRewrite(rewrite.Failed(rewrite.ErrNotFound), time.Millisecond)
	m.ObserveUndo(true, false)
	m.ObserveUndo(false, false)
	m.ObserveUndo(true, true)
	m.SetSessions(2)

	body := scrape(t, m)
	assert.Contains(t, body, `copyedit_rewrites_total{result="success"} 1`)
	assert.Contains(t, body, `copyedit_rewrites_total{result="not_found"} 1`)
	assert.Contains(t, body, `copyedit_rewrite_candidates_count 1`)
	assert.Contains(t, body, `copyedit_rewrite_duration_seconds_count 2`)
	assert.Contains(t, body, `copyedit_undos_total{result="success"} 1`)
	assert.Contains(t, body, `copyedit_undos_total{result="empty"} 1`)
	assert.Contains(t, body, `copyedit_undos_total{result="partial"} 1`)
	assert.Contains(t, body, `copyedit_sessions 2`)
	assert.Contains(t, body, `go_goroutines`)
}

func TestInstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	a.ObserveUndo(true, false)

	assert.Contains(t, scrape(t, a), `copyedit_undos_total{result="success"} 1`)
	assert.NotContains(t, scrape(t, b), `copyedit_undos_total{result="success"}`)
}
