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
	"strings"

	"github.com/walteh/copyedit/pkg/match"
)

// encodings are applied in order; ampersand must come first so entities
// added by later steps are not encoded twice
var encodings = []struct {
	marker string
	raw    string
}{
	{marker: "&amp;", raw: "&"},
	{marker: "&apos;", raw: "'"},
	{marker: "&quot;", raw: `"`},
	{marker: "&lt;", raw: "<"},
	{marker: "&gt;", raw: ">"},
	{marker: match.CurlyApostrophe, raw: "'"},
}

// 🔤 PreserveEncoding encodes text with exactly the entity and apostrophe
// spellings present in span. Spellings the span does not use are never
// introduced.
func PreserveEncoding(span, text string) string {
	for _, enc := range encodings {
		if strings.Contains(span, enc.marker) {
			text = strings.ReplaceAll(text, enc.raw, enc.marker)
		}
	}
	return text
}
