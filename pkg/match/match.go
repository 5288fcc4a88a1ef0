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

// Package match locates rendered text inside raw source text.
package match

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 📍 Span is a byte range [Offset, Offset+Length) inside a source text
type Span struct {
	Offset int
	Length int
}

// End returns the first byte after the span
func (s Span) End() int {
	return s.Offset + s.Length
}

// 🧹 Normalize collapses every whitespace run to a single space and trims
// the result.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// 🔍 FindSpans returns every span of source that represents target.
//
// Literal occurrences win: when at least one exists they are returned and the
// whitespace tolerant scan never runs. Spans never overlap and are ordered by
// offset.
func FindSpans(source, target string) []Span {
	if target == "" {
		return nil
	}
	if spans := findExact(source, target); len(spans) > 0 {
		return spans
	}
	return findNormalized(source, Normalize(target))
}

func findExact(source, target string) []Span {
	var spans []Span
	for from := 0; from <= len(source)-len(target); {
		idx := strings.Index(source[from:], target)
		if idx < 0 {
			break
		}
		start := from + idx
		spans = append(spans, Span{Offset: start, Length: len(target)})
		from = start + len(target)
	}
	return spans
}

func findNormalized(source, normalized string) []Span {
	if normalized == "" {
		return nil
	}

	first, _ := utf8.DecodeRuneInString(normalized)
	var spans []Span
	for from := 0; from < len(source); {
		idx := strings.IndexRune(source[from:], first)
		if idx < 0 {
			break
		}
		start := from + idx

		if end, ok := matchAt(source, start, normalized); ok {
			spans = append(spans, Span{Offset: start, Length: end - start})
			from = end
			continue
		}

		_, width := utf8.DecodeRuneInString(source[start:])
		from = start + width
	}
	return spans
}

// matchAt walks source from start against the normalized target and returns
// the source offset where the target was fully consumed.
func matchAt(source string, start int, normalized string) (int, bool) {
	si, ti := start, 0
	var prev rune // last target rune consumed

	for si < len(source) && ti < len(normalized) {
		sr, sw := utf8.DecodeRuneInString(source[si:])
		tr, tw := utf8.DecodeRuneInString(normalized[ti:])

		switch {
		case sr == tr:
			si += sw
			ti += tw
			prev = tr
		case unicode.IsSpace(sr) && unicode.IsSpace(tr):
			si = skipSpace(source, si)
			ti = skipSpace(normalized, ti)
			prev = ' '
		case unicode.IsSpace(sr):
			// formatting whitespace the rendered text dropped, unless it
			// would split a word the target keeps joined
			if isWord(prev) && isWord(tr) {
				return 0, false
			}
			si = skipSpace(source, si)
		default:
			return 0, false
		}
	}

	return si, ti == len(normalized)
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += w
	}
	return i
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
