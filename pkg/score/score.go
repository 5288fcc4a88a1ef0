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

// Package score ranks textually identical spans using hints about the page
// element they were rendered from. It is a heuristic: it picks one plausible
// location, it does not prove which one is the true source.
package score

import (
	"strings"

	"github.com/walteh/copyedit/pkg/match"
)

const (
	// LocaleRadius is how many bytes on each side of a span are inspected
	LocaleRadius = 200

	TagWeight    = 10
	ClassWeight  = 5
	ParentWeight = 3

	// MaxClasses caps how many classes of the element are considered
	MaxClasses = 3
)

// Locale returns the window of source around the start of a span. The
// window is measured from the start only, so long spans do not widen it.
func Locale(source string, offset int) string {
	start := offset - LocaleRadius
	if start < 0 {
		start = 0
	}
	end := offset + LocaleRadius
	if end > len(source) {
		end = len(source)
	}
	if start > end {
		return ""
	}
	return source[start:end]
}

// 🎯 Score rates how well the surroundings of a span fit the element context
func Score(source string, offset, length int, ctx match.EditContext) int {
	locale := Locale(source, offset)
	lower := strings.ToLower(locale)

	score := 0
	if hasOpeningTag(lower, ctx.TagName) {
		score += TagWeight
	}

	classes := strings.Fields(ctx.ClassName)
	if len(classes) > MaxClasses {
		classes = classes[:MaxClasses]
	}
	for _, class := range classes {
		if strings.Contains(locale, class) {
			score += ClassWeight
		}
	}

	if hasOpeningTag(lower, ctx.ParentTag) {
		score += ParentWeight
	}

	return score
}

// hasOpeningTag looks for "<tag" followed by whitespace or '>' in an already
// lower-cased locale.
func hasOpeningTag(lowerLocale, tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	needle := "<" + strings.ToLower(tag)

	for from := 0; ; {
		idx := strings.Index(lowerLocale[from:], needle)
		if idx < 0 {
			return false
		}
		next := from + idx + len(needle)
		if next < len(lowerLocale) {
			switch lowerLocale[next] {
			case ' ', '\t', '\n', '\r', '\f', '\v', '>':
				return true
			}
		}
		from = from + idx + 1
	}
}
