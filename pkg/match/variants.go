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

package match

import "strings"

// CurlyApostrophe is the typographic right single quote authors often use in
// place of an ASCII apostrophe.
const CurlyApostrophe = "’"

var entityReplacer = strings.NewReplacer(
	"&", "&amp;",
	"'", "&apos;",
	`"`, "&quot;",
	"<", "&lt;",
	">", "&gt;",
)

// EncodeEntities encodes & ' " < > as HTML entities
func EncodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// 🔁 Variants returns the spellings a source file may use for text that was
// read from the rendered page: the raw text, fully entity encoded,
// apostrophes only as &apos;, and apostrophes as curly quotes. The raw text
// is always first and no spelling appears twice.
func Variants(text string) []string {
	variants := []string{text}
	add := func(v string) {
		for _, existing := range variants {
			if existing == v {
				return
			}
		}
		variants = append(variants, v)
	}

	add(EncodeEntities(text))
	add(strings.ReplaceAll(text, "'", "&apos;"))
	add(strings.ReplaceAll(text, "'", CurlyApostrophe))

	return variants
}
