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
Package rewrite writes edited page text back into the source file it came from.

	+-----------+     +-----------+     +-----------+     +-----------+
	|   glob    | --> |   match   | --> |   score   | --> |  source   |
	|  (files)  |     |  (spans)  |     |  (rank)   |     |  (write)  |
	+-----------+     +-----------+     +-----------+     +-----------+

🎯 Purpose:
  - Relocate a string seen only in rendered HTML to a byte span in an
    unknown project file
  - Tolerate whitespace reflow and entity/quote spelling drift
  - Pick one span when the same text appears in many places
  - Splice the replacement in, keeping the spelling style the author used

🔄 Flow:
 1. Validate the request (old and new text present and different)
 2. Resolve candidate files from include/exclude patterns
 3. Scan every file for every spelling variant of the old text
 4. Rank the candidates with the element context, keep the best
 5. Encode the new text the way the winning span is encoded
 6. Re-read the file under its lock, splice, write it back atomically

⚠️ Failures never escape as panics. Every call returns an Outcome; the typed
cause is available through Outcome.Err for errors.Is checks against
ErrInvalidRequest, ErrConfiguration, ErrNotFound, ErrWriteIO and
ErrStaleSource.

🔍 Example:

	engine := rewrite.New(store)
	outcome := engine.Rewrite(ctx, rewrite.Request{
		OldText:        "Get Started",
		NewText:        "Start free",
		Context:        match.EditContext{TagName: "button", ClassName: "cta"},
		SourcePatterns: []string{"src/*.tsx", "src/components/*.tsx"},
	})
	if !outcome.Success {
		return outcome.Err()
	}
*/
package rewrite
