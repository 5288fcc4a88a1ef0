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

// 🏷️ EditContext describes the page element the text was taken from. It is
// only used to rank spans, never to find them. Empty fields are allowed.
type EditContext struct {
	TagName   string `json:"tagName" yaml:"tag_name"`
	ClassName string `json:"className" yaml:"class_name"`
	ParentTag string `json:"parentTag" yaml:"parent_tag"`
}
