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
Package config manages configuration loading and validation for copyedit.

	                 +-------------+
	                 |   Config    |
	                 | (Settings)  |
	                 +------+------+
	                        |
	   +-----------+--------+--+-----------+
	   |           |           |           |
	+--+---+   +---+---+   +---+---+   +---+----+
	| YAML |   | JSON  |   |  HCL  |   | pkg    |
	|      |   |       |   |       |   | .json  |
	+------+   +-------+   +-------+   +--------+

🎯 Purpose:
- Merges settings from every place a project may keep them
- Validates ports and source patterns before anything scans the disk
- Exposes the browser safe subset of the settings

🔄 Precedence (later wins):
 1. Defaults
 2. "copyedit" key of package.json
 3. .copyedit.{yaml,yml,json,hcl} or an explicit --config file
 4. COPYEDIT_PORT
 5. Command line overrides

🔍 Example:

	cfg, err := config.Resolve(ctx, root, "", config.Overrides{})
	if err != nil {
		return err
	}
	engine := rewrite.New(store)
	outcome := engine.Rewrite(ctx, rewrite.Request{
		SourcePatterns:  cfg.SourcePatterns,
		ExcludePatterns: cfg.ExcludePatterns,
		...
	})
*/
package config
