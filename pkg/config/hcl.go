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

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the config from HCL. The file may call env("NAME") to read
// an environment variable.
func (p *HCLParser) Parse(ctx context.Context, data []byte, cfg *Config) error {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, ".copyedit.hcl")
	if diags.HasErrors() {
		return errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"defaults": cty.ObjectVal(map[string]cty.Value{
				"port":        cty.NumberIntVal(int64(Defaults().Port)),
				"style_guide": cty.StringVal(Defaults().StyleGuide),
				"copy_bible":  cty.StringVal(Defaults().CopyBible),
			}),
		},
		Functions: hclFunctions(),
	}

	// Define HCL schema, pointers mark what the file actually set
	type hclConfig struct {
		Port            *int      `hcl:"port,optional"`
		Model           *string   `hcl:"model,optional"`
		StyleGuide      *string   `hcl:"style_guide,optional"`
		CopyBible       *string   `hcl:"copy_bible,optional"`
		ReferenceGuide  *string   `hcl:"reference_guide,optional"`
		SourcePatterns  *[]string `hcl:"source_patterns,optional"`
		ExcludePatterns *[]string `hcl:"exclude_patterns,optional"`
		Shortcut        *string   `hcl:"shortcut,optional"`
		AccentColor     *string   `hcl:"accent_color,optional"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return errors.Errorf("decoding HCL: %s", diags.Error())
	}

	setInt(&cfg.Port, hclCfg.Port)
	setString(&cfg.Model, hclCfg.Model)
	setString(&cfg.StyleGuide, hclCfg.StyleGuide)
	setString(&cfg.CopyBible, hclCfg.CopyBible)
	setString(&cfg.ReferenceGuide, hclCfg.ReferenceGuide)
	setString(&cfg.Shortcut, hclCfg.Shortcut)
	setString(&cfg.AccentColor, hclCfg.AccentColor)
	if hclCfg.SourcePatterns != nil {
		cfg.SourcePatterns = *hclCfg.SourcePatterns
	}
	if hclCfg.ExcludePatterns != nil {
		cfg.ExcludePatterns = *hclCfg.ExcludePatterns
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func hclFunctions() map[string]function.Function {
	return map[string]function.Function{
		"env": function.New(&function.Spec{
			Params: []function.Parameter{{Name: "name", Type: cty.String}},
			Type:   function.StaticReturnType(cty.String),
			Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
				return cty.StringVal(os.Getenv(args[0].AsString())), nil
			},
		}),
	}
}
