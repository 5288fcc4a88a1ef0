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

package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/copyedit/cmd/copyedit/opts"
	"github.com/walteh/copyedit/pkg/match"
	"github.com/walteh/copyedit/pkg/rewrite"
)

// editFlags are the flags shared by commands that locate a single string
type editFlags struct {
	oldText   string
	newText   string
	tagName   string
	className string
	parentTag string
	include   []string
	exclude   []string
}

func (f *editFlags) register(cmd *cobra.Command, withNew bool) {
	cmd.Flags().StringVar(&f.oldText, "old", "", "text as it appears on the page")
	if withNew {
		cmd.Flags().StringVar(&f.newText, "new", "", "replacement text")
	}
	cmd.Flags().StringVar(&f.tagName, "tag", "", "tag name of the edited element")
	cmd.Flags().StringVar(&f.className, "class", "", "class attribute of the edited element")
	cmd.Flags().StringVar(&f.parentTag, "parent", "", "tag name of the element's parent")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "source patterns (default: from config)")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "exclude patterns (default: from config)")
}

// fromArgs fills old and new text from positional arguments when the flags
// were not given
func (f *editFlags) fromArgs(args []string) {
	if f.oldText == "" && len(args) > 0 {
		f.oldText = args[0]
	}
	if f.newText == "" && len(args) > 1 {
		f.newText = args[1]
	}
}

func (f *editFlags) context() match.EditContext {
	return match.EditContext{
		TagName:   f.tagName,
		ClassName: f.className,
		ParentTag: f.parentTag,
	}
}

func (f *editFlags) request(o *opts.RootOpts) rewrite.Request {
	include := f.include
	if len(include) == 0 {
		include = o.Config.SourcePatterns
	}
	exclude := f.exclude
	if len(exclude) == 0 {
		exclude = o.Config.ExcludePatterns
	}
	return rewrite.Request{
		OldText:         f.oldText,
		NewText:         f.newText,
		Context:         f.context(),
		SourcePatterns:  include,
		ExcludePatterns: exclude,
	}
}
