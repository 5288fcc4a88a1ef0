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
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"github.com/walteh/copyedit/cmd/copyedit/opts"
	"github.com/walteh/copyedit/pkg/log"
	"github.com/walteh/copyedit/pkg/rewrite"
	"gitlab.com/tozd/go/errors"
)

// previewRadius is how many lines around the span a dry run shows
const previewRadius = 2

// NewWriteCmd creates the write command
func NewWriteCmd(load opts.Loader) *cobra.Command {
	var (
		flags  editFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "write [old] [new]",
		Short: "Replace a piece of page text in its source file",
		Long: `Find the span that renders the old text, pick the best candidate using the
element context, and replace it with the new text, keeping the entity and
apostrophe spelling already used in the source.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags.fromArgs(args)

			o, err := load(ctx)
			if err != nil {
				return err
			}

			if dryRun {
				return runDryRun(ctx, cmd.OutOrStdout(), o, flags.request(o))
			}

			return runWrite(ctx, o, flags.request(o))
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show the change without writing it")

	return cmd
}

func runWrite(ctx context.Context, o *opts.RootOpts, req rewrite.Request) error {
	out := o.Engine.Rewrite(ctx, req)
	o.Console.LogRewrite(ctx, rewriteLine(out, false))
	if !out.Success {
		return out.Err()
	}
	return nil
}

func runDryRun(ctx context.Context, w io.Writer, o *opts.RootOpts, req rewrite.Request) error {
	plan, err := o.Engine.Plan(ctx, req)
	if err != nil {
		return err
	}

	content, err := o.Store.ReadFile(ctx, plan.Best.File)
	if err != nil {
		return errors.Errorf("reading %s: %w", plan.Best.Rel, err)
	}

	modified := content[:plan.Best.Offset] + plan.Replacement + content[plan.Best.End():]

	fmt.Fprintf(w, "%s:%d (score %d, %d %s)\n",
		plan.Best.Rel, plan.Best.Line, plan.Best.Score,
		len(plan.Candidates), plural(len(plan.Candidates), "match", "matches"))
	fmt.Fprintln(w, preview(content, modified, plan.Best.Line))
	return nil
}

// preview renders a word level diff of the lines around line
func preview(before, after string, line int) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(window(before, line), window(after, line), false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}

// window returns the lines within previewRadius of the 1-based line
func window(content string, line int) string {
	lines := strings.Split(content, "\n")
	start := max(line-1-previewRadius, 0)
	end := min(line+previewRadius, len(lines))
	return strings.Join(lines[start:end], "\n")
}

func rewriteLine(out rewrite.Outcome, reverted bool) log.RewriteLine {
	status := "written"
	if reverted {
		status = "reverted"
	}
	if !out.Success {
		status = out.Error
	}
	return log.RewriteLine{
		File:       out.File,
		Line:       out.Line,
		MatchCount: out.MatchCount,
		Status:     status,
		Success:    out.Success,
		Reverted:   reverted && out.Success,
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
