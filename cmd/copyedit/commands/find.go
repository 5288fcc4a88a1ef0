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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/copyedit/cmd/copyedit/opts"
	"github.com/walteh/copyedit/pkg/rewrite"
)

const spanPreviewLength = 48

// NewFindCmd creates the find command
func NewFindCmd(load opts.Loader) *cobra.Command {
	var (
		flags editFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "find [text]",
		Short: "List every source span that could hold a piece of page text",
		Long: `Scan the source patterns for every spelling of the text and print the
candidates ranked by how well they fit the element context. Nothing is
written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags.fromArgs(args)

			o, err := load(ctx)
			if err != nil {
				return err
			}

			candidates, err := o.Engine.Find(ctx, flags.request(o))
			if err != nil {
				return err
			}

			return renderCandidates(cmd.OutOrStdout(), candidates, limit)
		},
	}

	flags.register(cmd, false)
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of candidates to print (0 for all)")

	return cmd
}

func renderCandidates(w io.Writer, candidates []rewrite.Candidate, limit int) error {
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	data := pterm.TableData{{"#", "location", "score", "span"}}
	for i, c := range candidates {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%s:%d", c.Rel, c.Line),
			strconv.Itoa(c.Score),
			shorten(c.Span),
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, table)
	return err
}

// shorten flattens whitespace and truncates long spans for display
func shorten(span string) string {
	span = strings.Join(strings.Fields(span), " ")
	runes := []rune(span)
	if len(runes) <= spanPreviewLength {
		return span
	}
	return string(runes[:spanPreviewLength]) + "..."
}
