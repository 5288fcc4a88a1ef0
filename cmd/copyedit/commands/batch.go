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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/copyedit/cmd/copyedit/opts"
	"github.com/walteh/copyedit/pkg/ledger"
	"github.com/walteh/copyedit/pkg/log"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// ErrBatchFile is returned when an edits file cannot be used
var ErrBatchFile = errors.Base("invalid batch file")

// batchFile is the on-disk list of edits
type batchFile struct {
	Edits []ledger.Edit `json:"edits" yaml:"edits"`
}

// NewBatchCmd creates the batch command
func NewBatchCmd(load opts.Loader) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "batch <edits.yaml|edits.json>",
		Short: "Apply a list of edits as one undoable action",
		Long: `Apply every edit in the file one after another and keep them together as
a single action. With --undo the action is reversed right away, last edit
first, which checks that the batch can be taken back cleanly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			edits, err := readBatchFile(args[0])
			if err != nil {
				return err
			}

			o, err := load(ctx)
			if err != nil {
				return err
			}

			return runBatch(ctx, cmd.OutOrStdout(), o, filepath.Base(args[0]), edits, undo)
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "reverse the batch after applying it")

	return cmd
}

func runBatch(ctx context.Context, w io.Writer, o *opts.RootOpts, name string, edits []ledger.Edit, undo bool) error {
	l := ledger.New(o.Engine, o.Config.SourcePatterns, o.Config.ExcludePatterns)

	o.Console.StartBatch(ctx, log.BatchOperation{
		Name:  name,
		Root:  o.Root,
		Edits: len(edits),
	})

	snap := l.Apply(ctx, edits)
	for _, entry := range snap.Entries {
		o.Console.LogRewrite(ctx, rewriteLine(entry.Outcome, false))
	}

	if undo {
		report, ok := l.Undo(ctx, &consoleSurface{w: w})
		if ok {
			for _, rev := range report.Entries {
				if rev.Outcome == nil {
					o.Console.LogRewrite(ctx, log.RewriteLine{Status: "not written", Skipped: true})
					continue
				}
				o.Console.LogRewrite(ctx, rewriteLine(*rev.Outcome, true))
			}
			if report.Partial {
				o.Console.Warning("undo was only partly applied")
			}
		}
	}

	if failed := o.Console.EndBatch(ctx); failed > 0 {
		pterm.Warning.Printfln("%s: %d of %d rewrites failed", name, failed, len(edits))
		return errors.Errorf("%d rewrites failed", failed)
	}

	pterm.Success.Printfln("%s: %d edits applied as snapshot %s", name, len(edits), snap.ID)
	return nil
}

func readBatchFile(path string) ([]ledger.Edit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading batch file: %w", err)
	}

	var file batchFile
	switch filepath.Ext(path) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&file)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&file)
	default:
		return nil, errors.WithDetails(ErrBatchFile, "reason", "unsupported extension", "path", path)
	}
	if err != nil {
		return nil, errors.WithDetails(ErrBatchFile, "reason", err.Error(), "path", path)
	}

	if len(file.Edits) == 0 {
		return nil, errors.WithDetails(ErrBatchFile, "reason", "no edits", "path", path)
	}
	return file.Edits, nil
}

// consoleSurface stands in for the rendered page when undoing from the
// command line
type consoleSurface struct {
	w io.Writer
}

func (s *consoleSurface) SetText(ctx context.Context, element any, text string) error {
	if element == nil {
		element = "-"
	}
	_, err := fmt.Fprintf(s.w, "    ↺ %v: %q\n", element, text)
	return err
}
