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
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/copyedit/cmd/copyedit/opts"
	"github.com/walteh/copyedit/pkg/metrics"
	"github.com/walteh/copyedit/pkg/prefs"
	"github.com/walteh/copyedit/pkg/refdoc"
	"github.com/walteh/copyedit/pkg/server"
	"gitlab.com/tozd/go/errors"
)

// NewServeCmd creates the serve command
func NewServeCmd(load opts.Loader) *cobra.Command {
	var (
		port  int
		model string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local write-back server",
		Long: `Serve the HTTP API the in-page editor talks to. Writes, batch writes and
undo run against the project root; config, preferences and reference
documents are served alongside.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			o, err := load(ctx)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				o.Config.Port = port
			}
			if cmd.Flags().Changed("model") {
				o.Config.Model = model
			}
			if err := o.Config.Validate(); err != nil {
				return errors.Errorf("validating flags: %w", err)
			}

			docs := refdoc.New(ctx, o.Root)
			defer docs.Close()

			srv := server.New(ctx, o.Config, o.Engine, prefs.NewStore(o.Store), docs, metrics.New())

			pterm.DefaultHeader.WithFullWidth().Println("copyedit")
			pterm.DefaultBulletList.WithItems([]pterm.BulletListItem{
				{Level: 0, Text: fmt.Sprintf("root     %s", o.Root)},
				{Level: 0, Text: fmt.Sprintf("listen   http://%s", srv.Addr())},
				{Level: 0, Text: fmt.Sprintf("config   %s", location(o.Config.Location()))},
				{Level: 0, Text: fmt.Sprintf("metrics  http://%s/metrics", srv.Addr())},
			}).Render()

			if err := srv.Serve(ctx); err != nil {
				return errors.Errorf("serving: %w", err)
			}

			o.Console.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config and $COPYEDIT_PORT)")
	cmd.Flags().StringVar(&model, "model", "", "model name reported to the editor")

	return cmd
}

func location(path string) string {
	if path == "" {
		return "defaults"
	}
	return path
}
