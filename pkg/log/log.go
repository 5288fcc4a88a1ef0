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

package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	rewriteIndent = 4  // spaces to indent rewrite entries
	locationWidth = 35 // width for file:line
	matchesWidth  = 12 // width for the match count
	statusWidth   = 15 // width for status text
)

// 🎯 RewriteLine is one rewrite attempt as shown on the console
type RewriteLine struct {
	File       string // project relative file, empty when nothing was written
	Line       int    // 1-based line of the span
	MatchCount int    // candidates found
	Status     string // short status text
	Success    bool   // the source was written
	Reverted   bool   // this was an undo
	Skipped    bool   // nothing was attempted for the source
}

// 📦 BatchOperation describes a group of rewrites run as one action
type BatchOperation struct {
	Name  string // where the edits came from
	Root  string // project root
	Edits int    // number of edits in the batch
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	current *BatchOperation
	lines   []RewriteLine
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatRewrite formats a rewrite for display
func (l *Logger) formatRewrite(r RewriteLine) string {
	var symbol rune
	var symbolColor color.Attribute
	switch {
	case r.Skipped:
		symbol = '•'
		symbolColor = color.FgCyan
	case !r.Success:
		symbol = '✗'
		symbolColor = color.FgRed
	case r.Reverted:
		symbol = '↺'
		symbolColor = color.FgBlue
	default:
		symbol = '✓'
		symbolColor = color.FgGreen
	}

	location := "-"
	if r.File != "" {
		location = fmt.Sprintf("%s:%d", r.File, r.Line)
	}

	matches := fmt.Sprintf("%d match", r.MatchCount)
	if r.MatchCount != 1 {
		matches += "es"
	}
	matchColor := color.FgWhite
	if r.MatchCount > 1 {
		matchColor = color.FgYellow
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", rewriteIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", locationWidth, location),
		color.New(matchColor).Sprint(fmt.Sprintf("%-*s", matchesWidth, matches)),
		fmt.Sprintf("%-*s", statusWidth, r.Status))
}

// 📝 LogRewrite logs one rewrite attempt
func (l *Logger) LogRewrite(ctx context.Context, r RewriteLine) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines, r)

	fmt.Fprintln(l.console, l.formatRewrite(r))

	l.zlog.Info().
		Str("file", r.File).
		Int("line", r.Line).
		Int("matches", r.MatchCount).
		Str("status", r.Status).
		Bool("success", r.Success).
		Bool("reverted", r.Reverted).
		Bool("skipped", r.Skipped).
		Msg("rewrite")
}

// 📝 StartBatch starts a new batch of rewrites
func (l *Logger) StartBatch(ctx context.Context, op BatchOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &op
	l.lines = nil

	fmt.Fprintf(l.console, "[editing %s]\n",
		color.New(color.FgCyan).Sprint(op.Root))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.Name),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprintf("%d edits", op.Edits))

	l.zlog.Info().
		Str("batch", op.Name).
		Str("root", op.Root).
		Int("edits", op.Edits).
		Msg("starting batch")
}

// 📝 EndBatch ends the current batch and returns how many rewrites failed
func (l *Logger) EndBatch(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return 0
	}

	failed := 0
	for _, r := range l.lines {
		if !r.Success && !r.Skipped {
			failed++
		}
	}

	l.zlog.Info().
		Str("batch", l.current.Name).
		Int("rewrites", len(l.lines)).
		Int("failed", failed).
		Msg("batch complete")

	l.current = nil
	l.lines = nil
	return failed
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("copyedit")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
