// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry sets up logging, tracing and metrics. Logs are JSON
// lines on stdout, which is what both Lambda and CloudWatch agents ingest,
// and carry the active trace and span ids so they can be joined with traces.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// Attribute keys added to every record logged inside a span.
const (
	TraceIDKey      = "trace_id"
	SpanIDKey       = "span_id"
	TraceSampledKey = "trace_sampled"
)

var logLevel = new(slog.LevelVar)

// spanContextLogHandler adds the ids of the span found in the record's
// context, if any.
type spanContextLogHandler struct {
	slog.Handler
}

func handlerWithSpanContext(handler slog.Handler) *spanContextLogHandler {
	return &spanContextLogHandler{Handler: handler}
}

func (t *spanContextLogHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.String(TraceIDKey, s.TraceID().String()),
			slog.String(SpanIDKey, s.SpanID().String()),
			slog.Bool(TraceSampledKey, s.TraceFlags().IsSampled()),
		)
	}
	return t.Handler.Handle(ctx, record)
}

func (t *spanContextLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithAttrs(attrs))
}

func (t *spanContextLogHandler) WithGroup(name string) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithGroup(name))
}

// replacer renames the built-in keys to the ones used by Lambda's JSON log format.
func replacer(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// NewLogHandler returns the JSON handler used by the application, writing to w.
func NewLogHandler(w io.Writer, level slog.Leveler) slog.Handler {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replacer,
	})
	return handlerWithSpanContext(jsonHandler)
}

// SetupLogging installs the JSON handler as the default slog logger at INFO.
// Output from the standard log package is routed through it as well.
func SetupLogging() {
	logLevel.Set(slog.LevelInfo)
	slog.SetDefault(slog.New(NewLogHandler(os.Stdout, logLevel)))
}

// SetDebug switches the default logger between INFO and DEBUG.
func SetDebug(debug bool) {
	if debug {
		logLevel.Set(slog.LevelDebug)
		return
	}
	logLevel.Set(slog.LevelInfo)
}
