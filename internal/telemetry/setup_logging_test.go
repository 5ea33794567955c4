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

package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/jaycherian/aws-go-face-index/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestLogHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(telemetry.NewLogHandler(&buf, slog.LevelInfo))

	logger.Info("indexed faces", "faces", 2)

	line := decode(t, &buf)
	assert.Equal(t, "indexed faces", line["message"])
	assert.Contains(t, line, "timestamp")
	assert.NotContains(t, line, "msg")
	assert.NotContains(t, line, telemetry.TraceIDKey)
	assert.EqualValues(t, 2, line["faces"])
}

func TestLogHandlerAddsSpanContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	logger := slog.New(telemetry.NewLogHandler(&buf, slog.LevelInfo)).With("component", "workflow")
	logger.InfoContext(ctx, "inside span")

	line := decode(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), line[telemetry.TraceIDKey])
	assert.Equal(t, span.SpanContext().SpanID().String(), line[telemetry.SpanIDKey])
	assert.Equal(t, true, line[telemetry.TraceSampledKey])
	assert.Equal(t, "workflow", line["component"])
}

func TestLogHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(telemetry.NewLogHandler(&buf, level))

	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	level.Set(slog.LevelDebug)
	logger.Debug("shown")
	assert.Equal(t, "shown", decode(t, &buf)["message"])
}
