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

// Package cor (Chain of Responsibility) is the small execution framework the
// face indexing workflow is built on. A workflow is a Chain of Commands that
// share one Context; commands read their inputs from the context, record
// failures on it instead of returning them, and write their outputs back.
package cor

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the default keys used to pipe data between commands.
// After every command a BaseChain moves the value in CtxOut to CtxIn.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// ErrNotExecutable is recorded when a chain reaches a command whose inputs
// are missing from the context.
var ErrNotExecutable = errors.New("command not executable")

// Context is the state shared by the commands of a single execution.
// Implementations are not safe for concurrent use; each execution gets its own.
type Context interface {
	// SetContext replaces the Go context carrying deadlines and the active span.
	SetContext(ctx context.Context)

	// GetContext returns the current Go context.
	GetContext() context.Context

	// Add stores a value under key.
	Add(key string, value interface{}) Context

	// Get returns the value stored under key, or nil.
	Get(key string) interface{}

	// Remove deletes key.
	Remove(key string)

	// AddError records err against the command named key.
	AddError(key string, err error)

	// GetErrors returns every recorded error keyed by command name.
	GetErrors() map[string]error

	// HasErrors reports whether any error was recorded.
	HasErrors() bool

	// Err returns the first recorded error, or nil.
	Err() error
}

// Executable is anything that runs against a Context.
type Executable interface {
	Execute(context Context)
}

// Command is one unit of work in a chain.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable checks the context holds everything Execute needs.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered list of commands and is itself a Command, so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure controls whether later commands still run once an
	// error has been recorded. The default is to stop.
	ContinueOnFailure(bool) Chain

	AddCommand(command Command) Chain
}
