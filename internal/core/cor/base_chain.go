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

package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BaseChain runs its commands in order against one shared Context.
//
// Each command gets a child span of the chain span. Execution stops at the
// first recorded error unless ContinueOnFailure(true) was set. A command
// whose IsExecutable check fails is not skipped silently: ErrNotExecutable
// is recorded against it, which stops the chain like any other failure.
//
// Between commands the chain pipes data by moving the value under CtxOut to
// CtxIn, so a command that uses the default keys receives the previous
// command's output. A command that fails without writing CtxOut leaves CtxIn
// untouched, so with ContinueOnFailure(true) the next command still sees the
// last good value.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

// NewBaseChain returns an empty chain named name.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable only requires a Go context; each command checks its own inputs.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute runs the commands in order.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()

	// Leave the caller's Go context in place once the chain returns.
	defer chCtx.SetContext(parentCtx)

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			break
		}

		commandCtx, commandSpan := c.Tracer.Start(outerCtx, command.GetName())
		commandSpan.SetAttributes(attribute.String("cor.chain", c.GetName()))

		if command.IsExecutable(chCtx) {
			chCtx.SetContext(commandCtx)
			command.Execute(chCtx)
			chCtx.SetContext(outerCtx)
		} else {
			chCtx.AddError(command.GetName(), fmt.Errorf("%w: %s", ErrNotExecutable, command.GetName()))
		}

		failed := chCtx.GetErrors()[command.GetName()]
		if failed != nil {
			commandSpan.RecordError(failed)
			commandSpan.SetStatus(codes.Error, failed.Error())
		} else {
			commandSpan.SetStatus(codes.Ok, "")
		}
		commandSpan.End()

		// flip-flop
		if out := chCtx.Get(CtxOut); out != nil {
			chCtx.Add(CtxIn, out)
		} else if failed == nil {
			chCtx.Remove(CtxIn)
		}
		chCtx.Remove(CtxOut)
	}

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed")
	} else {
		chainSpan.SetStatus(codes.Ok, "")
	}
}
