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

package cor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jaycherian/aws-go-face-index/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

// recorder appends its name to a shared log, applies fn to its input and
// writes the result to its output. A non-nil err is recorded instead.
type recorder struct {
	cor.BaseCommand
	log *[]string
	fn  func(in interface{}) interface{}
	err error
	// seen holds the Go context the command observed.
	seen context.Context
}

func newRecorder(name string, log *[]string, fn func(interface{}) interface{}) *recorder {
	return &recorder{BaseCommand: *cor.NewBaseCommand(name), log: log, fn: fn}
}

func (r *recorder) Execute(context cor.Context) {
	*r.log = append(*r.log, r.GetName())
	r.seen = context.GetContext()
	if r.err != nil {
		context.AddError(r.GetName(), r.err)
		return
	}
	context.Add(r.GetOutputParam(), r.fn(context.Get(r.GetInputParam())))
}

func appendTo(suffix string) func(interface{}) interface{} {
	return func(in interface{}) interface{} { return in.(string) + suffix }
}

func newContext() (cor.Context, context.Context) {
	parent := context.WithValue(context.Background(), ctxKey{}, "parent")
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(parent)
	return chCtx, parent
}

func TestChainPipesOutputToInput(t *testing.T) {
	var log []string
	chain := cor.NewBaseChain("pipeline")
	chain.AddCommand(newRecorder("a", &log, appendTo("-a")))
	chain.AddCommand(newRecorder("b", &log, appendTo("-b")))

	chCtx, parent := newContext()
	chCtx.Add(cor.CtxIn, "start")

	require.True(t, chain.IsExecutable(chCtx))
	chain.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, []string{"a", "b"}, log)
	assert.Equal(t, "start-a-b", chCtx.Get(cor.CtxIn))
	assert.Nil(t, chCtx.Get(cor.CtxOut))
	// The chain hands the caller's context back once it is done.
	assert.Equal(t, parent, chCtx.GetContext())
}

func TestChainCommandSeesDerivedContext(t *testing.T) {
	var log []string
	cmd := newRecorder("a", &log, appendTo(""))
	chain := cor.NewBaseChain("pipeline").AddCommand(cmd)

	chCtx, _ := newContext()
	chCtx.Add(cor.CtxIn, "x")
	chain.Execute(chCtx)

	require.NotNil(t, cmd.seen)
	assert.Equal(t, "parent", cmd.seen.Value(ctxKey{}))
}

func TestChainStopsAtFirstError(t *testing.T) {
	var log []string
	failing := newRecorder("b", &log, nil)
	failing.err = errors.New("b failed")

	chain := cor.NewBaseChain("pipeline")
	chain.AddCommand(newRecorder("a", &log, appendTo("-a")))
	chain.AddCommand(failing)
	chain.AddCommand(newRecorder("c", &log, appendTo("-c")))

	chCtx, _ := newContext()
	chCtx.Add(cor.CtxIn, "start")
	chain.Execute(chCtx)

	assert.Equal(t, []string{"a", "b"}, log)
	assert.True(t, chCtx.HasErrors())
	assert.EqualError(t, chCtx.Err(), "b failed")
}

func TestChainContinueOnFailure(t *testing.T) {
	var log []string
	first := newRecorder("a", &log, nil)
	first.err = errors.New("a failed")
	last := newRecorder("c", &log, nil)
	last.err = errors.New("c failed")

	chain := cor.NewBaseChain("pipeline").ContinueOnFailure(true)
	chain.AddCommand(first)
	chain.AddCommand(newRecorder("b", &log, appendTo("-b")))
	chain.AddCommand(last)

	chCtx, _ := newContext()
	chCtx.Add(cor.CtxIn, "start")
	chain.Execute(chCtx)

	assert.Equal(t, []string{"a", "b", "c"}, log)
	// b received the input a never consumed, and c's failure kept b's output.
	assert.Equal(t, "start-b", chCtx.Get(cor.CtxIn))
	assert.Len(t, chCtx.GetErrors(), 2)
	assert.Contains(t, chCtx.GetErrors(), "a")
	assert.Contains(t, chCtx.GetErrors(), "c")
	// Err reports errors in the order they were recorded.
	assert.EqualError(t, chCtx.Err(), "a failed")
}

func TestChainRecordsNotExecutable(t *testing.T) {
	var log []string
	needsInput := newRecorder("needs-input", &log, appendTo(""))
	needsInput.InputParamName = "missing"

	chain := cor.NewBaseChain("pipeline")
	chain.AddCommand(needsInput)
	chain.AddCommand(newRecorder("after", &log, appendTo("")))

	chCtx, _ := newContext()
	chCtx.Add(cor.CtxIn, "start")
	chain.Execute(chCtx)

	assert.Empty(t, log)
	assert.ErrorIs(t, chCtx.Err(), cor.ErrNotExecutable)
	assert.Contains(t, chCtx.GetErrors(), "needs-input")
}

func TestBaseContext(t *testing.T) {
	chCtx := cor.NewBaseContext()
	assert.Nil(t, chCtx.Err())
	assert.False(t, chCtx.HasErrors())

	chCtx.Add("k", 1)
	assert.Equal(t, 1, chCtx.Get("k"))
	chCtx.Remove("k")
	assert.Nil(t, chCtx.Get("k"))

	chCtx.AddError("x", errors.New("first"))
	chCtx.AddError("y", errors.New("second"))
	chCtx.AddError("x", errors.New("replaced"))
	assert.EqualError(t, chCtx.Err(), "replaced")
	assert.Len(t, chCtx.GetErrors(), 2)

	// A chain needs a Go context to run.
	assert.False(t, cor.NewBaseChain("empty").IsExecutable(cor.NewBaseContext()))
}
