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

package commands_test

import (
	"testing"

	"github.com/jaycherian/aws-go-face-index/internal/core/commands"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObjectKey(t *testing.T) {
	cases := map[string]string{
		"img%2B1.jpg":       "img+1.jpg",
		"team+photo.jpg":    "team photo.jpg",
		"caf%C3%A9%2Fa.png": "café/a.png",
		"plain.jpg":         "plain.jpg",
	}
	for encoded, want := range cases {
		ref := &model.ObjectRef{Bucket: "b", EncodedKey: encoded}
		require.NoError(t, commands.DecodeObjectKey(ref), encoded)
		assert.Equal(t, want, ref.Key)
	}

	// A reference built with a decoded key is left alone.
	ref := &model.ObjectRef{Bucket: "b", Key: "already.jpg"}
	require.NoError(t, commands.DecodeObjectKey(ref))
	assert.Equal(t, "already.jpg", ref.Key)
}

func TestObjectKeyDecoder(t *testing.T) {
	decoder := commands.NewObjectKeyDecoder("decode-object-key")
	ref := &model.ObjectRef{Bucket: "b", EncodedKey: "img%2B1.jpg"}
	chCtx := newChainContext(model.ParamObject, ref)

	require.True(t, decoder.IsExecutable(chCtx))
	decoder.Execute(chCtx)

	require.NoError(t, chCtx.Err())
	assert.Equal(t, "img+1.jpg", ref.Key)
	assert.Same(t, ref, chCtx.Get(model.ParamObject))
}

func TestObjectKeyDecoderMalformedEscape(t *testing.T) {
	for _, encoded := range []string{"bad%zzkey", "100%.jpg"} {
		decoder := commands.NewObjectKeyDecoder("decode-object-key")
		ref := &model.ObjectRef{Bucket: "b", EncodedKey: encoded}
		chCtx := newChainContext(model.ParamObject, ref)

		decoder.Execute(chCtx)

		requireKind(t, chCtx.Err(), model.KindInvalidObjectReference)
		assert.Equal(t, 406, model.KindInvalidObjectReference.StatusCode())
		assert.Empty(t, ref.Key)
	}
}
