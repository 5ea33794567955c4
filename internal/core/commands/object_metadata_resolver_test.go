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
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"github.com/jaycherian/aws-go-face-index/internal/core/commands"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
	test "github.com/jaycherian/aws-go-face-index/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusError carries only an HTTP status, like a bare S3 HEAD failure.
type statusError struct{ status int }

func (e *statusError) Error() string       { return "http error" }
func (e *statusError) HTTPStatusCode() int { return e.status }

func TestStripMetadataPrefix(t *testing.T) {
	out := commands.StripMetadataPrefix(map[string]string{
		"x-amz-meta-name": "Ada",
		"team":            "eng",
	}, "x-amz-meta-")
	assert.Equal(t, model.ObjectMetadata{"name": "Ada", "team": "eng"}, out)

	empty := commands.StripMetadataPrefix(nil, "x-amz-meta-")
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestObjectMetadataResolver(t *testing.T) {
	storage := test.NewFakeStorage().AddObject("b", "img+1.jpg", map[string]string{"x-amz-meta-name": "Ada"})
	resolver := commands.NewObjectMetadataResolver("resolve-object-metadata", storage, "x-amz-meta-", true)

	chCtx := newChainContext(model.ParamObject, &model.ObjectRef{Bucket: "b", Key: "img+1.jpg"})
	require.True(t, resolver.IsExecutable(chCtx))
	resolver.Execute(chCtx)

	require.NoError(t, chCtx.Err())
	assert.Equal(t, model.ObjectMetadata{"name": "Ada"}, chCtx.Get(model.ParamMetadata))
	require.Len(t, storage.Heads, 1)
	assert.Equal(t, "img+1.jpg", aws.ToString(storage.Heads[0].Key))
}

// The SDK returns metadata keys with the prefix already removed.
func TestObjectMetadataResolverUnprefixedKeys(t *testing.T) {
	storage := test.NewFakeStorage().AddObject("b", "sdk.jpg", map[string]string{"name": "Ada", "team": "eng"})
	resolver := commands.NewObjectMetadataResolver("resolve-object-metadata", storage, "x-amz-meta-", false)

	chCtx := newChainContext(model.ParamObject, &model.ObjectRef{Bucket: "b", Key: "sdk.jpg"})
	resolver.Execute(chCtx)

	require.NoError(t, chCtx.Err())
	assert.Equal(t, model.ObjectMetadata{"name": "Ada", "team": "eng"}, chCtx.Get(model.ParamMetadata))
}

func TestObjectMetadataResolverWithoutMetadata(t *testing.T) {
	storage := test.NewFakeStorage().AddObject("b", "plain.jpg", nil)
	resolver := commands.NewObjectMetadataResolver("resolve-object-metadata", storage, "x-amz-meta-", false)

	chCtx := newChainContext(model.ParamObject, &model.ObjectRef{Bucket: "b", Key: "plain.jpg"})
	resolver.Execute(chCtx)

	require.NoError(t, chCtx.Err())
	assert.Equal(t, model.ObjectMetadata{}, chCtx.Get(model.ParamMetadata))
}

func TestObjectMetadataResolverFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want model.Kind
	}{
		{"denied code", &smithy.GenericAPIError{Code: "AccessDenied"}, model.KindAccessDenied},
		{"slow down", &smithy.GenericAPIError{Code: "SlowDown"}, model.KindThrottled},
		{"internal code", &smithy.GenericAPIError{Code: "InternalError"}, model.KindInternalServiceError},
		{"bare 403", &statusError{status: 403}, model.KindAccessDenied},
		{"bare 404", &statusError{status: 404}, model.KindInvalidObjectReference},
		{"bare 503", &statusError{status: 503}, model.KindThrottled},
		{"bare 500", &statusError{status: 500}, model.KindInternalServiceError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			storage := test.NewFakeStorage()
			storage.Errs["b/k.jpg"] = tc.err
			resolver := commands.NewObjectMetadataResolver("resolve-object-metadata", storage, "x-amz-meta-", false)

			chCtx := newChainContext(model.ParamObject, &model.ObjectRef{Bucket: "b", Key: "k.jpg"})
			resolver.Execute(chCtx)

			requireKind(t, chCtx.Err(), tc.want)
			assert.Nil(t, chCtx.Get(model.ParamMetadata))
		})
	}

	// A missing object is reported as a bad reference.
	resolver := commands.NewObjectMetadataResolver("resolve-object-metadata", test.NewFakeStorage(), "x-amz-meta-", false)
	chCtx := newChainContext(model.ParamObject, &model.ObjectRef{Bucket: "b", Key: "gone.jpg"})
	resolver.Execute(chCtx)
	requireKind(t, chCtx.Err(), model.KindInvalidObjectReference)

	storage := test.NewFakeStorage()
	storage.Errs["b/k.jpg"] = errors.New("connection reset")
	resolver = commands.NewObjectMetadataResolver("resolve-object-metadata", storage, "x-amz-meta-", false)
	chCtx = newChainContext(model.ParamObject, &model.ObjectRef{Bucket: "b", Key: "k.jpg"})
	resolver.Execute(chCtx)
	var unclassified *model.UnclassifiedError
	assert.ErrorAs(t, chCtx.Err(), &unclassified)
}
