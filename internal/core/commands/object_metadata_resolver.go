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

package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/jaycherian/aws-go-face-index/internal/cloud"
	"github.com/jaycherian/aws-go-face-index/internal/core/cor"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
)

// ObjectMetadataResolver reads the user metadata of the current object with
// a single HeadObject call and strips the transport prefix from every key.
// An object without metadata yields an empty map; an object that does not
// exist is a failure.
//
// aws-sdk-go-v2 already removes the x-amz-meta- prefix when it fills
// HeadObjectOutput.Metadata, so with the SDK client the strip is a no-op.
// It matters for clients that hand back the raw header names, such as some
// S3-compatible gateways.
type ObjectMetadataResolver struct {
	cor.BaseCommand
	client cloud.ObjectHeadAPI
	prefix string
	debug  bool
}

// NewObjectMetadataResolver is the constructor for ObjectMetadataResolver.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: the S3 client used for HeadObject.
//   - prefix: the prefix removed from metadata keys, normally "x-amz-meta-".
//   - debug: when true the resolved metadata is logged at debug level.
//
// Outputs:
//   - *ObjectMetadataResolver: reads model.ParamObject and writes model.ParamMetadata.
func NewObjectMetadataResolver(name string, client cloud.ObjectHeadAPI, prefix string, debug bool) *ObjectMetadataResolver {
	out := &ObjectMetadataResolver{BaseCommand: *cor.NewBaseCommand(name), client: client, prefix: prefix, debug: debug}
	out.InputParamName = model.ParamObject
	out.OutputParamName = model.ParamMetadata
	return out
}

// Execute resolves the metadata of the object under model.ParamObject.
func (c *ObjectMetadataResolver) Execute(context cor.Context) {
	ctx := context.GetContext()
	ref := context.Get(c.GetInputParam()).(*model.ObjectRef)

	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), classifyStorageError(c.GetName(), ref, err))
		return
	}

	metadata := StripMetadataPrefix(out.Metadata, c.prefix)
	if c.debug {
		slog.DebugContext(ctx, "resolved object metadata", "object", ref.String(), "metadata", metadata)
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), metadata)
}

// StripMetadataPrefix copies in, removing prefix from every key that carries
// it. Keys without the prefix are copied unchanged. The result is never nil.
func StripMetadataPrefix(in map[string]string, prefix string) model.ObjectMetadata {
	out := make(model.ObjectMetadata, len(in))
	for k, v := range in {
		out[strings.TrimPrefix(k, prefix)] = v
	}
	return out
}

// classifyStorageError maps an S3 failure onto the workflow's failure kinds.
// S3 reports HeadObject failures mostly through bare HTTP status codes, so
// the status is consulted when no typed or coded error matches.
func classifyStorageError(op string, ref *model.ObjectRef, err error) error {
	wrapped := fmt.Errorf("head object %s: %w", ref, err)

	var notFound *s3types.NotFound
	var noSuchKey *s3types.NoSuchKey
	var noSuchBucket *s3types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return model.NewClassifiedError(model.KindInvalidObjectReference, op, wrapped)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return model.NewClassifiedError(model.KindInvalidObjectReference, op, wrapped)
		case "AccessDenied", "Forbidden":
			return model.NewClassifiedError(model.KindAccessDenied, op, wrapped)
		case "SlowDown", "ThrottlingException":
			return model.NewClassifiedError(model.KindThrottled, op, wrapped)
		case "InternalError", "ServiceUnavailable":
			return model.NewClassifiedError(model.KindInternalServiceError, op, wrapped)
		}
	}

	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		switch status := httpErr.HTTPStatusCode(); {
		case status == http.StatusNotFound:
			return model.NewClassifiedError(model.KindInvalidObjectReference, op, wrapped)
		case status == http.StatusForbidden:
			return model.NewClassifiedError(model.KindAccessDenied, op, wrapped)
		case status == http.StatusServiceUnavailable:
			return model.NewClassifiedError(model.KindThrottled, op, wrapped)
		case status >= http.StatusInternalServerError:
			return model.NewClassifiedError(model.KindInternalServiceError, op, wrapped)
		}
	}

	return &model.UnclassifiedError{Op: op, Err: wrapped}
}
