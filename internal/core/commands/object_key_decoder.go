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
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jaycherian/aws-go-face-index/internal/core/cor"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
)

// ObjectKeyDecoder percent-decodes the key of the current object, reading
// '+' as a space the way S3 encodes keys in notifications. It runs first in
// the per-object chain so that a malformed key fails only its own record;
// records before it have already been indexed and stored.
type ObjectKeyDecoder struct {
	cor.BaseCommand
}

// NewObjectKeyDecoder is the constructor for ObjectKeyDecoder.
//
// Inputs:
//   - name: A string name for this command instance.
//
// Outputs:
//   - *ObjectKeyDecoder: reads model.ParamObject and fills in its Key.
func NewObjectKeyDecoder(name string) *ObjectKeyDecoder {
	out := &ObjectKeyDecoder{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = model.ParamObject
	out.OutputParamName = model.ParamObject
	return out
}

// Execute decodes the key of the object under model.ParamObject.
//
// Inputs:
//   - context: holds the *model.ObjectRef under model.ParamObject.
//
// Outputs:
//   - the same reference with Key set, or a KindInvalidObjectReference
//     error when the encoded key carries a malformed escape.
func (c *ObjectKeyDecoder) Execute(context cor.Context) {
	ctx := context.GetContext()
	ref := context.Get(c.GetInputParam()).(*model.ObjectRef)

	if err := DecodeObjectKey(ref); err != nil {
		slog.WarnContext(ctx, "malformed object key", "bucket", ref.Bucket, "encoded_key", ref.EncodedKey)
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), model.NewClassifiedError(model.KindInvalidObjectReference, c.GetName(), err))
		return
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), ref)
}

// DecodeObjectKey sets ref.Key from ref.EncodedKey. A reference without an
// encoded key is left as it is.
func DecodeObjectKey(ref *model.ObjectRef) error {
	if ref.EncodedKey == "" {
		return nil
	}
	key, err := url.QueryUnescape(ref.EncodedKey)
	if err != nil {
		return fmt.Errorf("malformed object key %q in bucket %s: %w", ref.EncodedKey, ref.Bucket, err)
	}
	ref.Key = key
	return nil
}
