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

package model_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jaycherian/aws-go-face-index/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestKindStatusCode(t *testing.T) {
	want := map[model.Kind]int{
		model.KindUnsupportedSource:      401,
		model.KindThrottled:              401,
		model.KindCapacityExceeded:       401,
		model.KindQuotaExceeded:          401,
		model.KindAccessDenied:           403,
		model.KindResourceNotFound:       404,
		model.KindInvalidObjectReference: 406,
		model.KindInvalidParameter:       406,
		model.KindImageTooLarge:          406,
		model.KindInvalidImageFormat:     406,
		model.KindMissingRecords:         500,
		model.KindInternalServiceError:   500,
	}
	for kind, code := range want {
		assert.Equal(t, code, kind.StatusCode(), kind.String())
	}
	assert.Equal(t, "Kind(99)", model.Kind(99).String())
}

func TestKindOf(t *testing.T) {
	inner := errors.New("boom")
	classified := model.NewClassifiedError(model.KindAccessDenied, "index-faces", inner)

	kind, ok := model.KindOf(fmt.Errorf("outer: %w", classified))
	assert.True(t, ok)
	assert.Equal(t, model.KindAccessDenied, kind)
	assert.ErrorIs(t, classified, inner)
	assert.Equal(t, "index-faces: AccessDenied: boom", classified.Error())

	_, ok = model.KindOf(&model.UnclassifiedError{Op: "write-to-dynamodb", Err: inner})
	assert.False(t, ok)
}

func TestOutcome(t *testing.T) {
	ok := model.Succeeded()
	assert.True(t, ok.IsSuccess())

	out, err := json.Marshal(ok)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"statusCode": 200, "data": null}`, string(out))

	failed := model.Failed(model.KindResourceNotFound)
	assert.False(t, failed.IsSuccess())
	assert.Equal(t, 404, failed.StatusCode)

	var nilOutcome *model.Outcome
	assert.False(t, nilOutcome.IsSuccess())
}
