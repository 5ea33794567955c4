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

package model

import "net/http"

// Outcome is the terminal result of one workflow invocation, serialized as
// {"statusCode": <int>, "data": <any|null>}.
type Outcome struct {
	StatusCode int `json:"statusCode"`
	Data       any `json:"data"`
}

// Succeeded returns the outcome reported when every record was processed,
// including the cases with zero records or zero faces.
func Succeeded() *Outcome {
	return &Outcome{StatusCode: http.StatusOK}
}

// Failed returns the outcome for a classified failure.
func Failed(kind Kind) *Outcome {
	return &Outcome{StatusCode: kind.StatusCode()}
}

// IsSuccess reports whether the outcome carries a 200.
func (o *Outcome) IsSuccess() bool {
	return o != nil && o.StatusCode == http.StatusOK
}
