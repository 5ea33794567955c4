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

package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"golang.org/x/time/rate"
)

// QuotaAwareFaceIndexer paces IndexFaces calls so that bursts of uploads
// stay under the account's transactions-per-second quota. It only waits; a
// call that fails is returned to the caller untouched and never retried.
type QuotaAwareFaceIndexer struct {
	api     FaceIndexAPI
	limiter *rate.Limiter
}

// NewQuotaAwareFaceIndexer wraps api with a limiter allowing
// requestsPerSecond calls per second with a matching burst. A value of zero
// or less disables pacing.
func NewQuotaAwareFaceIndexer(api FaceIndexAPI, requestsPerSecond int) *QuotaAwareFaceIndexer {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
	return &QuotaAwareFaceIndexer{api: api, limiter: limiter}
}

// IndexFaces waits for a token and then delegates to the wrapped client.
func (q *QuotaAwareFaceIndexer) IndexFaces(ctx context.Context, params *rekognition.IndexFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error) {
	if err := q.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("index faces rate limiter: %w", err)
	}
	return q.api.IndexFaces(ctx, params, optFns...)
}
