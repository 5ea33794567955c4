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

package cloud_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/jaycherian/aws-go-face-index/internal/cloud"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
	test "github.com/jaycherian/aws-go-face-index/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// processorFunc answers each body from a fixed table.
type processorFunc func(body string) (*model.Outcome, error)

func (f processorFunc) Process(_ context.Context, raw []byte) (*model.Outcome, error) {
	return f(string(raw))
}

func message(id, body string) sqstypes.Message {
	return sqstypes.Message{MessageId: aws.String(id), ReceiptHandle: aws.String("rh-" + id), Body: aws.String(body)}
}

func TestPollDeletesOnlySuccessfulMessages(t *testing.T) {
	queue := &test.FakeQueue{Messages: []sqstypes.Message{
		message("1", "ok"),
		message("2", "denied"),
		message("3", "fatal"),
		message("4", "ok"),
	}}
	processor := processorFunc(func(body string) (*model.Outcome, error) {
		switch body {
		case "ok":
			return model.Succeeded(), nil
		case "denied":
			return model.Failed(model.KindAccessDenied), nil
		default:
			return nil, errors.New("unclassified")
		}
	})

	listener := cloud.NewSQSListener(queue, cloud.QueueSubscription{URL: "http://queue"}, processor)
	deleted, err := listener.Poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, deleted)
	assert.Equal(t, []string{"rh-1", "rh-4"}, queue.Deleted)

	require.Len(t, queue.Receives, 1)
	in := queue.Receives[0]
	assert.Equal(t, "http://queue", aws.ToString(in.QueueUrl))
	assert.Equal(t, int32(20), in.WaitTimeSeconds)
	assert.Equal(t, int32(10), in.MaxNumberOfMessages)
}

func TestPollReceiveError(t *testing.T) {
	queue := &test.FakeQueue{Err: errors.New("queue unavailable")}
	listener := cloud.NewSQSListener(queue, cloud.QueueSubscription{URL: "http://queue", WaitTimeSeconds: 1}, nil)

	// No processor attached yet.
	_, err := listener.Poll(context.Background())
	assert.Error(t, err)
	assert.Empty(t, queue.Receives)

	listener.SetProcessor(processorFunc(func(string) (*model.Outcome, error) { return model.Succeeded(), nil }))
	_, err = listener.Poll(context.Background())
	assert.EqualError(t, err, "queue unavailable")
	assert.Equal(t, int32(1), queue.Receives[0].WaitTimeSeconds)
}
