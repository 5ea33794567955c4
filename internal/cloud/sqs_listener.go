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
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultWaitTimeSeconds     int32 = 20
	defaultMaxNumberOfMessages int32 = 10
	receiveErrorBackoff              = 5 * time.Second
)

// NotificationProcessor runs the face indexing workflow on one raw S3
// notification.
type NotificationProcessor interface {
	Process(ctx context.Context, raw []byte) (*model.Outcome, error)
}

// SQSListener long-polls a queue that S3 publishes ObjectCreated
// notifications to and hands each message body to a NotificationProcessor.
//
// A message is deleted only when the processor reports a 200 outcome.
// Classified failures and fatal errors leave the message on the queue, so
// the queue's redrive policy decides how often it is retried and where it
// ends up.
type SQSListener struct {
	client       QueueAPI
	subscription QueueSubscription
	processor    NotificationProcessor
}

// NewSQSListener returns a listener for sub. processor may be nil and set
// later with SetProcessor.
func NewSQSListener(client QueueAPI, sub QueueSubscription, processor NotificationProcessor) *SQSListener {
	if sub.WaitTimeSeconds <= 0 {
		sub.WaitTimeSeconds = defaultWaitTimeSeconds
	}
	if sub.MaxNumberOfMessages <= 0 {
		sub.MaxNumberOfMessages = defaultMaxNumberOfMessages
	}
	return &SQSListener{client: client, subscription: sub, processor: processor}
}

// SetProcessor attaches processor if none is set yet.
func (l *SQSListener) SetProcessor(processor NotificationProcessor) {
	if l.processor == nil {
		l.processor = processor
	}
}

// Listen polls in a background goroutine until ctx is cancelled.
func (l *SQSListener) Listen(ctx context.Context) {
	slog.Info("listening", "queue_url", l.subscription.URL)
	go func() {
		for {
			if ctx.Err() != nil {
				slog.Info("listener stopped", "queue_url", l.subscription.URL)
				return
			}
			if _, err := l.Poll(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				slog.Error("error receiving messages", "queue_url", l.subscription.URL, "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(receiveErrorBackoff):
				}
			}
		}
	}()
}

// Poll performs one receive call and processes every message it returns.
// It returns the number of messages deleted.
func (l *SQSListener) Poll(ctx context.Context) (int, error) {
	if l.processor == nil {
		return 0, errors.New("sqs listener has no processor")
	}
	out, err := l.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(l.subscription.URL),
		MaxNumberOfMessages: l.subscription.MaxNumberOfMessages,
		WaitTimeSeconds:     l.subscription.WaitTimeSeconds,
		VisibilityTimeout:   l.subscription.VisibilityTimeout,
	})
	if err != nil {
		return 0, err
	}

	tracer := otel.Tracer("message-listener")
	deleted := 0
	for _, msg := range out.Messages {
		spanCtx, span := tracer.Start(ctx, "receive-message")
		span.SetAttributes(attribute.String("messaging.message.id", aws.ToString(msg.MessageId)))

		outcome, err := l.processor.Process(spanCtx, []byte(aws.ToString(msg.Body)))
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, "fatal")
			slog.ErrorContext(spanCtx, "notification processing failed", "message_id", aws.ToString(msg.MessageId), "error", err)
		case !outcome.IsSuccess():
			span.SetStatus(codes.Error, "failed")
			slog.WarnContext(spanCtx, "notification not processed, leaving on queue",
				"message_id", aws.ToString(msg.MessageId), "status_code", outcome.StatusCode)
		default:
			_, derr := l.client.DeleteMessage(spanCtx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(l.subscription.URL),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if derr != nil {
				span.RecordError(derr)
				span.SetStatus(codes.Error, "delete failed")
				slog.ErrorContext(spanCtx, "failed to delete message", "message_id", aws.ToString(msg.MessageId), "error", derr)
			} else {
				span.SetStatus(codes.Ok, "success")
				deleted++
			}
		}
		span.End()
	}
	return deleted, nil
}
