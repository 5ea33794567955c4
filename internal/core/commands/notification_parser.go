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

// Package commands holds the Commands that make up the face indexing
// workflow. This file defines the first of them, which turns the raw S3
// notification into a model.Notification.
//
// Logic Flow:
//
//  1. The raw payload ([]byte, json.RawMessage or string) is read from the input parameter.
//  2. A payload without a Records key is rejected with KindMissingRecords. An
//     empty Records list is valid and produces a notification with no records.
//  3. The first record must come from aws:s3, otherwise the notification is
//     rejected with KindUnsupportedSource.
//  4. An event name other than ObjectCreated:Put is only logged.
//  5. Object keys are kept as they appear on the wire. They are decoded one
//     record at a time by ObjectKeyDecoder, so a malformed key only fails its
//     own record.
package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jaycherian/aws-go-face-index/internal/core/cor"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
)

const (
	// ExpectedEventSource is the only accepted eventSource.
	ExpectedEventSource = "aws:s3"
	// ExpectedEventName is the event the workflow is deployed for. Other
	// names are accepted with a warning.
	ExpectedEventName = "ObjectCreated:Put"
)

// s3Notification mirrors events.S3Event with a pointer so that a missing
// Records key can be told apart from an empty list.
type s3Notification struct {
	Records *[]s3Record `json:"Records"`
}

// s3Record is the part of events.S3EventRecord the workflow reads. The
// object is decoded by hand: events.S3Object unescapes the key while
// unmarshalling and fails the whole payload on a malformed escape.
type s3Record struct {
	EventSource string `json:"eventSource"`
	EventName   string `json:"eventName"`
	S3          struct {
		Bucket events.S3Bucket `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// NotificationParser decodes an S3 notification into a model.Notification.
type NotificationParser struct {
	cor.BaseCommand
}

// NewNotificationParser is the constructor for NotificationParser.
//
// Inputs:
//   - name: A string name for this command instance.
//
// Outputs:
//   - *NotificationParser: the command; its output is also stored under
//     model.ParamNotification.
func NewNotificationParser(name string) *NotificationParser {
	return &NotificationParser{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses the notification found under the input parameter.
func (c *NotificationParser) Execute(context cor.Context) {
	ctx := context.GetContext()

	raw, err := payloadBytes(context.Get(c.GetInputParam()))
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), &model.UnclassifiedError{Op: c.GetName(), Err: err})
		return
	}

	notification, err := ParseNotification(raw)
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), err)
		return
	}

	if len(notification.Records) == 0 {
		slog.InfoContext(ctx, "notification has no records, nothing to do")
	} else if notification.EventName != ExpectedEventName {
		slog.WarnContext(ctx, "unexpected event name, processing anyway",
			"expected", ExpectedEventName, "event_name", notification.EventName)
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(model.ParamNotification, notification)
	context.Add(c.GetOutputParam(), notification)
}

// ParseNotification is the pure parsing step used by Execute. Errors it
// returns are either *model.ClassifiedError or *model.UnclassifiedError.
func ParseNotification(raw []byte) (*model.Notification, error) {
	var in s3Notification
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, &model.UnclassifiedError{Op: "parse-notification", Err: fmt.Errorf("failed to unmarshal S3 notification: %w", err)}
	}
	if in.Records == nil {
		return nil, model.NewClassifiedError(model.KindMissingRecords, "parse-notification", model.ErrMissingRecords)
	}

	records := *in.Records
	out := &model.Notification{Records: make([]*model.ObjectRef, 0, len(records))}
	if len(records) == 0 {
		return out, nil
	}

	out.Source = records[0].EventSource
	out.EventName = records[0].EventName
	if out.Source != ExpectedEventSource {
		return nil, model.NewClassifiedError(model.KindUnsupportedSource, "parse-notification",
			fmt.Errorf("%w: got %q", model.ErrUnsupportedSource, out.Source))
	}

	for _, r := range records {
		out.Records = append(out.Records, &model.ObjectRef{Bucket: r.S3.Bucket.Name, EncodedKey: r.S3.Object.Key})
	}
	return out, nil
}

func payloadBytes(in interface{}) ([]byte, error) {
	switch v := in.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported notification payload type %T", in)
	}
}
