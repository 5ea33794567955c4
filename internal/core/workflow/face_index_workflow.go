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

// Package workflow assembles commands into the face indexing pipeline and
// owns the contract between a raw notification and the reported outcome.
//
// Chain layout:
//
//	face-index-workflow
//	├── parse-notification
//	└── for-each-object
//	    └── face-index-object          (run once per record, in order)
//	        ├── decode-object-key
//	        ├── resolve-object-metadata
//	        ├── index-faces
//	        ├── transform-face-records
//	        └── write-to-dynamodb
//
// The first recorded error stops everything, including records not yet
// visited. Process turns that error into an Outcome when it carries a
// model.Kind and returns it unchanged otherwise.
package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jaycherian/aws-go-face-index/internal/cloud"
	"github.com/jaycherian/aws-go-face-index/internal/core/commands"
	"github.com/jaycherian/aws-go-face-index/internal/core/cor"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Collaborators are the AWS clients the workflow calls. They are created
// once per process and shared by every invocation.
type Collaborators struct {
	Storage     cloud.ObjectHeadAPI
	Recognition cloud.FaceIndexAPI
	Store       cloud.ItemPutAPI
}

// CollaboratorsFrom picks the workflow's clients out of the process clients.
func CollaboratorsFrom(clients *cloud.ServiceClients) Collaborators {
	return Collaborators{
		Storage:     clients.S3Client,
		Recognition: clients.FaceIndexer,
		Store:       clients.DynamoDBClient,
	}
}

// FaceIndexWorkflow indexes the faces of every object named by an S3
// notification and stores one record per face. It holds no per-invocation
// state and may be used from several goroutines at once.
type FaceIndexWorkflow struct {
	cor.BaseCommand
	config        *cloud.Config
	collaborators Collaborators
	chain         cor.Chain
}

// NewFaceIndexWorkflow builds the workflow.
//
// Inputs:
//   - config: the process configuration; only read.
//   - collaborators: the storage, recognition and store clients.
//
// Outputs:
//   - *FaceIndexWorkflow: ready to Process notifications.
func NewFaceIndexWorkflow(config *cloud.Config, collaborators Collaborators) *FaceIndexWorkflow {
	w := &FaceIndexWorkflow{
		BaseCommand:   *cor.NewBaseCommand("face-index-workflow"),
		config:        config,
		collaborators: collaborators,
	}
	w.initializeChain()
	return w
}

func (w *FaceIndexWorkflow) initializeChain() {
	perObject := cor.NewBaseChain("face-index-object")
	perObject.AddCommand(commands.NewObjectKeyDecoder("decode-object-key"))
	perObject.AddCommand(commands.NewObjectMetadataResolver(
		"resolve-object-metadata",
		w.collaborators.Storage,
		w.config.Storage.MetadataPrefix,
		w.config.Application.DebugMode))
	perObject.AddCommand(commands.NewFaceIndexer("index-faces", w.collaborators.Recognition, w.config.Rekognition))
	perObject.AddCommand(commands.NewFaceRecordTransformer("transform-face-records"))
	perObject.AddCommand(commands.NewFaceRecordPersistToDynamoDB(
		"write-to-dynamodb",
		w.collaborators.Store,
		w.config.DynamoDB.TableID))

	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewNotificationParser("parse-notification"))
	out.AddCommand(newForEachObject("for-each-object", perObject, w.config.Application.DebugMode))
	w.chain = out
}

// IsExecutable requires the raw notification under cor.CtxIn.
func (w *FaceIndexWorkflow) IsExecutable(context cor.Context) bool {
	return w.chain.IsExecutable(context) && context.Get(cor.CtxIn) != nil
}

// Execute runs the chain against a prepared context. Most callers want Process.
func (w *FaceIndexWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Process runs the workflow on one raw notification.
//
// It returns a *model.Outcome for every success and every classified
// failure. An unclassified failure is returned as the error, with a nil
// outcome, so that the runtime records the invocation as failed.
func (w *FaceIndexWorkflow) Process(ctx context.Context, raw []byte) (*model.Outcome, error) {
	invocationID := uuid.NewString()
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String("face_index.invocation_id", invocationID))
	}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, raw)

	w.Execute(chainCtx)

	err := chainCtx.Err()
	if err == nil {
		slog.InfoContext(ctx, "notification processed", "invocation_id", invocationID)
		return model.Succeeded(), nil
	}

	var classified *model.ClassifiedError
	if errors.As(err, &classified) {
		slog.ErrorContext(ctx, "notification failed",
			"invocation_id", invocationID,
			"kind", classified.Kind.String(),
			"status_code", classified.Kind.StatusCode(),
			"error", err)
		return model.Failed(classified.Kind), nil
	}

	slog.ErrorContext(ctx, "notification failed with an unclassified error",
		"invocation_id", invocationID, "error", err)
	return nil, err
}

// forEachObject runs a per-object chain for every record of the parsed
// notification, in order, stopping at the first failure.
type forEachObject struct {
	cor.BaseCommand
	perObject cor.Chain
	debug     bool
}

func newForEachObject(name string, perObject cor.Chain, debug bool) *forEachObject {
	out := &forEachObject{BaseCommand: *cor.NewBaseCommand(name), perObject: perObject, debug: debug}
	out.InputParamName = model.ParamNotification
	return out
}

// Execute runs the per-object chain for each record.
//
// Inputs:
//   - context: holds the *model.Notification under model.ParamNotification.
//
// Outputs:
//   - the number of processed records under the output parameter. On the
//     first failed record the loop returns and leaves that record's error
//     on the context.
func (c *forEachObject) Execute(context cor.Context) {
	ctx := context.GetContext()
	notification := context.Get(c.GetInputParam()).(*model.Notification)

	for i, ref := range notification.Records {
		// Clear anything left by the previous record.
		for _, key := range []string{model.ParamMetadata, model.ParamFaceIndex, model.ParamFaceRecords} {
			context.Remove(key)
		}
		context.Add(model.ParamObject, ref)
		if c.debug {
			slog.DebugContext(ctx, "processing record", "index", i, "object", ref.String())
		}

		c.perObject.Execute(context)

		if context.HasErrors() {
			slog.WarnContext(ctx, "stopping at failed record",
				"index", i, "object", ref.String(), "skipped", len(notification.Records)-i-1)
			c.GetErrorCounter().Add(ctx, 1)
			return
		}
	}

	context.Remove(model.ParamObject)
	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), len(notification.Records))
}
