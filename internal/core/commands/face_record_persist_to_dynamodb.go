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

// This file defines the persistence step of the workflow.
//
// Logic Flow:
// Every FaceRecord is marshalled with attributevalue and written with its
// own PutItem call. There is no batching and no transaction: if the third of
// five writes fails, the first two stay in the table and the last two are
// never attempted. The failure is classified and recorded on the context,
// which stops the workflow.
package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/jaycherian/aws-go-face-index/internal/cloud"
	"github.com/jaycherian/aws-go-face-index/internal/core/cor"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
)

// FaceRecordPersistToDynamoDB writes face records to the face table.
type FaceRecordPersistToDynamoDB struct {
	cor.BaseCommand
	client cloud.ItemPutAPI
	table  string
}

// NewFaceRecordPersistToDynamoDB is the constructor for FaceRecordPersistToDynamoDB.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: the DynamoDB client.
//   - table: the face table name.
//
// Outputs:
//   - *FaceRecordPersistToDynamoDB: reads model.ParamFaceRecords and writes
//     the number of stored records to the default output parameter.
func NewFaceRecordPersistToDynamoDB(name string, client cloud.ItemPutAPI, table string) *FaceRecordPersistToDynamoDB {
	out := &FaceRecordPersistToDynamoDB{BaseCommand: *cor.NewBaseCommand(name), client: client, table: table}
	out.InputParamName = model.ParamFaceRecords
	return out
}

// Execute writes the records one PutItem at a time, in order.
//
// Inputs:
//   - context: holds the []*model.FaceRecord under model.ParamFaceRecords.
//
// Outputs:
//   - the number of written records under the output parameter. The first
//     failed write is recorded as the command's error; records written
//     before it stay in the table.
func (s *FaceRecordPersistToDynamoDB) Execute(context cor.Context) {
	ctx := context.GetContext()
	records := context.Get(s.GetInputParam()).([]*model.FaceRecord)

	for i, record := range records {
		if err := s.Put(context, record); err != nil {
			slog.ErrorContext(ctx, "failed to write face record",
				"table", s.table, "face_id", record.FaceID, "written", i, "total", len(records), "error", err)
			s.GetErrorCounter().Add(ctx, 1)
			context.AddError(s.GetName(), err)
			return
		}
	}

	s.GetSuccessCounter().Add(ctx, 1)
	context.Add(s.GetOutputParam(), len(records))
}

// Put writes a single record.
func (s *FaceRecordPersistToDynamoDB) Put(context cor.Context, record *model.FaceRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return &model.UnclassifiedError{Op: s.GetName(), Err: fmt.Errorf("failed to marshal face %s: %w", record.FaceID, err)}
	}
	_, err = s.client.PutItem(context.GetContext(), &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return classifyStoreError(s.GetName(), s.table, record, err)
	}
	return nil
}

func classifyStoreError(op, table string, record *model.FaceRecord, err error) error {
	wrapped := fmt.Errorf("put face %s into %s: %w", record.FaceID, table, err)

	var (
		throughput *dtypes.ProvisionedThroughputExceededException
		limit      *dtypes.RequestLimitExceeded
		notFound   *dtypes.ResourceNotFoundException
		internal   *dtypes.InternalServerError
	)
	switch {
	case errors.As(err, &throughput):
		return model.NewClassifiedError(model.KindCapacityExceeded, op, wrapped)
	case errors.As(err, &limit):
		return model.NewClassifiedError(model.KindQuotaExceeded, op, wrapped)
	case errors.As(err, &notFound):
		return model.NewClassifiedError(model.KindResourceNotFound, op, wrapped)
	case errors.As(err, &internal):
		return model.NewClassifiedError(model.KindInternalServiceError, op, wrapped)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException":
			return model.NewClassifiedError(model.KindThrottled, op, wrapped)
		case "AccessDeniedException", "UnrecognizedClientException":
			return model.NewClassifiedError(model.KindAccessDenied, op, wrapped)
		}
	}
	return &model.UnclassifiedError{Op: op, Err: wrapped}
}
