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
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// ServiceClients holds the AWS clients shared by every invocation in the
// process. None of them carry per-invocation state.
type ServiceClients struct {
	S3Client          *s3.Client
	RekognitionClient *rekognition.Client
	DynamoDBClient    *dynamodb.Client
	SQSClient         *sqs.Client

	// FaceIndexer fronts RekognitionClient.IndexFaces with the configured
	// client side rate limit.
	FaceIndexer *QuotaAwareFaceIndexer

	// SQSListeners are keyed by the logical names in config.QueueSubscriptions.
	// They have no command until the caller attaches one.
	SQSListeners map[string]*SQSListener
}

// NewCloudServiceClients loads the default AWS credential chain for the
// configured region and builds one client per service. Every client is
// instrumented with otelaws so SDK calls show up as child spans.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Application.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	endpoint := config.Application.EndpointURL
	if endpoint != "" {
		slog.Info("using custom AWS endpoint", "endpoint", endpoint)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	rekognitionClient := rekognition.NewFromConfig(awsCfg, func(o *rekognition.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	listeners := make(map[string]*SQSListener)
	for name, sub := range config.QueueSubscriptions {
		listeners[name] = NewSQSListener(sqsClient, sub, nil)
	}

	return &ServiceClients{
		S3Client:          s3Client,
		RekognitionClient: rekognitionClient,
		DynamoDBClient:    dynamoClient,
		SQSClient:         sqsClient,
		FaceIndexer:       NewQuotaAwareFaceIndexer(rekognitionClient, config.Rekognition.RateLimit),
		SQSListeners:      listeners,
	}, nil
}

// VerifyCollection describes the configured face collection. It runs once at
// start up so that a missing collection fails the process instead of every
// invocation.
func VerifyCollection(ctx context.Context, client CollectionDescribeAPI, collectionID string) (*rekognition.DescribeCollectionOutput, error) {
	out, err := client.DescribeCollection(ctx, &rekognition.DescribeCollectionInput{
		CollectionId: aws.String(collectionID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe collection %s: %w", collectionID, err)
	}
	slog.Info("face collection ready",
		"collection_id", collectionID,
		"face_count", aws.ToInt64(out.FaceCount),
		"face_model_version", aws.ToString(out.FaceModelVersion))
	return out, nil
}
