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

// Command lambda is the AWS Lambda entrypoint. S3 invokes it directly with
// an ObjectCreated notification; the function returns
// {"statusCode": ..., "data": null}. Unclassified failures are returned as
// errors so the invocation is marked failed and S3's async retry applies.
//
// The deployment package ships configs/ next to the binary. FACE_RUNTIME
// selects the overlay file and defaults to "production"; set it on the
// function to pick another .env.<runtime>.toml.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jaycherian/aws-go-face-index/internal/cloud"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
	"github.com/jaycherian/aws-go-face-index/internal/core/workflow"
	"github.com/jaycherian/aws-go-face-index/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	ctx := context.Background()

	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		_ = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	telemetry.SetDebug(config.Application.DebugMode)
	slog.Info("configuration loaded",
		"collection", config.Rekognition.CollectionID,
		"table", config.DynamoDB.TableID)

	shutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("failed to setup OpenTelemetry", "error", err)
		os.Exit(1)
	}

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		slog.Error("failed to create AWS clients", "error", err)
		os.Exit(1)
	}
	if config.Application.VerifyCollection {
		if _, err := cloud.VerifyCollection(ctx, clients.RekognitionClient, config.Rekognition.CollectionID); err != nil {
			slog.Error("face collection check failed", "error", err)
			os.Exit(1)
		}
	}

	faceIndex := workflow.NewFaceIndexWorkflow(config, workflow.CollaboratorsFrom(clients))

	lambda.StartWithOptions(
		func(ctx context.Context, raw json.RawMessage) (*model.Outcome, error) {
			return faceIndex.Process(ctx, raw)
		},
		lambda.WithEnableSIGTERM(func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("failed to shutdown telemetry", "error", err)
			}
		}),
	)
}
