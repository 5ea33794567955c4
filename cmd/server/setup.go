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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jaycherian/aws-go-face-index/internal/cloud"
	"github.com/jaycherian/aws-go-face-index/internal/core/workflow"
)

// StateManager holds the process wide dependencies of the server.
type StateManager struct {
	config    *cloud.Config
	cloud     *cloud.ServiceClients
	faceIndex *workflow.FaceIndexWorkflow
}

var state = &StateManager{}

// SetupOS defaults the configuration directory and runtime for a server
// started from the repository root. Values already in the environment win.
func SetupOS() error {
	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// GetConfig loads the configuration on first use.
func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			return nil, fmt.Errorf("failed to setup environment: %w", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			return nil, err
		}
		state.config = config
	}
	return state.config, nil
}

// InitState creates the AWS clients and the workflow, checks the face
// collection and starts the queue listeners.
func InitState(ctx context.Context, config *cloud.Config) error {
	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = clients

	if config.Application.VerifyCollection {
		if _, err := cloud.VerifyCollection(ctx, clients.RekognitionClient, config.Rekognition.CollectionID); err != nil {
			return err
		}
	}

	state.faceIndex = workflow.NewFaceIndexWorkflow(config, workflow.CollaboratorsFrom(clients))

	SetupListeners(ctx, clients, state.faceIndex)
	return nil
}
