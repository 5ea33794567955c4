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

// Package test provides sample notifications, the test configuration, and
// in-memory fakes of the AWS clients for the test suites.
package test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/jaycherian/aws-go-face-index/internal/cloud"
)

// StateManager caches the configuration for the duration of a test binary.
type StateManager struct {
	once   sync.Once
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// RecordSpec describes one record of a generated notification.
type RecordSpec struct {
	Source    string
	EventName string
	Bucket    string
	Key       string // as it appears on the wire, i.e. percent-encoded
}

// NewNotification renders an S3 notification with the given records.
func NewNotification(records ...RecordSpec) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		if r.Source == "" {
			r.Source = "aws:s3"
		}
		if r.EventName == "" {
			r.EventName = "ObjectCreated:Put"
		}
		parts = append(parts, fmt.Sprintf(`{
      "eventVersion": "2.1",
      "eventSource": %q,
      "awsRegion": "us-east-1",
      "eventTime": "2023-09-14T18:02:43.108Z",
      "eventName": %q,
      "userIdentity": { "principalId": "AWS:AIDAEXAMPLE" },
      "requestParameters": { "sourceIPAddress": "203.0.113.7" },
      "responseElements": {
        "x-amz-request-id": "C3D13FE58DE4C810",
        "x-amz-id-2": "FMyUVURIY8/IgAtTv8xRjskZQpcIZ9KG4V5Wp6S7S/JRWeUWerMUE5JgHvANOjpD"
      },
      "s3": {
        "s3SchemaVersion": "1.0",
        "configurationId": "face-index-trigger",
        "bucket": {
          "name": %q,
          "ownerIdentity": { "principalId": "A3NL1KOZZKExample" },
          "arn": "arn:aws:s3:::%s"
        },
        "object": {
          "key": %q,
          "size": 1024,
          "eTag": "d41d8cd98f00b204e9800998ecf8427e",
          "sequencer": "0055AED6DCD90281E5"
        }
      }
    }`, r.Source, r.EventName, r.Bucket, r.Bucket, r.Key))
	}
	return fmt.Sprintf("{\n  \"Records\": [\n    %s\n  ]\n}", strings.Join(parts, ",\n    "))
}

// GetTestNotification returns a single record notification for bucket "b"
// and wire key "img%2B1.jpg", which decodes to "img+1.jpg".
func GetTestNotification() string {
	return NewNotification(RecordSpec{Bucket: "b", Key: "img%2B1.jpg"})
}

// GetTestNotificationWithoutRecords returns a payload with no Records key,
// shaped like the s3:TestEvent S3 sends when a notification is configured.
func GetTestNotificationWithoutRecords() string {
	return `{
  "Service": "Amazon S3",
  "Event": "s3:TestEvent",
  "Time": "2023-09-14T18:00:00.000Z",
  "Bucket": "b",
  "RequestId": "5582815E1AEA5ADF",
  "HostId": "8cLeGAmw098X5cv4Zkwcmo8vvZa3eH3eKxsPzbB9wrR+YstdA6Knx4Ip8EXAMPLE"
}`
}

// GetTestNotificationEmptyRecords returns a payload whose Records list is empty.
func GetTestNotificationEmptyRecords() string {
	return `{"Records": []}`
}

func configDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "configs"
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at configs/.env.test.toml.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, configDir())
	if err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads the test configuration once and returns it.
func GetConfig() *cloud.Config {
	state.once.Do(func() {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	})
	return state.config
}
