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

// Package cloud holds everything that talks to AWS: the application
// configuration, the long-lived service clients, and the queue listener
// that feeds notifications into the workflow.
//
// The configuration is read once per process (see LoadConfig) and is shared
// read-only by every invocation afterwards.
package cloud

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Recognition service limits and accepted enum values.
const (
	MinMaxFaces = 1
	MaxMaxFaces = 4096
)

var (
	DetectionAttributeValues = []string{"DEFAULT", "ALL"}
	QualityFilterValues      = []string{"NONE", "AUTO", "LOW", "MEDIUM", "HIGH"}
)

// ErrInvalidConfig wraps every validation failure returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Rekognition configures the IndexFaces call. These values apply uniformly
// to every object processed by the process.
type Rekognition struct {
	CollectionID        string `toml:"collection_id"`        // Face collection the indexed faces are added to.
	MaxFaces            int    `toml:"max_faces"`            // Upper bound on faces indexed per image.
	DetectionAttributes string `toml:"detection_attributes"` // DEFAULT or ALL.
	QualityFilter       string `toml:"quality_filter"`       // NONE, AUTO, LOW, MEDIUM or HIGH.
	RateLimit           int    `toml:"rate_limit"`           // Client side IndexFaces calls per second; 0 disables the limiter.
}

// DynamoDB names the face table.
type DynamoDB struct {
	TableID string `toml:"table_id"`
}

// Storage configures the S3 side of the application.
type Storage struct {
	MetadataPrefix string `toml:"metadata_prefix"` // Prefix stripped from user metadata keys.
	UploadBucket   string `toml:"upload_bucket"`   // Bucket written by the upload endpoint.
}

// QueueSubscription is one SQS queue that receives S3 notifications.
type QueueSubscription struct {
	URL                 string `toml:"url"`
	WaitTimeSeconds     int32  `toml:"wait_time_seconds"`
	MaxNumberOfMessages int32  `toml:"max_number_of_messages"`
	VisibilityTimeout   int32  `toml:"visibility_timeout"`
}

// Server configures the HTTP entrypoint.
type Server struct {
	Port int `toml:"port"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	OTLPEndpoint string `toml:"otlp_endpoint"` // Empty disables export; spans and metrics stay in process.
}

// Config is the full application configuration.
type Config struct {
	Application struct {
		Name             string `toml:"name"`
		Region           string `toml:"aws_region"`
		EndpointURL      string `toml:"endpoint_url"` // Optional override for every AWS client, e.g. LocalStack.
		DebugMode        bool   `toml:"debug_mode"`
		VerifyCollection bool   `toml:"verify_collection"` // Call DescribeCollection once at start up.
	} `toml:"application"`
	Rekognition        Rekognition                  `toml:"rekognition"`
	DynamoDB           DynamoDB                     `toml:"dynamodb"`
	Storage            Storage                      `toml:"storage"`
	Server             Server                       `toml:"server"`
	Telemetry          Telemetry                    `toml:"telemetry"`
	QueueSubscriptions map[string]QueueSubscription `toml:"queue_subscriptions"`
}

// NewConfig returns a configuration holding the defaults. Values read from
// files and the environment are layered on top of it.
func NewConfig() *Config {
	c := &Config{
		Rekognition: Rekognition{
			CollectionID:        "rekognition-collection",
			MaxFaces:            10,
			DetectionAttributes: "DEFAULT",
			QualityFilter:       "AUTO",
		},
		DynamoDB:           DynamoDB{TableID: "rekognition"},
		Storage:            Storage{MetadataPrefix: "x-amz-meta-"},
		Server:             Server{Port: 8080},
		QueueSubscriptions: make(map[string]QueueSubscription),
	}
	c.Application.Name = "face-index"
	c.Application.Region = "us-east-1"
	c.Application.VerifyCollection = true
	return c
}

// Validate checks the values the recognition and store calls depend on.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Rekognition.CollectionID) == "" {
		errs = append(errs, errors.New("rekognition.collection_id is empty"))
	}
	if strings.TrimSpace(c.DynamoDB.TableID) == "" {
		errs = append(errs, errors.New("dynamodb.table_id is empty"))
	}
	if c.Rekognition.MaxFaces < MinMaxFaces || c.Rekognition.MaxFaces > MaxMaxFaces {
		errs = append(errs, fmt.Errorf("rekognition.max_faces must be in [%d, %d], got %d",
			MinMaxFaces, MaxMaxFaces, c.Rekognition.MaxFaces))
	}
	if !slices.Contains(DetectionAttributeValues, c.Rekognition.DetectionAttributes) {
		errs = append(errs, fmt.Errorf("rekognition.detection_attributes must be one of %v, got %q",
			DetectionAttributeValues, c.Rekognition.DetectionAttributes))
	}
	if !slices.Contains(QualityFilterValues, c.Rekognition.QualityFilter) {
		errs = append(errs, fmt.Errorf("rekognition.quality_filter must be one of %v, got %q",
			QualityFilterValues, c.Rekognition.QualityFilter))
	}
	if c.Rekognition.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rekognition.rate_limit must not be negative, got %d", c.Rekognition.RateLimit))
	}
	for name, q := range c.QueueSubscriptions {
		if q.URL == "" {
			errs = append(errs, fmt.Errorf("queue_subscriptions.%s.url is empty", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
