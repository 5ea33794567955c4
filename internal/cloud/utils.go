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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	DefaultRuntime      = "production"
	EnvConfigFilePrefix = "FACE_CONFIG_PREFIX" // directory holding the TOML files
	EnvConfigRuntime    = "FACE_RUNTIME"       // selects .env.<runtime>.toml; defaults to DefaultRuntime
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig layers configuration onto config in this order:
//
//  1. a .env file in the working directory, if any, is loaded into the
//     process environment (existing variables win);
//  2. <prefix>/.env.toml;
//  3. <prefix>/.env.<runtime>.toml;
//  4. environment variable overrides (see ApplyEnvironment).
//
// Missing files are skipped. The result is validated before returning.
func LoadConfig(config *Config) error {
	_ = godotenv.Load()

	prefix := os.Getenv(EnvConfigFilePrefix)
	runtime := os.Getenv(EnvConfigRuntime)
	if runtime == "" {
		runtime = DefaultRuntime
	}

	files := []string{
		filepath.Join(prefix, ConfigFileBaseName+ConfigFileExtension),
		filepath.Join(prefix, ConfigFileBaseName+ConfigSeparator+runtime+ConfigFileExtension),
	}
	for _, name := range files {
		if !fileExists(name) {
			slog.Debug("configuration file not found, skipping", "file", name)
			continue
		}
		md, err := toml.DecodeFile(name, config)
		if err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			slog.Warn("ignoring unknown configuration keys", "file", name, "keys", fmt.Sprint(undecoded))
		}
		slog.Debug("loaded configuration file", "file", name, "runtime", runtime)
	}

	if err := config.ApplyEnvironment(os.LookupEnv); err != nil {
		return err
	}
	return config.Validate()
}

// ApplyEnvironment overrides configuration values from environment
// variables. Where two names are listed the first one found wins; the short
// names are the ones set on deployed functions.
func (c *Config) ApplyEnvironment(lookup func(string) (string, bool)) error {
	first := func(names ...string) (string, bool) {
		for _, n := range names {
			if v, ok := lookup(n); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}

	if v, ok := first("AWS_REGION", "AWS_DEFAULT_REGION"); ok {
		c.Application.Region = v
	}
	if v, ok := first("AWS_ENDPOINT_URL"); ok {
		c.Application.EndpointURL = v
	}
	if v, ok := first("COLLECTION_ID", "AWS_REKOGNITION_COLLECTION_ID"); ok {
		c.Rekognition.CollectionID = v
	}
	if v, ok := first("TABLE_ID", "AWS_DYNAMODB_TABLE_ID"); ok {
		c.DynamoDB.TableID = v
	}
	if v, ok := first("MAX_FACES_COUNT", "AWS_REKOGNITION_FACE_DETECT_MAX_FACES_COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MAX_FACES_COUNT=%q is not an integer", ErrInvalidConfig, v)
		}
		c.Rekognition.MaxFaces = n
	}
	if v, ok := first("FACE_DETECT_ATTRIBUTES", "AWS_REKOGNITION_FACE_DETECT_ATTRIBUTES"); ok {
		c.Rekognition.DetectionAttributes = strings.ToUpper(v)
	}
	if v, ok := first("QUALITY_FILTER", "AWS_REKOGNITION_FACE_DETECT_QUALITY_FILTER"); ok {
		c.Rekognition.QualityFilter = strings.ToUpper(v)
	}
	if v, ok := first("DEBUG_MODE"); ok {
		c.Application.DebugMode = parseFlag(v)
	}
	if v, ok := first("UPLOAD_BUCKET"); ok {
		c.Storage.UploadBucket = v
	}
	if v, ok := first("SQS_QUEUE_URL"); ok {
		q := c.QueueSubscriptions["notifications"]
		q.URL = v
		if c.QueueSubscriptions == nil {
			c.QueueSubscriptions = make(map[string]QueueSubscription)
		}
		c.QueueSubscriptions["notifications"] = q
	}
	if v, ok := first("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		c.Telemetry.OTLPEndpoint = v
	}
	return nil
}

// parseFlag accepts the truthy spellings used by the deployed functions.
func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "t", "yes", "y":
		return true
	default:
		return false
	}
}
