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
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/jaycherian/aws-go-face-index/internal/cloud"
)

// Routes carries the dependencies of the HTTP handlers.
type Routes struct {
	Processor   cloud.NotificationProcessor
	Uploads     cloud.ObjectPutAPI
	Collections cloud.CollectionDescribeAPI
	Bucket      string
	Collection  string
}

// NotificationRouter accepts S3 notifications over HTTP and runs them
// through the processor. The response status mirrors the outcome.
func NotificationRouter(r *gin.RouterGroup, processor cloud.NotificationProcessor) {
	r.POST("/notifications", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, "read body err: %s", err.Error())
			return
		}
		if !json.Valid(body) {
			c.String(http.StatusBadRequest, "notification is not valid JSON")
			return
		}
		outcome, err := processor.Process(c.Request.Context(), body)
		if err != nil {
			slog.Error("notification processing failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(outcome.StatusCode, outcome)
	})
}

// FileUpload stores JPEG and PNG images in the upload bucket. Extra form
// fields become user metadata on every uploaded object, which the indexer
// later copies onto each face record.
func FileUpload(r *gin.RouterGroup, client cloud.ObjectPutAPI, bucket string) {
	upload := r.Group("/uploads")
	{
		upload.POST("", func(c *gin.Context) {
			if bucket == "" {
				c.String(http.StatusServiceUnavailable, "no upload bucket configured")
				return
			}
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			files := form.File["files"]
			if len(files) == 0 {
				c.String(http.StatusBadRequest, "no files in form field \"files\"")
				return
			}

			metadata := make(map[string]string)
			for k, v := range form.Value {
				if len(v) > 0 {
					metadata[k] = v[0]
				}
			}

			for _, file := range files {
				content, err := readUpload(file)
				if err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}
				kind, err := filetype.Match(content)
				if err != nil || (kind.MIME.Value != "image/jpeg" && kind.MIME.Value != "image/png") {
					c.String(http.StatusUnsupportedMediaType, "%s is not a JPEG or PNG image", file.Filename)
					return
				}
				key := path.Base(file.Filename)
				_, err = client.PutObject(c.Request.Context(), &s3.PutObjectInput{
					Bucket:      aws.String(bucket),
					Key:         aws.String(key),
					Body:        bytes.NewReader(content),
					ContentType: aws.String(kind.MIME.Value),
					Metadata:    metadata,
				})
				if err != nil {
					c.String(http.StatusInternalServerError, "write file to bucket err: %s", err.Error())
					return
				}
				slog.Debug("uploaded image", "bucket", bucket, "key", key, "type", kind.MIME.Value)
			}
			c.String(http.StatusOK, "Uploaded successfully %d files.", len(files))
		})
	}
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
