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
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"

	"github.com/jaycherian/aws-go-face-index/internal/cloud"
)

// Dashboard exposes GET /stats with the face count and model version of
// the configured collection.
func Dashboard(r *gin.RouterGroup, client cloud.CollectionDescribeAPI, collectionID string) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			out, err := cloud.VerifyCollection(c.Request.Context(), client, collectionID)
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"collectionId":     collectionID,
				"collectionArn":    aws.ToString(out.CollectionARN),
				"faceCount":        aws.ToInt64(out.FaceCount),
				"faceModelVersion": aws.ToString(out.FaceModelVersion),
			})
		})
	}
}
