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

// Package model defines the data structures that flow through the face
// indexing workflow. This file holds the transient types: values that live
// for a single invocation and are never written to the store as-is.
package model

import "fmt"

// Context keys shared by the face indexing commands.
const (
	ParamNotification = "__notification__"
	ParamObject       = "__object__"
	ParamMetadata     = "__object_metadata__"
	ParamFaceIndex    = "__face_index__"
	ParamFaceRecords  = "__face_records__"
)

// ObjectRef identifies one stored object named by a notification record.
// EncodedKey is the key as it arrived in the notification; Key is its
// percent-decoded form and stays empty until the record is decoded.
type ObjectRef struct {
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	EncodedKey string `json:"encoded_key,omitempty"`
}

// String renders the reference as an s3:// URI for logs.
func (o *ObjectRef) String() string {
	if o.Key == "" {
		return fmt.Sprintf("s3://%s/%s", o.Bucket, o.EncodedKey)
	}
	return fmt.Sprintf("s3://%s/%s", o.Bucket, o.Key)
}

// Notification is the decoded form of an inbound storage change event.
// Source and EventName are taken from the first record, which is the one
// the workflow validates.
type Notification struct {
	Source    string       `json:"source"`
	EventName string       `json:"event_name"`
	Records   []*ObjectRef `json:"records"`
}

// ObjectMetadata holds the user supplied tags of a stored object with the
// transport prefix removed from every key.
type ObjectMetadata map[string]string

// Geometry is a bounding box as reported by the recognition service, in
// ratios of the overall image size.
type Geometry struct {
	Width  float32
	Height float32
	Left   float32
	Top    float32
}

// Orientation is the raw pose of a detected face in degrees.
type Orientation struct {
	Roll  float32
	Yaw   float32
	Pitch float32
}

// ImageQuality is the raw brightness and sharpness of a detected face.
type ImageQuality struct {
	Brightness float32
	Sharpness  float32
}

// Point is a single raw facial landmark.
type Point struct {
	Type string
	X    float32
	Y    float32
}

// DetectedFeature is one face found and indexed by the recognition service.
// Numeric values are the service's raw floating point values; conversion to
// fixed-point happens when the feature is turned into a FaceRecord.
type DetectedFeature struct {
	FaceID                 string
	ImageID                string
	ExternalImageID        string
	UserID                 string
	IndexFacesModelVersion string
	Confidence             float32
	BoundingBox            Geometry

	// Optional detail, present depending on the configured detection attributes.
	Pose      *Orientation
	Quality   *ImageQuality
	Landmarks []Point
}

// IndexStatus tags the result of a single recognition call.
type IndexStatus int

const (
	// IndexStatusIndexed means the call succeeded; Features may still be empty
	// when every face was filtered out.
	IndexStatusIndexed IndexStatus = iota
	// IndexStatusNoFaceDetected means the service rejected the image because it
	// contains no face. This is a successful outcome with zero features.
	IndexStatusNoFaceDetected
)

func (s IndexStatus) String() string {
	switch s {
	case IndexStatusIndexed:
		return "Indexed"
	case IndexStatusNoFaceDetected:
		return "NoFaceDetected"
	default:
		return fmt.Sprintf("IndexStatus(%d)", int(s))
	}
}

// FaceIndexResult is the outcome of indexing one object.
type FaceIndexResult struct {
	Status           IndexStatus
	Features         []*DetectedFeature
	UnindexedCount   int
	FaceModelVersion string
}
