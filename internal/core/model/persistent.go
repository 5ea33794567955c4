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

// This file defines the records written to the face table. Attribute names
// follow the recognition service's own field names so that items can be
// compared directly against an IndexFaces response; the three location
// attributes (bucket, key, metadata) are lower case.

package model

// BoundingBox is the fixed-point form of Geometry.
type BoundingBox struct {
	Width  Decimal `json:"Width" dynamodbav:"Width"`
	Height Decimal `json:"Height" dynamodbav:"Height"`
	Left   Decimal `json:"Left" dynamodbav:"Left"`
	Top    Decimal `json:"Top" dynamodbav:"Top"`
}

// Pose is the fixed-point form of Orientation.
type Pose struct {
	Roll  Decimal `json:"Roll" dynamodbav:"Roll"`
	Yaw   Decimal `json:"Yaw" dynamodbav:"Yaw"`
	Pitch Decimal `json:"Pitch" dynamodbav:"Pitch"`
}

// Quality is the fixed-point form of ImageQuality.
type Quality struct {
	Brightness Decimal `json:"Brightness" dynamodbav:"Brightness"`
	Sharpness  Decimal `json:"Sharpness" dynamodbav:"Sharpness"`
}

// Landmark is the fixed-point form of Point.
type Landmark struct {
	Type string  `json:"Type" dynamodbav:"Type"`
	X    Decimal `json:"X" dynamodbav:"X"`
	Y    Decimal `json:"Y" dynamodbav:"Y"`
}

// FaceRecord is one row of the face table. FaceId is the partition key.
type FaceRecord struct {
	FaceID                 string      `json:"FaceId" dynamodbav:"FaceId"`
	BoundingBox            BoundingBox `json:"BoundingBox" dynamodbav:"BoundingBox"`
	ImageID                string      `json:"ImageId" dynamodbav:"ImageId"`
	ExternalImageID        string      `json:"ExternalImageId" dynamodbav:"ExternalImageId"`
	Confidence             Decimal     `json:"Confidence" dynamodbav:"Confidence"`
	IndexFacesModelVersion string      `json:"IndexFacesModelVersion,omitempty" dynamodbav:"IndexFacesModelVersion,omitempty"`
	UserID                 string      `json:"UserId,omitempty" dynamodbav:"UserId,omitempty"`
	Pose                   *Pose       `json:"Pose,omitempty" dynamodbav:"Pose,omitempty"`
	Quality                *Quality    `json:"Quality,omitempty" dynamodbav:"Quality,omitempty"`
	Landmarks              []*Landmark `json:"Landmarks,omitempty" dynamodbav:"Landmarks,omitempty"`

	Bucket   string         `json:"bucket" dynamodbav:"bucket"`
	Key      string         `json:"key" dynamodbav:"key"`
	Metadata ObjectMetadata `json:"metadata" dynamodbav:"metadata"`
}
