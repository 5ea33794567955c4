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

package commands

import (
	"maps"

	"github.com/jaycherian/aws-go-face-index/internal/core/cor"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
)

// FaceRecordTransformer turns the detected features of the current object
// into the records written to the face table. It cannot fail.
type FaceRecordTransformer struct {
	cor.BaseCommand
	objectParam   string
	metadataParam string
}

// NewFaceRecordTransformer is the constructor for FaceRecordTransformer. It
// reads model.ParamFaceIndex, model.ParamObject and model.ParamMetadata and
// writes a []*model.FaceRecord to model.ParamFaceRecords.
func NewFaceRecordTransformer(name string) *FaceRecordTransformer {
	out := &FaceRecordTransformer{
		BaseCommand:   *cor.NewBaseCommand(name),
		objectParam:   model.ParamObject,
		metadataParam: model.ParamMetadata,
	}
	out.InputParamName = model.ParamFaceIndex
	out.OutputParamName = model.ParamFaceRecords
	return out
}

// IsExecutable also requires the object and its metadata.
func (c *FaceRecordTransformer) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) &&
		context.Get(c.objectParam) != nil &&
		context.Get(c.metadataParam) != nil
}

// Execute builds one FaceRecord per detected feature.
//
// Inputs:
//   - context: holds the *model.FaceIndexResult, the *model.ObjectRef and
//     the model.ObjectMetadata of the current object.
//
// Outputs:
//   - a []*model.FaceRecord under model.ParamFaceRecords, empty when no face
//     was indexed.
func (c *FaceRecordTransformer) Execute(context cor.Context) {
	result := context.Get(c.GetInputParam()).(*model.FaceIndexResult)
	ref := context.Get(c.objectParam).(*model.ObjectRef)
	metadata := context.Get(c.metadataParam).(model.ObjectMetadata)

	records := make([]*model.FaceRecord, 0, len(result.Features))
	for _, f := range result.Features {
		records = append(records, TransformFeature(f, ref.Bucket, ref.Key, metadata))
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), records)
}

// TransformFeature copies every attribute of feature into a FaceRecord,
// converting scores and geometry to fixed-point, and attaches the object's
// location and metadata.
func TransformFeature(feature *model.DetectedFeature, bucket, key string, metadata model.ObjectMetadata) *model.FaceRecord {
	md := make(model.ObjectMetadata, len(metadata))
	maps.Copy(md, metadata)

	out := &model.FaceRecord{
		FaceID:          feature.FaceID,
		ImageID:         feature.ImageID,
		ExternalImageID: feature.ExternalImageID,
		Confidence:      model.NewDecimal(feature.Confidence),
		BoundingBox: model.BoundingBox{
			Width:  model.NewDecimal(feature.BoundingBox.Width),
			Height: model.NewDecimal(feature.BoundingBox.Height),
			Left:   model.NewDecimal(feature.BoundingBox.Left),
			Top:    model.NewDecimal(feature.BoundingBox.Top),
		},
		IndexFacesModelVersion: feature.IndexFacesModelVersion,
		UserID:                 feature.UserID,
		Bucket:                 bucket,
		Key:                    key,
		Metadata:               md,
	}
	if p := feature.Pose; p != nil {
		out.Pose = &model.Pose{Roll: model.NewDecimal(p.Roll), Yaw: model.NewDecimal(p.Yaw), Pitch: model.NewDecimal(p.Pitch)}
	}
	if q := feature.Quality; q != nil {
		out.Quality = &model.Quality{Brightness: model.NewDecimal(q.Brightness), Sharpness: model.NewDecimal(q.Sharpness)}
	}
	for _, l := range feature.Landmarks {
		out.Landmarks = append(out.Landmarks, &model.Landmark{Type: l.Type, X: model.NewDecimal(l.X), Y: model.NewDecimal(l.Y)})
	}
	return out
}
