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

// This file defines the command that calls Rekognition IndexFaces for the
// current object.
//
// Logic Flow:
//
//  1. The object reference is read from model.ParamObject.
//  2. IndexFaces is called exactly once with the configured collection, max
//     faces, detection attributes and quality filter. The object key is used
//     as the external image id so the faces can later be found by key.
//  3. On success every returned FaceRecord becomes a model.DetectedFeature.
//     Faces dropped by the quality filter or the max faces bound are counted
//     and logged, not persisted.
//  4. An InvalidParameterException whose message says the image contains no
//     face is a success with zero features (IndexStatusNoFaceDetected). Any
//     other InvalidParameterException is a genuine parameter failure.
//  5. The remaining named Rekognition exceptions each map to their own kind.
//     Anything else is unclassified and aborts the invocation.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rtypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/jaycherian/aws-go-face-index/internal/cloud"
	"github.com/jaycherian/aws-go-face-index/internal/core/cor"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
)

// FaceIndexer indexes the faces of one image into the configured collection.
type FaceIndexer struct {
	cor.BaseCommand
	client cloud.FaceIndexAPI
	config cloud.Rekognition
}

// NewFaceIndexer is the constructor for FaceIndexer.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: the IndexFaces client, normally cloud.QuotaAwareFaceIndexer.
//   - config: the recognition settings applied to every call.
//
// Outputs:
//   - *FaceIndexer: reads model.ParamObject and writes a *model.FaceIndexResult
//     to model.ParamFaceIndex.
func NewFaceIndexer(name string, client cloud.FaceIndexAPI, config cloud.Rekognition) *FaceIndexer {
	out := &FaceIndexer{BaseCommand: *cor.NewBaseCommand(name), client: client, config: config}
	out.InputParamName = model.ParamObject
	out.OutputParamName = model.ParamFaceIndex
	return out
}

// Execute runs IndexFaces for the object under model.ParamObject.
func (c *FaceIndexer) Execute(context cor.Context) {
	ctx := context.GetContext()
	ref := context.Get(c.GetInputParam()).(*model.ObjectRef)

	out, err := c.client.IndexFaces(ctx, c.request(ref))
	if err != nil {
		if IsNoFaceDetected(err) {
			slog.InfoContext(ctx, "no face detected in image", "object", ref.String())
			c.GetSuccessCounter().Add(ctx, 1)
			context.Add(c.GetOutputParam(), &model.FaceIndexResult{Status: model.IndexStatusNoFaceDetected})
			return
		}
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), classifyRecognitionError(c.GetName(), ref, err))
		return
	}

	result := &model.FaceIndexResult{
		Status:           model.IndexStatusIndexed,
		Features:         make([]*model.DetectedFeature, 0, len(out.FaceRecords)),
		UnindexedCount:   len(out.UnindexedFaces),
		FaceModelVersion: aws.ToString(out.FaceModelVersion),
	}
	for i := range out.FaceRecords {
		if out.FaceRecords[i].Face == nil {
			continue
		}
		result.Features = append(result.Features, toDetectedFeature(&out.FaceRecords[i]))
	}

	if result.UnindexedCount > 0 {
		slog.InfoContext(ctx, "some faces were not indexed",
			"object", ref.String(),
			"unindexed", result.UnindexedCount,
			"reasons", unindexedReasons(out.UnindexedFaces))
	}
	slog.InfoContext(ctx, "indexed faces", "object", ref.String(), "faces", len(result.Features))

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), result)
}

func (c *FaceIndexer) request(ref *model.ObjectRef) *rekognition.IndexFacesInput {
	return &rekognition.IndexFacesInput{
		CollectionId: aws.String(c.config.CollectionID),
		Image: &rtypes.Image{
			S3Object: &rtypes.S3Object{
				Bucket: aws.String(ref.Bucket),
				Name:   aws.String(ref.Key),
			},
		},
		ExternalImageId:     aws.String(ref.Key),
		DetectionAttributes: []rtypes.Attribute{rtypes.Attribute(c.config.DetectionAttributes)},
		MaxFaces:            aws.Int32(int32(c.config.MaxFaces)),
		QualityFilter:       rtypes.QualityFilter(c.config.QualityFilter),
	}
}

func toDetectedFeature(rec *rtypes.FaceRecord) *model.DetectedFeature {
	face := rec.Face
	out := &model.DetectedFeature{
		FaceID:                 aws.ToString(face.FaceId),
		ImageID:                aws.ToString(face.ImageId),
		ExternalImageID:        aws.ToString(face.ExternalImageId),
		UserID:                 aws.ToString(face.UserId),
		IndexFacesModelVersion: aws.ToString(face.IndexFacesModelVersion),
		Confidence:             aws.ToFloat32(face.Confidence),
	}
	if bb := face.BoundingBox; bb != nil {
		out.BoundingBox = model.Geometry{
			Width:  aws.ToFloat32(bb.Width),
			Height: aws.ToFloat32(bb.Height),
			Left:   aws.ToFloat32(bb.Left),
			Top:    aws.ToFloat32(bb.Top),
		}
	}

	detail := rec.FaceDetail
	if detail == nil {
		return out
	}
	if p := detail.Pose; p != nil {
		out.Pose = &model.Orientation{Roll: aws.ToFloat32(p.Roll), Yaw: aws.ToFloat32(p.Yaw), Pitch: aws.ToFloat32(p.Pitch)}
	}
	if q := detail.Quality; q != nil {
		out.Quality = &model.ImageQuality{Brightness: aws.ToFloat32(q.Brightness), Sharpness: aws.ToFloat32(q.Sharpness)}
	}
	for _, l := range detail.Landmarks {
		out.Landmarks = append(out.Landmarks, model.Point{Type: string(l.Type), X: aws.ToFloat32(l.X), Y: aws.ToFloat32(l.Y)})
	}
	return out
}

func unindexedReasons(faces []rtypes.UnindexedFace) map[string]int {
	out := make(map[string]int)
	for _, f := range faces {
		for _, r := range f.Reasons {
			out[string(r)]++
		}
	}
	return out
}

// IsNoFaceDetected reports whether err is the InvalidParameterException
// Rekognition raises for an image that contains no face.
func IsNoFaceDetected(err error) bool {
	var invalid *rtypes.InvalidParameterException
	if !errors.As(err, &invalid) {
		return false
	}
	msg := strings.ToLower(invalid.ErrorMessage())
	return strings.Contains(msg, "no face")
}

// classifyRecognitionError maps the named Rekognition exceptions onto the
// workflow's failure kinds.
func classifyRecognitionError(op string, ref *model.ObjectRef, err error) error {
	wrapped := fmt.Errorf("index faces %s: %w", ref, err)

	var (
		invalidObject *rtypes.InvalidS3ObjectException
		invalidParam  *rtypes.InvalidParameterException
		tooLarge      *rtypes.ImageTooLargeException
		denied        *rtypes.AccessDeniedException
		internal      *rtypes.InternalServerError
		throttled     *rtypes.ThrottlingException
		throughput    *rtypes.ProvisionedThroughputExceededException
		notFound      *rtypes.ResourceNotFoundException
		badFormat     *rtypes.InvalidImageFormatException
		quota         *rtypes.ServiceQuotaExceededException
	)
	switch {
	case errors.As(err, &invalidObject):
		return model.NewClassifiedError(model.KindInvalidObjectReference, op, wrapped)
	case errors.As(err, &invalidParam):
		return model.NewClassifiedError(model.KindInvalidParameter, op, wrapped)
	case errors.As(err, &tooLarge):
		return model.NewClassifiedError(model.KindImageTooLarge, op, wrapped)
	case errors.As(err, &denied):
		return model.NewClassifiedError(model.KindAccessDenied, op, wrapped)
	case errors.As(err, &internal):
		return model.NewClassifiedError(model.KindInternalServiceError, op, wrapped)
	case errors.As(err, &throttled):
		return model.NewClassifiedError(model.KindThrottled, op, wrapped)
	case errors.As(err, &throughput):
		return model.NewClassifiedError(model.KindCapacityExceeded, op, wrapped)
	case errors.As(err, &notFound):
		return model.NewClassifiedError(model.KindResourceNotFound, op, wrapped)
	case errors.As(err, &badFormat):
		return model.NewClassifiedError(model.KindInvalidImageFormat, op, wrapped)
	case errors.As(err, &quota):
		return model.NewClassifiedError(model.KindQuotaExceeded, op, wrapped)
	default:
		return &model.UnclassifiedError{Op: op, Err: wrapped}
	}
}
