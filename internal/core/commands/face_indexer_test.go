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

package commands_test

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	rtypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/jaycherian/aws-go-face-index/internal/cloud"
	"github.com/jaycherian/aws-go-face-index/internal/core/commands"
	"github.com/jaycherian/aws-go-face-index/internal/core/model"
	test "github.com/jaycherian/aws-go-face-index/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recognitionConfig = cloud.Rekognition{
	CollectionID:        "test-collection",
	MaxFaces:            5,
	DetectionAttributes: "DEFAULT",
	QualityFilter:       "AUTO",
}

func runIndexer(t *testing.T, recognition *test.FakeRecognition, ref *model.ObjectRef) (*model.FaceIndexResult, error) {
	t.Helper()
	indexer := commands.NewFaceIndexer("index-faces", recognition, recognitionConfig)
	chCtx := newChainContext(model.ParamObject, ref)
	require.True(t, indexer.IsExecutable(chCtx))
	indexer.Execute(chCtx)
	result, _ := chCtx.Get(model.ParamFaceIndex).(*model.FaceIndexResult)
	return result, chCtx.Err()
}

func TestFaceIndexerRequest(t *testing.T) {
	recognition := test.NewFakeRecognition()
	_, err := runIndexer(t, recognition, &model.ObjectRef{Bucket: "b", Key: "img+1.jpg"})
	require.NoError(t, err)

	require.Len(t, recognition.Calls, 1)
	call := recognition.Calls[0]
	assert.Equal(t, "test-collection", aws.ToString(call.CollectionId))
	assert.Equal(t, "b", aws.ToString(call.Image.S3Object.Bucket))
	assert.Equal(t, "img+1.jpg", aws.ToString(call.Image.S3Object.Name))
	assert.Equal(t, "img+1.jpg", aws.ToString(call.ExternalImageId))
	assert.Equal(t, []rtypes.Attribute{rtypes.AttributeDefault}, call.DetectionAttributes)
	assert.Equal(t, int32(5), aws.ToInt32(call.MaxFaces))
	assert.Equal(t, rtypes.QualityFilterAuto, call.QualityFilter)
}

func TestFaceIndexerFeatures(t *testing.T) {
	recognition := test.NewFakeRecognition()
	recognition.Faces["img+1.jpg"] = []rtypes.FaceRecord{
		test.Face("f1", 0.981, "img+1.jpg"),
		test.Face("f2", 0.754, "img+1.jpg"),
		{FaceDetail: &rtypes.FaceDetail{}}, // no Face, ignored
	}
	recognition.Unindexed["img+1.jpg"] = []rtypes.UnindexedFace{
		{Reasons: []rtypes.Reason{rtypes.ReasonLowSharpness, rtypes.ReasonSmallBoundingBox}},
	}

	result, err := runIndexer(t, recognition, &model.ObjectRef{Bucket: "b", Key: "img+1.jpg"})
	require.NoError(t, err)

	assert.Equal(t, model.IndexStatusIndexed, result.Status)
	assert.Equal(t, 1, result.UnindexedCount)
	assert.Equal(t, "7.0", result.FaceModelVersion)
	require.Len(t, result.Features, 2)

	f := result.Features[0]
	assert.Equal(t, "f1", f.FaceID)
	assert.Equal(t, "image-img+1.jpg", f.ImageID)
	assert.Equal(t, "img+1.jpg", f.ExternalImageID)
	assert.Equal(t, float32(0.981), f.Confidence)
	assert.Equal(t, model.Geometry{Width: 0.25, Height: 0.5, Left: 0.125, Top: 0.0625}, f.BoundingBox)
	assert.Equal(t, &model.Orientation{Roll: 1.5, Yaw: -2.25, Pitch: 3}, f.Pose)
	assert.Equal(t, &model.ImageQuality{Brightness: 80.5, Sharpness: 92.75}, f.Quality)
	assert.Equal(t, []model.Point{{Type: "eyeLeft", X: 0.3, Y: 0.4}}, f.Landmarks)
}

func TestFaceIndexerNoFaceDetected(t *testing.T) {
	recognition := test.NewFakeRecognition()
	recognition.Errs["empty.jpg"] = &rtypes.InvalidParameterException{
		Message: aws.String("There are no faces in the image. Should be at least 1."),
	}

	result, err := runIndexer(t, recognition, &model.ObjectRef{Bucket: "b", Key: "empty.jpg"})
	require.NoError(t, err)
	assert.Equal(t, model.IndexStatusNoFaceDetected, result.Status)
	assert.Empty(t, result.Features)
}

func TestFaceIndexerFailures(t *testing.T) {
	cases := []struct {
		err  error
		want model.Kind
	}{
		{&rtypes.InvalidS3ObjectException{Message: aws.String("Unable to get object metadata from S3")}, model.KindInvalidObjectReference},
		{&rtypes.InvalidParameterException{Message: aws.String("Request has invalid parameters")}, model.KindInvalidParameter},
		{&rtypes.ImageTooLargeException{}, model.KindImageTooLarge},
		{&rtypes.AccessDeniedException{}, model.KindAccessDenied},
		{&rtypes.InternalServerError{}, model.KindInternalServiceError},
		{&rtypes.ThrottlingException{}, model.KindThrottled},
		{&rtypes.ProvisionedThroughputExceededException{}, model.KindCapacityExceeded},
		{&rtypes.ResourceNotFoundException{}, model.KindResourceNotFound},
		{&rtypes.InvalidImageFormatException{}, model.KindInvalidImageFormat},
		{&rtypes.ServiceQuotaExceededException{}, model.KindQuotaExceeded},
	}
	for _, tc := range cases {
		recognition := test.NewFakeRecognition()
		recognition.Errs["k.jpg"] = tc.err

		result, err := runIndexer(t, recognition, &model.ObjectRef{Bucket: "b", Key: "k.jpg"})
		requireKind(t, err, tc.want)
		assert.Nil(t, result)
	}

	recognition := test.NewFakeRecognition()
	recognition.Errs["k.jpg"] = errors.New("socket closed")
	_, err := runIndexer(t, recognition, &model.ObjectRef{Bucket: "b", Key: "k.jpg"})
	var unclassified *model.UnclassifiedError
	assert.ErrorAs(t, err, &unclassified)
}

func TestIsNoFaceDetected(t *testing.T) {
	assert.True(t, commands.IsNoFaceDetected(&rtypes.InvalidParameterException{Message: aws.String("NO FACE found")}))
	assert.False(t, commands.IsNoFaceDetected(&rtypes.InvalidParameterException{Message: aws.String("MaxFaces out of range")}))
	assert.False(t, commands.IsNoFaceDetected(&rtypes.ThrottlingException{Message: aws.String("no face")}))
}
