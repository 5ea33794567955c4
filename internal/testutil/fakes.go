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

package test

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rtypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// FakeStorage is an in-memory S3 holding objects by "bucket/key".
type FakeStorage struct {
	mu       sync.Mutex
	Metadata map[string]map[string]string // user metadata per existing object
	Errs     map[string]error             // injected HeadObject failures
	Heads    []*s3.HeadObjectInput
	Puts     []*s3.PutObjectInput
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{Metadata: make(map[string]map[string]string), Errs: make(map[string]error)}
}

// AddObject registers an object so HeadObject finds it. HeadObject returns
// metadata exactly as given; pass unprefixed keys to mirror aws-sdk-go-v2,
// which strips x-amz-meta- before returning.
func (f *FakeStorage) AddObject(bucket, key string, metadata map[string]string) *FakeStorage {
	if metadata == nil {
		metadata = map[string]string{}
	}
	f.Metadata[bucket+"/"+key] = metadata
	return f
}

func (f *FakeStorage) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Heads = append(f.Heads, in)
	id := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	if err, ok := f.Errs[id]; ok {
		return nil, err
	}
	md, ok := f.Metadata[id]
	if !ok {
		return nil, &s3types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3.HeadObjectOutput{Metadata: md}, nil
}

func (f *FakeStorage) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Puts = append(f.Puts, in)
	f.Metadata[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = in.Metadata
	return &s3.PutObjectOutput{ETag: aws.String(fmt.Sprintf("\"etag-%d\"", len(f.Puts)))}, nil
}

// FakeRecognition returns canned IndexFaces results keyed by object key.
type FakeRecognition struct {
	mu          sync.Mutex
	Faces       map[string][]rtypes.FaceRecord
	Unindexed   map[string][]rtypes.UnindexedFace
	Errs        map[string]error
	Calls       []*rekognition.IndexFacesInput
	Collections map[string]int64
}

func NewFakeRecognition() *FakeRecognition {
	return &FakeRecognition{
		Faces:       make(map[string][]rtypes.FaceRecord),
		Unindexed:   make(map[string][]rtypes.UnindexedFace),
		Errs:        make(map[string]error),
		Collections: make(map[string]int64),
	}
}

func (f *FakeRecognition) IndexFaces(_ context.Context, in *rekognition.IndexFacesInput, _ ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, in)
	key := aws.ToString(in.Image.S3Object.Name)
	if err, ok := f.Errs[key]; ok {
		return nil, err
	}
	return &rekognition.IndexFacesOutput{
		FaceRecords:      f.Faces[key],
		UnindexedFaces:   f.Unindexed[key],
		FaceModelVersion: aws.String("7.0"),
	}, nil
}

func (f *FakeRecognition) DescribeCollection(_ context.Context, in *rekognition.DescribeCollectionInput, _ ...func(*rekognition.Options)) (*rekognition.DescribeCollectionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count, ok := f.Collections[aws.ToString(in.CollectionId)]
	if !ok {
		return nil, &rtypes.ResourceNotFoundException{Message: aws.String("collection not found")}
	}
	return &rekognition.DescribeCollectionOutput{
		FaceCount:        aws.Int64(count),
		FaceModelVersion: aws.String("7.0"),
		CollectionARN:    aws.String("arn:aws:rekognition:us-east-1:123456789012:collection/" + aws.ToString(in.CollectionId)),
	}, nil
}

// Face builds a FaceRecord with the given id and confidence.
func Face(id string, confidence float32, externalImageID string) rtypes.FaceRecord {
	return rtypes.FaceRecord{
		Face: &rtypes.Face{
			FaceId:          aws.String(id),
			ImageId:         aws.String("image-" + externalImageID),
			ExternalImageId: aws.String(externalImageID),
			Confidence:      aws.Float32(confidence),
			BoundingBox: &rtypes.BoundingBox{
				Width:  aws.Float32(0.25),
				Height: aws.Float32(0.5),
				Left:   aws.Float32(0.125),
				Top:    aws.Float32(0.0625),
			},
			IndexFacesModelVersion: aws.String("7.0"),
		},
		FaceDetail: &rtypes.FaceDetail{
			Confidence: aws.Float32(confidence),
			Pose:       &rtypes.Pose{Roll: aws.Float32(1.5), Yaw: aws.Float32(-2.25), Pitch: aws.Float32(3)},
			Quality:    &rtypes.ImageQuality{Brightness: aws.Float32(80.5), Sharpness: aws.Float32(92.75)},
			Landmarks: []rtypes.Landmark{
				{Type: rtypes.LandmarkTypeEyeLeft, X: aws.Float32(0.3), Y: aws.Float32(0.4)},
			},
		},
	}
}

// FakeStore is an in-memory DynamoDB table. When Err is set, the first
// FailAfter writes succeed and every later one returns Err.
type FakeStore struct {
	mu        sync.Mutex
	Items     []*dynamodb.PutItemInput
	Err       error
	FailAfter int
}

func (f *FakeStore) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil && len(f.Items) >= f.FailAfter {
		return nil, f.Err
	}
	f.Items = append(f.Items, in)
	return &dynamodb.PutItemOutput{}, nil
}

// FakeQueue serves one batch of messages and records deletions.
type FakeQueue struct {
	mu       sync.Mutex
	Messages []sqstypes.Message
	Deleted  []string
	Err      error
	Receives []*sqs.ReceiveMessageInput
}

func (f *FakeQueue) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Receives = append(f.Receives, in)
	if f.Err != nil {
		return nil, f.Err
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.Messages}
	f.Messages = nil
	return out, nil
}

func (f *FakeQueue) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}
