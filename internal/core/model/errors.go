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

package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failures the workflow knows how to report.
// Anything that cannot be expressed as a Kind is unclassified and fatal.
type Kind int

const (
	KindMissingRecords Kind = iota + 1
	KindUnsupportedSource
	KindInvalidObjectReference
	KindInvalidParameter
	KindImageTooLarge
	KindInvalidImageFormat
	KindAccessDenied
	KindResourceNotFound
	KindInternalServiceError
	KindThrottled
	KindCapacityExceeded
	KindQuotaExceeded
)

var kindNames = map[Kind]string{
	KindMissingRecords:         "MissingRecords",
	KindUnsupportedSource:      "UnsupportedSource",
	KindInvalidObjectReference: "InvalidObjectReference",
	KindInvalidParameter:       "InvalidParameter",
	KindImageTooLarge:          "ImageTooLarge",
	KindInvalidImageFormat:     "InvalidImageFormat",
	KindAccessDenied:           "AccessDenied",
	KindResourceNotFound:       "ResourceNotFound",
	KindInternalServiceError:   "InternalServiceError",
	KindThrottled:              "Throttled",
	KindCapacityExceeded:       "CapacityExceeded",
	KindQuotaExceeded:          "QuotaExceeded",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// StatusCode maps a failure kind to the response code reported to the caller.
//
// Throttled, CapacityExceeded and QuotaExceeded share 401 with
// UnsupportedSource. Callers depend on these codes, so they are kept as is.
func (k Kind) StatusCode() int {
	switch k {
	case KindUnsupportedSource, KindThrottled, KindCapacityExceeded, KindQuotaExceeded:
		return http.StatusUnauthorized
	case KindAccessDenied:
		return http.StatusForbidden
	case KindResourceNotFound:
		return http.StatusNotFound
	case KindInvalidObjectReference, KindInvalidParameter, KindImageTooLarge, KindInvalidImageFormat:
		return http.StatusNotAcceptable
	default:
		return http.StatusInternalServerError
	}
}

var (
	// ErrMissingRecords is reported when a notification has no Records key at all.
	ErrMissingRecords = errors.New("notification has no Records collection")
	// ErrUnsupportedSource is reported when the first record was not emitted by S3.
	ErrUnsupportedSource = errors.New("notification was not emitted by aws:s3")
)

// ClassifiedError is a failure with a known Kind. Op names the step that
// produced it, e.g. "index-faces".
type ClassifiedError struct {
	Kind Kind
	Op   string
	Err  error
}

// NewClassifiedError wraps err with a kind and the step that observed it.
func NewClassifiedError(kind Kind, op string, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Op: op, Err: err}
}

func (e *ClassifiedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// UnclassifiedError carries a failure the workflow cannot map to a Kind.
// It is never turned into a response code.
type UnclassifiedError struct {
	Op  string
	Err error
}

func (e *UnclassifiedError) Error() string {
	return fmt.Sprintf("%s: unclassified failure: %v", e.Op, e.Err)
}

func (e *UnclassifiedError) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
