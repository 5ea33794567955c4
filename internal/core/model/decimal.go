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
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Decimal is a fixed-point number persisted as a DynamoDB N attribute and
// rendered as a bare JSON number. A float32 score such as 0.981 is captured
// by its shortest decimal form, so it reads back as exactly 0.981.
type Decimal struct {
	decimal.Decimal
}

// NewDecimal converts a raw service value into its fixed-point form.
func NewDecimal(f float32) Decimal {
	return Decimal{Decimal: decimal.NewFromFloat32(f)}
}

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler.
func (d Decimal) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: d.String()}, nil
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler.
func (d *Decimal) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("decimal: expected N attribute, got %T", av)
	}
	parsed, err := decimal.NewFromString(n.Value)
	if err != nil {
		return fmt.Errorf("decimal: %w", err)
	}
	d.Decimal = parsed
	return nil
}

// MarshalJSON writes the value as an unquoted JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}
