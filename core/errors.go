// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "errors"

// Domain validation errors
var (
	// ErrValidation is wrapped by every input validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrQueryTooShort indicates a search query below the minimum length.
	ErrQueryTooShort = errors.New("query too short")

	// ErrQuestionTooShort indicates a question below the minimum length.
	ErrQuestionTooShort = errors.New("question too short")

	// ErrLimitOutOfRange indicates a result limit outside the accepted range.
	ErrLimitOutOfRange = errors.New("limit out of range")

	// ErrInvalidMode indicates an unknown search mode.
	ErrInvalidMode = errors.New("invalid search mode")

	// ErrContextOutOfRange indicates a context budget outside the accepted range.
	ErrContextOutOfRange = errors.New("max context length out of range")

	// ErrInvalidYearRange indicates year_from is after year_to.
	ErrInvalidYearRange = errors.New("invalid year range")

	// ErrEmptyContent indicates a document with no text.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")
)

// ErrNegativeLength is returned when a decoded slice length is negative.
var ErrNegativeLength = errors.New("negative length")
