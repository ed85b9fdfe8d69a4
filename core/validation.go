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

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Request bounds shared by the search and ask surfaces.
const (
	MinQueryLength    = 2
	MinQuestionLength = 3
	MinLimit          = 1
	MaxLimit          = 100
	MinContextLength  = 500
	MaxContextLength  = 5000
)

// ValidateQuery checks a search query before any store or provider call.
func ValidateQuery(query string, mode SearchMode, limit int) error {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < MinQueryLength {
		return fmt.Errorf("%w: %w: need at least %d characters", ErrValidation, ErrQueryTooShort, MinQueryLength)
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidMode, mode)
	}
	return ValidateLimit(limit)
}

// ValidateLimit checks that limit lies within [MinLimit, MaxLimit].
func ValidateLimit(limit int) error {
	if limit < MinLimit || limit > MaxLimit {
		return fmt.Errorf("%w: %w: %d not in [%d, %d]", ErrValidation, ErrLimitOutOfRange, limit, MinLimit, MaxLimit)
	}
	return nil
}

// ValidateYearRange rejects a range whose lower bound exceeds its upper bound.
// Zero means the bound is unset.
func ValidateYearRange(from, to int) error {
	if from != 0 && to != 0 && from > to {
		return fmt.Errorf("%w: %w: %d-%d", ErrValidation, ErrInvalidYearRange, from, to)
	}
	return nil
}

// ValidateQuestion checks an ask request.
func ValidateQuestion(question string, maxContext int) error {
	if utf8.RuneCountInString(strings.TrimSpace(question)) < MinQuestionLength {
		return fmt.Errorf("%w: %w: need at least %d characters", ErrValidation, ErrQuestionTooShort, MinQuestionLength)
	}
	return ValidateContextLength(maxContext)
}

// ValidateContextLength checks that n lies within [MinContextLength, MaxContextLength].
func ValidateContextLength(n int) error {
	if n < MinContextLength || n > MaxContextLength {
		return fmt.Errorf("%w: %w: %d not in [%d, %d]", ErrValidation, ErrContextOutOfRange, n, MinContextLength, MaxContextLength)
	}
	return nil
}

// ValidateDocument validates a Document before it is persisted.
//
// Validation rules:
//   - FullText must not be blank
//   - Title must not be blank
//
// ID and Fingerprint are assigned during ingestion and are not checked.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: %w: document is nil", ErrValidation, ErrInvalidDocument)
	}
	if strings.TrimSpace(doc.FullText) == "" {
		return fmt.Errorf("%w: %w: %w", ErrValidation, ErrInvalidDocument, ErrEmptyContent)
	}
	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: %w: title is required", ErrValidation, ErrInvalidDocument)
	}
	return nil
}
