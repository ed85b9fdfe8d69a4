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
package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/poiesic/codex/vector"
)

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, Vectors is consulted and then the deterministic default is used.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// Vectors pins the embedding returned for specific texts.
	Vectors map[string][]float32

	// Dimensions is the length of default vectors. Zero means 384.
	Dimensions int

	mu        sync.Mutex
	callCount int
	texts     []string
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockEmbedder().
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Vectors: map[string][]float32{}}
}

// WithVector pins the vector returned for text and returns the embedder.
func (m *MockEmbedder) WithVector(text string, vec []float32) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Vectors == nil {
		m.Vectors = map[string][]float32{}
	}
	m.Vectors[text] = vec
	return m
}

// EmbedText returns the pinned vector for text, or a deterministic one.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.callCount++
	m.texts = append(m.texts, text)
	fn := m.EmbedTextFunc
	pinned, ok := m.Vectors[text]
	dim := m.Dimensions
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if ok {
		return pinned, nil
	}
	if dim == 0 {
		dim = 384
	}
	return generateDeterministicVector(text, dim), nil
}

// CallCount returns the number of times EmbedText was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Texts returns the texts passed to EmbedText, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears the call count and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.texts = nil
	m.EmbedTextFunc = nil
	m.Vectors = map[string][]float32{}
}

// generateDeterministicVector creates a unit vector seeded by an FNV hash of text.
func generateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	out := make([]float32, dim)
	for i := range out {
		seed = seed*1664525 + 1013904223 // LCG constants
		out[i] = float32(seed%1000)/1000.0 - 0.5
	}
	return vector.Normalize(out)
}
