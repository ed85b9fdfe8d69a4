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
// Package mock provides test doubles for the ai package interfaces.
//
// The doubles return concrete types so tests can inject behavior and
// assert on call counts:
//
//	embedder := mock.NewMockEmbedder().WithVector("bail", []float32{1, 0})
//	answerer := mock.NewMockAnswerer()
//	answerer.AnswerFunc = func(ctx context.Context, q, p string) (ai.Answer, error) {
//	    return ai.Answer{}, errors.New("overloaded")
//	}
//
// # Default Behavior
//
//   - MockEmbedder: pinned vectors first, then unit vectors seeded by a text hash
//   - MockAnswerer: the passage's first line with score 0.5
//   - MockSummarizer: the text's first sentence
package mock
