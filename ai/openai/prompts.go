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
package openai

import "fmt"

const answerSystemPrompt = `You answer questions about legal texts using only the passage supplied by the user.

Output ONLY valid JSON of the form {"answer": "<text>", "score": <number>}. Do not include any preamble,
explanation, greeting, or acknowledgment. Start your response directly with the opening brace { and end
with the closing brace }.

Rules:
- "answer" is the shortest span of the passage that answers the question, copied verbatim.
- "score" is your confidence between 0 and 1.
- If the passage does not contain an answer, return {"answer": "", "score": 0}.`

const summarySystemPrompt = `Summarize the legal text supplied by the user in at most three sentences.
Reply with the summary only.`

const answerPromptTemplate = `Question: %s

Passage:
%s`

func buildAnswerPrompt(question, passage string) string {
	return fmt.Sprintf(answerPromptTemplate, question, passage)
}
