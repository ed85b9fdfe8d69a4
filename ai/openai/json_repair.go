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

import "strings"

// repairJSON fixes the JSON mistakes small chat models make most often:
// a key missing its opening quote (`{answer": ...`) and a trailing comma
// before a closing brace or bracket.
func repairJSON(s string) string {
	src := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 8)

	inString := false
	for i := 0; i < len(src); i++ {
		ch := src[i]

		if inString {
			b.WriteRune(ch)
			if ch == '\\' && i+1 < len(src) {
				i++
				b.WriteRune(src[i])
			} else if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			b.WriteRune(ch)
		case ',':
			if next := nextNonSpace(src, i+1); next < len(src) && (src[next] == '}' || src[next] == ']') {
				continue
			}
			b.WriteRune(ch)
			i = copyUnquotedKey(&b, src, i+1) - 1
		case '{':
			b.WriteRune(ch)
			i = copyUnquotedKey(&b, src, i+1) - 1
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// copyUnquotedKey copies whitespace from src[start:] and, when it is
// followed by an identifier ending in '":', writes the missing opening
// quote before the identifier. It returns the index of the first rune not
// consumed. The closing quote is left for the caller to treat as the start
// of a string, so it is consumed here as well.
func copyUnquotedKey(b *strings.Builder, src []rune, start int) int {
	i := start
	for i < len(src) && isSpace(src[i]) {
		b.WriteRune(src[i])
		i++
	}
	if i >= len(src) || !isLetter(src[i]) {
		return i
	}

	end := i
	for end < len(src) && (isLetter(src[end]) || src[end] == '_') {
		end++
	}
	if end+1 < len(src) && src[end] == '"' && src[end+1] == ':' {
		b.WriteRune('"')
		b.WriteString(string(src[i : end+1]))
		return end + 1
	}
	return i
}

func nextNonSpace(src []rune, i int) int {
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	return i
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
