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

// Package transcript derives the two timing artifacts of the narration:
// the word level transcript and the scene level subtitles. The two are built
// from different sources and are never reconciled against each other.
package transcript

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// DefaultWordDuration is used for placeholder words when the narration
// length is unknown.
const DefaultWordDuration = 0.4

// Alignment is character level timing as returned by a speech provider.
type Alignment struct {
	Characters []string
	StartTimes []float64
	EndTimes   []float64
}

// ConcatNarration joins the scene narrations, in scene order, into the
// single text sent to the speech provider.
func ConcatNarration(scenes []model.SceneScript) string {
	parts := make([]string, 0, len(scenes))
	for _, s := range byOrder(scenes) {
		if n := strings.Join(strings.Fields(s.Narration), " "); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " ")
}

// WordsFromAlignment accumulates characters into words, splitting at
// whitespace. A word starts at its first character and ends at its last.
func WordsFromAlignment(a *Alignment) []model.WordTimestamp {
	if a == nil {
		return nil
	}
	n := min(len(a.Characters), len(a.StartTimes), len(a.EndTimes))

	var words []model.WordTimestamp
	var sb strings.Builder
	var start, end float64
	flush := func() {
		if sb.Len() > 0 {
			words = append(words, model.WordTimestamp{Word: sb.String(), Start: start, End: end})
			sb.Reset()
		}
	}
	for i := 0; i < n; i++ {
		ch := a.Characters[i]
		if strings.TrimFunc(ch, unicode.IsSpace) == "" {
			flush()
			continue
		}
		if sb.Len() == 0 {
			start = a.StartTimes[i]
		}
		sb.WriteString(ch)
		end = a.EndTimes[i]
	}
	flush()
	return words
}

// PlaceholderWords spreads the whitespace separated tokens of text evenly
// over duration.
func PlaceholderWords(text string, duration float64) []model.WordTimestamp {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	per := DefaultWordDuration
	if duration > 0 {
		per = duration / float64(len(tokens))
	}
	words := make([]model.WordTimestamp, len(tokens))
	for i, tok := range tokens {
		words[i] = model.WordTimestamp{
			Word:  tok,
			Start: float64(i) * per,
			End:   float64(i+1) * per,
		}
	}
	return words
}

// BuildTranscript uses the provider alignment when there is one and falls
// back to placeholder words otherwise.
func BuildTranscript(text, language string, alignment *Alignment, duration float64) model.Transcript {
	words := WordsFromAlignment(alignment)
	if len(words) == 0 {
		words = PlaceholderWords(text, duration)
	}
	if duration <= 0 && len(words) > 0 {
		duration = words[len(words)-1].End
	}
	return model.Transcript{
		Text:     text,
		Words:    words,
		Language: language,
		Duration: duration,
	}
}

func byOrder(scenes []model.SceneScript) []model.SceneScript {
	sorted := make([]model.SceneScript, len(scenes))
	copy(sorted, scenes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return sorted
}
