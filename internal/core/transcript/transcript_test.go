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

package transcript_test

import (
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenes() []model.SceneScript {
	return []model.SceneScript{
		{Order: 2, Narration: "The fog  answered.", StartTime: 12.5, EndTime: 30},
		{Order: 1, Narration: "Every night,\nElias lit the lamp.", StartTime: 0, EndTime: 12.5},
	}
}

// Cues follow the scene times exactly and tile [0, target] with no gaps.
func TestSceneCuesCoverTarget(t *testing.T) {
	cues := transcript.SceneCues(scenes())
	require.Len(t, cues, 2)

	assert.Equal(t, 0.0, cues[0].Start)
	for i := 1; i < len(cues); i++ {
		assert.Equal(t, cues[i-1].End, cues[i].Start)
		assert.Less(t, cues[i].Start, cues[i].End)
	}
	assert.Equal(t, 30.0, cues[len(cues)-1].End)

	assert.Equal(t, "Every night, Elias lit the lamp.", cues[0].Text)
	assert.Equal(t, 1, cues[0].Index)
	assert.Equal(t, 2, cues[1].Index)
}

func TestRenderSRT(t *testing.T) {
	srt := transcript.RenderSRT(transcript.SceneCues(scenes()))
	want := "1\n00:00:00,000 --> 00:00:12,500\nEvery night, Elias lit the lamp.\n" +
		"\n" +
		"2\n00:00:12,500 --> 00:00:30,000\nThe fog answered.\n"
	assert.Equal(t, want, srt)
}

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", transcript.Timestamp(0))
	assert.Equal(t, "00:01:30,250", transcript.Timestamp(90.25))
	assert.Equal(t, "01:00:01,001", transcript.Timestamp(3601.001))
	assert.Equal(t, "00:00:00,000", transcript.Timestamp(-3))
}

// Without alignment there is one word per whitespace token of the narration.
func TestPlaceholderWordCount(t *testing.T) {
	text := transcript.ConcatNarration(scenes())
	assert.Equal(t, "Every night, Elias lit the lamp. The fog answered.", text)

	tr := transcript.BuildTranscript(text, "en", nil, 27)
	assert.Len(t, tr.Words, len(strings.Fields(text)))
	assert.Equal(t, "en", tr.Language)
	assert.InDelta(t, 27.0, tr.Words[len(tr.Words)-1].End, 1e-9)
	assert.InDelta(t, 3.0, tr.Words[0].End, 1e-9)
}

func TestPlaceholderWithoutDuration(t *testing.T) {
	tr := transcript.BuildTranscript("one two", "en", &transcript.Alignment{}, 0)
	require.Len(t, tr.Words, 2)
	assert.InDelta(t, transcript.DefaultWordDuration*2, tr.Duration, 1e-9)
	assert.Empty(t, transcript.PlaceholderWords("   ", 10))
}

func TestWordsFromAlignment(t *testing.T) {
	chars := strings.Split("Hi  there", "")
	a := &transcript.Alignment{Characters: chars}
	for i := range chars {
		a.StartTimes = append(a.StartTimes, float64(i)*0.1)
		a.EndTimes = append(a.EndTimes, float64(i)*0.1+0.1)
	}
	words := transcript.WordsFromAlignment(a)
	require.Len(t, words, 2)
	assert.Equal(t, "Hi", words[0].Word)
	assert.InDelta(t, 0.0, words[0].Start, 1e-9)
	assert.InDelta(t, 0.2, words[0].End, 1e-9)
	assert.Equal(t, "there", words[1].Word)
	assert.InDelta(t, 0.4, words[1].Start, 1e-9)
	assert.InDelta(t, 0.9, words[1].End, 1e-9)

	tr := transcript.BuildTranscript("Hi there", "en", a, 0)
	assert.InDelta(t, 0.9, tr.Duration, 1e-9)
}
