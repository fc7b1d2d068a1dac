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

package services

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/transcript"
)

// Narration is the single voice track of a render and the timing artifacts
// derived from it.
type Narration struct {
	AudioURL      string
	AudioDuration float64
	Transcript    model.Transcript
	SRT           string
	Cost          float64
}

// NarrationService makes exactly one text to speech call per render, over
// the narration of every scene, so prosody carries across scene boundaries.
type NarrationService struct {
	speaker     Speaker
	costPerChar float64
}

func NewNarrationService(speaker Speaker, costPerChar float64) *NarrationService {
	return &NarrationService{speaker: speaker, costPerChar: costPerChar}
}

func (n *NarrationService) Narrate(ctx context.Context, project *model.Project, script *model.Script) (*Narration, error) {
	text := transcript.ConcatNarration(script.Scenes)
	if text == "" {
		return nil, fmt.Errorf("%w: script has no narration", ErrInvalidInput)
	}
	speech, err := n.speaker.Speak(ctx, SpeechRequest{ProjectID: project.ID, Text: text, Language: project.Language})
	if err != nil {
		return nil, NewProviderError(model.StageVideo, fmt.Errorf("text to speech: %w", err))
	}

	// Subtitles follow the scene clock, never the word timings.
	srt := transcript.RenderSRT(transcript.SceneCues(script.Scenes))
	return &Narration{
		AudioURL:      speech.AudioURL,
		AudioDuration: speech.Duration,
		Transcript:    transcript.BuildTranscript(text, project.Language, speech.Alignment, speech.Duration),
		SRT:           srt,
		Cost:          float64(utf8.RuneCountInString(text)) * n.costPerChar,
	}, nil
}
