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

package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
	"google.golang.org/genai"
)

// GenAISpeaker narrates with a Gemini TTS model. The model returns raw PCM
// which is wrapped into a WAV before upload. It has no word timing, so the
// narration service estimates the alignment.
type GenAISpeaker struct {
	model *cloud.QuotaAwareGenerativeAIModel
	sink  mediaSink
}

func NewGenAISpeaker(models *genai.Models, modelName, voice string, store cloud.BlobStore, prefix string, requestsPerSecond int) *GenAISpeaker {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	return &GenAISpeaker{
		model: cloud.NewQuotaAwareModel(cfg, modelName, models, requestsPerSecond),
		sink:  mediaSink{store: store, prefix: prefix},
	}
}

func (s *GenAISpeaker) Speak(ctx context.Context, req services.SpeechRequest) (*services.SpeechResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("nothing to narrate")
	}
	resp, err := s.model.GenerateContent(ctx, genai.Text("Read the following narration aloud in a warm, engaging storyteller voice:\n\n"+req.Text))
	if err != nil {
		return nil, err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked by safety filters: %s", resp.PromptFeedback.BlockReason)
	}

	var (
		pcm      []byte
		mimeType string
	)
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.InlineData != nil {
				pcm = append(pcm, p.InlineData.Data...)
				mimeType = p.InlineData.MIMEType
			}
		}
	}
	if len(pcm) == 0 {
		return nil, errors.New("speech model returned no audio")
	}

	rate := SampleRateOf(mimeType)
	url, err := s.sink.put(ctx, req.ProjectID, "audio", "narration-"+uuid.NewString()+".wav", EncodeWAV(pcm, rate), "audio/wav")
	if err != nil {
		return nil, err
	}
	return &services.SpeechResult{AudioURL: url, Duration: PCMDuration(pcm, rate)}, nil
}
