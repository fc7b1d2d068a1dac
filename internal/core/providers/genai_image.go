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

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GenAIImageGenerator renders scene stills. Without a reference it calls an
// Imagen model; with one it asks a Gemini image model to draw the new scene
// in the style of the reference image.
type GenAIImageGenerator struct {
	models    *genai.Models
	model     string
	editModel string
	sink      mediaSink
	limiter   *rate.Limiter
}

func NewGenAIImageGenerator(models *genai.Models, model, editModel string, store cloud.BlobStore, prefix string, requestsPerSecond int) *GenAIImageGenerator {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return &GenAIImageGenerator{
		models:    models,
		model:     model,
		editModel: editModel,
		sink:      mediaSink{store: store, prefix: prefix},
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

func (g *GenAIImageGenerator) GenerateImage(ctx context.Context, req services.ImageRequest) (*services.ImageResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var (
		data     []byte
		mimeType string
		err      error
		provider string
	)
	if req.ReferenceURL != "" && g.editModel != "" {
		data, mimeType, err = g.withReference(ctx, req)
		provider = g.editModel
	} else {
		data, mimeType, err = g.fromPrompt(ctx, req)
		provider = g.model
	}
	if err != nil {
		return nil, err
	}
	url, err := g.sink.put(ctx, req.ProjectID, "images",
		fmt.Sprintf("scene-%03d-%s%s", req.Scene.Order, uuid.NewString(), extensionOf(mimeType)), data, mimeType)
	if err != nil {
		return nil, err
	}
	return &services.ImageResult{URL: url, Provider: provider}, nil
}

func (g *GenAIImageGenerator) fromPrompt(ctx context.Context, req services.ImageRequest) ([]byte, string, error) {
	resp, err := g.models.GenerateImages(ctx, g.model, ImagePrompt(req), &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		AspectRatio:      "9:16",
		OutputMIMEType:   "image/png",
		IncludeRAIReason: true,
	})
	if err != nil {
		return nil, "", err
	}
	if len(resp.GeneratedImages) == 0 {
		return nil, "", errors.New("image model returned no image")
	}
	img := resp.GeneratedImages[0]
	if img.RAIFilteredReason != "" {
		return nil, "", fmt.Errorf("image blocked by responsible AI filters: %s", img.RAIFilteredReason)
	}
	if img.Image == nil || len(img.Image.ImageBytes) == 0 {
		return nil, "", errors.New("image model returned an empty image")
	}
	return img.Image.ImageBytes, img.Image.MIMEType, nil
}

func (g *GenAIImageGenerator) withReference(ctx context.Context, req services.ImageRequest) ([]byte, string, error) {
	ref, refMIME, err := g.sink.read(ctx, req.ReferenceURL)
	if err != nil {
		return nil, "", fmt.Errorf("loading style reference: %w", err)
	}
	prompt := "Draw the next scene of the same video. Match the style, palette and characters of the attached image exactly, but not its composition. Scene: " + ImagePrompt(req)
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(ref, refMIME),
		genai.NewPartFromText(prompt),
	}, genai.RoleUser)}

	resp, err := g.models.GenerateContent(ctx, g.editModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
		SafetySettings:     cloud.DefaultSafetySettings,
	})
	if err != nil {
		return nil, "", err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, "", fmt.Errorf("prompt blocked by safety filters: %s", resp.PromptFeedback.BlockReason)
	}
	for _, c := range resp.Candidates {
		if c.FinishReason == genai.FinishReasonSafety || c.FinishReason == genai.FinishReasonProhibitedContent {
			return nil, "", fmt.Errorf("image blocked by safety filters: %s", c.FinishReason)
		}
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return p.InlineData.Data, p.InlineData.MIMEType, nil
			}
		}
	}
	return nil, "", errors.New("image model returned no image")
}
