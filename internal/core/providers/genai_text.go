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
	"encoding/json"
	"fmt"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// GenAITextGenerator answers the text stages with a Gemini model in JSON mode.
type GenAITextGenerator struct {
	model         *cloud.QuotaAwareGenerativeAIModel
	prompts       *Prompts
	inputCounter  metric.Int64Counter
	outputCounter metric.Int64Counter
}

func NewGenAITextGenerator(m *cloud.QuotaAwareGenerativeAIModel, prompts *Prompts) *GenAITextGenerator {
	cfg := &genai.GenerateContentConfig{}
	if m.GenerativeContentConfig != nil {
		c := *m.GenerativeContentConfig
		cfg = &c
	}
	cfg.ResponseMIMEType = "application/json"
	if cfg.SystemInstruction == nil {
		cfg.SystemInstruction = genai.NewContentFromText(prompts.System, genai.RoleUser)
	}

	meter := otel.Meter(cor.MeterName)
	out := &GenAITextGenerator{model: m.WithConfig(cfg), prompts: prompts}
	out.inputCounter, _ = meter.Int64Counter("text-generator.gemini.token.input")
	out.outputCounter, _ = meter.Int64Counter("text-generator.gemini.token.output")
	return out
}

func (g *GenAITextGenerator) Analyze(ctx context.Context, req services.AnalysisRequest) (*model.StoryAnalysis, error) {
	prompt, err := g.prompts.Analysis(req)
	if err != nil {
		return nil, err
	}
	return generateJSON[model.StoryAnalysis](ctx, g, prompt)
}

func (g *GenAITextGenerator) WriteScript(ctx context.Context, req services.ScriptRequest) (*model.Script, error) {
	prompt, err := g.prompts.Script(req)
	if err != nil {
		return nil, err
	}
	out, err := generateJSON[model.Script](ctx, g, prompt)
	if err != nil {
		return nil, err
	}
	NormalizeScript(out)
	return out, nil
}

func (g *GenAITextGenerator) PlanScenes(ctx context.Context, req services.StoryboardRequest) (*model.Storyboard, error) {
	prompt, err := g.prompts.Storyboard(req)
	if err != nil {
		return nil, err
	}
	return generateJSON[model.Storyboard](ctx, g, prompt)
}

func generateJSON[T any](ctx context.Context, g *GenAITextGenerator, prompt string) (*T, error) {
	text, err := cloud.GenerateText(ctx, g.inputCounter, g.outputCounter, g.model, cloud.NewTextPart(prompt))
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON response: %w", err)
	}
	return &out, nil
}
