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
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
	"github.com/openai/openai-go/v3"
	"golang.org/x/time/rate"
)

// GenerateSchema reflects T into a strict JSON schema: no additional
// properties and no $ref indirection.
func GenerateSchema[T any]() any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var (
	analysisSchema   = GenerateSchema[model.StoryAnalysis]()
	scriptSchema     = GenerateSchema[model.Script]()
	storyboardSchema = GenerateSchema[model.Storyboard]()
)

// OpenAITextGenerator answers the text stages through an OpenAI compatible
// chat completions endpoint with structured outputs.
type OpenAITextGenerator struct {
	client      openai.Client
	model       string
	prompts     *Prompts
	temperature float64
	limiter     *rate.Limiter
}

func NewOpenAITextGenerator(client *openai.Client, modelName string, prompts *Prompts, temperature float64, requestsPerSecond int) *OpenAITextGenerator {
	if modelName == "" {
		modelName = openai.ChatModelGPT4oMini
	}
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return &OpenAITextGenerator{
		client:      *client,
		model:       modelName,
		prompts:     prompts,
		temperature: temperature,
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

func (g *OpenAITextGenerator) Analyze(ctx context.Context, req services.AnalysisRequest) (*model.StoryAnalysis, error) {
	prompt, err := g.prompts.Analysis(req)
	if err != nil {
		return nil, err
	}
	return structuredResponse[model.StoryAnalysis](ctx, g, "story_analysis", prompt, analysisSchema)
}

func (g *OpenAITextGenerator) WriteScript(ctx context.Context, req services.ScriptRequest) (*model.Script, error) {
	prompt, err := g.prompts.Script(req)
	if err != nil {
		return nil, err
	}
	out, err := structuredResponse[model.Script](ctx, g, "script", prompt, scriptSchema)
	if err != nil {
		return nil, err
	}
	NormalizeScript(out)
	return out, nil
}

func (g *OpenAITextGenerator) PlanScenes(ctx context.Context, req services.StoryboardRequest) (*model.Storyboard, error) {
	prompt, err := g.prompts.Storyboard(req)
	if err != nil {
		return nil, err
	}
	return structuredResponse[model.Storyboard](ctx, g, "storyboard", prompt, storyboardSchema)
}

func structuredResponse[T any](ctx context.Context, g *OpenAITextGenerator, name, prompt string, schema any) (*T, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for openai quota: %w", err)
	}
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(g.prompts.System),
			openai.UserMessage(prompt),
		},
		Model: g.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        name,
					Description: openai.String("Structured " + name + " response"),
					Schema:      schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}
	if g.temperature > 0 {
		params.Temperature = openai.Float(g.temperature)
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("no response from openai")
	}
	choice := completion.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("openai refused the request for policy reasons: %s", choice.Message.Refusal)
	}
	if choice.FinishReason == "content_filter" {
		return nil, errors.New("openai response blocked by the content filter")
	}

	var out T
	if err := json.Unmarshal([]byte(cloud.StripCodeFence(choice.Message.Content)), &out); err != nil {
		return nil, fmt.Errorf("failed to parse openai JSON response: %w", err)
	}
	return &out, nil
}
