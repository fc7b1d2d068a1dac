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

package providers_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/providers"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptsRender(t *testing.T) {
	p, err := providers.NewPrompts(cloud.PromptTemplates{})
	require.NoError(t, err)
	assert.NotEmpty(t, p.System)

	out, err := p.Script(services.ScriptRequest{
		Topic:          "The last lighthouse keeper",
		Language:       "en",
		TargetDuration: 45,
		Analysis:       model.GetExampleAnalysis(),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "45 second")
	assert.Contains(t, out, "The last lighthouse keeper")
	assert.NotContains(t, out, "reviewer asked")

	out, err = p.Storyboard(services.StoryboardRequest{
		Topic:         "The last lighthouse keeper",
		Script:        model.GetExampleScript(),
		Analysis:      model.GetExampleAnalysis(),
		RevisionNotes: "warmer colours",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "The storyboard has 2 scenes")
	assert.Contains(t, out, "warmer colours")
}

func TestConfiguredTemplatesOverrideDefaults(t *testing.T) {
	p, err := providers.NewPrompts(cloud.PromptTemplates{
		SystemInstructions: "be brief",
		Analysis:           "topic={{ .TOPIC }} lang={{ .LANGUAGE }} missing={{ .NOPE }}",
	})
	require.NoError(t, err)
	assert.Equal(t, "be brief", p.System)

	out, err := p.Analysis(services.AnalysisRequest{Topic: "tides", Language: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "topic=tides lang=fr missing=<no value>", out)
}

func TestBadTemplateIsRejected(t *testing.T) {
	_, err := providers.NewPrompts(cloud.PromptTemplates{Script: "{{ .TOPIC "})
	assert.Error(t, err)
}

func TestNormalizeScriptRecomputesNarration(t *testing.T) {
	s := &model.Script{
		Narration: "stale",
		WordCount: 99,
		Scenes: []model.SceneScript{
			{Order: 1, Narration: "  One two. "},
			{Order: 2, Narration: ""},
			{Order: 3, Narration: "Three four five."},
		},
	}
	providers.NormalizeScript(s)
	assert.Equal(t, "One two. Three four five.", s.Narration)
	assert.Equal(t, 5, s.WordCount)
}

func TestImagePromptCarriesStyleAndFraming(t *testing.T) {
	out := providers.ImagePrompt(services.ImageRequest{
		Scene: model.StoryboardScene{
			ImagePrompt: "A lighthouse in fog",
			CameraAngle: "low angle",
			Lighting:    " ",
		},
		VisualStyle: "oil painting",
	})
	assert.Equal(t, "A lighthouse in fog. low angle. Visual style: oil painting. Vertical 9:16 frame, no text or captions.", out)
}

func TestSchemasAreStrict(t *testing.T) {
	raw, err := json.Marshal(providers.GenerateSchema[model.Script]())
	require.NoError(t, err)
	doc := string(raw)
	assert.Contains(t, doc, `"additionalProperties":false`)
	assert.False(t, strings.Contains(doc, `"$ref"`))
	assert.Contains(t, doc, `"word_count"`)
}
