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

// Package providers implements the generator interfaces of the services
// package on top of real model APIs: Gemini and OpenAI for the text stages,
// Imagen and Gemini image models for stills, Veo for animation and Gemini
// speech for narration.
package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
)

const defaultSystemInstructions = `You are the writers room of a short-form video studio. You always answer with a single JSON document that matches the requested shape exactly, with no commentary and no markdown.`

const defaultAnalysisPrompt = `Analyze the topic below for a vertical short video.
Topic: {{ .TOPIC }}
Language of the final video: {{ .LANGUAGE }}
Return the core concept, between 1 and 5 themes, at most 5 characters and the overall mood.
{{ if .NOTES }}The reviewer asked for these changes to the previous attempt: {{ .NOTES }}
{{ end }}Example output: {{ .EXAMPLE_JSON }}`

const defaultScriptPrompt = `Write the narration script for a {{ .DURATION }} second vertical video.
Topic: {{ .TOPIC }}
Language: {{ .LANGUAGE }}
Story analysis: {{ .ANALYSIS_JSON }}
Split the narration into consecutive scenes numbered from 1. Scene times are in seconds, the first scene starts at 0, each scene starts where the previous one ended and the last scene ends at {{ .DURATION }}.
Give every scene a short visual description of what is on screen.
{{ if .NOTES }}The reviewer asked for these changes to the previous attempt: {{ .NOTES }}
{{ end }}Example output: {{ .EXAMPLE_JSON }}`

const defaultStoryboardPrompt = `Plan the visuals of a vertical short video, one storyboard scene per script scene and in the same order.
Topic: {{ .TOPIC }}
Story analysis: {{ .ANALYSIS_JSON }}
Script: {{ .SCRIPT_JSON }}
The storyboard has {{ .SCENE_COUNT }} scenes. Each image prompt must describe a single 9:16 still frame in detail. Keep one visual style and palette across all scenes.
{{ if .NOTES }}The reviewer asked for these changes to the previous attempt: {{ .NOTES }}
{{ end }}Example output: {{ .EXAMPLE_JSON }}`

// Prompts renders the text stage prompts. Templates come from the
// prompt_templates section of the configuration; empty entries fall back to
// the built-in defaults.
type Prompts struct {
	System     string
	analysis   *template.Template
	script     *template.Template
	storyboard *template.Template
}

func NewPrompts(cfg cloud.PromptTemplates) (*Prompts, error) {
	parse := func(name, text, fallback string) (*template.Template, error) {
		if strings.TrimSpace(text) == "" {
			text = fallback
		}
		t, err := template.New(name).Option("missingkey=zero").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		return t, nil
	}
	p := &Prompts{System: cfg.SystemInstructions}
	if strings.TrimSpace(p.System) == "" {
		p.System = defaultSystemInstructions
	}
	var err error
	if p.analysis, err = parse("analysis-template", cfg.Analysis, defaultAnalysisPrompt); err != nil {
		return nil, err
	}
	if p.script, err = parse("script-template", cfg.Script, defaultScriptPrompt); err != nil {
		return nil, err
	}
	if p.storyboard, err = parse("storyboard-template", cfg.Storyboard, defaultStoryboardPrompt); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Prompts) Analysis(req services.AnalysisRequest) (string, error) {
	return execute(p.analysis, map[string]any{
		"TOPIC":        req.Topic,
		"LANGUAGE":     req.Language,
		"NOTES":        req.RevisionNotes,
		"EXAMPLE_JSON": mustJSON(model.GetExampleAnalysis()),
	})
}

func (p *Prompts) Script(req services.ScriptRequest) (string, error) {
	return execute(p.script, map[string]any{
		"TOPIC":         req.Topic,
		"LANGUAGE":      req.Language,
		"DURATION":      req.TargetDuration,
		"ANALYSIS_JSON": mustJSON(req.Analysis),
		"NOTES":         req.RevisionNotes,
		"EXAMPLE_JSON":  mustJSON(model.GetExampleScript()),
	})
}

func (p *Prompts) Storyboard(req services.StoryboardRequest) (string, error) {
	count := 0
	if req.Script != nil {
		count = len(req.Script.Scenes)
	}
	return execute(p.storyboard, map[string]any{
		"TOPIC":         req.Topic,
		"ANALYSIS_JSON": mustJSON(req.Analysis),
		"SCRIPT_JSON":   mustJSON(req.Script),
		"SCENE_COUNT":   count,
		"NOTES":         req.RevisionNotes,
		"EXAMPLE_JSON":  mustJSON(model.GetExampleStoryboard()),
	})
}

func execute(t *template.Template, params map[string]any) (string, error) {
	var buffer bytes.Buffer
	if err := t.Execute(&buffer, params); err != nil {
		return "", fmt.Errorf("failed to execute %s: %w", t.Name(), err)
	}
	return buffer.String(), nil
}

func mustJSON(v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// NormalizeScript derives the full narration and its word count from the
// scenes, whatever the model put in those fields.
func NormalizeScript(s *model.Script) {
	parts := make([]string, 0, len(s.Scenes))
	for _, sc := range s.Scenes {
		if n := strings.TrimSpace(sc.Narration); n != "" {
			parts = append(parts, n)
		}
	}
	s.Narration = strings.Join(parts, " ")
	s.WordCount = len(strings.Fields(s.Narration))
}

// ImagePrompt folds the storyboard's style and the scene's camera notes into
// the prompt sent to the image model.
func ImagePrompt(req services.ImageRequest) string {
	var sb strings.Builder
	sb.WriteString(req.Scene.ImagePrompt)
	for _, extra := range []string{req.Scene.CameraAngle, req.Scene.Composition, req.Scene.Lighting} {
		if extra = strings.TrimSpace(extra); extra != "" {
			sb.WriteString(". ")
			sb.WriteString(extra)
		}
	}
	if style := strings.TrimSpace(req.VisualStyle); style != "" {
		sb.WriteString(". Visual style: ")
		sb.WriteString(style)
	}
	sb.WriteString(". Vertical 9:16 frame, no text or captions.")
	return sb.String()
}
