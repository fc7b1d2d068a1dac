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

	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/transcript"
)

// Generator collaborators. Implementations live in internal/core/providers;
// none of them retries on its own.

type AnalysisRequest struct {
	Topic         string
	Language      string
	RevisionNotes string
}

type ScriptRequest struct {
	Topic          string
	Language       string
	TargetDuration int
	Analysis       *model.StoryAnalysis
	RevisionNotes  string
}

type StoryboardRequest struct {
	Topic         string
	Script        *model.Script
	Analysis      *model.StoryAnalysis
	RevisionNotes string
}

type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*model.StoryAnalysis, error)
}

type ScriptWriter interface {
	WriteScript(ctx context.Context, req ScriptRequest) (*model.Script, error)
}

type ScenePlanner interface {
	PlanScenes(ctx context.Context, req StoryboardRequest) (*model.Storyboard, error)
}

// TextGenerator is implemented by providers that cover all three text stages.
type TextGenerator interface {
	Analyzer
	ScriptWriter
	ScenePlanner
}

type ImageRequest struct {
	ProjectID    string
	Scene        model.StoryboardScene
	VisualStyle  string
	ReferenceURL string // previous scene's image in style continuity mode
}

type ImageResult struct {
	URL      string
	Provider string
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

type AnimationRequest struct {
	ProjectID string
	Scene     model.StoryboardScene
	ImageURL  string
	Seconds   int
}

type AnimationStatus struct {
	Done     bool
	VideoURL string
	Seconds  int
}

// Animator turns a still into a short clip through a long running job.
type Animator interface {
	Submit(ctx context.Context, req AnimationRequest) (jobID string, err error)
	Poll(ctx context.Context, jobID string) (*AnimationStatus, error)
}

type SpeechRequest struct {
	ProjectID string
	Text      string
	Language  string
}

type SpeechResult struct {
	AudioURL  string
	Duration  float64
	Alignment *transcript.Alignment // nil when the provider has no timing data
}

type Speaker interface {
	Speak(ctx context.Context, req SpeechRequest) (*SpeechResult, error)
}

// Renderer composes the final video from downloaded scenes and narration.
type Renderer interface {
	Render(ctx context.Context, req *model.RenderRequest) (*model.RenderOutput, error)
}

// StatusNotifier receives every status change and stage failure.
type StatusNotifier interface {
	Notify(ctx context.Context, ev cloud.StatusEvent)
}

// Notifiers fans an event out to several notifiers.
type Notifiers []StatusNotifier

func (n Notifiers) Notify(ctx context.Context, ev cloud.StatusEvent) {
	for _, x := range n {
		if x != nil {
			x.Notify(ctx, ev)
		}
	}
}
