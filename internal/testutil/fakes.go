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

package test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
)

// FakeText answers every text stage with the example artifacts. Set Err to
// make every call fail.
type FakeText struct {
	mu    sync.Mutex
	Err   error
	Notes []string // revision notes of each call, in call order
}

func (f *FakeText) record(notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Notes = append(f.Notes, notes)
	return f.Err
}

func (f *FakeText) Analyze(_ context.Context, req services.AnalysisRequest) (*model.StoryAnalysis, error) {
	if err := f.record(req.RevisionNotes); err != nil {
		return nil, err
	}
	return model.GetExampleAnalysis(), nil
}

func (f *FakeText) WriteScript(_ context.Context, req services.ScriptRequest) (*model.Script, error) {
	if err := f.record(req.RevisionNotes); err != nil {
		return nil, err
	}
	return model.GetExampleScript(), nil
}

func (f *FakeText) PlanScenes(_ context.Context, req services.StoryboardRequest) (*model.Storyboard, error) {
	if err := f.record(req.RevisionNotes); err != nil {
		return nil, err
	}
	return model.GetExampleStoryboard(), nil
}

// FakeImages returns a deterministic URL per scene. Scenes listed in Fail
// return that error.
type FakeImages struct {
	mu         sync.Mutex
	Fail       map[int]error
	References []string // ReferenceURL of each request, in call order
}

func (f *FakeImages) GenerateImage(_ context.Context, req services.ImageRequest) (*services.ImageResult, error) {
	f.mu.Lock()
	f.References = append(f.References, req.ReferenceURL)
	f.mu.Unlock()
	if err, ok := f.Fail[req.Scene.Order]; ok {
		return nil, err
	}
	return &services.ImageResult{URL: ImageURL(req.Scene.Order), Provider: "fake"}, nil
}

func ImageURL(order int) string {
	return fmt.Sprintf("file:///images/scene-%d.png", order)
}

// FakeAnimator finishes each job after PendingPolls polls. Never leaves jobs
// pending forever.
type FakeAnimator struct {
	mu           sync.Mutex
	PendingPolls int
	Never        bool
	SubmitErr    error
	polls        map[string]int
}

func (f *FakeAnimator) Submit(_ context.Context, req services.AnimationRequest) (string, error) {
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	return fmt.Sprintf("job-%d", req.Scene.Order), nil
}

func (f *FakeAnimator) Poll(_ context.Context, jobID string) (*services.AnimationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.polls == nil {
		f.polls = make(map[string]int)
	}
	f.polls[jobID]++
	if f.Never || f.polls[jobID] <= f.PendingPolls {
		return &services.AnimationStatus{}, nil
	}
	return &services.AnimationStatus{Done: true, VideoURL: "file:///clips/" + jobID + ".mp4", Seconds: 6}, nil
}

// FakeSpeaker returns a fixed duration and no alignment.
type FakeSpeaker struct {
	Duration float64
	Err      error
	Texts    []string
}

func (f *FakeSpeaker) Speak(_ context.Context, req services.SpeechRequest) (*services.SpeechResult, error) {
	f.Texts = append(f.Texts, req.Text)
	if f.Err != nil {
		return nil, f.Err
	}
	return &services.SpeechResult{AudioURL: "file:///audio/narration.wav", Duration: f.Duration}, nil
}

// FakeRenderer records the request and echoes the narration duration.
type FakeRenderer struct {
	Err      error
	Requests []*model.RenderRequest
	Block    chan struct{} // when set, Render waits for it to close
}

func (f *FakeRenderer) Render(ctx context.Context, req *model.RenderRequest) (*model.RenderOutput, error) {
	f.Requests = append(f.Requests, req)
	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &model.RenderOutput{
		VideoURL:     "file:///renders/" + req.ProjectID + ".mp4",
		SubtitlesURL: "file:///renders/" + req.ProjectID + ".srt",
		Duration:     req.AudioDuration,
		FileSize:     1024,
	}, nil
}

// RecordingNotifier keeps every event.
type RecordingNotifier struct {
	mu     sync.Mutex
	Events []cloud.StatusEvent
}

func (r *RecordingNotifier) Notify(_ context.Context, ev cloud.StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, ev)
}

func (r *RecordingNotifier) Last() (cloud.StatusEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Events) == 0 {
		return cloud.StatusEvent{}, errors.New("no events")
	}
	return r.Events[len(r.Events)-1], nil
}
