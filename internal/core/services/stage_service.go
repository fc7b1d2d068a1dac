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

// Package services implements the approval gated stage pipeline. The
// StageService is the only writer of a project's status; every write is a
// compare-and-set against the status the decision was made on, so two
// concurrent operations on one project cannot both succeed.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/store"
)

// StageService runs Generate, Approve and Render against the artifact store.
type StageService struct {
	store     store.ArtifactStore
	text      TextGenerator
	assets    *AssetService
	narration *NarrationService
	renderer  Renderer
	notifier  StatusNotifier
	canvas    string

	mu        sync.Mutex
	rendering map[string]struct{}
}

func NewStageService(
	artifacts store.ArtifactStore,
	text TextGenerator,
	assets *AssetService,
	narration *NarrationService,
	renderer Renderer,
	notifier StatusNotifier,
	resolution string,
) *StageService {
	return &StageService{
		store:     artifacts,
		text:      text,
		assets:    assets,
		narration: narration,
		renderer:  renderer,
		notifier:  notifier,
		canvas:    resolution,
		rendering: make(map[string]struct{}),
	}
}

// CreateProject validates the input and stores a new draft project.
func (s *StageService) CreateProject(ctx context.Context, topic, language string, targetDuration int, premium bool) (*model.Project, error) {
	p, err := model.NewProject(topic, language, targetDuration, premium)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "project created", "project_id", p.ID, "target_duration", p.TargetDuration, "premium", p.Premium)
	s.notify(ctx, p.ID, "", p.Status, nil)
	return p, nil
}

// GetProject reads a project, reporting "rendering" while a render for it
// is in flight in this process.
func (s *StageService) GetProject(ctx context.Context, id string) (*model.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	s.overlay(p)
	return p, nil
}

func (s *StageService) ListProjects(ctx context.Context, limit int) ([]*model.Project, error) {
	ps, err := s.store.ListProjects(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, p := range ps {
		s.overlay(p)
	}
	return ps, nil
}

func (s *StageService) overlay(p *model.Project) {
	if s.isRendering(p.ID) && p.Status == model.StatusAssetsApproved {
		p.Status = model.StatusRendering
	}
}

// Artifact returns the current artifact of a stage decoded into its type.
func (s *StageService) Artifact(ctx context.Context, id string, stage model.Stage) (any, int, error) {
	switch stage {
	case model.StageAnalysis:
		return loadAny[model.StoryAnalysis](ctx, s.store, id, stage)
	case model.StageScript:
		return loadAny[model.Script](ctx, s.store, id, stage)
	case model.StageStoryboard:
		return loadAny[model.Storyboard](ctx, s.store, id, stage)
	case model.StageAssets:
		return loadAny[model.AssetSet](ctx, s.store, id, stage)
	case model.StageVideo:
		return loadAny[model.Video](ctx, s.store, id, stage)
	}
	return nil, 0, fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, stage)
}

func (s *StageService) History(ctx context.Context, id string, stage model.Stage) ([]store.Version, error) {
	if _, err := s.store.GetProject(ctx, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id, stage)
}

func loadAny[T any](ctx context.Context, st store.ArtifactStore, id string, stage model.Stage) (any, int, error) {
	v, n, err := store.Load[T](ctx, st, id, stage)
	if err != nil {
		return nil, 0, err
	}
	return v, n, nil
}

// Generate (re)creates the artifact of a stage. It is accepted from the
// stage's entry status or any later status. When the project is past the
// entry status, the stage's downstream artifacts are invalidated in the same
// commit that stores the new artifact. A generator failure changes nothing.
func (s *StageService) Generate(ctx context.Context, id string, stage model.Stage) (*model.Project, error) {
	if stage == model.StageVideo {
		return s.Render(ctx, id)
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkGenerate(p, stage); err != nil {
		return nil, err
	}

	payload, err := s.produce(ctx, p, stage)
	if err != nil {
		s.fail(ctx, p, stage, err)
		return nil, err
	}

	version, err := s.store.CommitArtifact(ctx, store.Commit{
		ProjectID:  p.ID,
		Stage:      stage,
		Payload:    payload,
		From:       p.Status,
		To:         stage.ReviewStatus(),
		Invalidate: p.Status != stage.EntryStatus(),
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "stage generated",
		"project_id", p.ID, "stage", stage, "version", version, "from", p.Status, "to", stage.ReviewStatus())
	s.notify(ctx, p.ID, stage, stage.ReviewStatus(), nil)
	return s.GetProject(ctx, id)
}

// CanRun reports whether Generate(stage), or Render for the video stage,
// would be accepted right now. It lets callers that hand the work to a queue
// refuse it up front.
func (s *StageService) CanRun(ctx context.Context, id string, stage model.Stage) error {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if stage == model.StageVideo {
		return s.checkRender(p)
	}
	return s.checkGenerate(p, stage)
}

func (s *StageService) checkRender(p *model.Project) error {
	if s.isRendering(p.ID) {
		return ErrRenderInProgress
	}
	if p.Status != model.StatusAssetsApproved {
		return fmt.Errorf("%w: render requires %s, project is %s", ErrInvalidTransition, model.StatusAssetsApproved, p.Status)
	}
	return nil
}

func (s *StageService) checkGenerate(p *model.Project, stage model.Stage) error {
	if stage.Index() < 0 {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, stage)
	}
	if p.Status.IsTerminal() {
		return fmt.Errorf("%w: project %s has failed", ErrInvalidTransition, p.ID)
	}
	if s.isRendering(p.ID) {
		return ErrRenderInProgress
	}
	if !p.Status.AtLeast(stage.EntryStatus()) {
		return fmt.Errorf("%w: cannot generate %s from %s", ErrInvalidTransition, stage, p.Status)
	}
	return nil
}

// produce calls the generator of a stage and validates what comes back.
func (s *StageService) produce(ctx context.Context, p *model.Project, stage model.Stage) (any, error) {
	notes := p.RevisionNotes[stage]
	switch stage {
	case model.StageAnalysis:
		a, err := s.text.Analyze(ctx, AnalysisRequest{Topic: p.Topic, Language: p.Language, RevisionNotes: notes})
		if err != nil {
			return nil, NewProviderError(stage, err)
		}
		if err := a.Validate(); err != nil {
			return nil, NewProviderError(stage, err)
		}
		return a, nil

	case model.StageScript:
		analysis, _, err := store.Load[model.StoryAnalysis](ctx, s.store, p.ID, model.StageAnalysis)
		if err != nil {
			return nil, fmt.Errorf("loading analysis: %w", err)
		}
		sc, err := s.text.WriteScript(ctx, ScriptRequest{
			Topic:          p.Topic,
			Language:       p.Language,
			TargetDuration: p.TargetDuration,
			Analysis:       analysis,
			RevisionNotes:  notes,
		})
		if err != nil {
			return nil, NewProviderError(stage, err)
		}
		if err := sc.Validate(p.TargetDuration); err != nil {
			return nil, NewProviderError(stage, err)
		}
		return sc, nil

	case model.StageStoryboard:
		analysis, _, err := store.Load[model.StoryAnalysis](ctx, s.store, p.ID, model.StageAnalysis)
		if err != nil {
			return nil, fmt.Errorf("loading analysis: %w", err)
		}
		sc, _, err := store.Load[model.Script](ctx, s.store, p.ID, model.StageScript)
		if err != nil {
			return nil, fmt.Errorf("loading script: %w", err)
		}
		board, err := s.text.PlanScenes(ctx, StoryboardRequest{Topic: p.Topic, Script: sc, Analysis: analysis, RevisionNotes: notes})
		if err != nil {
			return nil, NewProviderError(stage, err)
		}
		if err := board.ValidateAgainst(sc); err != nil {
			return nil, NewProviderError(stage, err)
		}
		return board, nil

	case model.StageAssets:
		board, _, err := store.Load[model.Storyboard](ctx, s.store, p.ID, model.StageStoryboard)
		if err != nil {
			return nil, fmt.Errorf("loading storyboard: %w", err)
		}
		return s.assets.Generate(ctx, p, board)
	}
	return nil, fmt.Errorf("%w: stage %s has no generator", ErrInvalidInput, stage)
}

// Approve records the user's decision on a reviewable stage.
//
// Approving is accepted from the stage's review status or any later status;
// scene revisions are stored as a new artifact version and, when the project
// had moved past the stage, invalidate everything downstream.
//
// Rejecting is accepted only while the stage is the most recent checkpoint
// (its review or approved status) and moves the project back exactly one
// checkpoint, keeping the notes for the next Generate of the stage.
func (s *StageService) Approve(ctx context.Context, id string, stage model.Stage, decision bool, rev *model.Revisions) (*model.Project, error) {
	if !stage.Reviewable() {
		return nil, fmt.Errorf("%w: stage %s is not reviewed", ErrInvalidTransition, stage)
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: project %s has failed", ErrInvalidTransition, p.ID)
	}
	if s.isRendering(p.ID) {
		return nil, ErrRenderInProgress
	}
	if decision {
		err = s.approve(ctx, p, stage, rev)
	} else {
		err = s.reject(ctx, p, stage, rev)
	}
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, id)
}

func (s *StageService) approve(ctx context.Context, p *model.Project, stage model.Stage, rev *model.Revisions) error {
	if !p.Status.AtLeast(stage.ReviewStatus()) {
		return fmt.Errorf("%w: cannot approve %s from %s", ErrInvalidTransition, stage, p.Status)
	}
	to := stage.ApprovedStatus()

	if rev == nil || len(rev.Scenes) == 0 {
		if err := s.store.UpdateStatus(ctx, p.ID, p.Status, to); err != nil {
			return err
		}
		slog.InfoContext(ctx, "stage approved", "project_id", p.ID, "stage", stage, "from", p.Status)
		s.notify(ctx, p.ID, stage, to, nil)
		return nil
	}

	payload, err := s.revise(ctx, p, stage, rev)
	if err != nil {
		return err
	}
	version, err := s.store.CommitArtifact(ctx, store.Commit{
		ProjectID:  p.ID,
		Stage:      stage,
		Payload:    payload,
		From:       p.Status,
		To:         to,
		Invalidate: p.Status.Rank() > to.Rank(),
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "stage approved with revisions",
		"project_id", p.ID, "stage", stage, "version", version, "revised_scenes", len(rev.Scenes))
	s.notify(ctx, p.ID, stage, to, nil)
	return nil
}

func (s *StageService) revise(ctx context.Context, p *model.Project, stage model.Stage, rev *model.Revisions) (any, error) {
	switch stage {
	case model.StageScript:
		sc, _, err := store.Load[model.Script](ctx, s.store, p.ID, stage)
		if err != nil {
			return nil, err
		}
		if err := rev.ApplyToScript(sc); err != nil {
			return nil, err
		}
		return sc, nil
	case model.StageStoryboard:
		board, _, err := store.Load[model.Storyboard](ctx, s.store, p.ID, stage)
		if err != nil {
			return nil, err
		}
		if err := rev.ApplyToStoryboard(board); err != nil {
			return nil, err
		}
		return board, nil
	}
	return nil, fmt.Errorf("%w: %s does not take scene revisions, regenerate it instead", ErrInvalidInput, stage)
}

func (s *StageService) reject(ctx context.Context, p *model.Project, stage model.Stage, rev *model.Revisions) error {
	if p.Status != stage.ReviewStatus() && p.Status != stage.ApprovedStatus() {
		return fmt.Errorf("%w: cannot reject %s from %s", ErrInvalidTransition, stage, p.Status)
	}
	if rev != nil && rev.Notes != "" {
		if err := s.store.SetRevisionNotes(ctx, p.ID, stage, rev.Notes); err != nil {
			return err
		}
	}
	to := stage.PreviousCheckpoint()
	if err := s.store.UpdateStatus(ctx, p.ID, p.Status, to); err != nil {
		return err
	}
	slog.InfoContext(ctx, "stage rejected", "project_id", p.ID, "stage", stage, "from", p.Status, "to", to)
	s.notify(ctx, p.ID, stage, to, nil)
	return nil
}

// Render composes the final video. It requires exactly assets_approved and
// at most one render per project runs in this process at a time.
func (s *StageService) Render(ctx context.Context, id string) (*model.Project, error) {
	if !s.beginRender(id) {
		return nil, ErrRenderInProgress
	}
	defer s.endRender(id)

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != model.StatusAssetsApproved {
		return nil, fmt.Errorf("%w: render requires %s, project is %s", ErrInvalidTransition, model.StatusAssetsApproved, p.Status)
	}
	s.notify(ctx, p.ID, model.StageVideo, model.StatusRendering, nil)

	video, err := s.render(ctx, p)
	if err != nil {
		s.fail(ctx, p, model.StageVideo, err)
		return nil, err
	}
	if _, err := s.store.CommitArtifact(ctx, store.Commit{
		ProjectID: p.ID,
		Stage:     model.StageVideo,
		Payload:   video,
		From:      model.StatusAssetsApproved,
		To:        model.StatusReady,
	}); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "render finished",
		"project_id", p.ID, "duration", video.Duration, "scenes", video.SceneCount, "cost", video.Cost)
	s.notify(ctx, p.ID, model.StageVideo, model.StatusReady, nil)
	return s.store.GetProject(ctx, id)
}

func (s *StageService) render(ctx context.Context, p *model.Project) (*model.Video, error) {
	script, _, err := store.Load[model.Script](ctx, s.store, p.ID, model.StageScript)
	if err != nil {
		return nil, fmt.Errorf("loading script: %w", err)
	}
	assets, _, err := store.Load[model.AssetSet](ctx, s.store, p.ID, model.StageAssets)
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}

	scenes := BindScenes(ctx, p.ID, script, assets)
	if len(scenes) == 0 {
		return nil, ErrNoScenes
	}

	narration, err := s.narration.Narrate(ctx, p, script)
	if err != nil {
		return nil, err
	}
	cost := assets.TotalCost + narration.Cost

	out, err := s.renderer.Render(ctx, &model.RenderRequest{
		ProjectID:     p.ID,
		Scenes:        scenes,
		AudioURL:      narration.AudioURL,
		AudioDuration: narration.AudioDuration,
		SubtitlesSRT:  narration.SRT,
		Cost:          cost,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering: %w", err)
	}

	tr := narration.Transcript
	if tr.Duration <= 0 {
		tr.Duration = out.Duration
	}
	return &model.Video{
		URL:          out.VideoURL,
		AudioURL:     narration.AudioURL,
		SubtitlesURL: out.SubtitlesURL,
		Transcript:   tr,
		Duration:     out.Duration,
		FileSize:     out.FileSize,
		Cost:         cost,
		Format:       "mp4",
		Resolution:   s.canvas,
		SceneCount:   len(scenes),
	}, nil
}

// BindScenes pairs each script scene with the successful asset of the same
// order. Scenes without one are dropped and logged.
func BindScenes(ctx context.Context, projectID string, script *model.Script, assets *model.AssetSet) []*model.RenderScene {
	byOrder := assets.ByOrder()
	out := make([]*model.RenderScene, 0, len(script.Scenes))
	for _, sc := range script.Scenes {
		a, ok := byOrder[sc.Order]
		if !ok {
			slog.WarnContext(ctx, "dropping scene without an asset", "project_id", projectID, "scene", sc.Order)
			continue
		}
		out = append(out, &model.RenderScene{
			Order:     sc.Order,
			StartTime: sc.StartTime,
			EndTime:   sc.EndTime,
			Narration: sc.Narration,
			AssetURL:  a.URL,
			AssetType: a.Type,
		})
	}
	return out
}

func (s *StageService) beginRender(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.rendering[id]; busy {
		return false
	}
	s.rendering[id] = struct{}{}
	return true
}

func (s *StageService) endRender(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rendering, id)
}

func (s *StageService) isRendering(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.rendering[id]
	return busy
}

func (s *StageService) fail(ctx context.Context, p *model.Project, stage model.Stage, err error) {
	class := Classify(err)
	slog.ErrorContext(ctx, "stage failed", "project_id", p.ID, "stage", stage, "class", class, "error", err)
	s.notify(ctx, p.ID, stage, p.Status, err)
}

func (s *StageService) notify(ctx context.Context, id string, stage model.Stage, status model.Status, err error) {
	if s.notifier == nil {
		return
	}
	ev := cloud.StatusEvent{ProjectID: id, Stage: string(stage), Status: string(status), At: time.Now().UTC()}
	if err != nil {
		class := Classify(err)
		ev.Class = string(class)
		ev.Error = UserMessage(class)
		var pe *ProviderError
		if !errors.As(err, &pe) {
			ev.Error = err.Error()
		}
	}
	s.notifier.Notify(ctx, ev)
}
