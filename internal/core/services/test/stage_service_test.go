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

// Package services_test exercises the stage pipeline against the in-memory
// store and fake generators.
package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/store"
	test "github.com/jaycherian/gcp-go-shorts-studio/internal/testutil"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

type fixture struct {
	store    *store.MemoryStore
	text     *test.FakeText
	images   *test.FakeImages
	speaker  *test.FakeSpeaker
	renderer *test.FakeRenderer
	notifier *test.RecordingNotifier
	svc      *services.StageService
}

func newFixture() *fixture {
	f := &fixture{
		store:    store.NewMemoryStore(),
		text:     &test.FakeText{},
		images:   &test.FakeImages{},
		speaker:  &test.FakeSpeaker{Duration: 30},
		renderer: &test.FakeRenderer{},
		notifier: &test.RecordingNotifier{},
	}
	assets := services.NewAssetService(f.images, nil, services.CostModel{PerImage: 0.04}, services.AssetOptions{})
	narration := services.NewNarrationService(f.speaker, 0)
	f.svc = services.NewStageService(f.store, f.text, assets, narration, f.renderer, f.notifier, "1080x1920")
	return f
}

func (f *fixture) status(t *testing.T, id string) model.Status {
	t.Helper()
	p, err := f.svc.GetProject(context.Background(), id)
	assert.NoError(t, err)
	return p.Status
}

func TestCreateProjectRejectsUnsupportedDuration(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateProject(context.Background(), "a topic", "en", 45, false)
	assert.That(t, errors.Is(err, services.ErrInvalidInput))

	p, err := f.svc.CreateProject(context.Background(), "a topic", "", 60, true)
	assert.NoError(t, err)
	assert.Equal(t, p.Status, model.StatusDraft)
	assert.Equal(t, p.Language, "en")
}

func TestGenerateForwardClosedAcceptance(t *testing.T) {
	cases := []struct {
		stage  model.Stage
		status model.Status
		ok     bool
	}{
		{model.StageAnalysis, model.StatusDraft, true},
		{model.StageAnalysis, model.StatusReady, true},
		{model.StageScript, model.StatusDraft, false},
		{model.StageScript, model.StatusAnalyzed, true},
		{model.StageScript, model.StatusStoryboardReview, true},
		{model.StageStoryboard, model.StatusScriptReview, false},
		{model.StageStoryboard, model.StatusScriptApproved, true},
		{model.StageStoryboard, model.StatusAssetsApproved, true},
		{model.StageAssets, model.StatusStoryboardReview, false},
		{model.StageAssets, model.StatusStoryboardApproved, true},
		{model.StageAssets, model.StatusReady, true},
	}
	for _, c := range cases {
		t.Run(string(c.stage)+"_from_"+string(c.status), func(t *testing.T) {
			f := newFixture()
			p := test.SeedProject(t, f.store, c.status)

			got, err := f.svc.Generate(context.Background(), p.ID, c.stage)
			if !c.ok {
				assert.That(t, errors.Is(err, services.ErrInvalidTransition))
				assert.Equal(t, f.status(t, p.ID), c.status)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, got.Status, c.stage.ReviewStatus())
		})
	}
}

func TestGenerateTwiceLeavesOneLiveArtifact(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := test.SeedProject(t, f.store, model.StatusAnalyzed)

	_, err := f.svc.Generate(ctx, p.ID, model.StageScript)
	assert.NoError(t, err)
	_, err = f.svc.Generate(ctx, p.ID, model.StageScript)
	assert.NoError(t, err)

	history, err := f.svc.History(ctx, p.ID, model.StageScript)
	assert.NoError(t, err)
	assert.Equal(t, len(history), 2)
	current := 0
	for _, v := range history {
		if v.Current {
			current++
		}
	}
	assert.Equal(t, current, 1)
	assert.Equal(t, f.status(t, p.ID), model.StatusScriptReview)
}

func TestGenerateFromLaterStatusInvalidatesDownstream(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := test.SeedProject(t, f.store, model.StatusAssetsApproved)

	got, err := f.svc.Generate(ctx, p.ID, model.StageScript)
	assert.NoError(t, err)
	assert.Equal(t, got.Status, model.StatusScriptReview)

	_, _, err = f.svc.Artifact(ctx, p.ID, model.StageAnalysis)
	assert.NoError(t, err)
	_, version, err := f.svc.Artifact(ctx, p.ID, model.StageScript)
	assert.NoError(t, err)
	assert.Equal(t, version, 2)
	for _, stage := range []model.Stage{model.StageStoryboard, model.StageAssets} {
		_, _, err = f.svc.Artifact(ctx, p.ID, stage)
		assert.That(t, errors.Is(err, services.ErrNotFound))
	}
}

func TestGeneratorFailureLeavesStatusUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.text.Err = errors.New("response blocked by safety filters: SAFETY")
	p := test.SeedProject(t, f.store, model.StatusStoryboardApproved)

	_, err := f.svc.Generate(ctx, p.ID, model.StageScript)
	assert.Error(t, err)
	var pe *services.ProviderError
	assert.That(t, errors.As(err, &pe))
	assert.Equal(t, pe.Class, services.ClassContentPolicy)
	assert.Equal(t, f.status(t, p.ID), model.StatusStoryboardApproved)

	// Nothing was invalidated by the failed attempt.
	_, _, err = f.svc.Artifact(ctx, p.ID, model.StageStoryboard)
	assert.NoError(t, err)

	ev, err := f.notifier.Last()
	assert.NoError(t, err)
	assert.Equal(t, ev.Class, string(services.ClassContentPolicy))
	assert.Equal(t, ev.Error, services.UserMessage(services.ClassContentPolicy))
}

func TestRejectMovesBackExactlyOneCheckpoint(t *testing.T) {
	cases := []struct {
		stage  model.Stage
		status model.Status
		want   model.Status
	}{
		{model.StageScript, model.StatusScriptReview, model.StatusAnalyzed},
		{model.StageScript, model.StatusScriptApproved, model.StatusAnalyzed},
		{model.StageStoryboard, model.StatusStoryboardReview, model.StatusScriptApproved},
		{model.StageAssets, model.StatusAssetsReview, model.StatusStoryboardApproved},
		{model.StageAssets, model.StatusAssetsApproved, model.StatusStoryboardApproved},
	}
	for _, c := range cases {
		t.Run(string(c.stage)+"_from_"+string(c.status), func(t *testing.T) {
			f := newFixture()
			p := test.SeedProject(t, f.store, c.status)
			got, err := f.svc.Approve(context.Background(), p.ID, c.stage, false, nil)
			assert.NoError(t, err)
			assert.Equal(t, got.Status, c.want)
		})
	}
}

func TestRejectOutsideTheStageWindowIsRefused(t *testing.T) {
	f := newFixture()
	p := test.SeedProject(t, f.store, model.StatusStoryboardReview)

	_, err := f.svc.Approve(context.Background(), p.ID, model.StageScript, false, nil)
	assert.That(t, errors.Is(err, services.ErrInvalidTransition))
	assert.Equal(t, f.status(t, p.ID), model.StatusStoryboardReview)
}

func TestRevisionNotesReachTheNextGenerate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := test.SeedProject(t, f.store, model.StatusScriptReview)

	_, err := f.svc.Approve(ctx, p.ID, model.StageScript, false, &model.Revisions{Notes: "make it scarier"})
	assert.NoError(t, err)
	_, err = f.svc.Generate(ctx, p.ID, model.StageScript)
	assert.NoError(t, err)

	assert.Equal(t, f.text.Notes[len(f.text.Notes)-1], "make it scarier")
	got, err := f.svc.GetProject(ctx, p.ID)
	assert.NoError(t, err)
	assert.Equal(t, got.RevisionNotes[model.StageScript], "")
}

func TestApproveWithSceneRevisions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := test.SeedProject(t, f.store, model.StatusScriptReview)

	rev := &model.Revisions{Scenes: []model.SceneRevision{{Order: 1, Narration: "Elias lit the lamp again."}}}
	got, err := f.svc.Approve(ctx, p.ID, model.StageScript, true, rev)
	assert.NoError(t, err)
	assert.Equal(t, got.Status, model.StatusScriptApproved)

	v, version, err := f.svc.Artifact(ctx, p.ID, model.StageScript)
	assert.NoError(t, err)
	assert.Equal(t, version, 2)
	sc := v.(*model.Script)
	assert.Equal(t, sc.Scenes[0].Narration, "Elias lit the lamp again.")
	assert.Equal(t, sc.Narration, "Elias lit the lamp again. Tonight, something in the fog answered back.")
}

func TestApproveBeforeReviewIsRefused(t *testing.T) {
	f := newFixture()
	p := test.SeedProject(t, f.store, model.StatusAnalyzed)
	_, err := f.svc.Approve(context.Background(), p.ID, model.StageScript, true, nil)
	assert.That(t, errors.Is(err, services.ErrInvalidTransition))
}

func TestAssetRevisionsAreRefused(t *testing.T) {
	f := newFixture()
	p := test.SeedProject(t, f.store, model.StatusAssetsReview)
	rev := &model.Revisions{Scenes: []model.SceneRevision{{Order: 1, ImagePrompt: "brighter"}}}
	_, err := f.svc.Approve(context.Background(), p.ID, model.StageAssets, true, rev)
	assert.That(t, errors.Is(err, services.ErrInvalidInput))
	assert.Equal(t, f.status(t, p.ID), model.StatusAssetsReview)
}

func TestFailedProjectIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := test.SeedProject(t, f.store, model.StatusAnalyzed)
	assert.NoError(t, f.store.UpdateStatus(ctx, p.ID, model.StatusAnalyzed, model.StatusFailed))

	_, err := f.svc.Generate(ctx, p.ID, model.StageAnalysis)
	assert.That(t, errors.Is(err, services.ErrInvalidTransition))
	_, err = f.svc.Approve(ctx, p.ID, model.StageScript, false, nil)
	assert.That(t, errors.Is(err, services.ErrInvalidTransition))
}

func TestRenderRequiresAssetsApproved(t *testing.T) {
	for _, status := range []model.Status{model.StatusAssetsReview, model.StatusReady} {
		f := newFixture()
		p := test.SeedProject(t, f.store, status)
		_, err := f.svc.Render(context.Background(), p.ID)
		assert.That(t, errors.Is(err, services.ErrInvalidTransition))
		assert.Equal(t, len(f.renderer.Requests), 0)
	}
}

func TestRenderDropsScenesWithoutAssets(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := test.SeedProject(t, f.store, model.StatusAssetsApproved)
	set := test.ExampleAssets(model.GetExampleStoryboard())
	set.Assets = set.Assets[1:]
	set.Failures = []model.SceneFailure{{SceneOrder: 1, Class: "generic", Message: "boom"}}
	_, err := f.store.PutArtifact(ctx, p.ID, model.StageAssets, set)
	assert.NoError(t, err)

	got, err := f.svc.Render(ctx, p.ID)
	assert.NoError(t, err)
	assert.Equal(t, got.Status, model.StatusReady)

	assert.Equal(t, len(f.renderer.Requests), 1)
	req := f.renderer.Requests[0]
	assert.Equal(t, len(req.Scenes), 1)
	assert.Equal(t, req.Scenes[0].Order, 2)
	assert.Equal(t, req.Scenes[0].StartTime, 15.0)

	// Narration still covers the whole script in a single call.
	assert.Equal(t, len(f.speaker.Texts), 1)
	assert.Equal(t, f.speaker.Texts[0], model.GetExampleScript().Narration)

	v, _, err := f.svc.Artifact(ctx, p.ID, model.StageVideo)
	assert.NoError(t, err)
	video := v.(*model.Video)
	assert.Equal(t, video.SceneCount, 1)
	assert.Equal(t, video.Duration, 30.0)
	assert.Equal(t, video.Resolution, "1080x1920")
	assert.Equal(t, len(video.Transcript.Words), 16)
}

func TestRenderWithNoBoundScenesFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := test.SeedProject(t, f.store, model.StatusAssetsApproved)
	_, err := f.store.PutArtifact(ctx, p.ID, model.StageAssets, &model.AssetSet{})
	assert.NoError(t, err)

	_, err = f.svc.Render(ctx, p.ID)
	assert.That(t, errors.Is(err, services.ErrNoScenes))
	assert.Equal(t, f.status(t, p.ID), model.StatusAssetsApproved)
	assert.Equal(t, len(f.speaker.Texts), 0)
}

func TestRenderFailureKeepsAssetsApproved(t *testing.T) {
	f := newFixture()
	f.renderer.Err = errors.New("ffmpeg exited with status 1")
	p := test.SeedProject(t, f.store, model.StatusAssetsApproved)

	_, err := f.svc.Render(context.Background(), p.ID)
	assert.Error(t, err)
	assert.Equal(t, f.status(t, p.ID), model.StatusAssetsApproved)
	_, _, err = f.svc.Artifact(context.Background(), p.ID, model.StageVideo)
	assert.That(t, errors.Is(err, services.ErrNotFound))
}

func TestRenderIsSingleFlightAndReportsRendering(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.renderer.Block = make(chan struct{})
	p := test.SeedProject(t, f.store, model.StatusAssetsApproved)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Render(ctx, p.ID)
		done <- err
	}()

	require.Eventually(t, func() bool {
		got, err := f.svc.GetProject(ctx, p.ID)
		return err == nil && got.Status == model.StatusRendering
	}, 2*time.Second, 5*time.Millisecond)

	_, err := f.svc.Render(ctx, p.ID)
	assert.That(t, errors.Is(err, services.ErrRenderInProgress))
	_, err = f.svc.Generate(ctx, p.ID, model.StageScript)
	assert.That(t, errors.Is(err, services.ErrRenderInProgress))

	close(f.renderer.Block)
	assert.NoError(t, <-done)
	assert.Equal(t, f.status(t, p.ID), model.StatusReady)
}
