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
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"golang.org/x/sync/errgroup"
)

// MaxSceneParallelism caps the per-scene fan-out.
const MaxSceneParallelism = 10

// CostModel prices generated media: a flat amount per image plus an amount
// per animated second.
type CostModel struct {
	PerImage           float64
	PerAnimationSecond float64
}

func (c CostModel) SceneCost(animatedSeconds int) float64 {
	return c.PerImage + float64(animatedSeconds)*c.PerAnimationSecond
}

// AssetOptions are resolved from configuration once at startup.
type AssetOptions struct {
	MaxParallel      int
	StyleContinuity  bool
	AnimationEnabled bool
	AnimationSeconds int
	PollInterval     time.Duration
	AnimationTimeout time.Duration
}

// AssetService generates one visual asset per storyboard scene.
type AssetService struct {
	images   ImageGenerator
	animator Animator
	cost     CostModel
	opts     AssetOptions
}

func NewAssetService(images ImageGenerator, animator Animator, cost CostModel, opts AssetOptions) *AssetService {
	if opts.MaxParallel <= 0 || opts.MaxParallel > MaxSceneParallelism {
		opts.MaxParallel = MaxSceneParallelism
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.AnimationTimeout <= 0 {
		opts.AnimationTimeout = 10 * time.Minute
	}
	return &AssetService{images: images, animator: animator, cost: cost, opts: opts}
}

// sceneOutcome is the result of one scene; exactly one of asset and err is set.
type sceneOutcome struct {
	order int
	asset *model.Asset
	err   error
	cost  float64
}

// Generate produces the asset set for a storyboard. Scenes fail
// independently; the stage fails only when no scene succeeded.
func (s *AssetService) Generate(ctx context.Context, project *model.Project, board *model.Storyboard) (*model.AssetSet, error) {
	if len(board.Scenes) == 0 {
		return nil, ErrNoScenes
	}
	animate := s.animates(project)

	var outcomes []sceneOutcome
	if s.opts.StyleContinuity {
		outcomes = s.generateSequential(ctx, project, board, animate)
	} else {
		outcomes = s.generateParallel(ctx, project, board, animate)
	}
	return collect(outcomes)
}

func (s *AssetService) animates(project *model.Project) bool {
	return project.Premium && s.opts.AnimationEnabled && s.animator != nil
}

func (s *AssetService) generateParallel(ctx context.Context, project *model.Project, board *model.Storyboard, animate bool) []sceneOutcome {
	outcomes := make([]sceneOutcome, len(board.Scenes))
	var g errgroup.Group
	g.SetLimit(min(s.opts.MaxParallel, len(board.Scenes)))
	for i, scene := range board.Scenes {
		g.Go(func() error {
			outcomes[i] = s.generateScene(ctx, project, board.VisualStyle, scene, "", animate)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// generateSequential threads each scene's image into the next scene's
// request as a style reference.
func (s *AssetService) generateSequential(ctx context.Context, project *model.Project, board *model.Storyboard, animate bool) []sceneOutcome {
	outcomes := make([]sceneOutcome, 0, len(board.Scenes))
	FoldReferences(board.Scenes, "", func(scene model.StoryboardScene, ref string) (string, error) {
		out := s.generateScene(ctx, project, board.VisualStyle, scene, ref, animate)
		outcomes = append(outcomes, out)
		if out.err != nil {
			return "", out.err
		}
		return referenceURL(out.asset), nil
	})
	return outcomes
}

// FoldReferences visits items strictly left to right. step receives the
// reference produced by the most recent successful step (seed before any
// success) and returns the reference for the next one. The per-item errors
// are returned in item order.
func FoldReferences[T any](items []T, seed string, step func(item T, ref string) (string, error)) []error {
	errs := make([]error, len(items))
	ref := seed
	for i, item := range items {
		next, err := step(item, ref)
		if err != nil {
			errs[i] = err
			continue
		}
		ref = next
	}
	return errs
}

func referenceURL(a *model.Asset) string {
	if a.StaticURL != "" {
		return a.StaticURL
	}
	return a.URL
}

func (s *AssetService) generateScene(ctx context.Context, project *model.Project, style string, scene model.StoryboardScene, ref string, animate bool) sceneOutcome {
	out := sceneOutcome{order: scene.Order, cost: s.cost.SceneCost(0)}
	img, err := s.images.GenerateImage(ctx, ImageRequest{
		ProjectID:    project.ID,
		Scene:        scene,
		VisualStyle:  style,
		ReferenceURL: ref,
	})
	if err != nil {
		out.err = fmt.Errorf("scene %d: %w", scene.Order, err)
		return out
	}
	asset := &model.Asset{
		SceneOrder: scene.Order,
		Type:       model.AssetImage,
		URL:        img.URL,
		Prompt:     scene.ImagePrompt,
		Provider:   img.Provider,
		Metadata:   map[string]string{},
	}
	if ref != "" {
		asset.Metadata["reference_url"] = ref
	}

	if animate {
		seconds, clipURL, aerr := s.animate(ctx, project, scene, img.URL)
		out.cost = s.cost.SceneCost(seconds)
		if aerr != nil {
			slog.WarnContext(ctx, "animation failed, keeping the static image",
				"project_id", project.ID, "scene", scene.Order, "class", Classify(aerr), "error", aerr)
			asset.Metadata["animation_error"] = aerr.Error()
		} else {
			asset.Type = model.AssetVideoClip
			asset.StaticURL = img.URL
			asset.URL = clipURL
			asset.Metadata["animation_seconds"] = strconv.Itoa(seconds)
		}
	}
	asset.Cost = out.cost
	out.asset = asset
	return out
}

// animate submits a clip and polls at a fixed interval until it finishes or
// the timeout passes. The returned seconds are billed even on failure once
// the job was accepted.
func (s *AssetService) animate(ctx context.Context, project *model.Project, scene model.StoryboardScene, imageURL string) (int, string, error) {
	jobID, err := s.animator.Submit(ctx, AnimationRequest{
		ProjectID: project.ID,
		Scene:     scene,
		ImageURL:  imageURL,
		Seconds:   s.opts.AnimationSeconds,
	})
	if err != nil {
		return 0, "", fmt.Errorf("submitting animation: %w", err)
	}
	seconds := s.opts.AnimationSeconds

	pollCtx, cancel := context.WithTimeout(ctx, s.opts.AnimationTimeout)
	defer cancel()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-pollCtx.Done():
			return seconds, "", fmt.Errorf("animation %s did not finish within %s", jobID, s.opts.AnimationTimeout)
		case <-ticker.C:
		}
		st, err := s.animator.Poll(pollCtx, jobID)
		if err != nil {
			return seconds, "", fmt.Errorf("polling animation %s: %w", jobID, err)
		}
		if !st.Done {
			continue
		}
		if st.Seconds > 0 {
			seconds = st.Seconds
		}
		if st.VideoURL == "" {
			return seconds, "", fmt.Errorf("animation %s finished without a video", jobID)
		}
		return seconds, st.VideoURL, nil
	}
}

func collect(outcomes []sceneOutcome) (*model.AssetSet, error) {
	set := &model.AssetSet{}
	var errs []error
	for _, o := range outcomes {
		set.TotalCost += o.cost
		if o.err != nil {
			errs = append(errs, o.err)
			set.Failures = append(set.Failures, model.SceneFailure{
				SceneOrder: o.order,
				Class:      string(Classify(o.err)),
				Message:    o.err.Error(),
			})
			continue
		}
		set.Assets = append(set.Assets, *o.asset)
	}
	if len(set.Assets) == 0 {
		return nil, NewProviderError(model.StageAssets, errors.Join(errs...))
	}
	if len(errs) > 0 {
		slog.Warn("asset generation partially failed",
			"succeeded", len(set.Assets), "failed", len(errs), "error", errors.Join(errs...))
	}
	return set, nil
}
