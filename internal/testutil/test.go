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

// Package test provides configuration loading and fakes shared by the test
// suites. Nothing in here talks to a real provider.
package test

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/store"
)

// StateManager caches the configuration so it is decoded once per test run.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ConfigDir is the absolute path of the repository's configs directory,
// independent of the package the test runs from.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at configs/.env.test.toml.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, ConfigDir())
	if err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads the test configuration once and returns the cached copy.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// SeedProject stores a project at the given status together with the
// example artifacts every stage before that status would have produced.
func SeedProject(t *testing.T, s store.ArtifactStore, status model.Status) *model.Project {
	t.Helper()
	ctx := context.Background()
	p, err := model.NewProject("The last lighthouse keeper", "en", 30, false)
	HandleErr(err, t)
	HandleErr(s.CreateProject(ctx, p), t)

	put := func(stage model.Stage, payload any) {
		_, err := s.PutArtifact(ctx, p.ID, stage, payload)
		HandleErr(err, t)
	}
	if status.AtLeast(model.StatusAnalyzed) {
		put(model.StageAnalysis, model.GetExampleAnalysis())
	}
	if status.AtLeast(model.StatusScriptReview) {
		put(model.StageScript, model.GetExampleScript())
	}
	if status.AtLeast(model.StatusStoryboardReview) {
		put(model.StageStoryboard, model.GetExampleStoryboard())
	}
	if status.AtLeast(model.StatusAssetsReview) {
		put(model.StageAssets, ExampleAssets(model.GetExampleStoryboard()))
	}
	if status != model.StatusDraft {
		HandleErr(s.UpdateStatus(ctx, p.ID, model.StatusDraft, status), t)
	}
	p.Status = status
	return p
}

// ExampleAssets binds one image per storyboard scene.
func ExampleAssets(board *model.Storyboard) *model.AssetSet {
	set := &model.AssetSet{}
	for _, sc := range board.Scenes {
		set.Assets = append(set.Assets, model.Asset{
			SceneOrder: sc.Order,
			Type:       model.AssetImage,
			URL:        "file:///assets/scene.png",
			Prompt:     sc.ImagePrompt,
			Cost:       0.04,
			Provider:   "fake",
		})
		set.TotalCost += 0.04
	}
	return set
}
