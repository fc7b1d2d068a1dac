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

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/api"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/providers"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/store"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/workflow"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/jobs"
)

type StateManager struct {
	config *cloud.Config
	cloud  *cloud.ServiceClients
	hub    *api.StatusHub
	stages *services.StageService
	ledger *services.LedgerService
	queue  *jobs.Queue
	worker *asynq.Server
}

var state = &StateManager{}

// SetupOS defaults the configuration lookup to configs/.env.local.toml
// unless the environment already says otherwise.
func SetupOS() error {
	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// InitState builds every client, generator and service the server needs.
func InitState(ctx context.Context) error {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	artifacts, err := newArtifactStore(cloudClients)
	if err != nil {
		return err
	}

	text, err := newTextGenerator(config, cloudClients)
	if err != nil {
		return err
	}

	prefix := config.Storage.Prefix
	models := cloudClients.GenAIClient.Models
	images := providers.NewGenAIImageGenerator(models, config.Generators.ImageModel, config.Generators.ImageEditModel,
		cloudClients.BlobStore, prefix, config.Assets.MaxParallel)

	var animator services.Animator
	if config.Assets.AnimationEnabled && config.Generators.VideoModel != "" {
		animator = providers.NewGenAIAnimator(cloudClients.GenAIClient, config.Generators.VideoModel, cloudClients.BlobStore, prefix)
	}
	assets := services.NewAssetService(images, animator,
		services.CostModel{
			PerImage:           config.Assets.CostPerImage,
			PerAnimationSecond: config.Assets.CostPerAnimationSecond,
		},
		services.AssetOptions{
			MaxParallel:      config.Assets.MaxParallel,
			StyleContinuity:  config.Assets.StyleContinuity,
			AnimationEnabled: animator != nil,
			AnimationSeconds: config.Assets.AnimationSeconds,
			PollInterval:     time.Duration(config.Assets.AnimationPollSeconds) * time.Second,
			AnimationTimeout: time.Duration(config.Assets.AnimationTimeoutSeconds) * time.Second,
		})

	speaker := providers.NewGenAISpeaker(models, config.Generators.SpeechModel, config.Generators.Voice,
		cloudClients.BlobStore, prefix, 1)
	narration := services.NewNarrationService(speaker, config.Assets.CostPerSpeechCharacter)

	state.hub = api.NewStatusHub()
	notifiers := services.Notifiers{state.hub}
	if cloudClients.StatusPublisher != nil {
		notifiers = append(notifiers, cloudClients.StatusPublisher)
	}

	renderer := workflow.NewRenderWorkflow(config, cloudClients, nil)
	state.stages = services.NewStageService(artifacts, text, assets, narration, renderer, notifiers,
		fmt.Sprintf("%dx%d", config.Render.Width, config.Render.Height))

	if cloudClients.BiqQueryClient != nil {
		state.ledger = &services.LedgerService{
			BigqueryClient: cloudClients.BiqQueryClient,
			DatasetName:    config.BigQueryDataSource.DatasetName,
			RenderTable:    config.BigQueryDataSource.RenderTable,
		}
	}

	if cloudClients.QueueClient != nil {
		state.queue = jobs.NewQueue(cloudClients.QueueClient, config.Queue)
		state.worker = jobs.NewServer(config.Queue)
	}

	SetupListeners(ctx)
	return nil
}

func newArtifactStore(clients *cloud.ServiceClients) (store.ArtifactStore, error) {
	if clients.DB == nil {
		return store.NewMemoryStore(), nil
	}
	return store.NewGormStore(clients.DB)
}

// newTextGenerator picks the provider named by generators.text_provider.
func newTextGenerator(config *cloud.Config, clients *cloud.ServiceClients) (services.TextGenerator, error) {
	prompts, err := providers.NewPrompts(config.PromptTemplates)
	if err != nil {
		return nil, err
	}
	switch config.Generators.TextProvider {
	case "openai":
		return providers.NewOpenAITextGenerator(clients.OpenAIClient, config.Generators.OpenAIModel, prompts, 0.8, 2), nil
	case "genai", "":
		agent, ok := clients.AgentModels[config.Generators.TextAgent]
		if !ok {
			return nil, fmt.Errorf("generators.text_agent %q is not configured in agent_models", config.Generators.TextAgent)
		}
		return providers.NewGenAITextGenerator(agent, prompts), nil
	default:
		return nil, fmt.Errorf("unknown text provider %q", config.Generators.TextProvider)
	}
}

// SetupListeners lets every configured subscription drive stages.
func SetupListeners(ctx context.Context) {
	for _, listener := range state.cloud.PubSubListeners {
		listener.SetCommand(workflow.NewStageTriggerWorkflow(state.stages))
		listener.Listen(ctx)
	}
}

// StartWorker runs the asynq worker when the queue is enabled.
func StartWorker() error {
	if state.worker == nil {
		return nil
	}
	return state.worker.Start(jobs.NewMux(state.stages))
}

// NewAPIServer assembles the HTTP handlers.
func NewAPIServer() *api.Server {
	config := state.config
	s := &api.Server{
		Stages:       state.stages,
		Blobs:        state.cloud.BlobStore,
		Hub:          state.hub,
		SignedURLTTL: time.Duration(config.Storage.SignedURLMinutes) * time.Minute,
	}
	// Typed nils would make the optional collaborators look configured.
	if state.queue != nil {
		s.Queue = state.queue
	}
	if state.ledger != nil {
		s.Ledger = state.ledger
	}
	if local, ok := state.cloud.BlobStore.(*cloud.LocalBlobStore); ok && config.Storage.PublicBaseURL != "" {
		s.LocalBlobDir = local.Root()
	}
	return s
}
