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

package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

// ServiceClients holds every long lived client. Fields for systems that are
// disabled in the configuration stay nil.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BiqQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient
	MinioClient     *minio.Client
	OpenAIClient    *openai.Client
	DB              *gorm.DB
	QueueClient     *asynq.Client
	BlobStore       BlobStore
	StatusPublisher *StatusPublisher
	PubSubListeners map[string]*PubSubListener
	AgentModels     map[string]*QuotaAwareGenerativeAIModel
}

func (c *ServiceClients) Close() {
	if c.StatusPublisher != nil {
		c.StatusPublisher.Stop()
	}
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BiqQueryClient != nil {
		_ = c.BiqQueryClient.Close()
	}
	if c.QueueClient != nil {
		_ = c.QueueClient.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// NewCloudServiceClients creates the clients the configuration asks for. On
// error, clients created so far are closed.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		AgentModels:     make(map[string]*QuotaAwareGenerativeAIModel),
	}
	defer func() {
		if err != nil {
			cloud.Close()
			cloud = nil
		}
	}()

	if cloud.BlobStore, err = newBlobStore(ctx, config, cloud); err != nil {
		return cloud, err
	}

	if cloud.DB, err = OpenDatabase(ctx, config.Database); err != nil {
		return cloud, err
	}

	if config.PubSub.Enabled {
		if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
			return cloud, fmt.Errorf("creating pubsub client: %w", err)
		}
		if config.PubSub.StatusTopic != "" {
			cloud.StatusPublisher = NewStatusPublisher(cloud.PubsubClient, config.PubSub.StatusTopic)
		}
		// Commands are attached once the workflows are built.
		for key, values := range config.TopicSubscriptions {
			listener, lerr := NewPubSubListener(cloud.PubsubClient, values.Name, nil)
			if lerr != nil {
				return cloud, lerr
			}
			cloud.PubSubListeners[key] = listener
		}
	}

	if config.BigQueryDataSource.Enabled {
		if cloud.BiqQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
			return cloud, fmt.Errorf("creating bigquery client: %w", err)
		}
	}

	if config.Queue.Enabled {
		cloud.QueueClient = asynq.NewClient(RedisOpt(config.Queue))
	}

	if cloud.GenAIClient, err = NewGenAIClient(ctx, config); err != nil {
		return cloud, err
	}

	for key, values := range config.AgentModels {
		model := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
			Tools:             []*genai.Tool{},
		}
		cloud.AgentModels[key] = NewQuotaAwareModel(model, values.Model, cloud.GenAIClient.Models, values.RateLimit)
		slog.Debug("configured agent model", "agent", key, "model", values.Model)
	}

	if config.Generators.TextProvider == "openai" {
		if cloud.OpenAIClient, err = NewOpenAIClient(config.Generators); err != nil {
			return cloud, err
		}
	}

	return cloud, nil
}

// NewGenAIClient uses the Gemini API when an API key is configured and
// Vertex AI otherwise.
func NewGenAIClient(ctx context.Context, config *Config) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	}
	if config.Generators.GenAIAPIKey != "" {
		cc = &genai.ClientConfig{APIKey: config.Generators.GenAIAPIKey, Backend: genai.BackendGeminiAPI}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return gc, nil
}

// NewOpenAIClient builds a client for the OpenAI compatible endpoint.
func NewOpenAIClient(cfg Generators) (*openai.Client, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("generators.openai_api_key is required for the openai text provider")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	client := openai.NewClient(opts...)
	return &client, nil
}

func RedisOpt(q Queue) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: q.RedisAddr, Password: q.RedisPassword}
}

func newBlobStore(ctx context.Context, config *Config, cloud *ServiceClients) (BlobStore, error) {
	switch config.Storage.Backend {
	case StorageGCS:
		sc, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating storage client: %w", err)
		}
		cloud.StorageClient = sc
		if config.Application.SignerServiceAccountEmail != "" {
			ic, err := credentials.NewIamCredentialsClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("creating iam credentials client: %w", err)
			}
			cloud.IAMClient = ic
		}
		return NewGCSBlobStore(sc, cloud.IAMClient, config.Storage.Bucket, config.Application.SignerServiceAccountEmail), nil
	case StorageMinio:
		mc, err := NewMinioClient(config.Minio)
		if err != nil {
			return nil, err
		}
		cloud.MinioClient = mc
		return NewMinioBlobStore(mc, config.Minio.Bucket), nil
	case StorageLocal, "":
		return NewLocalBlobStore(config.Storage.LocalDir, config.Storage.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}
}
