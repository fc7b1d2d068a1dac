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

// Package cloud holds the configuration model and the clients for every
// external system the studio talks to: object storage, the database, the job
// queue, Pub/Sub, BigQuery and the generative model providers.
//
// The Config struct mirrors the TOML files in configs/. It is loaded once at
// startup by LoadConfig and handed down explicitly; nothing below main reads
// the environment to make decisions.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings are applied to every Gemini agent model. Blocks are
// still reported by the API and classified as content policy failures.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	},
}

// Storage backends.
const (
	StorageGCS   = "gcs"
	StorageMinio = "minio"
	StorageLocal = "local"
)

type Storage struct {
	Backend          string `toml:"backend"`            // gcs, minio or local
	Bucket           string `toml:"bucket"`             // GCS bucket for the gcs backend
	Prefix           string `toml:"prefix"`             // object name prefix, e.g. "studio/"
	LocalDir         string `toml:"local_dir"`          // root directory for the local backend
	PublicBaseURL    string `toml:"public_base_url"`    // base URL the local backend serves files under
	SignedURLMinutes int    `toml:"signed_url_minutes"` // lifetime of signed / presigned URLs
}

type Minio struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

type Database struct {
	Dialect      string `toml:"dialect"` // mysql, postgres, sqlite or memory
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
	LogQueries   bool   `toml:"log_queries"`
}

type Queue struct {
	Enabled        bool   `toml:"enabled"`
	RedisAddr      string `toml:"redis_addr"`
	RedisPassword  string `toml:"redis_password"`
	Concurrency    int    `toml:"concurrency"`
	TimeoutMinutes int    `toml:"timeout_minutes"`
	RetentionHours int    `toml:"retention_hours"`
}

type PubSub struct {
	Enabled     bool   `toml:"enabled"`
	StatusTopic string `toml:"status_topic"` // topic that receives project status events
}

type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

type BigQueryDataSource struct {
	Enabled     bool   `toml:"enabled"`
	DatasetName string `toml:"dataset"`      // The name of the BigQuery dataset.
	RenderTable string `toml:"render_table"` // One row per finished render.
}

type Render struct {
	FFmpegPath   string  `toml:"ffmpeg_path"`
	FFprobePath  string  `toml:"ffprobe_path"`
	WorkDir      string  `toml:"work_dir"` // parent of the per-render temp dirs, empty for os.TempDir
	Width        int     `toml:"width"`
	Height       int     `toml:"height"`
	FPS          int     `toml:"fps"`
	Crossfade    float64 `toml:"crossfade"`
	Preset       string  `toml:"preset"`
	CRF          int     `toml:"crf"`
	AudioBitrate string  `toml:"audio_bitrate"`
}

type Assets struct {
	MaxParallel             int     `toml:"max_parallel"`
	StyleContinuity         bool    `toml:"style_continuity"`
	AnimationEnabled        bool    `toml:"animation_enabled"`
	AnimationSeconds        int     `toml:"animation_seconds"`
	AnimationPollSeconds    int     `toml:"animation_poll_seconds"`
	AnimationTimeoutSeconds int     `toml:"animation_timeout_seconds"`
	CostPerImage            float64 `toml:"cost_per_image"`
	CostPerAnimationSecond  float64 `toml:"cost_per_animation_second"`
	CostPerSpeechCharacter  float64 `toml:"cost_per_speech_character"`
}

type Generators struct {
	TextProvider   string `toml:"text_provider"` // genai or openai
	TextAgent      string `toml:"text_agent"`    // key into AgentModels
	GenAIAPIKey    string `toml:"genai_api_key"` // empty selects Vertex AI
	ImageModel     string `toml:"image_model"`
	ImageEditModel string `toml:"image_edit_model"` // used with a reference image
	VideoModel     string `toml:"video_model"`
	SpeechModel    string `toml:"speech_model"`
	Voice          string `toml:"voice"`
	OpenAIAPIKey   string `toml:"openai_api_key"`
	OpenAIModel    string `toml:"openai_model"`
	OpenAIBaseURL  string `toml:"openai_base_url"`
}

type PromptTemplates struct {
	SystemInstructions string `toml:"system_instructions"`
	Analysis           string `toml:"analysis"`
	Script             string `toml:"script"`
	Storyboard         string `toml:"storyboard"`
}

type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
		ListenAddress             string `toml:"listen_address"`
		TelemetryEnabled          bool   `toml:"telemetry_enabled"`
		LogFile                   string `toml:"log_file"`
		LogLevel                  string `toml:"log_level"` // debug, info, warn or error
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	Minio              Minio                        `toml:"minio"`
	Database           Database                     `toml:"database"`
	Queue              Queue                        `toml:"queue"`
	PubSub             PubSub                       `toml:"pub_sub"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // keyed by a logical name, e.g. "render"
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	Render             Render                       `toml:"render"`
	Assets             Assets                       `toml:"assets"`
	Generators         Generators                   `toml:"generators"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"` // keyed by a logical name, e.g. "creative-flash"
}

// NewConfig returns a Config with the defaults used when a key is absent
// from every TOML layer.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
	c.Application.Name = "shorts-studio"
	c.Application.ListenAddress = ":8080"
	c.Application.LogLevel = "info"
	c.Storage.Backend = StorageLocal
	c.Storage.LocalDir = "data/blobs"
	c.Storage.SignedURLMinutes = 60
	c.Database.Dialect = "memory"
	c.Queue.Concurrency = 4
	c.Queue.TimeoutMinutes = 30
	c.Queue.RetentionHours = 24
	c.Render = Render{
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		Width:        1080,
		Height:       1920,
		FPS:          30,
		Crossfade:    0.5,
		Preset:       "medium",
		CRF:          20,
		AudioBitrate: "192k",
	}
	c.Assets = Assets{
		MaxParallel:             10,
		AnimationSeconds:        6,
		AnimationPollSeconds:    10,
		AnimationTimeoutSeconds: 600,
		CostPerImage:            0.04,
		CostPerAnimationSecond:  0.5,
	}
	c.Generators.TextProvider = "genai"
	return c
}
