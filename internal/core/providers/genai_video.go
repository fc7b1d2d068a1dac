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

package providers

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
	"google.golang.org/genai"
)

// jobSeparator joins the project id and the operation name into the job id
// handed back to the asset service, so Poll can place the clip without any
// local state.
const jobSeparator = "::"

// GenAIAnimator animates stills with a Veo model.
type GenAIAnimator struct {
	client *genai.Client
	model  string
	sink   mediaSink
}

func NewGenAIAnimator(client *genai.Client, model string, store cloud.BlobStore, prefix string) *GenAIAnimator {
	return &GenAIAnimator{client: client, model: model, sink: mediaSink{store: store, prefix: prefix}}
}

func (a *GenAIAnimator) Submit(ctx context.Context, req services.AnimationRequest) (string, error) {
	data, mimeType, err := a.sink.read(ctx, req.ImageURL)
	if err != nil {
		return "", fmt.Errorf("loading still: %w", err)
	}
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    "9:16",
		NegativePrompt: "text, captions, watermark",
	}
	if req.Seconds > 0 {
		cfg.DurationSeconds = genai.Ptr(int32(req.Seconds))
	}
	prompt := strings.TrimSpace(req.Scene.ImagePrompt + " " + req.Scene.CameraAngle)
	op, err := a.client.Models.GenerateVideos(ctx, a.model, prompt,
		&genai.Image{ImageBytes: data, MIMEType: mimeType}, cfg)
	if err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", errors.New("video model returned no operation")
	}
	return req.ProjectID + jobSeparator + op.Name, nil
}

func (a *GenAIAnimator) Poll(ctx context.Context, jobID string) (*services.AnimationStatus, error) {
	projectID, opName, ok := strings.Cut(jobID, jobSeparator)
	if !ok {
		return nil, fmt.Errorf("malformed animation job id %q", jobID)
	}
	op, err := a.client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: opName}, nil)
	if err != nil {
		return nil, err
	}
	if !op.Done {
		return &services.AnimationStatus{}, nil
	}
	if op.Error != nil {
		return nil, fmt.Errorf("animation job failed: %v", op.Error["message"])
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		if op.Response != nil && op.Response.RAIMediaFilteredCount > 0 {
			return nil, fmt.Errorf("video blocked by responsible AI filters: %s",
				strings.Join(op.Response.RAIMediaFilteredReasons, "; "))
		}
		return nil, errors.New("animation job finished without a video")
	}
	gen := op.Response.GeneratedVideos[0]
	if gen.Video == nil {
		return nil, errors.New("animation job finished without a video")
	}

	url, err := a.persist(ctx, projectID, path.Base(opName), gen)
	if err != nil {
		return nil, err
	}
	return &services.AnimationStatus{Done: true, VideoURL: url}, nil
}

// persist moves the clip into the blob store. Vertex may already have
// written it to Cloud Storage, in which case the gs:// URI is kept.
func (a *GenAIAnimator) persist(ctx context.Context, projectID, name string, gen *genai.GeneratedVideo) (string, error) {
	v := gen.Video
	if len(v.VideoBytes) == 0 && a.client.ClientConfig().Backend == genai.BackendGeminiAPI {
		if _, err := a.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(gen), nil); err != nil {
			return "", fmt.Errorf("downloading clip: %w", err)
		}
	}
	if len(v.VideoBytes) == 0 {
		if v.URI == "" {
			return "", errors.New("animation job returned neither bytes nor a URI")
		}
		return v.URI, nil
	}
	mimeType := v.MIMEType
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	return a.sink.put(ctx, projectID, "clips", name+".mp4", v.VideoBytes, mimeType)
}
