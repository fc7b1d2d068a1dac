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

package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// RenderUpload streams the rendered MP4 into the blob store and writes the
// subtitles next to it. Each render gets a fresh name, so a re-render never
// overwrites a video an older version still points at.
type RenderUpload struct {
	cor.BaseCommand
	store  cloud.BlobStore
	prefix string
}

func NewRenderUpload(name string, store cloud.BlobStore, prefix string) *RenderUpload {
	out := &RenderUpload{BaseCommand: *cor.NewBaseCommand(name), store: store, prefix: prefix}
	out.WithParams(ParamRenderOutput, ParamRenderOutput)
	return out
}

func (c *RenderUpload) Execute(context cor.Context) {
	output := context.Get(c.GetInputParam()).(*model.RenderOutput)
	req := context.Get(ParamRenderRequest).(*model.RenderRequest)
	ctx := context.GetContext()

	f, err := os.Open(output.LocalPath)
	if err != nil {
		context.AddError(c.GetName(), fmt.Errorf("failed to open file %s: %w", output.LocalPath, err))
		return
	}
	defer f.Close()

	// Subtitles go first so a failure there never leaves a video behind.
	id := uuid.NewString()
	if req.SubtitlesSRT != "" {
		srtURL, err := cloud.PutBytes(ctx, c.store, cloud.ObjectName(c.prefix, "projects", req.ProjectID, "renders", id+".srt"), []byte(req.SubtitlesSRT), "application/x-subrip")
		if err != nil {
			context.AddError(c.GetName(), fmt.Errorf("uploading subtitles: %w", err))
			return
		}
		output.SubtitlesURL = srtURL
	}

	videoURL, err := c.store.Put(ctx, cloud.ObjectName(c.prefix, "projects", req.ProjectID, "renders", id+".mp4"), f, output.FileSize, "video/mp4")
	if err != nil {
		if output.SubtitlesURL != "" {
			slog.WarnContext(ctx, "subtitles left without a video", "project_id", req.ProjectID, "url", output.SubtitlesURL)
		}
		context.AddError(c.GetName(), fmt.Errorf("uploading render: %w", err))
		return
	}
	output.VideoURL = videoURL

	slog.InfoContext(ctx, "render uploaded", "project_id", req.ProjectID, "url", videoURL, "bytes", output.FileSize)
}
