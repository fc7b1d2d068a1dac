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

// Package workflow assembles commands into the chains the studio runs: the
// render chain that turns bound scenes and narration into an uploaded MP4,
// and the trigger chain that lets Pub/Sub messages drive a stage.
package workflow

import (
	"context"
	"errors"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/media"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// RenderWorkflow is the compositor. It implements services.Renderer.
type RenderWorkflow struct {
	cor.BaseCommand
	config  *cloud.Config
	clients *cloud.ServiceClients
	runner  media.Runner
	chain   cor.Chain
}

func NewRenderWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients, runner media.Runner) *RenderWorkflow {
	if runner == nil {
		runner = media.ExecRunner{}
	}
	out := &RenderWorkflow{
		BaseCommand: *cor.NewBaseCommand("render-workflow"),
		config:      config,
		clients:     serviceClients,
		runner:      runner,
	}
	out.WithParams(commands.ParamRenderRequest, commands.ParamRenderOutput)
	out.initializeChain()
	return out
}

func (r *RenderWorkflow) initializeChain() {
	rc := r.config.Render
	canvas := media.Canvas{Width: rc.Width, Height: rc.Height, FPS: rc.FPS}
	encoding := media.Encoding{Preset: rc.Preset, CRF: rc.CRF, AudioBitrate: rc.AudioBitrate}

	out := cor.NewBaseChain(r.GetName())
	out.AddCommand(commands.NewWorkingDirCreate("render-working-dir", rc.WorkDir))
	out.AddCommand(commands.NewAssetDownload("render-asset-download", r.clients.BlobStore))
	out.AddCommand(commands.NewMediaProbe("render-media-probe", media.NewProber(r.runner, rc.FFprobePath)))
	out.AddCommand(commands.NewCompositionBuild("render-composition", canvas, encoding, rc.Crossfade))
	out.AddCommand(commands.NewFFMpegCommand("render-ffmpeg", r.runner, rc.FFmpegPath))
	out.AddCommand(commands.NewRenderUpload("render-upload", r.clients.BlobStore, r.config.Storage.Prefix))
	if r.config.BigQueryDataSource.Enabled && r.clients.BiqQueryClient != nil {
		out.AddCommand(commands.NewRenderLedger("render-ledger", r.clients.BiqQueryClient,
			r.config.BigQueryDataSource.DatasetName, r.config.BigQueryDataSource.RenderTable))
	}
	r.chain = out
}

func (r *RenderWorkflow) Execute(context cor.Context) {
	r.chain.Execute(context)
}

// Render runs the chain for one request. The working directory is removed
// before Render returns, so the output carries only durable URLs.
func (r *RenderWorkflow) Render(ctx context.Context, req *model.RenderRequest) (*model.RenderOutput, error) {
	chCtx := cor.NewContextWith(ctx, nil)
	defer chCtx.Close()
	chCtx.Add(commands.ParamRenderRequest, req)

	r.Execute(chCtx)
	if chCtx.HasErrors() {
		return nil, chCtx.Err()
	}
	out, ok := cor.Value[*model.RenderOutput](chCtx, commands.ParamRenderOutput)
	if !ok || out.VideoURL == "" {
		return nil, errors.New("render chain finished without an uploaded video")
	}
	out.LocalPath = ""
	return out, nil
}
