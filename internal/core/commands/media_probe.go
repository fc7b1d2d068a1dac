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

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/media"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// MediaProbe inspects the downloaded files. Scene inputs are emitted in the
// request's scene order; the narration is probed only when the provider did
// not report its duration.
type MediaProbe struct {
	cor.BaseCommand
	prober *media.Prober
}

func NewMediaProbe(name string, prober *media.Prober) *MediaProbe {
	out := &MediaProbe{BaseCommand: *cor.NewBaseCommand(name), prober: prober}
	out.WithParams(ParamRenderRequest, ParamSceneInputs)
	return out
}

func (c *MediaProbe) Execute(context cor.Context) {
	req := context.Get(c.GetInputParam()).(*model.RenderRequest)
	ctx := context.GetContext()

	inputs := make([]media.SceneInput, 0, len(req.Scenes))
	for _, scene := range req.Scenes {
		if scene.LocalPath == "" {
			context.AddError(c.GetName(), fmt.Errorf("scene %d was not downloaded", scene.Order))
			return
		}
		probe, err := c.prober.Probe(ctx, scene.LocalPath)
		if err != nil {
			context.AddError(c.GetName(), fmt.Errorf("scene %d: %w", scene.Order, err))
			return
		}
		inputs = append(inputs, media.SceneInput{Path: scene.LocalPath, Probe: probe, Duration: scene.Duration()})
	}

	audio := media.AudioInput{Path: req.AudioPath, Duration: req.AudioDuration}
	if audio.Duration <= 0 {
		probe, err := c.prober.Probe(ctx, req.AudioPath)
		if err != nil {
			context.AddError(c.GetName(), fmt.Errorf("narration: %w", err))
			return
		}
		audio.Duration = probe.Duration
	}

	context.Add(c.GetOutputParam(), inputs)
	context.Add(ParamAudioInput, audio)
}
