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
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/media"
)

// CompositionBuild turns the probed inputs into the typed ffmpeg composition.
type CompositionBuild struct {
	cor.BaseCommand
	canvas    media.Canvas
	encoding  media.Encoding
	crossfade float64
}

func NewCompositionBuild(name string, canvas media.Canvas, encoding media.Encoding, crossfade float64) *CompositionBuild {
	out := &CompositionBuild{BaseCommand: *cor.NewBaseCommand(name), canvas: canvas, encoding: encoding, crossfade: crossfade}
	out.WithParams(ParamSceneInputs, ParamComposition)
	return out
}

func (c *CompositionBuild) Execute(context cor.Context) {
	scenes := context.Get(c.GetInputParam()).([]media.SceneInput)
	audio, _ := cor.Value[media.AudioInput](context, ParamAudioInput)

	comp, err := media.BuildComposition(scenes, audio, c.canvas, c.crossfade)
	if err != nil {
		context.AddError(c.GetName(), err)
		return
	}
	if c.encoding.Preset != "" {
		comp.Encoding = c.encoding
	}
	context.Add(c.GetOutputParam(), comp)
}
