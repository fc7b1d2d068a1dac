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

// Package commands holds the steps of the render and trigger chains. Every
// command reads its input from a named context parameter, records failures
// with AddError and leaves its result under a named output parameter, so the
// chains can be assembled in any order that satisfies those dependencies.
package commands

// Context parameter names shared by the render chain.
const (
	ParamRenderRequest = "__RENDER_REQUEST__"
	ParamSceneInputs   = "__SCENE_INPUTS__"
	ParamAudioInput    = "__AUDIO_INPUT__"
	ParamComposition   = "__COMPOSITION__"
	ParamRenderOutput  = "__RENDER_OUTPUT__"
	ParamRenderTrigger = "__RENDER_TRIGGER__"
)

// RenderFileName is the name of the composed file inside the working dir.
const RenderFileName = "render.mp4"
