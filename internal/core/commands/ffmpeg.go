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
	"path/filepath"
	"strings"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/media"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// FFMpegCommand runs the composed ffmpeg invocation and records the local
// output in a RenderOutput.
type FFMpegCommand struct {
	cor.BaseCommand
	runner      media.Runner
	commandPath string
}

func NewFFMpegCommand(name string, runner media.Runner, commandPath string) *FFMpegCommand {
	if commandPath == "" {
		commandPath = "ffmpeg"
	}
	out := &FFMpegCommand{BaseCommand: *cor.NewBaseCommand(name), runner: runner, commandPath: commandPath}
	out.WithParams(ParamComposition, ParamRenderOutput)
	return out
}

func (c *FFMpegCommand) Execute(context cor.Context) {
	comp := context.Get(c.GetInputParam()).(*media.Composition)
	req, ok := cor.Value[*model.RenderRequest](context, ParamRenderRequest)
	if !ok || req.WorkingDir == "" {
		context.AddError(c.GetName(), fmt.Errorf("render request has no working directory"))
		return
	}
	output := filepath.Join(req.WorkingDir, RenderFileName)
	args := comp.Args(output)
	slog.DebugContext(context.GetContext(), "running ffmpeg", "project_id", req.ProjectID, "args", strings.Join(args, " "))

	if _, err := c.runner.Run(context.GetContext(), c.commandPath, args...); err != nil {
		context.AddError(c.GetName(), err)
		return
	}
	info, err := os.Stat(output)
	if err != nil {
		context.AddError(c.GetName(), fmt.Errorf("ffmpeg did not produce %s: %w", output, err))
		return
	}
	if info.Size() == 0 {
		context.AddError(c.GetName(), fmt.Errorf("ffmpeg produced an empty file"))
		return
	}
	context.Add(c.GetOutputParam(), &model.RenderOutput{
		LocalPath: output,
		Duration:  comp.Duration,
		FileSize:  info.Size(),
	})
}
