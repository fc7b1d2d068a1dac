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

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// WorkingDirCreate gives the render its own temp directory. The directory
// is registered with the context so Close removes it whatever the outcome.
type WorkingDirCreate struct {
	cor.BaseCommand
	parent string
}

func NewWorkingDirCreate(name string, parent string) *WorkingDirCreate {
	out := &WorkingDirCreate{BaseCommand: *cor.NewBaseCommand(name), parent: parent}
	out.WithParams(ParamRenderRequest, ParamRenderRequest)
	return out
}

func (c *WorkingDirCreate) Execute(context cor.Context) {
	req := context.Get(c.GetInputParam()).(*model.RenderRequest)
	if c.parent != "" {
		if err := os.MkdirAll(c.parent, 0o755); err != nil {
			context.AddError(c.GetName(), fmt.Errorf("creating work dir parent %s: %w", c.parent, err))
			return
		}
	}
	dir, err := os.MkdirTemp(c.parent, "render-"+req.ProjectID+"-")
	if err != nil {
		context.AddError(c.GetName(), fmt.Errorf("creating working directory: %w", err))
		return
	}
	context.AddTempPath(dir)
	req.WorkingDir = dir
	slog.DebugContext(context.GetContext(), "render working directory created", "project_id", req.ProjectID, "dir", dir)
}
