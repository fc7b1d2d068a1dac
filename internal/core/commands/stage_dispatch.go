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
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// StageRunner is the part of the stage service a trigger can drive.
type StageRunner interface {
	Generate(ctx context.Context, id string, stage model.Stage) (*model.Project, error)
	Render(ctx context.Context, id string) (*model.Project, error)
}

// StageDispatch runs the stage named by a StageTrigger.
type StageDispatch struct {
	cor.BaseCommand
	runner StageRunner
}

func NewStageDispatch(name string, runner StageRunner) *StageDispatch {
	out := &StageDispatch{BaseCommand: *cor.NewBaseCommand(name), runner: runner}
	out.WithParams(ParamRenderTrigger, cor.CtxOut)
	return out
}

func (c *StageDispatch) Execute(chCtx cor.Context) {
	trigger := chCtx.Get(c.GetInputParam()).(*StageTrigger)
	ctx := chCtx.GetContext()
	stage := model.Stage(trigger.Stage)

	var (
		p   *model.Project
		err error
	)
	if stage == model.StageVideo {
		p, err = c.runner.Render(ctx, trigger.ProjectID)
	} else {
		p, err = c.runner.Generate(ctx, trigger.ProjectID, stage)
	}
	if err != nil {
		chCtx.AddError(c.GetName(), err)
		return
	}
	slog.InfoContext(ctx, "triggered stage finished", "project_id", p.ID, "stage", stage, "status", p.Status)
	chCtx.Add(c.GetOutputParam(), p)
}
