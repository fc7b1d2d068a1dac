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
	"encoding/json"
	"fmt"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// StageTrigger is the payload of a Pub/Sub message asking the studio to
// advance a project. An empty stage means "render".
type StageTrigger struct {
	ProjectID string `json:"project_id"`
	Stage     string `json:"stage,omitempty"`
}

// StageTriggerReader decodes the raw message body into a StageTrigger.
type StageTriggerReader struct {
	cor.BaseCommand
}

func NewStageTriggerReader(name string) *StageTriggerReader {
	out := &StageTriggerReader{BaseCommand: *cor.NewBaseCommand(name)}
	out.WithParams(cor.CtxIn, ParamRenderTrigger)
	return out
}

func (c *StageTriggerReader) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var out StageTrigger
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal stage trigger: %w", err))
		return
	}
	if out.ProjectID == "" {
		context.AddError(c.GetName(), fmt.Errorf("%w: stage trigger without project_id", model.ErrInvalidInput))
		return
	}
	if out.Stage == "" {
		out.Stage = string(model.StageVideo)
	}
	if _, err := model.ParseStage(out.Stage); err != nil {
		context.AddError(c.GetName(), err)
		return
	}
	context.Add(c.GetOutputParam(), &out)
}
