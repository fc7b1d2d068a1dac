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

package workflow

import (
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
)

// StageTriggerWorkflow is the command bound to the trigger subscription:
// decode the message, then run the stage it names.
type StageTriggerWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

func NewStageTriggerWorkflow(runner commands.StageRunner) *StageTriggerWorkflow {
	chain := cor.NewBaseChain("stage-trigger-workflow")
	chain.AddCommand(commands.NewStageTriggerReader("stage-trigger-reader"))
	chain.AddCommand(commands.NewStageDispatch("stage-dispatch", runner))
	return &StageTriggerWorkflow{
		BaseCommand: *cor.NewBaseCommand("stage-trigger-workflow"),
		chain:       chain,
	}
}

func (w *StageTriggerWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}
