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

package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu     sync.Mutex
	calls  []string
	failOn model.Stage
}

func (r *recordingRunner) run(id string, stage model.Stage) (*model.Project, error) {
	r.mu.Lock()
	r.calls = append(r.calls, id+":"+string(stage))
	r.mu.Unlock()
	if stage == r.failOn {
		return nil, errors.New("generator unavailable")
	}
	return &model.Project{ID: id, Status: stage.ReviewStatus()}, nil
}

func (r *recordingRunner) Generate(_ context.Context, id string, stage model.Stage) (*model.Project, error) {
	return r.run(id, stage)
}

func (r *recordingRunner) Render(_ context.Context, id string) (*model.Project, error) {
	return r.run(id, model.StageVideo)
}

func TestStageTriggerDispatches(t *testing.T) {
	runner := &recordingRunner{}
	wf := workflow.NewStageTriggerWorkflow(runner)

	for _, msg := range []string{
		`{"project_id":"p-1","stage":"script"}`,
		`{"project_id":"p-2"}`,
	} {
		chCtx := cor.NewContextWith(ctx, msg)
		wf.Execute(chCtx)
		require.NoError(t, chCtx.Err())
		chCtx.Close()
	}
	assert.Equal(t, []string{"p-1:script", "p-2:video"}, runner.calls)
}

func TestStageTriggerRejectsBadMessages(t *testing.T) {
	runner := &recordingRunner{}
	wf := workflow.NewStageTriggerWorkflow(runner)

	for _, msg := range []string{
		`not json`,
		`{"stage":"script"}`,
		`{"project_id":"p-1","stage":"teaser"}`,
	} {
		chCtx := cor.NewContextWith(ctx, msg)
		wf.Execute(chCtx)
		assert.Error(t, chCtx.Err(), msg)
	}
	assert.Empty(t, runner.calls)
}

func TestStageTriggerSurfacesStageFailure(t *testing.T) {
	runner := &recordingRunner{failOn: model.StageAnalysis}
	wf := workflow.NewStageTriggerWorkflow(runner)

	chCtx := cor.NewContextWith(ctx, `{"project_id":"p-1","stage":"analysis"}`)
	wf.Execute(chCtx)
	err := chCtx.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generator unavailable")
}
