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

package model_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestStatusAtLeast(t *testing.T) {
	assert.True(t, model.StatusScriptApproved.AtLeast(model.StatusAnalyzed))
	assert.True(t, model.StatusAnalyzed.AtLeast(model.StatusAnalyzed))
	assert.False(t, model.StatusDraft.AtLeast(model.StatusAnalyzed))
	assert.True(t, model.StatusReady.AtLeast(model.StatusAssetsApproved))
	assert.False(t, model.StatusFailed.AtLeast(model.StatusDraft))
	assert.False(t, model.StatusReady.AtLeast(model.StatusFailed))
}

func TestStageStatuses(t *testing.T) {
	cases := []struct {
		stage      model.Stage
		entry      model.Status
		review     model.Status
		approved   model.Status
		checkpoint model.Status
	}{
		{model.StageAnalysis, model.StatusDraft, model.StatusAnalyzed, model.StatusAnalyzed, model.StatusDraft},
		{model.StageScript, model.StatusAnalyzed, model.StatusScriptReview, model.StatusScriptApproved, model.StatusAnalyzed},
		{model.StageStoryboard, model.StatusScriptApproved, model.StatusStoryboardReview, model.StatusStoryboardApproved, model.StatusScriptApproved},
		{model.StageAssets, model.StatusStoryboardApproved, model.StatusAssetsReview, model.StatusAssetsApproved, model.StatusStoryboardApproved},
	}
	for _, c := range cases {
		t.Run(string(c.stage), func(t *testing.T) {
			assert.Equal(t, c.entry, c.stage.EntryStatus())
			assert.Equal(t, c.review, c.stage.ReviewStatus())
			assert.Equal(t, c.approved, c.stage.ApprovedStatus())
			assert.Equal(t, c.checkpoint, c.stage.PreviousCheckpoint())
		})
	}
}

func TestStageDownstream(t *testing.T) {
	assert.Equal(t,
		[]model.Stage{model.StageStoryboard, model.StageAssets, model.StageVideo},
		model.StageStoryboard.Downstream())
	assert.Equal(t, []model.Stage{model.StageVideo}, model.StageVideo.Downstream())
	assert.Nil(t, model.Stage("bogus").Downstream())
}

func TestParseStatusAndStage(t *testing.T) {
	s, err := model.ParseStatus("assets_review")
	assert.NoError(t, err)
	assert.Equal(t, model.StatusAssetsReview, s)

	_, err = model.ParseStatus("halfway")
	assert.Error(t, err)

	st, err := model.ParseStage("storyboard")
	assert.NoError(t, err)
	assert.Equal(t, model.StageStoryboard, st)

	_, err = model.ParseStage("music")
	assert.Error(t, err)
}
