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
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func threeSceneScript() *model.Script {
	return &model.Script{
		Narration: "one two three",
		Scenes: []model.SceneScript{
			{Order: 1, Narration: "one", StartTime: 0, EndTime: 10},
			{Order: 2, Narration: "two", StartTime: 10, EndTime: 20},
			{Order: 3, Narration: "three", StartTime: 20, EndTime: 30},
		},
	}
}

func TestScriptValidate(t *testing.T) {
	assert.NoError(t, threeSceneScript().Validate(30))

	s := threeSceneScript()
	s.Scenes[1].StartTime = 11.5 // within tolerance
	assert.NoError(t, s.Validate(30))

	s = threeSceneScript()
	s.Scenes[1].StartTime = 13 // gap of 3s
	assert.True(t, errors.Is(s.Validate(30), model.ErrInvalidInput))

	s = threeSceneScript()
	s.Scenes[2].Order = 4
	assert.Error(t, s.Validate(30))

	s = threeSceneScript()
	assert.Error(t, s.Validate(60), "last scene must reach the target duration")

	assert.Error(t, (&model.Script{}).Validate(30))
}

func TestStoryboardValidateAgainst(t *testing.T) {
	script := threeSceneScript()
	board := &model.Storyboard{Scenes: []model.StoryboardScene{{Order: 1}, {Order: 2}, {Order: 3}}}
	assert.NoError(t, board.ValidateAgainst(script))

	board.Scenes = board.Scenes[:2]
	assert.Error(t, board.ValidateAgainst(script))
}

func TestRevisionsApplyToScript(t *testing.T) {
	s := threeSceneScript()
	rev := &model.Revisions{Scenes: []model.SceneRevision{{Order: 2, Narration: "two and a half"}}}
	assert.NoError(t, rev.ApplyToScript(s))
	assert.Equal(t, "two and a half", s.Scenes[1].Narration)
	assert.Equal(t, "one two and a half three", s.Narration)
	assert.Equal(t, 6, s.WordCount)

	bad := &model.Revisions{Scenes: []model.SceneRevision{{Order: 9, Narration: "x"}}}
	assert.Error(t, bad.ApplyToScript(s))
}

func TestNewProjectValidation(t *testing.T) {
	p, err := model.NewProject("a lighthouse", "", 60, false)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusDraft, p.Status)
	assert.Equal(t, "en", p.Language)
	assert.NotEmpty(t, p.ID)

	_, err = model.NewProject("a lighthouse", "en", 45, false)
	assert.True(t, errors.Is(err, model.ErrInvalidInput))

	_, err = model.NewProject("   ", "en", 30, false)
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestAnalysisValidate(t *testing.T) {
	a := model.GetExampleAnalysis()
	assert.NoError(t, a.Validate())

	a.Themes = nil
	assert.Error(t, a.Validate())
}
