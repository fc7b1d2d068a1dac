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

package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func stores(t *testing.T) map[string]store.ArtifactStore {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	gs, err := store.NewGormStore(db)
	require.NoError(t, err)
	return map[string]store.ArtifactStore{
		"memory": store.NewMemoryStore(),
		"gorm":   gs,
	}
}

func newProject(t *testing.T, ctx context.Context, s store.ArtifactStore) *model.Project {
	p, err := model.NewProject("a lighthouse at the end of the world", "en", 30, false)
	require.NoError(t, err)
	require.NoError(t, s.CreateProject(ctx, p))
	return p
}

func TestProjects(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := newProject(t, ctx, s)

			got, err := s.GetProject(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, p.Topic, got.Topic)
			assert.Equal(t, model.StatusDraft, got.Status)

			_, err = s.GetProject(ctx, "missing")
			assert.True(t, errors.Is(err, store.ErrNotFound))

			list, err := s.ListProjects(ctx, 10)
			require.NoError(t, err)
			assert.Len(t, list, 1)

			require.NoError(t, s.SetRevisionNotes(ctx, p.ID, model.StageScript, "shorter please"))
			got, err = s.GetProject(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, "shorter please", got.RevisionNotes[model.StageScript])
		})
	}
}

func TestStatusCompareAndSet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := newProject(t, ctx, s)

			require.NoError(t, s.UpdateStatus(ctx, p.ID, model.StatusDraft, model.StatusAnalyzed))
			err := s.UpdateStatus(ctx, p.ID, model.StatusDraft, model.StatusAnalyzed)
			assert.True(t, errors.Is(err, store.ErrStatusConflict))

			err = s.UpdateStatus(ctx, "missing", model.StatusDraft, model.StatusAnalyzed)
			assert.True(t, errors.Is(err, store.ErrNotFound))
		})
	}
}

// Two writes leave two versions but exactly one live artifact.
func TestPutArtifactKeepsOneCurrent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := newProject(t, ctx, s)

			v1, err := s.PutArtifact(ctx, p.ID, model.StageAnalysis, model.GetExampleAnalysis())
			require.NoError(t, err)
			second := model.GetExampleAnalysis()
			second.Mood = "hopeful"
			v2, err := s.PutArtifact(ctx, p.ID, model.StageAnalysis, second)
			require.NoError(t, err)
			assert.Equal(t, 1, v1)
			assert.Equal(t, 2, v2)

			got, v, err := store.Load[model.StoryAnalysis](ctx, s, p.ID, model.StageAnalysis)
			require.NoError(t, err)
			assert.Equal(t, 2, v)
			assert.Equal(t, "hopeful", got.Mood)

			hist, err := s.History(ctx, p.ID, model.StageAnalysis)
			require.NoError(t, err)
			require.Len(t, hist, 2)
			current := 0
			for _, h := range hist {
				if h.Current {
					current++
					assert.Equal(t, 2, h.Number)
				}
			}
			assert.Equal(t, 1, current)
		})
	}
}

func TestCommitArtifact(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := newProject(t, ctx, s)
			require.NoError(t, s.UpdateStatus(ctx, p.ID, model.StatusDraft, model.StatusStoryboardApproved))
			_, err := s.PutArtifact(ctx, p.ID, model.StageAnalysis, model.GetExampleAnalysis())
			require.NoError(t, err)
			_, err = s.PutArtifact(ctx, p.ID, model.StageScript, model.GetExampleScript())
			require.NoError(t, err)
			_, err = s.PutArtifact(ctx, p.ID, model.StageStoryboard, model.GetExampleStoryboard())
			require.NoError(t, err)
			require.NoError(t, s.SetRevisionNotes(ctx, p.ID, model.StageScript, "more suspense"))

			v, err := s.CommitArtifact(ctx, store.Commit{
				ProjectID:  p.ID,
				Stage:      model.StageScript,
				Payload:    model.GetExampleScript(),
				From:       model.StatusStoryboardApproved,
				To:         model.StatusScriptReview,
				Invalidate: true,
			})
			require.NoError(t, err)
			assert.Equal(t, 2, v)

			got, err := s.GetProject(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, model.StatusScriptReview, got.Status)
			assert.Empty(t, got.RevisionNotes[model.StageScript])

			// Upstream stays live, downstream heads are cleared but their
			// versions are kept.
			_, _, err = store.Load[model.StoryAnalysis](ctx, s, p.ID, model.StageAnalysis)
			assert.NoError(t, err)
			_, _, err = store.Load[model.Storyboard](ctx, s, p.ID, model.StageStoryboard)
			assert.True(t, errors.Is(err, store.ErrNotFound))
			boards, err := s.History(ctx, p.ID, model.StageStoryboard)
			require.NoError(t, err)
			require.Len(t, boards, 1)
			assert.False(t, boards[0].Current)

			// a stale commit changes nothing
			_, err = s.CommitArtifact(ctx, store.Commit{
				ProjectID: p.ID,
				Stage:     model.StageScript,
				Payload:   model.GetExampleScript(),
				From:      model.StatusAnalyzed,
				To:        model.StatusScriptReview,
			})
			assert.True(t, errors.Is(err, store.ErrStatusConflict))
			hist, err := s.History(ctx, p.ID, model.StageScript)
			require.NoError(t, err)
			assert.Len(t, hist, 2)
		})
	}
}
