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

// Package store persists projects and their stage artifacts.
//
// Artifacts are versioned: every write appends an immutable version and
// repoints the stage's current head in the same transaction. Invalidating a
// stage clears the heads of that stage and every later stage; the versions
// themselves are kept for history.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrStatusConflict = errors.New("project status changed concurrently")
)

// Version is one stored revision of a stage artifact.
type Version struct {
	Stage     model.Stage     `json:"stage"`
	Number    int             `json:"version"`
	Current   bool            `json:"current"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Commit writes a stage artifact and moves the project status in one step.
// When Invalidate is set the heads of every stage after Stage are cleared in
// the same transaction. Notes for Stage are consumed.
type Commit struct {
	ProjectID  string
	Stage      model.Stage
	Payload    any
	From       model.Status
	To         model.Status
	Invalidate bool
}

// ArtifactStore is the persistence contract of the stage state machine.
type ArtifactStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, limit int) ([]*model.Project, error)

	// UpdateStatus moves the status from -> to, failing with ErrStatusConflict
	// if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to model.Status) error
	SetRevisionNotes(ctx context.Context, id string, stage model.Stage, notes string) error

	PutArtifact(ctx context.Context, id string, stage model.Stage, payload any) (int, error)
	GetArtifact(ctx context.Context, id string, stage model.Stage, out any) (int, error)
	CommitArtifact(ctx context.Context, c Commit) (int, error)
	History(ctx context.Context, id string, stage model.Stage) ([]Version, error)
}

// Load reads the current artifact of a stage into a new T.
func Load[T any](ctx context.Context, s ArtifactStore, id string, stage model.Stage) (*T, int, error) {
	out := new(T)
	v, err := s.GetArtifact(ctx, id, stage, out)
	if err != nil {
		return nil, 0, err
	}
	return out, v, nil
}

func encode(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding artifact: %w", err)
	}
	return data, nil
}

func laterStages(stage model.Stage) []model.Stage {
	ds := stage.Downstream()
	if len(ds) == 0 {
		return nil
	}
	return ds[1:]
}

func stageNames(stages []model.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
