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

// Package jobs moves long running stage work (generation and rendering) off
// the request path onto an asynq queue backed by Redis.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

const (
	TypeGenerateStage = "stage:generate"
	TypeRenderVideo   = "stage:render"
)

// StagePayload is the body of both task types. Stage is empty for renders.
type StagePayload struct {
	ProjectID string      `json:"project_id"`
	Stage     model.Stage `json:"stage,omitempty"`
}

// NewGenerateTask builds the task that regenerates one stage.
func NewGenerateTask(projectID string, stage model.Stage, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(StagePayload{ProjectID: projectID, Stage: stage})
	if err != nil {
		return nil, fmt.Errorf("marshal payload failed: %w", err)
	}
	return asynq.NewTask(TypeGenerateStage, payload, opts...), nil
}

// NewRenderTask builds the task that renders the final video.
func NewRenderTask(projectID string, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(StagePayload{ProjectID: projectID, Stage: model.StageVideo})
	if err != nil {
		return nil, fmt.Errorf("marshal payload failed: %w", err)
	}
	return asynq.NewTask(TypeRenderVideo, payload, opts...), nil
}

// Queue enqueues stage work. Tasks are never retried: a failed stage leaves
// the project in a state the user has to act on.
type Queue struct {
	client    *asynq.Client
	timeout   time.Duration
	retention time.Duration
}

// NewQueue wraps a client owned by cloud.ServiceClients.
func NewQueue(client *asynq.Client, cfg cloud.Queue) *Queue {
	return &Queue{
		client:    client,
		timeout:   time.Duration(cfg.TimeoutMinutes) * time.Minute,
		retention: time.Duration(cfg.RetentionHours) * time.Hour,
	}
}

func (q *Queue) options() []asynq.Option {
	opts := []asynq.Option{asynq.MaxRetry(0)}
	if q.timeout > 0 {
		opts = append(opts, asynq.Timeout(q.timeout))
	}
	if q.retention > 0 {
		opts = append(opts, asynq.Retention(q.retention))
	}
	return opts
}

// EnqueueGenerate schedules a stage generation and returns the task id.
func (q *Queue) EnqueueGenerate(ctx context.Context, projectID string, stage model.Stage) (string, error) {
	task, err := NewGenerateTask(projectID, stage, q.options()...)
	if err != nil {
		return "", err
	}
	return q.enqueue(ctx, task, projectID)
}

// EnqueueRender schedules a render and returns the task id.
func (q *Queue) EnqueueRender(ctx context.Context, projectID string) (string, error) {
	task, err := NewRenderTask(projectID, q.options()...)
	if err != nil {
		return "", err
	}
	return q.enqueue(ctx, task, projectID)
}

func (q *Queue) enqueue(ctx context.Context, task *asynq.Task, projectID string) (string, error) {
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue failed: %w", err)
	}
	slog.InfoContext(ctx, "task enqueued", "type", task.Type(), "task_id", info.ID, "project_id", projectID)
	return info.ID, nil
}
