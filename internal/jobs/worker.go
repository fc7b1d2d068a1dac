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

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// Runner is the part of the stage service the worker drives.
type Runner interface {
	Generate(ctx context.Context, id string, stage model.Stage) (*model.Project, error)
	Render(ctx context.Context, id string) (*model.Project, error)
}

// NewMux routes both task types to the runner.
func NewMux(runner Runner) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeGenerateStage, func(ctx context.Context, t *asynq.Task) error {
		p, err := decode(t)
		if err != nil {
			return err
		}
		if p.Stage.Index() < 0 {
			return fmt.Errorf("unknown stage %q: %w", p.Stage, asynq.SkipRetry)
		}
		_, err = runner.Generate(ctx, p.ProjectID, p.Stage)
		return finish(ctx, t, p, err)
	})
	mux.HandleFunc(TypeRenderVideo, func(ctx context.Context, t *asynq.Task) error {
		p, err := decode(t)
		if err != nil {
			return err
		}
		_, err = runner.Render(ctx, p.ProjectID)
		return finish(ctx, t, p, err)
	})
	return mux
}

func decode(t *asynq.Task) (StagePayload, error) {
	var p StagePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decoding %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.ProjectID == "" {
		return p, fmt.Errorf("%s payload has no project_id: %w", t.Type(), asynq.SkipRetry)
	}
	return p, nil
}

// finish logs the outcome. Stage failures are already recorded on the
// project, so the task is never retried.
func finish(ctx context.Context, t *asynq.Task, p StagePayload, err error) error {
	if err == nil {
		slog.InfoContext(ctx, "task completed", "type", t.Type(), "project_id", p.ProjectID, "stage", p.Stage)
		return nil
	}
	if errors.Is(err, asynq.SkipRetry) {
		return err
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

// NewServer builds the worker. It logs through slog and reports every
// failed task.
func NewServer(cfg cloud.Queue) *asynq.Server {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return asynq.NewServer(cloud.RedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Logger:      &slogLogger{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			slog.ErrorContext(ctx, "task failed", "type", t.Type(), "payload", string(t.Payload()), "error", err)
		}),
	})
}

// slogLogger adapts asynq's logger interface to the default slog logger.
type slogLogger struct{}

func (slogLogger) Debug(args ...any) { slog.Debug(fmt.Sprint(args...), "component", "asynq") }
func (slogLogger) Info(args ...any)  { slog.Info(fmt.Sprint(args...), "component", "asynq") }
func (slogLogger) Warn(args ...any)  { slog.Warn(fmt.Sprint(args...), "component", "asynq") }
func (slogLogger) Error(args ...any) { slog.Error(fmt.Sprint(args...), "component", "asynq") }
func (slogLogger) Fatal(args ...any) {
	slog.Error(fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
