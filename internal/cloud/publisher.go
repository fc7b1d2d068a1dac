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

package cloud

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
)

// StatusEvent is emitted whenever a project's status changes or a stage
// operation fails.
type StatusEvent struct {
	ProjectID string    `json:"project_id"`
	Stage     string    `json:"stage,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Class     string    `json:"error_class,omitempty"`
	At        time.Time `json:"at"`
}

// StatusPublisher writes status events to a Pub/Sub topic. Publishing is
// fire and forget; a failed publish is logged and never fails the stage.
type StatusPublisher struct {
	topic *pubsub.Topic
}

func NewStatusPublisher(client *pubsub.Client, topicID string) *StatusPublisher {
	return &StatusPublisher{topic: client.Topic(topicID)}
}

func (p *StatusPublisher) Notify(ctx context.Context, ev StatusEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.WarnContext(ctx, "failed to encode status event", "error", err)
		return
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"project_id": ev.ProjectID, "status": ev.Status},
	})
	go func() {
		if _, err := res.Get(context.Background()); err != nil {
			slog.Warn("failed to publish status event", "project_id", ev.ProjectID, "error", err)
		}
	}()
}

func (p *StatusPublisher) Stop() {
	p.topic.Stop()
}
