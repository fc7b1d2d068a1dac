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
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// RenderLedger streams one row per finished render into BigQuery. The video
// already exists at this point, so an insert failure is logged and does not
// fail the render.
type RenderLedger struct {
	cor.BaseCommand
	client  *bigquery.Client
	dataset string
	table   string
}

func NewRenderLedger(name string, client *bigquery.Client, dataset string, table string) *RenderLedger {
	out := &RenderLedger{BaseCommand: *cor.NewBaseCommand(name), client: client, dataset: dataset, table: table}
	out.WithParams(ParamRenderOutput, ParamRenderOutput)
	return out
}

func (s *RenderLedger) Execute(context cor.Context) {
	output := context.Get(s.GetInputParam()).(*model.RenderOutput)
	req := context.Get(ParamRenderRequest).(*model.RenderRequest)

	record := NewRenderRecord(req, output, time.Now().UTC())
	i := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := i.Put(context.GetContext(), record); err != nil {
		slog.WarnContext(context.GetContext(), "failed to write render to ledger", "project_id", req.ProjectID, "error", err)
		return
	}
	slog.DebugContext(context.GetContext(), "render recorded in ledger", "project_id", req.ProjectID)
}

// NewRenderRecord is the ledger row for one render.
func NewRenderRecord(req *model.RenderRequest, output *model.RenderOutput, at time.Time) *model.RenderRecord {
	return &model.RenderRecord{
		ProjectID:  req.ProjectID,
		VideoURL:   output.VideoURL,
		Duration:   output.Duration,
		FileSize:   output.FileSize,
		SceneCount: len(req.Scenes),
		Cost:       req.Cost,
		RenderedAt: at,
	}
}
