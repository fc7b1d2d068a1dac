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

package model

import "time"

// RenderRecord is one row of the render ledger table.
type RenderRecord struct {
	ProjectID  string    `json:"project_id" bigquery:"project_id"`
	VideoURL   string    `json:"video_url" bigquery:"video_url"`
	Duration   float64   `json:"duration" bigquery:"duration"`
	FileSize   int64     `json:"file_size" bigquery:"file_size"`
	SceneCount int       `json:"scene_count" bigquery:"scene_count"`
	Cost       float64   `json:"cost" bigquery:"cost"`
	RenderedAt time.Time `json:"rendered_at" bigquery:"rendered_at"`
}

// CostSummary aggregates the ledger for one project.
type CostSummary struct {
	ProjectID string  `json:"project_id" bigquery:"project_id"`
	Renders   int64   `json:"renders" bigquery:"renders"`
	TotalCost float64 `json:"total_cost" bigquery:"total_cost"`
	Seconds   float64 `json:"seconds" bigquery:"seconds"`
}
