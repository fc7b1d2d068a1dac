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

package services

const (
	// QryProjectCost totals the render ledger for one project.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the render table.
	// The project id is bound as the @project_id query parameter.
	QryProjectCost = "SELECT project_id, COUNT(*) AS renders, SUM(cost) AS total_cost, SUM(duration) AS seconds FROM `%s` WHERE project_id = @project_id GROUP BY project_id"

	// QryRecentRenders lists the latest renders of a project, newest first.
	QryRecentRenders = "SELECT project_id, video_url, duration, file_size, scene_count, cost, rendered_at FROM `%s` WHERE project_id = @project_id ORDER BY rendered_at DESC LIMIT %d"
)
