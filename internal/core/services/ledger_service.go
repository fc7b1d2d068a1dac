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

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"google.golang.org/api/iterator"
)

// LedgerService reads the BigQuery render ledger written by the render
// workflow.
type LedgerService struct {
	BigqueryClient *bigquery.Client
	DatasetName    string
	RenderTable    string
}

// GetFQN returns the render table name in `project.dataset.table` form.
func (s *LedgerService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.RenderTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// ProjectCost totals every render recorded for a project.
//
// Inputs:
//   - ctx: The context for the request.
//   - projectID: The project to total.
//
// Outputs:
//   - *model.CostSummary: Zero counts when the project was never rendered.
//   - error: An error if the query or the row scan fails.
func (s *LedgerService) ProjectCost(ctx context.Context, projectID string) (*model.CostSummary, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryProjectCost, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "project_id", Value: projectID}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying render ledger: %w", err)
	}
	out := &model.CostSummary{ProjectID: projectID}
	err = itr.Next(out)
	if errors.Is(err, iterator.Done) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading render ledger: %w", err)
	}
	return out, nil
}

// RecentRenders lists up to limit renders of a project, newest first.
func (s *LedgerService) RecentRenders(ctx context.Context, projectID string, limit int) ([]*model.RenderRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	q := s.BigqueryClient.Query(fmt.Sprintf(QryRecentRenders, s.GetFQN(), limit))
	q.Parameters = []bigquery.QueryParameter{{Name: "project_id", Value: projectID}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying render ledger: %w", err)
	}
	out := make([]*model.RenderRecord, 0)
	for {
		var r model.RenderRecord
		err := itr.Next(&r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading render ledger: %w", err)
		}
		out = append(out, &r)
	}
	return out, nil
}
