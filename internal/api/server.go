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

// Package api exposes the stage state machine over HTTP. Every route lives
// under /api/v1 and answers JSON.
package api

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
)

// Enqueuer hands slow stages to the background worker.
type Enqueuer interface {
	EnqueueGenerate(ctx context.Context, projectID string, stage model.Stage) (string, error)
	EnqueueRender(ctx context.Context, projectID string) (string, error)
}

// CostReader reads the render ledger.
type CostReader interface {
	ProjectCost(ctx context.Context, projectID string) (*model.CostSummary, error)
	RecentRenders(ctx context.Context, projectID string, limit int) ([]*model.RenderRecord, error)
}

// Server holds what the handlers need. Queue and Ledger are optional: with
// no queue every stage runs inside the request, with no ledger the cost
// routes answer 404.
type Server struct {
	Stages       *services.StageService
	Blobs        cloud.BlobStore
	Hub          *StatusHub
	Queue        Enqueuer
	Ledger       CostReader
	SignedURLTTL time.Duration
	LocalBlobDir string // served under /blobs when set
}

// NewRouter builds the gin engine with tracing and permissive CORS.
func NewRouter(s *Server, serviceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if s.LocalBlobDir != "" {
		r.Static("/blobs", s.LocalBlobDir)
	}

	apiV1 := r.Group("/api/v1")
	{
		ProjectRouter(apiV1, s)
		Dashboard(apiV1, s)
	}
	return r
}

func (s *Server) ttl() time.Duration {
	if s.SignedURLTTL <= 0 {
		return 15 * time.Minute
	}
	return s.SignedURLTTL
}
