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

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

type createProjectRequest struct {
	Topic          string `json:"topic"`
	Language       string `json:"language"`
	TargetDuration int    `json:"target_duration"`
	Premium        bool   `json:"premium"`
}

type approveRequest struct {
	Approved  *bool            `json:"approved"`
	Revisions *model.Revisions `json:"revisions,omitempty"`
}

// jobAccepted is returned when a stage was handed to the worker.
type jobAccepted struct {
	ProjectID string      `json:"project_id"`
	Stage     model.Stage `json:"stage"`
	JobID     string      `json:"job_id"`
}

// ProjectRouter sets up the project and stage routes.
func ProjectRouter(r *gin.RouterGroup, s *Server) {
	projects := r.Group("/projects")
	{
		projects.POST("", func(c *gin.Context) {
			var req createProjectRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if req.Language == "" {
				req.Language = "en"
			}
			p, err := s.Stages.CreateProject(c.Request.Context(), req.Topic, req.Language, req.TargetDuration, req.Premium)
			if err != nil {
				abort(c, err)
				return
			}
			c.JSON(http.StatusCreated, p)
		})

		projects.GET("", func(c *gin.Context) {
			limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
			if err != nil || limit <= 0 {
				limit = 50
			}
			out, err := s.Stages.ListProjects(c.Request.Context(), limit)
			if err != nil {
				abort(c, err)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		projects.GET("/:id", func(c *gin.Context) {
			p, err := s.Stages.GetProject(c.Request.Context(), c.Param("id"))
			if err != nil {
				abort(c, err)
				return
			}
			c.JSON(http.StatusOK, p)
		})

		projects.POST("/:id/generate/:stage", func(c *gin.Context) {
			stage, ok := stageParam(c)
			if !ok {
				return
			}
			s.runStage(c, stage)
		})

		projects.POST("/:id/render", func(c *gin.Context) {
			s.runStage(c, model.StageVideo)
		})

		projects.POST("/:id/approve/:stage", func(c *gin.Context) {
			stage, ok := stageParam(c)
			if !ok {
				return
			}
			var req approveRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if req.Approved == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "approved is required"})
				return
			}
			p, err := s.Stages.Approve(c.Request.Context(), c.Param("id"), stage, *req.Approved, req.Revisions)
			if err != nil {
				abort(c, err)
				return
			}
			c.JSON(http.StatusOK, p)
		})

		projects.GET("/:id/artifacts/:stage", func(c *gin.Context) {
			stage, ok := stageParam(c)
			if !ok {
				return
			}
			ctx := c.Request.Context()
			v, version, err := s.Stages.Artifact(ctx, c.Param("id"), stage)
			if err != nil {
				abort(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"stage": stage, "version": version, "artifact": s.signArtifact(ctx, v)})
		})

		projects.GET("/:id/history/:stage", func(c *gin.Context) {
			stage, ok := stageParam(c)
			if !ok {
				return
			}
			out, err := s.Stages.History(c.Request.Context(), c.Param("id"), stage)
			if err != nil {
				abort(c, err)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		projects.GET("/:id/events", func(c *gin.Context) {
			if _, err := s.Stages.GetProject(c.Request.Context(), c.Param("id")); err != nil {
				abort(c, err)
				return
			}
			s.Hub.ServeEvents(c, c.Param("id"))
		})

		projects.GET("/:id/cost", func(c *gin.Context) {
			if s.Ledger == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "render ledger is not enabled"})
				return
			}
			ctx := c.Request.Context()
			summary, err := s.Ledger.ProjectCost(ctx, c.Param("id"))
			if err != nil {
				abort(c, err)
				return
			}
			renders, err := s.Ledger.RecentRenders(ctx, c.Param("id"), 10)
			if err != nil {
				abort(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"summary": summary, "renders": renders})
		})
	}
}

func stageParam(c *gin.Context) (model.Stage, bool) {
	stage, err := model.ParseStage(c.Param("stage"))
	if err != nil {
		abort(c, err)
		return "", false
	}
	return stage, true
}

// runStage executes a stage. Assets and the render are queued when a worker
// is configured; the text stages always run inside the request.
func (s *Server) runStage(c *gin.Context, stage model.Stage) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if s.Queue != nil && (stage == model.StageAssets || stage == model.StageVideo) {
		if err := s.Stages.CanRun(ctx, id, stage); err != nil {
			abort(c, err)
			return
		}
		var (
			jobID string
			err   error
		)
		if stage == model.StageVideo {
			jobID, err = s.Queue.EnqueueRender(ctx, id)
		} else {
			jobID, err = s.Queue.EnqueueGenerate(ctx, id, stage)
		}
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusAccepted, jobAccepted{ProjectID: id, Stage: stage, JobID: jobID})
		return
	}

	var (
		p   *model.Project
		err error
	)
	if stage == model.StageVideo {
		p, err = s.Stages.Render(ctx, id)
	} else {
		p, err = s.Stages.Generate(ctx, id, stage)
	}
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// signArtifact swaps durable media URLs for browser fetchable ones. A URL
// that cannot be signed is left as stored.
func (s *Server) signArtifact(ctx context.Context, v any) any {
	if s.Blobs == nil {
		return v
	}
	sign := func(u string) string {
		if u == "" {
			return u
		}
		out, err := s.Blobs.SignURL(ctx, u, s.ttl())
		if err != nil {
			return u
		}
		return out
	}
	switch a := v.(type) {
	case *model.AssetSet:
		out := *a
		out.Assets = make([]model.Asset, len(a.Assets))
		for i, asset := range a.Assets {
			asset.URL = sign(asset.URL)
			asset.StaticURL = sign(asset.StaticURL)
			out.Assets[i] = asset
		}
		return &out
	case *model.Video:
		out := *a
		out.URL = sign(a.URL)
		out.AudioURL = sign(a.AudioURL)
		out.SubtitlesURL = sign(a.SubtitlesURL)
		return &out
	}
	return v
}
