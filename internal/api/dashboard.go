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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// Stats summarises the most recent projects for the studio dashboard.
type Stats struct {
	Projects int                  `json:"projects"`
	ByStatus map[model.Status]int `json:"by_status"`
	Premium  int                  `json:"premium"`
}

// Dashboard sets up the statistics routes.
func Dashboard(r *gin.RouterGroup, s *Server) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			ps, err := s.Stages.ListProjects(c.Request.Context(), 1000)
			if err != nil {
				abort(c, err)
				return
			}
			out := Stats{ByStatus: make(map[model.Status]int)}
			for _, p := range ps {
				out.Projects++
				out.ByStatus[p.Status]++
				if p.Premium {
					out.Premium++
				}
			}
			c.JSON(http.StatusOK, out)
		})
	}
}
