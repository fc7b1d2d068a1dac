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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
)

// statusOf maps domain errors onto HTTP status codes.
func statusOf(err error) int {
	var pe *services.ProviderError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrStatusConflict),
		errors.Is(err, services.ErrRenderInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoScenes):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// abort writes the error body. Provider failures carry the remediation text
// for their class instead of the raw provider message.
func abort(c *gin.Context, err error) {
	code := statusOf(err)
	body := gin.H{"error": err.Error()}
	var pe *services.ProviderError
	if errors.As(err, &pe) {
		body = gin.H{"error": pe.UserMessage(), "error_class": pe.Class, "stage": pe.Stage}
	}
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "status", code, "error", err)
	}
	c.AbortWithStatusJSON(code, body)
}
