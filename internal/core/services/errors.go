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
	"errors"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/media"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/store"
)

var (
	ErrInvalidTransition = errors.New("operation not allowed in the current project status")
	ErrRenderInProgress  = errors.New("a render is already in progress for this project")
	ErrNoScenes          = media.ErrNoScenes
	ErrNotFound          = store.ErrNotFound
	ErrStatusConflict    = store.ErrStatusConflict
	ErrInvalidInput      = model.ErrInvalidInput
)

// ErrorClass groups provider failures by what the user can do about them.
type ErrorClass string

const (
	ClassContentPolicy ErrorClass = "content_policy"
	ClassAuthQuota     ErrorClass = "auth_quota"
	ClassGeneric       ErrorClass = "generic"
)

var contentPolicyMarkers = []string{
	"safety", "blocked", "policy", "prohibited", "responsible ai", "violat", "moderation",
}

var authQuotaMarkers = []string{
	"quota", "rate limit", "429", "resource_exhausted", "resource exhausted",
	"unauthorized", "401", "403", "permission denied", "api key",
}

// Classify inspects the error text. Content policy wins over quota when both
// appear, since retrying a blocked prompt later never helps.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Class != "" {
		return pe.Class
	}
	msg := strings.ToLower(err.Error())
	for _, m := range contentPolicyMarkers {
		if strings.Contains(msg, m) {
			return ClassContentPolicy
		}
	}
	for _, m := range authQuotaMarkers {
		if strings.Contains(msg, m) {
			return ClassAuthQuota
		}
	}
	return ClassGeneric
}

func UserMessage(class ErrorClass) string {
	switch class {
	case ClassContentPolicy:
		return "The request was blocked by the provider's content policy. Rephrase the topic or the scene prompts and try again."
	case ClassAuthQuota:
		return "The provider rejected the request because of credentials or quota. Check the API key and usage limits, then retry."
	default:
		return "The generation step failed. Try again; if it keeps failing, check the service logs."
	}
}

// ProviderError is a classified generator failure.
type ProviderError struct {
	Stage model.Stage
	Class ErrorClass
	Err   error
}

func NewProviderError(stage model.Stage, err error) *ProviderError {
	return &ProviderError{Stage: stage, Class: Classify(err), Err: err}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s generation failed (%s): %v", e.Stage, e.Class, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) UserMessage() string {
	return UserMessage(e.Class)
}
