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

package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
	test "github.com/jaycherian/gcp-go-shorts-studio/internal/testutil"
	"github.com/zeebo/assert"
)

func TestClassify(t *testing.T) {
	cases := map[string]services.ErrorClass{
		"prompt blocked by safety filters: SAFETY":           services.ClassContentPolicy,
		"The prompt violates our usage guidelines":           services.ClassContentPolicy,
		"request rejected by the moderation endpoint":        services.ClassContentPolicy,
		"rpc error: code = ResourceExhausted desc = Quota":   services.ClassAuthQuota,
		"Error 429: Too Many Requests":                       services.ClassAuthQuota,
		"API key not valid. Please pass a valid API key.":    services.ClassAuthQuota,
		"googleapi: Error 403: Permission denied on project": services.ClassAuthQuota,
		"unexpected EOF":                                     services.ClassGeneric,
	}
	for msg, want := range cases {
		assert.Equal(t, services.Classify(errors.New(msg)), want)
	}
	assert.Equal(t, services.Classify(nil), services.ErrorClass(""))
}

func TestClassifyKeepsProviderClassThroughWrapping(t *testing.T) {
	pe := &services.ProviderError{Stage: model.StageScript, Class: services.ClassAuthQuota, Err: errors.New("boom")}
	wrapped := fmt.Errorf("stage: %w", pe)
	assert.Equal(t, services.Classify(wrapped), services.ClassAuthQuota)
	assert.That(t, strings.Contains(pe.Error(), "auth_quota"))
	assert.That(t, pe.UserMessage() != services.UserMessage(services.ClassGeneric))
}

func TestNarrationIsOneCallWithSceneSubtitles(t *testing.T) {
	speaker := &test.FakeSpeaker{}
	svc := services.NewNarrationService(speaker, 0.001)
	p, err := model.NewProject("topic", "en", 30, false)
	assert.NoError(t, err)

	n, err := svc.Narrate(context.Background(), p, model.GetExampleScript())
	assert.NoError(t, err)
	assert.Equal(t, len(speaker.Texts), 1)
	assert.Equal(t, len(n.Transcript.Words), len(strings.Fields(speaker.Texts[0])))
	assert.Equal(t, n.SRT, "1\n00:00:00,000 --> 00:00:15,000\nEvery night for forty years, Elias lit the lamp.\n\n"+
		"2\n00:00:15,000 --> 00:00:30,000\nTonight, something in the fog answered back.\n")
	assert.That(t, n.Cost > 0)
}
