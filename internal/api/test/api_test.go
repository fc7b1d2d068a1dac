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

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/api"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/services"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/store"
	test "github.com/jaycherian/gcp-go-shorts-studio/internal/testutil"
)

// signingStore only implements SignURL; the handlers never read or write
// blobs themselves.
type signingStore struct {
	cloud.BlobStore
}

func (signingStore) SignURL(_ context.Context, objectURL string, _ time.Duration) (string, error) {
	return "https://signed.example" + strings.TrimPrefix(objectURL, "file://"), nil
}

type fakeQueue struct {
	generated []model.Stage
	renders   int
}

func (q *fakeQueue) EnqueueGenerate(_ context.Context, _ string, stage model.Stage) (string, error) {
	q.generated = append(q.generated, stage)
	return "job-generate", nil
}

func (q *fakeQueue) EnqueueRender(_ context.Context, _ string) (string, error) {
	q.renders++
	return "job-render", nil
}

type fakeLedger struct{}

func (fakeLedger) ProjectCost(_ context.Context, id string) (*model.CostSummary, error) {
	return &model.CostSummary{ProjectID: id, Renders: 2, TotalCost: 1.5, Seconds: 60}, nil
}

func (fakeLedger) RecentRenders(_ context.Context, id string, _ int) ([]*model.RenderRecord, error) {
	return []*model.RenderRecord{{ProjectID: id, VideoURL: "gs://b/v.mp4", Cost: 0.75}}, nil
}

type fixture struct {
	store  *store.MemoryStore
	text   *test.FakeText
	server *api.Server
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{store: store.NewMemoryStore(), text: &test.FakeText{}}
	hub := api.NewStatusHub()
	assets := services.NewAssetService(&test.FakeImages{}, nil, services.CostModel{PerImage: 0.04}, services.AssetOptions{})
	narration := services.NewNarrationService(&test.FakeSpeaker{Duration: 30}, 0)
	stages := services.NewStageService(f.store, f.text, assets, narration, &test.FakeRenderer{}, hub, "1080x1920")
	f.server = &api.Server{Stages: stages, Blobs: signingStore{}, Hub: hub}
	f.router = api.NewRouter(f.server, "shorts-studio-test")
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateAndReadProject(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"topic": "Tides", "target_duration": 60})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.Project](t, w)
	assert.Equal(t, model.StatusDraft, created.Status)
	assert.Equal(t, "en", created.Language)

	w = f.do(t, http.MethodGet, "/api/v1/projects/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[model.Project](t, w).ID)

	w = f.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Project](t, w), 1)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)
	p := test.SeedProject(t, f.store, model.StatusDraft)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{"bad duration", http.MethodPost, "/api/v1/projects", map[string]any{"topic": "x", "target_duration": 45}, http.StatusBadRequest},
		{"unknown project", http.MethodGet, "/api/v1/projects/nope", nil, http.StatusNotFound},
		{"unknown stage", http.MethodPost, "/api/v1/projects/" + p.ID + "/generate/music", nil, http.StatusBadRequest},
		{"skipped checkpoint", http.MethodPost, "/api/v1/projects/" + p.ID + "/generate/script", nil, http.StatusConflict},
		{"render too early", http.MethodPost, "/api/v1/projects/" + p.ID + "/render", nil, http.StatusConflict},
		{"missing decision", http.MethodPost, "/api/v1/projects/" + p.ID + "/approve/script", map[string]any{}, http.StatusBadRequest},
		{"no artifact yet", http.MethodGet, "/api/v1/projects/" + p.ID + "/artifacts/script", nil, http.StatusNotFound},
		{"ledger disabled", http.MethodGet, "/api/v1/projects/" + p.ID + "/cost", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
		})
	}
}

func TestProviderFailureReturnsRemediation(t *testing.T) {
	f := newFixture(t)
	f.text.Err = errors.New("Error 429: quota exceeded")
	p := test.SeedProject(t, f.store, model.StatusDraft)

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/generate/analysis", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, string(services.ClassAuthQuota), body["error_class"])
	assert.Equal(t, services.UserMessage(services.ClassAuthQuota), body["error"])
	assert.NotContains(t, body["error"], "429")

	w = f.do(t, http.MethodGet, "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, model.StatusDraft, decode[model.Project](t, w).Status)
}

func TestApproveAndReject(t *testing.T) {
	f := newFixture(t)
	p := test.SeedProject(t, f.store, model.StatusScriptReview)

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/approve/script",
		map[string]any{"approved": false, "revisions": map[string]any{"notes": "shorter"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.StatusAnalyzed, decode[model.Project](t, w).Status)

	w = f.do(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/generate/script", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.StatusScriptReview, decode[model.Project](t, w).Status)
	assert.Equal(t, []string{"shorter"}, f.text.Notes)

	w = f.do(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/approve/script", map[string]any{"approved": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.StatusScriptApproved, decode[model.Project](t, w).Status)

	w = f.do(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/history/script", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, len(decode[[]store.Version](t, w)), 2)
}

func TestAssetArtifactURLsAreSigned(t *testing.T) {
	f := newFixture(t)
	p := test.SeedProject(t, f.store, model.StatusAssetsReview)

	w := f.do(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/artifacts/assets", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Version  int            `json:"version"`
		Artifact model.AssetSet `json:"artifact"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Artifact.Assets)
	for _, a := range body.Artifact.Assets {
		assert.Equal(t, "https://signed.example/assets/scene.png", a.URL)
	}
}

func TestSlowStagesAreQueued(t *testing.T) {
	f := newFixture(t)
	queue := &fakeQueue{}
	f.server.Queue = queue
	p := test.SeedProject(t, f.store, model.StatusAssetsApproved)

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/render", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "job-render", decode[map[string]string](t, w)["job_id"])

	w = f.do(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/generate/assets", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []model.Stage{model.StageAssets}, queue.generated)
	assert.Equal(t, 1, queue.renders)

	// Text stages stay synchronous even with a queue.
	w = f.do(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/generate/analysis", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestQueuedStagesCheckStatusBeforeEnqueueing(t *testing.T) {
	f := newFixture(t)
	queue := &fakeQueue{}
	f.server.Queue = queue

	draft := test.SeedProject(t, f.store, model.StatusDraft)
	w := f.do(t, http.MethodPost, "/api/v1/projects/"+draft.ID+"/render", nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	analyzed := test.SeedProject(t, f.store, model.StatusAnalyzed)
	w = f.do(t, http.MethodPost, "/api/v1/projects/"+analyzed.ID+"/generate/assets", nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/v1/projects/missing/render", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Empty(t, queue.generated)
	assert.Equal(t, 0, queue.renders)
}

func TestCostAndStats(t *testing.T) {
	f := newFixture(t)
	f.server.Ledger = fakeLedger{}
	p := test.SeedProject(t, f.store, model.StatusReady)

	w := f.do(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/cost", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_cost":1.5`)

	w = f.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[api.Stats](t, w)
	assert.Equal(t, 1, stats.Projects)
	assert.Equal(t, 1, stats.ByStatus[model.StatusReady])
}

func TestStatusEventsOverWebsocket(t *testing.T) {
	f := newFixture(t)
	p := test.SeedProject(t, f.store, model.StatusDraft)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/projects/" + p.ID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.server.Hub.Subscribers(p.ID) == 1 }, time.Second, 5*time.Millisecond)

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/generate/analysis", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev cloud.StatusEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, p.ID, ev.ProjectID)
	assert.Equal(t, string(model.StatusAnalyzed), ev.Status)
}

func TestHubDropsUnsubscribed(t *testing.T) {
	hub := api.NewStatusHub()
	events, unsubscribe := hub.Subscribe("p-1")
	hub.Notify(context.Background(), cloud.StatusEvent{ProjectID: "p-1", Status: "analyzed"})
	hub.Notify(context.Background(), cloud.StatusEvent{ProjectID: "p-2", Status: "analyzed"})

	ev := <-events
	assert.Equal(t, "p-1", ev.ProjectID)
	assert.Empty(t, events)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.Subscribers("p-1"))
	_, open := <-events
	assert.False(t, open)
}
