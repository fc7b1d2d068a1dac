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
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	subscriberSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StatusHub pushes status events to websocket subscribers of a project. A
// subscriber that cannot keep up loses events rather than stalling the
// stage that produced them.
type StatusHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan cloud.StatusEvent]struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{subscribers: make(map[string]map[chan cloud.StatusEvent]struct{})}
}

func (h *StatusHub) Notify(_ context.Context, ev cloud.StatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers[ev.ProjectID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a listener for one project. The returned function
// unregisters it and closes the channel.
func (h *StatusHub) Subscribe(projectID string) (<-chan cloud.StatusEvent, func()) {
	ch := make(chan cloud.StatusEvent, subscriberSize)
	h.mu.Lock()
	if h.subscribers[projectID] == nil {
		h.subscribers[projectID] = make(map[chan cloud.StatusEvent]struct{})
	}
	h.subscribers[projectID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[projectID], ch)
			if len(h.subscribers[projectID]) == 0 {
				delete(h.subscribers, projectID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports how many listeners a project has.
func (h *StatusHub) Subscribers(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[projectID])
}

// ServeEvents upgrades the request and streams the project's events until
// the client goes away.
func (h *StatusHub) ServeEvents(c *gin.Context, projectID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "websocket upgrade failed", "project_id", projectID, "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.Subscribe(projectID)
	defer unsubscribe()

	// The read loop only exists to notice the close frame and pongs.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
