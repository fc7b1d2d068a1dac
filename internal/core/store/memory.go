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

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

type memVersion struct {
	number    int
	createdAt time.Time
	payload   []byte
}

type memProject struct {
	project  model.Project
	versions map[model.Stage][]memVersion
	heads    map[model.Stage]int
}

// MemoryStore keeps everything in process. It backs tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*memProject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*memProject)}
}

func cloneProject(p *model.Project) *model.Project {
	out := *p
	out.RevisionNotes = make(map[model.Stage]string, len(p.RevisionNotes))
	for k, v := range p.RevisionNotes {
		out.RevisionNotes[k] = v
	}
	return &out
}

func (m *MemoryStore) get(id string) (*memProject, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (m *MemoryStore) CreateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; ok {
		return fmt.Errorf("project %s already exists", p.ID)
	}
	m.projects[p.ID] = &memProject{
		project:  *cloneProject(p),
		versions: make(map[model.Stage][]memVersion),
		heads:    make(map[model.Stage]int),
	}
	return nil
}

func (m *MemoryStore) GetProject(_ context.Context, id string) (*model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return cloneProject(&p.project), nil
}

func (m *MemoryStore) ListProjects(_ context.Context, limit int) ([]*model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, cloneProject(&p.project))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id string, from, to model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.get(id)
	if err != nil {
		return err
	}
	return p.swapStatus(from, to)
}

func (p *memProject) swapStatus(from, to model.Status) error {
	if p.project.Status != from {
		return fmt.Errorf("%w: expected %s, found %s", ErrStatusConflict, from, p.project.Status)
	}
	p.project.Status = to
	p.project.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) SetRevisionNotes(_ context.Context, id string, stage model.Stage, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.get(id)
	if err != nil {
		return err
	}
	if notes == "" {
		delete(p.project.RevisionNotes, stage)
	} else {
		p.project.RevisionNotes[stage] = notes
	}
	return nil
}

func (m *MemoryStore) PutArtifact(_ context.Context, id string, stage model.Stage, payload any) (int, error) {
	data, err := encode(payload)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.get(id)
	if err != nil {
		return 0, err
	}
	return p.append(stage, data), nil
}

func (p *memProject) append(stage model.Stage, data []byte) int {
	n := len(p.versions[stage]) + 1
	p.versions[stage] = append(p.versions[stage], memVersion{number: n, createdAt: time.Now().UTC(), payload: data})
	p.heads[stage] = n
	return n
}

func (m *MemoryStore) CommitArtifact(_ context.Context, c Commit) (int, error) {
	data, err := encode(c.Payload)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.get(c.ProjectID)
	if err != nil {
		return 0, err
	}
	if p.project.Status != c.From {
		return 0, fmt.Errorf("%w: expected %s, found %s", ErrStatusConflict, c.From, p.project.Status)
	}
	if c.Invalidate {
		for _, s := range laterStages(c.Stage) {
			delete(p.heads, s)
		}
	}
	n := p.append(c.Stage, data)
	delete(p.project.RevisionNotes, c.Stage)
	_ = p.swapStatus(c.From, c.To)
	return n, nil
}

func (m *MemoryStore) GetArtifact(_ context.Context, id string, stage model.Stage, out any) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, err := m.get(id)
	if err != nil {
		return 0, err
	}
	head, ok := p.heads[stage]
	if !ok {
		return 0, fmt.Errorf("%s artifact of project %s: %w", stage, id, ErrNotFound)
	}
	v := p.versions[stage][head-1]
	if err := json.Unmarshal(v.payload, out); err != nil {
		return 0, fmt.Errorf("decoding %s artifact: %w", stage, err)
	}
	return v.number, nil
}

func (m *MemoryStore) History(_ context.Context, id string, stage model.Stage) ([]Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, err := m.get(id)
	if err != nil {
		return nil, err
	}
	head := p.heads[stage]
	out := make([]Version, 0, len(p.versions[stage]))
	for _, v := range p.versions[stage] {
		out = append(out, Version{
			Stage:     stage,
			Number:    v.number,
			Current:   v.number == head,
			CreatedAt: v.createdAt,
			Payload:   json.RawMessage(v.payload),
		})
	}
	return out, nil
}
