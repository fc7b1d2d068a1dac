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
	"errors"
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type projectRecord struct {
	ID             string `gorm:"primaryKey;size:36"`
	Topic          string `gorm:"type:text"`
	Language       string `gorm:"size:16"`
	TargetDuration int
	Premium        bool
	Status         string         `gorm:"size:32;index"`
	RevisionNotes  datatypes.JSON `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"index"`
	UpdatedAt      time.Time
}

func (projectRecord) TableName() string { return "projects" }

type artifactVersion struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"`
	ProjectID string         `gorm:"size:36;uniqueIndex:idx_artifact_version"`
	Stage     string         `gorm:"size:16;uniqueIndex:idx_artifact_version"`
	Version   int            `gorm:"uniqueIndex:idx_artifact_version"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
}

func (artifactVersion) TableName() string { return "artifact_versions" }

type artifactHead struct {
	ProjectID string `gorm:"primaryKey;size:36"`
	Stage     string `gorm:"primaryKey;size:16"`
	Version   int
	UpdatedAt time.Time
}

func (artifactHead) TableName() string { return "artifact_heads" }

// GormStore persists projects and artifacts through gorm. It runs on any
// dialect gorm supports; MySQL and Postgres are used in deployments.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the schema and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&projectRecord{}, &artifactVersion{}, &artifactHead{}); err != nil {
		return nil, fmt.Errorf("migrating artifact store: %w", err)
	}
	return &GormStore{db: db}, nil
}

func toRecord(p *model.Project) (*projectRecord, error) {
	notes, err := json.Marshal(p.RevisionNotes)
	if err != nil {
		return nil, err
	}
	return &projectRecord{
		ID:             p.ID,
		Topic:          p.Topic,
		Language:       p.Language,
		TargetDuration: p.TargetDuration,
		Premium:        p.Premium,
		Status:         string(p.Status),
		RevisionNotes:  datatypes.JSON(notes),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}, nil
}

func (r *projectRecord) toModel() (*model.Project, error) {
	p := &model.Project{
		ID:             r.ID,
		Topic:          r.Topic,
		Language:       r.Language,
		TargetDuration: r.TargetDuration,
		Premium:        r.Premium,
		Status:         model.Status(r.Status),
		RevisionNotes:  make(map[model.Stage]string),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if len(r.RevisionNotes) > 0 {
		if err := json.Unmarshal(r.RevisionNotes, &p.RevisionNotes); err != nil {
			return nil, fmt.Errorf("decoding revision notes: %w", err)
		}
	}
	return p, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return err
}

func (s *GormStore) CreateProject(ctx context.Context, p *model.Project) error {
	rec, err := toRecord(p)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *GormStore) loadProject(tx *gorm.DB, id string) (*projectRecord, error) {
	var rec projectRecord
	if err := tx.First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "project %s", id)
	}
	return &rec, nil
}

func (s *GormStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	rec, err := s.loadProject(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return rec.toModel()
}

func (s *GormStore) ListProjects(ctx context.Context, limit int) ([]*model.Project, error) {
	var recs []projectRecord
	q := s.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Project, 0, len(recs))
	for i := range recs {
		p, err := recs[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// swapStatus is the compare-and-set on the status column.
func swapStatus(tx *gorm.DB, id string, from, to model.Status) error {
	res := tx.Model(&projectRecord{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := tx.Model(&projectRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("%w: project %s is no longer %s", ErrStatusConflict, id, from)
}

func (s *GormStore) UpdateStatus(ctx context.Context, id string, from, to model.Status) error {
	return swapStatus(s.db.WithContext(ctx), id, from, to)
}

func (s *GormStore) SetRevisionNotes(ctx context.Context, id string, stage model.Stage, notes string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return setNotes(tx, s, id, stage, notes)
	})
}

func setNotes(tx *gorm.DB, s *GormStore, id string, stage model.Stage, notes string) error {
	rec, err := s.loadProject(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
	if err != nil {
		return err
	}
	p, err := rec.toModel()
	if err != nil {
		return err
	}
	if notes == "" {
		delete(p.RevisionNotes, stage)
	} else {
		p.RevisionNotes[stage] = notes
	}
	data, err := json.Marshal(p.RevisionNotes)
	if err != nil {
		return err
	}
	return tx.Model(&projectRecord{}).Where("id = ?", id).
		Update("revision_notes", datatypes.JSON(data)).Error
}

// appendVersion writes the next version of a stage and repoints its head.
func appendVersion(tx *gorm.DB, id string, stage model.Stage, data []byte) (int, error) {
	var last int
	if err := tx.Model(&artifactVersion{}).
		Where("project_id = ? AND stage = ?", id, string(stage)).
		Select("COALESCE(MAX(version), 0)").
		Scan(&last).Error; err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	v := &artifactVersion{
		ProjectID: id,
		Stage:     string(stage),
		Version:   last + 1,
		Payload:   datatypes.JSON(data),
		CreatedAt: now,
	}
	if err := tx.Create(v).Error; err != nil {
		return 0, err
	}
	head := &artifactHead{ProjectID: id, Stage: string(stage), Version: v.Version, UpdatedAt: now}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "stage"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "updated_at"}),
	}).Create(head).Error
	if err != nil {
		return 0, err
	}
	return v.Version, nil
}

func (s *GormStore) PutArtifact(ctx context.Context, id string, stage model.Stage, payload any) (int, error) {
	data, err := encode(payload)
	if err != nil {
		return 0, err
	}
	var version int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadProject(tx, id); err != nil {
			return err
		}
		version, err = appendVersion(tx, id, stage, data)
		return err
	})
	return version, err
}

func (s *GormStore) CommitArtifact(ctx context.Context, c Commit) (int, error) {
	data, err := encode(c.Payload)
	if err != nil {
		return 0, err
	}
	var version int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := swapStatus(tx, c.ProjectID, c.From, c.To); err != nil {
			return err
		}
		if c.Invalidate {
			if later := laterStages(c.Stage); len(later) > 0 {
				if err := clearHeads(tx, c.ProjectID, later); err != nil {
					return err
				}
			}
		}
		if version, err = appendVersion(tx, c.ProjectID, c.Stage, data); err != nil {
			return err
		}
		return setNotes(tx, s, c.ProjectID, c.Stage, "")
	})
	return version, err
}

func (s *GormStore) GetArtifact(ctx context.Context, id string, stage model.Stage, out any) (int, error) {
	var v artifactVersion
	err := s.db.WithContext(ctx).
		Joins("JOIN artifact_heads h ON h.project_id = artifact_versions.project_id AND h.stage = artifact_versions.stage AND h.version = artifact_versions.version").
		Where("artifact_versions.project_id = ? AND artifact_versions.stage = ?", id, string(stage)).
		First(&v).Error
	if err != nil {
		return 0, notFound(err, "%s artifact of project %s", stage, id)
	}
	if err := json.Unmarshal(v.Payload, out); err != nil {
		return 0, fmt.Errorf("decoding %s artifact: %w", stage, err)
	}
	return v.Version, nil
}

func clearHeads(tx *gorm.DB, id string, stages []model.Stage) error {
	return tx.Where("project_id = ? AND stage IN ?", id, stageNames(stages)).
		Delete(&artifactHead{}).Error
}

func (s *GormStore) History(ctx context.Context, id string, stage model.Stage) ([]Version, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.loadProject(db, id); err != nil {
		return nil, err
	}
	var versions []artifactVersion
	if err := db.Where("project_id = ? AND stage = ?", id, string(stage)).
		Order("version asc").Find(&versions).Error; err != nil {
		return nil, err
	}
	var head artifactHead
	current := 0
	err := db.Where("project_id = ? AND stage = ?", id, string(stage)).Take(&head).Error
	switch {
	case err == nil:
		current = head.Version
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		out = append(out, Version{
			Stage:     stage,
			Number:    v.Version,
			Current:   v.Version == current,
			CreatedAt: v.CreatedAt,
			Payload:   json.RawMessage(v.Payload),
		})
	}
	return out, nil
}
