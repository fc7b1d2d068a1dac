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

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidInput is returned for any request that fails validation before
// the state machine is consulted.
var ErrInvalidInput = errors.New("invalid input")

// SupportedDurations is the fixed set of target video lengths in seconds.
var SupportedDurations = []int{30, 60, 90}

// Project is the root aggregate. It owns every stage artifact and carries the
// status cursor that the stage state machine advances.
type Project struct {
	ID             string           `json:"id"`
	Topic          string           `json:"topic"`
	Language       string           `json:"language"`
	TargetDuration int              `json:"target_duration"` // seconds, one of SupportedDurations
	Premium        bool             `json:"premium"`
	Status         Status           `json:"status"`
	RevisionNotes  map[Stage]string `json:"revision_notes,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewProject validates the request and returns a draft project.
func NewProject(topic string, language string, targetDuration int, premium bool) (*Project, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidInput)
	}
	if err := ValidateTargetDuration(targetDuration); err != nil {
		return nil, err
	}
	if language == "" {
		language = "en"
	}
	now := time.Now().UTC()
	return &Project{
		ID:             uuid.NewString(),
		Topic:          topic,
		Language:       language,
		TargetDuration: targetDuration,
		Premium:        premium,
		Status:         StatusDraft,
		RevisionNotes:  make(map[Stage]string),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ValidateTargetDuration rejects durations outside the supported set.
func ValidateTargetDuration(seconds int) error {
	for _, d := range SupportedDurations {
		if d == seconds {
			return nil
		}
	}
	return fmt.Errorf("%w: target duration %ds must be one of %v", ErrInvalidInput, seconds, SupportedDurations)
}
