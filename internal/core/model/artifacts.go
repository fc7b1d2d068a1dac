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

// Package model defines the core data structures for the application.
// This file holds the text artifacts produced by the first three stages:
// the story analysis, the narrated script and the storyboard.
package model

import (
	"fmt"
	"math"
	"strings"
)

// TimingTolerance is the allowed slack, in seconds, between adjacent scenes
// and at the edges of the target duration.
const TimingTolerance = 2.0

// StoryAnalysis is the output of the analysis stage.
type StoryAnalysis struct {
	Concept    string   `json:"concept"`
	Themes     []string `json:"themes"`
	Characters []string `json:"characters"`
	Mood       string   `json:"mood"`
}

// Validate checks the cardinality rules of an analysis.
func (a *StoryAnalysis) Validate() error {
	if strings.TrimSpace(a.Concept) == "" {
		return fmt.Errorf("%w: analysis concept is empty", ErrInvalidInput)
	}
	if len(a.Themes) < 1 || len(a.Themes) > 5 {
		return fmt.Errorf("%w: analysis must have 1-5 themes, got %d", ErrInvalidInput, len(a.Themes))
	}
	if len(a.Characters) > 5 {
		return fmt.Errorf("%w: analysis must have at most 5 characters, got %d", ErrInvalidInput, len(a.Characters))
	}
	return nil
}

// SceneScript is one narrated, timed segment of the script.
type SceneScript struct {
	Order             int     `json:"order"`
	Narration         string  `json:"narration"`
	StartTime         float64 `json:"start_time"`
	EndTime           float64 `json:"end_time"`
	VisualDescription string  `json:"visual_description"`
}

// Duration is the nominal length of the scene in seconds.
func (s SceneScript) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Script is the output of the script stage.
type Script struct {
	Narration string        `json:"narration"`
	WordCount int           `json:"word_count"`
	Scenes    []SceneScript `json:"scenes"`
}

// Validate enforces contiguous 1-based ordering and that the scenes cover
// [0, target] without gaps or overlaps beyond TimingTolerance.
func (s *Script) Validate(target int) error {
	if len(s.Scenes) == 0 {
		return fmt.Errorf("%w: script has no scenes", ErrInvalidInput)
	}
	for i, sc := range s.Scenes {
		if sc.Order != i+1 {
			return fmt.Errorf("%w: scene %d has order %d, expected %d", ErrInvalidInput, i, sc.Order, i+1)
		}
		if sc.EndTime <= sc.StartTime {
			return fmt.Errorf("%w: scene %d ends before it starts", ErrInvalidInput, sc.Order)
		}
		if i > 0 {
			prev := s.Scenes[i-1]
			if math.Abs(sc.StartTime-prev.EndTime) > TimingTolerance {
				return fmt.Errorf("%w: scene %d starts at %.2fs but scene %d ends at %.2fs",
					ErrInvalidInput, sc.Order, sc.StartTime, prev.Order, prev.EndTime)
			}
		}
	}
	if first := s.Scenes[0]; math.Abs(first.StartTime) > TimingTolerance {
		return fmt.Errorf("%w: first scene starts at %.2fs", ErrInvalidInput, first.StartTime)
	}
	if last := s.Scenes[len(s.Scenes)-1]; math.Abs(last.EndTime-float64(target)) > TimingTolerance {
		return fmt.Errorf("%w: last scene ends at %.2fs, target is %ds", ErrInvalidInput, last.EndTime, target)
	}
	return nil
}

// SceneByOrder finds a scene by its order value.
func (s *Script) SceneByOrder(order int) (SceneScript, bool) {
	for _, sc := range s.Scenes {
		if sc.Order == order {
			return sc, true
		}
	}
	return SceneScript{}, false
}

// StoryboardScene is the visual plan for one script scene.
type StoryboardScene struct {
	Order       int     `json:"order"`
	ImagePrompt string  `json:"image_prompt"`
	CameraAngle string  `json:"camera_angle"`
	Composition string  `json:"composition"`
	Lighting    string  `json:"lighting"`
	Transition  string  `json:"transition"`
	Duration    float64 `json:"duration"`
}

// Storyboard is the output of the storyboard stage.
type Storyboard struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	VisualStyle string            `json:"visual_style"`
	Palette     []string          `json:"palette"`
	Scenes      []StoryboardScene `json:"scenes"`
}

// ValidateAgainst checks that the storyboard maps 1:1 onto the script.
func (b *Storyboard) ValidateAgainst(script *Script) error {
	if len(b.Scenes) != len(script.Scenes) {
		return fmt.Errorf("%w: storyboard has %d scenes, script has %d", ErrInvalidInput, len(b.Scenes), len(script.Scenes))
	}
	for i := range b.Scenes {
		if b.Scenes[i].Order != script.Scenes[i].Order {
			return fmt.Errorf("%w: storyboard scene %d has order %d, script has %d",
				ErrInvalidInput, i, b.Scenes[i].Order, script.Scenes[i].Order)
		}
	}
	return nil
}

// SceneRevision is a reviewer supplied edit to one scene.
type SceneRevision struct {
	Order             int    `json:"order"`
	Narration         string `json:"narration,omitempty"`
	VisualDescription string `json:"visual_description,omitempty"`
	ImagePrompt       string `json:"image_prompt,omitempty"`
}

// Revisions is the optional payload of an approval or rejection.
type Revisions struct {
	Notes  string          `json:"notes,omitempty"`
	Scenes []SceneRevision `json:"scenes,omitempty"`
}

// ApplyToScript overwrites narration and visual descriptions for the listed
// scenes and recomputes the narration text and word count.
func (r *Revisions) ApplyToScript(s *Script) error {
	for _, rev := range r.Scenes {
		idx := rev.Order - 1
		if idx < 0 || idx >= len(s.Scenes) {
			return fmt.Errorf("%w: revision targets unknown scene %d", ErrInvalidInput, rev.Order)
		}
		if rev.Narration != "" {
			s.Scenes[idx].Narration = rev.Narration
		}
		if rev.VisualDescription != "" {
			s.Scenes[idx].VisualDescription = rev.VisualDescription
		}
	}
	parts := make([]string, 0, len(s.Scenes))
	for _, sc := range s.Scenes {
		parts = append(parts, strings.TrimSpace(sc.Narration))
	}
	s.Narration = strings.Join(parts, " ")
	s.WordCount = len(strings.Fields(s.Narration))
	return nil
}

// ApplyToStoryboard overwrites image prompts for the listed scenes.
func (r *Revisions) ApplyToStoryboard(b *Storyboard) error {
	for _, rev := range r.Scenes {
		idx := rev.Order - 1
		if idx < 0 || idx >= len(b.Scenes) {
			return fmt.Errorf("%w: revision targets unknown scene %d", ErrInvalidInput, rev.Order)
		}
		if rev.ImagePrompt != "" {
			b.Scenes[idx].ImagePrompt = rev.ImagePrompt
		}
	}
	return nil
}
