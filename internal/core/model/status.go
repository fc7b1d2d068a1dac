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
// This file defines the project status cursor and the pipeline stages.
//
// The status values form a single ranked line:
//
//	draft → analyzed → script_review → script_approved → storyboard_review →
//	storyboard_approved → assets_review → assets_approved → rendering → ready
//
// `failed` sits outside of the line and is terminal. Every stage knows the
// status it is entered from, the status it leaves the project in after a
// successful generation, the checkpoint it sets when approved, and the
// checkpoint a rejection rolls back to.
package model

import "fmt"

// Status is the durable state machine cursor stored on every project.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusAnalyzed           Status = "analyzed"
	StatusScriptReview       Status = "script_review"
	StatusScriptApproved     Status = "script_approved"
	StatusStoryboardReview   Status = "storyboard_review"
	StatusStoryboardApproved Status = "storyboard_approved"
	StatusAssetsReview       Status = "assets_review"
	StatusAssetsApproved     Status = "assets_approved"
	StatusRendering          Status = "rendering"
	StatusReady              Status = "ready"
	StatusFailed             Status = "failed"
)

// statusLine is the canonical ordering used for forward-closed checks.
var statusLine = []Status{
	StatusDraft,
	StatusAnalyzed,
	StatusScriptReview,
	StatusScriptApproved,
	StatusStoryboardReview,
	StatusStoryboardApproved,
	StatusAssetsReview,
	StatusAssetsApproved,
	StatusRendering,
	StatusReady,
}

// Rank returns the position of the status on the canonical line, or -1 for
// `failed` and unknown values.
func (s Status) Rank() int {
	for i, v := range statusLine {
		if v == s {
			return i
		}
	}
	return -1
}

// AtLeast reports whether s is o or any status after o. Unranked statuses
// are never "at least" anything.
func (s Status) AtLeast(o Status) bool {
	r := s.Rank()
	return r >= 0 && o.Rank() >= 0 && r >= o.Rank()
}

// IsTerminal reports whether no further operation is accepted.
func (s Status) IsTerminal() bool {
	return s == StatusFailed
}

// ParseStatus converts a string into a known Status.
func ParseStatus(in string) (Status, error) {
	s := Status(in)
	if s == StatusFailed || s.Rank() >= 0 {
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", in)
}

// Stage names one of the artifact producing steps of the pipeline.
type Stage string

const (
	StageAnalysis   Stage = "analysis"
	StageScript     Stage = "script"
	StageStoryboard Stage = "storyboard"
	StageAssets     Stage = "assets"
	StageVideo      Stage = "video"
)

// Stages lists every artifact stage in pipeline order. The order is used for
// cascading invalidation: invalidating a stage invalidates everything after it.
var Stages = []Stage{StageAnalysis, StageScript, StageStoryboard, StageAssets, StageVideo}

type stageStatuses struct {
	entry      Status
	review     Status
	approved   Status
	checkpoint Status // where a rejection rolls back to
}

var stageTable = map[Stage]stageStatuses{
	StageAnalysis:   {entry: StatusDraft, review: StatusAnalyzed, approved: StatusAnalyzed, checkpoint: StatusDraft},
	StageScript:     {entry: StatusAnalyzed, review: StatusScriptReview, approved: StatusScriptApproved, checkpoint: StatusAnalyzed},
	StageStoryboard: {entry: StatusScriptApproved, review: StatusStoryboardReview, approved: StatusStoryboardApproved, checkpoint: StatusScriptApproved},
	StageAssets:     {entry: StatusStoryboardApproved, review: StatusAssetsReview, approved: StatusAssetsApproved, checkpoint: StatusStoryboardApproved},
	StageVideo:      {entry: StatusAssetsApproved, review: StatusReady, approved: StatusReady, checkpoint: StatusAssetsApproved},
}

// ParseStage converts a path or payload value into a Stage.
func ParseStage(in string) (Stage, error) {
	s := Stage(in)
	if _, ok := stageTable[s]; !ok {
		return "", fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, in)
	}
	return s, nil
}

// Index returns the position of the stage in Stages, or -1.
func (s Stage) Index() int {
	for i, v := range Stages {
		if v == s {
			return i
		}
	}
	return -1
}

// EntryStatus is the canonical status a stage is generated from.
func (s Stage) EntryStatus() Status { return stageTable[s].entry }

// ReviewStatus is the status set after a successful generation.
func (s Stage) ReviewStatus() Status { return stageTable[s].review }

// ApprovedStatus is the checkpoint set when the stage is approved.
func (s Stage) ApprovedStatus() Status { return stageTable[s].approved }

// PreviousCheckpoint is the status a rejection of this stage rolls back to.
func (s Stage) PreviousCheckpoint() Status { return stageTable[s].checkpoint }

// Reviewable reports whether the stage has a distinct review/approve step.
func (s Stage) Reviewable() bool {
	return s == StageScript || s == StageStoryboard || s == StageAssets
}

// Downstream returns the stage itself followed by every later stage.
func (s Stage) Downstream() []Stage {
	i := s.Index()
	if i < 0 {
		return nil
	}
	out := make([]Stage, len(Stages)-i)
	copy(out, Stages[i:])
	return out
}
