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
// This file, `transient.go`, contains the structures that only live for the
// duration of a render workflow. They are handed from command to command in
// the chain context and are never persisted as they are.
package model

// These objects are used in memory via workflows, but are not persisted to the store

// RenderScene is a script scene that has been bound to an asset.
type RenderScene struct {
	Order     int
	StartTime float64
	EndTime   float64
	Narration string
	AssetURL  string
	AssetType AssetType
	LocalPath string // filled in by the download step
}

// Duration is the nominal scene length in seconds.
func (r *RenderScene) Duration() float64 {
	return r.EndTime - r.StartTime
}

// RenderRequest is the input of the render workflow.
type RenderRequest struct {
	ProjectID     string
	Scenes        []*RenderScene
	AudioURL      string
	AudioDuration float64
	SubtitlesSRT  string
	Cost          float64
	AudioPath     string // filled in by the download step
	WorkingDir    string // filled in by the working directory step
}

// RenderOutput is what the render workflow leaves in the context when it
// completes.
type RenderOutput struct {
	VideoURL     string
	SubtitlesURL string
	LocalPath    string
	Duration     float64
	FileSize     int64
}
