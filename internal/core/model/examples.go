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

// Package model defines the core data structures for the application. This
// file, `examples.go`, provides hardcoded example artifacts.
//
// The examples are rendered as JSON into the prompts of the text generators
// ("few-shot" prompting) so the model answers with a structure that decodes
// straight into the artifact types.
package model

// GetExampleAnalysis returns a sample analysis for prompt construction.
func GetExampleAnalysis() *StoryAnalysis {
	return &StoryAnalysis{
		Concept:    "A lighthouse keeper discovers the lamp has been guiding something other than ships.",
		Themes:     []string{"isolation", "duty", "the unknown"},
		Characters: []string{"the keeper", "a lost fisherman"},
		Mood:       "eerie, quiet, wondrous",
	}
}

// GetExampleScript returns a sample two scene script for a 30 second video.
func GetExampleScript() *Script {
	return &Script{
		Narration: "Every night for forty years, Elias lit the lamp. Tonight, something in the fog answered back.",
		WordCount: 16,
		Scenes: []SceneScript{
			{
				Order:             1,
				Narration:         "Every night for forty years, Elias lit the lamp.",
				StartTime:         0,
				EndTime:           15,
				VisualDescription: "An old keeper climbs a spiral staircase holding a lantern.",
			},
			{
				Order:             2,
				Narration:         "Tonight, something in the fog answered back.",
				StartTime:         15,
				EndTime:           30,
				VisualDescription: "A pale light pulses back from deep inside a wall of fog.",
			},
		},
	}
}

// GetExampleStoryboard returns a storyboard matching GetExampleScript.
func GetExampleStoryboard() *Storyboard {
	return &Storyboard{
		Title:       "The Answering Light",
		Description: "A keeper's nightly ritual meets a reply from the sea.",
		VisualStyle: "moody cinematic realism, volumetric fog",
		Palette:     []string{"#0b1d2a", "#f2c14e", "#9fb8c8"},
		Scenes: []StoryboardScene{
			{
				Order:       1,
				ImagePrompt: "vertical 9:16, elderly lighthouse keeper on a spiral iron staircase, warm lantern glow, deep shadows",
				CameraAngle: "low angle",
				Composition: "subject centered, staircase leading up",
				Lighting:    "single warm practical light",
				Transition:  "crossfade",
				Duration:    15,
			},
			{
				Order:       2,
				ImagePrompt: "vertical 9:16, wall of sea fog at night, faint pale light pulsing inside, lighthouse beam cutting across",
				CameraAngle: "wide",
				Composition: "horizon in the lower third",
				Lighting:    "cold moonlight with a warm beam",
				Transition:  "crossfade",
				Duration:    15,
			},
		},
	}
}
