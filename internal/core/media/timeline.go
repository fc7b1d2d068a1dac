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

package media

// DefaultCrossfade is the blend length at every scene boundary, in seconds.
const DefaultCrossfade = 0.5

// Segment is the rendered span of one scene. Duration is the nominal scene
// length; Length adds the lead-in consumed by the crossfade into the scene.
type Segment struct {
	Duration float64
	Length   float64
}

// Timeline lays scenes end to end with a running crossfade chain.
//
// Transition i blends the composite of scenes [0..i] with scene i+1 at
// offset cumulative(0..i) - crossfade. Every scene after the first renders
// crossfade seconds longer so the composite after transition i is exactly
// cumulative(0..i+1) long and the final output equals the sum of the
// nominal durations.
type Timeline struct {
	Segments  []Segment
	Crossfade float64
}

// NewTimeline builds a timeline from nominal scene durations.
func NewTimeline(durations []float64, crossfade float64) *Timeline {
	t := &Timeline{Crossfade: crossfade, Segments: make([]Segment, len(durations))}
	for i, d := range durations {
		length := d
		if i > 0 {
			length += crossfade
		}
		t.Segments[i] = Segment{Duration: d, Length: length}
	}
	return t
}

// Offsets returns the xfade offsets, one per scene boundary.
func (t *Timeline) Offsets() []float64 {
	if len(t.Segments) < 2 {
		return nil
	}
	out := make([]float64, 0, len(t.Segments)-1)
	cum := 0.0
	for _, s := range t.Segments[:len(t.Segments)-1] {
		cum += s.Duration
		out = append(out, cum-t.Crossfade)
	}
	return out
}

// Total is the length of the composited video.
func (t *Timeline) Total() float64 {
	total := 0.0
	for _, s := range t.Segments {
		total += s.Duration
	}
	return total
}

// Transitions builds the xfade chains over the scene labels. It returns the
// label of the final composite; with one scene that is the scene itself.
func (t *Timeline) Transitions(labels []string) ([]Chain, string) {
	if len(labels) == 0 {
		return nil, ""
	}
	current := labels[0]
	var chains []Chain
	for i, offset := range t.Offsets() {
		out := "x" + labels[i+1]
		chains = append(chains, Chain{
			Inputs: []string{current, labels[i+1]},
			Filters: []Filter{NewFilter("xfade",
				"transition", "fade",
				"duration", Seconds(t.Crossfade),
				"offset", Seconds(offset))},
			Outputs: []string{out},
		})
		current = out
	}
	return chains, current
}
