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

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNoScenes is returned when a composition is requested without scenes.
var ErrNoScenes = errors.New("composition has no scenes")

// SceneInput is one downloaded, probed scene asset.
type SceneInput struct {
	Path     string
	Probe    *ProbeResult
	Duration float64
}

// AudioInput is the narration track. A zero Duration means unknown.
type AudioInput struct {
	Path     string
	Duration float64
}

// Encoding holds the output codec settings.
type Encoding struct {
	Preset       string
	CRF          int
	AudioBitrate string
}

// DefaultEncoding is H.264 + AAC suitable for short-form platforms.
var DefaultEncoding = Encoding{Preset: "medium", CRF: 20, AudioBitrate: "192k"}

// Composition is the complete, typed description of one render.
type Composition struct {
	Inputs     []Input
	Transforms []*SceneTransform
	Timeline   *Timeline
	Graph      Graph
	VideoLabel string
	AudioLabel string
	Duration   float64
	Canvas     Canvas
	Encoding   Encoding
}

// BuildComposition sequences the scene transforms, joins them with the
// crossfade chain and maps the narration against the result. Output length
// follows the narration; when the narration is shorter than the scenes it is
// padded with silence instead of cutting the video, and when it is longer the
// last frame is held.
func BuildComposition(scenes []SceneInput, audio AudioInput, c Canvas, crossfade float64) (*Composition, error) {
	if len(scenes) == 0 {
		return nil, ErrNoScenes
	}
	if audio.Path == "" {
		return nil, errors.New("composition has no narration track")
	}

	durations := make([]float64, len(scenes))
	for i, s := range scenes {
		if s.Duration <= 0 {
			return nil, fmt.Errorf("scene %d has non-positive duration %v", i, s.Duration)
		}
		durations[i] = s.Duration
	}

	comp := &Composition{
		Timeline: NewTimeline(durations, crossfade),
		Canvas:   c,
		Encoding: DefaultEncoding,
	}

	labels := make([]string, len(scenes))
	for i, s := range scenes {
		t, err := BuildSceneTransform(i, s.Path, s.Probe, comp.Timeline.Segments[i], c)
		if err != nil {
			return nil, err
		}
		comp.Transforms = append(comp.Transforms, t)
		comp.Inputs = append(comp.Inputs, t.Input)
		comp.Graph.Add(t.Chain)
		labels[i] = t.Label()
	}

	transitions, video := comp.Timeline.Transitions(labels)
	comp.Graph.Add(transitions...)

	total := comp.Timeline.Total()
	comp.Duration = total
	if audio.Duration > total {
		comp.Graph.Add(Chain{
			Inputs: []string{video},
			Filters: []Filter{NewFilter("tpad",
				"stop_mode", "clone",
				"stop_duration", Seconds(audio.Duration-total))},
			Outputs: []string{"vout"},
		})
		video = "vout"
		comp.Duration = audio.Duration
	}
	comp.VideoLabel = video

	audioIndex := len(comp.Inputs)
	comp.Inputs = append(comp.Inputs, Input{Path: audio.Path})
	comp.Graph.Add(Chain{
		Inputs:  []string{fmt.Sprintf("%d:a", audioIndex)},
		Filters: []Filter{NewFilter("apad")},
		Outputs: []string{"aout"},
	})
	comp.AudioLabel = "aout"
	return comp, nil
}

// Args renders the full ffmpeg argument list writing to output.
func (c *Composition) Args(output string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, in := range c.Inputs {
		args = append(args, in.Args()...)
	}
	args = append(args,
		"-filter_complex", c.Graph.String(),
		"-map", "["+c.VideoLabel+"]",
		"-map", "["+c.AudioLabel+"]",
		"-c:v", "libx264",
		"-preset", c.Encoding.Preset,
		"-crf", strconv.Itoa(c.Encoding.CRF),
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(c.Canvas.FPS),
		"-c:a", "aac",
		"-b:a", c.Encoding.AudioBitrate,
		"-t", Seconds(c.Duration),
		"-movflags", "+faststart",
		output,
	)
	return args
}
