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
	"math"
	"strconv"
)

const (
	kenBurnsMaxZoom   = 0.3
	kenBurnsAmplitude = 20 // px
	kenBurnsPeriod    = 30 // frames
)

// Canvas is the fixed output frame.
type Canvas struct {
	Width  int
	Height int
	FPS    int
}

// DefaultCanvas is a vertical 1080x1920 frame at 30fps.
var DefaultCanvas = Canvas{Width: 1080, Height: 1920, FPS: 30}

// Resolution renders the canvas as WxH.
func (c Canvas) Resolution() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// Input is one -i entry of the ffmpeg command with its input options.
type Input struct {
	Path    string
	Options []string
}

// Args returns the input options followed by -i path.
func (in Input) Args() []string {
	out := make([]string, 0, len(in.Options)+2)
	out = append(out, in.Options...)
	return append(out, "-i", in.Path)
}

// SceneTransform is the per-scene effect pipeline and the input it reads.
type SceneTransform struct {
	Input     Input
	Chain     Chain
	Kind      Kind
	Rotation  int // rotation applied by the chain, forced or embedded
	Forced    bool
	LoopCount int // number of clip plays needed to cover the segment, 1 for images
	Frames    int // zoompan frame count for images
}

// Label is the output pad of the transform.
func (t *SceneTransform) Label() string {
	return t.Chain.Outputs[0]
}

// LoopCount is the number of plays of a clip of length clip needed to
// fill a scene of length scene.
func LoopCount(clip, scene float64) int {
	if clip <= 0 || scene <= clip {
		return 1
	}
	return int(math.Ceil(scene/clip - 1e-9))
}

// OrientationFor returns the clockwise rotation to apply and whether it was
// forced. A landscape frame with no embedded rotation is turned portrait.
func OrientationFor(p *ProbeResult) (int, bool) {
	if p.Rotation != 0 {
		return p.Rotation, false
	}
	if p.Landscape() {
		return 90, true
	}
	return 0, false
}

func rotationFilters(deg int) []Filter {
	switch deg {
	case 90:
		return []Filter{NewFilter("transpose", "", "1")}
	case 180:
		return []Filter{NewFilter("transpose", "", "1"), NewFilter("transpose", "", "1")}
	case 270:
		return []Filter{NewFilter("transpose", "", "2")}
	}
	return nil
}

func fitFilters(c Canvas) []Filter {
	w, h := strconv.Itoa(c.Width), strconv.Itoa(c.Height)
	return []Filter{
		{Name: "scale", Args: []Arg{{Value: w}, {Value: h}, {Key: "force_original_aspect_ratio", Value: "decrease"}}},
		{Name: "pad", Args: []Arg{{Value: w}, {Value: h}, {Value: "(ow-iw)/2"}, {Value: "(oh-ih)/2"}}},
		NewFilter("setsar", "", "1"),
	}
}

// KenBurns builds the zoompan filter for a still shown for duration seconds
// over a segment of length seconds.
func KenBurns(duration, length float64, c Canvas) (Filter, int) {
	f := int(math.Round(float64(c.FPS) * duration))
	if f < 1 {
		f = 1
	}
	d := int(math.Round(float64(c.FPS) * length))
	if d < 1 {
		d = 1
	}
	return NewFilter("zoompan",
		"z", fmt.Sprintf("min(1.0+%g*on/%d,%g)", kenBurnsMaxZoom, f, 1.0+kenBurnsMaxZoom),
		"x", "iw/2-(iw/zoom/2)",
		"y", fmt.Sprintf("ih/2-(ih/zoom/2)+%d*sin(2*PI*on/%d)", kenBurnsAmplitude, kenBurnsPeriod),
		"d", strconv.Itoa(d),
		"s", c.Resolution(),
		"fps", strconv.Itoa(c.FPS),
	), d
}

// BuildSceneTransform turns one probed scene input into its effect chain:
// rotate, fit, then Ken Burns for stills or loop and trim for clips. The
// chain reads input pad "<index>:v" and writes "v<index>".
func BuildSceneTransform(index int, path string, probe *ProbeResult, seg Segment, c Canvas) (*SceneTransform, error) {
	if probe == nil {
		return nil, errors.New("missing probe result")
	}
	if seg.Length <= 0 {
		return nil, fmt.Errorf("scene %d has non-positive length %v", index, seg.Length)
	}

	rot, forced := OrientationFor(probe)
	t := &SceneTransform{
		Input:     Input{Path: path, Options: []string{"-noautorotate"}},
		Kind:      probe.Kind,
		Rotation:  rot,
		Forced:    forced,
		LoopCount: 1,
	}

	filters := rotationFilters(rot)
	filters = append(filters, fitFilters(c)...)
	fps := NewFilter("fps", "", strconv.Itoa(c.FPS))

	switch probe.Kind {
	case KindImage:
		zoom, frames := KenBurns(seg.Duration, seg.Length, c)
		t.Frames = frames
		filters = append(filters, zoom, fps, NewFilter("setpts", "", "PTS-STARTPTS"))
	case KindVideo:
		if probe.Duration > 0 && probe.Duration < seg.Length {
			t.Input.Options = append(t.Input.Options, "-stream_loop", "-1")
			t.LoopCount = LoopCount(probe.Duration, seg.Length)
		}
		filters = append(filters,
			fps,
			NewFilter("trim", "duration", Seconds(seg.Length)),
			NewFilter("setpts", "", "PTS-STARTPTS"))
	default:
		return nil, fmt.Errorf("scene %d: unsupported input kind %q", index, probe.Kind)
	}
	filters = append(filters, NewFilter("format", "", "yuv420p"))

	t.Chain = Chain{
		Inputs:  []string{fmt.Sprintf("%d:v", index)},
		Filters: filters,
		Outputs: []string{fmt.Sprintf("v%d", index)},
	}
	return t, nil
}
