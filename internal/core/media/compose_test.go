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

package media_test

import (
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func portraitImage() *media.ProbeResult {
	return &media.ProbeResult{Width: 1024, Height: 1792, Kind: media.KindImage}
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// Three 10s scenes blend at 9.5s and 19.5s and still total 30s.
func TestCompositionCrossfadeOffsets(t *testing.T) {
	scenes := []media.SceneInput{
		{Path: "s1.png", Probe: portraitImage(), Duration: 10},
		{Path: "s2.png", Probe: portraitImage(), Duration: 10},
		{Path: "s3.png", Probe: portraitImage(), Duration: 10},
	}
	comp, err := media.BuildComposition(scenes, media.AudioInput{Path: "n.wav", Duration: 30}, media.DefaultCanvas, media.DefaultCrossfade)
	require.NoError(t, err)

	assert.Equal(t, []float64{9.5, 19.5}, comp.Timeline.Offsets())
	xfades := comp.Graph.Filters("xfade")
	require.Len(t, xfades, 2)
	off, _ := xfades[0].Arg("offset")
	assert.Equal(t, "9.5", off)
	off, _ = xfades[1].Arg("offset")
	assert.Equal(t, "19.5", off)

	assert.InDelta(t, 30.0, comp.Duration, 1e-9)
	assert.Empty(t, comp.Graph.Filters("tpad"))

	args := comp.Args("out.mp4")
	assert.Equal(t, "30", argAfter(args, "-t"))
	assert.Equal(t, "out.mp4", args[len(args)-1])
	assert.Equal(t, "["+comp.VideoLabel+"]", argAfter(args, "-map"))
	assert.Contains(t, strings.Join(args, " "), "-movflags +faststart")

	// the composite after each transition is long enough for the next offset
	segs := comp.Timeline.Segments
	assert.InDelta(t, 10.0, segs[0].Length, 1e-9)
	assert.InDelta(t, 10.5, segs[1].Length, 1e-9)
	assert.InDelta(t, 10.5, segs[2].Length, 1e-9)
}

// One 30s scene backed by a 6s clip loops and trims without any crossfade.
func TestCompositionSingleSceneLoop(t *testing.T) {
	clip := &media.ProbeResult{Width: 1080, Height: 1920, Kind: media.KindVideo, Duration: 6}
	comp, err := media.BuildComposition(
		[]media.SceneInput{{Path: "clip.mp4", Probe: clip, Duration: 30}},
		media.AudioInput{Path: "n.wav", Duration: 30},
		media.DefaultCanvas, media.DefaultCrossfade)
	require.NoError(t, err)

	assert.Empty(t, comp.Graph.Filters("xfade"))
	assert.Nil(t, comp.Timeline.Offsets())
	assert.Equal(t, "v0", comp.VideoLabel)

	tr := comp.Transforms[0]
	assert.Equal(t, 5, tr.LoopCount)
	assert.Equal(t, []string{"-noautorotate", "-stream_loop", "-1"}, tr.Input.Options)
	trim, ok := tr.Chain.Find("trim")
	require.True(t, ok)
	d, _ := trim.Arg("duration")
	assert.Equal(t, "30", d)
	_, hasZoom := tr.Chain.Find("zoompan")
	assert.False(t, hasZoom)

	assert.Equal(t, "30", argAfter(comp.Args("out.mp4"), "-t"))
}

func TestCompositionNarrationGovernsLength(t *testing.T) {
	scenes := []media.SceneInput{
		{Path: "a.png", Probe: portraitImage(), Duration: 15},
		{Path: "b.png", Probe: portraitImage(), Duration: 15},
	}

	longer, err := media.BuildComposition(scenes, media.AudioInput{Path: "n.wav", Duration: 31.2}, media.DefaultCanvas, media.DefaultCrossfade)
	require.NoError(t, err)
	assert.InDelta(t, 31.2, longer.Duration, 1e-9)
	tpad := longer.Graph.Filters("tpad")
	require.Len(t, tpad, 1)
	sd, _ := tpad[0].Arg("stop_duration")
	assert.Equal(t, "1.2", sd)
	assert.Equal(t, "vout", longer.VideoLabel)

	shorter, err := media.BuildComposition(scenes, media.AudioInput{Path: "n.wav", Duration: 28}, media.DefaultCanvas, media.DefaultCrossfade)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, shorter.Duration, 1e-9)
	assert.Len(t, shorter.Graph.Filters("apad"), 1)
}

func TestCompositionAlwaysFillsCanvas(t *testing.T) {
	probes := []*media.ProbeResult{
		{Width: 1920, Height: 1080, Kind: media.KindImage},
		{Width: 1080, Height: 1920, Kind: media.KindImage},
		{Width: 1920, Height: 1080, Rotation: 90, Kind: media.KindVideo, Duration: 20},
		{Width: 800, Height: 800, Kind: media.KindImage},
	}
	var scenes []media.SceneInput
	for _, p := range probes {
		scenes = append(scenes, media.SceneInput{Path: "x", Probe: p, Duration: 5})
	}
	comp, err := media.BuildComposition(scenes, media.AudioInput{Path: "n.wav"}, media.DefaultCanvas, media.DefaultCrossfade)
	require.NoError(t, err)

	for _, tr := range comp.Transforms {
		pad, ok := tr.Chain.Find("pad")
		require.True(t, ok)
		assert.Equal(t, "1080", pad.Args[0].Value)
		assert.Equal(t, "1920", pad.Args[1].Value)
		scale, _ := tr.Chain.Find("scale")
		mode, _ := scale.Arg("force_original_aspect_ratio")
		assert.Equal(t, "decrease", mode)
		_, crops := tr.Chain.Find("crop")
		assert.False(t, crops)
	}
}

func TestBuildCompositionErrors(t *testing.T) {
	_, err := media.BuildComposition(nil, media.AudioInput{Path: "n.wav"}, media.DefaultCanvas, media.DefaultCrossfade)
	assert.ErrorIs(t, err, media.ErrNoScenes)

	_, err = media.BuildComposition([]media.SceneInput{{Path: "a", Probe: portraitImage(), Duration: 5}}, media.AudioInput{}, media.DefaultCanvas, media.DefaultCrossfade)
	assert.Error(t, err)

	_, err = media.BuildComposition([]media.SceneInput{{Path: "a", Probe: portraitImage(), Duration: 0}}, media.AudioInput{Path: "n.wav"}, media.DefaultCanvas, media.DefaultCrossfade)
	assert.Error(t, err)
}
