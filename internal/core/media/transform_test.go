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
	"testing"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopCount(t *testing.T) {
	assert.Equal(t, 5, media.LoopCount(6, 30))
	assert.Equal(t, 3, media.LoopCount(4, 10))
	assert.Equal(t, 1, media.LoopCount(8, 5))
	assert.Equal(t, 1, media.LoopCount(0, 5))
}

func TestOrientation(t *testing.T) {
	cases := []struct {
		name   string
		probe  media.ProbeResult
		rot    int
		forced bool
		chain  []string
	}{
		{"portrait", media.ProbeResult{Width: 1080, Height: 1920}, 0, false, nil},
		{"landscape forced", media.ProbeResult{Width: 1920, Height: 1080}, 90, true, []string{"transpose"}},
		{"embedded 90", media.ProbeResult{Width: 1920, Height: 1080, Rotation: 90}, 90, false, []string{"transpose"}},
		{"embedded 180", media.ProbeResult{Width: 1920, Height: 1080, Rotation: 180}, 180, false, []string{"transpose", "transpose"}},
		{"embedded 270", media.ProbeResult{Width: 1080, Height: 1920, Rotation: 270}, 270, false, []string{"transpose"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := c.probe
			p.Kind = media.KindImage
			tr, err := media.BuildSceneTransform(0, "in.png", &p, media.Segment{Duration: 5, Length: 5}, media.DefaultCanvas)
			require.NoError(t, err)
			assert.Equal(t, c.rot, tr.Rotation)
			assert.Equal(t, c.forced, tr.Forced)
			names := tr.Chain.Names()
			assert.Equal(t, append(c.chain, "scale", "pad", "setsar", "zoompan", "fps", "setpts", "format"), names)
		})
	}
}

func TestTransposeDirection(t *testing.T) {
	p := &media.ProbeResult{Width: 1080, Height: 1920, Rotation: 270, Kind: media.KindImage}
	tr, err := media.BuildSceneTransform(2, "in.png", p, media.Segment{Duration: 5, Length: 5.5}, media.DefaultCanvas)
	require.NoError(t, err)
	assert.Equal(t, "[2:v]transpose=2", tr.Chain.String()[:len("[2:v]transpose=2")])
	assert.Equal(t, "v2", tr.Label())
}

func TestKenBurns(t *testing.T) {
	zoom, frames := media.KenBurns(10, 10.5, media.DefaultCanvas)
	assert.Equal(t, 315, frames)
	z, _ := zoom.Arg("z")
	assert.Equal(t, "min(1.0+0.3*on/300,1.3)", z)
	y, _ := zoom.Arg("y")
	assert.Equal(t, "ih/2-(ih/zoom/2)+20*sin(2*PI*on/30)", y)
	s, _ := zoom.Arg("s")
	assert.Equal(t, "1080x1920", s)
	assert.Equal(t,
		"zoompan=z='min(1.0+0.3*on/300,1.3)':x=iw/2-(iw/zoom/2):y=ih/2-(ih/zoom/2)+20*sin(2*PI*on/30):d=315:s=1080x1920:fps=30",
		zoom.String())
}

func TestVideoClipLongerThanSceneIsTrimmed(t *testing.T) {
	p := &media.ProbeResult{Width: 1080, Height: 1920, Kind: media.KindVideo, Duration: 8}
	tr, err := media.BuildSceneTransform(1, "c.mp4", p, media.Segment{Duration: 5, Length: 5.5}, media.DefaultCanvas)
	require.NoError(t, err)
	assert.Equal(t, []string{"-noautorotate"}, tr.Input.Options)
	assert.Equal(t, 1, tr.LoopCount)
	trim, ok := tr.Chain.Find("trim")
	require.True(t, ok)
	d, _ := trim.Arg("duration")
	assert.Equal(t, "5.5", d)
}

func TestBuildSceneTransformRejectsAudio(t *testing.T) {
	_, err := media.BuildSceneTransform(0, "a.wav", &media.ProbeResult{Kind: media.KindAudio}, media.Segment{Duration: 5, Length: 5}, media.DefaultCanvas)
	assert.Error(t, err)
}

func TestGraphString(t *testing.T) {
	var g media.Graph
	g.Add(
		media.Chain{Inputs: []string{"0:v"}, Filters: []media.Filter{media.NewFilter("fps", "", "30")}, Outputs: []string{"v0"}},
		media.Chain{Inputs: []string{"1:a"}, Filters: []media.Filter{media.NewFilter("apad")}, Outputs: []string{"aout"}},
	)
	assert.Equal(t, "[0:v]fps=30[v0];[1:a]apad[aout]", g.String())
}
