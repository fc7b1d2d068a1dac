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
	"context"
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	out  []byte
	err  error
	name string
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return f.out, f.err
}

const phoneClip = `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
     "duration": "6.000000", "nb_frames": "180",
     "side_data_list": [{"side_data_type": "Display Matrix", "rotation": -90}]},
    {"codec_type": "audio", "codec_name": "aac", "duration": "6.000000"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "6.000000"}
}`

func TestParseProbeDisplayMatrix(t *testing.T) {
	res, err := media.ParseProbe([]byte(phoneClip))
	require.NoError(t, err)
	assert.Equal(t, media.KindVideo, res.Kind)
	assert.Equal(t, 1920, res.Width)
	assert.Equal(t, 1080, res.Height)
	assert.Equal(t, 90, res.Rotation)
	assert.InDelta(t, 6.0, res.Duration, 1e-9)
}

func TestParseProbeRotateTag(t *testing.T) {
	doc := `{"streams":[{"codec_type":"video","codec_name":"h264","width":640,"height":480,
	  "duration":"3.5","tags":{"rotate":"-90"}}],"format":{"format_name":"mov","duration":"3.5"}}`
	res, err := media.ParseProbe([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 270, res.Rotation)
}

func TestParseProbeStillImage(t *testing.T) {
	doc := `{"streams":[{"codec_type":"video","codec_name":"png","width":1024,"height":1792}],
	  "format":{"format_name":"png_pipe"}}`
	res, err := media.ParseProbe([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, media.KindImage, res.Kind)
	assert.Equal(t, 0, res.Rotation)
	assert.Zero(t, res.Duration)
}

func TestParseProbeAudioFallsBackToFormatDuration(t *testing.T) {
	doc := `{"streams":[{"codec_type":"audio","codec_name":"pcm_s16le"}],
	  "format":{"format_name":"wav","duration":"29.84"}}`
	res, err := media.ParseProbe([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, media.KindAudio, res.Kind)
	assert.InDelta(t, 29.84, res.Duration, 1e-9)
}

func TestParseProbeNoStreams(t *testing.T) {
	_, err := media.ParseProbe([]byte(`{"streams":[],"format":{}}`))
	assert.True(t, errors.Is(err, media.ErrNoStream))

	_, err = media.ParseProbe([]byte(`not json`))
	assert.Error(t, err)
}

func TestProberRunsFFProbe(t *testing.T) {
	r := &fakeRunner{out: []byte(phoneClip)}
	p := media.NewProber(r, "")
	res, err := p.Probe(context.Background(), "/tmp/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "ffprobe", r.name)
	assert.Contains(t, r.args, "-show_streams")
	assert.Equal(t, "/tmp/clip.mp4", r.args[len(r.args)-1])
	assert.Equal(t, media.KindVideo, res.Kind)

	failing := &fakeRunner{err: errors.New("exit status 1")}
	_, err = media.NewProber(failing, "/usr/bin/ffprobe").Probe(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, "/usr/bin/ffprobe", failing.name)
}
