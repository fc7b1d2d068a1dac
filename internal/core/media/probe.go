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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the stream type reported by the probe.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// ErrNoStream is returned when a file carries neither a video nor an audio stream.
var ErrNoStream = errors.New("no usable stream")

// ProbeResult is what the compositor needs to know about one input file.
type ProbeResult struct {
	Width    int
	Height   int
	Rotation int // clockwise display rotation, one of 0, 90, 180, 270
	Kind     Kind
	Duration float64 // seconds, zero for still images
}

// Landscape reports whether the stored frame is wider than it is tall.
func (p ProbeResult) Landscape() bool {
	return p.Width > p.Height
}

var stillCodecs = map[string]bool{
	"mjpeg": true, "png": true, "webp": true, "bmp": true, "tiff": true, "gif": true,
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Duration     string            `json:"duration"`
	NbFrames     string            `json:"nb_frames"`
	Tags         map[string]string `json:"tags"`
	SideDataList []struct {
		SideDataType string  `json:"side_data_type"`
		Rotation     float64 `json:"rotation"`
	} `json:"side_data_list"`
}

// Prober inspects downloaded files with ffprobe.
type Prober struct {
	runner Runner
	path   string
}

// NewProber creates a Prober for the given ffprobe executable.
func NewProber(runner Runner, ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{runner: runner, path: ffprobePath}
}

// Probe runs ffprobe on file and decodes its JSON report.
func (p *Prober) Probe(ctx context.Context, file string) (*ProbeResult, error) {
	out, err := p.runner.Run(ctx, p.path,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		file)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", file, err)
	}
	res, err := ParseProbe(out)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", file, err)
	}
	return res, nil
}

// ParseProbe decodes an ffprobe JSON document.
func ParseProbe(data []byte) (*ProbeResult, error) {
	var doc probeOutput
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding ffprobe output: %w", err)
	}

	var video, audio *probeStream
	for i := range doc.Streams {
		s := &doc.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			if audio == nil {
				audio = s
			}
		}
	}

	formatDuration := parseSeconds(doc.Format.Duration)
	if video == nil {
		if audio == nil {
			return nil, ErrNoStream
		}
		d := parseSeconds(audio.Duration)
		if d == 0 {
			d = formatDuration
		}
		return &ProbeResult{Kind: KindAudio, Duration: d}, nil
	}

	res := &ProbeResult{
		Width:    video.Width,
		Height:   video.Height,
		Rotation: streamRotation(video),
		Kind:     KindVideo,
	}
	if isStill(doc.Format.FormatName, video) {
		res.Kind = KindImage
		return res, nil
	}
	res.Duration = parseSeconds(video.Duration)
	if res.Duration == 0 {
		res.Duration = formatDuration
	}
	return res, nil
}

func isStill(formatName string, s *probeStream) bool {
	if formatName == "image2" || strings.HasSuffix(formatName, "_pipe") {
		return true
	}
	if stillCodecs[s.CodecName] {
		frames, err := strconv.Atoi(s.NbFrames)
		return err != nil || frames <= 1
	}
	return false
}

// streamRotation prefers the legacy rotate tag and falls back to the display
// matrix, whose angle is counter-clockwise.
func streamRotation(s *probeStream) int {
	if v, ok := s.Tags["rotate"]; ok {
		if deg, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return normalizeRotation(deg)
		}
	}
	for _, sd := range s.SideDataList {
		if sd.SideDataType == "Display Matrix" {
			return normalizeRotation(int(math.Round(-sd.Rotation)))
		}
	}
	return 0
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	// snap to the nearest right angle
	return ((deg + 45) / 90 % 4) * 90
}

func parseSeconds(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || f < 0 {
		return 0
	}
	return f
}
