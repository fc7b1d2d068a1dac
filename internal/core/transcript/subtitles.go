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

package transcript

import (
	"fmt"
	"math"
	"strings"

	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// Cue is one subtitle entry.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// SceneCues produces one cue per scene from the scene's own narration and
// times, ordered by scene order.
func SceneCues(scenes []model.SceneScript) []Cue {
	cues := make([]Cue, 0, len(scenes))
	for _, s := range byOrder(scenes) {
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: s.StartTime,
			End:   s.EndTime,
			Text:  strings.Join(strings.Fields(s.Narration), " "),
		})
	}
	return cues
}

// RenderSRT serializes cues in SubRip format.
func RenderSRT(cues []Cue) string {
	var sb strings.Builder
	for i, c := range cues {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n", c.Index, Timestamp(c.Start), Timestamp(c.End), c.Text)
	}
	return sb.String()
}

// Timestamp formats seconds as HH:MM:SS,mmm.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
