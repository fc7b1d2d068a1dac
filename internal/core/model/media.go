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

package model

// AssetType distinguishes still images from animated clips.
type AssetType string

const (
	AssetImage     AssetType = "image"
	AssetVideoClip AssetType = "video_clip"
)

// Asset is the generated visual for one storyboard scene. It is bound to its
// scene by SceneOrder only; the binding is re-derived on every render.
type Asset struct {
	SceneOrder int               `json:"scene_order"`
	Type       AssetType         `json:"type"`
	URL        string            `json:"url"`
	StaticURL  string            `json:"static_url,omitempty"` // the still image an animation was made from
	Prompt     string            `json:"prompt"`
	Cost       float64           `json:"cost"`
	Provider   string            `json:"provider"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SceneFailure records why one scene could not produce an asset.
type SceneFailure struct {
	SceneOrder int    `json:"scene_order"`
	Class      string `json:"class"`
	Message    string `json:"message"`
}

// AssetSet is the artifact of the assets stage.
type AssetSet struct {
	Assets    []Asset        `json:"assets"`
	Failures  []SceneFailure `json:"failures,omitempty"`
	TotalCost float64        `json:"total_cost"`
}

// ByOrder indexes the assets by scene order. Assets without a URL are skipped.
func (s *AssetSet) ByOrder() map[int]Asset {
	out := make(map[int]Asset, len(s.Assets))
	for _, a := range s.Assets {
		if a.URL != "" {
			out[a.SceneOrder] = a
		}
	}
	return out
}

// WordTimestamp is the narration timing of one word.
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the word level timing of the narration track.
type Transcript struct {
	Text     string          `json:"text"`
	Words    []WordTimestamp `json:"words"`
	Language string          `json:"language"`
	Duration float64         `json:"duration"`
}

// Video is the final artifact of the pipeline.
type Video struct {
	URL          string     `json:"url"`
	AudioURL     string     `json:"audio_url"`
	SubtitlesURL string     `json:"subtitles_url,omitempty"`
	Transcript   Transcript `json:"transcript"`
	Duration     float64    `json:"duration"`
	FileSize     int64      `json:"file_size"`
	Cost         float64    `json:"cost"`
	Format       string     `json:"format"`
	Resolution   string     `json:"resolution"`
	SceneCount   int        `json:"scene_count"`
}
