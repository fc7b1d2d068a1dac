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

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/core/model"
)

// AssetDownload copies every bound scene asset and the narration track into
// the working directory. ffmpeg picks demuxers by extension for some inputs,
// so each file is renamed after its sniffed type. Downloads run one at a
// time, scenes first, and stop at the first failure.
type AssetDownload struct {
	cor.BaseCommand
	store cloud.BlobStore
}

func NewAssetDownload(name string, store cloud.BlobStore) *AssetDownload {
	out := &AssetDownload{BaseCommand: *cor.NewBaseCommand(name), store: store}
	out.WithParams(ParamRenderRequest, ParamRenderRequest)
	return out
}

func (c *AssetDownload) IsExecutable(context cor.Context) bool {
	req, ok := cor.Value[*model.RenderRequest](context, c.GetInputParam())
	return ok && context.GetContext() != nil && req.WorkingDir != ""
}

func (c *AssetDownload) Execute(context cor.Context) {
	req := context.Get(c.GetInputParam()).(*model.RenderRequest)
	ctx := context.GetContext()

	for _, scene := range req.Scenes {
		local, err := c.download(ctx, scene.AssetURL, req.WorkingDir, fmt.Sprintf("scene-%03d", scene.Order))
		if err != nil {
			context.AddError(c.GetName(), fmt.Errorf("scene %d: %w", scene.Order, err))
			return
		}
		scene.LocalPath = local
	}
	local, err := c.download(ctx, req.AudioURL, req.WorkingDir, "narration")
	if err != nil {
		context.AddError(c.GetName(), fmt.Errorf("narration: %w", err))
		return
	}
	req.AudioPath = local
	slog.DebugContext(ctx, "render inputs downloaded", "project_id", req.ProjectID, "scenes", len(req.Scenes))
}

func (c *AssetDownload) download(ctx context.Context, url, dir, base string) (string, error) {
	tmp := filepath.Join(dir, base+".part")
	n, err := cloud.CopyToFile(ctx, c.store, url, tmp)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("%s is empty", url)
	}
	local := filepath.Join(dir, base+extensionFor(tmp, url))
	if err := os.Rename(tmp, local); err != nil {
		return "", fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return local, nil
}

// extensionFor prefers the sniffed type and falls back to the URL's own
// extension.
func extensionFor(file, url string) string {
	kind, err := filetype.MatchFile(file)
	if err == nil && kind != filetype.Unknown && kind.Extension != "" {
		return "." + kind.Extension
	}
	if ext := path.Ext(strings.SplitN(url, "?", 2)[0]); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".bin"
}
