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

package providers

import (
	"context"
	"fmt"
	"io"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-shorts-studio/internal/cloud"
)

// mediaSink uploads generated bytes under a project scoped name.
type mediaSink struct {
	store  cloud.BlobStore
	prefix string
}

func (s mediaSink) put(ctx context.Context, projectID, kind, name string, data []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = sniffMIME(data)
	}
	return cloud.PutBytes(ctx, s.store, cloud.ObjectName(s.prefix, "projects", projectID, kind, name), data, mimeType)
}

func (s mediaSink) read(ctx context.Context, objectURL string) ([]byte, string, error) {
	r, err := s.store.Open(ctx, objectURL)
	if err != nil {
		return nil, "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", objectURL, err)
	}
	return data, sniffMIME(data), nil
}

func sniffMIME(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream"
	}
	return kind.MIME.Value
}

func extensionOf(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	}
	return ".bin"
}
