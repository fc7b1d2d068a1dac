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

package cloud

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBlobStore writes objects under a directory. It backs local runs and
// tests; the API serves the directory when PublicBaseURL is set.
type LocalBlobStore struct {
	root    string
	baseURL string
}

func NewLocalBlobStore(root string, publicBaseURL string) (*LocalBlobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory %s: %w", abs, err)
	}
	return &LocalBlobStore{root: abs, baseURL: strings.TrimSuffix(publicBaseURL, "/")}, nil
}

func (l *LocalBlobStore) Root() string {
	return l.root
}

func (l *LocalBlobStore) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	dst := filepath.Join(l.root, filepath.FromSlash(name))
	if !strings.HasPrefix(dst, l.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: object name %q escapes the blob root", ErrUnsupportedURL, name)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", dst, err)
	}
	return ObjectURL{Scheme: "file", Name: filepath.ToSlash(dst)}.String(), nil
}

func (l *LocalBlobStore) Open(ctx context.Context, objectURL string) (io.ReadCloser, error) {
	o, err := ParseObjectURL(objectURL)
	if err != nil {
		return nil, err
	}
	if isRemote(o) {
		return openRemote(ctx, objectURL)
	}
	if o.Scheme != "file" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, objectURL)
	}
	f, err := os.Open(filepath.FromSlash(o.Name))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", objectURL, err)
	}
	return f, nil
}

// SignURL maps a file URL under the root onto PublicBaseURL. Without a base
// URL the file URL is returned unchanged.
func (l *LocalBlobStore) SignURL(_ context.Context, objectURL string, _ time.Duration) (string, error) {
	o, err := ParseObjectURL(objectURL)
	if err != nil {
		return "", err
	}
	if o.Scheme != "file" || l.baseURL == "" {
		return objectURL, nil
	}
	rel, err := filepath.Rel(l.root, filepath.FromSlash(o.Name))
	if err != nil || strings.HasPrefix(rel, "..") {
		return objectURL, nil
	}
	return l.baseURL + "/" + filepath.ToSlash(rel), nil
}
