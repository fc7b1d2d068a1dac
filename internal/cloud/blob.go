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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// ErrUnsupportedURL is returned when a store is asked to open a URL whose
// scheme it does not own.
var ErrUnsupportedURL = errors.New("unsupported object url")

// BlobStore persists generated media. Put returns a durable, store specific
// URL (gs://, s3:// or file://) that is what gets written into artifacts;
// SignURL turns it into something a browser can fetch.
type BlobStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, objectURL string) (io.ReadCloser, error)
	SignURL(ctx context.Context, objectURL string, ttl time.Duration) (string, error)
}

// ObjectURL is a parsed durable URL.
type ObjectURL struct {
	Scheme string
	Bucket string
	Name   string
}

func (o ObjectURL) String() string {
	if o.Scheme == "file" {
		return "file://" + o.Name
	}
	return o.Scheme + "://" + o.Bucket + "/" + o.Name
}

// ParseObjectURL splits gs://bucket/name, s3://bucket/name and
// file:///abs/path URLs. Any other scheme is returned with only Name set
// to the original string.
func ParseObjectURL(raw string) (ObjectURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ObjectURL{}, fmt.Errorf("parsing object url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "gs", "s3":
		name := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || name == "" {
			return ObjectURL{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, raw)
		}
		return ObjectURL{Scheme: u.Scheme, Bucket: u.Host, Name: name}, nil
	case "file":
		if u.Path == "" {
			return ObjectURL{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, raw)
		}
		return ObjectURL{Scheme: "file", Name: u.Path}, nil
	default:
		return ObjectURL{Scheme: u.Scheme, Name: raw}, nil
	}
}

// ObjectName joins the configured prefix with a project scoped name.
func ObjectName(prefix string, parts ...string) string {
	return strings.TrimPrefix(path.Join(append([]string{prefix}, parts...)...), "/")
}

// PutBytes uploads an in-memory payload.
func PutBytes(ctx context.Context, store BlobStore, name string, data []byte, contentType string) (string, error) {
	return store.Put(ctx, name, bytes.NewReader(data), int64(len(data)), contentType)
}

// CopyToFile downloads objectURL into dst and returns the number of bytes
// written.
func CopyToFile(ctx context.Context, store BlobStore, objectURL string, dst string) (int64, error) {
	r, err := store.Open(ctx, objectURL)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("copying %s to %s: %w", objectURL, dst, err)
	}
	return n, nil
}

// openRemote fetches provider hosted media (e.g. a model's download link)
// that never went through a BlobStore.
func openRemote(ctx context.Context, raw string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", raw, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading %s: unexpected status %s", raw, resp.Status)
	}
	return resp.Body, nil
}

func isRemote(o ObjectURL) bool {
	return o.Scheme == "http" || o.Scheme == "https"
}
