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
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBlobStore is the S3 compatible alternative to GCS for deployments
// outside Google Cloud.
type MinioBlobStore struct {
	client *minio.Client
	bucket string

	once      sync.Once
	bucketErr error
}

func NewMinioClient(cfg Minio) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to minio at %s: %w", cfg.Endpoint, err)
	}
	return client, nil
}

func NewMinioBlobStore(client *minio.Client, bucket string) *MinioBlobStore {
	return &MinioBlobStore{client: client, bucket: bucket}
}

func (m *MinioBlobStore) ensureBucket(ctx context.Context) error {
	m.once.Do(func() {
		exists, err := m.client.BucketExists(ctx, m.bucket)
		if err != nil {
			m.bucketErr = fmt.Errorf("checking bucket %s: %w", m.bucket, err)
			return
		}
		if !exists {
			if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
				m.bucketErr = fmt.Errorf("creating bucket %s: %w", m.bucket, err)
				return
			}
			slog.Info("created minio bucket", "bucket", m.bucket)
		}
	})
	return m.bucketErr
}

func (m *MinioBlobStore) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if err := m.ensureBucket(ctx); err != nil {
		return "", err
	}
	if size <= 0 {
		size = -1
	}
	_, err := m.client.PutObject(ctx, m.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("uploading %s to minio: %w", name, err)
	}
	return ObjectURL{Scheme: "s3", Bucket: m.bucket, Name: name}.String(), nil
}

func (m *MinioBlobStore) Open(ctx context.Context, objectURL string) (io.ReadCloser, error) {
	o, err := ParseObjectURL(objectURL)
	if err != nil {
		return nil, err
	}
	if isRemote(o) {
		return openRemote(ctx, objectURL)
	}
	if o.Scheme != "s3" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, objectURL)
	}
	obj, err := m.client.GetObject(ctx, o.Bucket, o.Name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", objectURL, err)
	}
	return obj, nil
}

func (m *MinioBlobStore) SignURL(ctx context.Context, objectURL string, ttl time.Duration) (string, error) {
	o, err := ParseObjectURL(objectURL)
	if err != nil {
		return "", err
	}
	if isRemote(o) {
		return objectURL, nil
	}
	if o.Scheme != "s3" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, objectURL)
	}
	u, err := m.client.PresignedGetObject(ctx, o.Bucket, o.Name, ttl, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", objectURL, err)
	}
	return u.String(), nil
}
