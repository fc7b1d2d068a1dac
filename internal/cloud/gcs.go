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
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

// GCSObject identifies an object in a bucket.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

// GCSBlobStore keeps media in a single bucket. Signed URLs are produced
// through the IAM Credentials API so no private key has to live on the host.
type GCSBlobStore struct {
	client      *storage.Client
	iam         *credentials.IamCredentialsClient
	bucket      string
	signerEmail string
}

func NewGCSBlobStore(client *storage.Client, iam *credentials.IamCredentialsClient, bucket string, signerEmail string) *GCSBlobStore {
	return &GCSBlobStore{client: client, iam: iam, bucket: bucket, signerEmail: signerEmail}
}

func (g *GCSBlobStore) Put(ctx context.Context, name string, r io.Reader, _ int64, contentType string) (string, error) {
	obj := GCSObject{Bucket: g.bucket, Name: name, MIMEType: contentType}
	w := g.client.Bucket(obj.Bucket).Object(obj.Name).NewWriter(ctx)
	w.ContentType = obj.MIMEType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("writing gs://%s/%s: %w", obj.Bucket, obj.Name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing gs://%s/%s: %w", obj.Bucket, obj.Name, err)
	}
	return ObjectURL{Scheme: "gs", Bucket: obj.Bucket, Name: obj.Name}.String(), nil
}

func (g *GCSBlobStore) Open(ctx context.Context, objectURL string) (io.ReadCloser, error) {
	o, err := ParseObjectURL(objectURL)
	if err != nil {
		return nil, err
	}
	if isRemote(o) {
		return openRemote(ctx, objectURL)
	}
	if o.Scheme != "gs" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, objectURL)
	}
	r, err := g.client.Bucket(o.Bucket).Object(o.Name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", objectURL, err)
	}
	return r, nil
}

// SignURL returns a V4 GET URL valid for ttl. Remote URLs are returned as is.
func (g *GCSBlobStore) SignURL(ctx context.Context, objectURL string, ttl time.Duration) (string, error) {
	o, err := ParseObjectURL(objectURL)
	if err != nil {
		return "", err
	}
	if isRemote(o) {
		return objectURL, nil
	}
	if o.Scheme != "gs" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, objectURL)
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	}
	if g.iam != nil && g.signerEmail != "" {
		opts.GoogleAccessID = g.signerEmail
		opts.SignBytes = func(b []byte) ([]byte, error) {
			resp, err := g.iam.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", g.signerEmail),
				Payload: b,
			})
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		}
	}
	u, err := g.client.Bucket(o.Bucket).SignedURL(o.Name, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", o.Bucket, o.Name, err)
	}
	return u, nil
}
