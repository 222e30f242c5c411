package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ClientOptions builds the Cloud Storage client options. An empty
// credentialsFile falls back to Application Default Credentials. A non-empty
// endpoint points the client at an emulator or private endpoint and
// disables authentication when no credentials file is given.
func ClientOptions(credentialsFile, endpoint string) []option.ClientOption {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
		if credentialsFile == "" {
			opts = append(opts, option.WithoutAuthentication())
		}
	}
	return opts
}

// GCSStore keeps images as objects in a Cloud Storage bucket, optionally
// under a name prefix.
type GCSStore struct {
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSStore returns a store writing to bucket on the given client.
func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{bucket: client.Bucket(bucket), prefix: prefix}
}

func (s *GCSStore) objectName(name string) string {
	return s.prefix + name
}

// Save uploads data under its content name. An existing object with the same
// name is overwritten with identical bytes.
func (s *GCSStore) Save(ctx context.Context, data []byte) (string, error) {
	name := ContentName(data)

	w := s.bucket.Object(s.objectName(name)).NewWriter(ctx)
	w.ContentType = "image/jpeg"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("imagestore: failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("imagestore: failed to finalize upload of %s: %w", name, err)
	}
	return name, nil
}

func (s *GCSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	r, err := s.bucket.Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("imagestore: failed to read %s: %w", name, err)
	}
	return r, nil
}
