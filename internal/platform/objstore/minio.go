// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// removeBatchSize bounds the number of keys submitted per delete batch.
// S3 caps multi-object deletes at 1000 keys per request.
const removeBatchSize = 1000

// # Client Construction

// Connect establishes an S3 client against the configured endpoint.
//
// # Parameters
//   - endpoint: Host[:port] of the S3-compatible service (no scheme).
//   - region: Signing region ("auto" works for R2 and MinIO).
//   - accessKey, secretKey: Static credentials.
//   - useSSL: Whether to speak HTTPS.
//   - logger: Structured logger for connection events.
func Connect(endpoint, region, accessKey, secretKey string, useSSL bool, logger *slog.Logger) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: failed to create client for %s: %w", endpoint, err)
	}

	logger.Info("objstore client created",
		slog.String("endpoint", endpoint),
		slog.String("region", region),
	)

	return client, nil
}

// Bucket implements [Store] over a single bucket of a minio client.
type Bucket struct {
	client *minio.Client
	bucket string
}

// NewBucket binds a [Store] implementation to one bucket.
func NewBucket(client *minio.Client, bucket string) *Bucket {
	return &Bucket{client: client, bucket: bucket}
}

// Name returns the underlying bucket name. Used for logging only.
func (b *Bucket) Name() string { return b.bucket }

// Ping verifies the bucket exists and is reachable.
func (b *Bucket) Ping(context context.Context) error {
	exists, err := b.client.BucketExists(context, b.bucket)
	if err != nil {
		return fmt.Errorf("objstore: bucket check failed for %s: %w", b.bucket, err)
	}
	if !exists {
		return fmt.Errorf("objstore: bucket %s does not exist", b.bucket)
	}
	return nil
}

// # Store Implementation

// ListPrefix returns every object under the prefix. minio-go paginates the
// underlying ListObjectsV2 calls internally; results stream over a channel.
func (b *Bucket) ListPrefix(context context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	listing := b.client.ListObjects(context, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for entry := range listing {
		if entry.Err != nil {
			return nil, fmt.Errorf("objstore: failed to list prefix %q: %w", prefix, entry.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:         entry.Key,
			Size:        entry.Size,
			ContentType: entry.ContentType,
		})
	}

	return objects, nil
}

// Stat returns object metadata without fetching the body.
func (b *Bucket) Stat(context context.Context, key string) (ObjectInfo, error) {
	info, err := b.client.StatObject(context, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, wrapObjectError(err, key)
	}
	return fromMinioInfo(info), nil
}

// Get fetches the full object body.
func (b *Bucket) Get(context context.Context, key string) ([]byte, ObjectInfo, error) {
	object, err := b.client.GetObject(context, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, wrapObjectError(err, key)
	}
	defer object.Close()

	// Stat through the reader surfaces NoSuchKey before reading.
	info, err := object.Stat()
	if err != nil {
		return nil, ObjectInfo{}, wrapObjectError(err, key)
	}

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("objstore: failed to read object %q: %w", key, err)
	}

	return data, fromMinioInfo(info), nil
}

// Put writes an object with the given content type, cache directive, and
// user metadata.
func (b *Bucket) Put(context context.Context, key string, data []byte, options PutOptions) error {
	_, err := b.client.PutObject(context, b.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  options.ContentType,
			CacheControl: options.CacheControl,
			UserMetadata: options.Metadata,
		},
	)
	if err != nil {
		return fmt.Errorf("objstore: failed to put object %q: %w", key, err)
	}
	return nil
}

// Copy performs a server-side copy inside the bucket.
func (b *Bucket) Copy(context context.Context, sourceKey, destKey string) error {
	_, err := b.client.CopyObject(context,
		minio.CopyDestOptions{Bucket: b.bucket, Object: destKey},
		minio.CopySrcOptions{Bucket: b.bucket, Object: sourceKey},
	)
	if err != nil {
		return wrapObjectError(err, sourceKey)
	}
	return nil
}

// RemoveBatch deletes keys in bounded batches, collecting per-key failures.
func (b *Bucket) RemoveBatch(context context.Context, keys []string) []RemoveResult {
	var failures []RemoveResult

	for start := 0; start < len(keys); start += removeBatchSize {
		end := start + removeBatchSize
		if end > len(keys) {
			end = len(keys)
		}

		objectsCh := make(chan minio.ObjectInfo, end-start)
		for _, key := range keys[start:end] {
			objectsCh <- minio.ObjectInfo{Key: key}
		}
		close(objectsCh)

		for removeErr := range b.client.RemoveObjects(context, b.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
			failures = append(failures, RemoveResult{
				Key: removeErr.ObjectName,
				Err: removeErr.Err,
			})
		}
	}

	return failures
}

// # Helpers

// fromMinioInfo maps the minio metadata shape onto the package type,
// lowercasing user metadata keys for predictable lookups.
func fromMinioInfo(info minio.ObjectInfo) ObjectInfo {
	metadata := make(map[string]string, len(info.UserMetadata))
	for key, value := range info.UserMetadata {
		metadata[strings.ToLower(key)] = value
	}
	return ObjectInfo{
		Key:         info.Key,
		Size:        info.Size,
		ContentType: info.ContentType,
		Metadata:    metadata,
	}
}

// wrapObjectError maps the S3 NoSuchKey family onto [ErrNotFound].
func wrapObjectError(err error, key string) error {
	response := minio.ToErrorResponse(err)
	if response.Code == "NoSuchKey" || response.StatusCode == 404 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("objstore: operation on %q failed: %w", key, err)
}
