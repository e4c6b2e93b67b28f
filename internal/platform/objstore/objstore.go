// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package objstore provides a uniform client for S3-compatible object storage.

Mirava runs two buckets: a staging bucket holding just-uploaded, unprocessed
page images, and a permanent bucket holding published, optimized images that
readers fetch through the CDN. Both are accessed through the same [Store]
contract so the publication pipeline can be tested against in-memory fakes.

Core Responsibilities:

  - Listing: Prefix scans used to resolve staged page objects.
  - Transfer: Get/Put/Copy with content-type, cache directives, and metadata.
  - Deletion: Bounded batch removal with per-key failure reporting.

The concrete implementation wraps minio-go, which speaks the S3 wire protocol
against MinIO, Cloudflare R2, and AWS S3 interchangeably.
*/
package objstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Store.Stat] and [Store.Get] when the key does
// not exist in the bucket.
var ErrNotFound = errors.New("objstore: object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	// Key is the full object key within the bucket.
	Key string
	// Size is the object size in bytes.
	Size int64
	// ContentType is the stored MIME type.
	ContentType string
	// Metadata holds user-defined key/value pairs (lowercase keys).
	Metadata map[string]string
}

// PutOptions carries the write-time attributes for [Store.Put].
type PutOptions struct {
	// ContentType is the MIME type stored alongside the object.
	ContentType string
	// CacheControl is the HTTP cache directive served with the object.
	CacheControl string
	// Metadata holds arbitrary user-defined key/value pairs.
	Metadata map[string]string
}

// RemoveResult reports the outcome of deleting a single key in a batch.
type RemoveResult struct {
	Key string
	Err error
}

// # Storage Contract

// Store is the uniform operation set the publication pipeline needs from a
// single bucket. Two instances exist at runtime: staging and permanent.
type Store interface {

	/*
		ListPrefix returns every object under the given key prefix.

		Parameters:
		  - context: context.Context
		  - prefix: string (Trailing-slash directory-style prefix)

		Returns:
		  - []ObjectInfo: All matching objects (pagination handled internally)
		  - error: Transport failures
	*/
	ListPrefix(context context.Context, prefix string) ([]ObjectInfo, error)

	/*
		Stat returns metadata for a single key without fetching the body.

		Returns:
		  - ObjectInfo: Size, content type, and user metadata
		  - error: ErrNotFound if the key does not exist
	*/
	Stat(context context.Context, key string) (ObjectInfo, error)

	/*
		Get fetches the full object body and its metadata.

		Returns:
		  - []byte: The object bytes
		  - ObjectInfo: Accompanying metadata
		  - error: ErrNotFound if the key does not exist
	*/
	Get(context context.Context, key string) ([]byte, ObjectInfo, error)

	/*
		Put writes an object, overwriting any existing value at the key.

		Parameters:
		  - context: context.Context
		  - key: string (Destination key)
		  - data: []byte (Full object body)
		  - options: PutOptions (Content type, cache directive, metadata)

		Returns:
		  - error: Transport failures
	*/
	Put(context context.Context, key string, data []byte, options PutOptions) error

	/*
		Copy performs a server-side copy within the bucket.

		Returns:
		  - error: ErrNotFound if the source key does not exist
	*/
	Copy(context context.Context, sourceKey, destKey string) error

	/*
		RemoveBatch deletes the given keys, splitting into bounded batches.

		Partial failures never abort the rest of the batch; every key gets
		its own [RemoveResult].

		Returns:
		  - []RemoveResult: One entry per key that failed to delete
	*/
	RemoveBatch(context context.Context, keys []string) []RemoveResult
}
