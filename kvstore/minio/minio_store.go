// Package minio provides a kvstore.Store backed by MinIO or any
// S3-compatible object storage reachable through the MinIO client.
package minio

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/hupe1980/formvault/kvstore"
	"github.com/minio/minio-go/v7"
)

// Store implements kvstore.Store for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO-backed store.
// rootPrefix is prepended to all keys (e.g. "vault/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		// The MinIO client defers existence errors to the first read.
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, kvstore.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(key), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "QuotaExceeded" {
			return kvstore.ErrQuotaExceeded
		}
		return err
	}
	return nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(key), minio.RemoveObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil // already gone
		}
		return err
	}
	return nil
}
