package kvstore

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("formvault")

// BoltStore implements Store on top of a bbolt database file.
//
// All keys live in a single bucket, so the whole vault is one file that can
// be copied or backed up as a unit.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get returns the value stored under key.
func (s *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction.
		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value under key.
func (s *BoltStore) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), value)
	})
}

// Delete removes the key.
func (s *BoltStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
