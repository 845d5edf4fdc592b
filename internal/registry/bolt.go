package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketInstances = []byte("instances")

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the registry database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketInstances)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Create stores a new instance record.
func (s *BoltStore) Create(ctx context.Context, rec *Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInstances)
		key := []byte(rec.ID)

		if b.Get(key) != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, rec.ID)
		}

		now := time.Now()
		rec.CreatedAt = now
		rec.UpdatedAt = now

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode instance record: %w", err)
		}
		return b.Put(key, data)
	})
}

// Get retrieves a record by instance id.
func (s *BoltStore) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketInstances).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// Update replaces an existing record.
func (s *BoltStore) Update(ctx context.Context, rec *Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInstances)
		key := []byte(rec.ID)

		if b.Get(key) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
		}

		rec.UpdatedAt = time.Now()

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode instance record: %w", err)
		}
		return b.Put(key, data)
	})
}

// Delete removes a record by instance id.
func (s *BoltStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInstances)
		key := []byte(id)

		if b.Get(key) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return b.Delete(key)
	})
}

// List returns all records sorted by key.
func (s *BoltStore) List(ctx context.Context) ([]*Record, error) {
	var recs []*Record

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInstances).ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode instance record %s: %w", string(k), err)
			}
			recs = append(recs, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return recs, nil
}
