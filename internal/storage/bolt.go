package storage

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt implements Provider on a bbolt file: one bucket per store name.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open bolt: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Get copies the value out of the read transaction.
func (b *Bolt) Get(store, key string) ([]byte, error) {
	if err := validName("store", store); err != nil {
		return nil, err
	}
	if err := validName("key", key); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(store))
		if bucket == nil {
			return ErrNotExist
		}
		v := bucket.Get([]byte(key))
		if v == nil {
			return ErrNotExist
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put writes the value in one update transaction.
func (b *Bolt) Put(store, key string, value []byte) error {
	if err := validName("store", store); err != nil {
		return err
	}
	if err := validName("key", key); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(store))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("storage: put %s/%s: %w", store, key, err)
	}
	return nil
}

// Delete removes the key if its bucket exists.
func (b *Bolt) Delete(store, key string) error {
	if err := validName("store", store); err != nil {
		return err
	}
	if err := validName("key", key); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(store))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", store, key, err)
	}
	return nil
}

// Close closes the bbolt file.
func (b *Bolt) Close() error {
	return b.db.Close()
}
