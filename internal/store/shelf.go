package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	valuesBucket = []byte("values")
	orderBucket  = []byte("order")
	indexBucket  = []byte("index")
)

// Shelf keeps one bbolt entry per key. Each Set is committed in its own
// transaction, so writes survive a killed process.
//
// Insertion order is kept in a sequence-keyed bucket next to the values.
type Shelf[V any] struct {
	path   string
	db     *bolt.DB
	logger *zap.Logger
}

var _ Store[struct{}] = (*Shelf[struct{}])(nil)

func (s *Shelf[V]) Open(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("store: open %s: %w", s.path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{valuesBucket, orderBucket, indexBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("store: init buckets: %w", err)
	}
	s.db = db
	s.logger.Debug("store opened")
	return nil
}

func (s *Shelf[V]) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	s.logger.Debug("store closed")
	return nil
}

func (s *Shelf[V]) Get(_ context.Context, key string) (V, bool, error) {
	var (
		value V
		found bool
	)
	if s.db == nil {
		return value, false, ErrClosed
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(valuesBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		v, err := decode[V](data)
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	})
	return value, found, err
}

func (s *Shelf[V]) Set(_ context.Context, key string, value V) error {
	if s.db == nil {
		return ErrClosed
	}
	data, err := encode(value)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(indexBucket)
		if index.Get([]byte(key)) == nil {
			order := tx.Bucket(orderBucket)
			seq, err := order.NextSequence()
			if err != nil {
				return err
			}
			k := seqKey(seq)
			if err := order.Put(k, []byte(key)); err != nil {
				return err
			}
			if err := index.Put([]byte(key), k); err != nil {
				return err
			}
		}
		return tx.Bucket(valuesBucket).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

func (s *Shelf[V]) Delete(_ context.Context, key string) error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(indexBucket)
		if k := index.Get([]byte(key)); k != nil {
			if err := tx.Bucket(orderBucket).Delete(k); err != nil {
				return err
			}
			if err := index.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return tx.Bucket(valuesBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	return nil
}

func (s *Shelf[V]) Items(_ context.Context) ([]Item[V], error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	var items []Item[V]
	err := s.db.View(func(tx *bolt.Tx) error {
		values := tx.Bucket(valuesBucket)
		return tx.Bucket(orderBucket).ForEach(func(_, key []byte) error {
			data := values.Get(key)
			if data == nil {
				return nil
			}
			v, err := decode[V](data)
			if err != nil {
				return err
			}
			items = append(items, Item[V]{Key: string(key), Value: v})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: items: %w", err)
	}
	return items, nil
}

func (s *Shelf[V]) Clear(_ context.Context) error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{valuesBucket, orderBucket, indexBucket} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
