package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"
)

// Snapshot loads the whole mapping on Open and writes it back as one CBOR
// document on Close. Nothing touches the disk in between, so a process
// that dies before Close loses the session's writes.
//
// Values are held encoded, so Get hands out copies just like the per-key
// backends do.
type Snapshot[V any] struct {
	path   string
	data   map[string]cbor.RawMessage
	open   bool
	logger *zap.Logger
}

var _ Store[struct{}] = (*Snapshot[struct{}])(nil)

func (s *Snapshot[V]) Open(_ context.Context) error {
	s.data = make(map[string]cbor.RawMessage)
	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("store: read %s: %w", s.path, err)
	case len(raw) > 0:
		if err := cbor.Unmarshal(raw, &s.data); err != nil {
			return fmt.Errorf("store: decode %s: %w", s.path, err)
		}
	}
	s.open = true
	s.logger.Debug("store opened", zap.Int("entries", len(s.data)))
	return nil
}

// Close writes the snapshot to a temporary file and renames it over the
// previous one, so a failed write never truncates existing data.
func (s *Snapshot[V]) Close() error {
	if !s.open {
		return ErrClosed
	}
	s.open = false

	raw, err := cbor.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store: replace snapshot: %w", err)
	}
	s.logger.Debug("store closed", zap.Int("entries", len(s.data)))
	return nil
}

func (s *Snapshot[V]) Get(_ context.Context, key string) (V, bool, error) {
	if !s.open {
		var zero V
		return zero, false, ErrClosed
	}
	raw, ok := s.data[key]
	if !ok {
		var zero V
		return zero, false, nil
	}
	v, err := decode[V](raw)
	if err != nil {
		var zero V
		return zero, false, err
	}
	return v, true, nil
}

func (s *Snapshot[V]) Set(_ context.Context, key string, value V) error {
	if !s.open {
		return ErrClosed
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	s.data[key] = raw
	return nil
}

func (s *Snapshot[V]) Delete(_ context.Context, key string) error {
	if !s.open {
		return ErrClosed
	}
	delete(s.data, key)
	return nil
}

// Items returns entries sorted by key.
func (s *Snapshot[V]) Items(_ context.Context) ([]Item[V], error) {
	if !s.open {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]Item[V], 0, len(keys))
	for _, k := range keys {
		v, err := decode[V](s.data[k])
		if err != nil {
			return nil, err
		}
		items = append(items, Item[V]{Key: k, Value: v})
	}
	return items, nil
}

func (s *Snapshot[V]) Clear(_ context.Context) error {
	if !s.open {
		return ErrClosed
	}
	clear(s.data)
	return nil
}
