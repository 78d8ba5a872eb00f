// Package store persists values of one type under string keys.
//
// Every backend satisfies Store, so callers choose a Kind at startup and
// program only against the interface. Per-key backends (KindShelf,
// KindSQLite) commit each Set on its own; KindSnapshot keeps the whole
// mapping in memory between Open and Close and loses unclosed writes.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"
)

var (
	ErrClosed      = errors.New("store: not open")
	ErrUnknownKind = errors.New("store: unknown backend")
)

type Kind string

const (
	KindShelf    Kind = "shelf"
	KindSQLite   Kind = "sqlite"
	KindSnapshot Kind = "snapshot"
)

// Kinds lists the selectable backends.
var Kinds = []Kind{KindShelf, KindSQLite, KindSnapshot}

type Item[V any] struct {
	Key   string
	Value V
}

type Store[V any] interface {
	// Open acquires the backing file. It must be called once before use.
	Open(ctx context.Context) error

	// Close flushes pending writes and releases the file. Calling it a
	// second time returns ErrClosed.
	Close() error

	// Get returns ok == false, with a nil error, when key is absent.
	Get(ctx context.Context, key string) (value V, ok bool, err error)

	// Set replaces the whole value stored under key.
	Set(ctx context.Context, key string, value V) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Items returns every entry. Callers must not rely on the order.
	Items(ctx context.Context) ([]Item[V], error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

type Options struct {
	Kind Kind
	// Dir holds the backing file, named after Name plus a backend extension.
	Dir  string
	Name string
	// File overrides Dir/Name with an explicit path.
	File   string
	Logger *zap.Logger
}

// Path resolves the backing file for the selected kind.
func (o Options) Path() string {
	if o.File != "" {
		return o.File
	}
	ext := map[Kind]string{
		KindShelf:    ".db",
		KindSQLite:   ".sqlite",
		KindSnapshot: ".cbor",
	}[o.Kind]
	return filepath.Join(o.Dir, o.Name+ext)
}

// New returns an unopened store of the requested kind.
func New[V any](opts Options) (Store[V], error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("backend", string(opts.Kind)), zap.String("path", opts.Path()))

	switch opts.Kind {
	case KindShelf:
		return &Shelf[V]{path: opts.Path(), logger: logger}, nil
	case KindSQLite:
		return &SQLite[V]{path: opts.Path(), logger: logger}, nil
	case KindSnapshot:
		return &Snapshot[V]{path: opts.Path(), logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, opts.Kind)
	}
}

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q (choose from shelf, sqlite, snapshot)", ErrUnknownKind, s)
}

func encode[V any](v V) ([]byte, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	return data, nil
}

func decode[V any](data []byte) (V, error) {
	var v V
	if err := cbor.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("store: decode: %w", err)
	}
	return v, nil
}
