// Package flatfile persists a collection as a CSV file with a header row.
package flatfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/consultorio/turnos/internal/platform/snapshot"
)

// Codec converts between T and one CSV record.
type Codec[T any] interface {
	Header() []string
	Encode(item T) []string
	Decode(record []string) (T, error)
}

// Table is a snapshot.Store backed by a single CSV file.
type Table[T any] struct {
	path  string
	codec Codec[T]
	mu    sync.Mutex
}

// NewTable returns a Table stored at path.
func NewTable[T any](path string, codec Codec[T]) *Table[T] {
	return &Table[T]{path: path, codec: codec}
}

// Path returns the file location.
func (t *Table[T]) Path() string { return t.path }

// Load reads every record. A missing file yields snapshot.ErrAbsent.
func (t *Table[T]) Load(_ context.Context) ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, snapshot.ErrAbsent
		}
		return nil, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", t.path, err)
	}
	if want := t.codec.Header(); strings.Join(header, ",") != strings.Join(want, ",") {
		return nil, fmt.Errorf("unexpected header in %s: got %v, want %v", t.path, header, want)
	}

	items := []T{}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", t.path, err)
		}
		item, err := t.codec.Decode(rec)
		if err != nil {
			return nil, fmt.Errorf("decode %s line %d: %w", t.path, line, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Save replaces the file atomically: records go to a temp file in the same
// directory which is then renamed over the target.
func (t *Table[T]) Save(_ context.Context, items []T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.codec.Header()); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, item := range items {
		if err := w.Write(t.codec.Encode(item)); err != nil {
			tmp.Close()
			return fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("replace %s: %w", t.path, err)
	}
	return nil
}
