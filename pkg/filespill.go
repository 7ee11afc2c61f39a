// Package pkg provides reusable utilities for mutate.
package pkg

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// FileSpill buffers an append-only sequence of items on disk so large
// result sets do not have to be held in memory.
type FileSpill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	// Range decodes the items in append order and calls fn for each one.
	// Iteration stops at the first error returned by fn.
	Range(fn func(index uint64, item T) error) error
	// Close releases the spill and deletes its backing file.
	Close() error
}

type fileSpill[T any] struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *gob.Encoder
	length  uint64
	closed  bool
}

// NewFileSpill creates a spill file in dir, or in the system temporary
// directory when dir is empty.
func NewFileSpill[T any](dir string) (FileSpill[T], error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			slog.Error("Failed to create spill directory", "path", dir, "error", err)
			return nil, fmt.Errorf("failed to create spill directory: %w", err)
		}
	}

	file, err := os.CreateTemp(dir, "mutate-spill-*.gob")
	if err != nil {
		slog.Error("Failed to create spill file", "dir", dir, "error", err)
		return nil, fmt.Errorf("failed to create spill file: %w", err)
	}

	slog.Debug("Created spill", "path", file.Name())

	return &fileSpill[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

func (f *fileSpill[T]) Path() string {
	return f.path
}

func (f *fileSpill[T]) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.length
}

func (f *fileSpill[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.appendLocked(item)
}

func (f *fileSpill[T]) AppendBatch(items []T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, item := range items {
		if err := f.appendLocked(item); err != nil {
			return err
		}
	}

	return nil
}

func (f *fileSpill[T]) appendLocked(item T) error {
	if f.closed {
		return fmt.Errorf("spill %s is closed", f.path)
	}

	if err := f.encoder.Encode(item); err != nil {
		slog.Error("Failed to encode spill item", "path", f.path, "index", f.length, "error", err)
		return fmt.Errorf("failed to encode item %d: %w", f.length, err)
	}

	f.length++

	return nil
}

func (f *fileSpill[T]) Range(fn func(index uint64, item T) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("spill %s is closed", f.path)
	}

	file, err := os.Open(f.path)
	if err != nil {
		slog.Error("Failed to open spill for reading", "path", f.path, "error", err)
		return fmt.Errorf("failed to open spill: %w", err)
	}

	defer func() { _ = file.Close() }()

	decoder := gob.NewDecoder(file)

	for i := range f.length {
		// gob leaves absent fields untouched, so every item decodes into a
		// fresh value.
		var item T
		if err := decoder.Decode(&item); err != nil {
			slog.Error("Failed to decode spill item", "path", f.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

func (f *fileSpill[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true

	closeErr := f.file.Close()
	removeErr := os.Remove(f.path)

	if closeErr != nil {
		return fmt.Errorf("failed to close spill: %w", closeErr)
	}

	if removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("failed to remove spill: %w", removeErr)
	}

	slog.Debug("Closed spill", "path", f.path, "length", f.length)

	return nil
}
