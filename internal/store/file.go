package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// File stores each slot as a plain text file in a directory.
type File struct {
	BasePath string
}

// NewFile creates a File store rooted at basePath, ".calc" when empty.
func NewFile(basePath string) *File {
	if basePath == "" {
		basePath = ".calc"
	}
	return &File{BasePath: basePath}
}

// path maps each slot to its own file; escaping keeps separators and dots
// inside the file name.
func (f *File) path(slot string) string {
	return filepath.Join(f.BasePath, url.PathEscape(slot)+".last")
}

func (f *File) LoadLastValue(ctx context.Context, slot string) (string, error) {
	if err := validSlot(slot); err != nil {
		return "", err
	}

	data, err := os.ReadFile(f.path(slot))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read value file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveLastValue writes through a temp file and a rename so a crash never
// leaves a half-written value behind.
func (f *File) SaveLastValue(ctx context.Context, slot, value string) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if err := os.MkdirAll(f.BasePath, 0o755); err != nil {
		return fmt.Errorf("ensure store directory: %w", err)
	}

	tmp, err := os.CreateTemp(f.BasePath, ".last-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write value file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close value file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(slot)); err != nil {
		return fmt.Errorf("replace value file: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }
