// Package storage provides the durable key/value slot the CLI keeps between
// invocations. It plays the role a browser's local storage plays for a web
// client: string values under string keys, scoped to the device.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when a key has no value
var ErrNotFound = errors.New("storage: key not found")

// Backend is a durable string key/value store
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// FileBackend keeps all keys in a single JSON object on disk
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend creates a backend stored at path
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Get returns the value stored under key
func (b *FileBackend) Get(key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read()
	if err != nil {
		return "", err
	}
	value, ok := entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores value under key
func (b *FileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read()
	if err != nil {
		// An unreadable file is replaced rather than blocking every write.
		entries = map[string]string{}
	}
	entries[key] = value
	return b.write(entries)
}

// Remove deletes key; removing a missing key is not an error
func (b *FileBackend) Remove(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		entries = map[string]string{}
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return b.write(entries)
}

func (b *FileBackend) read() (map[string]string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	entries := map[string]string{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", b.path, err)
	}
	return entries, nil
}

// write replaces the file atomically via a temp file in the same directory
func (b *FileBackend) write(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".storage-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set storage permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return os.Rename(tmp.Name(), b.path)
}

// MemoryBackend is an in-process Backend, used in tests
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]string

	// SetErr, when non-nil, is returned by every Set call
	SetErr error
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]string{}}
}

// Get returns the value stored under key
func (m *MemoryBackend) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key
func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.entries[key] = value
	return nil
}

// Remove deletes key
func (m *MemoryBackend) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Has reports whether key is present
func (m *MemoryBackend) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}
