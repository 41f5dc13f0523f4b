// Package credstore persists the session credential across process restarts.
//
// A Store holds at most one credential. Absence is reported as an empty
// string with a nil error.
package credstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the durable credential slot.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the store for backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(filepath.Join(dir, "credential")), nil
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, "taskdesk.db"))
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", backend)
	}
}

// DefaultDir returns $TASKDESK_HOME, or ~/.taskdesk.
func DefaultDir() (string, error) {
	if dir := os.Getenv("TASKDESK_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".taskdesk"), nil
}

// MemoryStore keeps the credential in process memory. Used in tests and
// with the memory backend.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
