package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrModelNotFound is returned when no model is stored under a name.
	ErrModelNotFound = errors.New("model not found")
	// ErrInvalidName is returned for names that cannot safely map to storage.
	ErrInvalidName = errors.New("invalid model name")
	// ErrUnknownBackend is returned by Open for unsupported backends.
	ErrUnknownBackend = errors.New("unknown store backend")
)

const (
	// BackendDir stores each model as a JSON file in a directory.
	BackendDir = "dir"
	// BackendSQLite stores every model in one SQLite database.
	BackendSQLite = "sqlite"
)

// ModelInfo describes a stored model without loading it.
type ModelInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Updated time.Time `json:"updated"`
}

// Store persists serialized models by name.
type Store interface {
	// List returns every stored model, sorted by name.
	List(ctx context.Context) ([]ModelInfo, error)
	// Exists reports whether a model is stored under name.
	Exists(ctx context.Context, name string) (bool, error)
	// Load returns the serialized model stored under name.
	Load(ctx context.Context, name string) ([]byte, error)
	// Save creates or replaces the model stored under name.
	Save(ctx context.Context, name string, data []byte) error
	// Delete removes the model stored under name.
	Delete(ctx context.Context, name string) error
	// Close releases any resources held by the store.
	Close() error
}

// Open returns a Store for backend rooted at path: a directory for
// BackendDir, a database file for BackendSQLite.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendDir:
		return NewDirStore(path)
	case BackendSQLite:
		return OpenSQLStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// ValidateName rejects names that are empty or could escape the store.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}
