package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
)

const modelExt = ".json"

// DirStore keeps each model in "<dir>/<name>.json".
type DirStore struct {
	dir    string
	logger *slog.Logger
}

// NewDirStore returns a DirStore rooted at dir, creating the directory if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create model directory: %w", err)
	}
	return &DirStore{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *DirStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Dir returns the directory the store is rooted at.
func (s *DirStore) Dir() string {
	return s.dir
}

// Path returns the file a model named name is stored in.
func (s *DirStore) Path(name string) string {
	return filepath.Join(s.dir, name+modelExt)
}

func (s *DirStore) List(_ context.Context) ([]ModelInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("could not read model directory: %w", err)
	}

	models := make([]ModelInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != modelExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed since ReadDir
		}
		models = append(models, ModelInfo{
			Name:    strings.TrimSuffix(entry.Name(), modelExt),
			Size:    info.Size(),
			Updated: info.ModTime(),
		})
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].Name < models[j].Name
	})
	return models, nil
}

func (s *DirStore) Exists(_ context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	info, err := os.Stat(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *DirStore) Load(_ context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		return nil, fmt.Errorf("could not read model %q: %w", name, err)
	}
	return data, nil
}

func (s *DirStore) Save(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := atomic.WriteFile(s.Path(name), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("could not write model %q: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.String("path", s.Path(name)),
		slog.Int("bytes", len(data)),
	)
	return nil
}

func (s *DirStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		return fmt.Errorf("could not delete model %q: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Model removed", slog.String("model_name", name))
	return nil
}

func (s *DirStore) Close() error {
	return nil
}
