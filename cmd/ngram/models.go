package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/CTAG07/ngram/pkg/ngram"
	"github.com/CTAG07/ngram/pkg/store"
)

var (
	errModelExists = errors.New("model already exists")
	errNoSources   = errors.New("at least one model name is required")
)

// feedFunc adds training text to a Builder.
type feedFunc func(b *ngram.Builder) error

// fromFile feeds the file at path.
func fromFile(path string) feedFunc {
	return func(b *ngram.Builder) error {
		return b.AddFromFile(path)
	}
}

// ModelService runs the train, tune, merge and generate workflows against a
// store. Mutations hold mu so concurrent API requests never interleave a
// load-modify-save cycle.
type ModelService struct {
	store  store.Store
	logger *slog.Logger
	mu     sync.Mutex
}

// NewModelService creates a ModelService backed by st.
func NewModelService(st store.Store, logger *slog.Logger) *ModelService {
	return &ModelService{store: st, logger: logger}
}

// List returns the stored models.
func (s *ModelService) List(ctx context.Context) ([]store.ModelInfo, error) {
	return s.store.List(ctx)
}

// Export returns the serialized model stored under name.
func (s *ModelService) Export(ctx context.Context, name string) ([]byte, error) {
	return s.store.Load(ctx, name)
}

// Delete removes the model stored under name.
func (s *ModelService) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, name)
}

// Train builds a new model of order n from feed and saves it under name.
// It fails with errModelExists when name is already taken.
func (s *ModelService) Train(ctx context.Context, name string, n int, feed feedFunc) (ngram.ModelStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := store.ValidateName(name); err != nil {
		return ngram.ModelStats{}, err
	}
	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return ngram.ModelStats{}, err
	}
	if exists {
		return ngram.ModelStats{}, fmt.Errorf("%w: %q", errModelExists, name)
	}

	b, err := ngram.NewBuilder(n)
	if err != nil {
		return ngram.ModelStats{}, err
	}
	if err = feed(b); err != nil {
		return ngram.ModelStats{}, err
	}
	// A model without context keys could never be loaded again.
	if b.Stats().Contexts == 0 {
		return ngram.ModelStats{}, fmt.Errorf("%w: source holds fewer than %d tokens", ngram.ErrEmptyModel, n)
	}
	if err = s.save(ctx, name, b); err != nil {
		return ngram.ModelStats{}, err
	}
	s.logger.Info("Trained model", "name", name, "n", n)
	return b.Stats(), nil
}

// Tune loads the model stored under name, adds the text from feed and saves it back.
func (s *ModelService) Tune(ctx context.Context, name string, feed feedFunc) (ngram.ModelStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.loadBuilder(ctx, name)
	if err != nil {
		return ngram.ModelStats{}, err
	}
	if err = feed(b); err != nil {
		return ngram.ModelStats{}, err
	}
	if err = s.save(ctx, name, b); err != nil {
		return ngram.ModelStats{}, err
	}
	s.logger.Info("Tuned model", "name", name)
	return b.Stats(), nil
}

// Merge combines the models stored under names into a new model saved as into.
func (s *ModelService) Merge(ctx context.Context, names []string, into string) (ngram.ModelStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(names) == 0 {
		return ngram.ModelStats{}, errNoSources
	}
	if err := store.ValidateName(into); err != nil {
		return ngram.ModelStats{}, err
	}
	exists, err := s.store.Exists(ctx, into)
	if err != nil {
		return ngram.ModelStats{}, err
	}
	if exists {
		return ngram.ModelStats{}, fmt.Errorf("%w: %q", errModelExists, into)
	}

	var merged *ngram.Builder
	for _, name := range names {
		b, err := s.loadBuilder(ctx, name)
		if err != nil {
			return ngram.ModelStats{}, err
		}
		if merged == nil {
			merged = b
			continue
		}
		if merged, err = merged.Merge(b); err != nil {
			return ngram.ModelStats{}, fmt.Errorf("merging %q: %w", name, err)
		}
	}
	if err = s.save(ctx, into, merged); err != nil {
		return ngram.ModelStats{}, err
	}
	s.logger.Info("Merged models", "sources", names, "into", into)
	return merged.Stats(), nil
}

// Stats summarizes the model stored under name.
func (s *ModelService) Stats(ctx context.Context, name string) (ngram.ModelStats, error) {
	data, err := s.store.Load(ctx, name)
	if err != nil {
		return ngram.ModelStats{}, err
	}
	m, err := ngram.DecodeModel(data)
	if err != nil {
		return ngram.ModelStats{}, fmt.Errorf("decoding %q: %w", name, err)
	}
	return m.Stats(), nil
}

// GenerateRequest describes one generation run.
type GenerateRequest struct {
	Start  string  `json:"start"`
	Length int     `json:"length"`
	Seed   *uint64 `json:"seed,omitempty"`
}

// GenerateResult holds the seed context and the tokens generated after it.
type GenerateResult struct {
	Seed   []string `json:"seed"`
	Tokens []string `json:"tokens"`
	Text   string   `json:"text"`
}

// Generate loads the models stored under names into one Generator and
// produces req.Length tokens. An empty req.Start picks a random context key.
func (s *ModelService) Generate(ctx context.Context, names []string, req GenerateRequest) (GenerateResult, error) {
	if len(names) == 0 {
		return GenerateResult{}, errNoSources
	}

	var opts []ngram.GeneratorOption
	if req.Seed != nil {
		opts = append(opts, ngram.WithSeed(*req.Seed))
	}
	g := ngram.NewGenerator(opts...)
	for _, name := range names {
		data, err := s.store.Load(ctx, name)
		if err != nil {
			return GenerateResult{}, err
		}
		if err = g.Load(data); err != nil {
			return GenerateResult{}, fmt.Errorf("loading %q: %w", name, err)
		}
	}

	var seed []string
	if req.Start != "" {
		seed = ngram.Tokenize(req.Start)
	} else {
		var err error
		if seed, err = g.RandomSeed(); err != nil {
			return GenerateResult{}, err
		}
	}
	if err := g.Start(seed); err != nil {
		return GenerateResult{}, err
	}
	tokens, err := g.Generate(req.Length)
	if err != nil {
		return GenerateResult{}, err
	}
	s.logger.Debug("Generated text", "models", names, "length", len(tokens))
	return GenerateResult{
		Seed:   seed,
		Tokens: tokens,
		Text:   ngram.Detokenize(append(slices.Clone(seed), tokens...)),
	}, nil
}

func (s *ModelService) loadBuilder(ctx context.Context, name string) (*ngram.Builder, error) {
	data, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	b, err := ngram.LoadBuilder(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", name, err)
	}
	return b, nil
}

func (s *ModelService) save(ctx context.Context, name string, b *ngram.Builder) error {
	data, err := b.Serialize()
	if err != nil {
		return err
	}
	return s.store.Save(ctx, name, data)
}
