package ngram

import (
	"fmt"
	"io"
	"os"
)

// Builder accumulates a Model from training text for a fixed order n.
type Builder struct {
	model     *Model
	tokenizer Tokenizer
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithTokenizer replaces the default tokenizer used by AddSource.
func WithTokenizer(t Tokenizer) BuilderOption {
	return func(b *Builder) {
		if t != nil {
			b.tokenizer = t
		}
	}
}

// NewBuilder returns an empty Builder of order n. n counts the predicted
// token, so it must be at least 2.
func NewBuilder(n int, opts ...BuilderOption) (*Builder, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, n)
	}
	b := &Builder{
		model:     NewModel(n),
		tokenizer: NewDefaultTokenizer(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// LoadBuilder reconstructs a Builder from a persisted model so that more
// sources can be added to it.
func LoadBuilder(data []byte, opts ...BuilderOption) (*Builder, error) {
	m, err := DecodeModel(data)
	if err != nil {
		return nil, err
	}
	b, err := NewBuilder(m.N, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}
	b.model = m
	return b, nil
}

// Order returns n.
func (b *Builder) Order() int {
	return b.model.N
}

// AddSource tokenizes text and counts it into the model. It returns the
// number of n-token windows counted. Every token updates the vocabulary, even
// when the text is shorter than n and yields no windows.
func (b *Builder) AddSource(text string) int {
	return b.AddTokens(b.tokenizer.Tokenize(text))
}

// AddTokens counts an already tokenized sequence. See AddSource.
func (b *Builder) AddTokens(tokens []string) int {
	n := b.model.N
	windows := 0
	for i := 0; i+n <= len(tokens); i++ {
		key := ContextKey(tokens[i : i+n-1])
		b.model.addTransition(key, tokens[i+n-1], 1)
		windows++
	}
	for _, tok := range tokens {
		b.model.Vocab[tok]++
	}
	return windows
}

// AddFromReader reads r to completion and adds it as one source.
func (b *Builder) AddFromReader(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("could not read source: %w", err)
	}
	b.AddSource(string(data))
	return nil
}

// AddFromFile reads the file at path and adds it as one source.
func (b *Builder) AddFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return b.AddFromReader(f)
}

// Copy returns an independent deep copy of b.
func (b *Builder) Copy() *Builder {
	return &Builder{
		model:     b.model.Clone(),
		tokenizer: b.tokenizer,
	}
}

// Merge returns a new Builder holding the summed counts of b and other, as if
// one model had been trained on both sources. Neither operand is modified.
func (b *Builder) Merge(other *Builder) (*Builder, error) {
	if b.model.N != other.model.N {
		return nil, fmt.Errorf("%w: %d != %d", ErrIncompatibleModel, b.model.N, other.model.N)
	}
	if err := b.model.checkAbsorb(other.model); err != nil {
		return nil, err
	}
	merged := b.Copy()
	merged.model.absorb(other.model)
	return merged, nil
}

// Model returns a deep copy of the model under construction.
func (b *Builder) Model() *Model {
	return b.model.Clone()
}

// Stats summarizes the model under construction.
func (b *Builder) Stats() ModelStats {
	return b.model.Stats()
}

// Serialize returns the persisted form of the model.
func (b *Builder) Serialize() ([]byte, error) {
	return b.model.Bytes()
}

// WriteTo writes the persisted form of the model to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	data, err := b.Serialize()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}
