package ngram

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
)

// Generator samples tokens from one or more loaded models. Loading merges
// counts, so a Generator fed several files behaves as if a single model had
// been trained on all of their sources.
//
// A Generator holds a single generation cursor; Start resets it and every
// Step advances it.
type Generator struct {
	model *Model
	rng   *rand.Rand

	vocabPool *pool
	pools     map[string]*pool
	keys      []string

	state   []string
	started bool
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithRand sets the source of randomness used for every draw.
func WithRand(r *rand.Rand) GeneratorOption {
	return func(g *Generator) {
		g.rng = r
	}
}

// WithSeed makes draws reproducible by seeding a PCG source.
func WithSeed(seed uint64) GeneratorOption {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// NewGenerator returns a Generator with no model loaded.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Load parses a persisted model and merges it into the Generator. On any
// error the Generator is left exactly as it was.
func (g *Generator) Load(data []byte) error {
	m, err := DecodeModel(data)
	if err != nil {
		return err
	}
	return g.merge(m)
}

// LoadReader reads a persisted model from r. See Load.
func (g *Generator) LoadReader(r io.Reader) error {
	m, err := ReadModel(r)
	if err != nil {
		return err
	}
	return g.merge(m)
}

// LoadFile reads a persisted model from the file at path. See Load.
func (g *Generator) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not open model file: %w", err)
	}
	return g.Load(data)
}

// LoadModel validates an in-memory model and merges a copy of it. See Load.
func (g *Generator) LoadModel(m *Model) error {
	validated, err := m.validate()
	if err != nil {
		return err
	}
	return g.merge(validated)
}

// merge takes ownership of a validated model.
func (g *Generator) merge(m *Model) error {
	if g.model == nil {
		g.model = m
	} else {
		if g.model.N != m.N {
			return fmt.Errorf("%w: loaded order %d, new model has order %d", ErrOrderMismatch, g.model.N, m.N)
		}
		if err := g.model.checkAbsorb(m); err != nil {
			return err
		}
		g.model.absorb(m)
	}
	g.vocabPool = nil
	g.pools = nil
	g.keys = nil
	return nil
}

// Order returns the order of the loaded models, or 0 if none is loaded.
func (g *Generator) Order() int {
	if g.model == nil {
		return 0
	}
	return g.model.N
}

// Model returns a deep copy of the merged model, or nil if none is loaded.
func (g *Generator) Model() *Model {
	if g.model == nil {
		return nil
	}
	return g.model.Clone()
}

// State returns a copy of the current context window.
func (g *Generator) State() []string {
	return append([]string(nil), g.state...)
}

func (g *Generator) intN(n int) int {
	if g.rng != nil {
		return g.rng.IntN(n)
	}
	return rand.IntN(n)
}
