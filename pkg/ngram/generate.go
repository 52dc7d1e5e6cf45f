package ngram

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// pool is a weighted distribution over tokens. Drawing r uniformly from
// [0, total) and picking the token whose cumulative range holds r gives each
// token a chance proportional to its count, the same as a flat list holding
// each token count times.
type pool struct {
	tokens []string
	cum    []int
	total  int
}

// newPool builds a pool from counts. Tokens are sorted so that a seeded
// Generator draws the same sequence on every run. Zero counts are skipped.
func newPool(counts map[string]int) *pool {
	tokens := make([]string, 0, len(counts))
	for tok, count := range counts {
		if count > 0 {
			tokens = append(tokens, tok)
		}
	}
	slices.Sort(tokens)

	p := &pool{tokens: tokens, cum: make([]int, len(tokens))}
	for i, tok := range tokens {
		p.total += counts[tok]
		p.cum[i] = p.total
	}
	return p
}

// Size returns the total weight of the pool.
func (p *pool) Size() int {
	return p.total
}

func (p *pool) draw(intN func(int) int) string {
	r := intN(p.total)
	return p.tokens[sort.SearchInts(p.cum, r+1)]
}

// Start sets the context window to seed, which must hold exactly n-1 tokens,
// and readies the Generator for Step.
func (g *Generator) Start(seed []string) error {
	if g.model == nil {
		return ErrNoModel
	}
	if len(seed) != g.model.N-1 {
		return fmt.Errorf("%w: got %d tokens, want %d", ErrBadSeedLength, len(seed), g.model.N-1)
	}
	if g.fallback().Size() == 0 {
		return fmt.Errorf("%w: vocabulary is empty", ErrEmptyModel)
	}
	g.state = append(g.state[:0], seed...)
	g.started = true
	return nil
}

// StartText is Start with the seed given as whitespace separated tokens.
func (g *Generator) StartText(seed string) error {
	return g.Start(strings.Fields(seed))
}

// Step draws the next token for the current context and slides the window
// forward by one. A context seen in training is sampled by its next-token
// counts; an unseen one falls back to the vocabulary counts.
func (g *Generator) Step() (string, error) {
	if !g.started {
		return "", ErrNotStarted
	}
	next := g.choose(ContextKey(g.state))
	copy(g.state, g.state[1:])
	g.state[len(g.state)-1] = next
	return next, nil
}

// Predict draws a single next token for context without touching the
// generation cursor.
func (g *Generator) Predict(context []string) (string, error) {
	if g.model == nil {
		return "", ErrNoModel
	}
	if len(context) != g.model.N-1 {
		return "", fmt.Errorf("%w: got %d tokens, want %d", ErrBadSeedLength, len(context), g.model.N-1)
	}
	if g.fallback().Size() == 0 {
		return "", fmt.Errorf("%w: vocabulary is empty", ErrEmptyModel)
	}
	return g.choose(ContextKey(context)), nil
}

// Generate calls Step length times and returns the drawn tokens.
func (g *Generator) Generate(length int) ([]string, error) {
	tokens := make([]string, 0, max(length, 0))
	for range length {
		tok, err := g.Step()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// RandomSeed returns the tokens of a context key chosen uniformly at random,
// for callers that have no seed of their own.
func (g *Generator) RandomSeed() ([]string, error) {
	if g.model == nil {
		return nil, ErrNoModel
	}
	if g.keys == nil {
		g.keys = make([]string, 0, len(g.model.Table))
		for key := range g.model.Table {
			g.keys = append(g.keys, key)
		}
		slices.Sort(g.keys)
	}
	return SplitKey(g.keys[g.intN(len(g.keys))]), nil
}

// choose draws from the pool of key, or from the vocabulary pool when key was
// never seen or all of its counts are zero.
func (g *Generator) choose(key string) string {
	p := g.contextPool(key)
	if p == nil || p.Size() == 0 {
		p = g.fallback()
	}
	return p.draw(g.intN)
}

func (g *Generator) contextPool(key string) *pool {
	nexts, ok := g.model.Table[key]
	if !ok {
		return nil
	}
	if g.pools == nil {
		g.pools = make(map[string]*pool)
	}
	p, ok := g.pools[key]
	if !ok {
		p = newPool(nexts)
		g.pools[key] = p
	}
	return p
}

// fallback returns the vocabulary pool, building it on first use after a load.
func (g *Generator) fallback() *pool {
	if g.vocabPool == nil {
		g.vocabPool = newPool(g.model.Vocab)
	}
	return g.vocabPool
}
