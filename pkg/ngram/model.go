package ngram

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"math"
	"strings"

	"github.com/goccy/go-json"
)

// Model is the trained artifact: a global unigram vocabulary and a table of
// next-token counts keyed by context. N is the context order; every key in
// Table holds exactly N-1 tokens.
type Model struct {
	N     int
	Vocab map[string]int
	Table map[string]map[string]int
}

// wireModel is the persisted representation of a Model.
type wireModel struct {
	Vocab map[string]int            `json:"vocab"`
	Model map[string]map[string]int `json:"model"`
}

// NewModel returns an empty model of order n.
func NewModel(n int) *Model {
	return &Model{
		N:     n,
		Vocab: make(map[string]int),
		Table: make(map[string]map[string]int),
	}
}

// Count returns how often next followed the context key, or zero.
func (m *Model) Count(key, next string) int {
	return m.Table[key][next]
}

// VocabCount returns the global count of token, or zero.
func (m *Model) VocabCount(token string) int {
	return m.Vocab[token]
}

// addTransition increments table[key][next] by count, creating the inner map
// on first insert.
func (m *Model) addTransition(key, next string, count int) {
	nexts, ok := m.Table[key]
	if !ok {
		nexts = make(map[string]int)
		m.Table[key] = nexts
	}
	nexts[next] += count
}

// sumCounts returns the sum of counts, or false if it exceeds math.MaxInt.
// Counts must be non-negative.
func sumCounts(counts map[string]int) (int, bool) {
	total := 0
	for _, count := range counts {
		if count > math.MaxInt-total {
			return 0, false
		}
		total += count
	}
	return total, true
}

// checkAbsorb reports ErrCountOverflow if absorbing other would push the
// vocabulary total or any context total past math.MaxInt. Both models must
// already be within bounds.
func (m *Model) checkAbsorb(other *Model) error {
	mine, _ := sumCounts(m.Vocab)
	theirs, _ := sumCounts(other.Vocab)
	if theirs > math.MaxInt-mine {
		return fmt.Errorf("%w: vocabulary counts", ErrCountOverflow)
	}
	for key, nexts := range other.Table {
		mine, _ = sumCounts(m.Table[key])
		theirs, _ = sumCounts(nexts)
		if theirs > math.MaxInt-mine {
			return fmt.Errorf("%w: counts after %q", ErrCountOverflow, key)
		}
	}
	return nil
}

// absorb adds every count of other into m. Orders and overflow are not
// checked; see checkAbsorb.
func (m *Model) absorb(other *Model) {
	for tok, count := range other.Vocab {
		m.Vocab[tok] += count
	}
	for key, nexts := range other.Table {
		for next, count := range nexts {
			m.addTransition(key, next, count)
		}
	}
}

// Clone returns a deep copy of m.
func (m *Model) Clone() *Model {
	c := &Model{
		N:     m.N,
		Vocab: maps.Clone(m.Vocab),
		Table: make(map[string]map[string]int, len(m.Table)),
	}
	if c.Vocab == nil {
		c.Vocab = make(map[string]int)
	}
	for key, nexts := range m.Table {
		c.Table[key] = maps.Clone(nexts)
	}
	return c
}

// Equal reports whether both models have the same order and identical counts.
func (m *Model) Equal(other *Model) bool {
	if m.N != other.N || !maps.Equal(m.Vocab, other.Vocab) || len(m.Table) != len(other.Table) {
		return false
	}
	for key, nexts := range m.Table {
		o, ok := other.Table[key]
		if !ok || !maps.Equal(nexts, o) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the model in its persisted form. Map keys are sorted, so
// equal models always encode to identical bytes.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.wire())
}

func (m *Model) wire() wireModel {
	w := wireModel{Vocab: m.Vocab, Model: m.Table}
	if w.Vocab == nil {
		w.Vocab = map[string]int{}
	}
	if w.Model == nil {
		w.Model = map[string]map[string]int{}
	}
	return w
}

// Encode writes the persisted form of m to w, indented by two spaces.
func (m *Model) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(m.wire())
}

// Bytes returns the persisted form of m.
func (m *Model) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeModel parses and validates a persisted model, inferring its order
// from the length of its context keys.
func DecodeModel(data []byte) (*Model, error) {
	var w wireModel
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}
	return fromWire(w)
}

// ReadModel reads a persisted model from r. See DecodeModel.
func ReadModel(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read model: %w", err)
	}
	return DecodeModel(data)
}

func fromWire(w wireModel) (*Model, error) {
	if w.Vocab == nil {
		return nil, fmt.Errorf("%w: missing field \"vocab\"", ErrMalformedModel)
	}
	if w.Model == nil {
		return nil, fmt.Errorf("%w: missing field \"model\"", ErrMalformedModel)
	}
	if len(w.Model) == 0 {
		return nil, ErrEmptyModel
	}

	for tok, count := range w.Vocab {
		if count < 0 {
			return nil, fmt.Errorf("%w: negative vocab count for %q", ErrMalformedModel, tok)
		}
	}

	if _, ok := sumCounts(w.Vocab); !ok {
		return nil, fmt.Errorf("%w: vocab counts sum past %d", ErrMalformedModel, math.MaxInt)
	}

	keySize := -1
	for key, nexts := range w.Model {
		tokens := SplitKey(key)
		if len(tokens) == 0 || ContextKey(tokens) != key {
			return nil, fmt.Errorf("%w: context key %q is not canonical", ErrMalformedModel, key)
		}
		if keySize == -1 {
			keySize = len(tokens)
		} else if keySize != len(tokens) {
			return nil, fmt.Errorf("%w: found keys of %d and %d tokens", ErrInconsistentOrder, keySize, len(tokens))
		}
		for next, count := range nexts {
			if count < 0 {
				return nil, fmt.Errorf("%w: negative count for %q after %q", ErrMalformedModel, next, key)
			}
			if count > 0 && w.Vocab[next] <= 0 {
				return nil, fmt.Errorf("%w: token %q missing from vocab", ErrMalformedModel, next)
			}
			if strings.ContainsAny(next, " \t\n") || next == "" {
				return nil, fmt.Errorf("%w: next token %q is not a single token", ErrMalformedModel, next)
			}
		}
		if _, ok := sumCounts(nexts); !ok {
			return nil, fmt.Errorf("%w: counts after %q sum past %d", ErrMalformedModel, key, math.MaxInt)
		}
	}

	m := NewModel(keySize + 1)
	m.absorb(&Model{Vocab: w.Vocab, Table: w.Model})
	return m, nil
}

// validate checks an in-memory model against the same rules DecodeModel
// applies to persisted ones.
func (m *Model) validate() (*Model, error) {
	decoded, err := fromWire(wireModel{Vocab: m.Vocab, Model: m.Table})
	if err != nil {
		return nil, err
	}
	if m.N != 0 && decoded.N != m.N {
		return nil, fmt.Errorf("%w: keys imply order %d, model claims %d", ErrInconsistentOrder, decoded.N, m.N)
	}
	return decoded, nil
}
