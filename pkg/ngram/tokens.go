package ngram

import "strings"

// Tokenizer splits raw text into normalized tokens. The default implementation
// is DefaultTokenizer; any replacement must be deterministic, or models built
// with it will not match seeds tokenized later.
type Tokenizer interface {
	Tokenize(text string) []string
}

// TokenizerFunc adapts a plain function to the Tokenizer interface.
type TokenizerFunc func(text string) []string

// Tokenize calls f(text).
func (f TokenizerFunc) Tokenize(text string) []string {
	return f(text)
}

// ContextKey joins context tokens into the canonical lookup key.
func ContextKey(tokens []string) string {
	return strings.Join(tokens, " ")
}

// SplitKey splits a context key back into its tokens.
func SplitKey(key string) []string {
	return strings.Fields(key)
}
