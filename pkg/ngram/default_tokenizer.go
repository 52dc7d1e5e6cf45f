package ngram

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// asciiPunctuation is the full ASCII punctuation set. Every one of these
// characters becomes a token of its own.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var (
	// contractionRegex matches the "'t" suffix split away from its word by
	// punctuation spacing, e.g. "don ' t".
	contractionRegex = regexp.MustCompile(`([a-z0-9]) ' t\b`)
	// noSeparatorRegex matches tokens rendered without a space before them.
	noSeparatorRegex = regexp.MustCompile(`^([.,!?;:)\]}%]|\.\.\.)$`)
)

// DefaultTokenizer lowercases and transliterates text to ASCII, splits every
// punctuation character into its own token, and keeps two idioms intact: the
// ellipsis "..." and the "'t" contraction suffix.
type DefaultTokenizer struct{}

// NewDefaultTokenizer returns the default tokenizer.
func NewDefaultTokenizer() *DefaultTokenizer {
	return &DefaultTokenizer{}
}

// Tokenize implements Tokenizer.
func (DefaultTokenizer) Tokenize(text string) []string {
	return Tokenize(text)
}

// Tokenize normalizes text and splits it into tokens. It is a pure function:
// the same input always yields the same tokens. Empty input yields no tokens.
//
// Contractions are rejoined after punctuation spacing, so "don't" stays one
// token. Models written by tools that only rewrite a literal " 't" hold the
// separate tokens "'" and "t" instead, and their keys will not match seeds
// tokenized here.
func Tokenize(text string) []string {
	cleaned := strings.ToLower(unidecode.Unidecode(text))

	var sb strings.Builder
	sb.Grow(len(cleaned) + len(cleaned)/4)
	for _, r := range cleaned {
		if r < 0x80 && strings.ContainsRune(asciiPunctuation, r) {
			sb.WriteByte(' ')
			sb.WriteRune(r)
			sb.WriteByte(' ')
			continue
		}
		sb.WriteRune(r)
	}

	single := strings.Join(strings.Fields(sb.String()), " ")
	single = strings.ReplaceAll(single, ". . .", "...")
	single = contractionRegex.ReplaceAllString(single, "$1't")

	tokens := strings.Fields(single)
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// Detokenize renders tokens as display text. Tokens are separated by single
// spaces, except that closing punctuation attaches to the preceding token.
func Detokenize(tokens []string) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 && !noSeparatorRegex.MatchString(tok) {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok)
	}
	return sb.String()
}
