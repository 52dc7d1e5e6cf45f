package ngram

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// sampleText is the two-sentence corpus most tests train on.
const sampleText = "the cat sat. the dog sat."

// newTestBuilder returns a Builder of order n trained on texts.
func newTestBuilder(t testing.TB, n int, texts ...string) *Builder {
	t.Helper()
	b, err := NewBuilder(n)
	if err != nil {
		t.Fatalf("NewBuilder(%d) error = %v", n, err)
	}
	for _, text := range texts {
		b.AddSource(text)
	}
	return b
}

// newTestGenerator returns a seeded Generator loaded with the serialized form
// of each builder.
func newTestGenerator(t testing.TB, seed uint64, builders ...*Builder) *Generator {
	t.Helper()
	g := NewGenerator(WithSeed(seed))
	for _, b := range builders {
		data, err := b.Serialize()
		if err != nil {
			t.Fatalf("Serialize() error = %v", err)
		}
		if err := g.Load(data); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	}
	return g
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
