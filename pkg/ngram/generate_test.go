package ngram

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
)

func TestStepBeforeStart(t *testing.T) {
	g := newTestGenerator(t, 1, newTestBuilder(t, 2, sampleText))
	if _, err := g.Step(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Step() error = %v, want ErrNotStarted", err)
	}
	if _, err := NewGenerator().Step(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Step() on empty generator error = %v, want ErrNotStarted", err)
	}
}

func TestStartWithoutModel(t *testing.T) {
	if err := NewGenerator().Start([]string{"a"}); !errors.Is(err, ErrNoModel) {
		t.Errorf("Start() error = %v, want ErrNoModel", err)
	}
}

func TestStartBadSeedLength(t *testing.T) {
	g := newTestGenerator(t, 1, newTestBuilder(t, 3, sampleText))
	for _, seed := range [][]string{nil, {"the"}, {"the", "cat", "sat"}} {
		if err := g.Start(seed); !errors.Is(err, ErrBadSeedLength) {
			t.Errorf("Start(%q) error = %v, want ErrBadSeedLength", seed, err)
		}
	}
	if err := g.StartText("the cat"); err != nil {
		t.Errorf("StartText() error = %v", err)
	}
}

func TestStepFollowsTable(t *testing.T) {
	g := newTestGenerator(t, 7, newTestBuilder(t, 2, sampleText))
	if err := g.Start([]string{"sat"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// "sat" is only ever followed by ".", and "." only by "the".
	tokens, err := g.Generate(3)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if tokens[0] != "." || tokens[1] != "the" {
		t.Errorf("expected [. the ...], got %q", tokens)
	}
	if tokens[2] != "cat" && tokens[2] != "dog" {
		t.Errorf("expected 'the' to be followed by cat or dog, got %q", tokens[2])
	}
	if !reflect.DeepEqual(g.State(), []string{tokens[2]}) {
		t.Errorf("State() = %q, want [%q]", g.State(), tokens[2])
	}
}

func TestStepUnseenContextFallsBack(t *testing.T) {
	b := newTestBuilder(t, 2, sampleText)
	g := newTestGenerator(t, 3, b)
	if err := g.Start([]string{"unseen_context_token"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if size := g.fallback().Size(); size != 8 {
		t.Errorf("vocabulary pool holds %d entries, want 8", size)
	}

	seen := make(map[string]int)
	for i := 0; i < 2000; i++ {
		if err := g.Start([]string{"unseen_context_token"}); err != nil {
			t.Fatal(err)
		}
		tok, err := g.Step()
		if err != nil {
			t.Fatalf("Step() error = %v", err)
		}
		seen[tok]++
	}
	vocab := b.Model().Vocab
	for tok := range seen {
		if vocab[tok] == 0 {
			t.Errorf("Step() returned %q, which is not in the vocabulary", tok)
		}
	}
	if len(seen) != len(vocab) {
		t.Errorf("expected every vocabulary token to be drawn eventually, got %v", seen)
	}
	// "the" has weight 2/8 and "cat" 1/8.
	if seen["the"] <= seen["cat"] {
		t.Errorf("expected weighted fallback draws, got %v", seen)
	}
}

func TestStepNeverLeavesVocab(t *testing.T) {
	b := newTestBuilder(t, 3, sampleText, "Don't panic... the cat is fine!", "a b c d e f g")
	g := newTestGenerator(t, 11, b)
	vocab := b.Model().Vocab

	seed, err := g.RandomSeed()
	if err != nil {
		t.Fatalf("RandomSeed() error = %v", err)
	}
	if err := g.Start(seed); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	tokens, err := g.Generate(500)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, tok := range tokens {
		if vocab[tok] == 0 {
			t.Fatalf("generated %q, which is not in the vocabulary", tok)
		}
	}
}

func TestPredictIsWeighted(t *testing.T) {
	b := newTestBuilder(t, 2, "x a. x a. x a. x b.")
	g := newTestGenerator(t, 5, b)

	counts := make(map[string]int)
	for i := 0; i < 4000; i++ {
		tok, err := g.Predict([]string{"x"})
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		counts[tok]++
	}
	if len(counts) != 2 {
		t.Fatalf("expected only a and b after x, got %v", counts)
	}
	ratio := float64(counts["a"]) / float64(counts["b"])
	if ratio < 2.4 || ratio > 3.8 {
		t.Errorf("expected a:b close to 3:1, got %v", counts)
	}
	if len(g.State()) != 0 {
		t.Error("Predict() changed the generation state")
	}
}

func TestPredictErrors(t *testing.T) {
	if _, err := NewGenerator().Predict([]string{"a"}); !errors.Is(err, ErrNoModel) {
		t.Errorf("Predict() error = %v, want ErrNoModel", err)
	}
	g := newTestGenerator(t, 1, newTestBuilder(t, 2, sampleText))
	if _, err := g.Predict([]string{"a", "b"}); !errors.Is(err, ErrBadSeedLength) {
		t.Errorf("Predict() error = %v, want ErrBadSeedLength", err)
	}
}

func TestSeededGeneratorIsReproducible(t *testing.T) {
	b := newTestBuilder(t, 2, sampleText, "the bird flew over the dog.")
	run := func() []string {
		g := newTestGenerator(t, 42, b)
		if err := g.Start([]string{"the"}); err != nil {
			t.Fatal(err)
		}
		tokens, err := g.Generate(50)
		if err != nil {
			t.Fatal(err)
		}
		return tokens
	}
	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("seeded runs differ:\n%q\n%q", first, second)
	}
}

func TestLoadMergesCounts(t *testing.T) {
	a := newTestBuilder(t, 2, sampleText)
	b := newTestBuilder(t, 2, "the bird flew.")
	g := newTestGenerator(t, 1, a, b)

	want, _ := a.Merge(b)
	if !g.Model().Equal(want.Model()) {
		t.Error("loading two models did not merge their counts")
	}
}

func TestLoadOrderMismatchKeepsState(t *testing.T) {
	a := newTestBuilder(t, 2, sampleText)
	g := newTestGenerator(t, 1, a)
	before := g.Model()

	data, _ := newTestBuilder(t, 3, sampleText).Serialize()
	if err := g.Load(data); !errors.Is(err, ErrOrderMismatch) {
		t.Fatalf("Load() error = %v, want ErrOrderMismatch", err)
	}
	if g.Order() != 2 || !g.Model().Equal(before) {
		t.Error("failed Load() changed the generator")
	}

	if err := g.Load([]byte(`{"vocab": {"a": 1}, "model": {}}`)); !errors.Is(err, ErrEmptyModel) {
		t.Fatalf("Load() error = %v, want ErrEmptyModel", err)
	}
	if err := g.Load([]byte(`{"vocab": {"a": 1, "b": 1, "c": 1}, "model": {"a b": {"c": 1}, "a": {"b": 1}}}`)); !errors.Is(err, ErrInconsistentOrder) {
		t.Fatalf("Load() error = %v, want ErrInconsistentOrder", err)
	}
	if !g.Model().Equal(before) {
		t.Error("failed Load() changed the generator")
	}
}

func TestLoadOverflowKeepsState(t *testing.T) {
	half := math.MaxInt/2 + 1
	data := []byte(fmt.Sprintf(`{"vocab": {"a": %d, "b": 1}, "model": {"a": {"b": 1}}}`, half))

	g := NewGenerator(WithSeed(1))
	if err := g.Load(data); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	before := g.Model()
	if err := g.Load(data); !errors.Is(err, ErrCountOverflow) {
		t.Fatalf("Load() error = %v, want ErrCountOverflow", err)
	}
	if !g.Model().Equal(before) {
		t.Error("failed Load() changed the generator")
	}

	// Unseen contexts draw from the vocabulary pool, whose total must stay valid.
	if err := g.Start([]string{"zzz"}); err != nil {
		t.Fatal(err)
	}
	tok, err := g.Step()
	if err != nil {
		t.Fatal(err)
	}
	if tok != "a" && tok != "b" {
		t.Errorf("Step() = %q, want a vocabulary token", tok)
	}

	ctxData := []byte(fmt.Sprintf(`{"vocab": {"a": 1, "b": 1}, "model": {"a": {"b": %d}}}`, half))
	g = NewGenerator()
	if err = g.Load(ctxData); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err = g.Load(ctxData); !errors.Is(err, ErrCountOverflow) {
		t.Errorf("Load() error = %v, want ErrCountOverflow", err)
	}
}

func TestLoadInvalidatesPools(t *testing.T) {
	g := newTestGenerator(t, 1, newTestBuilder(t, 2, "a b"))
	if err := g.Start([]string{"a"}); err != nil {
		t.Fatal(err)
	}
	if size := g.fallback().Size(); size != 2 {
		t.Fatalf("vocabulary pool holds %d entries, want 2", size)
	}

	data, _ := newTestBuilder(t, 2, "a c").Serialize()
	if err := g.Load(data); err != nil {
		t.Fatal(err)
	}
	if size := g.fallback().Size(); size != 4 {
		t.Errorf("vocabulary pool holds %d entries after second load, want 4", size)
	}
	if size := g.contextPool("a").Size(); size != 2 {
		t.Errorf("context pool for 'a' holds %d entries, want 2", size)
	}
}

func TestLoadModel(t *testing.T) {
	g := NewGenerator()
	bad := &Model{N: 2, Vocab: map[string]int{"a": 1}, Table: map[string]map[string]int{"a b": {"a": 1}}}
	if err := g.LoadModel(bad); !errors.Is(err, ErrInconsistentOrder) {
		t.Errorf("LoadModel() error = %v, want ErrInconsistentOrder", err)
	}

	m := newTestBuilder(t, 2, sampleText).Model()
	if err := g.LoadModel(m); err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	m.Vocab["the"] = 100
	if g.Model().Vocab["the"] != 2 {
		t.Error("LoadModel() aliased the caller's model")
	}
}

func TestRandomSeed(t *testing.T) {
	if _, err := NewGenerator().RandomSeed(); !errors.Is(err, ErrNoModel) {
		t.Errorf("RandomSeed() error = %v, want ErrNoModel", err)
	}

	b := newTestBuilder(t, 3, sampleText)
	g := newTestGenerator(t, 9, b)
	table := b.Model().Table
	for i := 0; i < 50; i++ {
		seed, err := g.RandomSeed()
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := table[ContextKey(seed)]; !ok {
			t.Errorf("RandomSeed() = %q, which is not a context key", seed)
		}
	}
}

func TestPoolDraw(t *testing.T) {
	p := newPool(map[string]int{"a": 1, "b": 0, "c": 3})
	if p.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", p.Size())
	}
	expected := []string{"a", "c", "c", "c"}
	for r, want := range expected {
		got := p.draw(func(int) int { return r })
		if got != want {
			t.Errorf("draw(%d) = %q, want %q", r, got, want)
		}
	}
}

func BenchmarkGenerate(b *testing.B) {
	corpus := createBenchmarkCorpus()

	for _, order := range []int{2, 3, 4} {
		b.Run(fmt.Sprintf("Order%d", order), func(b *testing.B) {
			g := newTestGenerator(b, 1, newTestBuilder(b, order, corpus))
			seed, err := g.RandomSeed()
			if err != nil {
				b.Fatal(err)
			}
			if err := g.Start(seed); err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := g.Step(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
