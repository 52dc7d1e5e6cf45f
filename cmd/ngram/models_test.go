package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTAG07/ngram/pkg/ngram"
	"github.com/CTAG07/ngram/pkg/store"
)

const trainingText = "The cat sat on the mat. The cat ate the rat."

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) *ModelService {
	t.Helper()
	st, err := store.NewDirStore(filepath.Join(t.TempDir(), "models"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewModelService(st, discardLogger())
}

func fromText(text string) feedFunc {
	return func(b *ngram.Builder) error {
		return b.AddFromReader(strings.NewReader(text))
	}
}

func writeSource(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestServiceTrain(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	stats, err := svc.Train(ctx, "cats", 2, fromText(trainingText))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Order)
	assert.Equal(t, 13, stats.TotalTokens)
	assert.Equal(t, 12, stats.TotalFrequency)

	_, err = svc.Train(ctx, "cats", 2, fromText(trainingText))
	assert.ErrorIs(t, err, errModelExists)

	_, err = svc.Train(ctx, "short", 3, fromText("hello"))
	assert.ErrorIs(t, err, ngram.ErrEmptyModel)

	_, err = svc.Train(ctx, "missing", 2, fromFile(filepath.Join(t.TempDir(), "nope.txt")))
	assert.ErrorIs(t, err, ngram.ErrSourceNotFound)

	_, err = svc.Train(ctx, "../escape", 2, fromText(trainingText))
	assert.ErrorIs(t, err, store.ErrInvalidName)

	models, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "cats", models[0].Name)
}

func TestServiceTune(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Tune(ctx, "cats", fromText(trainingText))
	assert.ErrorIs(t, err, store.ErrModelNotFound)

	_, err = svc.Train(ctx, "cats", 2, fromFile(writeSource(t, trainingText)))
	require.NoError(t, err)
	stats, err := svc.Tune(ctx, "cats", fromText(trainingText))
	require.NoError(t, err)
	assert.Equal(t, 26, stats.TotalTokens)
	assert.Equal(t, 24, stats.TotalFrequency)

	stored, err := svc.Stats(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, stats, stored)
}

func TestServiceMerge(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Train(ctx, "a", 2, fromText("the cat sat"))
	require.NoError(t, err)
	_, err = svc.Train(ctx, "b", 2, fromText("the dog sat"))
	require.NoError(t, err)
	_, err = svc.Train(ctx, "tri", 3, fromText("the dog sat"))
	require.NoError(t, err)

	stats, err := svc.Merge(ctx, []string{"a", "b"}, "ab")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.VocabSize)
	assert.Equal(t, 6, stats.TotalTokens)

	data, err := svc.Export(ctx, "ab")
	require.NoError(t, err)
	m, err := ngram.DecodeModel(data)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count("the", "cat")+m.Count("the", "dog"))
	assert.Equal(t, 2, m.VocabCount("sat"))

	_, err = svc.Merge(ctx, []string{"a", "b"}, "ab")
	assert.ErrorIs(t, err, errModelExists)

	_, err = svc.Merge(ctx, []string{"a", "tri"}, "mixed")
	assert.ErrorIs(t, err, ngram.ErrIncompatibleModel)

	_, err = svc.Merge(ctx, []string{"a", "ghost"}, "other")
	assert.ErrorIs(t, err, store.ErrModelNotFound)

	_, err = svc.Merge(ctx, nil, "none")
	assert.ErrorIs(t, err, errNoSources)
}

func TestServiceGenerate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Train(ctx, "cats", 2, fromText(trainingText))
	require.NoError(t, err)

	seed := uint64(42)
	req := GenerateRequest{Start: "the", Length: 20, Seed: &seed}
	first, err := svc.Generate(ctx, []string{"cats"}, req)
	require.NoError(t, err)
	second, err := svc.Generate(ctx, []string{"cats"}, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"the"}, first.Seed)
	assert.Len(t, first.Tokens, 20)
	assert.Equal(t, first, second, "seeded runs must agree")
	assert.True(t, strings.HasPrefix(first.Text, "the "))

	random, err := svc.Generate(ctx, []string{"cats"}, GenerateRequest{Length: 5})
	require.NoError(t, err)
	assert.Len(t, random.Seed, 1)
	assert.Len(t, random.Tokens, 5)

	_, err = svc.Generate(ctx, []string{"cats"}, GenerateRequest{Start: "the cat", Length: 5})
	assert.ErrorIs(t, err, ngram.ErrBadSeedLength)

	_, err = svc.Generate(ctx, []string{"ghost"}, GenerateRequest{Length: 5})
	assert.ErrorIs(t, err, store.ErrModelNotFound)

	_, err = svc.Generate(ctx, nil, GenerateRequest{Length: 5})
	assert.ErrorIs(t, err, errNoSources)
}

func TestServiceGenerateCombinesModels(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Train(ctx, "a", 2, fromText("red fish"))
	require.NoError(t, err)
	_, err = svc.Train(ctx, "b", 2, fromText("blue fish"))
	require.NoError(t, err)
	_, err = svc.Train(ctx, "tri", 3, fromText("one two three"))
	require.NoError(t, err)

	result, err := svc.Generate(ctx, []string{"a", "b"}, GenerateRequest{Start: "blue", Length: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"fish"}, result.Tokens)

	_, err = svc.Generate(ctx, []string{"a", "tri"}, GenerateRequest{Start: "red", Length: 1})
	assert.ErrorIs(t, err, ngram.ErrOrderMismatch)
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Train(ctx, "cats", 2, fromText(trainingText))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "cats"))
	assert.ErrorIs(t, svc.Delete(ctx, "cats"), store.ErrModelNotFound)
}
