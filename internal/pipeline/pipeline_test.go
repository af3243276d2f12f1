package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miku/brcchunk/internal/brc"
	"github.com/miku/brcchunk/internal/config"
)

func writeFile(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "measurements.txt")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func runWith(t *testing.T, path string, workers int, chunkSize int64) (brc.Result, error) {
	t.Helper()
	cfg := config.Default()
	cfg.Workers = workers
	cfg.ChunkSize = config.ByteSize(chunkSize)
	return New(cfg, nil).Run(context.Background(), path)
}

func TestRunSingleChunk(t *testing.T) {
	path := writeFile(t, "A;1.0\nB;2.0\nA;3.0\n")
	r := New(config.Default(), nil)
	assert.Equal(t, Idle, r.State())
	result, err := r.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Done, r.State())
	assert.Equal(t, brc.Result{
		"A": {Min: 1, Max: 3, Mean: 2},
		"B": {Min: 2, Max: 2, Mean: 2},
	}, result)
}

func TestRunSplitMatchesSingleChunk(t *testing.T) {
	path := writeFile(t, "A;1.0\nB;2.0\nA;3.0\n")
	want, err := runWith(t, path, 1, 1<<20)
	require.NoError(t, err)
	for _, chunkSize := range []int64{1, 3, 5, 6, 7, 12} {
		for _, workers := range []int{1, 2, 8} {
			got, err := runWith(t, path, workers, chunkSize)
			require.NoError(t, err)
			assert.Equal(t, want, got, "chunk size %d, workers %d", chunkSize, workers)
		}
	}
}

func TestRunEmptyFile(t *testing.T) {
	result, err := runWith(t, writeFile(t, ""), 4, 10)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestRunNoTrailingNewline(t *testing.T) {
	result, err := runWith(t, writeFile(t, "Bergen;9.6"), 2, 4)
	require.NoError(t, err)
	assert.Equal(t, brc.Result{"Bergen": {Min: 9.6, Max: 9.6, Mean: 9.6}}, result)

	result, err = runWith(t, writeFile(t, "A;1\nA;2\nA;6"), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, brc.Result{"A": {Min: 1, Max: 6, Mean: 3}}, result)
}

func generate(n int, seed int64) string {
	var (
		rng   = rand.New(rand.NewSource(seed))
		names = []string{"Tamale", "Bergen", "Lodwar", "Whitehorse", "Ouarzazate", "São Paulo", "Zürich"}
		buf   bytes.Buffer
	)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "%s;%.1f\n", names[rng.Intn(len(names))], rng.Float64()*100-50)
	}
	return buf.String()
}

func TestRunPartitionIndependent(t *testing.T) {
	path := writeFile(t, generate(20000, 1))
	want, err := runWith(t, path, 1, 1<<30)
	require.NoError(t, err)
	for _, chunkSize := range []int64{97, 4096, 50000} {
		got, err := runWith(t, path, 4, chunkSize)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for k, w := range want {
			assert.Equal(t, w.Min, got[k].Min, k)
			assert.Equal(t, w.Max, got[k].Max, k)
			assert.InDelta(t, w.Mean, got[k].Mean, 1e-9, k)
		}
	}
}

func TestRunRepeatable(t *testing.T) {
	path := writeFile(t, generate(20000, 2))
	first, err := runWith(t, path, 8, 1000)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := runWith(t, path, 8, 1000)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRunParseError(t *testing.T) {
	path := writeFile(t, "A;1.0\nA1.0\nB;2.0\n")
	r := New(config.Default(), nil)
	result, err := r.Run(context.Background(), path)
	assert.Nil(t, result)
	var perr *brc.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int64(6), perr.Offset)
	assert.Equal(t, "missing delimiter", perr.Reason)
	assert.Equal(t, Failed, r.State())
}

func TestRunParseErrorInLaterChunk(t *testing.T) {
	path := writeFile(t, generate(5000, 3)+"broken\n"+generate(5000, 4))
	cfg := config.Default()
	cfg.Workers = 4
	cfg.ChunkSize = 1000
	_, err := New(cfg, nil).Run(context.Background(), path)
	var perr *brc.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Greater(t, perr.Chunk, 0)
	assert.Equal(t, "broken", perr.Record)
}

func TestRunMissingFile(t *testing.T) {
	r := New(config.Default(), nil)
	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	var ioErr *brc.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, Failed, r.State())
}

func TestRunCancelled(t *testing.T) {
	path := writeFile(t, generate(1000, 5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(config.Default(), nil)
	result, err := r.Run(ctx, path)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Failed, r.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting", Awaiting.String())
	assert.Equal(t, "unknown", State(42).String())
}
