package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NHR-FAU/revolve-go/compress"
)

func newTestByteSlab(t *testing.T, cfg ByteSlabConfig) *ByteSlab[float64] {
	t.Helper()
	if cfg.Scheme == "" {
		cfg.Scheme = compress.Gzip
	}
	b, err := NewByteSlab[float64](4, cfg)
	require.NoError(t, err)
	return b
}

func TestByteSlabSaveLoadRoundTrip(t *testing.T) {
	b := newTestByteSlab(t, ByteSlabConfig{})
	require.NoError(t, b.Save(0, []Buffer[float64]{{Shape: []int{3}, Data: []float64{1, 2, 3}}}))

	out := []Buffer[float64]{{Shape: []int{3}, Data: make([]float64, 3)}}
	require.NoError(t, b.Load(0, out))
	assert.Equal(t, []float64{1, 2, 3}, out[0].Data)
}

func TestByteSlabLoadTransposedShapeMismatch(t *testing.T) {
	b := newTestByteSlab(t, ByteSlabConfig{})
	require.NoError(t, b.Save(0, []Buffer[float64]{
		{Shape: []int{2, 3}, Data: []float64{1, 2, 3, 4, 5, 6}},
	}))

	out := []Buffer[float64]{{Shape: []int{3, 2}, Data: make([]float64, 6)}}
	assert.ErrorIs(t, b.Load(0, out), ErrShapeMismatch)
}

func TestByteSlabLoadUninitializedKey(t *testing.T) {
	b := newTestByteSlab(t, ByteSlabConfig{})
	out := []Buffer[float64]{{Shape: []int{1}, Data: make([]float64, 1)}}
	assert.ErrorIs(t, b.Load(0, out), ErrUninitialized)
}

func TestByteSlabMaxBytesEnforced(t *testing.T) {
	b := newTestByteSlab(t, ByteSlabConfig{MaxBytes: 1})
	err := b.Save(0, []Buffer[float64]{{Shape: []int{100}, Data: make([]float64, 100)}})
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestByteSlabPushPeekPopStack(t *testing.T) {
	b := newTestByteSlab(t, ByteSlabConfig{})

	require.NoError(t, b.Push([]Buffer[float64]{{Shape: []int{1}, Data: []float64{1}}}))
	require.NoError(t, b.Push([]Buffer[float64]{{Shape: []int{1}, Data: []float64{2}}}))

	out := []Buffer[float64]{{Shape: []int{1}, Data: make([]float64, 1)}}
	require.NoError(t, b.Peek(out))
	assert.Equal(t, float64(2), out[0].Data[0])

	require.NoError(t, b.Pop(out))
	assert.Equal(t, float64(2), out[0].Data[0])
	require.NoError(t, b.Pop(out))
	assert.Equal(t, float64(1), out[0].Data[0])
	assert.ErrorIs(t, b.Pop(out), ErrEmpty)
}

func TestByteSlabDecompressedResultIsCached(t *testing.T) {
	b := newTestByteSlab(t, ByteSlabConfig{CacheBytes: 1 << 20})
	require.NoError(t, b.Save(0, []Buffer[float64]{{Shape: []int{2}, Data: []float64{1, 2}}}))

	out := []Buffer[float64]{{Shape: []int{2}, Data: make([]float64, 2)}}
	require.NoError(t, b.Load(0, out))
	assert.Equal(t, []float64{1, 2}, out[0].Data)

	// Loading again exercises the cache path; result must be unchanged.
	require.NoError(t, b.Load(0, out))
	assert.Equal(t, []float64{1, 2}, out[0].Data)
}

func TestByteSlabZstdScheme(t *testing.T) {
	b := newTestByteSlab(t, ByteSlabConfig{Scheme: compress.Zstd})
	require.NoError(t, b.Save(0, []Buffer[float64]{{Shape: []int{2}, Data: []float64{9, 9}}}))

	out := []Buffer[float64]{{Shape: []int{2}, Data: make([]float64, 2)}}
	require.NoError(t, b.Load(0, out))
	assert.Equal(t, []float64{9, 9}, out[0].Data)
}
