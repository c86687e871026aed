package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectRejectsEmptyBucket(t *testing.T) {
	_, err := NewObject[float64](context.Background(), 4, ObjectConfig{})
	assert.Error(t, err)
}

func TestNewObjectBuildsClientWithoutNetworkCall(t *testing.T) {
	o, err := NewObject[float64](context.Background(), 4, ObjectConfig{
		Bucket:   "revolve-checkpoints",
		Region:   "us-east-1",
		Endpoint: "http://127.0.0.1:0",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, o.Capacity())
}

// Load must reject a transposed shape before ever issuing the
// GetObject call, so this is checkable without a real network call:
// the saved shape is seeded directly into the in-memory side table.
func TestObjectLoadTransposedShapeMismatch(t *testing.T) {
	o, err := NewObject[float64](context.Background(), 4, ObjectConfig{Bucket: "b"})
	require.NoError(t, err)
	o.shapes[0] = [][]int{{2, 3}}

	out := []Buffer[float64]{{Shape: []int{3, 2}, Data: make([]float64, 6)}}
	assert.ErrorIs(t, o.Load(0, out), ErrShapeMismatch)
}

func TestObjectKeyPrefixing(t *testing.T) {
	o, err := NewObject[float64](context.Background(), 4, ObjectConfig{Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "ckp-3.bin", o.objectKey(3))

	withPrefix, err := NewObject[float64](context.Background(), 4, ObjectConfig{Bucket: "b", Prefix: "run1"})
	require.NoError(t, err)
	assert.Equal(t, "run1/ckp-3.bin", withPrefix.objectKey(3))
}
