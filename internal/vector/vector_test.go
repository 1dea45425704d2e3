package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestNormalize(t *testing.T) {
	n := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.InDelta(t, 0.8, n[1], 1e-6)
	assert.InDelta(t, 1.0, Dot(n, n), 1e-6)

	z := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, z)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []float32{3, 4}
	Normalize(in)
	assert.Equal(t, []float32{3, 4}, in)
}

func TestDotMatchesCosineOnUnitVectors(t *testing.T) {
	a := Normalize([]float32{1, 2, 3})
	b := Normalize([]float32{-2, 0.5, 4})
	assert.InDelta(t, CosineSimilarity(a, b), Dot(a, b), 1e-6)
}

func TestByteCodec(t *testing.T) {
	in := []float32{0, 1.5, -2.25, float32(math.Pi)}
	b := Float32ToBytes(in)
	require.Len(t, b, 16)
	assert.Equal(t, in, BytesToFloat32(b))

	assert.Nil(t, BytesToFloat32([]byte{1, 2, 3}))
}

func TestFromFloat64(t *testing.T) {
	assert.Equal(t, []float32{0.5, -1}, FromFloat64([]float64{0.5, -1}))
}
