package compute

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomImage(r *rand.Rand, n int) []float32 {
	img := make([]float32, n)
	for i := range img {
		img[i] = r.Float32() * 100
	}
	return img
}

func TestAddPooledMatchesReference(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	a := randomImage(r, 1000)
	b := randomImage(r, 1000)

	want := make([]float32, len(a))
	Add(a, b, want)

	got := make([]float32, len(a))
	AddPooled(a, b, got, 7)

	require.Equal(t, want, got)
}

func TestMedianFilterBordersCopiedThrough(t *testing.T) {
	const w, h = 5, 4
	src := randomImage(rand.New(rand.NewSource(2)), w*h)
	dst := MedianFilter(src, w, h)

	for x := 0; x < w; x++ {
		require.Equal(t, src[x], dst[x])
		require.Equal(t, src[(h-1)*w+x], dst[(h-1)*w+x])
	}
	for y := 0; y < h; y++ {
		require.Equal(t, src[y*w], dst[y*w])
		require.Equal(t, src[y*w+w-1], dst[y*w+w-1])
	}
}

func TestMedianFilterPicksWindowMedian(t *testing.T) {
	// A single bright pixel in a flat image disappears.
	const w, h = 3, 3
	src := []float32{
		1, 1, 1,
		1, 9, 1,
		1, 1, 1,
	}
	dst := MedianFilter(src, w, h)
	require.Equal(t, float32(1), dst[4])
}

func TestMedianFilterPooledMatchesReference(t *testing.T) {
	const w, h = 64, 48
	src := randomImage(rand.New(rand.NewSource(3)), w*h)

	want := MedianFilter(src, w, h)
	got := MedianFilterPooled(src, w, h, 7)
	require.Equal(t, want, got)
}

func TestMedianFilterPooledTinyImage(t *testing.T) {
	src := []float32{1, 2, 3, 4}
	got := MedianFilterPooled(src, 2, 2, 4)
	require.Equal(t, src, got)
}

func TestMandelbrotPooledMatchesReference(t *testing.T) {
	spec := DefaultMandelbrot(64, 100)

	want := Mandelbrot(spec)
	got := MandelbrotPooled(spec, 7)
	require.Equal(t, want, got)
}

func TestMandelbrotInteriorSaturates(t *testing.T) {
	spec := DefaultMandelbrot(64, 50)
	// A point near the origin is in the set and never escapes.
	x := spec.Width * 2 / 3
	y := spec.Height / 2
	require.Equal(t, uint32(spec.MaxIterations), spec.At(x, y))
}
