package compute

// MandelbrotSpec describes a Mandelbrot rendering: the pixel grid and the
// rectangle of the complex plane it maps onto.
type MandelbrotSpec struct {
	Width, Height int
	MaxIterations int

	MinRe, MaxRe float64
	MinIm, MaxIm float64
}

// DefaultMandelbrot frames the full set on a square grid.
func DefaultMandelbrot(size, maxIterations int) MandelbrotSpec {
	return MandelbrotSpec{
		Width:  size,
		Height: size,

		MaxIterations: maxIterations,
		MinRe:         -2.0,
		MaxRe:         1.0,
		MinIm:         -1.5,
		MaxIm:         1.5,
	}
}

// At returns the escape iteration count for one pixel, MaxIterations when the
// point never escapes.
func (s MandelbrotSpec) At(x, y int) uint32 {
	cRe := s.MinRe + (s.MaxRe-s.MinRe)*float64(x)/float64(s.Width)
	cIm := s.MinIm + (s.MaxIm-s.MinIm)*float64(y)/float64(s.Height)

	var zRe, zIm float64
	for i := 0; i < s.MaxIterations; i++ {
		re2, im2 := zRe*zRe, zIm*zIm
		if re2+im2 > 4.0 {
			return uint32(i)
		}
		zRe, zIm = re2-im2+cRe, 2*zRe*zIm+cIm
	}
	return uint32(s.MaxIterations)
}

// Mandelbrot computes the iteration counts for the whole grid, row major.
func Mandelbrot(s MandelbrotSpec) []uint32 {
	out := make([]uint32, s.Width*s.Height)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			out[y*s.Width+x] = s.At(x, y)
		}
	}
	return out
}

// MandelbrotPooled is Mandelbrot with rows spread across the row pool.
func MandelbrotPooled(s MandelbrotSpec, threads int) []uint32 {
	out := make([]uint32, s.Width*s.Height)
	ForEachRow(s.Height, threads, func(y int) {
		for x := 0; x < s.Width; x++ {
			out[y*s.Width+x] = s.At(x, y)
		}
	})
	return out
}
