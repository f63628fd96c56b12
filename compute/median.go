package compute

import (
	"sort"
	"sync"
)

// medianRow filters one interior row of a width x height image with a 3x3
// median window. The scratch slice must hold 9 elements.
func medianRow(src, dst []float32, width, y int, window []float32) {
	for x := 1; x < width-1; x++ {
		k := 0
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				window[k] = src[(y+dy)*width+(x+dx)]
				k++
			}
		}
		sort.Sort(float32Slice(window))
		dst[y*width+x] = window[4]
	}
}

// MedianFilter applies a 3x3 median filter to a width x height image stored
// row major. Border pixels have no full window and are copied through
// unchanged.
func MedianFilter(src []float32, width, height int) []float32 {
	dst := make([]float32, len(src))
	copy(dst, src)

	window := make([]float32, 9)
	for y := 1; y < height-1; y++ {
		medianRow(src, dst, width, y, window)
	}
	return dst
}

// MedianFilterPooled is MedianFilter with interior rows spread across the row
// pool. Each worker filters its own band with its own window scratch.
func MedianFilterPooled(src []float32, width, height int, threads int) []float32 {
	dst := make([]float32, len(src))
	copy(dst, src)

	if height < 3 {
		return dst
	}

	// Rows shift by one so the pool's [0, n) range maps onto the interior
	// rows [1, height-1).
	windows := sync.Pool{New: func() interface{} { return make([]float32, 9) }}
	ForEachRow(height-2, threads, func(row int) {
		window := windows.Get().([]float32)
		medianRow(src, dst, width, row+1, window)
		windows.Put(window)
	})
	return dst
}

type float32Slice []float32

func (s float32Slice) Len() int           { return len(s) }
func (s float32Slice) Less(i, j int) bool { return s[i] < s[j] }
func (s float32Slice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
