// Package compute holds CPU implementations of the teaching computations the
// GPU shaders also perform. Each operation has a single-threaded reference and
// a pooled variant; the two must agree exactly, which is what lets a program
// validate GPU output against either of them.
package compute

import (
	"runtime"
	"sync"
)

// ForEachRow calls fn once for every row in [0, rows), splitting the range
// into equal contiguous bands across threads worker goroutines. A threads of 0
// uses the hardware concurrency. Rows left over after the even split run on
// the calling goroutine once the workers have joined, so every row has been
// processed when ForEachRow returns. There is no cancellation; fn must not
// panic.
func ForEachRow(rows, threads int, fn func(row int)) {
	if rows <= 0 {
		return
	}
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if threads > rows {
		threads = rows
	}
	if threads <= 1 {
		for r := 0; r < rows; r++ {
			fn(r)
		}
		return
	}

	band := rows / threads

	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		start := w * band
		end := start + band
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for r := start; r < end; r++ {
				fn(r)
			}
		}(start, end)
	}
	wg.Wait()

	for r := band * threads; r < rows; r++ {
		fn(r)
	}
}
