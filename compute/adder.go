package compute

// Add writes a[i]+b[i] into dst. The slices must be the same length.
func Add(a, b, dst []float32) {
	for i := range a {
		dst[i] = a[i] + b[i]
	}
}

// AddPooled is Add spread across the row pool, one element per row.
func AddPooled(a, b, dst []float32, threads int) {
	ForEachRow(len(a), threads, func(i int) {
		dst[i] = a[i] + b[i]
	})
}
