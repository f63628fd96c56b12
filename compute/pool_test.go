package compute

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForEachRowCoversEveryRowOnce(t *testing.T) {
	const rows = 100
	const threads = 7

	visits := make([]int32, rows)
	ForEachRow(rows, threads, func(row int) {
		atomic.AddInt32(&visits[row], 1)
	})

	for row, n := range visits {
		require.Equal(t, int32(1), n, "row %d visited %d times", row, n)
	}
}

func TestForEachRowZeroThreadsUsesHardwareConcurrency(t *testing.T) {
	const rows = 33
	visits := make([]int32, rows)
	ForEachRow(rows, 0, func(row int) {
		atomic.AddInt32(&visits[row], 1)
	})
	for row, n := range visits {
		require.Equal(t, int32(1), n, "row %d visited %d times", row, n)
	}
}

func TestForEachRowMoreThreadsThanRows(t *testing.T) {
	var count int32
	ForEachRow(3, 16, func(row int) {
		atomic.AddInt32(&count, 1)
	})
	require.Equal(t, int32(3), count)
}

func TestForEachRowNoRows(t *testing.T) {
	called := false
	ForEachRow(0, 4, func(row int) { called = true })
	require.False(t, called)
}
