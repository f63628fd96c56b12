package vkf

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestSafeString(t *testing.T) {
	assert.Equal(t, "abc\x00", safeString("abc"))
	assert.Equal(t, "abc\x00", safeString("abc\x00"))
	assert.Equal(t, "\x00", safeString(""))
}

func TestSafeStrings(t *testing.T) {
	got := safeStrings([]string{"a", "b\x00"})
	assert.Equal(t, []string{"a\x00", "b\x00"}, got)
}

func TestToBytes(t *testing.T) {
	data := []float32{1, 2, 3}
	b := ToBytes(unsafe.Pointer(&data[0]), len(data)*4)
	assert.Len(t, b, 12)

	// The slice aliases the source memory rather than copying it.
	data[0] = 0
	assert.Equal(t, byte(0), b[3])
}
