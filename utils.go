package vkf

import (
	"unsafe"
)

var end = "\x00"
var endChar byte = '\x00'

// ToBytes views lenInBytes of mapped memory as a byte slice. The slice is only
// valid while the memory stays mapped.
func ToBytes(ptr unsafe.Pointer, lenInBytes int) []byte {
	const m = 0x7fffffff
	return (*[m]byte)(ptr)[:lenInBytes]
}

// safeString appends the NUL terminator the C side expects.
func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func safeStrings(list []string) []string {
	for i := range list {
		list[i] = safeString(list[i])
	}
	return list
}
