package vkf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTableAllocAndLookup(t *testing.T) {
	var tab handleTable

	r1 := &BufferRecord{Binding: 0}
	r2 := &BufferRecord{Binding: 1}

	h1 := tab.alloc(r1)
	h2 := tab.alloc(r2)
	require.NotEqual(t, NilBuffer, h1)
	require.NotEqual(t, NilBuffer, h2)
	require.NotEqual(t, h1, h2)

	got, err := tab.lookup(h1)
	require.NoError(t, err)
	assert.Same(t, r1, got)

	got, err = tab.lookup(h2)
	require.NoError(t, err)
	assert.Same(t, r2, got)

	assert.Equal(t, 2, tab.count())
}

func TestHandleTableNilHandle(t *testing.T) {
	var tab handleTable
	_, err := tab.lookup(NilBuffer)
	assert.Error(t, err)
}

func TestHandleTableOutOfRange(t *testing.T) {
	var tab handleTable
	tab.alloc(&BufferRecord{})
	_, err := tab.lookup(makeHandle(42, 1))
	assert.Error(t, err)
}

func TestHandleTableReleaseInvalidatesHandle(t *testing.T) {
	var tab handleTable
	h := tab.alloc(&BufferRecord{})

	require.NoError(t, tab.release(h))
	assert.Equal(t, 0, tab.count())

	_, err := tab.lookup(h)
	assert.Error(t, err)

	// Double release fails rather than corrupting the free list.
	assert.Error(t, tab.release(h))
}

func TestHandleTableSlotReuseBumpsGeneration(t *testing.T) {
	var tab handleTable
	old := tab.alloc(&BufferRecord{Binding: 0})
	require.NoError(t, tab.release(old))

	fresh := tab.alloc(&BufferRecord{Binding: 1})
	require.Equal(t, old.index(), fresh.index(), "slot should be reused")
	require.NotEqual(t, old, fresh)

	// The stale handle must not resolve to the new occupant.
	_, err := tab.lookup(old)
	assert.Error(t, err)

	rec, err := tab.lookup(fresh)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Binding)
}

func TestHandleTableEachSkipsReleased(t *testing.T) {
	var tab handleTable
	h1 := tab.alloc(&BufferRecord{Binding: 0})
	tab.alloc(&BufferRecord{Binding: 1})
	require.NoError(t, tab.release(h1))

	var seen []int
	tab.each(func(h BufferHandle, rec *BufferRecord) {
		seen = append(seen, rec.Binding)
	})
	assert.Equal(t, []int{1}, seen)
}

func TestHandleNeverZero(t *testing.T) {
	// Index 0 with the first generation must not collide with NilBuffer.
	h := makeHandle(0, 1)
	assert.NotEqual(t, NilBuffer, h)
	assert.Equal(t, 0, h.index())
	assert.Equal(t, uint32(1), h.generation())
}
