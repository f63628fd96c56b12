package vkf

import (
	"github.com/cockroachdb/errors"
)

// BufferHandle identifies a buffer managed by the Framework. Zero means "no
// buffer". A handle is only valid for the lifetime of the buffer it was
// returned for: deleting the buffer invalidates the handle, and a slot reused
// by a later buffer yields a different handle value.
type BufferHandle uint64

// NilBuffer is the reserved "no buffer" handle.
const NilBuffer BufferHandle = 0

func makeHandle(index int, generation uint32) BufferHandle {
	return BufferHandle(uint64(generation)<<32 | uint64(uint32(index)+1))
}

func (h BufferHandle) index() int {
	return int(uint32(h)) - 1
}

func (h BufferHandle) generation() uint32 {
	return uint32(h >> 32)
}

// handleTable maps buffer handles to records. Slots are reused after
// deletion, but each reuse bumps the slot generation so a stale handle
// resolves to an error rather than to whichever buffer now occupies the slot.
type handleTable struct {
	slots []bufferSlot
	free  []int
}

type bufferSlot struct {
	generation uint32
	record     *BufferRecord
}

// alloc claims a slot for rec, reusing a free one if available, and returns
// the handle addressing it.
func (t *handleTable) alloc(rec *BufferRecord) BufferHandle {
	var idx int
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, bufferSlot{generation: 1})
		idx = len(t.slots) - 1
	}
	t.slots[idx].record = rec
	return makeHandle(idx, t.slots[idx].generation)
}

// lookup resolves a handle to its record. It fails for the nil handle, for
// handles outside the table, for deleted buffers and for handles whose slot
// has since been reused.
func (t *handleTable) lookup(h BufferHandle) (*BufferRecord, error) {
	if h == NilBuffer {
		return nil, errors.New("nil buffer handle")
	}
	idx := h.index()
	if idx < 0 || idx >= len(t.slots) {
		return nil, errors.Newf("buffer handle %#x is out of range", uint64(h))
	}
	slot := &t.slots[idx]
	if slot.record == nil {
		return nil, errors.Newf("buffer handle %#x refers to a deleted buffer", uint64(h))
	}
	if slot.generation != h.generation() {
		return nil, errors.Newf("buffer handle %#x is stale, its slot has been reused", uint64(h))
	}
	return slot.record, nil
}

// release marks the slot free. The slot becomes eligible for reuse by a later
// buffer under a new generation.
func (t *handleTable) release(h BufferHandle) error {
	if _, err := t.lookup(h); err != nil {
		return err
	}
	idx := h.index()
	t.slots[idx].record = nil
	t.slots[idx].generation++
	t.free = append(t.free, idx)
	return nil
}

// each calls fn for every live record. Used at teardown and for stats.
func (t *handleTable) each(fn func(h BufferHandle, rec *BufferRecord)) {
	for i := range t.slots {
		if t.slots[i].record != nil {
			fn(makeHandle(i, t.slots[i].generation), t.slots[i].record)
		}
	}
}

// count returns the number of live records.
func (t *handleTable) count() int {
	n := 0
	t.each(func(BufferHandle, *BufferRecord) { n++ })
	return n
}
