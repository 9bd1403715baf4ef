package btree

import (
	"encoding/binary"

	"btreeidx/storage/page"
	"btreeidx/types"
)

// leafHeaderSize is the byte width of a leaf page's header: just the
// right-sibling page id.
const leafHeaderSize = pageIDSize

// leafView overlays a page's bytes as a leaf node of key type K: a
// sorted key array, a parallel record-id array, and a right-sibling
// pointer. Mutating the view mutates the underlying page directly.
type leafView[K Key] struct {
	pg  *page.Page
	ops KeyOps[K]
	cap int
}

func asLeaf[K Key](pg *page.Page, ops KeyOps[K]) leafView[K] {
	return leafView[K]{pg: pg, ops: ops, cap: ops.LeafCapacity()}
}

func (v leafView[K]) keysOffset() int { return leafHeaderSize }
func (v leafView[K]) ridsOffset() int { return leafHeaderSize + v.cap*v.ops.Size }

func (v leafView[K]) key(i int) K {
	off := v.keysOffset() + i*v.ops.Size
	return v.ops.Decode(v.pg.Data[off : off+v.ops.Size])
}

func (v leafView[K]) setKey(i int, k K) {
	off := v.keysOffset() + i*v.ops.Size
	v.ops.Encode(k, v.pg.Data[off:off+v.ops.Size])
}

func (v leafView[K]) rid(i int) types.RecordID {
	off := v.ridsOffset() + i*ridSize
	return types.RecordID{
		PageNumber: int32(binary.LittleEndian.Uint32(v.pg.Data[off:])),
		SlotNumber: int32(binary.LittleEndian.Uint32(v.pg.Data[off+4:])),
	}
}

func (v leafView[K]) setRid(i int, rid types.RecordID) {
	off := v.ridsOffset() + i*ridSize
	binary.LittleEndian.PutUint32(v.pg.Data[off:], uint32(rid.PageNumber))
	binary.LittleEndian.PutUint32(v.pg.Data[off+4:], uint32(rid.SlotNumber))
}

func (v leafView[K]) rightSibling() types.PageID {
	return types.PageID(int32(binary.LittleEndian.Uint32(v.pg.Data[0:])))
}

func (v leafView[K]) setRightSibling(id types.PageID) {
	binary.LittleEndian.PutUint32(v.pg.Data[0:], uint32(id))
}

// init fills every key slot with the sentinel and clears the sibling
// pointer.
func (v leafView[K]) init() {
	for i := 0; i < v.cap; i++ {
		v.setKey(i, v.ops.Zero)
	}
	v.setRightSibling(types.NoPage)
}

// occupancy counts leading non-sentinel slots. Invariant 1 keeps keys
// gapless and sorted, so this is exactly the number of live entries.
func (v leafView[K]) occupancy() int {
	n := 0
	for n < v.cap && !v.ops.IsSentinel(v.key(n)) {
		n++
	}
	return n
}

func (v leafView[K]) isFull() bool {
	return v.cap > 0 && !v.ops.IsSentinel(v.key(v.cap-1))
}

// insertSorted scans from the tail toward the head, shifting each
// occupied slot one position right so long as it is a sentinel or its
// key exceeds the one being inserted, then drops the new entry into the
// vacated slot. Stopping the shift at the first key that does not
// exceed the new one (rather than shifting past it too) means an
// inserted duplicate lands after any existing equal keys.
func (v leafView[K]) insertSorted(key K, rid types.RecordID) {
	i := v.cap - 1
	for i > 0 {
		cur := v.key(i - 1)
		if v.ops.IsSentinel(cur) {
			i--
			continue
		}
		if v.ops.Compare(cur, key) > 0 {
			v.setKey(i, cur)
			v.setRid(i, v.rid(i-1))
			i--
			continue
		}
		break
	}
	v.setKey(i, key)
	v.setRid(i, rid)
}

// nonLeafHeaderSize is the byte width of a non-leaf page's header: just
// the level field.
const nonLeafHeaderSize = 4

// nonLeafView overlays a page's bytes as a non-leaf node of key type K:
// sorted separator keys, one more child page id than keys, and a level
// number.
type nonLeafView[K Key] struct {
	pg  *page.Page
	ops KeyOps[K]
	cap int
}

func asNonLeaf[K Key](pg *page.Page, ops KeyOps[K]) nonLeafView[K] {
	return nonLeafView[K]{pg: pg, ops: ops, cap: ops.NonLeafCapacity()}
}

func (v nonLeafView[K]) keysOffset() int     { return nonLeafHeaderSize }
func (v nonLeafView[K]) childrenOffset() int { return nonLeafHeaderSize + v.cap*v.ops.Size }

func (v nonLeafView[K]) level() int32 {
	return int32(binary.LittleEndian.Uint32(v.pg.Data[0:]))
}

func (v nonLeafView[K]) setLevel(l int32) {
	binary.LittleEndian.PutUint32(v.pg.Data[0:], uint32(l))
}

func (v nonLeafView[K]) key(i int) K {
	off := v.keysOffset() + i*v.ops.Size
	return v.ops.Decode(v.pg.Data[off : off+v.ops.Size])
}

func (v nonLeafView[K]) setKey(i int, k K) {
	off := v.keysOffset() + i*v.ops.Size
	v.ops.Encode(k, v.pg.Data[off:off+v.ops.Size])
}

func (v nonLeafView[K]) child(i int) types.PageID {
	off := v.childrenOffset() + i*pageIDSize
	return types.PageID(int32(binary.LittleEndian.Uint32(v.pg.Data[off:])))
}

func (v nonLeafView[K]) setChild(i int, id types.PageID) {
	off := v.childrenOffset() + i*pageIDSize
	binary.LittleEndian.PutUint32(v.pg.Data[off:], uint32(id))
}

// init fills every key slot with the sentinel, every child slot with
// NoPage, and sets the level.
func (v nonLeafView[K]) init(level int32) {
	for i := 0; i < v.cap; i++ {
		v.setKey(i, v.ops.Zero)
	}
	for i := 0; i <= v.cap; i++ {
		v.setChild(i, types.NoPage)
	}
	v.setLevel(level)
}

func (v nonLeafView[K]) occupancy() int {
	n := 0
	for n < v.cap && !v.ops.IsSentinel(v.key(n)) {
		n++
	}
	return n
}

func (v nonLeafView[K]) isFull() bool {
	return v.cap > 0 && !v.ops.IsSentinel(v.key(v.cap-1))
}

// childIndex finds the smallest i such that keys[i] > key, or i such
// that children[i+1] is not yet populated — whichever comes first.
// Falling back to children[i] when the right neighbor is unset (rather
// than erroring) is what lets routing work correctly on a node whose
// right half hasn't been populated yet.
func (v nonLeafView[K]) childIndex(key K) int {
	occ := v.occupancy()
	for i := 0; i < occ; i++ {
		if v.ops.Compare(v.key(i), key) > 0 {
			return i
		}
		if v.child(i+1) == types.NoPage {
			return i
		}
	}
	return occ
}

// insertSeparator inserts sepKey at idx and rightChild at idx+1,
// shifting the tail of both arrays right to make room.
func (v nonLeafView[K]) insertSeparator(idx int, sepKey K, rightChild types.PageID) {
	occ := v.occupancy()
	for i := occ; i > idx; i-- {
		v.setKey(i, v.key(i-1))
	}
	v.setKey(idx, sepKey)
	for i := occ + 1; i > idx+1; i-- {
		v.setChild(i, v.child(i-1))
	}
	v.setChild(idx+1, rightChild)
}
