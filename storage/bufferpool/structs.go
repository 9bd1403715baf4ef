package bufferpool

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"btreeidx/storage/diskmgr"
	"btreeidx/storage/page"
	"btreeidx/types"
)

// FileID distinguishes the paged files a single shared BufferPool may
// be backing at once — one B+-tree index normally registers one file,
// but the pool itself is shared infrastructure, the way the teacher's
// BufferPool is shared between heap files and index files.
type FileID uint32

// frameKey addresses one cached page: which file it belongs to, and its
// page number within that file.
type frameKey struct {
	File FileID
	Page types.PageID
}

// ristrettoKey packs frameKey into the integer form ristretto.Cache
// requires as a key.
func (k frameKey) ristrettoKey() uint64 {
	return uint64(k.File)<<32 | uint64(uint32(k.Page))
}

// BufferPool is the pinning buffer manager the B+-tree engine is built
// against: AllocPage/ReadPage pin, UnpinPage releases one pin and
// accumulates the dirty flag, FlushFile writes every dirty page of one
// file back to disk. Eviction never touches a pinned page.
//
// Victim selection follows the teacher's LRU access-order list
// (storage_engine/bufferpool/bufferpool.go), augmented with a ristretto
// TinyLFU sketch (`hot`) that tracks which frames are accessed often;
// among several unpinned LRU candidates, the pool prefers to evict one
// the sketch reports as cold. The sketch is purely a preference signal —
// dirty tracking and the authoritative frame table below are what
// FlushFile relies on, so a missed or delayed sketch update can never
// cause a dirty page to go unflushed.
type BufferPool struct {
	frames      map[frameKey]*page.Page
	files       map[FileID]*diskmgr.PagedFile
	capacity    int
	accessOrder []frameKey

	hot *ristretto.Cache[uint64, struct{}]

	mu sync.Mutex
}

// Stats reports a snapshot of pool occupancy, mirroring the teacher's
// BufferPoolStats.
type Stats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
}
