// Package page defines the fixed-size in-memory page buffer shared by
// the disk manager and the buffer pool. It owns no I/O of its own — see
// storage/diskmgr for reads/writes and storage/bufferpool for pinning.
package page

import (
	"sync"

	"btreeidx/types"
)

// Size is the fixed size, in bytes, of every page in an index or
// relation file.
const Size = 4096

// Page is one fixed-size buffer plus the bookkeeping the buffer pool
// needs: a pin count and a dirty flag. The buffer pool is the only code
// that should construct or mutate PinCount/IsDirty directly; everything
// else should go through BufferPool.
type Page struct {
	ID       types.PageID
	Data     [Size]byte
	IsDirty  bool
	PinCount int32

	mu sync.Mutex
}

// New allocates a zeroed page with the given id.
func New(id types.PageID) *Page {
	return &Page{ID: id}
}

func (p *Page) Lock()   { p.mu.Lock() }
func (p *Page) Unlock() { p.mu.Unlock() }
