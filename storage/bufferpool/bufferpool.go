// Package bufferpool implements the pinning buffer manager the B+-tree
// engine treats as an external collaborator: AllocPage and
// ReadPage each pin a page, UnpinPage releases exactly one pin and
// records whether the page was modified, and FlushFile writes every
// dirty page of a file back to disk. It pages nodes in and out of a
// storage/diskmgr.PagedFile, LRU-evicting unpinned frames when the pool
// is full.
//
// Modeled on storage_engine/bufferpool in the teacher repo.
package bufferpool

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"btreeidx/storage/diskmgr"
	"btreeidx/storage/page"
	"btreeidx/types"
)

// New creates a buffer pool that holds at most capacity pages in memory
// at once.
func New(capacity int) (*BufferPool, error) {
	hot, err := ristretto.NewCache(&ristretto.Config[uint64, struct{}]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("bufferpool: create frequency sketch: %w", err)
	}

	return &BufferPool{
		frames:      make(map[frameKey]*page.Page, capacity),
		files:       make(map[FileID]*diskmgr.PagedFile),
		capacity:    capacity,
		accessOrder: make([]frameKey, 0, capacity),
		hot:         hot,
	}, nil
}

// RegisterFile attaches a paged file under fileID so its pages can be
// fetched/allocated/flushed through this pool.
func (bp *BufferPool) RegisterFile(fileID FileID, pf *diskmgr.PagedFile) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.files[fileID] = pf
}

// UnregisterFile detaches a file. Any of its frames still resident are
// dropped from the pool without being flushed — callers must FlushFile
// first if they want the data durable.
func (bp *BufferPool) UnregisterFile(fileID FileID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	delete(bp.files, fileID)
	for k := range bp.frames {
		if k.File == fileID {
			delete(bp.frames, k)
		}
	}
	bp.pruneAccessOrder(fileID)
}

// AllocPage asks fileID's paged file for a fresh page number, creates
// the in-memory frame for it, and returns it pinned and marked dirty —
// the page exists only in memory until a later flush (FlushPage,
// FlushFile) or its eviction writes it out.
func (bp *BufferPool) AllocPage(fileID FileID) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pf, ok := bp.files[fileID]
	if !ok {
		return nil, fmt.Errorf("bufferpool: file %d not registered", fileID)
	}

	id := pf.AllocatePage()
	pg := page.New(id)
	pg.PinCount = 1
	pg.IsDirty = true

	if err := bp.addFrame(fileID, pg); err != nil {
		return nil, fmt.Errorf("bufferpool: alloc page %d: %w", id, err)
	}

	fmt.Printf("[BufferPool] ALLOC file=%d page=%d\n", fileID, id)
	return pg, nil
}

// ReadPage pins the named page, loading it from disk on a cache miss.
func (bp *BufferPool) ReadPage(fileID FileID, id types.PageID) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	key := frameKey{fileID, id}
	if pg, ok := bp.frames[key]; ok {
		fmt.Printf("[BufferPool] HIT file=%d page=%d pins=%d\n", fileID, id, pg.PinCount)
		pg.Lock()
		pg.PinCount++
		pg.Unlock()
		bp.touch(key)
		return pg, nil
	}

	pf, ok := bp.files[fileID]
	if !ok {
		return nil, fmt.Errorf("bufferpool: file %d not registered", fileID)
	}

	fmt.Printf("[BufferPool] MISS file=%d page=%d — loading from disk\n", fileID, id)
	pg, err := pf.ReadPage(id)
	if err != nil {
		return nil, fmt.Errorf("bufferpool: read page %d: %w", id, err)
	}
	pg.PinCount = 1

	if err := bp.addFrame(fileID, pg); err != nil {
		return nil, fmt.Errorf("bufferpool: read page %d: %w", id, err)
	}
	return pg, nil
}

// UnpinPage releases one pin on a page. dirty is OR'd into the page's
// existing dirty flag — once dirty, a page stays dirty until flushed.
func (bp *BufferPool) UnpinPage(fileID FileID, id types.PageID, dirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	key := frameKey{fileID, id}
	pg, ok := bp.frames[key]
	if !ok {
		return fmt.Errorf("bufferpool: page %d of file %d not resident", id, fileID)
	}

	pg.Lock()
	if pg.PinCount > 0 {
		pg.PinCount--
	}
	if dirty {
		pg.IsDirty = true
	}
	pg.Unlock()

	return nil
}

// FlushPage writes one page to disk if it is dirty.
func (bp *BufferPool) FlushPage(fileID FileID, id types.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.flushFrame(fileID, id)
}

// FlushFile writes every dirty page belonging to fileID back to disk.
func (bp *BufferPool) FlushFile(fileID FileID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for k := range bp.frames {
		if k.File != fileID {
			continue
		}
		if err := bp.flushFrame(k.File, k.Page); err != nil {
			return err
		}
	}
	return nil
}

// flushFrame writes the frame at key to disk if dirty. Caller holds bp.mu.
func (bp *BufferPool) flushFrame(fileID FileID, id types.PageID) error {
	key := frameKey{fileID, id}
	pg, ok := bp.frames[key]
	if !ok {
		return nil
	}
	pg.Lock()
	defer pg.Unlock()
	if !pg.IsDirty {
		return nil
	}
	pf, ok := bp.files[fileID]
	if !ok {
		return fmt.Errorf("bufferpool: file %d not registered", fileID)
	}
	if err := pf.WritePage(pg); err != nil {
		return fmt.Errorf("bufferpool: flush page %d: %w", id, err)
	}
	pg.IsDirty = false
	return nil
}

// Stats reports a snapshot of pool occupancy.
func (bp *BufferPool) Stats() Stats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	s := Stats{TotalPages: len(bp.frames), Capacity: bp.capacity}
	for _, pg := range bp.frames {
		pg.Lock()
		if pg.PinCount > 0 {
			s.PinnedPages++
		}
		if pg.IsDirty {
			s.DirtyPages++
		}
		pg.Unlock()
	}
	return s
}

// addFrame inserts pg into the frame table, evicting an unpinned victim
// first if the pool is at capacity. Caller holds bp.mu.
func (bp *BufferPool) addFrame(fileID FileID, pg *page.Page) error {
	key := frameKey{fileID, pg.ID}
	if _, exists := bp.frames[key]; exists {
		bp.touch(key)
		return nil
	}

	if len(bp.frames) >= bp.capacity {
		if err := bp.evict(); err != nil {
			return err
		}
	}

	bp.frames[key] = pg
	bp.touch(key)
	return nil
}

// evict flushes and drops one unpinned frame, preferring the LRU
// candidate the frequency sketch reports as cold. Caller holds bp.mu.
func (bp *BufferPool) evict() error {
	victimIdx := -1
	for i, key := range bp.accessOrder {
		pg, ok := bp.frames[key]
		if !ok {
			continue
		}
		pg.Lock()
		pinned := pg.PinCount > 0
		pg.Unlock()
		if pinned {
			continue
		}
		if victimIdx == -1 {
			victimIdx = i // first unpinned candidate: the LRU fallback
		}
		if _, hot := bp.hot.Get(key.ristrettoKey()); !hot {
			victimIdx = i // colder candidate found further down the list
			break
		}
	}
	if victimIdx == -1 {
		return fmt.Errorf("bufferpool: all %d frames pinned, cannot evict", len(bp.frames))
	}

	key := bp.accessOrder[victimIdx]
	if err := bp.flushFrame(key.File, key.Page); err != nil {
		return fmt.Errorf("bufferpool: evict page %d: %w", key.Page, err)
	}
	fmt.Printf("[BufferPool] EVICT file=%d page=%d\n", key.File, key.Page)
	delete(bp.frames, key)
	bp.accessOrder = append(bp.accessOrder[:victimIdx], bp.accessOrder[victimIdx+1:]...)
	bp.hot.Del(key.ristrettoKey())
	return nil
}

// touch moves key to the most-recently-used end of accessOrder and
// marks it hot in the frequency sketch. Caller holds bp.mu.
func (bp *BufferPool) touch(key frameKey) {
	for i, k := range bp.accessOrder {
		if k == key {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
	bp.accessOrder = append(bp.accessOrder, key)
	bp.hot.Set(key.ristrettoKey(), struct{}{}, 1)
}

// pruneAccessOrder drops every entry belonging to fileID. Caller holds bp.mu.
func (bp *BufferPool) pruneAccessOrder(fileID FileID) {
	kept := bp.accessOrder[:0]
	for _, k := range bp.accessOrder {
		if k.File != fileID {
			kept = append(kept, k)
		}
	}
	bp.accessOrder = kept
}
