package btree

import (
	"btreeidx/storage/page"
	"btreeidx/types"
)

// scanState holds the state of a single active range scan. At most one
// scan is active per index. leafPage, once set, is held pinned for the
// scan's entire steady state — released only when the scan advances to
// a sibling or ends.
type scanState[K Key] struct {
	leafPage       *page.Page
	nextEntry      int
	startScanIndex int
	lowVal, highVal K
	lowOp, highOp   types.Operator
	started         bool
}

// startScan validates the range's comparators and bounds, then
// positions the scan at the leaf that holds (or would hold) the low
// bound.
func (idx *Index[K]) startScan(low K, lowOp types.Operator, high K, highOp types.Operator) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.scan != nil {
		return ErrScanAlreadyActive
	}
	if lowOp != types.GT && lowOp != types.GTE {
		return ErrBadOpcodes
	}
	if highOp != types.LT && highOp != types.LTE {
		return ErrBadOpcodes
	}
	if idx.ops.Compare(low, high) > 0 {
		return ErrBadScanRange
	}

	meta, err := idx.loadMeta()
	if err != nil {
		return err
	}
	if meta.RootLevel == metaNoRootLevel {
		idx.scan = &scanState[K]{lowVal: low, highVal: high, lowOp: lowOp, highOp: highOp, startScanIndex: -1}
		return nil
	}

	leafID := meta.RootPageNo
	if meta.RootLevel > 0 {
		leafID, err = idx.findStartLeaf(meta.RootPageNo, low)
		if err != nil {
			return err
		}
	}
	pg, err := idx.pool.ReadPage(idx.fileID, leafID)
	if err != nil {
		return err
	}

	idx.scan = &scanState[K]{
		leafPage:       pg,
		startScanIndex: -1,
		lowVal:         low,
		highVal:        high,
		lowOp:          lowOp,
		highOp:         highOp,
	}
	return nil
}

// findStartLeaf descends from nodeID picking, at each non-leaf, the
// smallest child index i with keys[i] >= low (sentinels treated as
// absent), stopping at the leaf reached.
func (idx *Index[K]) findStartLeaf(nodeID types.PageID, low K) (types.PageID, error) {
	pg, err := idx.pool.ReadPage(idx.fileID, nodeID)
	if err != nil {
		return types.NoPage, err
	}
	node := asNonLeaf(pg, idx.ops)
	level := node.level()
	occ := node.occupancy()

	i := occ
	for j := 0; j < occ; j++ {
		if idx.ops.Compare(node.key(j), low) >= 0 {
			i = j
			break
		}
	}
	childID := node.child(i)

	if err := idx.pool.UnpinPage(idx.fileID, nodeID, false); err != nil {
		return types.NoPage, err
	}
	if level == 1 {
		return childID, nil
	}
	return idx.findStartLeaf(childID, low)
}

// scanNext returns the next record id in range, advancing across leaf
// siblings as needed and stopping once the high bound is exceeded.
func (idx *Index[K]) scanNext() (types.RecordID, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	s := idx.scan
	if s == nil {
		return types.RecordID{}, ErrScanNotInitialized
	}
	if s.leafPage == nil {
		return types.RecordID{}, ErrIndexScanCompleted
	}

	if !s.started {
		leaf := asLeaf(s.leafPage, idx.ops)
		i := s.nextEntry
		for i < leaf.cap && !idx.ops.IsSentinel(leaf.key(i)) {
			cmp := idx.ops.Compare(leaf.key(i), s.lowVal)
			if cmp > 0 || (cmp == 0 && s.lowOp == types.GTE) {
				break
			}
			i++
		}
		s.startScanIndex = i
		s.nextEntry = i
		s.started = true
	}

	for {
		leaf := asLeaf(s.leafPage, idx.ops)

		if s.nextEntry >= leaf.cap || idx.ops.IsSentinel(leaf.key(s.nextEntry)) {
			sibling := leaf.rightSibling()
			if sibling == types.NoPage {
				return types.RecordID{}, ErrIndexScanCompleted
			}
			nextPg, err := idx.pool.ReadPage(idx.fileID, sibling)
			if err != nil {
				return types.RecordID{}, err
			}
			oldPageID := s.leafPage.ID
			if err := idx.pool.UnpinPage(idx.fileID, oldPageID, false); err != nil {
				idx.pool.UnpinPage(idx.fileID, sibling, false)
				return types.RecordID{}, err
			}
			s.leafPage = nextPg
			s.nextEntry = 0
			continue
		}

		key := leaf.key(s.nextEntry)
		// findStartLeaf stops left of a separator equal to the low bound,
		// so a sibling reached from there can begin with keys the low
		// bound excludes.
		if lc := idx.ops.Compare(key, s.lowVal); lc < 0 || (lc == 0 && s.lowOp == types.GT) {
			s.nextEntry++
			continue
		}
		cmp := idx.ops.Compare(key, s.highVal)
		if cmp > 0 || (cmp == 0 && s.highOp == types.LT) {
			return types.RecordID{}, ErrIndexScanCompleted
		}

		rid := leaf.rid(s.nextEntry)
		s.nextEntry++
		return rid, nil
	}
}

// endScan releases the current leaf's pin and clears the scan state.
func (idx *Index[K]) endScan() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	s := idx.scan
	if s == nil {
		return ErrScanNotInitialized
	}
	idx.scan = nil
	if s.leafPage == nil {
		return nil
	}
	return idx.pool.UnpinPage(idx.fileID, s.leafPage.ID, false)
}
