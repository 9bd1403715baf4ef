package btree

import "btreeidx/types"

// insertEntry dispatches on the current shape of the tree: no root page
// yet, a single leaf root, or a non-leaf root with a real tree beneath it.
func (idx *Index[K]) insertEntry(key K, rid types.RecordID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	meta, err := idx.loadMeta()
	if err != nil {
		return err
	}

	switch {
	case meta.RootLevel == metaNoRootLevel:
		return idx.insertIntoEmptyTree(key, rid)
	case meta.RootLevel == 0:
		return idx.insertIntoLeafRoot(meta, key, rid)
	default:
		return idx.insertIntoTree(meta, key, rid)
	}
}

// insertIntoEmptyTree allocates the singleton root leaf for a fresh
// index that has only its metadata page so far.
func (idx *Index[K]) insertIntoEmptyTree(key K, rid types.RecordID) error {
	pg, err := idx.pool.AllocPage(idx.fileID)
	if err != nil {
		return err
	}
	leaf := asLeaf(pg, idx.ops)
	leaf.init()
	leaf.setKey(0, key)
	leaf.setRid(0, rid)

	if err := idx.pool.UnpinPage(idx.fileID, pg.ID, true); err != nil {
		return err
	}
	return idx.storeMeta(pg.ID, 0)
}

// insertIntoLeafRoot handles a tree that is still a single leaf: insert
// in sorted order, then root-split if it overflowed.
func (idx *Index[K]) insertIntoLeafRoot(meta metadataPage, key K, rid types.RecordID) error {
	full, err := idx.insertLeafEntry(meta.RootPageNo, key, rid)
	if err != nil {
		return err
	}
	if !full {
		return nil
	}

	sepKey, rightID, err := idx.splitChild(meta.RootPageNo, true)
	if err != nil {
		return err
	}
	return idx.growRoot(meta.RootPageNo, sepKey, rightID, meta.RootLevel)
}

// insertIntoTree handles a root that is already a non-leaf: descend,
// and if the root itself overflowed on the unwind, root-split it.
func (idx *Index[K]) insertIntoTree(meta metadataPage, key K, rid types.RecordID) error {
	rootOverflowed, err := idx.descend(meta.RootPageNo, key, rid)
	if err != nil {
		return err
	}
	if !rootOverflowed {
		return nil
	}

	sepKey, rightID, err := idx.splitChild(meta.RootPageNo, false)
	if err != nil {
		return err
	}
	return idx.growRoot(meta.RootPageNo, sepKey, rightID, meta.RootLevel)
}

// descend reads nodeID, routes to a child, either inserts directly
// (child is a leaf) or recurses (child is a non-leaf), and — on return —
// if the child overflowed, splits it using nodeID as the parent. It
// reports whether nodeID itself is now full, leaving the decision of how
// to split nodeID to whichever caller holds nodeID's own parent pinned
// (or, at the top of the recursion, to insertIntoTree's root-split logic).
func (idx *Index[K]) descend(nodeID types.PageID, key K, rid types.RecordID) (bool, error) {
	pg, err := idx.pool.ReadPage(idx.fileID, nodeID)
	if err != nil {
		return false, err
	}
	node := asNonLeaf(pg, idx.ops)
	level := node.level()
	childIdx := node.childIndex(key)
	childID := node.child(childIdx)

	var childOverflowed bool
	if level == 1 {
		childOverflowed, err = idx.insertLeafEntry(childID, key, rid)
	} else {
		childOverflowed, err = idx.descend(childID, key, rid)
	}
	if err != nil {
		idx.pool.UnpinPage(idx.fileID, nodeID, false)
		return false, err
	}
	if !childOverflowed {
		return false, idx.pool.UnpinPage(idx.fileID, nodeID, false)
	}

	sepKey, rightID, err := idx.splitChild(childID, level == 1)
	if err != nil {
		idx.pool.UnpinPage(idx.fileID, nodeID, false)
		return false, err
	}
	node.insertSeparator(childIdx, sepKey, rightID)
	full := node.isFull()
	return full, idx.pool.UnpinPage(idx.fileID, nodeID, true)
}

// insertLeafEntry inserts (key, rid) into the leaf at leafID in sorted
// order, and reports whether it is now full.
func (idx *Index[K]) insertLeafEntry(leafID types.PageID, key K, rid types.RecordID) (bool, error) {
	pg, err := idx.pool.ReadPage(idx.fileID, leafID)
	if err != nil {
		return false, err
	}
	leaf := asLeaf(pg, idx.ops)
	leaf.insertSorted(key, rid)
	full := leaf.isFull()
	return full, idx.pool.UnpinPage(idx.fileID, leafID, true)
}

// splitChild splits the node at childID — a leaf if childIsLeaf, else a
// non-leaf — returning the separator and new right sibling to insert
// into the parent.
func (idx *Index[K]) splitChild(childID types.PageID, childIsLeaf bool) (K, types.PageID, error) {
	pg, err := idx.pool.ReadPage(idx.fileID, childID)
	if err != nil {
		return idx.ops.Zero, types.NoPage, err
	}

	var sepKey K
	var rightID types.PageID
	if childIsLeaf {
		sepKey, rightID, err = idx.splitLeaf(asLeaf(pg, idx.ops), childID)
	} else {
		sepKey, rightID, err = idx.splitNonLeaf(asNonLeaf(pg, idx.ops), childID)
	}
	if err != nil {
		idx.pool.UnpinPage(idx.fileID, childID, false)
		return idx.ops.Zero, types.NoPage, err
	}
	return sepKey, rightID, idx.pool.UnpinPage(idx.fileID, childID, true)
}

// growRoot allocates a fresh non-leaf root one level above the old root,
// with the old root and its new sibling as its two children.
func (idx *Index[K]) growRoot(oldRootID types.PageID, sepKey K, rightID types.PageID, oldLevel int32) error {
	pg, err := idx.pool.AllocPage(idx.fileID)
	if err != nil {
		return err
	}
	root := asNonLeaf(pg, idx.ops)
	root.init(oldLevel + 1)
	root.setKey(0, sepKey)
	root.setChild(0, oldRootID)
	root.setChild(1, rightID)

	if err := idx.pool.UnpinPage(idx.fileID, pg.ID, true); err != nil {
		return err
	}
	return idx.storeMeta(pg.ID, oldLevel+1)
}
