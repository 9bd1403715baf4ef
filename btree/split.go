package btree

import "btreeidx/types"

// splitLeaf allocates a new right-sibling leaf, moves the upper half of
// old's entries into it, splices the sibling chain, and returns the
// separator key pushed up to the parent — the first key of the new
// right leaf.
func (idx *Index[K]) splitLeaf(old leafView[K], oldID types.PageID) (K, types.PageID, error) {
	rightPg, err := idx.pool.AllocPage(idx.fileID)
	if err != nil {
		return idx.ops.Zero, types.NoPage, err
	}
	right := asLeaf(rightPg, idx.ops)
	right.init()

	m := old.cap / 2
	for j := 0; j < old.cap-m; j++ {
		right.setKey(j, old.key(m+j))
		right.setRid(j, old.rid(m+j))
	}
	for i := m; i < old.cap; i++ {
		old.setKey(i, idx.ops.Zero)
	}

	right.setRightSibling(old.rightSibling())
	old.setRightSibling(rightPg.ID)

	separator := right.key(0)

	if err := idx.pool.UnpinPage(idx.fileID, rightPg.ID, true); err != nil {
		return idx.ops.Zero, types.NoPage, err
	}
	return separator, rightPg.ID, nil
}

// splitNonLeaf promotes the median key (old.key(m)) to the caller's
// parent while also keeping it as the new right node's first key — a
// deliberate departure from the textbook convention of removing the
// median from both children. No child pointer is dropped: old keeps
// children[0..m] and the right node receives children[m..cap], so
// children[m] appears in both nodes (as old's last child and as the
// right node's first child, left of the duplicated median).
func (idx *Index[K]) splitNonLeaf(old nonLeafView[K], oldID types.PageID) (K, types.PageID, error) {
	rightPg, err := idx.pool.AllocPage(idx.fileID)
	if err != nil {
		return idx.ops.Zero, types.NoPage, err
	}
	right := asNonLeaf(rightPg, idx.ops)
	right.init(old.level())

	m := old.cap / 2
	promoteKey := old.key(m)

	for j := 0; j < old.cap-m; j++ {
		right.setKey(j, old.key(m+j))
	}
	for j := 0; j <= old.cap-m; j++ {
		right.setChild(j, old.child(m+j))
	}

	for i := m; i < old.cap; i++ {
		old.setKey(i, idx.ops.Zero)
	}
	for i := m + 1; i <= old.cap; i++ {
		old.setChild(i, types.NoPage)
	}

	if err := idx.pool.UnpinPage(idx.fileID, rightPg.ID, true); err != nil {
		return idx.ops.Zero, types.NoPage, err
	}
	return promoteKey, rightPg.ID, nil
}
