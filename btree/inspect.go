package btree

import (
	"fmt"
	"io"
	"os"

	"btreeidx/storage/bufferpool"
	"btreeidx/storage/diskmgr"
	"btreeidx/types"
)

// DumpIndexFile opens an index file, reading its pages without writing
// any back, and prints a human-readable BFS dump of its tree structure
// to stdout — the debugging aid the
// source's printTree provided, surfaced here for cmd/inspect rather than
// as part of the caller-facing operations.
func DumpIndexFile(path string) error {
	return DumpIndexFileTo(os.Stdout, path)
}

// DumpIndexFileTo writes the dump to w.
func DumpIndexFileTo(w io.Writer, path string) error {
	pool, err := bufferpool.New(64)
	if err != nil {
		return err
	}
	fileID := bufferpool.FileID(1)

	pf, err := diskmgr.Open(path)
	if err != nil {
		return fmt.Errorf("open index file %s: %w", path, err)
	}
	pool.RegisterFile(fileID, pf)
	defer pf.Close()
	defer pool.UnregisterFile(fileID)

	metaPg, err := pool.ReadPage(fileID, metaPageID)
	if err != nil {
		return fmt.Errorf("read metadata page: %w", err)
	}
	meta := readMetadataPage(metaPg)
	pool.UnpinPage(fileID, metaPageID, false)

	fmt.Fprintf(w, "Index file: %s\n", path)
	fmt.Fprintf(w, "  relation=%s attrOffset=%d attrType=%s rootLevel=%d rootPage=%d\n",
		meta.RelationName, meta.AttrOffset, meta.AttrType, meta.RootLevel, meta.RootPageNo)
	if meta.RootLevel == metaNoRootLevel {
		fmt.Fprintln(w, "  (empty tree)")
		return nil
	}

	switch meta.AttrType {
	case types.Integer:
		return dumpTree(w, pool, fileID, IntOps(), meta.RootPageNo, meta.RootLevel)
	case types.Double:
		return dumpTree(w, pool, fileID, DoubleOps(), meta.RootPageNo, meta.RootLevel)
	case types.String:
		return dumpTree(w, pool, fileID, StringOps(), meta.RootPageNo, meta.RootLevel)
	default:
		return fmt.Errorf("unknown attribute datatype %v", meta.AttrType)
	}
}

// dumpTree walks the tree breadth-first, printing each non-leaf's
// separators/children and each leaf's (key, rid) entries.
func dumpTree[K Key](w io.Writer, pool *bufferpool.BufferPool, fileID bufferpool.FileID, ops KeyOps[K], rootID types.PageID, rootLevel int32) error {
	type queued struct {
		id    types.PageID
		level int32
	}
	queue := []queued{{rootID, rootLevel}}

	for depth := 0; len(queue) > 0; depth++ {
		fmt.Fprintf(w, "  Level %d:\n", depth)
		var next []queued
		for _, q := range queue {
			pg, err := pool.ReadPage(fileID, q.id)
			if err != nil {
				fmt.Fprintf(w, "    [page %d] read error: %v\n", q.id, err)
				continue
			}
			if q.level == 0 {
				leaf := asLeaf(pg, ops)
				occ := leaf.occupancy()
				fmt.Fprintf(w, "    [page %d] LEAF occ=%d next=%d\n", q.id, occ, leaf.rightSibling())
				for i := 0; i < occ; i++ {
					fmt.Fprintf(w, "      %v -> %+v\n", leaf.key(i), leaf.rid(i))
				}
			} else {
				node := asNonLeaf(pg, ops)
				occ := node.occupancy()
				keys := make([]K, occ)
				for i := range keys {
					keys[i] = node.key(i)
				}
				children := make([]types.PageID, occ+1)
				for i := range children {
					children[i] = node.child(i)
				}
				fmt.Fprintf(w, "    [page %d] NONLEAF level=%d keys=%v children=%v\n", q.id, q.level, keys, children)
				for _, c := range children {
					if c != types.NoPage {
						next = append(next, queued{c, q.level - 1})
					}
				}
			}
			pool.UnpinPage(fileID, q.id, false)
		}
		queue = next
	}
	return nil
}
