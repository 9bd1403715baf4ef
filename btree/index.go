package btree

import (
	"fmt"
	"sync"

	"btreeidx/storage/bufferpool"
	"btreeidx/storage/diskmgr"
	"btreeidx/types"
)

// metaPageID is the fixed page number of every index file's metadata
// page.
const metaPageID types.PageID = 1

// BTreeIndex is the caller-facing surface of an open index, independent
// of which concrete key type it was built over.
type BTreeIndex interface {
	InsertEntry(key KeyValue, rid types.RecordID) error
	StartScan(low KeyValue, lowOp types.Operator, high KeyValue, highOp types.Operator) error
	ScanNext() (types.RecordID, error)
	EndScan() error
	Close() error
}

// RelationScanner is the base-relation collaborator consumed at
// bootstrap time: it produces (record id, record bytes) pairs and
// signals end of relation with an error satisfying errors.Is(err,
// io.EOF). storage/relfile.Scanner implements this.
type RelationScanner interface {
	Next() (types.RecordID, []byte, error)
}

// Index is the generic engine behind BTreeIndex for one concrete key
// type K. Exported so cmd/ tooling that already knows its key type can
// work against it directly; most callers go through OpenIndex and the
// BTreeIndex interface instead.
type Index[K Key] struct {
	ops    KeyOps[K]
	pool   *bufferpool.BufferPool
	fileID bufferpool.FileID
	file   *diskmgr.PagedFile

	relationName string
	attrOffset   int32

	scan *scanState[K]
	mu   sync.Mutex
}

// Name is the index file's name on disk: "{relation}.{offset}".
func (idx *Index[K]) Name() string {
	return fmt.Sprintf("%s.%d", idx.relationName, idx.attrOffset)
}

func (idx *Index[K]) loadMeta() (metadataPage, error) {
	pg, err := idx.pool.ReadPage(idx.fileID, metaPageID)
	if err != nil {
		return metadataPage{}, fmt.Errorf("btree: read metadata page: %w", err)
	}
	m := readMetadataPage(pg)
	if err := idx.pool.UnpinPage(idx.fileID, metaPageID, false); err != nil {
		return metadataPage{}, err
	}
	return m, nil
}

func (idx *Index[K]) storeMeta(rootPageNo types.PageID, rootLevel int32) error {
	pg, err := idx.pool.ReadPage(idx.fileID, metaPageID)
	if err != nil {
		return fmt.Errorf("btree: read metadata page: %w", err)
	}
	writeMetadataPage(pg, metadataPage{
		RelationName: idx.relationName,
		AttrOffset:   idx.attrOffset,
		AttrType:     idx.ops.Datatype,
		RootPageNo:   rootPageNo,
		RootLevel:    rootLevel,
	})
	return idx.pool.UnpinPage(idx.fileID, metaPageID, true)
}

// Close ends any active scan, flushes the file, and releases it.
func (idx *Index[K]) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.scan != nil && idx.scan.leafPage != nil {
		idx.pool.UnpinPage(idx.fileID, idx.scan.leafPage.ID, false)
	}
	idx.scan = nil

	if err := idx.pool.FlushFile(idx.fileID); err != nil {
		return fmt.Errorf("btree: close %s: %w", idx.Name(), err)
	}
	idx.pool.UnregisterFile(idx.fileID)
	return idx.file.Close()
}

// BTreeIndex interface adapters — convert the type-erased KeyValue at
// the boundary and delegate to the K-typed implementation.

func (idx *Index[K]) InsertEntry(key KeyValue, rid types.RecordID) error {
	return idx.insertEntry(idx.ops.fromKeyValue(key), rid)
}

func (idx *Index[K]) StartScan(low KeyValue, lowOp types.Operator, high KeyValue, highOp types.Operator) error {
	return idx.startScan(idx.ops.fromKeyValue(low), lowOp, idx.ops.fromKeyValue(high), highOp)
}

func (idx *Index[K]) ScanNext() (types.RecordID, error) {
	return idx.scanNext()
}

func (idx *Index[K]) EndScan() error {
	return idx.endScan()
}

// OpenIndex bootstraps an index over relation's attribute at the given
// byte offset and datatype, removing any existing file of that name and
// bulk-loading the new one from scanner.
func OpenIndex(relation string, offset int32, attrType types.Datatype, pool *bufferpool.BufferPool, fileID bufferpool.FileID, scanner RelationScanner) (BTreeIndex, string, error) {
	switch attrType {
	case types.Integer:
		idx, err := openIndex(IntOps(), relation, offset, pool, fileID, scanner)
		if err != nil {
			return nil, "", err
		}
		return idx, idx.Name(), nil
	case types.Double:
		idx, err := openIndex(DoubleOps(), relation, offset, pool, fileID, scanner)
		if err != nil {
			return nil, "", err
		}
		return idx, idx.Name(), nil
	case types.String:
		idx, err := openIndex(StringOps(), relation, offset, pool, fileID, scanner)
		if err != nil {
			return nil, "", err
		}
		return idx, idx.Name(), nil
	default:
		return nil, "", fmt.Errorf("btree: unknown attribute datatype %v", attrType)
	}
}

// OpenExisting attaches to an already-built index file without
// rebuilding it, validating that the file's stored metadata matches the
// caller's expectations. OpenIndex remains the only way the engine
// itself builds an index from scratch; OpenExisting exists for a caller
// that already has one on disk and wants to reattach to it.
func OpenExisting(relation string, offset int32, attrType types.Datatype, pool *bufferpool.BufferPool, fileID bufferpool.FileID) (BTreeIndex, error) {
	switch attrType {
	case types.Integer:
		return openExisting(IntOps(), relation, offset, pool, fileID)
	case types.Double:
		return openExisting(DoubleOps(), relation, offset, pool, fileID)
	case types.String:
		return openExisting(StringOps(), relation, offset, pool, fileID)
	default:
		return nil, fmt.Errorf("btree: unknown attribute datatype %v", attrType)
	}
}

func openExisting[K Key](ops KeyOps[K], relation string, offset int32, pool *bufferpool.BufferPool, fileID bufferpool.FileID) (*Index[K], error) {
	idx := &Index[K]{
		ops:          ops,
		pool:         pool,
		fileID:       fileID,
		relationName: relation,
		attrOffset:   offset,
	}
	name := idx.Name()

	if !diskmgr.Exists(name) {
		return nil, fmt.Errorf("btree: attach to %s: %w", name, ErrFileNotFound)
	}
	pf, err := diskmgr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("btree: open index file %s: %w", name, err)
	}
	idx.file = pf
	pool.RegisterFile(fileID, pf)

	meta, err := idx.loadMeta()
	if err != nil {
		return nil, fmt.Errorf("btree: read metadata of %s: %w", name, err)
	}
	if meta.RelationName != relation || meta.AttrOffset != offset || meta.AttrType != ops.Datatype {
		return nil, fmt.Errorf("btree: %s: %w", name, ErrIndexInfoMismatch)
	}

	fmt.Printf("[BTree] attach %s attrOffset=%d attrType=%s rootLevel=%d\n", name, offset, ops.Datatype, meta.RootLevel)
	return idx, nil
}

// openIndex is the generic implementation behind OpenIndex, explicitly
// instantiated per key type by the dispatcher above.
func openIndex[K Key](ops KeyOps[K], relation string, offset int32, pool *bufferpool.BufferPool, fileID bufferpool.FileID, scanner RelationScanner) (*Index[K], error) {
	idx := &Index[K]{
		ops:          ops,
		pool:         pool,
		fileID:       fileID,
		relationName: relation,
		attrOffset:   offset,
	}
	name := idx.Name()

	if err := diskmgr.Remove(name); err != nil {
		return nil, fmt.Errorf("btree: remove existing index file %s: %w", name, err)
	}
	pf, err := diskmgr.Create(name)
	if err != nil {
		return nil, fmt.Errorf("btree: create index file %s: %w", name, err)
	}
	idx.file = pf
	pool.RegisterFile(fileID, pf)

	metaPg, err := pool.AllocPage(fileID)
	if err != nil {
		return nil, fmt.Errorf("btree: allocate metadata page: %w", err)
	}
	if metaPg.ID != metaPageID {
		pool.UnpinPage(fileID, metaPg.ID, false)
		return nil, fmt.Errorf("btree: expected metadata page id %d, got %d", metaPageID, metaPg.ID)
	}
	writeMetadataPage(metaPg, metadataPage{
		RelationName: relation,
		AttrOffset:   offset,
		AttrType:     ops.Datatype,
		RootPageNo:   types.NoPage,
		RootLevel:    metaNoRootLevel,
	})
	if err := pool.UnpinPage(fileID, metaPg.ID, true); err != nil {
		return nil, fmt.Errorf("btree: unpin metadata page: %w", err)
	}

	fmt.Printf("[BTree] bootstrap %s attrOffset=%d attrType=%s\n", name, offset, ops.Datatype)

	if err := bulkLoad(idx, scanner); err != nil {
		return nil, fmt.Errorf("btree: bulk load %s: %w", name, err)
	}
	return idx, nil
}
