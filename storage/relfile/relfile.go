package relfile

import (
	"fmt"
	"io"

	"btreeidx/storage/bufferpool"
	"btreeidx/storage/diskmgr"
	"btreeidx/storage/page"
	"btreeidx/types"
)

// ErrEndOfFile is returned by Scanner.Next once every record has been
// produced. It wraps io.EOF so callers outside this package can detect
// it with errors.Is(err, io.EOF) without importing relfile directly.
// Index bootstrap swallows it as the normal way a build scan ends.
var ErrEndOfFile = fmt.Errorf("relfile: end of file: %w", io.EOF)

// Relation is a fixed-record-layout base relation stored as a sequence
// of slotted pages, fetched through a shared buffer pool. It is treated
// as an external collaborator: something that already exists on disk
// by the time an index is bootstrapped from it.
type Relation struct {
	pool   *bufferpool.BufferPool
	file   *diskmgr.PagedFile
	fileID bufferpool.FileID
	last   types.PageID // highest allocated page, 0 if none yet
}

// Create makes a brand-new, empty relation file at path and registers it
// with pool under fileID.
func Create(path string, pool *bufferpool.BufferPool, fileID bufferpool.FileID) (*Relation, error) {
	if err := diskmgr.Remove(path); err != nil {
		return nil, err
	}
	pf, err := diskmgr.Create(path)
	if err != nil {
		return nil, fmt.Errorf("relfile: create %s: %w", path, err)
	}
	pool.RegisterFile(fileID, pf)
	return &Relation{pool: pool, file: pf, fileID: fileID}, nil
}

// Open attaches to an existing relation file at path.
func Open(path string, pool *bufferpool.BufferPool, fileID bufferpool.FileID) (*Relation, error) {
	pf, err := diskmgr.Open(path)
	if err != nil {
		return nil, fmt.Errorf("relfile: open %s: %w", path, err)
	}
	pool.RegisterFile(fileID, pf)
	r := &Relation{pool: pool, file: pf, fileID: fileID}
	for id := types.PageID(1); ; id++ {
		pg, err := pool.ReadPage(fileID, id)
		if err != nil {
			break
		}
		if getSlotCount(pg) == 0 && getRecordEndPtr(pg) == 0 {
			pool.UnpinPage(fileID, id, false)
			break
		}
		pool.UnpinPage(fileID, id, false)
		r.last = id
	}
	return r, nil
}

// Close flushes dirty pages and closes the underlying file.
func (r *Relation) Close() error {
	if err := r.pool.FlushFile(r.fileID); err != nil {
		return err
	}
	r.pool.UnregisterFile(r.fileID)
	return r.file.Close()
}

// InsertRecord appends data as a new record, allocating a fresh page
// when the current last page has no room. It returns the RecordID the
// record was stored under.
func (r *Relation) InsertRecord(data []byte) (types.RecordID, error) {
	var pg *page.Page
	var err error

	if r.last == types.NoPage {
		pg, err = r.pool.AllocPage(r.fileID)
		if err != nil {
			return types.RecordID{}, fmt.Errorf("relfile: insert: %w", err)
		}
		initPage(pg)
		r.last = pg.ID
	} else {
		pg, err = r.pool.ReadPage(r.fileID, r.last)
		if err != nil {
			return types.RecordID{}, fmt.Errorf("relfile: insert: %w", err)
		}
	}

	slotIdx, ok := insertOnPage(pg, data)
	if !ok {
		r.pool.UnpinPage(r.fileID, pg.ID, false)
		pg, err = r.pool.AllocPage(r.fileID)
		if err != nil {
			return types.RecordID{}, fmt.Errorf("relfile: insert: %w", err)
		}
		initPage(pg)
		r.last = pg.ID
		slotIdx, ok = insertOnPage(pg, data)
		if !ok {
			r.pool.UnpinPage(r.fileID, pg.ID, true)
			return types.RecordID{}, fmt.Errorf("relfile: record of %d bytes too large for an empty page", len(data))
		}
	}

	rid := types.RecordID{PageNumber: int32(pg.ID), SlotNumber: int32(slotIdx)}
	r.pool.UnpinPage(r.fileID, pg.ID, true)
	return rid, nil
}

// GetRecord fetches the record stored at rid.
func (r *Relation) GetRecord(rid types.RecordID) ([]byte, error) {
	pg, err := r.pool.ReadPage(r.fileID, types.PageID(rid.PageNumber))
	if err != nil {
		return nil, fmt.Errorf("relfile: get record %+v: %w", rid, err)
	}
	defer r.pool.UnpinPage(r.fileID, pg.ID, false)

	data, ok := readRecord(pg, uint16(rid.SlotNumber))
	if !ok {
		return nil, fmt.Errorf("relfile: record %+v not found", rid)
	}
	return data, nil
}

// NewScanner returns a sequential scanner over every live record in the
// relation, in page/slot order.
func (r *Relation) NewScanner() *Scanner {
	return &Scanner{rel: r, pageID: 1, slotIdx: 0}
}

// Scanner walks a Relation's pages and slots in order, skipping
// tombstones, producing one (RecordID, record bytes) pair per call to
// Next.
type Scanner struct {
	rel     *Relation
	pageID  types.PageID
	slotIdx uint16
}

// Next returns the next live record, or ErrEndOfFile once the relation
// is exhausted.
func (s *Scanner) Next() (types.RecordID, []byte, error) {
	for {
		if s.rel.last == types.NoPage || s.pageID > s.rel.last {
			return types.RecordID{}, nil, ErrEndOfFile
		}

		pg, err := s.rel.pool.ReadPage(s.rel.fileID, s.pageID)
		if err != nil {
			return types.RecordID{}, nil, fmt.Errorf("relfile: scan page %d: %w", s.pageID, err)
		}
		slotCount := getSlotCount(pg)

		for s.slotIdx < slotCount {
			data, ok := readRecord(pg, s.slotIdx)
			idx := s.slotIdx
			s.slotIdx++
			if !ok {
				continue
			}
			rid := types.RecordID{PageNumber: int32(pg.ID), SlotNumber: int32(idx)}
			s.rel.pool.UnpinPage(s.rel.fileID, pg.ID, false)
			return rid, data, nil
		}

		s.rel.pool.UnpinPage(s.rel.fileID, pg.ID, false)
		s.pageID++
		s.slotIdx = 0
	}
}
