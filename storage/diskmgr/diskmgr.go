// Package diskmgr implements the paged-file abstraction consumed by the
// buffer pool: create/open/remove a single on-disk file, allocate pages
// in it with monotonically increasing ids starting at 1, and read/write
// raw page bytes at their offset.
//
// This mirrors storage_engine/disk_manager in the teacher repo, trimmed
// to a single file per PagedFile instance — our B+-tree index owns
// exactly one paged file, so the teacher's global fileID-packed page
// space (needed there to share one buffer pool across many heap and
// index files) collapses to plain local page numbers here.
package diskmgr

import (
	"fmt"
	"os"

	"btreeidx/storage/page"
	"btreeidx/types"
)

// PagedFile is one open OS file interpreted as a sequence of fixed-size
// pages. Page numbering starts at 1 (an index file keeps its metadata
// page at page 1; a relation file stores records from page 1 on).
type PagedFile struct {
	path       string
	file       *os.File
	nextPageID types.PageID
}

// Exists reports whether a paged file already exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the paged file at path. It is not an error for the
// file to be absent — callers that want to detect that should check
// Exists first.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("diskmgr: remove %s: %w", path, err)
	}
	return nil
}

// Create makes a brand-new, empty paged file at path. It fails if a
// file already exists there — callers that want "create fresh" call
// Remove first (this is what BTreeIndex's bootstrap does).
func Create(path string) (*PagedFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("diskmgr: create %s: %w", path, err)
	}
	return &PagedFile{path: path, file: f, nextPageID: 1}, nil
}

// Open opens an existing paged file at path. The next allocatable page
// id is derived from the file's current size.
func Open(path string) (*PagedFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("diskmgr: open %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("diskmgr: stat %s: %w", path, err)
	}
	numPages := types.PageID(stat.Size() / page.Size)
	return &PagedFile{path: path, file: f, nextPageID: numPages + 1}, nil
}

// Close closes the underlying OS file handle after syncing it.
func (pf *PagedFile) Close() error {
	if err := pf.file.Sync(); err != nil {
		return fmt.Errorf("diskmgr: sync %s: %w", pf.path, err)
	}
	if err := pf.file.Close(); err != nil {
		return fmt.Errorf("diskmgr: close %s: %w", pf.path, err)
	}
	return nil
}

// AllocatePage reserves the next sequential page id. It does not touch
// disk — the page's bytes hit disk only when the buffer pool later
// flushes it via WritePage.
func (pf *PagedFile) AllocatePage() types.PageID {
	id := pf.nextPageID
	pf.nextPageID++
	return id
}

// ReadPage reads the page with the given id from disk. A page cut short
// by the end of file is returned zero-padded; a page that lies wholly
// past the end of file (e.g. one that was allocated but never flushed)
// is an error.
func (pf *PagedFile) ReadPage(id types.PageID) (*page.Page, error) {
	pg := page.New(id)
	offset := int64(id-1) * page.Size
	n, err := pf.file.ReadAt(pg.Data[:], offset)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("diskmgr: read page %d of %s: %w", id, pf.path, err)
	}
	return pg, nil
}

// WritePage writes a page's bytes to its slot in the file.
func (pf *PagedFile) WritePage(pg *page.Page) error {
	offset := int64(pg.ID-1) * page.Size
	if _, err := pf.file.WriteAt(pg.Data[:], offset); err != nil {
		return fmt.Errorf("diskmgr: write page %d of %s: %w", pg.ID, pf.path, err)
	}
	return nil
}

// Sync flushes OS buffers for the underlying file to stable storage.
func (pf *PagedFile) Sync() error {
	if err := pf.file.Sync(); err != nil {
		return fmt.Errorf("diskmgr: sync %s: %w", pf.path, err)
	}
	return nil
}
