package btree

import "errors"

// Error kinds an index operation can raise, beyond whatever the buffer
// manager or disk propagates untouched. EndOfFile, the sixth kind named
// alongside these, never escapes this package — bootstrap recognizes it
// via errors.Is(err, io.EOF) against the base-relation scanner and
// swallows it as the normal way a build scan ends.
var (
	// ErrBadOpcodes is raised when StartScan's comparators are not one
	// of the allowed (GT|GTE, LT|LTE) pairs.
	ErrBadOpcodes = errors.New("btree: incompatible scan comparators")

	// ErrBadScanRange is raised when StartScan's low value exceeds its
	// high value.
	ErrBadScanRange = errors.New("btree: low value exceeds high value")

	// ErrScanNotInitialized is raised by ScanNext or EndScan when no
	// scan is currently active.
	ErrScanNotInitialized = errors.New("btree: scan_next or end_scan called without a live scan")

	// ErrIndexScanCompleted is raised by ScanNext once the active scan
	// has no more matching records.
	ErrIndexScanCompleted = errors.New("btree: scan has no more matching records")

	// ErrFileNotFound is raised by OpenExisting when the index file is
	// absent. Bootstrap never raises it: removing an absent file at
	// construct time is simply a removal with nothing to do.
	ErrFileNotFound = errors.New("btree: index file not found")

	// ErrScanAlreadyActive is raised by StartScan when a scan is
	// already live, rather than silently leaking the first scan's
	// pinned leaf.
	ErrScanAlreadyActive = errors.New("btree: a scan is already active, call EndScan first")

	// ErrIndexInfoMismatch is raised by OpenExisting when an on-disk
	// index file's stored relation name, attribute offset, or attribute
	// type disagrees with the caller's arguments.
	ErrIndexInfoMismatch = errors.New("btree: existing index file's metadata disagrees with the requested attribute")
)
