package btree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"testing"

	"btreeidx/storage/bufferpool"
	"btreeidx/types"
)

// fakeScanner replays a fixed slice of (rid, record) pairs as a
// RelationScanner, the way storage/relfile.Scanner would for a real
// base relation.
type fakeScanner struct {
	records []fakeRecord
	pos     int
}

type fakeRecord struct {
	rid  types.RecordID
	data []byte
}

func (s *fakeScanner) Next() (types.RecordID, []byte, error) {
	if s.pos >= len(s.records) {
		return types.RecordID{}, nil, fmt.Errorf("fake relation: end of file: %w", io.EOF)
	}
	r := s.records[s.pos]
	s.pos++
	return r.rid, r.data, nil
}

func intRecord(key int32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf, uint32(key))
	return buf
}

func stringRecord(s string) []byte {
	buf := make([]byte, types.StringKeySize+2)
	copy(buf, s)
	return buf
}

func intScanner(keys []int32) *fakeScanner {
	records := make([]fakeRecord, len(keys))
	for i, k := range keys {
		records[i] = fakeRecord{
			rid:  types.RecordID{PageNumber: int32(i), SlotNumber: 0},
			data: intRecord(k),
		}
	}
	return &fakeScanner{records: records}
}

func openIntIndex(t *testing.T, name string, keys []int32) (BTreeIndex, func()) {
	t.Helper()
	path := fmt.Sprintf("%s.0", name)
	os.Remove(path)

	pool, err := bufferpool.New(32)
	if err != nil {
		t.Fatalf("new buffer pool: %v", err)
	}
	idx, _, err := OpenIndex(name, 0, types.Integer, pool, 1, intScanner(keys))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	return idx, func() {
		idx.Close()
		os.Remove(path)
	}
}

func drainScan(t *testing.T, idx BTreeIndex, low, high int32, lowOp, highOp types.Operator) []types.RecordID {
	t.Helper()
	if err := idx.StartScan(IntKey(low), lowOp, IntKey(high), highOp); err != nil {
		t.Fatalf("start scan: %v", err)
	}
	var got []types.RecordID
	for {
		rid, err := idx.ScanNext()
		if err != nil {
			if errors.Is(err, ErrIndexScanCompleted) {
				break
			}
			t.Fatalf("scan next: %v", err)
		}
		got = append(got, rid)
	}
	if err := idx.EndScan(); err != nil {
		t.Fatalf("end scan: %v", err)
	}
	return got
}

// TestScanAscendingInsertOrder covers the "insert 1..500 in order, full
// range scan" scenario: the scan must emit every key in sorted order
// with its original rid.
func TestScanAscendingInsertOrder(t *testing.T) {
	keys := make([]int32, 500)
	for i := range keys {
		keys[i] = int32(i + 1)
	}
	idx, cleanup := openIntIndex(t, "test_asc", keys)
	defer cleanup()

	got := drainScan(t, idx, 1, 500, types.GTE, types.LTE)
	if len(got) != 500 {
		t.Fatalf("got %d rids, want 500", len(got))
	}
	for i, rid := range got {
		if rid.PageNumber != int32(i) {
			t.Fatalf("entry %d: got rid %+v, want page %d (key %d)", i, rid, i, i+1)
		}
	}
}

// TestScanDescendingInsertOrder covers the "insert 500..1 in reverse,
// full range scan" scenario: insertion order must not leak into scan
// order — the tree always reports keys sorted ascending.
func TestScanDescendingInsertOrder(t *testing.T) {
	keys := make([]int32, 500)
	for i := range keys {
		keys[i] = int32(500 - i)
	}
	idx, cleanup := openIntIndex(t, "test_desc", keys)
	defer cleanup()

	got := drainScan(t, idx, 1, 500, types.GTE, types.LTE)
	if len(got) != 500 {
		t.Fatalf("got %d rids, want 500", len(got))
	}
	for i, rid := range got {
		wantKey := int32(i + 1)
		wantPage := int32(500 - wantKey) // fakeScanner's insertion index for that key
		if rid.PageNumber != wantPage {
			t.Fatalf("entry %d: got rid %+v, want page %d (key %d)", i, rid, wantPage, wantKey)
		}
	}
}

// TestScanBoundedRange covers "scan [100 GTE, 200 LTE] over a 1..500
// tree emits exactly keys 100..200 inclusive, in order."
func TestScanBoundedRange(t *testing.T) {
	keys := make([]int32, 500)
	for i := range keys {
		keys[i] = int32(i + 1)
	}
	idx, cleanup := openIntIndex(t, "test_bounded", keys)
	defer cleanup()

	got := drainScan(t, idx, 100, 200, types.GTE, types.LTE)
	if len(got) != 101 {
		t.Fatalf("got %d rids, want 101 (keys 100..200 inclusive)", len(got))
	}
	for i, rid := range got {
		wantKey := int32(100 + i)
		if rid.PageNumber != wantKey-1 {
			t.Fatalf("entry %d: got rid %+v, want key %d", i, rid, wantKey)
		}
	}
}

// TestScanExclusiveBounds exercises the GT/LT strict variants against
// duplicate boundary keys.
func TestScanExclusiveBounds(t *testing.T) {
	keys := []int32{10, 20, 20, 20, 30, 40}
	idx, cleanup := openIntIndex(t, "test_exclusive", keys)
	defer cleanup()

	got := drainScan(t, idx, 20, 30, types.GT, types.LT)
	if len(got) != 0 {
		t.Fatalf("got %d rids for (20,30) exclusive, want 0", len(got))
	}

	got = drainScan(t, idx, 20, 30, types.GTE, types.LTE)
	if len(got) != 4 {
		t.Fatalf("got %d rids for [20,30], want 4 (three 20s and one 30)", len(got))
	}
}

// TestScanDuplicateKeyOrder covers the tie-break rule for equal keys: a
// scan must emit them in the order they were inserted, first-inserted
// first, never the reverse.
func TestScanDuplicateKeyOrder(t *testing.T) {
	keys := []int32{10, 20, 20, 20, 30, 40}
	idx, cleanup := openIntIndex(t, "test_dup_order", keys)
	defer cleanup()

	got := drainScan(t, idx, 20, 20, types.GTE, types.LTE)
	if len(got) != 3 {
		t.Fatalf("got %d rids for key 20, want 3", len(got))
	}
	wantPages := []int32{1, 2, 3} // bulk-load inserted these three 20s in that order
	for i, rid := range got {
		if rid.PageNumber != wantPages[i] {
			t.Fatalf("entry %d: got rid %+v, want page %d (duplicates must come out first-inserted first)", i, rid, wantPages[i])
		}
	}

	if err := idx.InsertEntry(IntKey(20), types.RecordID{PageNumber: 999, SlotNumber: 0}); err != nil {
		t.Fatalf("insert entry: %v", err)
	}
	got = drainScan(t, idx, 20, 20, types.GTE, types.LTE)
	wantPages = []int32{1, 2, 3, 999}
	if len(got) != len(wantPages) {
		t.Fatalf("got %d rids for key 20 after insert, want %d", len(got), len(wantPages))
	}
	for i, rid := range got {
		if rid.PageNumber != wantPages[i] {
			t.Fatalf("entry %d: got rid %+v, want page %d", i, rid, wantPages[i])
		}
	}
}

// TestScanEmptyIndex covers the empty-tree scenario: StartScan succeeds
// but the first ScanNext immediately reports completion.
func TestScanEmptyIndex(t *testing.T) {
	idx, cleanup := openIntIndex(t, "test_empty", nil)
	defer cleanup()

	got := drainScan(t, idx, 0, 1000, types.GTE, types.LTE)
	if len(got) != 0 {
		t.Fatalf("got %d rids from an empty index, want 0", len(got))
	}
}

// TestScanLargeRandomSet is the "10,000 random distinct integers"
// scenario: a full scan must visit every key exactly once, in sorted
// order, regardless of the tree height that results.
func TestScanLargeRandomSet(t *testing.T) {
	const n = 10000
	r := rand.New(rand.NewSource(1))
	perm := r.Perm(n)
	keys := make([]int32, n)
	for i, v := range perm {
		keys[i] = int32(v) // distinct, 0..n-1, shuffled insertion order
	}
	idx, cleanup := openIntIndex(t, "test_random", keys)
	defer cleanup()

	got := drainScan(t, idx, 0, int32(n-1), types.GTE, types.LTE)
	if len(got) != n {
		t.Fatalf("got %d rids, want %d", len(got), n)
	}
	seen := make(map[int32]bool, n)
	prev := int32(-1)
	for _, rid := range got {
		key := keys[rid.PageNumber]
		if key <= prev {
			t.Fatalf("key %d emitted after key %d, want ascending order", key, prev)
		}
		prev = key
		if seen[key] {
			t.Fatalf("key %d emitted more than once", key)
		}
		seen[key] = true
	}
	if len(seen) != n {
		t.Fatalf("scan visited %d distinct keys, want %d", len(seen), n)
	}
}

// TestStringKeyIndex exercises the STRING-typed key path end to end.
func TestStringKeyIndex(t *testing.T) {
	words := []string{"pear", "apple", "mango", "kiwi", "banana", "fig", "date", "grape"}
	records := make([]fakeRecord, len(words))
	for i, w := range words {
		records[i] = fakeRecord{
			rid:  types.RecordID{PageNumber: int32(i), SlotNumber: 0},
			data: stringRecord(w),
		}
	}

	path := "test_strings.0"
	os.Remove(path)
	defer os.Remove(path)

	pool, err := bufferpool.New(16)
	if err != nil {
		t.Fatalf("new buffer pool: %v", err)
	}
	idx, _, err := OpenIndex("test_strings", 0, types.String, pool, 1, &fakeScanner{records: records})
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	if err := idx.StartScan(StringKey("apple"), types.GTE, StringKey("mango"), types.LTE); err != nil {
		t.Fatalf("start scan: %v", err)
	}
	want := []string{"apple", "banana", "date", "fig", "grape", "kiwi", "mango"}
	var i int
	for {
		rid, err := idx.ScanNext()
		if err != nil {
			if errors.Is(err, ErrIndexScanCompleted) {
				break
			}
			t.Fatalf("scan next: %v", err)
		}
		if i >= len(want) {
			t.Fatalf("scan produced more than %d entries", len(want))
		}
		if words[rid.PageNumber] != want[i] {
			t.Fatalf("entry %d: got %q, want %q", i, words[rid.PageNumber], want[i])
		}
		i++
	}
	if i != len(want) {
		t.Fatalf("scan produced %d entries, want %d", i, len(want))
	}
	if err := idx.EndScan(); err != nil {
		t.Fatalf("end scan: %v", err)
	}
}

// TestConcurrentScanRejected covers the multiple-scans caller error:
// StartScan on an already-active scan must fail without disturbing it.
func TestConcurrentScanRejected(t *testing.T) {
	idx, cleanup := openIntIndex(t, "test_concurrent", []int32{1, 2, 3})
	defer cleanup()

	if err := idx.StartScan(IntKey(1), types.GTE, IntKey(3), types.LTE); err != nil {
		t.Fatalf("start scan: %v", err)
	}
	defer idx.EndScan()

	err := idx.StartScan(IntKey(1), types.GTE, IntKey(3), types.LTE)
	if !errors.Is(err, ErrScanAlreadyActive) {
		t.Fatalf("got %v, want ErrScanAlreadyActive", err)
	}

	rid, err := idx.ScanNext()
	if err != nil || rid.PageNumber != 0 {
		t.Fatalf("first scan after rejected StartScan: got %+v, %v, want page 0 (key 1)", rid, err)
	}
}

// TestBadScanArguments covers the comparator and range validation of
// StartScan.
func TestBadScanArguments(t *testing.T) {
	idx, cleanup := openIntIndex(t, "test_badargs", []int32{1, 2, 3})
	defer cleanup()

	if err := idx.StartScan(IntKey(1), types.LT, IntKey(3), types.LTE); !errors.Is(err, ErrBadOpcodes) {
		t.Fatalf("low=LT: got %v, want ErrBadOpcodes", err)
	}
	if err := idx.StartScan(IntKey(1), types.GTE, IntKey(3), types.GT); !errors.Is(err, ErrBadOpcodes) {
		t.Fatalf("high=GT: got %v, want ErrBadOpcodes", err)
	}
	if err := idx.StartScan(IntKey(10), types.GTE, IntKey(3), types.LTE); !errors.Is(err, ErrBadScanRange) {
		t.Fatalf("low>high: got %v, want ErrBadScanRange", err)
	}
}

// TestScanNextWithoutStart and TestEndScanWithoutStart cover calling
// the scan API out of sequence.
func TestScanNextWithoutStart(t *testing.T) {
	idx, cleanup := openIntIndex(t, "test_nostart", []int32{1, 2, 3})
	defer cleanup()

	if _, err := idx.ScanNext(); !errors.Is(err, ErrScanNotInitialized) {
		t.Fatalf("got %v, want ErrScanNotInitialized", err)
	}
}

func TestEndScanWithoutStart(t *testing.T) {
	idx, cleanup := openIntIndex(t, "test_noend", []int32{1, 2, 3})
	defer cleanup()

	if err := idx.EndScan(); !errors.Is(err, ErrScanNotInitialized) {
		t.Fatalf("got %v, want ErrScanNotInitialized", err)
	}
}

// TestInsertAfterBulkLoad covers InsertEntry against an already-built
// tree, verifying a freshly inserted key is visible to a later scan.
func TestInsertAfterBulkLoad(t *testing.T) {
	keys := make([]int32, 200)
	for i := range keys {
		keys[i] = int32(i)
	}
	idx, cleanup := openIntIndex(t, "test_insert_after", keys)
	defer cleanup()

	if err := idx.InsertEntry(IntKey(9999), types.RecordID{PageNumber: 999, SlotNumber: 0}); err != nil {
		t.Fatalf("insert entry: %v", err)
	}

	got := drainScan(t, idx, 9999, 9999, types.GTE, types.LTE)
	if len(got) != 1 || got[0].PageNumber != 999 {
		t.Fatalf("got %+v, want a single rid with page 999", got)
	}
}
