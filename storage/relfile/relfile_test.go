package relfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	"btreeidx/storage/bufferpool"
)

func TestRelationInsertAndScan(t *testing.T) {
	path := "./test_relation.rel"
	os.Remove(path)
	defer os.Remove(path)

	pool, err := bufferpool.New(8)
	if err != nil {
		t.Fatalf("failed to create buffer pool: %v", err)
	}

	rel, err := Create(path, pool, 1)
	if err != nil {
		t.Fatalf("failed to create relation: %v", err)
	}

	records := make([][]byte, 0, 400)
	for i := 0; i < 400; i++ {
		records = append(records, []byte(fmt.Sprintf("record-%04d-payload", i)))
	}

	fmt.Println("=== Inserting records ===")
	for i, rec := range records {
		if _, err := rel.InsertRecord(rec); err != nil {
			t.Fatalf("insert record %d: %v", i, err)
		}
	}
	fmt.Printf("✓ inserted %d records\n", len(records))

	if err := rel.Close(); err != nil {
		t.Fatalf("close relation: %v", err)
	}

	pool2, err := bufferpool.New(8)
	if err != nil {
		t.Fatalf("failed to create buffer pool: %v", err)
	}
	rel2, err := Open(path, pool2, 1)
	if err != nil {
		t.Fatalf("failed to reopen relation: %v", err)
	}
	defer rel2.Close()

	fmt.Println("=== Scanning reopened relation ===")
	scanner := rel2.NewScanner()
	count := 0
	for {
		_, data, err := scanner.Next()
		if err != nil {
			if errors.Is(err, ErrEndOfFile) {
				break
			}
			t.Fatalf("scan failed: %v", err)
		}
		if !bytes.Equal(data, records[count]) {
			t.Fatalf("record %d mismatch: got %q want %q", count, data, records[count])
		}
		count++
	}

	if count != len(records) {
		t.Fatalf("scanned %d records, want %d", count, len(records))
	}
	fmt.Printf("✓ scanned %d records in order\n", count)
}

func TestScannerEmptyRelation(t *testing.T) {
	path := "./test_relation_empty.rel"
	os.Remove(path)
	defer os.Remove(path)

	pool, err := bufferpool.New(4)
	if err != nil {
		t.Fatalf("failed to create buffer pool: %v", err)
	}
	rel, err := Create(path, pool, 1)
	if err != nil {
		t.Fatalf("failed to create relation: %v", err)
	}
	defer rel.Close()

	scanner := rel.NewScanner()
	_, _, err = scanner.Next()
	if !errors.Is(err, ErrEndOfFile) {
		t.Fatalf("expected ErrEndOfFile on empty relation, got %v", err)
	}
}

func TestGetRecordRoundTrip(t *testing.T) {
	path := "./test_relation_get.rel"
	os.Remove(path)
	defer os.Remove(path)

	pool, err := bufferpool.New(4)
	if err != nil {
		t.Fatalf("failed to create buffer pool: %v", err)
	}
	rel, err := Create(path, pool, 1)
	if err != nil {
		t.Fatalf("failed to create relation: %v", err)
	}
	defer rel.Close()

	rid, err := rel.InsertRecord([]byte("hello world"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	data, err := rel.GetRecord(rid)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("got %q, want %q", data, "hello world")
	}
	fmt.Printf("✓ round-tripped record at %+v\n", rid)
}
