// buildindex bulk-builds a B+-tree index over one attribute of an
// existing base relation file.
// Usage: go run ./cmd/buildindex <relation-file> <attr-offset> <int|double|string>
// Example: go run ./cmd/buildindex orders.rel 4 int
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"btreeidx/btree"
	"btreeidx/storage/bufferpool"
	"btreeidx/storage/relfile"
	"btreeidx/types"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <relation-file> <attr-offset> <int|double|string>\n", os.Args[0])
		os.Exit(1)
	}
	relPath := os.Args[1]
	offset, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatalf("attr-offset %q: %v", os.Args[2], err)
	}
	attrType, err := parseDatatype(os.Args[3])
	if err != nil {
		log.Fatalf("attr type: %v", err)
	}

	pool, err := bufferpool.New(256)
	if err != nil {
		log.Fatalf("new buffer pool: %v", err)
	}

	rel, err := relfile.Open(relPath, pool, 1)
	if err != nil {
		log.Fatalf("open relation %s: %v", relPath, err)
	}
	defer rel.Close()

	idx, name, err := btree.OpenIndex(relPath, int32(offset), attrType, pool, 2, rel.NewScanner())
	if err != nil {
		log.Fatalf("build index: %v", err)
	}
	defer idx.Close()

	fmt.Printf("Built index %s over %s (offset %d, type %s)\n", name, relPath, offset, attrType)
}

func parseDatatype(s string) (types.Datatype, error) {
	switch s {
	case "int", "integer":
		return types.Integer, nil
	case "double", "float":
		return types.Double, nil
	case "string", "str":
		return types.String, nil
	default:
		return 0, fmt.Errorf("unknown attribute type %q (want int, double, or string)", s)
	}
}
