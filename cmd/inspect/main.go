// inspect dumps a B+-tree index file's tree structure for debugging.
// Usage: go run ./cmd/inspect <index-file>
// Example: go run ./cmd/inspect orders.rel.4
package main

import (
	"fmt"
	"os"

	"btreeidx/btree"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <index-file>\n", os.Args[0])
		os.Exit(1)
	}
	if err := btree.DumpIndexFile(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
