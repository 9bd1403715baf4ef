package btree

import (
	"errors"
	"fmt"
	"io"
)

// bulkLoad scans every record of the base relation, extracts the
// indexed attribute at idx.attrOffset (a byte offset into the record),
// and inserts (key, rid) for each. End of relation ends the load; any
// other scanner failure propagates.
func bulkLoad[K Key](idx *Index[K], scanner RelationScanner) error {
	count := 0
	for {
		rid, record, err := scanner.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("scan base relation: %w", err)
		}

		key, err := idx.ops.decodeAt(record, idx.attrOffset)
		if err != nil {
			return err
		}
		if err := idx.insertEntry(key, rid); err != nil {
			return fmt.Errorf("insert record %+v: %w", rid, err)
		}
		count++
	}
	fmt.Printf("[BTree] bulk load %s: %d records\n", idx.Name(), count)
	return nil
}
