package btree

import "btreeidx/types"

// KeyValue is a type-erased attribute value — the shape callers use to
// talk to a BTreeIndex without knowing which concrete key type it was
// opened with.
type KeyValue struct {
	Datatype types.Datatype
	Int      int32
	Double   float64
	Str      [types.StringKeySize]byte
}

// IntKey builds a KeyValue for an INTEGER-typed index.
func IntKey(v int32) KeyValue { return KeyValue{Datatype: types.Integer, Int: v} }

// DoubleKey builds a KeyValue for a DOUBLE-typed index.
func DoubleKey(v float64) KeyValue { return KeyValue{Datatype: types.Double, Double: v} }

// StringKey builds a KeyValue for a STRING-typed index, truncating or
// null-padding s to the fixed ten-byte width.
func StringKey(s string) KeyValue {
	var b [types.StringKeySize]byte
	copy(b[:], s)
	return KeyValue{Datatype: types.String, Str: b}
}
