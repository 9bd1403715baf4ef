// Package btree is the core of the index: the page-node codec, the
// top-down insertion path with split propagation, the split primitives,
// and the range-scan state machine. It is parameterized over key type
// via KeyOps[K] so the integer/double/string cases share one
// implementation instead of being duplicated per type.
package btree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"btreeidx/storage/page"
	"btreeidx/types"
)

// Key is the set of attribute types an index may be built over.
type Key interface {
	int32 | float64 | [types.StringKeySize]byte
}

const (
	pageIDSize = 4
	ridSize    = 8 // RecordID{PageNumber int32, SlotNumber int32}
)

// KeyOps is the trait object a generic Index[K] is built against: size,
// ordering, sentinel value, and wire encoding for one key type. It plays
// the role the source fills by hand-duplicating every tree operation
// once per key type.
type KeyOps[K Key] struct {
	Datatype types.Datatype
	Size     int
	Zero     K // the sentinel / empty-slot marker

	Compare    func(a, b K) int
	IsSentinel func(k K) bool
	Encode     func(k K, dst []byte)
	Decode     func(src []byte) K

	// nonLeafCapAdjust absorbs the source's quirk where a double-keyed
	// non-leaf loses one extra slot to structure padding.
	nonLeafCapAdjust int
}

// LeafCapacity returns LEAF_CAP(K): how many (key, rid) pairs fit on one
// leaf page alongside its right-sibling pointer.
func (ops KeyOps[K]) LeafCapacity() int {
	return (page.Size - pageIDSize) / (ops.Size + ridSize)
}

// NonLeafCapacity returns NONLEAF_CAP(K): how many separator keys fit on
// one non-leaf page alongside its level field and one extra child
// pointer.
func (ops KeyOps[K]) NonLeafCapacity() int {
	c := (page.Size - 4 - pageIDSize) / (ops.Size + pageIDSize)
	return c + ops.nonLeafCapAdjust
}

func (ops KeyOps[K]) decodeAt(record []byte, offset int32) (K, error) {
	o := int(offset)
	if o < 0 || o+ops.Size > len(record) {
		return ops.Zero, fmt.Errorf("btree: attribute offset %d (size %d) out of range for record of %d bytes", offset, ops.Size, len(record))
	}
	return ops.Decode(record[o : o+ops.Size]), nil
}

func (ops KeyOps[K]) fromKeyValue(kv KeyValue) K {
	var v any
	switch ops.Datatype {
	case types.Integer:
		v = kv.Int
	case types.Double:
		v = kv.Double
	default:
		v = kv.Str
	}
	return v.(K)
}

func (ops KeyOps[K]) toKeyValue(k K) KeyValue {
	switch ops.Datatype {
	case types.Integer:
		return KeyValue{Datatype: types.Integer, Int: any(k).(int32)}
	case types.Double:
		return KeyValue{Datatype: types.Double, Double: any(k).(float64)}
	default:
		return KeyValue{Datatype: types.String, Str: any(k).([types.StringKeySize]byte)}
	}
}

// IntOps is the KeyOps for an INTEGER-typed attribute.
func IntOps() KeyOps[int32] {
	return KeyOps[int32]{
		Datatype: types.Integer,
		Size:     4,
		Zero:     -1,
		Compare: func(a, b int32) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		},
		IsSentinel: func(k int32) bool { return k == -1 },
		Encode:     func(k int32, dst []byte) { binary.LittleEndian.PutUint32(dst, uint32(k)) },
		Decode:     func(src []byte) int32 { return int32(binary.LittleEndian.Uint32(src)) },
	}
}

// DoubleOps is the KeyOps for a DOUBLE-typed attribute.
func DoubleOps() KeyOps[float64] {
	return KeyOps[float64]{
		Datatype: types.Double,
		Size:     8,
		Zero:     -1,
		Compare: func(a, b float64) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		},
		IsSentinel:       func(k float64) bool { return k == -1 },
		Encode:           func(k float64, dst []byte) { binary.LittleEndian.PutUint64(dst, math.Float64bits(k)) },
		Decode:           func(src []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(src)) },
		nonLeafCapAdjust: -1,
	}
}

// StringOps is the KeyOps for a ten-byte fixed-width STRING attribute.
func StringOps() KeyOps[[types.StringKeySize]byte] {
	var zero [types.StringKeySize]byte
	return KeyOps[[types.StringKeySize]byte]{
		Datatype: types.String,
		Size:     types.StringKeySize,
		Zero:     zero,
		Compare: func(a, b [types.StringKeySize]byte) int {
			return bytes.Compare(a[:], b[:])
		},
		IsSentinel: func(k [types.StringKeySize]byte) bool { return k == zero },
		Encode:     func(k [types.StringKeySize]byte, dst []byte) { copy(dst, k[:]) },
		Decode: func(src []byte) [types.StringKeySize]byte {
			var k [types.StringKeySize]byte
			copy(k[:], src)
			return k
		},
	}
}
