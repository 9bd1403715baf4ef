package btree

import (
	"encoding/binary"

	"btreeidx/storage/page"
	"btreeidx/types"
)

const relationNameSize = 20

// metaNoRootLevel marks an index whose tree has no page yet. A root
// that is itself a leaf has level 0; a root that is a non-leaf has
// level >= 1.
const metaNoRootLevel = -1

type metadataPage struct {
	RelationName string
	AttrOffset   int32
	AttrType     types.Datatype
	RootPageNo   types.PageID
	RootLevel    int32
}

const (
	metaOffRelName    = 0
	metaOffAttrOffset = relationNameSize
	metaOffAttrType   = metaOffAttrOffset + 4
	metaOffRootPageNo = metaOffAttrType + 1
	metaOffRootLevel  = metaOffRootPageNo + 4
)

func readMetadataPage(pg *page.Page) metadataPage {
	var m metadataPage
	raw := pg.Data[metaOffRelName : metaOffRelName+relationNameSize]
	end := len(raw)
	for end > 0 && raw[end-1] == 0 {
		end--
	}
	m.RelationName = string(raw[:end])
	m.AttrOffset = int32(binary.LittleEndian.Uint32(pg.Data[metaOffAttrOffset:]))
	m.AttrType = types.Datatype(pg.Data[metaOffAttrType])
	m.RootPageNo = types.PageID(int32(binary.LittleEndian.Uint32(pg.Data[metaOffRootPageNo:])))
	m.RootLevel = int32(binary.LittleEndian.Uint32(pg.Data[metaOffRootLevel:]))
	return m
}

func writeMetadataPage(pg *page.Page, m metadataPage) {
	var nameBuf [relationNameSize]byte
	copy(nameBuf[:], m.RelationName)
	copy(pg.Data[metaOffRelName:], nameBuf[:])
	binary.LittleEndian.PutUint32(pg.Data[metaOffAttrOffset:], uint32(m.AttrOffset))
	pg.Data[metaOffAttrType] = byte(m.AttrType)
	binary.LittleEndian.PutUint32(pg.Data[metaOffRootPageNo:], uint32(m.RootPageNo))
	binary.LittleEndian.PutUint32(pg.Data[metaOffRootLevel:], uint32(m.RootLevel))
}
