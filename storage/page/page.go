// Package page implements corvid's fixed-size, slotted-row storage
// page (C1): a 4096-byte buffer with a header, a slot directory that
// grows forward from the header, and a row heap that grows backward
// from the end of the buffer, exactly as laid out in spec.md §3/§4.5.
package page

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/corvidsql/corvid/sqlval"
)

// Size is the fixed page size in bytes.
const Size = 4096

const magic uint32 = 0xC0A1D000

// headerSize is magic(4) + pageID(4) + rowCount(2) + freeCursor(2) + slotDirSize(2).
const headerSize = 14

// slotSize is offset(2) + length(2) + tombstone(1).
const slotSize = 5

// ErrNoSpace is returned by Insert/Overwrite when a page lacks room.
var ErrNoSpace = fmt.Errorf("page: no space")

// Page is one fixed-size 4KB storage unit.
type Page struct {
	buf [Size]byte
}

// New returns a freshly initialized, empty page with the given id.
func New(pageID uint32) *Page {
	p := &Page{}
	p.Init(pageID)
	return p
}

// Init resets p to an empty page carrying pageID.
func (p *Page) Init(pageID uint32) {
	for i := range p.buf {
		p.buf[i] = 0
	}
	binary.LittleEndian.PutUint32(p.buf[0:4], magic)
	binary.LittleEndian.PutUint32(p.buf[4:8], pageID)
	p.setRowCount(0)
	p.setFreeCursor(Size)
	p.setSlotDirSize(0)
}

// FromBytes wraps an already-populated 4096-byte image (e.g. read from
// disk) as a Page, validating its magic number.
func FromBytes(data []byte) (*Page, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("page: expected %d bytes, got %d", Size, len(data))
	}
	p := &Page{}
	copy(p.buf[:], data)
	if binary.LittleEndian.Uint32(p.buf[0:4]) != magic {
		return nil, fmt.Errorf("page: bad magic number")
	}
	return p, nil
}

// Bytes returns the page's raw 4096-byte image, suitable for writing
// to disk verbatim.
func (p *Page) Bytes() []byte { return p.buf[:] }

// ID returns the page's id.
func (p *Page) ID() uint32 { return binary.LittleEndian.Uint32(p.buf[4:8]) }

func (p *Page) rowCount() int       { return int(binary.LittleEndian.Uint16(p.buf[8:10])) }
func (p *Page) setRowCount(n int)   { binary.LittleEndian.PutUint16(p.buf[8:10], uint16(n)) }
func (p *Page) freeCursor() int     { return int(binary.LittleEndian.Uint16(p.buf[10:12])) }
func (p *Page) setFreeCursor(n int) { binary.LittleEndian.PutUint16(p.buf[10:12], uint16(n)) }
func (p *Page) slotDirSize() int    { return int(binary.LittleEndian.Uint16(p.buf[12:14])) }
func (p *Page) setSlotDirSize(n int) {
	binary.LittleEndian.PutUint16(p.buf[12:14], uint16(n))
}

// RowCount returns the number of slots (live or tombstoned).
func (p *Page) RowCount() int { return p.rowCount() }

func (p *Page) slotOffset(slot int) int { return headerSize + slot*slotSize }

type slotEntry struct {
	offset    int
	length    int
	tombstone bool
}

func (p *Page) readSlot(slot int) slotEntry {
	o := p.slotOffset(slot)
	return slotEntry{
		offset:    int(binary.LittleEndian.Uint16(p.buf[o : o+2])),
		length:    int(binary.LittleEndian.Uint16(p.buf[o+2 : o+4])),
		tombstone: p.buf[o+4] != 0,
	}
}

func (p *Page) writeSlot(slot int, e slotEntry) {
	o := p.slotOffset(slot)
	binary.LittleEndian.PutUint16(p.buf[o:o+2], uint16(e.offset))
	binary.LittleEndian.PutUint16(p.buf[o+2:o+4], uint16(e.length))
	if e.tombstone {
		p.buf[o+4] = 1
	} else {
		p.buf[o+4] = 0
	}
}

// FreeSpace returns the number of bytes currently available for a new
// row insertion (not accounting for a new slot-directory entry).
func (p *Page) FreeSpace() int {
	used := headerSize + p.slotDirSize()
	return p.freeCursor() - used
}

// CanFit reports whether a new row of n bytes fits in the free space
// together with the fresh slot entry it needs; tombstoned slots are
// never reused.
func (p *Page) CanFit(n int) bool {
	return p.FreeSpace()-slotSize >= n
}

// Insert appends a serialized row to the page's heap and allocates a
// new slot for it, returning the slot index. It fails with ErrNoSpace
// if the page cannot hold the row.
func (p *Page) Insert(data []byte) (int, error) {
	if !p.CanFit(len(data)) {
		return 0, ErrNoSpace
	}
	newCursor := p.freeCursor() - len(data)
	copy(p.buf[newCursor:p.freeCursor()], data)

	slot := p.rowCount()
	p.writeSlot(slot, slotEntry{offset: newCursor, length: len(data)})
	p.setSlotDirSize(p.slotDirSize() + slotSize)
	p.setFreeCursor(newCursor)
	p.setRowCount(slot + 1)
	return slot, nil
}

// Read returns the raw serialized row at slot, or an error if the slot
// is out of range or tombstoned.
func (p *Page) Read(slot int) ([]byte, error) {
	if slot < 0 || slot >= p.rowCount() {
		return nil, fmt.Errorf("page: slot %d out of range", slot)
	}
	e := p.readSlot(slot)
	if e.tombstone {
		return nil, fmt.Errorf("page: slot %d is tombstoned", slot)
	}
	out := make([]byte, e.length)
	copy(out, p.buf[e.offset:e.offset+e.length])
	return out, nil
}

// IsLive reports whether slot holds a non-tombstoned row.
func (p *Page) IsLive(slot int) bool {
	if slot < 0 || slot >= p.rowCount() {
		return false
	}
	return !p.readSlot(slot).tombstone
}

// Overwrite replaces the row at slot in place, provided the new
// serialization is no longer than the old one (spec.md §4.5). A
// larger replacement fails with ErrNoSpace; the caller (storage/table)
// is expected to tombstone and re-append elsewhere in that case.
func (p *Page) Overwrite(slot int, data []byte) error {
	if slot < 0 || slot >= p.rowCount() {
		return fmt.Errorf("page: slot %d out of range", slot)
	}
	e := p.readSlot(slot)
	if len(data) > e.length {
		return ErrNoSpace
	}
	copy(p.buf[e.offset:e.offset+len(data)], data)
	// Zero any leftover bytes from the previous, longer row so a
	// subsequent Read (bounded by the new, shorter length) never sees
	// stale tail bytes, and so the page image is deterministic.
	for i := e.offset + len(data); i < e.offset+e.length; i++ {
		p.buf[i] = 0
	}
	e.length = len(data)
	p.writeSlot(slot, e)
	return nil
}

// Tombstone marks slot as logically deleted. Its slot entry and heap
// bytes are not reclaimed; no page operation compacts them later.
func (p *Page) Tombstone(slot int) error {
	if slot < 0 || slot >= p.rowCount() {
		return fmt.Errorf("page: slot %d out of range", slot)
	}
	e := p.readSlot(slot)
	e.tombstone = true
	p.writeSlot(slot, e)
	return nil
}

// --- Row <-> byte encoding (spec.md §4.5) ---

const (
	tagNull    byte = 0
	tagInt     byte = 1
	tagFloat   byte = 2
	tagVarchar byte = 3
)

// EncodeRow serializes a row as a concatenation of length-prefixed,
// tagged values: one byte variant tag, then either an 8-byte
// little-endian int/float or a 4-byte length + raw string bytes. NULL
// is the tag alone.
func EncodeRow(row sqlval.Row) []byte {
	var out []byte
	for _, v := range row {
		switch v.Kind {
		case sqlval.KindNull:
			out = append(out, tagNull)
		case sqlval.KindInt:
			buf := make([]byte, 9)
			buf[0] = tagInt
			binary.LittleEndian.PutUint64(buf[1:], uint64(v.I))
			out = append(out, buf...)
		case sqlval.KindFloat:
			buf := make([]byte, 9)
			buf[0] = tagFloat
			binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v.F))
			out = append(out, buf...)
		case sqlval.KindVarchar:
			s := []byte(v.S)
			buf := make([]byte, 5+len(s))
			buf[0] = tagVarchar
			binary.LittleEndian.PutUint32(buf[1:5], uint32(len(s)))
			copy(buf[5:], s)
			out = append(out, buf...)
		}
	}
	return out
}

// DecodeRow deserializes the bytes produced by EncodeRow, expecting
// exactly width values.
func DecodeRow(data []byte, width int) (sqlval.Row, error) {
	row := make(sqlval.Row, 0, width)
	pos := 0
	for len(row) < width {
		if pos >= len(data) {
			return nil, fmt.Errorf("page: truncated row, expected %d values, got %d", width, len(row))
		}
		tag := data[pos]
		pos++
		switch tag {
		case tagNull:
			row = append(row, sqlval.Null)
		case tagInt:
			if pos+8 > len(data) {
				return nil, fmt.Errorf("page: truncated int value")
			}
			row = append(row, sqlval.NewInt(int64(binary.LittleEndian.Uint64(data[pos:pos+8]))))
			pos += 8
		case tagFloat:
			if pos+8 > len(data) {
				return nil, fmt.Errorf("page: truncated float value")
			}
			row = append(row, sqlval.NewFloat(math.Float64frombits(binary.LittleEndian.Uint64(data[pos:pos+8]))))
			pos += 8
		case tagVarchar:
			if pos+4 > len(data) {
				return nil, fmt.Errorf("page: truncated varchar length")
			}
			n := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
			pos += 4
			if pos+n > len(data) {
				return nil, fmt.Errorf("page: truncated varchar payload")
			}
			row = append(row, sqlval.NewVarchar(string(data[pos:pos+n])))
			pos += n
		default:
			return nil, fmt.Errorf("page: unknown value tag %d", tag)
		}
	}
	return row, nil
}
