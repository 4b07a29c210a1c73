package pubfile

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func newTestCursor(t *testing.T, buf []byte) *Cursor {
	t.Helper()
	return NewCursor(bytes.NewReader(buf))
}

func TestParseBlockFixedWidths(t *testing.T) {
	cases := []struct {
		name    string
		typ     BlockType
		payload []byte
		wantLen uint32
		wantVal uint32
	}{
		{"zero-width", TypeZero0, nil, 0, 0},
		{"two-byte", TypeTwo10, []byte{0x34, 0x12}, 2, 0x1234},
		{"four-byte", TypeFour20, []byte{0x78, 0x56, 0x34, 0x12}, 4, 0x12345678},
		{"eight-byte", TypeEight28, make([]byte, 8), 8, 0},
		{"sixteen-byte", TypeSixteen38, make([]byte, 16), 16, 0},
		{"twentyfour-byte", TypeTwentyFour48, make([]byte, 24), 24, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			buf.WriteByte(0x07) // id
			buf.WriteByte(byte(tc.typ))
			buf.Write(tc.payload)

			c := newTestCursor(t, buf.Bytes())
			info, err := ParseBlock(c, false)
			if err != nil {
				t.Fatalf("ParseBlock: %v", err)
			}
			if info.ID != 0x07 {
				t.Errorf("ID = %#x, want 0x07", info.ID)
			}
			if info.Type != tc.typ {
				t.Errorf("Type = %#x, want %#x", info.Type, tc.typ)
			}
			if info.DataLength != tc.wantLen {
				t.Errorf("DataLength = %d, want %d", info.DataLength, tc.wantLen)
			}
			if info.Data != tc.wantVal {
				t.Errorf("Data = %#x, want %#x", info.Data, tc.wantVal)
			}
		})
	}
}

func TestParseBlockVariableLengthSkip(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x0A)                    // id
	buf.WriteByte(byte(TypeGeneralContainer)) // type
	binary.Write(&buf, binary.LittleEndian, uint32(4+6))
	buf.Write([]byte{1, 2, 3, 4, 5, 6})
	buf.Write([]byte{0xAA, 0xBB}) // trailing sibling bytes

	c := newTestCursor(t, buf.Bytes())
	info, err := ParseBlock(c, true)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if info.DataLength != 10 {
		t.Fatalf("DataLength = %d, want 10", info.DataLength)
	}
	pos, err := c.Pos()
	if err != nil {
		t.Fatalf("Pos: %v", err)
	}
	if pos != info.End() {
		t.Errorf("cursor left at %d, want %d (skip-hierarchical should land at block end)", pos, info.End())
	}
	next, err := c.ReadU8()
	if err != nil {
		t.Fatalf("ReadU8: %v", err)
	}
	if next != 0xAA {
		t.Errorf("next byte after skip = %#x, want 0xAA", next)
	}
}

func TestParseBlockVariableLengthNoSkipLeavesCursorAtData(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x0B)
	buf.WriteByte(byte(TypeGeneralContainer))
	binary.Write(&buf, binary.LittleEndian, uint32(4+2))
	buf.Write([]byte{0x11, 0x22})

	c := newTestCursor(t, buf.Bytes())
	info, err := ParseBlock(c, false)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	pos, err := c.Pos()
	if err != nil {
		t.Fatalf("Pos: %v", err)
	}
	if pos != info.DataOffset {
		t.Errorf("cursor left at %d, want DataOffset %d", pos, info.DataOffset)
	}
}

func TestParseBlockStringContainer(t *testing.T) {
	body := []byte("hello world")
	var buf bytes.Buffer
	buf.WriteByte(0x0C)
	buf.WriteByte(byte(TypeStringContainer))
	binary.Write(&buf, binary.LittleEndian, uint32(4+len(body)))
	buf.Write(body)

	c := newTestCursor(t, buf.Bytes())
	info, err := ParseBlock(c, true)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if string(info.StringData) != string(body) {
		t.Errorf("StringData = %q, want %q", info.StringData, body)
	}
}

func TestOptional(t *testing.T) {
	none := None[int]()
	if none.IsSet() {
		t.Fatalf("None should not be set")
	}
	if v := none.OrElse(42); v != 42 {
		t.Errorf("OrElse on None = %d, want 42", v)
	}

	some := Some(7)
	v, ok := some.Get()
	if !ok || v != 7 {
		t.Errorf("Some.Get() = (%d, %v), want (7, true)", v, ok)
	}
}

func TestExtractEscherValuesLastWriteWins(t *testing.T) {
	var buf bytes.Buffer
	writeHeader := func(recType EscherRecordType, contentsLen uint32) {
		binary.Write(&buf, binary.LittleEndian, uint16(0x0FF0)) // initial (version 0, instance 0xFF)
		binary.Write(&buf, binary.LittleEndian, uint16(recType))
		binary.Write(&buf, binary.LittleEndian, contentsLen)
	}
	// one atomic FOPT-shaped record: two (id, value) pairs, id 5 written twice
	writeHeader(EscherOPT, 2*6)
	binary.Write(&buf, binary.LittleEndian, uint16(5))
	binary.Write(&buf, binary.LittleEndian, uint32(100))
	binary.Write(&buf, binary.LittleEndian, uint16(5))
	binary.Write(&buf, binary.LittleEndian, uint32(200))

	c := newTestCursor(t, buf.Bytes())
	info, err := ParseEscherContainer(c)
	if err != nil {
		t.Fatalf("ParseEscherContainer: %v", err)
	}
	values, err := ExtractEscherValues(c, info)
	if err != nil {
		t.Fatalf("ExtractEscherValues: %v", err)
	}
	if values[5] != 200 {
		t.Errorf("values[5] = %d, want 200 (last write wins)", values[5])
	}
}

func TestFindEscherContainerSkipsNonMatchingSiblings(t *testing.T) {
	var buf bytes.Buffer
	writeHeader := func(recType EscherRecordType, contentsLen uint32) {
		binary.Write(&buf, binary.LittleEndian, uint16(0x0FF0))
		binary.Write(&buf, binary.LittleEndian, uint16(recType))
		binary.Write(&buf, binary.LittleEndian, contentsLen)
	}
	// parent container wrapping: [SpContainer (skip), SpContainer (skip), Sp (match)]
	parentStart := buf.Len()
	writeHeader(EscherSpgrContainer, 0) // placeholder length, fixed below
	_ = parentStart

	childStart := buf.Len()
	writeHeader(EscherSpContainer, 4)
	buf.Write([]byte{0, 0, 0, 0})
	writeHeader(EscherSpContainer, 4)
	buf.Write([]byte{0, 0, 0, 0})
	writeHeader(EscherSp, 0)
	childrenLen := buf.Len() - childStart

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[parentStart+4:], uint32(childrenLen))

	c := newTestCursor(t, out)
	parent, err := ParseEscherContainer(c)
	if err != nil {
		t.Fatalf("ParseEscherContainer(parent): %v", err)
	}
	match, found, err := FindEscherContainer(c, parent, EscherSp)
	if err != nil {
		t.Fatalf("FindEscherContainer: %v", err)
	}
	if !found {
		t.Fatalf("expected to find EscherSp child")
	}
	if match.Type != EscherSp {
		t.Errorf("match.Type = %#x, want EscherSp", match.Type)
	}
}
