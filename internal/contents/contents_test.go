package contents

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/gopub/pubdoc/internal/document"
	"github.com/gopub/pubdoc/internal/pubfile"
)

func TestPageTypeClassification(t *testing.T) {
	cases := []struct {
		seq  uint32
		want document.PageType
	}{
		{0x107, document.PageMaster},
		{0x10D, document.PageDummy},
		{0x110, document.PageDummy},
		{0x113, document.PageDummy},
		{0x117, document.PageDummy},
		{1, document.PageNormal},
		{9999, document.PageNormal},
	}
	for _, tc := range cases {
		if got := pageType(tc.seq); got != tc.want {
			t.Errorf("pageType(%#x) = %v, want %v", tc.seq, got, tc.want)
		}
	}
}

func writeGeneralContainerColorEntry(buf *bytes.Buffer, rgbPacked uint32) {
	var body bytes.Buffer
	body.WriteByte(byte(pubfile.IDColorEntry))
	body.WriteByte(byte(pubfile.TypeFour20))
	binary.Write(&body, binary.LittleEndian, rgbPacked)

	buf.WriteByte(0x01)
	buf.WriteByte(byte(pubfile.TypeGeneralContainer))
	binary.Write(buf, binary.LittleEndian, uint32(4+body.Len()))
	buf.Write(body.Bytes())
}

func TestParsePaletteEntriesFlatAndNested(t *testing.T) {
	var buf bytes.Buffer
	// one flat entry
	writeGeneralContainerColorEntry(&buf, 0x00000010) // R=0x10
	// one 0xA0 wrapper containing a nested entry
	var nested bytes.Buffer
	writeGeneralContainerColorEntry(&nested, 0x00000020) // R=0x20
	buf.WriteByte(0x02)
	buf.WriteByte(byte(pubfile.TypeVarA0))
	binary.Write(&buf, binary.LittleEndian, uint32(4+nested.Len()))
	buf.Write(nested.Bytes())

	c := pubfile.NewCursor(bytes.NewReader(buf.Bytes()))
	m := document.NewModel()
	if err := parsePaletteEntries(c, int64(buf.Len()), m); err != nil {
		t.Fatalf("parsePaletteEntries: %v", err)
	}
	if len(m.PaletteColors) != 2 {
		t.Fatalf("got %d palette colors, want 2", len(m.PaletteColors))
	}
	if m.PaletteColors[0].R != 0x10 {
		t.Errorf("first color R = %#x, want 0x10", m.PaletteColors[0].R)
	}
	if m.PaletteColors[1].R != 0x20 {
		t.Errorf("second color R = %#x, want 0x20 (nested under 0xA0)", m.PaletteColors[1].R)
	}
}

func TestParseContentChunkReferenceRequiresTypeAndOffset(t *testing.T) {
	var body bytes.Buffer
	// only CHUNK_TYPE, no CHUNK_OFFSET
	body.WriteByte(byte(pubfile.IDChunkType))
	body.WriteByte(byte(pubfile.TypeFour20))
	binary.Write(&body, binary.LittleEndian, uint32(chunkPage))

	var buf bytes.Buffer
	buf.WriteByte(0x00)
	buf.WriteByte(byte(pubfile.TypeGeneralContainer))
	binary.Write(&buf, binary.LittleEndian, uint32(4+body.Len()))
	buf.Write(body.Bytes())

	c := pubfile.NewCursor(bytes.NewReader(buf.Bytes()))
	info, err := pubfile.ParseBlock(c, false)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if _, err := parseContentChunkReference(c, info, 1); err == nil {
		t.Fatalf("expected error for missing CHUNK_OFFSET")
	}
}
