package quill

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/gopub/pubdoc/internal/document"
	"github.com/gopub/pubdoc/internal/pubfile"
)

func TestBuildParagraphsSplitsSpansAtCharacterRunBoundaries(t *testing.T) {
	text := "helloworld"
	charRuns := []charStyleRun{
		{Start: 0, End: 4, Style: document.CharacterStyle{Bold: true}},
		{Start: 5, End: 9, Style: document.CharacterStyle{Italic: true}},
	}
	paraRuns := []paraStyleRun{
		{Start: 0, End: 9, Style: document.ParagraphStyle{Alignment: 1}},
	}

	paras := buildParagraphs(text, charRuns, paraRuns)
	if len(paras) != 1 {
		t.Fatalf("got %d paragraphs, want 1", len(paras))
	}
	if paras[0].Style.Alignment != 1 {
		t.Errorf("paragraph alignment = %d, want 1", paras[0].Style.Alignment)
	}
	if len(paras[0].Spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(paras[0].Spans))
	}
	if paras[0].Spans[0].Text != "hello" || !paras[0].Spans[0].Style.Bold {
		t.Errorf("span 0 = %+v, want bold %q", paras[0].Spans[0], "hello")
	}
	if paras[0].Spans[1].Text != "world" || !paras[0].Spans[1].Style.Italic {
		t.Errorf("span 1 = %+v, want italic %q", paras[0].Spans[1], "world")
	}
}

func TestColorRefFromPacked(t *testing.T) {
	// packed as 0x00BBGGRR: blue=0x30, green=0x20, red=0x10
	packed := uint32(0x00302010)
	got := colorRefFromPacked(packed)
	want := document.ColorRef{RGB: 0x102030}
	if got != want {
		t.Errorf("colorRefFromPacked(%#x) = %+v, want %+v", packed, got, want)
	}
}

func TestParseFontsEmitsDecodedNames(t *testing.T) {
	name := "Arial"
	nameUTF16 := make([]byte, len(name)*2)
	for i, r := range name {
		binary.LittleEndian.PutUint16(nameUTF16[i*2:], uint16(r))
	}

	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, uint32(0))                  // skipped u32
	binary.Write(&body, binary.LittleEndian, uint32(1))                  // numElements
	body.Write(make([]byte, 12+4*1))                                     // skip 12+4*numElements
	binary.Write(&body, binary.LittleEndian, uint16(len(name)))          // nameLength
	body.Write(nameUTF16)
	binary.Write(&body, binary.LittleEndian, uint32(0)) // trailing u32

	full := append([]byte{0xAA, 0xAA, 0xAA, 0xAA}, body.Bytes()...) // padding so offset != 0
	c := pubfile.NewCursor(bytes.NewReader(full))

	ref := chunkRef{Name: "FONT", Offset: 4, Length: uint32(body.Len())}
	m := document.NewModel()
	if err := parseFonts(c, ref, m); err != nil {
		t.Fatalf("parseFonts: %v", err)
	}
	if len(m.Fonts) != 1 || m.Fonts[0] != name {
		t.Errorf("Fonts = %v, want [%q]", m.Fonts, name)
	}
}
