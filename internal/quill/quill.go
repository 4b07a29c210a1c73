// Package quill decodes the Quill/QuillSub/CONTENTS sub-stream: the text
// runs, character and paragraph style tables, font table and color table
// that feed document.Collector's text-related methods.
package quill

import (
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"

	"github.com/gopub/pubdoc/internal/document"
	"github.com/gopub/pubdoc/internal/pubfile"
)

const (
	emusPerInch   = 914400
	pointsPerInch = 72

	chunkRefListStart = 0x18
	chunkRefListEnd   = 0xFFFFFFFF
)

// chunkRef is one 24-byte QuillChunkReference record: skip(2), name(4),
// id(2), skip(4), name2(4), offset(4), length(4).
type chunkRef struct {
	Name   string
	ID     uint16
	Name2  string
	Offset uint32
	Length uint32
}

func (r chunkRef) end() int64 { return int64(r.Offset) + int64(r.Length) }

func readFourCC(c *pubfile.Cursor) (string, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readChunkRef(c *pubfile.Cursor) (chunkRef, error) {
	if err := c.Skip(2); err != nil {
		return chunkRef{}, err
	}
	name, err := readFourCC(c)
	if err != nil {
		return chunkRef{}, err
	}
	id, err := c.ReadU16()
	if err != nil {
		return chunkRef{}, err
	}
	if err := c.Skip(4); err != nil {
		return chunkRef{}, err
	}
	name2, err := readFourCC(c)
	if err != nil {
		return chunkRef{}, err
	}
	offset, err := c.ReadU32()
	if err != nil {
		return chunkRef{}, err
	}
	length, err := c.ReadU32()
	if err != nil {
		return chunkRef{}, err
	}
	return chunkRef{Name: name, ID: id, Name2: name2, Offset: offset, Length: length}, nil
}

// readChunkRefList walks the (possibly chained) chunk-reference list
// starting at chunkRefListStart, following nextListOffset pointers until it
// reads the terminal 0xFFFFFFFF sentinel.
func readChunkRefList(c *pubfile.Cursor) ([]chunkRef, error) {
	if err := c.SeekTo(chunkRefListStart); err != nil {
		return nil, err
	}
	var refs []chunkRef
	for {
		if err := c.Skip(2); err != nil {
			return nil, fmt.Errorf("skip chunk list reserved word: %w", err)
		}
		numChunks, err := c.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("read chunk list count: %w", err)
		}
		nextListOffset, err := c.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("read next chunk list offset: %w", err)
		}
		for i := 0; i < int(numChunks); i++ {
			ref, err := readChunkRef(c)
			if err != nil {
				return nil, fmt.Errorf("read chunk reference %d: %w", i, err)
			}
			refs = append(refs, ref)
		}
		if nextListOffset == chunkRefListEnd {
			break
		}
		if err := c.SeekTo(int64(nextListOffset)); err != nil {
			return nil, fmt.Errorf("seek to chained chunk list: %w", err)
		}
	}
	return refs, nil
}

// charStyleRun and paraStyleRun are each one [Start, End] UTF-16 code-unit
// span (End inclusive) sharing a character or a paragraph style, decoded
// from an FDPC or FDPP table.
type charStyleRun struct {
	Start, End uint32
	Style      document.CharacterStyle
}

type paraStyleRun struct {
	Start, End uint32
	Style      document.ParagraphStyle
}

// Parse decodes the Quill sub-stream and reports every fact it finds to
// collector: the font table, the text color table, the two default styles
// carried by the second STSH chunk, and finally the text itself split into
// paragraphs and character-styled spans.
func Parse(rs document.ReadSeeker, collector document.Collector) error {
	c := pubfile.NewCursor(rs)

	refs, err := readChunkRefList(c)
	if err != nil {
		return fmt.Errorf("read quill chunk list: %w", err)
	}

	var (
		strsLen        uint32
		haveStrsLen    bool
		textID         uint32
		haveTextID     bool
		charRuns       []charStyleRun
		paraRuns       []paraStyleRun
		haveCharRuns   bool
		haveParaRuns   bool
		textRef        chunkRef
		haveText       bool
		whichStsh      int
	)

	for _, ref := range refs {
		switch ref.Name {
		case "STRS":
			n, err := parseStrs(c, ref)
			if err != nil {
				pubfile.Skip("quill: STRS chunk unreadable: %v", err)
				continue
			}
			strsLen, haveStrsLen = n, true
		case "SYID":
			id, err := parseSyid(c, ref)
			if err != nil {
				pubfile.Skip("quill: SYID chunk unreadable: %v", err)
				continue
			}
			textID, haveTextID = id, true
		case "PL  ", "PL":
			if err := parseColors(c, ref, collector); err != nil {
				pubfile.Skip("quill: PL chunk unreadable: %v", err)
			}
		case "FDPC":
			runs, err := parseCharacterStyleTable(c, ref)
			if err != nil {
				pubfile.Skip("quill: FDPC chunk unreadable: %v", err)
				continue
			}
			charRuns, haveCharRuns = runs, true
		case "FDPP":
			runs, err := parseParagraphStyleTable(c, ref)
			if err != nil {
				pubfile.Skip("quill: FDPP chunk unreadable: %v", err)
				continue
			}
			paraRuns, haveParaRuns = runs, true
		case "STSH":
			// Only the second STSH chunk seen is decoded for the default
			// styles; the first is not read.
			seen := whichStsh
			whichStsh++
			if seen != 1 {
				continue
			}
			if err := parseDefaultStyle(c, ref, collector); err != nil {
				pubfile.Skip("quill: STSH chunk unreadable: %v", err)
			}
		case "FONT":
			if err := parseFonts(c, ref, collector); err != nil {
				pubfile.Skip("quill: FONT chunk unreadable: %v", err)
			}
		case "TEXT":
			textRef, haveText = ref, true
		}
	}

	if !haveText || !haveStrsLen || !haveCharRuns || !haveParaRuns {
		// Nothing to emit; a document may legitimately carry no text chunk.
		return nil
	}
	if !haveTextID {
		textID = 0
	}

	text, err := readText(c, textRef, strsLen)
	if err != nil {
		return fmt.Errorf("read quill text: %w", err)
	}

	paragraphs := buildParagraphs(text, charRuns, paraRuns)
	collector.AddTextString(paragraphs, textID)
	return nil
}

func parseStrs(c *pubfile.Cursor, ref chunkRef) (uint32, error) {
	if err := c.SeekTo(int64(ref.Offset)); err != nil {
		return 0, err
	}
	if err := c.Skip(4); err != nil {
		return 0, err
	}
	return c.ReadU32()
}

func parseSyid(c *pubfile.Cursor, ref chunkRef) (uint32, error) {
	if err := c.SeekTo(int64(ref.Offset)); err != nil {
		return 0, err
	}
	return c.ReadU32()
}

func parseColors(c *pubfile.Cursor, ref chunkRef, collector document.Collector) error {
	if err := c.SeekTo(int64(ref.Offset)); err != nil {
		return err
	}
	numEntries, err := c.ReadU32()
	if err != nil {
		return err
	}
	if err := c.Skip(8); err != nil {
		return err
	}
	for i := uint32(0); i < numEntries; i++ {
		more, err := c.StillReading(ref.end())
		if err != nil {
			return err
		}
		if !more {
			break
		}
		info, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return fmt.Errorf("color entry %d: %w", i, err)
		}
		if info.ID == pubfile.IDColorEntry {
			collector.AddTextColor(colorRefFromPacked(info.Data))
		}
	}
	return nil
}

// colorRefFromPacked unpacks a 0x00BBGGRR-style packed color into a direct
// (non-indexed) ColorRef, matching how palette and text color entries are
// both stored as a single packed 32-bit value.
func colorRefFromPacked(packed uint32) document.ColorRef {
	b := (packed >> 16) & 0xFF
	g := (packed >> 8) & 0xFF
	r := packed & 0xFF
	return document.ColorRef{RGB: (r << 16) | (g << 8) | b}
}

func parseFonts(c *pubfile.Cursor, ref chunkRef, collector document.Collector) error {
	if err := c.SeekTo(int64(ref.Offset)); err != nil {
		return err
	}
	if err := c.Skip(4); err != nil {
		return err
	}
	numElements, err := c.ReadU32()
	if err != nil {
		return err
	}
	if err := c.Skip(12 + 4*int64(numElements)); err != nil {
		return err
	}
	for i := uint32(0); i < numElements; i++ {
		nameLength, err := c.ReadU16()
		if err != nil {
			return fmt.Errorf("font %d name length: %w", i, err)
		}
		raw, err := c.ReadBytes(int(nameLength) * 2)
		if err != nil {
			return fmt.Errorf("font %d name: %w", i, err)
		}
		name, err := decodeUTF16LE(raw)
		if err != nil {
			return fmt.Errorf("font %d name decode: %w", i, err)
		}
		collector.AddFont(name)
		if err := c.Skip(4); err != nil {
			return err
		}
	}
	return nil
}

// parseDefaultStyle decodes the second STSH chunk: an array of byte offsets
// into the chunk, alternating character and paragraph style records
// starting with a character style at index 0.
func parseDefaultStyle(c *pubfile.Cursor, ref chunkRef, collector document.Collector) error {
	if err := c.SeekTo(int64(ref.Offset)); err != nil {
		return err
	}
	if err := c.Skip(4); err != nil {
		return err
	}
	numElements, err := c.ReadU32()
	if err != nil {
		return err
	}
	if err := c.Skip(12); err != nil {
		return err
	}
	offsets := make([]uint32, numElements)
	for i := range offsets {
		v, err := c.ReadU32()
		if err != nil {
			return fmt.Errorf("stsh offset %d: %w", i, err)
		}
		offsets[i] = v
	}
	for i, off := range offsets {
		if err := c.SeekTo(int64(ref.Offset) + 20 + int64(off)); err != nil {
			return err
		}
		if err := c.Skip(2); err != nil {
			return err
		}
		if i%2 == 0 {
			style, err := decodeCharacterStyle(c, ref.end(), true)
			if err != nil {
				return fmt.Errorf("stsh default char style %d: %w", i, err)
			}
			collector.AddDefaultCharacterStyle(style)
		} else {
			style, err := decodeParagraphStyle(c, ref.end())
			if err != nil {
				return fmt.Errorf("stsh default para style %d: %w", i, err)
			}
			collector.AddDefaultParagraphStyle(style)
		}
	}
	return nil
}

func parseCharacterStyleTable(c *pubfile.Cursor, ref chunkRef) ([]charStyleRun, error) {
	if err := c.SeekTo(int64(ref.Offset)); err != nil {
		return nil, err
	}
	numEntries, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	if err := c.Skip(6); err != nil {
		return nil, err
	}
	textOffsets := make([]uint32, numEntries)
	for i := range textOffsets {
		v, err := c.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("fdpc text offset %d: %w", i, err)
		}
		textOffsets[i] = v
	}
	chunkOffsets := make([]uint16, numEntries)
	for i := range chunkOffsets {
		v, err := c.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("fdpc chunk offset %d: %w", i, err)
		}
		chunkOffsets[i] = v
	}

	runs := make([]charStyleRun, 0, numEntries)
	var start uint32
	for i := 0; i < int(numEntries); i++ {
		if err := c.SeekTo(int64(ref.Offset) + int64(chunkOffsets[i])); err != nil {
			return nil, err
		}
		style, err := decodeCharacterStyle(c, ref.end(), false)
		if err != nil {
			return nil, fmt.Errorf("fdpc style %d: %w", i, err)
		}
		end := textOffsets[i]
		runs = append(runs, charStyleRun{Start: start, End: end, Style: style})
		start = end + 1
	}
	return runs, nil
}

func parseParagraphStyleTable(c *pubfile.Cursor, ref chunkRef) ([]paraStyleRun, error) {
	if err := c.SeekTo(int64(ref.Offset)); err != nil {
		return nil, err
	}
	numEntries, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	if err := c.Skip(6); err != nil {
		return nil, err
	}
	textOffsets := make([]uint32, numEntries)
	for i := range textOffsets {
		v, err := c.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("fdpp text offset %d: %w", i, err)
		}
		textOffsets[i] = v
	}
	chunkOffsets := make([]uint16, numEntries)
	for i := range chunkOffsets {
		v, err := c.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("fdpp chunk offset %d: %w", i, err)
		}
		chunkOffsets[i] = v
	}

	runs := make([]paraStyleRun, 0, numEntries)
	var start uint32
	for i := 0; i < int(numEntries); i++ {
		if err := c.SeekTo(int64(ref.Offset) + int64(chunkOffsets[i])); err != nil {
			return nil, err
		}
		style, err := decodeParagraphStyle(c, ref.end())
		if err != nil {
			return nil, fmt.Errorf("fdpp style %d: %w", i, err)
		}
		end := textOffsets[i]
		runs = append(runs, paraStyleRun{Start: start, End: end, Style: style})
		start = end + 1
	}
	return runs, nil
}

// decodeCharacterStyle reads a block-structured character style record.
// TEXT_SIZE_2_ID is always forced equal to TEXT_SIZE_1_ID once both have
// been read; a mismatch is logged but does not fail the parse (why both
// fields exist is unresolved).
func decodeCharacterStyle(c *pubfile.Cursor, end int64, inStsh bool) (document.CharacterStyle, error) {
	var (
		seenBold1, seenBold2     bool
		seenItalic1, seenItalic2 bool
		underline                bool
		textSize1                int32 = -1
		textSize2                int32 = -1
		seenSize1, seenSize2     bool
		colorIndex               int = -1
		fontIndex                uint32
	)

	for {
		more, err := c.StillReading(end)
		if err != nil {
			return document.CharacterStyle{}, err
		}
		if !more {
			break
		}
		info, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return document.CharacterStyle{}, err
		}
		switch info.ID {
		case pubfile.IDBold1:
			seenBold1 = true
		case pubfile.IDBold2:
			seenBold2 = true
		case pubfile.IDItalic1:
			seenItalic1 = true
		case pubfile.IDItalic2:
			seenItalic2 = true
		case pubfile.IDUnderline:
			underline = info.Data != 0
		case pubfile.IDTextSize1:
			textSize1 = int32(info.Data)
			seenSize1 = true
		case pubfile.IDTextSize2:
			textSize2 = int32(info.Data)
			seenSize2 = true
		case pubfile.IDBareColorIndex:
			colorIndex = int(info.Data)
		case pubfile.IDColorIndexContainer:
			idx, err := getColorIndex(c, info)
			if err == nil {
				colorIndex = idx
			}
		case pubfile.IDFontIndexContainer:
			if inStsh {
				continue
			}
			idx, err := getFontIndex(c, info)
			if err == nil {
				fontIndex = idx
			}
		}
	}

	if seenSize1 && seenSize2 && textSize1 != textSize2 {
		pubfile.Default("quill: TEXT_SIZE_1 (%d) and TEXT_SIZE_2 (%d) disagreed; using TEXT_SIZE_1", textSize1, textSize2)
	}
	textSize2 = textSize1

	sizePoints := -1.0
	if textSize1 >= 0 {
		sizePoints = float64(textSize1) * pointsPerInch / emusPerInch
	}
	_ = textSize2

	return document.CharacterStyle{
		Bold:       seenBold1 && seenBold2,
		Italic:     seenItalic1 && seenItalic2,
		Underline:  underline,
		SizePoints: sizePoints,
		ColorIndex: colorIndex,
		FontIndex:  fontIndex,
	}, nil
}

// getColorIndex descends into a COLOR_INDEX_CONTAINER block looking for the
// nested COLOR_INDEX value: start past the container's own length word
// (DataOffset already is), then scan its children.
func getColorIndex(c *pubfile.Cursor, container pubfile.BlockInfo) (int, error) {
	if err := c.SeekTo(container.DataOffset); err != nil {
		return 0, err
	}
	for {
		more, err := c.StillReading(container.End())
		if err != nil {
			return 0, err
		}
		if !more {
			return 0, fmt.Errorf("color index not found in container")
		}
		sub, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return 0, err
		}
		if sub.ID == pubfile.IDColorIndex {
			return int(sub.Data), nil
		}
	}
}

// getFontIndex descends two container levels: FONT_INDEX_CONTAINER wraps a
// GENERAL_CONTAINER, whose sole child carries the actual font table index.
func getFontIndex(c *pubfile.Cursor, container pubfile.BlockInfo) (uint32, error) {
	if err := c.SeekTo(container.DataOffset); err != nil {
		return 0, err
	}
	inner, found, err := findBlockOfType(c, container.End(), pubfile.TypeGeneralContainer)
	if err != nil || !found {
		return 0, fmt.Errorf("font index general container not found")
	}
	if err := c.SeekTo(inner.DataOffset); err != nil {
		return 0, err
	}
	more, err := c.StillReading(inner.End())
	if err != nil || !more {
		return 0, fmt.Errorf("font index value not found")
	}
	leaf, err := pubfile.ParseBlock(c, true)
	if err != nil {
		return 0, err
	}
	return leaf.Data, nil
}

func findBlockOfType(c *pubfile.Cursor, end int64, want pubfile.BlockType) (pubfile.BlockInfo, bool, error) {
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return pubfile.BlockInfo{}, false, err
		}
		if !more {
			return pubfile.BlockInfo{}, false, nil
		}
		info, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return pubfile.BlockInfo{}, false, err
		}
		if info.Type == want {
			return info, true, nil
		}
	}
}

func decodeParagraphStyle(c *pubfile.Cursor, end int64) (document.ParagraphStyle, error) {
	var style document.ParagraphStyle
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return document.ParagraphStyle{}, err
		}
		if !more {
			break
		}
		info, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return document.ParagraphStyle{}, err
		}
		switch info.ID {
		case pubfile.IDParagraphAlignment:
			style.Alignment = int(info.Data & 0xFF)
		case pubfile.IDParagraphDefaultCharStyle:
			style.DefaultCharStyle = info.Data
		case pubfile.IDParagraphLineSpacing:
			style.LineSpacing = info.Data
		case pubfile.IDParagraphSpaceBefore:
			style.SpaceBeforeEmu = info.Data
		case pubfile.IDParagraphSpaceAfter:
			style.SpaceAfterEmu = info.Data
		case pubfile.IDParagraphFirstLineIndent:
			style.FirstLineIndentEmu = int(int32(info.Data))
		case pubfile.IDParagraphLeftIndent:
			style.LeftIndentEmu = info.Data
		case pubfile.IDParagraphRightIndent:
			style.RightIndentEmu = info.Data
		}
	}
	return style, nil
}

func readText(c *pubfile.Cursor, ref chunkRef, numCodeUnits uint32) (string, error) {
	if err := c.SeekTo(int64(ref.Offset)); err != nil {
		return "", err
	}
	raw, err := c.ReadBytes(int(numCodeUnits) * 2)
	if err != nil {
		return "", err
	}
	return decodeUTF16LE(raw)
}

func decodeUTF16LE(raw []byte) (string, error) {
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := decoder.Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// buildParagraphs cuts the flat UTF-16 code-unit text into paragraphs at
// paraRuns boundaries and, within each paragraph, into spans at charRuns
// boundaries, matching the original parser's use of the same
// text-offset tables to delimit both.
func buildParagraphs(text string, charRuns []charStyleRun, paraRuns []paraStyleRun) []document.TextParagraph {
	units := utf16.Encode([]rune(text))

	slice := func(start, end uint32) string {
		if int(start) >= len(units) {
			return ""
		}
		if int(end) > len(units) {
			end = uint32(len(units))
		}
		if end < start {
			return ""
		}
		return string(utf16.Decode(units[start:end]))
	}

	paragraphs := make([]document.TextParagraph, 0, len(paraRuns))
	for _, pr := range paraRuns {
		para := document.TextParagraph{Style: pr.Style}
		for _, cr := range charRuns {
			if cr.End < pr.Start || cr.Start > pr.End {
				continue
			}
			start := cr.Start
			if start < pr.Start {
				start = pr.Start
			}
			end := cr.End
			if end > pr.End {
				end = pr.End
			}
			text := slice(start, end+1)
			if text == "" {
				continue
			}
			para.Spans = append(para.Spans, document.TextSpan{Text: text, Style: cr.Style})
		}
		paragraphs = append(paragraphs, para)
	}
	return paragraphs
}
