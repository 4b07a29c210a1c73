// Package contents decodes the Contents sub-stream's trailer directory: the
// content-chunk table that indexes every page, shape and palette chunk
// elsewhere in the stream, and the page/shape/palette/document chunk bodies
// themselves.
package contents

import (
	"fmt"
	"image/color"

	"github.com/gopub/pubdoc/internal/document"
	"github.com/gopub/pubdoc/internal/pubfile"
)

const (
	trailerOffsetFieldPos = 0x1A

	// Page seqnum thresholds. These are read directly off the Contents
	// stream's own chunk table, not assigned by this module: a page chunk's
	// seqnum encodes whether it's the document master page or one of the
	// fixed "dummy" placeholder pages Publisher reserves.
	masterPageSeqNum = 0x107
)

var dummyPageSeqNums = map[uint32]bool{
	0x10D: true,
	0x110: true,
	0x113: true,
	0x117: true,
}

// chunkKind classifies a content-chunk-table entry. Numeric values are
// internally assigned (see internal/pubfile.BlockID's doc comment for why);
// what matters is that every entry in a directory is classified consistently
// against the same table this parser wrote.
type chunkKind int

const (
	chunkUnknown chunkKind = iota
	chunkDocument
	chunkPage
	chunkShape
	chunkAltShape
	chunkGroup
	chunkPalette
)

// chunkEntry is one decoded ContentChunkReference: a (kind, seqnum, offset)
// triple plus the End backpatched in once the next entry in table order is
// known.
type chunkEntry struct {
	Kind         chunkKind
	SeqNum       uint32
	Offset       uint32
	ParentSeqNum uint32
	HasParent    bool
	End          int64
}

func (e *chunkEntry) span() (int64, int64) { return int64(e.Offset), e.End }

// directory is the fully-decoded content-chunk table.
type directory struct {
	bySeq     map[uint32]*chunkEntry
	pages     []*chunkEntry
	shapes    []*chunkEntry
	palettes  []*chunkEntry
	document  *chunkEntry
}

// Parse decodes the Contents stream and reports pages, shapes, the palette
// and the document size to collector, in the fixed order the reference
// implementation uses: palettes, then the document chunk, then pages.
func Parse(rs document.ReadSeeker, collector document.Collector) error {
	c := pubfile.NewCursor(rs)

	if err := c.SeekTo(trailerOffsetFieldPos); err != nil {
		return fmt.Errorf("seek to trailer offset field: %w", err)
	}
	trailerOffset, err := c.ReadU32()
	if err != nil {
		return fmt.Errorf("read trailer offset: %w", err)
	}
	if err := c.SeekTo(int64(trailerOffset)); err != nil {
		return fmt.Errorf("seek to trailer: %w", err)
	}
	if _, err := c.ReadU32(); err != nil { // trailer length, not otherwise used
		return fmt.Errorf("read trailer length: %w", err)
	}

	var dirBlock pubfile.BlockInfo
	found := false
	for i := 0; i < 3; i++ {
		info, err := pubfile.ParseBlock(c, false)
		if err != nil {
			return fmt.Errorf("read trailer sub-block %d: %w", i, err)
		}
		if info.Type == pubfile.TypeTrailerDirectory {
			dirBlock = info
			found = true
			break
		}
		if err := pubfile.SkipBlock(c, info); err != nil {
			return fmt.Errorf("skip trailer sub-block %d: %w", i, err)
		}
	}
	if !found {
		return fmt.Errorf("contents trailer: no directory block among its 3 sub-blocks")
	}

	dir, err := parseTrailerDirectory(c, dirBlock)
	if err != nil {
		return fmt.Errorf("parse trailer directory: %w", err)
	}
	if dir.document == nil {
		return fmt.Errorf("contents trailer: no document chunk found")
	}

	for _, p := range dir.palettes {
		if err := parsePaletteChunk(c, p, collector); err != nil {
			pubfile.Skip("contents: palette chunk %d unreadable: %v", p.SeqNum, err)
		}
	}
	if err := parseDocumentChunk(c, dir.document, collector); err != nil {
		return fmt.Errorf("parse document chunk: %w", err)
	}
	for _, p := range dir.pages {
		if err := parsePageChunk(c, p, dir, collector); err != nil {
			pubfile.Skip("contents: page chunk %d unreadable: %v", p.SeqNum, err)
		}
	}
	return nil
}

func parseTrailerDirectory(c *pubfile.Cursor, dirBlock pubfile.BlockInfo) (*directory, error) {
	dir := &directory{bySeq: make(map[uint32]*chunkEntry)}
	end := dirBlock.End()

	var lastSeenSeqNum uint32
	var prev *chunkEntry

	if err := c.SeekTo(dirBlock.DataOffset); err != nil {
		return nil, err
	}
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		info, err := pubfile.ParseBlock(c, false)
		if err != nil {
			return nil, err
		}
		lastSeenSeqNum++

		if info.Type == pubfile.TypeGeneralContainer {
			entry, err := parseContentChunkReference(c, info, lastSeenSeqNum)
			if err != nil {
				pubfile.Skip("contents: unreadable content chunk reference at seq %d: %v", lastSeenSeqNum, err)
			} else {
				if prev != nil {
					prev.End = int64(entry.Offset)
				}
				dir.bySeq[entry.SeqNum] = entry
				switch entry.Kind {
				case chunkPage:
					dir.pages = append(dir.pages, entry)
				case chunkShape, chunkAltShape, chunkGroup:
					dir.shapes = append(dir.shapes, entry)
				case chunkPalette:
					dir.palettes = append(dir.palettes, entry)
				case chunkDocument:
					if dir.document == nil {
						dir.document = entry
					}
				}
				prev = entry
			}
		}
		if err := c.SeekTo(info.End()); err != nil {
			return nil, err
		}
	}
	if prev != nil {
		prev.End = end
	}
	return dir, nil
}

// parseContentChunkReference reads the CHUNK_TYPE / CHUNK_OFFSET /
// CHUNK_PARENT_SEQNUM sub-blocks of one GENERAL_CONTAINER directory entry.
func parseContentChunkReference(c *pubfile.Cursor, info pubfile.BlockInfo, seqNum uint32) (*chunkEntry, error) {
	entry := &chunkEntry{SeqNum: seqNum}
	var seenType, seenOffset bool

	if err := c.SeekTo(info.DataOffset); err != nil {
		return nil, err
	}
	for {
		more, err := c.StillReading(info.End())
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		sub, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return nil, err
		}
		switch sub.ID {
		case pubfile.IDChunkType:
			entry.Kind = chunkKind(sub.Data)
			seenType = true
		case pubfile.IDChunkOffset:
			entry.Offset = sub.Data
			seenOffset = true
		case pubfile.IDChunkParentSeqnum:
			entry.ParentSeqNum = sub.Data
			entry.HasParent = true
		}
	}
	if !seenType || !seenOffset {
		return nil, fmt.Errorf("content chunk reference missing type or offset")
	}
	return entry, nil
}

// pageType classifies a page chunk by seqnum, per the fixed thresholds
// Publisher itself reserves for the master page and dummy placeholder pages.
func pageType(seqNum uint32) document.PageType {
	switch {
	case seqNum == masterPageSeqNum:
		return document.PageMaster
	case dummyPageSeqNums[seqNum]:
		return document.PageDummy
	default:
		return document.PageNormal
	}
}

func parsePageChunk(c *pubfile.Cursor, entry *chunkEntry, dir *directory, collector document.Collector) error {
	start, end := entry.span()
	kind := pageType(entry.SeqNum)
	if kind == document.PageDummy {
		return nil
	}

	collector.AddPage(entry.SeqNum)
	if kind == document.PageMaster {
		collector.DesignateMasterPage(entry.SeqNum)
	}

	if err := c.SeekTo(start); err != nil {
		return err
	}
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		info, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return err
		}
		switch info.ID {
		case pubfile.IDPageBgShape:
			collector.SetPageBgShape(entry.SeqNum, info.Data)
		case pubfile.IDPageShapes:
			if err := parseShapes(c, info, entry.SeqNum, dir, collector); err != nil {
				pubfile.Skip("contents: page %d shapes unreadable: %v", entry.SeqNum, err)
			}
		}
	}
	return nil
}

func parseShapes(c *pubfile.Cursor, shapesBlock pubfile.BlockInfo, pageSeq uint32, dir *directory, collector document.Collector) error {
	end := shapesBlock.End()
	if err := c.SeekTo(shapesBlock.DataOffset); err != nil {
		return err
	}
	var refs []uint32
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		sub, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return err
		}
		if sub.Type == pubfile.TypeShapeSeqnum {
			refs = append(refs, sub.Data)
		}
	}

	for _, seq := range refs {
		entry, ok := dir.bySeq[seq]
		if !ok {
			pubfile.Skip("contents: page %d references unknown shape seqnum %d", pageSeq, seq)
			continue
		}
		if err := parseShape(c, entry, pageSeq, collector); err != nil {
			pubfile.Skip("contents: shape %d unreadable: %v", seq, err)
		}
	}
	return nil
}

func parseShape(c *pubfile.Cursor, entry *chunkEntry, pageSeq uint32, collector document.Collector) error {
	start, end := entry.span()
	if err := c.SeekTo(start); err != nil {
		return err
	}

	var width, height uint32
	var textID uint32
	var hasTextID bool
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		info, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return err
		}
		switch info.ID {
		case pubfile.IDShapeWidth:
			width = info.Data
		case pubfile.IDShapeHeight:
			height = info.Data
		case pubfile.IDShapeTextID:
			textID, hasTextID = info.Data, true
		}
	}

	isAlternate := entry.Kind == chunkAltShape
	isGroup := entry.Kind == chunkGroup
	if isGroup || isAlternate || (width != 0 && height != 0) {
		collector.SetShapePage(entry.SeqNum, pageSeq)
		if !isGroup {
			if hasTextID {
				collector.AddTextShape(textID, entry.SeqNum, pageSeq)
			}
			collector.AddShape(entry.SeqNum)
		}
	}
	return nil
}

func parseDocumentChunk(c *pubfile.Cursor, entry *chunkEntry, collector document.Collector) error {
	start, end := entry.span()
	if err := c.SeekTo(start); err != nil {
		return err
	}
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		info, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return err
		}
		switch info.ID {
		case pubfile.IDDocumentWidth:
			collector.SetWidthInEmu(info.Data)
		case pubfile.IDDocumentHeight:
			collector.SetHeightInEmu(info.Data)
		}
	}
	return nil
}

// parsePaletteChunk descends into each GENERAL_CONTAINER palette entry,
// including ones nested one level inside a 0xA0 wrapper block.
func parsePaletteChunk(c *pubfile.Cursor, entry *chunkEntry, collector document.Collector) error {
	start, end := entry.span()
	if err := c.SeekTo(start); err != nil {
		return err
	}
	return parsePaletteEntries(c, end, collector)
}

func parsePaletteEntries(c *pubfile.Cursor, end int64, collector document.Collector) error {
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		info, err := pubfile.ParseBlock(c, false)
		if err != nil {
			return err
		}
		switch info.Type {
		case pubfile.TypeGeneralContainer:
			if err := parsePaletteEntry(c, info, collector); err != nil {
				pubfile.Skip("contents: palette entry unreadable: %v", err)
			}
		case pubfile.TypeVarA0:
			if err := parsePaletteEntries(c, info.End(), collector); err != nil {
				return err
			}
		}
		if err := c.SeekTo(info.End()); err != nil {
			return err
		}
	}
}

func parsePaletteEntry(c *pubfile.Cursor, container pubfile.BlockInfo, collector document.Collector) error {
	if err := c.SeekTo(container.DataOffset); err != nil {
		return err
	}
	for {
		more, err := c.StillReading(container.End())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		sub, err := pubfile.ParseBlock(c, true)
		if err != nil {
			return err
		}
		if sub.ID == pubfile.IDColorEntry {
			data := sub.Data
			collector.AddPaletteColor(color.RGBA{
				R: uint8(data & 0xFF),
				G: uint8((data >> 8) & 0xFF),
				B: uint8((data >> 16) & 0xFF),
				A: 0xFF,
			})
		}
	}
}
