// Package escherdelay decodes the Escher/EscherDelayStm sub-stream: a flat
// sequence of OfficeArt BLIP records holding the raw bytes behind every
// picture a shape's fill can reference by delay index.
package escherdelay

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gopub/pubdoc/internal/document"
	"github.com/gopub/pubdoc/internal/pubfile"
)

// BLIP record types, per [MS-ODRAW]'s msofbtBlip* constants.
const (
	blipEMF  pubfile.EscherRecordType = 0xF01A
	blipWMF  pubfile.EscherRecordType = 0xF01B
	blipPICT pubfile.EscherRecordType = 0xF01C
	blipJPEG pubfile.EscherRecordType = 0xF01D
	blipPNG  pubfile.EscherRecordType = 0xF01E
	blipDIB  pubfile.EscherRecordType = 0xF01F
	blipTIFF pubfile.EscherRecordType = 0xF029
)

// singleUIDInstance gives each BLIP type's recInstance value when the
// record carries only the primary MD4 checksum ("single UID"); a record
// whose recInstance doesn't match carries a second checksum too ("two UID")
// and its pixel data starts 0x10 bytes further into the record.
var singleUIDInstance = map[pubfile.EscherRecordType][]uint16{
	blipEMF:  {0x3D4},
	blipWMF:  {0x216},
	blipPICT: {0x542},
	blipJPEG: {0x46A, 0x6E2},
	blipPNG:  {0x6E0},
	blipDIB:  {0x7A8},
	blipTIFF: {0x6E4},
}

func classifyBlip(t pubfile.EscherRecordType) (document.ImgKind, bool) {
	switch t {
	case blipEMF:
		return document.ImgEMF, true
	case blipWMF:
		return document.ImgWMF, true
	case blipPICT:
		return document.ImgPICT, true
	case blipJPEG:
		return document.ImgJPEG, true
	case blipPNG:
		return document.ImgPNG, true
	case blipDIB:
		return document.ImgDIB, true
	case blipTIFF:
		return document.ImgTIFF, true
	default:
		return document.ImgUnknown, false
	}
}

func isSingleUID(t pubfile.EscherRecordType, instance uint16) bool {
	for _, v := range singleUIDInstance[t] {
		if v == instance {
			return true
		}
	}
	return false
}

// getStartOffset returns the byte offset, relative to a BLIP record's
// content, where the actual image payload begins. WMF/EMF metafile blips
// carry a larger fixed pre-payload header (metafile bounds and size fields)
// than the bitmap/vector formats; any BLIP with a second UID checksum
// pushes the payload 0x10 bytes further in.
func getStartOffset(recType pubfile.EscherRecordType, kind document.ImgKind, instance uint16) int64 {
	base := int64(0x11)
	if kind == document.ImgWMF || kind == document.ImgEMF {
		base = 0x34
	}
	if !isSingleUID(recType, instance) {
		base += 0x10
	}
	return base
}

func streamSize(rs document.ReadSeeker) (int64, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}

// Parse walks the delay stream's flat BLIP sequence and reports each entry
// to collector via AddImage, in delay-stream order starting from index 1.
// Every entry advances the index, including ones that are unrecognized or
// malformed, so that a shape's delay-index reference (resolved against the
// Escher B-store's own 1-based array in package escher) always lands on the
// entry Publisher actually meant, not a compacted one.
func Parse(rs document.ReadSeeker, collector document.Collector) error {
	size, err := streamSize(rs)
	if err != nil {
		return fmt.Errorf("measure escher delay stream: %w", err)
	}
	c := pubfile.NewCursor(rs)
	if err := c.SeekTo(0); err != nil {
		return err
	}

	delayIndex := 0
	for {
		more, err := c.StillReading(size)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		info, err := pubfile.ParseEscherContainer(c)
		if err != nil {
			return fmt.Errorf("read blip record header at delay index %d: %w", delayIndex+1, err)
		}
		delayIndex++

		kind, ok := classifyBlip(info.Type)
		if !ok {
			pubfile.Skip("escherdelay: unknown BLIP record type %#x at delay index %d", info.Type, delayIndex)
			collector.AddImage(delayIndex, document.ImgUnknown, nil)
		} else if data, err := extractBlip(c, info, kind); err != nil {
			pubfile.Skip("escherdelay: delay index %d unreadable: %v", delayIndex, err)
			collector.AddImage(delayIndex, document.ImgUnknown, nil)
		} else {
			collector.AddImage(delayIndex, kind, data)
		}

		if err := c.SeekTo(info.End()); err != nil {
			return err
		}
	}
	return nil
}

func extractBlip(c *pubfile.Cursor, info pubfile.EscherContainerInfo, kind document.ImgKind) ([]byte, error) {
	start := info.ContentsOffset + getStartOffset(info.Type, kind, info.Instance())
	end := info.End()
	if start > end {
		return nil, fmt.Errorf("blip header (%d bytes) longer than record content (%d bytes)", start-info.ContentsOffset, end-info.ContentsOffset)
	}
	if err := c.SeekTo(start); err != nil {
		return nil, err
	}
	raw, err := c.ReadBytes(int(end - start))
	if err != nil {
		return nil, fmt.Errorf("read blip payload: %w", err)
	}

	switch kind {
	case document.ImgWMF, document.ImgEMF:
		inflated, err := inflateData(raw)
		if err != nil {
			pubfile.Default("escherdelay: %s payload did not inflate, keeping raw bytes: %v", kind, err)
			return raw, nil
		}
		return inflated, nil
	case document.ImgDIB:
		return synthesizeBMP(raw)
	default:
		return raw, nil
	}
}

func inflateData(raw []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	return io.ReadAll(r)
}

// garbageDIBThreshold is the minimum plausible size of a
// BITMAPINFOHEADER-only DIB body (0x28 header + a handful of required
// fields the original parser checks before trusting the buffer).
const garbageDIBThreshold = 0x2E + 4

// synthesizeBMP prepends a 14-byte BMP file header to a bare DIB body
// (BITMAPINFOHEADER + optional palette + pixel data), computing the
// pixel-data offset from the palette color count the DIB header carries.
func synthesizeBMP(dib []byte) ([]byte, error) {
	if len(dib) < garbageDIBThreshold {
		return nil, fmt.Errorf("garbage DIB: %d bytes, want at least %#x", len(dib), garbageDIBThreshold)
	}
	bitsPerPixel := dib[0x0E]
	numPaletteColors := binary.LittleEndian.Uint32(dib[0x20:0x24])
	if numPaletteColors == 0 && bitsPerPixel <= 8 {
		numPaletteColors = 1 << bitsPerPixel
	}
	pixelDataOffset := uint32(0x36) + 4*numPaletteColors

	header := make([]byte, 14)
	header[0], header[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(header)+len(dib)))
	binary.LittleEndian.PutUint32(header[6:10], 0)
	binary.LittleEndian.PutUint32(header[10:14], pixelDataOffset)

	out := make([]byte, 0, len(header)+len(dib))
	out = append(out, header...)
	out = append(out, dib...)
	return out, nil
}
