// Package pubfile implements the low-level byte-cursor and block grammar
// shared by every PUB sub-stream parser: a self-describing (id, type,
// length, data) record shape that the Contents, Quill and Escher parsers
// all read blocks or containers out of.
package pubfile

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Cursor is a random-access byte reader over one compound-file sub-stream.
// It asks the underlying io.Seeker for the current position and decodes
// directly off a plain io.Reader/io.Seeker pair without a buffering layer in
// between.
type Cursor struct {
	rs io.ReadSeeker
}

// NewCursor wraps a random-access stream for block-grammar decoding.
func NewCursor(rs io.ReadSeeker) *Cursor {
	return &Cursor{rs: rs}
}

// Pos reports the current stream offset.
func (c *Cursor) Pos() (int64, error) {
	return c.rs.Seek(0, io.SeekCurrent)
}

// SeekTo moves the cursor to an absolute offset.
func (c *Cursor) SeekTo(pos int64) error {
	_, err := c.rs.Seek(pos, io.SeekStart)
	return err
}

// StillReading reports whether pos is still short of end -- the loop guard
// every container walk in this package uses.
func (c *Cursor) StillReading(end int64) (bool, error) {
	pos, err := c.Pos()
	if err != nil {
		return false, err
	}
	return pos < end, nil
}

func (c *Cursor) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.rs, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadU8 reads one byte.
func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a little-endian 16-bit word.
func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian 32-bit word.
func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadI32 reads a little-endian signed 32-bit word.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

// Skip advances the cursor by n bytes without reading them.
func (c *Cursor) Skip(n int64) error {
	_, err := c.rs.Seek(n, io.SeekCurrent)
	return err
}

// ReadBytes reads n raw bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	return c.readN(n)
}

// BlockInfo is one decoded (id, type, length, data) record.
type BlockInfo struct {
	// StartPosition is the offset of the id byte, before the header.
	StartPosition int64
	ID            BlockID
	Type          BlockType
	// DataOffset is the offset of the first data byte (after id/type, and
	// after the leading u32 length for variable-length types).
	DataOffset int64
	DataLength uint32
	// Data holds the decoded integer value for 2/4-byte fixed types. It is
	// left zero for the 8/16/24-byte fixed types, whose payload this parser
	// does not need to interpret.
	Data uint32
	// StringData holds the raw body for TypeStringContainer blocks only.
	StringData []byte
}

// End returns the offset one past this block's data. For variable-length
// types DataLength is the raw length field, which counts its own 4 bytes
// even though DataOffset already lies past them.
func (b BlockInfo) End() int64 {
	if blockDataLength(b.Type) < 0 {
		return b.DataOffset + int64(b.DataLength) - 4
	}
	return b.DataOffset + int64(b.DataLength)
}

// ParseBlock reads one block header at the cursor's current position.
//
// When skipHierarchical is true, variable-length non-string blocks are
// immediately skipped past their body (the caller only wanted id/type/
// length); when false, the cursor is left positioned at DataOffset so the
// caller can descend into the block's own children.
func ParseBlock(c *Cursor, skipHierarchical bool) (BlockInfo, error) {
	start, err := c.Pos()
	if err != nil {
		return BlockInfo{}, err
	}

	idByte, err := c.ReadU8()
	if err != nil {
		return BlockInfo{}, fmt.Errorf("read block id: %w", err)
	}
	typeByte, err := c.ReadU8()
	if err != nil {
		return BlockInfo{}, fmt.Errorf("read block type: %w", err)
	}

	info := BlockInfo{StartPosition: start, ID: BlockID(idByte), Type: BlockType(typeByte)}

	width := blockDataLength(info.Type)
	if width < 0 {
		length, err := c.ReadU32()
		if err != nil {
			return BlockInfo{}, fmt.Errorf("read variable block length: %w", err)
		}
		info.DataOffset, err = c.Pos()
		if err != nil {
			return BlockInfo{}, err
		}
		info.DataLength = length

		if info.Type == TypeStringContainer {
			if length < 4 {
				return BlockInfo{}, fmt.Errorf("string container shorter than its own length field")
			}
			body, err := c.ReadBytes(int(length - 4))
			if err != nil {
				return BlockInfo{}, fmt.Errorf("read string container body: %w", err)
			}
			info.StringData = body
			return info, nil
		}
		if skipHierarchical {
			if err := SkipBlock(c, info); err != nil {
				return BlockInfo{}, err
			}
		}
		return info, nil
	}

	info.DataOffset, err = c.Pos()
	if err != nil {
		return BlockInfo{}, err
	}
	info.DataLength = uint32(width)

	switch width {
	case 0:
		// no payload
	case 2:
		v, err := c.ReadU16()
		if err != nil {
			return BlockInfo{}, fmt.Errorf("read fixed-2 block data: %w", err)
		}
		info.Data = uint32(v)
	case 4:
		v, err := c.ReadU32()
		if err != nil {
			return BlockInfo{}, fmt.Errorf("read fixed-4 block data: %w", err)
		}
		info.Data = v
	default:
		// 8/16/24-byte fixed types: skip past, contents unused by this parser.
		if err := c.Skip(int64(width)); err != nil {
			return BlockInfo{}, fmt.Errorf("skip fixed-%d block data: %w", width, err)
		}
	}
	return info, nil
}

// SkipBlock seeks the cursor past a variable-length block's body. Callers
// that already have DataOffset/DataLength (from a non-skipping ParseBlock)
// use this to resume the parent walk without decoding the child.
func SkipBlock(c *Cursor, info BlockInfo) error {
	return c.SeekTo(info.End())
}
