package pubfile

import "fmt"

// EscherRecordType is the recType field of an OfficeArt (Escher) record
// header, per [MS-ODRAW]. Values below are the published constants, not
// internally-assigned placeholders like most BlockID constants in ids.go.
type EscherRecordType uint16

const (
	EscherDggContainer     EscherRecordType = 0xF000
	EscherBStoreContainer  EscherRecordType = 0xF001
	EscherDgContainer      EscherRecordType = 0xF002
	EscherSpgrContainer    EscherRecordType = 0xF003
	EscherSpContainer      EscherRecordType = 0xF004
	EscherDgg              EscherRecordType = 0xF006
	EscherBSE              EscherRecordType = 0xF007
	EscherDg               EscherRecordType = 0xF008
	EscherSpgr             EscherRecordType = 0xF009
	EscherSp               EscherRecordType = 0xF00A
	EscherOPT              EscherRecordType = 0xF00B
	EscherClientTextbox    EscherRecordType = 0xF00D
	EscherChildAnchor      EscherRecordType = 0xF00F
	EscherClientAnchor     EscherRecordType = 0xF010
	EscherClientData       EscherRecordType = 0xF011
	EscherTertiaryFOPT     EscherRecordType = 0xF122
)

// EscherContainerInfo is one decoded OfficeArt record header: a 2-byte
// packed (version, instance) word, a 2-byte record type, and a 4-byte
// content length, per [MS-ODRAW]'s standard header layout.
type EscherContainerInfo struct {
	Initial        uint16
	Type           EscherRecordType
	ContentsLength uint32
	// ContentsOffset is the offset of the first content byte, right after
	// the 8-byte header.
	ContentsOffset int64
}

// Version reports the low 4 bits of Initial. Containers always read 0xF;
// atomic records carry a real version nibble.
func (i EscherContainerInfo) Version() uint16 { return i.Initial & 0x000F }

// Instance reports the high 12 bits of Initial -- for shape records this is
// the MSOSPT shape-type code that document.Shape.Type mirrors.
func (i EscherContainerInfo) Instance() uint16 { return i.Initial >> 4 }

// End returns the offset one past this record's content.
func (i EscherContainerInfo) End() int64 {
	return i.ContentsOffset + int64(i.ContentsLength)
}

// ParseEscherContainer reads one OfficeArt record header at the cursor's
// current position, leaving the cursor at ContentsOffset.
func ParseEscherContainer(c *Cursor) (EscherContainerInfo, error) {
	initial, err := c.ReadU16()
	if err != nil {
		return EscherContainerInfo{}, fmt.Errorf("read escher initial word: %w", err)
	}
	recType, err := c.ReadU16()
	if err != nil {
		return EscherContainerInfo{}, fmt.Errorf("read escher record type: %w", err)
	}
	length, err := c.ReadU32()
	if err != nil {
		return EscherContainerInfo{}, fmt.Errorf("read escher record length: %w", err)
	}
	offset, err := c.Pos()
	if err != nil {
		return EscherContainerInfo{}, err
	}
	return EscherContainerInfo{
		Initial:        initial,
		Type:           EscherRecordType(recType),
		ContentsLength: length,
		ContentsOffset: offset,
	}, nil
}

// EscherElementTailLength returns the padding after a record's content that
// getEscherElementTailLength adds for the two group-level containers: the
// DGG and DG containers each carry 4 trailing bytes beyond their declared
// content length before the next sibling begins.
func EscherElementTailLength(t EscherRecordType) int64 {
	switch t {
	case EscherDggContainer, EscherDgContainer:
		return 4
	default:
		return 0
	}
}

// EscherElementAdditionalHeaderLength returns the number of bytes
// ExtractEscherValues should skip past ContentsOffset before it starts
// reading (id, value) pairs. CLIENT_ANCHOR and CLIENT_DATA each carry a
// second, redundant length word immediately after the standard header.
func EscherElementAdditionalHeaderLength(t EscherRecordType) int64 {
	switch t {
	case EscherClientAnchor, EscherClientData:
		return 4
	default:
		return 0
	}
}

// FindEscherContainer scans the direct children of parent, starting at the
// cursor's current position, for the first child whose record type is want.
// On success the cursor is left at the match's ContentsOffset. On failure
// the cursor position is unspecified; callers should reseek before reuse.
func FindEscherContainer(c *Cursor, parent EscherContainerInfo, want EscherRecordType) (EscherContainerInfo, bool, error) {
	return FindEscherContainerWithTypeInSet(c, parent, map[EscherRecordType]bool{want: true})
}

// FindEscherContainerWithTypeInSet is FindEscherContainer generalized to a
// set of acceptable record types, used where a caller accepts either of two
// sibling kinds (e.g. CLIENT_ANCHOR or CHILD_ANCHOR).
func FindEscherContainerWithTypeInSet(c *Cursor, parent EscherContainerInfo, want map[EscherRecordType]bool) (EscherContainerInfo, bool, error) {
	end := parent.End()
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return EscherContainerInfo{}, false, err
		}
		if !more {
			return EscherContainerInfo{}, false, nil
		}
		child, err := ParseEscherContainer(c)
		if err != nil {
			return EscherContainerInfo{}, false, err
		}
		if want[child.Type] {
			if err := c.SeekTo(child.ContentsOffset); err != nil {
				return EscherContainerInfo{}, false, err
			}
			return child, true, nil
		}
		next := child.ContentsOffset + int64(child.ContentsLength) + EscherElementTailLength(child.Type)
		if err := c.SeekTo(next); err != nil {
			return EscherContainerInfo{}, false, err
		}
	}
}

// ExtractEscherValues decodes an atomic record's body as a run of
// alternating (u16 id, u32 value) pairs -- the FOPT/TERTIARY_FOPT property
// table shape. A later pair for the same id overwrites an earlier one.
func ExtractEscherValues(c *Cursor, info EscherContainerInfo) (map[uint16]uint32, error) {
	start := info.ContentsOffset + EscherElementAdditionalHeaderLength(info.Type)
	if err := c.SeekTo(start); err != nil {
		return nil, err
	}
	end := info.End()

	values := make(map[uint16]uint32)
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		id, err := c.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("read escher property id: %w", err)
		}
		val, err := c.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("read escher property value: %w", err)
		}
		values[id] = val
	}
	return values, nil
}
