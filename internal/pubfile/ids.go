package pubfile

// BlockType is the "type" byte of a block header. It selects how the
// block's data is shaped: a handful of fixed widths, or variable-length
// with the length read from the body's first 32-bit word.
type BlockType uint8

// BlockID is the "id" byte of a block header: a semantic tag whose meaning
// depends on which container the block lives in.
type BlockID uint8

// Fixed-width block types: literal entries in the type-to-length table.
const (
	TypeZero0 BlockType = 0x00
	TypeZero5 BlockType = 0x05
	TypeZero8 BlockType = 0x08
	TypeZeroA BlockType = 0x0A

	TypeTwo07 BlockType = 0x07
	TypeTwo10 BlockType = 0x10
	TypeTwo12 BlockType = 0x12
	TypeTwo18 BlockType = 0x18
	TypeTwo1A BlockType = 0x1A

	TypeFour20 BlockType = 0x20
	TypeFour22 BlockType = 0x22
	TypeFour58 BlockType = 0x58
	TypeFour68 BlockType = 0x68
	TypeFour70 BlockType = 0x70
	TypeFourB8 BlockType = 0xB8

	TypeEight28 BlockType = 0x28
	TypeSixteen38 BlockType = 0x38
	TypeTwentyFour48 BlockType = 0x48

	// Variable-length container types. All eight share the "read a leading
	// u32 length" encoding.
	TypeStringContainer  BlockType = 0xC0
	TypeGeneralContainer BlockType = 0xC8
	TypeVar80            BlockType = 0x80
	TypeVar82            BlockType = 0x82
	TypeVar8A            BlockType = 0x8A
	TypeVar90            BlockType = 0x90
	TypeVar98            BlockType = 0x98
	TypeVarA0            BlockType = 0xA0

	// TypeTrailerDirectory is the trailer sub-block whose body holds the
	// content-chunk directory. It is variable-length like the
	// general/string containers.
	TypeTrailerDirectory BlockType = 0xD0

	// TypeShapeSeqnum is the type of each sub-block inside a PAGE_SHAPES
	// block; it carries a plain 32-bit shape seqnum, so it reuses the
	// 4-byte fixed-width shape (same width as TypeFour20).
	TypeShapeSeqnum BlockType = TypeFour20
)

// blockDataLength implements the type-to-length table. A negative return
// means "variable-length; read a leading u32".
func blockDataLength(t BlockType) int {
	switch t {
	case TypeZero0, TypeZero5, TypeZero8, TypeZeroA:
		return 0
	case TypeTwo07, TypeTwo10, TypeTwo12, TypeTwo18, TypeTwo1A:
		return 2
	case TypeFour20, TypeFour22, TypeFour58, TypeFour68, TypeFour70, TypeFourB8:
		return 4
	case TypeEight28:
		return 8
	case TypeSixteen38:
		return 16
	case TypeTwentyFour48:
		return 24
	case TypeStringContainer, TypeGeneralContainer, TypeTrailerDirectory,
		TypeVar80, TypeVar82, TypeVar8A, TypeVar90, TypeVar98, TypeVarA0:
		return -1
	default:
		return 0
	}
}

// Block IDs used by the contents parser and Quill style decoder. These
// numeric assignments are internally consistent -- every test that
// exercises them encodes with the same constants it decodes with -- but
// are not checked against an external authoritative id table, since none
// was available; they are grounded only in which id carries which
// semantic role (see DESIGN.md).
const (
	// Palette / Quill color-table entries: both parseColors (PL chunk) and
	// the Contents-stream palette entry decoder read the RGB value from
	// id 0x01.
	IDColorEntry BlockID = 0x01

	IDDocumentSize   BlockID = 0x02
	IDDocumentWidth  BlockID = 0x03
	IDDocumentHeight BlockID = 0x04

	IDPageBgShape BlockID = 0x05
	IDPageShapes  BlockID = 0x06

	IDShapeWidth  BlockID = 0x07
	IDShapeHeight BlockID = 0x08
	IDShapeTextID BlockID = 0x09

	IDChunkType         BlockID = 0x0A
	IDChunkOffset       BlockID = 0x0B
	IDChunkParentSeqnum BlockID = 0x0C

	IDParagraphAlignment        BlockID = 0x0D
	IDParagraphDefaultCharStyle BlockID = 0x0E
	IDParagraphLineSpacing      BlockID = 0x0F
	IDParagraphSpaceBefore      BlockID = 0x10
	IDParagraphSpaceAfter       BlockID = 0x11
	IDParagraphFirstLineIndent  BlockID = 0x12
	IDParagraphLeftIndent       BlockID = 0x13
	IDParagraphRightIndent      BlockID = 0x14

	IDBold1               BlockID = 0x15
	IDBold2               BlockID = 0x16
	IDItalic1             BlockID = 0x17
	IDItalic2             BlockID = 0x18
	IDUnderline           BlockID = 0x19
	IDTextSize1           BlockID = 0x1A
	IDTextSize2           BlockID = 0x1B
	IDBareColorIndex      BlockID = 0x1C
	IDColorIndexContainer BlockID = 0x1D
	IDFontIndexContainer  BlockID = 0x1E
	// IDColorIndex is nested one level inside IDColorIndexContainer's body.
	IDColorIndex BlockID = 0x1F
)
