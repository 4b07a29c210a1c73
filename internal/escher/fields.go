package escher

import "github.com/gopub/pubdoc/internal/pubfile"

// Shape flags, per [MS-ODRAW]'s SHAPEFLAGS bit assignment.
const (
	sfGroup  uint32 = 0x0001
	sfFlipH  uint32 = 0x0040
	sfFlipV  uint32 = 0x0080
)

// MSOFILLTYPE, per [MS-ODRAW]'s published fill-type enumeration.
const (
	msofillSolid   uint32 = 0
	msofillPattern uint32 = 1
	msofillTexture uint32 = 2
	msofillPicture uint32 = 3
	msofillShade   uint32 = 4
)

// FOPT/TERTIARY_FOPT/anchor property ids. As with internal/pubfile's block
// ids, the [MS-ODRAW] property-id reference table isn't in this module's
// retrieval pack; these are internally assigned and consistent between
// encode-side test fixtures and this decoder (see DESIGN.md).
const (
	fieldAnchorLeft   uint16 = 0x0001
	fieldAnchorTop    uint16 = 0x0002
	fieldAnchorRight  uint16 = 0x0003
	fieldAnchorBottom uint16 = 0x0004
	fieldShapeID      uint16 = 0x0005

	fieldPxID              uint16 = 0x0100
	fieldLineColor         uint16 = 0x0101
	fieldLineWidth         uint16 = 0x0102
	fieldLineBoolProps     uint16 = 0x0103
	fieldFillType          uint16 = 0x0104
	fieldFillColor         uint16 = 0x0105
	fieldFillBackColor     uint16 = 0x0106
	fieldFillOpacity       uint16 = 0x0107
	fieldFillBackOpacity   uint16 = 0x0108
	fieldFillAngle         uint16 = 0x0109
	fieldFillFocus         uint16 = 0x010A
	fieldFillBoolProps     uint16 = 0x010B
	// fieldBgPxID is the fill's own delay-image reference, distinct from the
	// standalone fieldPxID a shape carries independent of its fill kind.
	fieldBgPxID            uint16 = 0x010C
	fieldRotation          uint16 = 0x010D
	fieldAdjust1           uint16 = 0x010E
	fieldAdjust2           uint16 = 0x010F
	fieldAdjust3           uint16 = 0x0110
	fieldMarginLeft        uint16 = 0x0111
	fieldMarginTop         uint16 = 0x0112
	fieldMarginRight       uint16 = 0x0113
	fieldMarginBottom      uint16 = 0x0114
	fieldTertiaryLineFlags uint16 = 0x0115

	fieldLineTopColor    uint16 = 0x0116
	fieldLineTopWidth    uint16 = 0x0117
	fieldLineRightColor  uint16 = 0x0118
	fieldLineRightWidth  uint16 = 0x0119
	fieldLineBottomColor uint16 = 0x011A
	fieldLineBottomWidth uint16 = 0x011B
	fieldLineLeftColor   uint16 = 0x011C
	fieldLineLeftWidth   uint16 = 0x011D
)

// Bits packed into fieldLineBoolProps.
const (
	bitPrimaryUseLine uint32 = 0x08
)

// Bits packed into fieldTertiaryLineFlags. Border position hinges on a
// (value, override-present) bit pair for both the "use left inset pen" and
// "left inset pen" booleans, matching the FOPT boolean-property convention.
const (
	bitTertiaryUseLine   uint32 = 0x01
	bitUseLeftInsetPen   uint32 = 0x02
	bitUseLeftInsetPenOK uint32 = 0x04
	bitLeftInsetPen      uint32 = 0x08
	bitLeftInsetPenOK    uint32 = 0x10
)

// defaultLineWidth is the EMU line width ([MS-ODRAW]'s LINEWIDTH default)
// used whenever a line is present but carries no explicit width.
const defaultLineWidth uint32 = 9525

// defaultMargin is the EMU text-inset margin used for any shape margin
// field left unset.
const defaultMargin uint32 = 91440

var anchorFieldIDs = map[pubfile.EscherRecordType]bool{
	pubfile.EscherClientAnchor: true,
	pubfile.EscherChildAnchor:  true,
}
