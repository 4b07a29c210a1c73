package escher

import "github.com/gopub/pubdoc/internal/document"

// buildFill turns a FOPT/TERTIARY_FOPT property map into a document.Fill and
// the FIELDID_FIELD_STYLE_BOOL_PROPS derived "only paint this fill when it's
// the page background" flag, following the fill-kind decision table: SOLID
// only fires when a fill color is present and skipIfNotBg is false (else no
// fill), SHADE becomes a gradient with a fillFocus-driven stop list,
// TEXTURE/PICTURE resolve fieldBgPxID (the fill's own delay-image reference,
// distinct from a shape's standalone fieldPxID) into an image fill (textures
// set IsTexture), and PATTERN resolves fieldBgPxID into a pattern fill
// carrying the resolved delay index alongside white/0x08000000 fg/bg color
// defaults. ok is false when the property table carries no fill type at
// all, an unrecognized one, a SOLID fill with no color or a suppressed
// background, or a TEXTURE/PICTURE/PATTERN fill whose delay index is
// absent.
func buildFill(values map[uint16]uint32, bstoreDelay []int) (fill document.Fill, skipIfNotBg bool, ok bool) {
	fillType, present := values[fieldFillType]
	if !present {
		return document.Fill{}, false, false
	}

	fillColor := colorFromIndex(values[fieldFillColor])
	backColor := colorFromIndex(values[fieldFillBackColor])
	opacity := opacityFromRaw(values[fieldFillOpacity])
	backOpacity := opacityFromRaw(values[fieldFillBackOpacity])
	skipIfNotBg = values[fieldFillBoolProps]&0xF0 == 0

	switch fillType {
	case msofillSolid:
		if _, hasColor := values[fieldFillColor]; !hasColor || skipIfNotBg {
			return document.Fill{}, false, false
		}
		fill = document.Fill{Kind: document.FillSolid, SolidColor: fillColor, SolidOpacity: opacity}

	case msofillShade:
		angle := gradientAngle(values[fieldFillAngle])
		focus := int16(values[fieldFillFocus])
		fill = document.Fill{
			Kind:          document.FillGradient,
			GradientAngle: angle,
			GradientStops: gradientStops(focus, fillColor, opacity, backColor, backOpacity),
		}

	case msofillTexture, msofillPicture:
		delayIdx := resolvePxID(values[fieldBgPxID], bstoreDelay)
		if delayIdx <= 0 {
			return document.Fill{}, false, false
		}
		fill = document.Fill{Kind: document.FillImage, DelayIndex: delayIdx, IsTexture: fillType == msofillTexture}

	case msofillPattern:
		delayIdx := resolvePxID(values[fieldBgPxID], bstoreDelay)
		if delayIdx <= 0 {
			return document.Fill{}, false, false
		}
		fg := colorOrDefault(values, fieldFillColor, 0x00FFFFFF)
		bg := colorOrDefault(values, fieldFillBackColor, 0x08000000)
		fill = document.Fill{Kind: document.FillPattern, PatternFg: fg, PatternBg: bg, DelayIndex: delayIdx}

	default:
		return document.Fill{}, false, false
	}
	return fill, skipIfNotBg, true
}

// colorOrDefault reads field from values if present, else falls back to def
// -- used where an absent color field has a specific documented default
// rather than the general "absent means black" reading colorFromIndex(0)
// would give.
func colorOrDefault(values map[uint16]uint32, field uint16, def uint32) document.ColorRef {
	if raw, ok := values[field]; ok {
		return colorFromIndex(raw)
	}
	return colorFromIndex(def)
}

func colorFromIndex(raw uint32) document.ColorRef {
	// High bit marks an indexed reference into the Quill/palette color
	// table; otherwise the low 24 bits are a direct RGB value.
	if raw&0x80000000 != 0 {
		return document.ColorRef{Indexed: true, Index: raw &^ 0x80000000}
	}
	return document.ColorRef{RGB: raw & 0x00FFFFFF}
}

func opacityFromRaw(raw uint32) float64 {
	if raw == 0 {
		return 1.0
	}
	// Fixed-point fraction of full opacity, out of 0xFFFF.
	return float64(raw) / 65535.0
}

// gradientAngle applies an empirical remap: two specific angles observed in
// real documents are corrected before use.
func gradientAngle(raw uint32) int {
	deg := int(int32(raw) >> 16)
	switch deg {
	case -135:
		return -45
	case -45:
		return 225
	default:
		return deg
	}
}

func resolvePxID(raw uint32, bstoreDelay []int) int {
	if raw == 0 || int(raw) > len(bstoreDelay) {
		return 0
	}
	return bstoreDelay[raw-1]
}

// gradientStops places two or three color stops depending on where the
// fill focus sits: centered (0), reversed (100), or offset toward one end
// (any other value), per the four-case fillFocus decision table.
func gradientStops(focus int16, fg document.ColorRef, fgOpacity float64, bg document.ColorRef, bgOpacity float64) []document.GradientStop {
	switch {
	case focus == 0:
		return []document.GradientStop{
			{Color: fg, Position: 0, Opacity: fgOpacity},
			{Color: bg, Position: 100, Opacity: bgOpacity},
		}
	case focus == 100:
		return []document.GradientStop{
			{Color: bg, Position: 0, Opacity: bgOpacity},
			{Color: fg, Position: 100, Opacity: fgOpacity},
		}
	case focus > 0:
		return []document.GradientStop{
			{Color: fg, Position: 0, Opacity: fgOpacity},
			{Color: bg, Position: int(focus), Opacity: bgOpacity},
			{Color: fg, Position: 100, Opacity: fgOpacity},
		}
	default: // focus < 0
		return []document.GradientStop{
			{Color: bg, Position: 0, Opacity: bgOpacity},
			{Color: fg, Position: 100 + int(focus), Opacity: fgOpacity},
			{Color: bg, Position: 100, Opacity: bgOpacity},
		}
	}
}
