// Package escher decodes the Escher OfficeArt stream: the DGG/DG/SPGR/SP
// container hierarchy that carries every shape's geometry, fill, line and
// text-box wiring.
package escher

import (
	"fmt"
	"io"

	"github.com/gopub/pubdoc/internal/document"
	"github.com/gopub/pubdoc/internal/pubfile"
)

// Coordinate is an axis-aligned rectangle in EMUs (or, for a group's Logical
// field, in that group's own FSPGR coordinate space).
type Coordinate struct {
	Left, Top, Right, Bottom int32
}

func (c Coordinate) width() int32  { return c.Right - c.Left }
func (c Coordinate) height() int32 { return c.Bottom - c.Top }

// GroupContext carries the coordinate system a CHILD_ANCHOR is resolved
// against: Logical is the enclosing group's own FSPGR rectangle, Absolute is
// that same group's resolved on-page rectangle. Threaded by value through
// parseShapeGroup/parseEscherShape rather than mutated by reference, so a
// group's coordinate system is always an explicit function argument.
type GroupContext struct {
	Logical  Coordinate
	Absolute Coordinate
}

// Parse walks the Escher OfficeArt stream: a required DGG container followed
// by one or more DG (drawing) containers, each holding the SPGR/SP hierarchy
// for one page's shapes.
func Parse(rs document.ReadSeeker, collector document.Collector) error {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	c := pubfile.NewCursor(rs)
	if err := c.SeekTo(0); err != nil {
		return err
	}

	root := pubfile.EscherContainerInfo{ContentsOffset: 0, ContentsLength: uint32(size)}

	dgg, found, err := pubfile.FindEscherContainer(c, root, pubfile.EscherDggContainer)
	if err != nil {
		return fmt.Errorf("scan for DGG container: %w", err)
	}
	if !found {
		return fmt.Errorf("escher stream has no DGG container")
	}

	var bstoreDelay []int
	if err := c.SeekTo(dgg.ContentsOffset); err != nil {
		return err
	}
	bstore, found, err := pubfile.FindEscherContainer(c, dgg, pubfile.EscherBStoreContainer)
	if err != nil {
		return fmt.Errorf("scan for B-store container: %w", err)
	}
	if found {
		bstoreDelay, err = parseBStoreDelayIndices(c, bstore)
		if err != nil {
			return fmt.Errorf("parse B-store delay indices: %w", err)
		}
	}

	next := dgg.ContentsOffset + int64(dgg.ContentsLength) + pubfile.EscherElementTailLength(pubfile.EscherDggContainer)
	for {
		if err := c.SeekTo(next); err != nil {
			return err
		}
		more, err := c.StillReading(size)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		dg, err := pubfile.ParseEscherContainer(c)
		if err != nil {
			return fmt.Errorf("read top-level escher record: %w", err)
		}
		next = dg.ContentsOffset + int64(dg.ContentsLength) + pubfile.EscherElementTailLength(dg.Type)
		if dg.Type != pubfile.EscherDgContainer {
			continue
		}
		if err := parseDrawingGroups(c, dg, bstoreDelay, collector); err != nil {
			return fmt.Errorf("parse DG container: %w", err)
		}
	}
	return nil
}

// parseDrawingGroups walks one DG container's direct children looking for
// its top-level SPGR containers -- the drawing's root shape groups, which
// have no enclosing parent group.
func parseDrawingGroups(c *pubfile.Cursor, dg pubfile.EscherContainerInfo, bstoreDelay []int, collector document.Collector) error {
	if err := c.SeekTo(dg.ContentsOffset); err != nil {
		return err
	}
	end := dg.End()
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		child, err := pubfile.ParseEscherContainer(c)
		if err != nil {
			return err
		}
		next := child.ContentsOffset + int64(child.ContentsLength) + pubfile.EscherElementTailLength(child.Type)
		if child.Type == pubfile.EscherSpgrContainer {
			if err := parseShapeGroup(c, child, GroupContext{}, true, bstoreDelay, collector); err != nil {
				return err
			}
		}
		if err := c.SeekTo(next); err != nil {
			return err
		}
	}
}

// parseShapeGroup walks one SPGR container's direct children: nested SPGR
// containers recurse with the group's own children bracketed by
// BeginGroup/EndGroup, and SP containers decode a single shape and feed the
// coordinate system it may establish forward to later sibling shapes.
func parseShapeGroup(c *pubfile.Cursor, container pubfile.EscherContainerInfo, ctx GroupContext, topLevel bool, bstoreDelay []int, collector document.Collector) error {
	if err := c.SeekTo(container.ContentsOffset); err != nil {
		return err
	}
	end := container.End()
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		child, err := pubfile.ParseEscherContainer(c)
		if err != nil {
			return err
		}
		next := child.ContentsOffset + int64(child.ContentsLength) + pubfile.EscherElementTailLength(child.Type)

		switch child.Type {
		case pubfile.EscherSpgrContainer:
			// A nested SPGR inherits the CURRENT context: its own
			// group-leader shape resolves its CHILD_ANCHOR against the
			// coordinate system this loop is already in, not a fresh one.
			collector.BeginGroup()
			if err := parseShapeGroup(c, child, ctx, false, bstoreDelay, collector); err != nil {
				return err
			}
			collector.EndGroup()

		case pubfile.EscherSpContainer:
			updated, err := parseEscherShape(c, child, ctx, topLevel, bstoreDelay, collector)
			if err != nil {
				return err
			}
			ctx = updated
		}

		if err := c.SeekTo(next); err != nil {
			return err
		}
	}
}

// parseEscherShape decodes one SP container: its FSPGR (if it is itself a
// group leader), FSP shape header, CLIENT_DATA cross-reference, anchor, and
// FOPT/TERTIARY_FOPT properties, emitting every fact to collector. It
// returns the coordinate context this shape establishes for later siblings
// (unchanged from ctx if this shape has no FSPGR of its own).
func parseEscherShape(c *pubfile.Cursor, spContainer pubfile.EscherContainerInfo, ctx GroupContext, topLevel bool, bstoreDelay []int, collector document.Collector) (GroupContext, error) {
	fspgrRect, hasFspgr, err := findFspgrRect(c, spContainer)
	if err != nil {
		return ctx, err
	}

	if err := c.SeekTo(spContainer.ContentsOffset); err != nil {
		return ctx, err
	}
	fsp, found, err := pubfile.FindEscherContainer(c, spContainer, pubfile.EscherSp)
	if err != nil {
		return ctx, err
	}
	if !found {
		return ctx, fmt.Errorf("SP container missing FSP record")
	}
	shapeType := document.ShapeType(fsp.Instance())
	if err := c.SeekTo(fsp.ContentsOffset); err != nil {
		return ctx, err
	}
	// The FSP shape id field duplicates the CLIENT_DATA cross-reference this
	// function reads below, so it's skipped rather than decoded here.
	if err := c.Skip(4); err != nil {
		return ctx, fmt.Errorf("skip FSP shape id: %w", err)
	}
	flags, err := c.ReadU32()
	if err != nil {
		return ctx, fmt.Errorf("read FSP flags: %w", err)
	}
	isGroupLeader := flags&sfGroup != 0
	flipH := flags&sfFlipH != 0
	flipV := flags&sfFlipV != 0

	if err := c.SeekTo(spContainer.ContentsOffset); err != nil {
		return ctx, err
	}
	clientData, found, err := pubfile.FindEscherContainer(c, spContainer, pubfile.EscherClientData)
	if err != nil {
		return ctx, err
	}
	if !found {
		// Not cross-referenced from the Contents stream: nothing more to do.
		return ctx, nil
	}
	clientValues, err := pubfile.ExtractEscherValues(c, clientData)
	if err != nil {
		return ctx, fmt.Errorf("read CLIENT_DATA properties: %w", err)
	}
	rawSeqNum, found := clientValues[fieldShapeID]
	if !found {
		return ctx, nil
	}
	seqNum := rawSeqNum

	collector.SetShapeType(seqNum, shapeType)
	collector.SetShapeFlip(seqNum, flipV, flipH)
	if isGroupLeader {
		collector.SetCurrentGroupSeqNum(seqNum)
	} else {
		collector.SetShapeOrder(seqNum)
	}

	if err := c.SeekTo(spContainer.ContentsOffset); err != nil {
		return ctx, err
	}
	anchor, foundAnchor, err := pubfile.FindEscherContainerWithTypeInSet(c, spContainer, anchorFieldIDs)
	if err != nil {
		return ctx, err
	}

	var props map[uint16]uint32
	if foundAnchor || isGroupLeader {
		props, err = collectShapeProperties(c, spContainer)
		if err != nil {
			return ctx, err
		}
		applyShapeProperties(seqNum, props, bstoreDelay, collector)
	}

	var degrees int32
	var hasRotation bool
	if props != nil {
		if raw, ok := props[fieldRotation]; ok {
			degrees = rotationDegrees(raw)
			hasRotation = true
		}
	}

	newCtx := ctx
	if foundAnchor {
		anchorValues, err := pubfile.ExtractEscherValues(c, anchor)
		if err != nil {
			return ctx, fmt.Errorf("read anchor properties: %w", err)
		}
		raw := Coordinate{
			Left:   int32(anchorValues[fieldAnchorLeft]),
			Top:    int32(anchorValues[fieldAnchorTop]),
			Right:  int32(anchorValues[fieldAnchorRight]),
			Bottom: int32(anchorValues[fieldAnchorBottom]),
		}

		var absolute Coordinate
		if anchor.Type == pubfile.EscherClientAnchor {
			absolute = raw
		} else {
			absolute = scaleChildAnchor(raw, ctx.Logical, ctx.Absolute)
		}
		if rotated90(degrees) {
			absolute = swapBBox(absolute)
		}

		collector.SetShapeCoordinatesInEmu(seqNum, int(absolute.Left), int(absolute.Top), int(absolute.Right), int(absolute.Bottom))
		if hasRotation {
			collector.SetShapeRotation(seqNum, int(degrees))
		}

		if hasFspgr {
			newCtx.Logical = fspgrRect
			newCtx.Absolute = absolute
		}
	}

	if !topLevel {
		collector.AddShape(seqNum)
	}
	return newCtx, nil
}

func findFspgrRect(c *pubfile.Cursor, spContainer pubfile.EscherContainerInfo) (Coordinate, bool, error) {
	if err := c.SeekTo(spContainer.ContentsOffset); err != nil {
		return Coordinate{}, false, err
	}
	_, found, err := pubfile.FindEscherContainer(c, spContainer, pubfile.EscherSpgr)
	if err != nil {
		return Coordinate{}, false, err
	}
	if !found {
		return Coordinate{}, false, nil
	}
	left, err := c.ReadI32()
	if err != nil {
		return Coordinate{}, false, err
	}
	top, err := c.ReadI32()
	if err != nil {
		return Coordinate{}, false, err
	}
	right, err := c.ReadI32()
	if err != nil {
		return Coordinate{}, false, err
	}
	bottom, err := c.ReadI32()
	if err != nil {
		return Coordinate{}, false, err
	}
	return Coordinate{Left: left, Top: top, Right: right, Bottom: bottom}, true, nil
}

// collectShapeProperties merges FOPT and, if present, TERTIARY_FOPT
// property tables: TERTIARY_FOPT values extend or override FOPT's.
func collectShapeProperties(c *pubfile.Cursor, spContainer pubfile.EscherContainerInfo) (map[uint16]uint32, error) {
	if err := c.SeekTo(spContainer.ContentsOffset); err != nil {
		return nil, err
	}
	fopt, found, err := pubfile.FindEscherContainer(c, spContainer, pubfile.EscherOPT)
	if err != nil {
		return nil, err
	}
	values := make(map[uint16]uint32)
	if found {
		values, err = pubfile.ExtractEscherValues(c, fopt)
		if err != nil {
			return nil, fmt.Errorf("read FOPT properties: %w", err)
		}
	}

	if err := c.SeekTo(spContainer.ContentsOffset); err != nil {
		return nil, err
	}
	tertiary, found, err := pubfile.FindEscherContainer(c, spContainer, pubfile.EscherTertiaryFOPT)
	if err != nil {
		return nil, err
	}
	if found {
		tvalues, err := pubfile.ExtractEscherValues(c, tertiary)
		if err != nil {
			return nil, fmt.Errorf("read TERTIARY_FOPT properties: %w", err)
		}
		for k, v := range tvalues {
			values[k] = v
		}
	}
	return values, nil
}

// applyShapeProperties emits every non-geometric fact a shape's merged FOPT
// property table carries: fill, line, border position, adjust values and
// margins. Coordinate/rotation resolution happens separately in the caller,
// since it also needs the anchor record.
func applyShapeProperties(seqNum uint32, props map[uint16]uint32, bstoreDelay []int, collector document.Collector) {
	if fill, skipIfNotBg, ok := buildFill(props, bstoreDelay); ok {
		collector.SetShapeFill(seqNum, fill, skipIfNotBg)
	}

	// The standalone image reference is independent of the fill: a shape can
	// carry a pxId (and hence an image index) regardless of its fill kind.
	if raw, ok := props[fieldPxID]; ok {
		if idx := resolvePxID(raw, bstoreDelay); idx > 0 {
			collector.SetShapeImgIndex(seqNum, idx)
		}
	}

	lineColorRaw, hasLineColor := props[fieldLineColor]
	useLine := props[fieldLineBoolProps]&bitPrimaryUseLine != 0
	if hasLineColor && useLine {
		width := props[fieldLineWidth]
		if width == 0 {
			width = defaultLineWidth
		}
		collector.AddShapeLine(seqNum, document.Line{
			Color:  colorFromIndex(lineColorRaw),
			Width:  width,
			Exists: true,
		})
	} else if tertiaryFlags := props[fieldTertiaryLineFlags]; tertiaryFlags&bitTertiaryUseLine != 0 {
		useLeftInsetPen := tertiaryFlags&bitUseLeftInsetPen != 0
		useLeftInsetPenOK := tertiaryFlags&bitUseLeftInsetPenOK != 0
		leftInsetPen := tertiaryFlags&bitLeftInsetPen != 0
		leftInsetPenOK := tertiaryFlags&bitLeftInsetPenOK != 0
		if useLeftInsetPen && (!useLeftInsetPenOK || leftInsetPenOK) && leftInsetPen {
			collector.SetShapeBorderPosition(seqNum, document.InsideShape)
		} else {
			collector.SetShapeBorderPosition(seqNum, document.HalfInsideShape)
		}

		collector.AddShapeLine(seqNum, tertiarySideLine(props, fieldLineTopColor, fieldLineTopWidth))
		collector.AddShapeLine(seqNum, tertiarySideLine(props, fieldLineRightColor, fieldLineRightWidth))
		collector.AddShapeLine(seqNum, tertiarySideLine(props, fieldLineBottomColor, fieldLineBottomWidth))
		collector.AddShapeLine(seqNum, tertiarySideLine(props, fieldLineLeftColor, fieldLineLeftWidth))
	}

	if v, ok := props[fieldAdjust1]; ok {
		collector.SetAdjustValue(seqNum, 0, int32(v))
	}
	if v, ok := props[fieldAdjust2]; ok {
		collector.SetAdjustValue(seqNum, 1, int32(v))
	}
	if v, ok := props[fieldAdjust3]; ok {
		collector.SetAdjustValue(seqNum, 2, int32(v))
	}

	collector.SetShapeMargins(seqNum,
		marginOrDefault(props, fieldMarginLeft),
		marginOrDefault(props, fieldMarginTop),
		marginOrDefault(props, fieldMarginRight),
		marginOrDefault(props, fieldMarginBottom))
}

// tertiarySideLine builds one side of the tertiary four-line border: a real
// line when the side carries a color, or the zero/invisible default.
func tertiarySideLine(props map[uint16]uint32, colorField, widthField uint16) document.Line {
	colorRaw, ok := props[colorField]
	if !ok {
		return document.Line{}
	}
	width := props[widthField]
	if width == 0 {
		width = defaultLineWidth
	}
	return document.Line{Color: colorFromIndex(colorRaw), Width: width, Exists: true}
}

func marginOrDefault(props map[uint16]uint32, field uint16) uint32 {
	if v, ok := props[field]; ok {
		return v
	}
	return defaultMargin
}

// rotationDegrees decodes a fixed 16.16 rotation value into a normalized
// [0,360) degree count.
func rotationDegrees(raw uint32) int32 {
	deg := int32(raw) >> 16
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// rotated90 reports whether a rotation lands the shape's bounding box on its
// side, triggering the 90-degree bbox swap.
func rotated90(degrees int32) bool {
	return (degrees >= 45 && degrees < 135) || (degrees >= 225 && degrees < 315)
}

// scaleChildAnchor affine-scales a CHILD_ANCHOR rectangle out of a group's
// logical (FSPGR) coordinate system and onto that group's own absolute
// on-page rectangle.
func scaleChildAnchor(raw, logical, absolute Coordinate) Coordinate {
	lw, lh := logical.width(), logical.height()
	if lw == 0 || lh == 0 {
		return absolute
	}
	aw, ah := absolute.width(), absolute.height()
	scale := func(v, logicalOrigin, logicalSpan, absOrigin, absSpan int32) int32 {
		return absOrigin + (v-logicalOrigin)*absSpan/logicalSpan
	}
	return Coordinate{
		Left:   scale(raw.Left, logical.Left, lw, absolute.Left, aw),
		Top:    scale(raw.Top, logical.Top, lh, absolute.Top, ah),
		Right:  scale(raw.Right, logical.Left, lw, absolute.Left, aw),
		Bottom: scale(raw.Bottom, logical.Top, lh, absolute.Top, ah),
	}
}

// swapBBox swaps a rectangle's width and height around its own center, for
// shapes rotated onto their side.
func swapBBox(r Coordinate) Coordinate {
	cx := (r.Left + r.Right) / 2
	cy := (r.Top + r.Bottom) / 2
	halfW := r.width() / 2
	halfH := r.height() / 2
	return Coordinate{
		Left:   cx - halfH,
		Right:  cx + halfH,
		Top:    cy - halfW,
		Bottom: cy + halfW,
	}
}

// parseBStoreDelayIndices walks the B-store container's BSE children in
// fixed 44-byte strides, assigning each a sequential 1-based delay index
// unless its four checksum/reference fields are all zero (no backing blip),
// in which case it gets the absent sentinel -1.
func parseBStoreDelayIndices(c *pubfile.Cursor, bstore pubfile.EscherContainerInfo) ([]int, error) {
	const stride = 44
	if err := c.SeekTo(bstore.ContentsOffset); err != nil {
		return nil, err
	}
	end := bstore.End()
	var indices []int
	nextDelay := 1
	for {
		more, err := c.StillReading(end)
		if err != nil {
			return nil, err
		}
		if !more {
			return indices, nil
		}
		start, err := c.Pos()
		if err != nil {
			return nil, err
		}
		if err := c.Skip(10); err != nil {
			return nil, err
		}
		allZero := true
		for i := 0; i < 4; i++ {
			v, err := c.ReadU32()
			if err != nil {
				return nil, fmt.Errorf("read BSE field %d: %w", i, err)
			}
			if v != 0 {
				allZero = false
			}
		}
		if allZero {
			indices = append(indices, -1)
		} else {
			indices = append(indices, nextDelay)
			nextDelay++
		}
		if err := c.SeekTo(start + stride); err != nil {
			return nil, err
		}
	}
}
