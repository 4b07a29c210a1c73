// Package document defines the collector contract the parser packages drive,
// plus a concrete in-memory sink (Model) that satisfies it. The parser
// packages depend only on the Collector interface; Model exists so the
// module can be exercised and tested end to end even though a full
// page-layout renderer is out of scope.
package document

import (
	"image/color"

	"github.com/clipperhouse/uax29/v2/words"
)

// ShapeType mirrors the Escher FSP record instance field (initial >> 4).
type ShapeType uint16

// PageType classifies a page chunk by its sequence number.
type PageType int

const (
	PageNormal PageType = iota
	PageMaster
	PageDummy
)

// InsideOrHalf is the outcome of the four-flag tertiary-line border-position
// conjunction Escher shape properties carry.
type InsideOrHalf int

const (
	HalfInsideShape InsideOrHalf = iota
	InsideShape
)

// ImgKind classifies a delay-stream BLIP by its underlying image format.
type ImgKind int

const (
	ImgUnknown ImgKind = iota
	ImgPNG
	ImgJPEG
	ImgWMF
	ImgEMF
	ImgDIB
	ImgTIFF
	ImgPICT
)

func (k ImgKind) String() string {
	switch k {
	case ImgPNG:
		return "PNG"
	case ImgJPEG:
		return "JPEG"
	case ImgWMF:
		return "WMF"
	case ImgEMF:
		return "EMF"
	case ImgDIB:
		return "DIB"
	case ImgTIFF:
		return "TIFF"
	case ImgPICT:
		return "PICT"
	default:
		return "UNKNOWN"
	}
}

// ColorRef is an indirect reference into the Quill color table, or a direct
// 0x00RRGGBB-encoded color when Indexed is false.
type ColorRef struct {
	Indexed bool
	Index   uint32
	RGB     uint32
}

// FillKind tags the variant carried by Fill. The collector switches on Kind
// rather than dispatching through virtual methods, following a "smart-pointer
// fills" design.
type FillKind int

const (
	FillNone FillKind = iota
	FillSolid
	FillGradient
	FillImage
	FillPattern
)

// GradientStop is one color/opacity sample along a gradient fill, ordered by
// Position (0-100).
type GradientStop struct {
	Color    ColorRef
	Position int
	Opacity  float64
}

// Fill is a tagged union over the five fill kinds a shape may carry.
type Fill struct {
	Kind FillKind

	// FillSolid
	SolidColor   ColorRef
	SolidOpacity float64

	// FillGradient
	GradientAngle int
	GradientStops []GradientStop

	// FillImage / FillPattern
	DelayIndex int
	IsTexture  bool
	PatternFg  ColorRef
	PatternBg  ColorRef
}

// Line describes one shape border edge.
type Line struct {
	Color  ColorRef
	Width  uint32
	Exists bool
}

// CharacterStyle is a decoded Quill character-run style block.
type CharacterStyle struct {
	Underline  bool
	Italic     bool
	Bold       bool
	SizePoints float64 // -1 when unset
	ColorIndex int      // -1 when unset
	FontIndex  uint32
}

// ParagraphStyle is a decoded Quill paragraph-run style block.
type ParagraphStyle struct {
	Alignment          int
	DefaultCharStyle   uint32
	LineSpacing        uint32
	SpaceBeforeEmu     uint32
	SpaceAfterEmu      uint32
	FirstLineIndentEmu int
	LeftIndentEmu      uint32
	RightIndentEmu     uint32
}

// TextSpan is a run of decoded UTF-16 text tagged with its character style.
type TextSpan struct {
	Text  string
	Style CharacterStyle
}

// TextParagraph is a sequence of spans sharing one paragraph style.
type TextParagraph struct {
	Spans []TextSpan
	Style ParagraphStyle
}

// Shape accumulates every fact the escher/contents parsers emit about one
// content-chunk sequence number.
type Shape struct {
	SeqNum          uint32
	PageSeq         uint32
	Type            ShapeType
	FlipV           bool
	FlipH           bool
	IsGroup         bool
	GroupSeq        uint32 // seqnum of the group this shape was added under, 0 if top-level
	Order           int    // emission order among siblings, for stacking
	Xs, Ys          int
	Xe, Ye          int
	HasCoords       bool
	Rotation        int
	MarginL         uint32
	MarginT         uint32
	MarginR         uint32
	MarginB         uint32
	Adjust          [3]int32
	AdjustSet       [3]bool
	Lines           []Line
	Border          InsideOrHalf
	Fill            *Fill
	SkipFillIfNotBg bool
	ImgIndex        int // 0 means unset
	TextID          uint32
	HasTextID       bool
}

// Page is one Normal or Master page discovered in the Contents stream.
type Page struct {
	SeqNum     uint32
	Master     bool
	BgShapeSeq uint32
	HasBg      bool
}

// ImageRecord is one successfully extracted delay-stream image.
type ImageRecord struct {
	Index int
	Kind  ImgKind
	Bytes []byte
}

// Collector is the contract every parser package invokes.
type Collector interface {
	SetWidthInEmu(v uint32)
	SetHeightInEmu(v uint32)

	AddPage(seqNum uint32)
	DesignateMasterPage(seqNum uint32)
	SetPageBgShape(pageSeq, shapeSeq uint32)

	AddShape(seqNum uint32)
	SetShapePage(seqNum, pageSeq uint32)
	SetShapeType(seqNum uint32, t ShapeType)
	SetShapeFlip(seqNum uint32, v, h bool)
	SetShapeOrder(seqNum uint32)
	SetCurrentGroupSeqNum(seqNum uint32)
	BeginGroup()
	EndGroup()

	SetShapeCoordinatesInEmu(seqNum uint32, xs, ys, xe, ye int)
	SetShapeRotation(seqNum uint32, degrees int)
	SetShapeMargins(seqNum uint32, l, t, r, b uint32)

	SetAdjustValue(seqNum uint32, idx int, v int32)

	AddShapeLine(seqNum uint32, l Line)
	SetShapeBorderPosition(seqNum uint32, pos InsideOrHalf)
	SetShapeFill(seqNum uint32, f Fill, skipIfNotBg bool)
	SetShapeImgIndex(seqNum uint32, delayIdx int)

	AddImage(index int, kind ImgKind, data []byte)

	AddTextString(paragraphs []TextParagraph, id uint32)
	AddTextShape(textID, seqNum, pageSeq uint32)
	AddFont(name string)
	AddTextColor(c ColorRef)
	AddPaletteColor(c color.RGBA)
	AddDefaultCharacterStyle(s CharacterStyle)
	AddDefaultParagraphStyle(s ParagraphStyle)

	Go() bool
}

// Container is the compound-file abstraction the parser packages depend on:
// named sub-streams exposed as random-access byte sources.
type Container interface {
	IsCompound() bool
	GetSubStream(name string) (ReadSeeker, bool)
}

// ReadSeeker is the minimal random-access surface the parser packages need
// from a sub-stream.
type ReadSeeker interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
}

// groupFrame tracks one level of the beginGroup/endGroup stack.
type groupFrame struct {
	seqNum   uint32
	children []uint32
}

// Model is the concrete, in-memory Collector used by cmd/pubcat and by the
// package tests. It is not part of the core parser -- callers supply their
// own collector -- but a runnable module needs one concrete sink.
type Model struct {
	WidthEmu, HeightEmu uint32

	Pages     []*Page
	pageBySeq map[uint32]*Page

	Shapes     []*Shape
	shapeBySeq map[uint32]*Shape

	Images []ImageRecord

	Fonts         []string
	TextColors    []ColorRef
	PaletteColors []color.RGBA

	DefaultCharStyles []CharacterStyle
	DefaultParaStyles []ParagraphStyle

	// TextByID holds the paragraphs of every addTextString call, keyed by
	// Quill text block id.
	TextByID map[uint32][]TextParagraph

	// GroupStack records the beginGroup/endGroup nesting as it happens, so
	// group membership is inspectable after parsing.
	GroupStack   []groupFrame
	CurrentGroup uint32
	orderCounter int

	committed bool
}

// NewModel returns an empty Model ready to receive parser facts.
func NewModel() *Model {
	return &Model{
		pageBySeq:  make(map[uint32]*Page),
		shapeBySeq: make(map[uint32]*Shape),
		TextByID:   make(map[uint32][]TextParagraph),
	}
}

func (m *Model) SetWidthInEmu(v uint32)  { m.WidthEmu = v }
func (m *Model) SetHeightInEmu(v uint32) { m.HeightEmu = v }

func (m *Model) AddPage(seqNum uint32) {
	if _, ok := m.pageBySeq[seqNum]; ok {
		return
	}
	p := &Page{SeqNum: seqNum}
	m.Pages = append(m.Pages, p)
	m.pageBySeq[seqNum] = p
}

func (m *Model) DesignateMasterPage(seqNum uint32) {
	if p, ok := m.pageBySeq[seqNum]; ok {
		p.Master = true
	}
}

func (m *Model) SetPageBgShape(pageSeq, shapeSeq uint32) {
	if p, ok := m.pageBySeq[pageSeq]; ok {
		p.BgShapeSeq = shapeSeq
		p.HasBg = true
	}
}

func (m *Model) shape(seqNum uint32) *Shape {
	s, ok := m.shapeBySeq[seqNum]
	if !ok {
		s = &Shape{SeqNum: seqNum, Border: HalfInsideShape}
		m.shapeBySeq[seqNum] = s
		m.Shapes = append(m.Shapes, s)
	}
	return s
}

func (m *Model) AddShape(seqNum uint32) {
	s := m.shape(seqNum)
	if len(m.GroupStack) > 0 {
		top := &m.GroupStack[len(m.GroupStack)-1]
		top.children = append(top.children, seqNum)
		s.GroupSeq = top.seqNum
	}
}

func (m *Model) SetShapePage(seqNum, pageSeq uint32) { m.shape(seqNum).PageSeq = pageSeq }

func (m *Model) SetShapeType(seqNum uint32, t ShapeType) { m.shape(seqNum).Type = t }

func (m *Model) SetShapeFlip(seqNum uint32, v, h bool) {
	s := m.shape(seqNum)
	s.FlipV, s.FlipH = v, h
}

func (m *Model) SetShapeOrder(seqNum uint32) {
	m.orderCounter++
	m.shape(seqNum).Order = m.orderCounter
}

func (m *Model) SetCurrentGroupSeqNum(seqNum uint32) {
	s := m.shape(seqNum)
	s.IsGroup = true
	m.CurrentGroup = seqNum
}

func (m *Model) BeginGroup() {
	m.GroupStack = append(m.GroupStack, groupFrame{seqNum: m.CurrentGroup})
}

func (m *Model) EndGroup() {
	if len(m.GroupStack) == 0 {
		return
	}
	m.GroupStack = m.GroupStack[:len(m.GroupStack)-1]
	if len(m.GroupStack) > 0 {
		m.CurrentGroup = m.GroupStack[len(m.GroupStack)-1].seqNum
	} else {
		m.CurrentGroup = 0
	}
}

func (m *Model) SetShapeCoordinatesInEmu(seqNum uint32, xs, ys, xe, ye int) {
	s := m.shape(seqNum)
	s.Xs, s.Ys, s.Xe, s.Ye = xs, ys, xe, ye
	s.HasCoords = true
}

func (m *Model) SetShapeRotation(seqNum uint32, degrees int) { m.shape(seqNum).Rotation = degrees }

func (m *Model) SetShapeMargins(seqNum uint32, l, t, r, b uint32) {
	s := m.shape(seqNum)
	s.MarginL, s.MarginT, s.MarginR, s.MarginB = l, t, r, b
}

func (m *Model) SetAdjustValue(seqNum uint32, idx int, v int32) {
	if idx < 0 || idx > 2 {
		return
	}
	s := m.shape(seqNum)
	s.Adjust[idx] = v
	s.AdjustSet[idx] = true
}

func (m *Model) AddShapeLine(seqNum uint32, l Line) {
	s := m.shape(seqNum)
	s.Lines = append(s.Lines, l)
}

func (m *Model) SetShapeBorderPosition(seqNum uint32, pos InsideOrHalf) {
	m.shape(seqNum).Border = pos
}

func (m *Model) SetShapeFill(seqNum uint32, f Fill, skipIfNotBg bool) {
	s := m.shape(seqNum)
	fc := f
	s.Fill = &fc
	s.SkipFillIfNotBg = skipIfNotBg
}

func (m *Model) SetShapeImgIndex(seqNum uint32, delayIdx int) {
	m.shape(seqNum).ImgIndex = delayIdx
}

func (m *Model) AddImage(index int, kind ImgKind, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.Images = append(m.Images, ImageRecord{Index: index, Kind: kind, Bytes: buf})
}

func (m *Model) AddTextString(paragraphs []TextParagraph, id uint32) {
	m.TextByID[id] = paragraphs
}

func (m *Model) AddTextShape(textID, seqNum, pageSeq uint32) {
	s := m.shape(seqNum)
	s.TextID = textID
	s.HasTextID = true
}

func (m *Model) AddFont(name string)          { m.Fonts = append(m.Fonts, name) }
func (m *Model) AddTextColor(c ColorRef)      { m.TextColors = append(m.TextColors, c) }
func (m *Model) AddPaletteColor(c color.RGBA) { m.PaletteColors = append(m.PaletteColors, c) }

func (m *Model) AddDefaultCharacterStyle(s CharacterStyle) {
	m.DefaultCharStyles = append(m.DefaultCharStyles, s)
}

func (m *Model) AddDefaultParagraphStyle(s ParagraphStyle) {
	m.DefaultParaStyles = append(m.DefaultParaStyles, s)
}

// Go performs the terminal commit. It always succeeds for the in-memory
// model; a persistence-backed collector would report I/O failure here.
func (m *Model) Go() bool {
	m.committed = true
	return true
}

// WordCount segments every decoded text block with uax29's Unicode word
// boundary algorithm and returns the total word count across the document.
// This is a summary statistic cmd/pubcat reports; it plays no role in the
// core parse.
func (m *Model) WordCount() int {
	total := 0
	for _, paras := range m.TextByID {
		for _, para := range paras {
			for _, span := range para.Spans {
				seg := words.FromBytes([]byte(span.Text))
				for seg.Next() {
					if isWordLike(seg.Value()) {
						total++
					}
				}
			}
		}
	}
	return total
}

func isWordLike(tok []byte) bool {
	for _, b := range tok {
		if (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b >= 0x80 {
			return true
		}
	}
	return false
}
