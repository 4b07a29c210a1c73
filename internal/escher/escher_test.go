package escher

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/gopub/pubdoc/internal/document"
	"github.com/gopub/pubdoc/internal/pubfile"
)

func TestGradientAngleRemap(t *testing.T) {
	cases := map[int32]int{
		-135 << 16: -45,
		-45 << 16:  225,
		90 << 16:   90,
	}
	for raw, want := range cases {
		if got := gradientAngle(uint32(raw)); got != want {
			t.Errorf("gradientAngle(%#x) = %d, want %d", uint32(raw), got, want)
		}
	}
}

func TestRotated90Bands(t *testing.T) {
	cases := map[int32]bool{
		0:   false,
		44:  false,
		45:  true,
		134: true,
		135: false,
		224: false,
		225: true,
		314: true,
		315: false,
	}
	for deg, want := range cases {
		if got := rotated90(deg); got != want {
			t.Errorf("rotated90(%d) = %v, want %v", deg, got, want)
		}
	}
}

func TestRotationDegreesNormalizesNegative(t *testing.T) {
	neg := int32(-90) << 16
	raw := uint32(neg)
	if got := rotationDegrees(raw); got != 270 {
		t.Errorf("rotationDegrees(-90 raw) = %d, want 270", got)
	}
}

func TestSwapBBoxPreservesCenter(t *testing.T) {
	r := Coordinate{Left: 0, Top: 0, Right: 100, Bottom: 40}
	swapped := swapBBox(r)
	if swapped.width() != 40 || swapped.height() != 100 {
		t.Errorf("swapBBox dims = %dx%d, want 40x100", swapped.width(), swapped.height())
	}
	wantCx, wantCy := int32(50), int32(20)
	gotCx, gotCy := (swapped.Left+swapped.Right)/2, (swapped.Top+swapped.Bottom)/2
	if gotCx != wantCx || gotCy != wantCy {
		t.Errorf("swapBBox center = (%d,%d), want (%d,%d)", gotCx, gotCy, wantCx, wantCy)
	}
}

func TestScaleChildAnchorMapsLogicalToAbsolute(t *testing.T) {
	logical := Coordinate{Left: 0, Top: 0, Right: 1000, Bottom: 1000}
	absolute := Coordinate{Left: 5000, Top: 5000, Right: 15000, Bottom: 15000}
	raw := Coordinate{Left: 0, Top: 0, Right: 500, Bottom: 500}
	got := scaleChildAnchor(raw, logical, absolute)
	want := Coordinate{Left: 5000, Top: 5000, Right: 10000, Bottom: 10000}
	if got != want {
		t.Errorf("scaleChildAnchor = %+v, want %+v", got, want)
	}
}

func TestScaleChildAnchorGuardsZeroSpan(t *testing.T) {
	absolute := Coordinate{Left: 1, Top: 2, Right: 3, Bottom: 4}
	got := scaleChildAnchor(Coordinate{}, Coordinate{}, absolute)
	if got != absolute {
		t.Errorf("scaleChildAnchor with zero-span logical = %+v, want passthrough %+v", got, absolute)
	}
}

func TestTertiaryBorderPositionFormula(t *testing.T) {
	cases := []struct {
		name  string
		flags uint32
		want  document.InsideOrHalf
	}{
		{
			name:  "use+left inset pen set, OK bits clear",
			flags: bitTertiaryUseLine | bitUseLeftInsetPen | bitLeftInsetPen,
			want:  document.InsideShape,
		},
		{
			name:  "override present but disagrees",
			flags: bitTertiaryUseLine | bitUseLeftInsetPen | bitUseLeftInsetPenOK | bitLeftInsetPen,
			want:  document.HalfInsideShape,
		},
		{
			name:  "override present and agrees",
			flags: bitTertiaryUseLine | bitUseLeftInsetPen | bitUseLeftInsetPenOK | bitLeftInsetPenOK | bitLeftInsetPen,
			want:  document.InsideShape,
		},
		{
			name:  "left inset pen not requested",
			flags: bitTertiaryUseLine | bitUseLeftInsetPen,
			want:  document.HalfInsideShape,
		},
	}
	for _, tc := range cases {
		m := document.NewModel()
		applyShapeProperties(1, map[uint16]uint32{fieldTertiaryLineFlags: tc.flags}, nil, m)
		if got := m.Shapes[0].Border; got != tc.want {
			t.Errorf("%s: border = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTertiaryUseLineEmitsFourSideLines(t *testing.T) {
	m := document.NewModel()
	props := map[uint16]uint32{
		fieldTertiaryLineFlags: bitTertiaryUseLine,
		fieldLineTopColor:      0x00FF0000,
	}
	applyShapeProperties(1, props, nil, m)
	if got := len(m.Shapes[0].Lines); got != 4 {
		t.Fatalf("got %d lines, want 4 (top/right/bottom/left)", got)
	}
	if !m.Shapes[0].Lines[0].Exists {
		t.Errorf("top line should exist given fieldLineTopColor")
	}
	if m.Shapes[0].Lines[1].Exists || m.Shapes[0].Lines[2].Exists || m.Shapes[0].Lines[3].Exists {
		t.Errorf("right/bottom/left lines should be zero/invisible without a color field")
	}
}

func TestPrimaryLineRequiresUseLineFlag(t *testing.T) {
	m := document.NewModel()
	applyShapeProperties(1, map[uint16]uint32{fieldLineColor: 0x00112233}, nil, m)
	if got := len(m.Shapes[0].Lines); got != 0 {
		t.Errorf("line color without useLine bit should emit no primary line, got %d lines", got)
	}

	m2 := document.NewModel()
	applyShapeProperties(1, map[uint16]uint32{
		fieldLineColor:     0x00112233,
		fieldLineBoolProps: bitPrimaryUseLine,
	}, nil, m2)
	if got := len(m2.Shapes[0].Lines); got != 1 {
		t.Fatalf("got %d lines, want 1", got)
	}
	if w := m2.Shapes[0].Lines[0].Width; w != defaultLineWidth {
		t.Errorf("default line width = %d, want %d", w, defaultLineWidth)
	}
}

func TestMarginsDefaultWhenAbsent(t *testing.T) {
	m := document.NewModel()
	applyShapeProperties(1, map[uint16]uint32{}, nil, m)
	s := m.Shapes[0]
	if s.MarginL != defaultMargin || s.MarginT != defaultMargin || s.MarginR != defaultMargin || s.MarginB != defaultMargin {
		t.Errorf("margins = %d,%d,%d,%d, want all %d", s.MarginL, s.MarginT, s.MarginR, s.MarginB, defaultMargin)
	}
}

func TestStandaloneImageReferenceIndependentOfFill(t *testing.T) {
	m := document.NewModel()
	props := map[uint16]uint32{
		fieldFillType: msofillSolid,
		fieldPxID:     1,
	}
	applyShapeProperties(1, props, []int{3}, m)
	if got := m.Shapes[0].ImgIndex; got != 3 {
		t.Errorf("ImgIndex = %d, want 3 even though fill is solid", got)
	}
}

func writeBSEEntry(buf *bytes.Buffer, present bool) {
	buf.Write(make([]byte, 10))
	var v uint32
	if present {
		v = 1
	}
	for i := 0; i < 4; i++ {
		binary.Write(buf, binary.LittleEndian, v)
	}
	buf.Write(make([]byte, 44-10-16))
}

func writeEscherHeader(buf *bytes.Buffer, initial uint16, recType pubfile.EscherRecordType, length uint32) {
	binary.Write(buf, binary.LittleEndian, initial)
	binary.Write(buf, binary.LittleEndian, uint16(recType))
	binary.Write(buf, binary.LittleEndian, length)
}

func TestParseBStoreDelayIndicesSkipsAbsentEntries(t *testing.T) {
	var body bytes.Buffer
	writeBSEEntry(&body, true)  // delay index 1
	writeBSEEntry(&body, false) // absent
	writeBSEEntry(&body, true)  // delay index 2

	var buf bytes.Buffer
	writeEscherHeader(&buf, 0x000F, pubfile.EscherBStoreContainer, uint32(body.Len()))
	buf.Write(body.Bytes())

	c := pubfile.NewCursor(bytes.NewReader(buf.Bytes()))
	info, err := pubfile.ParseEscherContainer(c)
	if err != nil {
		t.Fatalf("ParseEscherContainer: %v", err)
	}
	got, err := parseBStoreDelayIndices(c, info)
	if err != nil {
		t.Fatalf("parseBStoreDelayIndices: %v", err)
	}
	want := []int{1, -1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBuildFillSolid(t *testing.T) {
	props := map[uint16]uint32{
		fieldFillType:      msofillSolid,
		fieldFillColor:     0x00112233,
		fieldFillBoolProps: 0xF0,
	}
	fill, _, ok := buildFill(props, nil)
	if !ok {
		t.Fatalf("buildFill returned ok=false")
	}
	if fill.Kind != document.FillSolid {
		t.Errorf("Kind = %v, want FillSolid", fill.Kind)
	}
	if fill.SolidColor.RGB != 0x00112233 {
		t.Errorf("SolidColor.RGB = %#x, want 0x112233", fill.SolidColor.RGB)
	}
}

func TestBuildFillPictureResolvesDelayIndex(t *testing.T) {
	props := map[uint16]uint32{
		fieldFillType: msofillPicture,
		fieldBgPxID:   2,
	}
	bstoreDelay := []int{5, 7}
	fill, _, ok := buildFill(props, bstoreDelay)
	if !ok {
		t.Fatalf("buildFill returned ok=false")
	}
	if fill.Kind != document.FillImage {
		t.Errorf("Kind = %v, want FillImage", fill.Kind)
	}
	if fill.DelayIndex != 7 {
		t.Errorf("DelayIndex = %d, want 7 (bstoreDelay[pxid-1])", fill.DelayIndex)
	}
}

func TestBuildFillPictureAbsentDelayIndexIsNotOK(t *testing.T) {
	props := map[uint16]uint32{
		fieldFillType: msofillPicture,
		fieldBgPxID:   2,
	}
	bstoreDelay := []int{5, -1} // second BSE entry is absent
	if _, _, ok := buildFill(props, bstoreDelay); ok {
		t.Errorf("buildFill with an absent delay-index entry should return ok=false")
	}
}

func TestBuildFillMissingTypeIsNotOK(t *testing.T) {
	if _, _, ok := buildFill(map[uint16]uint32{}, nil); ok {
		t.Errorf("buildFill with no fill type should return ok=false")
	}
}

func TestBuildFillSolidNoColorIsNotOK(t *testing.T) {
	props := map[uint16]uint32{
		fieldFillType:      msofillSolid,
		fieldFillBoolProps: 0xF0,
	}
	if _, _, ok := buildFill(props, nil); ok {
		t.Errorf("buildFill for SOLID with no fill color should return ok=false")
	}
}

func TestBuildFillSolidSkippedWhenNotBackground(t *testing.T) {
	props := map[uint16]uint32{
		fieldFillType:  msofillSolid,
		fieldFillColor: 0x00112233,
		// fieldFillBoolProps absent -> high nibble zero -> skipIfNotBg
	}
	if _, _, ok := buildFill(props, nil); ok {
		t.Errorf("buildFill for SOLID with skipIfNotBg set should return ok=false")
	}
}

func TestBuildFillPatternResolvesDelayIndexAndDefaults(t *testing.T) {
	props := map[uint16]uint32{
		fieldFillType: msofillPattern,
		fieldBgPxID:   1,
	}
	bstoreDelay := []int{4}
	fill, _, ok := buildFill(props, bstoreDelay)
	if !ok {
		t.Fatalf("buildFill returned ok=false")
	}
	if fill.Kind != document.FillPattern {
		t.Errorf("Kind = %v, want FillPattern", fill.Kind)
	}
	if fill.DelayIndex != 4 {
		t.Errorf("DelayIndex = %d, want 4", fill.DelayIndex)
	}
	if fill.PatternFg.RGB != 0x00FFFFFF {
		t.Errorf("PatternFg.RGB = %#x, want white 0xFFFFFF default", fill.PatternFg.RGB)
	}
	if fill.PatternBg.RGB != 0x00000000 {
		t.Errorf("PatternBg.RGB = %#x, want low 24 bits of 0x08000000 default", fill.PatternBg.RGB)
	}
}

func TestBuildFillPatternAbsentDelayIndexIsNotOK(t *testing.T) {
	props := map[uint16]uint32{
		fieldFillType: msofillPattern,
		fieldBgPxID:   1,
	}
	bstoreDelay := []int{-1}
	if _, _, ok := buildFill(props, bstoreDelay); ok {
		t.Errorf("buildFill for PATTERN with an absent delay-index entry should return ok=false")
	}
}

func TestOpacityFromRawDividesBy0xFFFF(t *testing.T) {
	got := opacityFromRaw(0xFFFF)
	if got != 1.0 {
		t.Errorf("opacityFromRaw(0xFFFF) = %v, want 1.0", got)
	}
}
