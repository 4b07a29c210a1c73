// Package cliview renders a parsed document.Model as human-readable text for
// cmd/pubcat: colored section headings, tabular summaries of pages, shapes
// and images, and a plain-text dump of every text block a shape references.
// PUB's model carries
// no paragraph/table content tree to walk, so the summary is tabular --
// per-shape and per-page rows -- rather than a rendered text/table stream.
package cliview

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"

	"github.com/gopub/pubdoc/internal/document"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

// maxPreviewWidth bounds how much of each paragraph the text dump prints,
// measured in display columns so wide CJK runs don't blow out the line.
const maxPreviewWidth = 40

// RenderSummary writes a colored, tabular summary of m to w: document
// dimensions and word count, one row per page, one row per shape, and one
// row per extracted image, followed by every text block a shape references.
func RenderSummary(m *document.Model, w io.Writer) error {
	fmt.Fprintf(w, "%s %d x %d EMU\n", heading("Document"), m.WidthEmu, m.HeightEmu)
	fmt.Fprintf(w, "%s %d\n\n", heading("Words"), m.WordCount())

	if err := renderPages(m, w); err != nil {
		return err
	}
	if err := renderShapes(m, w); err != nil {
		return err
	}
	if err := renderImages(m, w); err != nil {
		return err
	}
	renderText(m, w)
	return nil
}

func renderPages(m *document.Model, w io.Writer) error {
	if len(m.Pages) == 0 {
		return nil
	}
	fmt.Fprintln(w, heading("Pages"))
	table := tablewriter.NewTable(w)
	table.Header("Seq", "Kind", "Background Shape")
	for _, p := range m.Pages {
		kind := "normal"
		if p.Master {
			kind = "master"
		}
		bg := dim("-")
		if p.HasBg {
			bg = fmt.Sprintf("%d", p.BgShapeSeq)
		}
		if err := table.Append(fmt.Sprintf("%d", p.SeqNum), kind, bg); err != nil {
			return fmt.Errorf("append page row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render pages table: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

func renderShapes(m *document.Model, w io.Writer) error {
	if len(m.Shapes) == 0 {
		return nil
	}
	fmt.Fprintln(w, heading("Shapes"))
	table := tablewriter.NewTable(w)
	table.Header("Seq", "Page", "Type", "Group", "Coords (EMU)", "Fill", "Rotation")
	for _, s := range m.Shapes {
		coords := dim("-")
		if s.HasCoords {
			coords = fmt.Sprintf("%d,%d -> %d,%d", s.Xs, s.Ys, s.Xe, s.Ye)
		}
		group := dim("-")
		if s.GroupSeq != 0 {
			group = fmt.Sprintf("%d", s.GroupSeq)
		}
		if err := table.Append(
			fmt.Sprintf("%d", s.SeqNum),
			fmt.Sprintf("%d", s.PageSeq),
			fmt.Sprintf("%d", s.Type),
			group,
			coords,
			describeFill(s.Fill),
			fmt.Sprintf("%d", s.Rotation),
		); err != nil {
			return fmt.Errorf("append shape row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render shapes table: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

func describeFill(f *document.Fill) string {
	if f == nil {
		return dim("none")
	}
	switch f.Kind {
	case document.FillSolid:
		return fmt.Sprintf("solid #%06X", f.SolidColor.RGB)
	case document.FillGradient:
		return fmt.Sprintf("gradient %d stops @ %d deg", len(f.GradientStops), f.GradientAngle)
	case document.FillImage:
		if f.IsTexture {
			return fmt.Sprintf("texture delay#%d", f.DelayIndex)
		}
		return fmt.Sprintf("picture delay#%d", f.DelayIndex)
	case document.FillPattern:
		return "pattern"
	default:
		return dim("none")
	}
}

func renderImages(m *document.Model, w io.Writer) error {
	if len(m.Images) == 0 {
		return nil
	}
	fmt.Fprintln(w, heading("Images"))
	table := tablewriter.NewTable(w)
	table.Header("Index", "Kind", "Bytes")
	for _, img := range m.Images {
		if err := table.Append(fmt.Sprintf("%d", img.Index), img.Kind.String(), fmt.Sprintf("%d", len(img.Bytes))); err != nil {
			return fmt.Errorf("append image row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render images table: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

func renderText(m *document.Model, w io.Writer) {
	if len(m.TextByID) == 0 {
		return
	}
	fmt.Fprintln(w, heading("Text"))
	for _, s := range m.Shapes {
		if !s.HasTextID {
			continue
		}
		paras, ok := m.TextByID[s.TextID]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s shape %d, text block %d:\n", dim("--"), s.SeqNum, s.TextID)
		for _, para := range paras {
			var sb strings.Builder
			for _, span := range para.Spans {
				sb.WriteString(span.Text)
			}
			fmt.Fprintln(w, truncate(sb.String(), maxPreviewWidth))
		}
	}
}

func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
