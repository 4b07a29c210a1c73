// Package pubdoc reads legacy Microsoft Publisher (.pub) compound-file
// documents and reports their pages, shapes, text, and images to a
// document.Collector.
//
// # Example Usage
//
//	file, err := os.Open("document.pub")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer file.Close()
//
//	model := document.NewModel()
//	if err := pubdoc.Parse(file, model); err != nil {
//		log.Fatal(err)
//	}
//
// # Stream layout
//
// A .pub file is an OLE/CFB compound file. Four named sub-streams carry the
// document: Quill/QuillSub/CONTENTS (text), Contents (the page/shape/palette
// trailer directory), Escher/EscherStm (shape geometry and properties), and
// the optional Escher/EscherDelayStm (embedded images). Parsing runs these
// in a fixed order because each later stage resolves references built by an
// earlier one: Quill's text blocks are addressed by id from Contents, the
// delay stream's images are addressed by index from Escher/EscherStm's own
// B-store walk, and the shape stream's CLIENT_DATA cross-references are
// addressed by the sequence numbers Contents assigns.
package pubdoc

import (
	"fmt"
	"io"

	"github.com/gopub/pubdoc/internal/container"
	"github.com/gopub/pubdoc/internal/contents"
	"github.com/gopub/pubdoc/internal/document"
	"github.com/gopub/pubdoc/internal/escher"
	"github.com/gopub/pubdoc/internal/escherdelay"
	"github.com/gopub/pubdoc/internal/quill"
)

const (
	streamQuill      = "Quill/QuillSub/CONTENTS"
	streamContents   = "Contents"
	streamEscherStm  = "Escher/EscherStm"
	streamEscherDlay = "Escher/EscherDelayStm"
)

// Parse reads a .pub compound file from ra and reports its contents to
// collector, finishing with collector.Go(). It returns an error for any
// fatal condition: the input isn't a compound file, a
// required sub-stream is missing, the Contents trailer lacks a Document
// chunk, or a required Escher descent fails. Recoverable per-record issues
// are logged and substituted with defaults rather than aborting the parse.
func Parse(ra io.ReaderAt, collector document.Collector) error {
	cf, err := container.OpenCompoundFile(ra)
	if err != nil {
		return fmt.Errorf("open compound file: %w", err)
	}
	if !cf.IsCompound() {
		return fmt.Errorf("input is not a compound file")
	}

	if err := runStream(cf, streamQuill, true, quill.Parse, collector); err != nil {
		return fmt.Errorf("parse quill text stream: %w", err)
	}
	if err := runStream(cf, streamContents, true, contents.Parse, collector); err != nil {
		return fmt.Errorf("parse contents trailer: %w", err)
	}
	if err := runStream(cf, streamEscherDlay, false, escherdelay.Parse, collector); err != nil {
		return fmt.Errorf("parse escher delay stream: %w", err)
	}
	if err := runStream(cf, streamEscherStm, true, escher.Parse, collector); err != nil {
		return fmt.Errorf("parse escher shape stream: %w", err)
	}

	if !collector.Go() {
		return fmt.Errorf("collector commit failed")
	}
	return nil
}

// runStream opens one named sub-stream and hands it to parse. When required
// is true, a missing stream is fatal; the optional delay stream's absence is
// not. The stream handle is scoped to this call, following an acquire-
// before-phase, release-after-phase lifecycle -- there is nothing to close
// explicitly since GetSubStream returns an in-memory reader, but the local
// binding still keeps each phase's stream out of scope for the next.
func runStream(cf *container.Container, name string, required bool, parse func(document.ReadSeeker, document.Collector) error, collector document.Collector) error {
	rs, ok := cf.GetSubStream(name)
	if !ok {
		if required {
			return fmt.Errorf("missing required stream %q", name)
		}
		return nil
	}
	return parse(rs, collector)
}
