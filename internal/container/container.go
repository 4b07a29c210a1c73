// Package container adapts github.com/richardlehane/mscfb's OLE/compound
// file reader to the document.Container contract the parser packages
// depend on: the compound-file container layer is treated as external to
// the core parser, and this adapter satisfies the interface without
// re-implementing CFB parsing.
package container

import (
	"bytes"
	"fmt"
	"io"

	"github.com/richardlehane/mscfb"

	"github.com/gopub/pubdoc/internal/document"
)

// Container is a compound file opened for sub-stream access.
type Container struct {
	streams map[string][]byte
}

// OpenCompoundFile reads every stream out of an OLE/CFB container up front
// and indexes it by its full "/"-joined path. mscfb exposes streams as a
// single forward-only cursor rather than one io.ReadSeeker per entry, so
// buffering here is what makes the streams individually seekable for the
// block-grammar cursor the parser packages build on top of them.
func OpenCompoundFile(ra io.ReaderAt) (*Container, error) {
	doc, err := mscfb.New(ra)
	if err != nil {
		return nil, fmt.Errorf("open compound file: %w", err)
	}

	c := &Container{streams: make(map[string][]byte)}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.FileInfo().IsDir() {
			continue
		}
		path := ""
		for _, p := range entry.Path {
			path += p + "/"
		}
		path += entry.Name

		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(doc, buf); err != nil && err != io.EOF {
			return nil, fmt.Errorf("read stream %s: %w", path, err)
		}
		c.streams[path] = buf
	}
	return c, nil
}

// IsCompound always reports true: a Container only exists after a
// successful OpenCompoundFile.
func (c *Container) IsCompound() bool { return true }

// GetSubStream returns a fresh, independently-seekable reader over the
// named stream.
func (c *Container) GetSubStream(name string) (document.ReadSeeker, bool) {
	data, ok := c.streams[name]
	if !ok {
		return nil, false
	}
	return bytes.NewReader(data), true
}
