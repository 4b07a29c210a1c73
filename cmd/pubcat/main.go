// Command pubcat parses a legacy Microsoft Publisher (.pub) file and prints
// a summary of its pages, shapes, images and text to stdout.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gopub/pubdoc"
	"github.com/gopub/pubdoc/internal/cliview"
	"github.com/gopub/pubdoc/internal/document"
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s <pub-file>\n", os.Args[0])
		os.Exit(1)
	}

	filename := flag.Arg(0)

	file, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	model := document.NewModel()
	if err := pubdoc.Parse(file, model); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	if err := cliview.RenderSummary(model, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering summary: %v\n", err)
		os.Exit(1)
	}
}
