package pubfile

import (
	"fmt"

	"github.com/olekukonko/ll"
)

// Diag is the leveled diagnostic sink every parser package logs through:
// fatal errors are still returned as wrapped errors, but recoverable skips
// and silent-default substitutions are reported here so a caller like
// cmd/pubcat can surface them without the parse itself aborting.
var Diag = ll.New("pubfile")

// Skip logs a recoverable-skip diagnostic: an unrecognized block/BLIP/style
// reference was encountered and bypassed, but the parse continues.
func Skip(format string, args ...any) {
	Diag.Warn(fmt.Sprintf(format, args...))
}

// Default logs a silent-default substitution: a field was absent or
// malformed and a documented fallback value was used instead.
func Default(format string, args ...any) {
	Diag.Info(fmt.Sprintf(format, args...))
}
