// Package diag prints generation errors the way compilers do:
// file:line:col, code and message, then hints.
package diag

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
)

// Report writes one diagnostic per error in err, including joined errors.
func Report(w io.Writer, err error) {
	for _, e := range flatten(err) {
		report(w, e)
	}
}

// flatten splits joined errors. Join in cockroachdb/errors hides the
// error list behind a stack wrapper, so wrappers are walked until a
// multi-error or a diagnostic is found.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		switch e.(type) {
		case *tslink.Error, *ir.ValidationError:
			return []error{err}
		}
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			var out []error
			for _, c := range j.Unwrap() {
				out = append(out, flatten(c)...)
			}
			return out
		}
	}
	return []error{err}
}

func report(w io.Writer, err error) {
	var te *tslink.Error
	var ve *ir.ValidationError
	switch {
	case errors.As(err, &te):
		loc := ""
		if te.Pos.IsValid() {
			loc = pterm.Bold.Sprint(te.Pos.String()) + ": "
		}
		fmt.Fprintf(w, "%s%s %s\n", loc, pterm.Red("error["+string(te.Code)+"]:"), te.Message)
		for _, k := range slices.Sorted(maps.Keys(te.Details)) {
			fmt.Fprintf(w, "  %s %s = %s\n", pterm.Gray("note:"), k, te.Details[k])
		}
	case errors.As(err, &ve):
		fmt.Fprintf(w, "%s %s\n", pterm.Red("error["+ve.Code+"]:"), ve.Message)
	default:
		fmt.Fprintf(w, "%s %v\n", pterm.Red("error:"), err)
	}
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "  %s %s\n", pterm.Cyan("hint:"), hint)
	}
}
