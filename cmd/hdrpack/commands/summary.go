package commands

import (
	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/walteh/hdrpack/cmd/hdrpack/opts"
	"github.com/walteh/hdrpack/pkg/operation"
)

// printSummary prints a short per-stage report unless silent mode is on
func printSummary(o *opts.RootOpts, s *operation.Summary) {
	if o.Silent || s == nil {
		return
	}

	if c := s.Conversion; c != nil {
		pterm.Info.WithPrefix(pterm.Prefix{Text: "🖼️"}).
			Printfln("converted %d of %d images", c.Converted(), len(c.Results))
	}
	if a := s.Archival; a != nil {
		pterm.Info.WithPrefix(pterm.Prefix{Text: "📦"}).
			Printfln("moved %d originals, skipped %d files", len(a.Moved), len(a.Skipped))
	}
	if c := s.Compression; c != nil {
		pterm.Success.WithPrefix(pterm.Prefix{Text: "✅"}).
			Printfln("wrote %s (%d entries, %s)", c.Output, c.Entries, humanize.Bytes(uint64(c.Bytes)))
	}

	for _, f := range s.Failures() {
		pterm.Warning.WithPrefix(pterm.Prefix{Text: "⚠️"}).Printfln("%s %s: %v", f.Op, f.Path, f.Err)
	}
}
