// Package progress renders a byte progress bar for the rewrite phase.
package progress

import (
	"io"
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// Bar tracks bytes written to the output.
type Bar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// New starts a bar of total bytes rendered to w.
func New(w io.Writer, name string, total int64) *Bar {
	p := mpb.New(mpb.WithOutput(w), mpb.WithWidth(40))
	bar := p.AddBar(total,
		mpb.BarFillerClearOnComplete(),
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncSpaceR),
			decor.Counters(decor.SizeB1024(0), "% .1f / % .1f"),
		),
		mpb.AppendDecorators(
			decor.OnComplete(
				decor.NewPercentage("%.2f", decor.WCSyncSpaceR), "completed",
			),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO), "",
			),
		),
	)
	return &Bar{p: p, bar: bar}
}

// Add advances the bar by n bytes. It has the signature of a source observer.
func (b *Bar) Add(n int64) {
	b.bar.IncrInt64(n)
}

// Current returns the bytes counted so far.
func (b *Bar) Current() int64 {
	return b.bar.Current()
}

// Finish completes the bar, or aborts it when ok is false, and waits for the
// last render.
func (b *Bar) Finish(ok bool) {
	if ok {
		b.bar.SetTotal(-1, true)
	} else {
		b.bar.Abort(false)
	}
	b.p.Wait()
}
