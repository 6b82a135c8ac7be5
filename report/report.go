// Package report renders the outcome of an image deduplication run.
package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/wudi/pdfdedup/ir/raw"
	"github.com/wudi/pdfdedup/optimize"
)

// Markdown writes a summary of res for the document named source.
func Markdown(w io.Writer, source string, res *optimize.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Image deduplication: %s\n\n", source)
	b.WriteString("| metric | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| images scanned | %d |\n", res.Scanned)
	fmt.Fprintf(&b, "| unreadable images | %d |\n", res.Invalid)
	fmt.Fprintf(&b, "| distinct images | %d |\n", res.Classes)
	fmt.Fprintf(&b, "| duplicates removed | %d |\n", res.Removed)
	fmt.Fprintf(&b, "| objects rewritten | %d |\n", len(res.Rewritten))

	if len(res.Remapped) > 0 {
		b.WriteString("\n## Duplicates\n\n| canonical | duplicates |\n|---|---|\n")
		for _, g := range groups(res.Remapped) {
			dups := make([]string, len(g.duplicates))
			for i, d := range g.duplicates {
				dups[i] = "`" + d.String() + "`"
			}
			fmt.Fprintf(&b, "| `%s` | %s |\n", g.canonical, strings.Join(dups, ", "))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// HTML renders the Markdown summary to an HTML fragment.
func HTML(w io.Writer, source string, res *optimize.Result) error {
	var md bytes.Buffer
	if err := Markdown(&md, source, res); err != nil {
		return err
	}
	conv := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := conv.Convert(md.Bytes(), w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

type group struct {
	canonical  raw.ObjectRef
	duplicates []raw.ObjectRef
}

func groups(entries []optimize.RemapEntry) []group {
	idx := make(map[raw.ObjectRef]int)
	var out []group
	for _, e := range entries {
		i, ok := idx[e.Canonical]
		if !ok {
			i = len(out)
			idx[e.Canonical] = i
			out = append(out, group{canonical: e.Canonical})
		}
		out[i].duplicates = append(out[i].duplicates, e.Duplicate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].canonical.Less(out[j].canonical) })
	return out
}
