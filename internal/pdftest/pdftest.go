// Package pdftest builds small PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Build assembles a PDF with one page per payload. Page i uses payload i as
// an uncompressed 2x2 gray image XObject named /Im0, so equal payloads give
// byte-identical image streams.
//
// Objects: 1 catalog, 2 page tree, then page 3+2i and image 4+2i.
func Build(payloads ...string) []byte {
	var objs []string
	kids := make([]string, len(payloads))
	for i := range payloads {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(payloads)),
	)
	for i, p := range payloads {
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 10 10] /Resources << /XObject << /Im0 %d 0 R >> >> >>", 4+2*i),
			fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width 2 /Height 2 /ColorSpace /DeviceGray /BitsPerComponent 8 /Length %d >>\nstream\n%s\nendstream", len(p), p),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// Images returns the object numbers of live image XObjects in ctx, ascending.
func Images(ctx *model.Context) []int {
	var nums []int
	for n, e := range ctx.Table {
		if e == nil || e.Free || e.Object == nil {
			continue
		}
		sd, ok := e.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if st, ok := sd.Dict["Subtype"].(types.Name); ok && st == "Image" {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}

// XObjectTarget returns the object number /Im0 resolves to on the page
// stored as object page, or -1.
func XObjectTarget(ctx *model.Context, page int) int {
	e, ok := ctx.Table[page]
	if !ok || e == nil {
		return -1
	}
	d, ok := e.Object.(types.Dict)
	if !ok {
		return -1
	}
	res, ok := d["Resources"].(types.Dict)
	if !ok {
		return -1
	}
	x, ok := res["XObject"].(types.Dict)
	if !ok {
		return -1
	}
	ir, ok := x["Im0"].(types.IndirectRef)
	if !ok {
		return -1
	}
	return int(ir.ObjectNumber)
}
