// Package pdftest builds small but structurally valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// MultiPage returns the bytes of an n-page PDF with the given page size in
// points. Every page carries an empty content stream; the cross-reference
// table is computed from the actual byte offsets, so real parsers accept it.
func MultiPage(n int, width, height float64) []byte {
	if n < 1 {
		n = 1
	}

	var buf bytes.Buffer
	offsets := make([]int, 0, 2+2*n)

	write := func(format string, args ...any) {
		fmt.Fprintf(&buf, format, args...)
	}
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		write("%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	write("%%PDF-1.4\n")

	kids := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			kids += " "
		}
		kids += fmt.Sprintf("%d 0 R", 3+2*i)
	}
	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))

	for i := 0; i < n; i++ {
		object(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] /Resources << >> /Contents %d 0 R >>",
			width, height, 4+2*i))
		object("<< /Length 0 >>\nstream\n\nendstream")
	}

	xrefStart := buf.Len()
	write("xref\n0 %d\n", len(offsets)+1)
	write("0000000000 65535 f \n")
	for _, off := range offsets {
		write("%010d 00000 n \n", off)
	}
	write("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefStart)

	return buf.Bytes()
}

// Letter returns a one-page US Letter PDF.
func Letter() []byte {
	return MultiPage(1, 612, 792)
}

// SignaturePNG encodes a solid-colour w×h PNG, standing in for a drawn
// signature image.
func SignaturePNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 20, G: 20, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
