// Package pdf wraps the PDF libraries behind the small surface the signing
// service needs: byte-level validation and page geometry inspection.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageSize is a page's media box extent in PDF points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Info describes the structure of a parsed document.
type Info struct {
	PageCount int        `json:"page_count"`
	Pages     []PageSize `json:"pages"` // index 0 is page 1
}

// PageOrDefault returns the size of the 1-indexed page, falling back to the
// first page's size when the page number is out of range. Documents with no
// parseable geometry fall back to US Letter.
func (i *Info) PageOrDefault(page int) PageSize {
	if page >= 1 && page <= len(i.Pages) {
		return i.Pages[page-1]
	}
	if len(i.Pages) > 0 {
		return i.Pages[0]
	}
	return PageSize{Width: 612, Height: 792}
}

// Inspector reads document structure from raw PDF bytes. pdfcpu is the
// primary parser; ledongthuc/pdf is kept as a fallback for files pdfcpu's
// relaxed validation still rejects.
type Inspector struct {
	maxFileSize int64
}

// NewInspector creates an inspector that refuses inputs above maxFileSize.
func NewInspector(maxFileSize int64) *Inspector {
	return &Inspector{maxFileSize: maxFileSize}
}

// Inspect parses src and returns its page count and per-page sizes.
func (in *Inspector) Inspect(src []byte) (*Info, error) {
	if err := in.checkBytes(src); err != nil {
		return nil, err
	}

	info, err := in.inspectPDFCPU(src)
	if err == nil {
		return info, nil
	}

	fallback, ferr := in.inspectLedongthuc(src)
	if ferr != nil {
		// Report the primary parser's failure; the fallback rarely does better.
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return fallback, nil
}

func (in *Inspector) inspectPDFCPU(src []byte) (*Info, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(src), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}

	info := &Info{PageCount: ctx.PageCount}
	for _, d := range dims {
		info.Pages = append(info.Pages, PageSize{Width: d.Width, Height: d.Height})
	}
	return info, nil
}

func (in *Inspector) inspectLedongthuc(src []byte) (*Info, error) {
	r, err := pdf.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	info := &Info{PageCount: r.NumPage()}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			info.Pages = append(info.Pages, PageSize{Width: 612, Height: 792})
			continue
		}
		mb := p.V.Key("MediaBox")
		if mb.Len() == 4 {
			info.Pages = append(info.Pages, PageSize{
				Width:  mb.Index(2).Float64() - mb.Index(0).Float64(),
				Height: mb.Index(3).Float64() - mb.Index(1).Float64(),
			})
		} else {
			info.Pages = append(info.Pages, PageSize{Width: 612, Height: 792})
		}
	}
	return info, nil
}

func (in *Inspector) checkBytes(src []byte) error {
	if len(src) == 0 {
		return fmt.Errorf("empty input")
	}
	if in.maxFileSize > 0 && int64(len(src)) > in.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", len(src), in.maxFileSize)
	}
	return nil
}
