// Package burn renders a signer's submitted field values permanently into
// the PDF content. Marks are additive: the input bytes already contain every
// previous signer's marks and the output contains them unchanged plus the
// acting signer's new ones.
package burn

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/alinme/docsign/internal/coords"
	"github.com/alinme/docsign/internal/field"
	"github.com/alinme/docsign/internal/pdf"
)

const (
	// Default signature box when no raster image drives the size.
	sigBoxWidthPt  = 140.0
	sigBoxHeightPt = 45.0

	// Raster signature images draw at a quarter of their native size so the
	// visual result does not depend on the capture canvas resolution.
	sigImageScale = 0.25

	textBoxWidthPt  = 120.0
	textBoxHeightPt = 18.0
	checkboxSidePt  = 16.0

	textInsetPt   = 3.0
	textPointSize = 9.0
	notePointSize = 8.0
	noteLineGapPt = 11.0
)

// Signer carries the display identity drawn beneath signature marks.
type Signer struct {
	ID          string
	Name        string
	Company     string
	CompanyInfo string
}

// Result is the outcome of a successful burn.
type Result struct {
	PDF                []byte
	DrawnFieldIDs      []string
	UsedDefaultField   bool
	CompletedPageCount int
}

// Assembler burns field values into PDF bytes. It performs no I/O and keeps
// no state between calls; time is injected for deterministic output.
type Assembler struct {
	inspector *pdf.Inspector
	now       func() time.Time
}

// NewAssembler creates an assembler refusing source documents larger than
// maxFileSize bytes (0 for no cap).
func NewAssembler(maxFileSize int64) *Assembler {
	return &Assembler{
		inspector: pdf.NewInspector(maxFileSize),
		now:       time.Now,
	}
}

// WithClock overrides the date source. Used by tests.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// Burn draws every field due from the acting signer onto src and returns the
// new document bytes. Fields of other signers are untouched. A field whose
// page lies outside the document is clamped onto the nearest existing page,
// never rejected. Burn either returns fully rendered bytes or an error; it
// never produces partial output.
func (a *Assembler) Burn(src []byte, fields []field.Field, signer Signer, sub field.Submission) (*Result, error) {
	info, err := a.inspector.Inspect(src)
	if err != nil {
		return nil, &SourceError{Err: err}
	}

	due := field.ResolveForSigner(fields, signer.ID)
	usedDefault := false
	if len(fields) == 0 {
		// Documents created before field placement existed carry no
		// coordinates at all: those get one signature box on the last page.
		due = []field.Field{defaultSignatureField(info.PageCount)}
		usedDefault = true
	}

	sigBox, err := signatureBox(sub.SignatureImage)
	if err != nil {
		return nil, err
	}

	stamps := make(map[int][]*pdfcpumodel.Watermark)
	var drawn []string

	for _, f := range due {
		page := clampPage(f.Page, info.PageCount)
		size := info.PageOrDefault(page)
		pagePt := coords.BoxSize{Width: size.Width, Height: size.Height}

		var wms []*pdfcpumodel.Watermark
		switch f.Type {
		case field.TypeSignature:
			wms, err = a.signatureStamps(f, pagePt, sigBox, signer, sub, usedDefault)
		case field.TypeDate:
			wms, err = a.dateStamp(f, pagePt, sub)
		case field.TypeText:
			wms, err = a.textStamp(f, pagePt, sub)
		case field.TypeCheckbox:
			wms, err = a.checkboxStamp(f, pagePt, sub)
		}
		if err != nil {
			return nil, err
		}
		if len(wms) == 0 {
			continue
		}
		stamps[page] = append(stamps[page], wms...)
		drawn = append(drawn, f.ID)
	}

	out := src
	if len(stamps) > 0 {
		conf := pdfcpumodel.NewDefaultConfiguration()
		conf.ValidationMode = pdfcpumodel.ValidationRelaxed

		var buf bytes.Buffer
		if err := api.AddWatermarksSliceMap(bytes.NewReader(src), &buf, stamps, conf); err != nil {
			return nil, &SourceError{Err: fmt.Errorf("failed to apply stamps: %w", err)}
		}
		out = buf.Bytes()
	}

	return &Result{
		PDF:                out,
		DrawnFieldIDs:      drawn,
		UsedDefaultField:   usedDefault,
		CompletedPageCount: info.PageCount,
	}, nil
}

// signatureStamps draws the signature image at the field box plus up to three
// identity lines stacked beneath it. Without an image (possible only for the
// synthesized default field, since validation blocks it otherwise) the image
// is skipped but the name line still draws for the default field.
func (a *Assembler) signatureStamps(f field.Field, pagePt coords.BoxSize, box coords.BoxSize, signer Signer, sub field.Submission, isDefault bool) ([]*pdfcpumodel.Watermark, error) {
	pos := coords.ToAbsoluteOnPage(f.XFraction, f.YFraction, pagePt, box)

	var wms []*pdfcpumodel.Watermark
	if len(sub.SignatureImage) > 0 {
		desc := fmt.Sprintf("pos:bl, off:%.2f %.2f, scale:%.2f abs, rot:0, op:1",
			pos.X, pos.YFromBottom, sigImageScale)
		wm, err := api.ImageWatermarkForReader(bytes.NewReader(sub.SignatureImage), desc, true, false, types.POINTS)
		if err != nil {
			return nil, &ImageError{Err: err}
		}
		wms = append(wms, wm)
	} else if !isDefault {
		return nil, nil
	}

	lines := []string{}
	if signer.Name != "" {
		lines = append(lines, "Signed by: "+signer.Name)
	}
	if signer.Company != "" {
		lines = append(lines, signer.Company)
	}
	if signer.CompanyInfo != "" {
		lines = append(lines, signer.CompanyInfo)
	}

	for i, y := range noteLineYs(pos.YFromBottom, len(lines)) {
		wm, err := textStampAt(lines[i], "Helvetica", notePointSize, pos.X, y)
		if err != nil {
			return nil, err
		}
		wms = append(wms, wm)
	}
	return wms, nil
}

// noteLineYs returns the baseline Y of each identity line. Lines stack
// downward below the signature box; a box clamped to the page bottom has no
// room there, so the stack flips upward from the box bottom so no line lands
// off the page.
func noteLineYs(boxBottomY float64, n int) []float64 {
	ys := make([]float64, 0, n)
	if boxBottomY >= noteLineGapPt*float64(n) {
		y := boxBottomY
		for i := 0; i < n; i++ {
			y -= noteLineGapPt
			ys = append(ys, y)
		}
		return ys
	}
	y := boxBottomY
	for i := 0; i < n; i++ {
		ys = append(ys, y)
		y += noteLineGapPt
	}
	return ys
}

// dateStamp draws the submitted date string, or today's date when none was
// submitted. The format is locale-invariant.
func (a *Assembler) dateStamp(f field.Field, pagePt coords.BoxSize, sub field.Submission) ([]*pdfcpumodel.Watermark, error) {
	value, ok := sub.StringValue(f.ID)
	if !ok || strings.TrimSpace(value) == "" {
		value = a.now().Format("2006-01-02")
	}
	box := coords.BoxSize{Width: textBoxWidthPt, Height: textBoxHeightPt}
	pos := coords.ToAbsoluteOnPage(f.XFraction, f.YFraction, pagePt, box)

	wm, err := textStampAt(value, "Helvetica", textPointSize,
		pos.X+textInsetPt, pos.YFromBottom+box.Height-textPointSize-textInsetPt)
	if err != nil {
		return nil, err
	}
	return []*pdfcpumodel.Watermark{wm}, nil
}

// textStamp draws the submitted string; an absent or empty value draws nothing.
func (a *Assembler) textStamp(f field.Field, pagePt coords.BoxSize, sub field.Submission) ([]*pdfcpumodel.Watermark, error) {
	value, _ := sub.StringValue(f.ID)
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	box := coords.BoxSize{Width: textBoxWidthPt, Height: textBoxHeightPt}
	pos := coords.ToAbsoluteOnPage(f.XFraction, f.YFraction, pagePt, box)

	wm, err := textStampAt(value, "Helvetica", textPointSize,
		pos.X+textInsetPt, pos.YFromBottom+box.Height-textPointSize-textInsetPt)
	if err != nil {
		return nil, err
	}
	return []*pdfcpumodel.Watermark{wm}, nil
}

// checkboxStamp draws one bold X centered in the box when the submitted value
// is true, and nothing otherwise.
func (a *Assembler) checkboxStamp(f field.Field, pagePt coords.BoxSize, sub field.Submission) ([]*pdfcpumodel.Watermark, error) {
	if !sub.BoolValue(f.ID) {
		return nil, nil
	}
	box := coords.BoxSize{Width: checkboxSidePt, Height: checkboxSidePt}
	pos := coords.ToAbsoluteOnPage(f.XFraction, f.YFraction, pagePt, box)

	// Helvetica-Bold "X" at 12pt is roughly 8pt wide and 9pt tall; offsetting
	// by half of that from the box centre keeps the glyph visually centred.
	wm, err := textStampAt("X", "Helvetica-Bold", 12,
		pos.X+box.Width/2-4, pos.YFromBottom+box.Height/2-4.5)
	if err != nil {
		return nil, err
	}
	return []*pdfcpumodel.Watermark{wm}, nil
}

func textStampAt(text, font string, points float64, x, y float64) (*pdfcpumodel.Watermark, error) {
	desc := fmt.Sprintf("font:%s, points:%.0f, scale:1 abs, pos:bl, off:%.2f %.2f, fillcolor:#000000, rot:0, op:1",
		font, points, x, y)
	wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to build text stamp: %w", err)
	}
	return wm, nil
}

// signatureBox determines the signature box extent in points. A decodable
// raster image drives the size at sigImageScale of its native pixels; absent
// an image the fixed default applies. Undecodable bytes are an ImageError.
func signatureBox(img []byte) (coords.BoxSize, error) {
	if len(img) == 0 {
		return coords.BoxSize{Width: sigBoxWidthPt, Height: sigBoxHeightPt}, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return coords.BoxSize{}, &ImageError{Err: err}
	}
	return coords.BoxSize{
		Width:  float64(cfg.Width) * sigImageScale,
		Height: float64(cfg.Height) * sigImageScale,
	}, nil
}

// defaultSignatureField is the fallback for documents that predate field
// placement: one signature box in the bottom-right quadrant of the last page.
func defaultSignatureField(pageCount int) field.Field {
	if pageCount < 1 {
		pageCount = 1
	}
	return field.Field{
		ID:        "default-signature",
		Type:      field.TypeSignature,
		Page:      pageCount,
		XFraction: 0.60,
		YFraction: 0.80,
	}
}

func clampPage(page, total int) int {
	if total < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}
