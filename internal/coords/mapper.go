// Package coords translates field positions between the browser viewport
// (top-left origin, pixels, multiple pages stacked in one scroll column) and
// PDF user space (bottom-left origin, points, one page at a time).
package coords

// Letter aspect ratio used when a field only carries legacy absolute pixel
// coordinates and the placement viewport dimensions must be reconstructed.
const (
	LetterWidthPt  = 612.0
	LetterHeightPt = 792.0
)

// Placement is a resolution-independent field position: a page number and the
// fraction of page width/height from the page's top-left corner.
type Placement struct {
	XFraction  float64
	YFraction  float64
	PageNumber int
}

// Viewport describes the render geometry of the placement UI: every page is
// rendered at the same pixel size, stacked vertically with a fixed gap, below
// a fixed top padding, and centered horizontally starting at LeftOffsetPx.
type Viewport struct {
	PageWidthPx  float64
	PageHeightPx float64
	TopPaddingPx float64
	PageGapPx    float64
	LeftOffsetPx float64
}

// BoxSize is the drawn extent of a field, either in viewport pixels or in
// PDF points depending on which direction the mapping runs.
type BoxSize struct {
	Width  float64
	Height float64
}

// Point is an absolute position in PDF user space, origin bottom-left.
type Point struct {
	X           float64
	YFromBottom float64
}

// ToFractional maps a viewport pixel position to a page-relative placement.
// It subtracts the fixed layout offsets, then walks down the page column
// until the remaining Y falls inside a single page. The fractions are clamped
// so a box of boxPx never hangs past the page's right or bottom edge.
func ToFractional(pixelX, pixelY float64, vp Viewport, boxPx BoxSize) Placement {
	x := pixelX - vp.LeftOffsetPx
	y := pixelY - vp.TopPaddingPx

	page := 1
	// A non-positive step would walk forever; a degenerate viewport maps
	// everything onto page 1.
	if step := vp.PageHeightPx + vp.PageGapPx; step > 0 {
		for y > vp.PageHeightPx {
			y -= step
			page++
		}
	}
	if y < 0 {
		// Dropped into the top padding or a page gap: snap to the top of the
		// page the walk landed on.
		y = 0
	}

	xf := 0.0
	yf := 0.0
	if vp.PageWidthPx > 0 {
		xf = x / vp.PageWidthPx
	}
	if vp.PageHeightPx > 0 {
		yf = y / vp.PageHeightPx
	}

	maxXf := 1.0
	maxYf := 1.0
	if vp.PageWidthPx > 0 {
		maxXf = 1 - boxPx.Width/vp.PageWidthPx
	}
	if vp.PageHeightPx > 0 {
		maxYf = 1 - boxPx.Height/vp.PageHeightPx
	}

	return Placement{
		XFraction:  clamp(xf, 0, maxXf),
		YFraction:  clamp(yf, 0, maxYf),
		PageNumber: page,
	}
}

// ToAbsoluteOnPage maps a fractional placement into PDF point space for a page
// of pagePt size. The fractions measure from the page's top-left corner to the
// box's top-left corner; PDF positions are measured from the bottom-left, so
// the Y axis flips and the box height drops out of the top. The result is
// clamped so the whole box stays on the page regardless of upstream rounding.
func ToAbsoluteOnPage(xFraction, yFraction float64, pagePt, boxPt BoxSize) Point {
	x := xFraction * pagePt.Width
	y := pagePt.Height - yFraction*pagePt.Height - boxPt.Height

	return Point{
		X:           clamp(x, 0, max(0, pagePt.Width-boxPt.Width)),
		YFromBottom: clamp(y, 0, max(0, pagePt.Height-boxPt.Height)),
	}
}

// LegacyPixelsToFractional approximates a fractional placement for fields
// recorded before fractional coordinates existed. Those records hold raw
// viewport pixels with no viewport geometry, so the page is assumed to have
// rendered at viewportWidthPx with a US Letter aspect ratio. Best effort, not
// bit-exact.
func LegacyPixelsToFractional(pixelX, pixelY, viewportWidthPx float64, page int) Placement {
	if viewportWidthPx <= 0 {
		viewportWidthPx = LetterWidthPt
	}
	pageHeightPx := viewportWidthPx * (LetterHeightPt / LetterWidthPt)
	if page < 1 {
		page = 1
	}
	return Placement{
		XFraction:  clamp(pixelX/viewportWidthPx, 0, 1),
		YFraction:  clamp(pixelY/pageHeightPx, 0, 1),
		PageNumber: page,
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
