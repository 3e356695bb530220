package coords

import (
	"math"
	"testing"
)

func TestToFractionalFirstPage(t *testing.T) {
	vp := Viewport{
		PageWidthPx:  800,
		PageHeightPx: 1035,
		TopPaddingPx: 20,
		PageGapPx:    10,
	}

	p := ToFractional(400, 20+517.5, vp, BoxSize{})
	if p.PageNumber != 1 {
		t.Fatalf("expected page 1, got %d", p.PageNumber)
	}
	if math.Abs(p.XFraction-0.5) > 1e-9 {
		t.Errorf("expected xFraction 0.5, got %f", p.XFraction)
	}
	if math.Abs(p.YFraction-0.5) > 1e-9 {
		t.Errorf("expected yFraction 0.5, got %f", p.YFraction)
	}
}

func TestToFractionalWalksPages(t *testing.T) {
	vp := Viewport{
		PageWidthPx:  800,
		PageHeightPx: 1000,
		TopPaddingPx: 20,
		PageGapPx:    10,
	}

	tests := []struct {
		name     string
		pixelY   float64
		wantPage int
		wantYf   float64
	}{
		{"top of page 1", 20, 1, 0},
		{"bottom of page 1", 1020, 1, 1},
		{"top of page 2", 1030 + 1, 2, 0.001},
		{"middle of page 3", 20 + 2*1010 + 500, 3, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ToFractional(0, tt.pixelY, vp, BoxSize{})
			if p.PageNumber != tt.wantPage {
				t.Errorf("page = %d, want %d", p.PageNumber, tt.wantPage)
			}
			if math.Abs(p.YFraction-tt.wantYf) > 1e-6 {
				t.Errorf("yFraction = %f, want %f", p.YFraction, tt.wantYf)
			}
		})
	}
}

func TestToFractionalClampsBoxInsidePage(t *testing.T) {
	vp := Viewport{PageWidthPx: 800, PageHeightPx: 1000}
	box := BoxSize{Width: 160, Height: 50}

	// Drop at the far bottom-right corner.
	p := ToFractional(800, 1000, vp, box)
	if p.XFraction > 1-160.0/800 {
		t.Errorf("xFraction %f leaves box hanging off the right edge", p.XFraction)
	}
	if p.YFraction > 1-50.0/1000 {
		t.Errorf("yFraction %f leaves box hanging off the bottom edge", p.YFraction)
	}

	// Negative inputs clamp to zero.
	p = ToFractional(-40, -40, vp, box)
	if p.XFraction != 0 || p.YFraction != 0 {
		t.Errorf("expected origin clamp, got (%f, %f)", p.XFraction, p.YFraction)
	}
	if p.PageNumber != 1 {
		t.Errorf("expected page 1, got %d", p.PageNumber)
	}
}

func TestToFractionalDegenerateViewport(t *testing.T) {
	// A zero-height viewport must not hang the page walk: everything maps
	// onto page 1 with a zero Y fraction.
	p := ToFractional(10, 50, Viewport{PageWidthPx: 800}, BoxSize{})
	if p.PageNumber != 1 {
		t.Errorf("expected page 1, got %d", p.PageNumber)
	}
	if p.YFraction != 0 {
		t.Errorf("expected yFraction 0, got %f", p.YFraction)
	}
	if math.Abs(p.XFraction-10.0/800) > 1e-9 {
		t.Errorf("expected xFraction %f, got %f", 10.0/800, p.XFraction)
	}

	// Fully degenerate: both dimensions zero.
	p = ToFractional(10, 50, Viewport{}, BoxSize{})
	if p.PageNumber != 1 || p.XFraction != 0 || p.YFraction != 0 {
		t.Errorf("expected origin on page 1, got page %d (%f, %f)",
			p.PageNumber, p.XFraction, p.YFraction)
	}
}

func TestToAbsoluteOnPageFlipsYAxis(t *testing.T) {
	pagePt := BoxSize{Width: 612, Height: 792}
	boxPt := BoxSize{Width: 140, Height: 45}

	// Top-left corner of the page maps to the top in PDF space.
	pt := ToAbsoluteOnPage(0, 0, pagePt, boxPt)
	if pt.X != 0 {
		t.Errorf("expected x 0, got %f", pt.X)
	}
	if math.Abs(pt.YFromBottom-(792-45)) > 1e-9 {
		t.Errorf("expected yFromBottom %f, got %f", 792-45.0, pt.YFromBottom)
	}

	// Bottom-right clamps so the box stays on the page.
	pt = ToAbsoluteOnPage(1, 1, pagePt, boxPt)
	if math.Abs(pt.X-(612-140)) > 1e-9 {
		t.Errorf("expected x %f, got %f", 612-140.0, pt.X)
	}
	if pt.YFromBottom != 0 {
		t.Errorf("expected yFromBottom 0, got %f", pt.YFromBottom)
	}
}

// Round trip: viewport pixels -> fraction -> PDF points should land within a
// point of the direct pixel-to-point scaling, except where edge clamping kicks in.
func TestRoundTripWithinOnePoint(t *testing.T) {
	vp := Viewport{PageWidthPx: 816, PageHeightPx: 1056, TopPaddingPx: 24, PageGapPx: 12}
	pagePt := BoxSize{Width: 612, Height: 792}
	boxPt := BoxSize{Width: 140, Height: 45}
	boxPx := BoxSize{
		Width:  boxPt.Width * vp.PageWidthPx / pagePt.Width,
		Height: boxPt.Height * vp.PageHeightPx / pagePt.Height,
	}
	scaleX := pagePt.Width / vp.PageWidthPx
	scaleY := pagePt.Height / vp.PageHeightPx

	for px := 0.0; px <= vp.PageWidthPx-boxPx.Width; px += 97 {
		for py := 0.0; py <= vp.PageHeightPx-boxPx.Height; py += 103 {
			p := ToFractional(px, vp.TopPaddingPx+py, vp, boxPx)
			got := ToAbsoluteOnPage(p.XFraction, p.YFraction, pagePt, boxPt)

			wantX := px * scaleX
			wantY := pagePt.Height - py*scaleY - boxPt.Height

			if math.Abs(got.X-wantX) > 1 || math.Abs(got.YFromBottom-wantY) > 1 {
				t.Fatalf("round trip at (%f, %f): got (%f, %f), want (%f, %f)",
					px, py, got.X, got.YFromBottom, wantX, wantY)
			}
		}
	}
}

func TestLegacyPixelsToFractional(t *testing.T) {
	// 800px wide viewport, Letter aspect: page height is 800*792/612.
	p := LegacyPixelsToFractional(400, 517.6470588, 800, 2)
	if p.PageNumber != 2 {
		t.Errorf("expected page 2, got %d", p.PageNumber)
	}
	if math.Abs(p.XFraction-0.5) > 1e-6 {
		t.Errorf("expected xFraction 0.5, got %f", p.XFraction)
	}
	if math.Abs(p.YFraction-0.5) > 1e-6 {
		t.Errorf("expected yFraction 0.5, got %f", p.YFraction)
	}

	// Zero viewport width falls back to point-space dimensions.
	p = LegacyPixelsToFractional(306, 396, 0, 0)
	if p.PageNumber != 1 {
		t.Errorf("expected page clamp to 1, got %d", p.PageNumber)
	}
	if math.Abs(p.XFraction-0.5) > 1e-6 || math.Abs(p.YFraction-0.5) > 1e-6 {
		t.Errorf("expected centre, got (%f, %f)", p.XFraction, p.YFraction)
	}
}
