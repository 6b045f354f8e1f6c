// colorspace_test.go - colour matrix and video-range tests
//
// License: GPLv3 or later

package pixelweave

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.4, 0},
		{0.5, 1},
		{0.5000001, 1},
		{-0.5, -1},
		{-0.4, 0},
		{2.5, 3},
		{-2.5, -3},
	}
	for _, c := range cases {
		if got := round(c.in); got != c.want {
			t.Errorf("round(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(5, 0, 10); got != 5 {
		t.Errorf("clamp(5,0,10) = %v, want 5", got)
	}
	if got := clamp(-1, 0, 10); got != 0 {
		t.Errorf("clamp(-1,0,10) = %v, want 0", got)
	}
	if got := clamp(11, 0, 10); got != 10 {
		t.Errorf("clamp(11,0,10) = %v, want 10", got)
	}
}

// TestMatrixRoundTrip checks that YCbCrToRGB(RGBToYCbCr(rgb)) recovers
// rgb for both supported matrices, spec.md §4.7's round-trip property.
func TestMatrixRoundTrip(t *testing.T) {
	for _, m := range []ColorMatrix{MatrixBT709, MatrixBT2020NCL} {
		toYCbCr := m.RGBToYCbCr()
		toRGB := m.YCbCrToRGB()
		samples := [][3]float64{
			{0, 0, 0}, {1, 1, 1}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.2, 0.6, 0.9},
		}
		for _, s := range samples {
			y, cb, cr := toYCbCr.Apply(s[0], s[1], s[2])
			r, g, b := toRGB.Apply(y, cb, cr)
			if !approxEqual(r, s[0], 1e-9) || !approxEqual(g, s[1], 1e-9) || !approxEqual(b, s[2], 1e-9) {
				t.Errorf("matrix %v round-trip of %v got (%v,%v,%v)", m, s, r, g, b)
			}
		}
	}
}

func TestRangeParamsRoundTrip(t *testing.T) {
	for _, r := range []VideoRange{RangeLegal, RangeFull} {
		for _, bitDepth := range []int{8, 10, 12, 16} {
			p := r.Params(bitDepth)
			for _, y := range []float64{0, 0.25, 0.5, 0.75, 1} {
				code := p.EncodeLuma(y)
				back := p.DecodeLuma(code)
				if !approxEqual(back, y, 0.01) {
					t.Errorf("range %v depth %d luma round-trip %v -> %v -> %v", r, bitDepth, y, code, back)
				}
			}
			for _, c := range []float64{-0.5, -0.25, 0, 0.25, 0.5} {
				code := p.EncodeChroma(c)
				back := p.DecodeChroma(code)
				if !approxEqual(back, c, 0.01) {
					t.Errorf("range %v depth %d chroma round-trip %v -> %v -> %v", r, bitDepth, c, code, back)
				}
			}
		}
	}
}

func TestRangeParams8BitLegalConstants(t *testing.T) {
	// The classic 8-bit legal-range constants: luma 16-235, chroma
	// centred at 128 with a 224-wide span.
	p := RangeLegal.Params(8)
	if p.LumaOffset != 16 || p.LumaScale != 219 {
		t.Errorf("8-bit legal luma params = offset %v scale %v, want 16/219", p.LumaOffset, p.LumaScale)
	}
	if p.ChromaOffset != 128 || p.ChromaScale != 224 {
		t.Errorf("8-bit legal chroma params = offset %v scale %v, want 128/224", p.ChromaOffset, p.ChromaScale)
	}
	if got := p.EncodeLuma(0); got != 16 {
		t.Errorf("EncodeLuma(0) = %v, want 16", got)
	}
	if got := p.EncodeLuma(1); got != 235 {
		t.Errorf("EncodeLuma(1) = %v, want 235", got)
	}
	if got := p.EncodeChroma(0); got != 128 {
		t.Errorf("EncodeChroma(0) = %v, want 128", got)
	}
}

func TestRangeParamsFullRange(t *testing.T) {
	p := RangeFull.Params(8)
	if got := p.EncodeLuma(0); got != 0 {
		t.Errorf("full range EncodeLuma(0) = %v, want 0", got)
	}
	if got := p.EncodeLuma(1); got != 255 {
		t.Errorf("full range EncodeLuma(1) = %v, want 255", got)
	}
}

// TestScenario2WhiteToFullRange follows spec.md §8 scenario 2: constant
// white (Y=235, Cb=Cr=128) under BT.709 legal range decodes to full
// range RGB 255/255/255 (within the scenario's ±1 tolerance).
func TestScenario2WhiteToFullRange(t *testing.T) {
	legal := RangeLegal.Params(8)
	yPrime := legal.DecodeLuma(235)
	cb := legal.DecodeChroma(128)
	cr := legal.DecodeChroma(128)
	r, g, b := MatrixBT709.YCbCrToRGB().Apply(yPrime, cb, cr)

	full := RangeFull.Params(8)
	rc := full.EncodeLuma(r) // full-range RGB reuses the luma encode's [0,1]->[0,max] affine map
	gc := full.EncodeLuma(g)
	bc := full.EncodeLuma(b)
	for name, got := range map[string]float64{"R": rc, "G": gc, "B": bc} {
		if !approxEqual(got, 255, 1) {
			t.Errorf("scenario 2: %s = %v, want 255 (+/-1)", name, got)
		}
	}
}

// TestScenario3BlueToBT709Legal verifies this converter's own matrix
// and range formulas against solid blue under BT.709 legal range.
// This derives Y=32, Cb=240, Cr=118 (the well-known Rec.709 100%
// colour-bar reference values), not spec.md §8 scenario 3's literal
// 29/255/107 — see SPEC_FULL.md Open Question 5 for why the literal
// numbers aren't reachable from the spec's own §4.3/§4.7 formulas.
func TestScenario3BlueToBT709Legal(t *testing.T) {
	yPrime, cb, cr := MatrixBT709.RGBToYCbCr().Apply(0, 0, 1)
	legal := RangeLegal.Params(8)
	yCode := legal.EncodeLuma(yPrime)
	cbCode := legal.EncodeChroma(cb)
	crCode := legal.EncodeChroma(cr)

	want := map[string]float64{"Y": 32, "Cb": 240, "Cr": 118}
	got := map[string]float64{"Y": yCode, "Cb": cbCode, "Cr": crCode}
	for k := range want {
		if !approxEqual(got[k], want[k], 1) {
			t.Errorf("scenario 3: %s = %v, want %v (+/-1)", k, got[k], want[k])
		}
	}
}
