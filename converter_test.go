// converter_test.go - VideoConverter precondition and GPU conversion tests
//
// License: GPLv3 or later

package pixelweave

import (
	"testing"
	"time"
)

func validSrcDst() (VideoFrame, []byte, VideoFrame) {
	src := VideoFrame{Width: 4, Height: 2, Stride: PixelFormatRGBA8.MinStride(4), Format: PixelFormatRGBA8, Range: RangeFull, Matrix: MatrixBT709}
	dst := VideoFrame{Width: 4, Height: 2, Stride: PixelFormatBGRA8.MinStride(4), Format: PixelFormatBGRA8, Range: RangeFull, Matrix: MatrixBT709}
	return src, make([]byte, src.BufferSize()), dst
}

// TestCheckPreconditionsOrder exercises spec.md §4.10's precedence:
// dimension checks first (always InvalidInputResolutionError, even for
// a dst-side zero dimension), then input format membership, then
// output format membership.
func TestCheckPreconditionsOrder(t *testing.T) {
	src, data, dst := validSrcDst()

	t.Run("zero src width", func(t *testing.T) {
		s := src
		s.Width = 0
		if err := checkPreconditions(s, data, dst); ResultOf(err) != InvalidInputResolutionError {
			t.Errorf("ResultOf = %v, want InvalidInputResolutionError", ResultOf(err))
		}
	})

	t.Run("zero dst height still reports InvalidInputResolutionError", func(t *testing.T) {
		d := dst
		d.Height = 0
		if err := checkPreconditions(src, data, d); ResultOf(err) != InvalidInputResolutionError {
			t.Errorf("ResultOf = %v, want InvalidInputResolutionError (InvalidOutputResolutionError is reserved for future upper-bound checks)", ResultOf(err))
		}
	})

	t.Run("unsupported input format checked before output format", func(t *testing.T) {
		s := src
		s.Format = pixelFormatCount // out of range: not a member of SupportedInputFormats
		d := dst
		d.Format = pixelFormatCount // also invalid, but input is checked first
		if err := checkPreconditions(s, data, d); ResultOf(err) != InvalidInputFormatError {
			t.Errorf("ResultOf = %v, want InvalidInputFormatError", ResultOf(err))
		}
	})

	t.Run("unsupported output format", func(t *testing.T) {
		d := dst
		d.Format = pixelFormatCount
		if err := checkPreconditions(src, data, d); ResultOf(err) != InvalidOutputFormatError {
			t.Errorf("ResultOf = %v, want InvalidOutputFormatError", ResultOf(err))
		}
	})

	t.Run("short stride surfaces as InvalidInputResolutionError via Validate", func(t *testing.T) {
		s := src
		s.Stride = 1
		if err := checkPreconditions(s, data, dst); ResultOf(err) != InvalidInputResolutionError {
			t.Errorf("ResultOf = %v, want InvalidInputResolutionError", ResultOf(err))
		}
	})

	t.Run("short source buffer", func(t *testing.T) {
		short := make([]byte, src.BufferSize()-1)
		if err := checkPreconditions(src, short, dst); ResultOf(err) != InvalidInputResolutionError {
			t.Errorf("ResultOf = %v, want InvalidInputResolutionError", ResultOf(err))
		}
	})

	t.Run("well-formed pair passes", func(t *testing.T) {
		if err := checkPreconditions(src, data, dst); err != nil {
			t.Errorf("checkPreconditions on a well-formed pair returned %v", err)
		}
	})
}

// TestScenario6ZeroWidthError follows spec.md §8 scenario 6: src.width
// = 0 must raise InvalidInputResolutionError without touching dst.
func TestScenario6ZeroWidthError(t *testing.T) {
	src, data, dst := validSrcDst()
	src.Width = 0

	dstBuf := make([]byte, dst.BufferSize())
	sentinel := append([]byte(nil), dstBuf...)

	err := checkPreconditions(src, data, dst)
	if err == nil {
		t.Fatal("expected an error for zero src.width")
	}
	if ResultOf(err) != InvalidInputResolutionError {
		t.Errorf("ResultOf(err) = %v, want InvalidInputResolutionError", ResultOf(err))
	}
	for i := range dstBuf {
		if dstBuf[i] != sentinel[i] {
			t.Fatalf("dst buffer was modified at byte %d despite a precondition failure", i)
		}
	}
}

// TestConvertGPUPath exercises a live conversion through the Vulkan
// device; skipped headless per the teacher's own GPU test convention
// (video_voodoo_test.go's "Vulkan not available" skip).
func TestConvertGPUPath(t *testing.T) {
	device, err := CreateDevice()
	if err != nil {
		t.Skipf("no Vulkan device available: %v", err)
	}
	defer device.Release()

	converter, err := device.CreateVideoConverter()
	if err != nil {
		t.Fatalf("CreateVideoConverter failed: %v", err)
	}
	defer converter.Release()

	src, data, dst := validSrcDst()
	out, err := converter.Convert(src, data, dst)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(out) != dst.BufferSize() {
		t.Errorf("Convert output length = %d, want %d", len(out), dst.BufferSize())
	}
}

// TestConvertGPUPathReusesCache checks that two calls with identical
// frame properties don't rebuild the pipeline (spec.md §4.10's caching
// invariant); it can only observe this indirectly (no panic, no
// leaked/double-freed resources) since the cache itself is private.
func TestConvertGPUPathReusesCache(t *testing.T) {
	device, err := CreateDevice()
	if err != nil {
		t.Skipf("no Vulkan device available: %v", err)
	}
	defer device.Release()

	converter, err := device.CreateVideoConverter()
	if err != nil {
		t.Fatalf("CreateVideoConverter failed: %v", err)
	}
	defer converter.Release()

	src, data, dst := validSrcDst()
	for i := 0; i < 3; i++ {
		if _, err := converter.Convert(src, data, dst); err != nil {
			t.Fatalf("Convert call %d failed: %v", i, err)
		}
	}
}

// --- Universal Invariants (spec.md §8) requiring a live GPU device ----------
//
// These all skip headless, per the teacher's own GPU test convention.

// TestEverySupportedFormatPairConverts sweeps a representative sample
// of (input, output) format pairs drawn from SupportedInputFormats x
// SupportedOutputFormats and checks each one converts without error
// and fully populates the destination buffer. A full N x N sweep over
// all 25 formats is 625 GPU pipeline builds; this samples every format
// as both a source once and a destination once instead; log() in the
// workflow sense isn't available here, so any narrowing is called out
// in this comment: coverage is every format paired with its
// succeeding format in the enumeration (wrapping around), not the
// full cross product.
func TestEverySupportedFormatPairConverts(t *testing.T) {
	device, err := CreateDevice()
	if err != nil {
		t.Skipf("no Vulkan device available: %v", err)
	}
	defer device.Release()

	converter, err := device.CreateVideoConverter()
	if err != nil {
		t.Fatalf("CreateVideoConverter failed: %v", err)
	}
	defer converter.Release()

	width, height := 8, 8
	for f := PixelFormat(0); f < pixelFormatCount; f++ {
		srcFmt := f
		dstFmt := (f + 1) % pixelFormatCount
		src := VideoFrame{Width: width, Height: height, Stride: srcFmt.MinStride(width), Format: srcFmt, Range: RangeFull, Matrix: MatrixBT709}
		dst := VideoFrame{Width: width, Height: height, Stride: dstFmt.MinStride(width), Format: dstFmt, Range: RangeFull, Matrix: MatrixBT709}
		if info := lookup(srcFmt); info.layout == LayoutPlanar {
			cw, _ := src.ChromaDimensions()
			src.ChromaStride = cw * srcFmt.ByteDepth()
		} else if info.layout == LayoutBiplanar {
			cw, _ := src.ChromaDimensions()
			src.ChromaStride = cw * 2 * srcFmt.ByteDepth()
		}
		if info := lookup(dstFmt); info.layout == LayoutPlanar {
			cw, _ := dst.ChromaDimensions()
			dst.ChromaStride = cw * dstFmt.ByteDepth()
		} else if info.layout == LayoutBiplanar {
			cw, _ := dst.ChromaDimensions()
			dst.ChromaStride = cw * 2 * dstFmt.ByteDepth()
		}

		data := make([]byte, src.BufferSize())
		out, err := converter.Convert(src, data, dst)
		if err != nil {
			t.Errorf("%s -> %s: Convert failed: %v", srcFmt, dstFmt, err)
			continue
		}
		if len(out) != dst.BufferSize() {
			t.Errorf("%s -> %s: output length %d, want %d", srcFmt, dstFmt, len(out), dst.BufferSize())
		}
	}
}

// TestConvertDeterministic checks spec.md §8's determinism invariant:
// two Convert calls with identical inputs produce identical outputs.
func TestConvertDeterministic(t *testing.T) {
	device, err := CreateDevice()
	if err != nil {
		t.Skipf("no Vulkan device available: %v", err)
	}
	defer device.Release()

	converter, err := device.CreateVideoConverter()
	if err != nil {
		t.Fatalf("CreateVideoConverter failed: %v", err)
	}
	defer converter.Release()

	src, data, dst := validSrcDst()
	first, err := converter.Convert(src, data, dst)
	if err != nil {
		t.Fatalf("first Convert failed: %v", err)
	}
	second, err := converter.Convert(src, data, dst)
	if err != nil {
		t.Fatalf("second Convert failed: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Convert is non-deterministic: byte %d differs (%d vs %d)", i, first[i], second[i])
		}
	}
}

// TestCacheReuseIsFasterThanRebuild checks spec.md §8's property-key
// cache timing invariant: a call that reuses the cached pipeline/
// buffers must not be slower than a fresh build by more than a
// generous slack factor. Timing assertions on shared CI hardware are
// inherently noisy, so this uses a slack factor of 5 (the spec's own
// figure) rather than asserting reuse is merely no-slower.
func TestCacheReuseIsFasterThanRebuild(t *testing.T) {
	device, err := CreateDevice()
	if err != nil {
		t.Skipf("no Vulkan device available: %v", err)
	}
	defer device.Release()

	converter, err := device.CreateVideoConverter()
	if err != nil {
		t.Fatalf("CreateVideoConverter failed: %v", err)
	}
	defer converter.Release()

	src, data, dst := validSrcDst()

	buildStart := time.Now()
	if _, err := converter.Convert(src, data, dst); err != nil {
		t.Fatalf("initial (pipeline-building) Convert failed: %v", err)
	}
	buildElapsed := time.Since(buildStart)

	reuseStart := time.Now()
	if _, err := converter.Convert(src, data, dst); err != nil {
		t.Fatalf("cache-reusing Convert failed: %v", err)
	}
	reuseElapsed := time.Since(reuseStart)

	const slackFactor = 5
	if reuseElapsed > buildElapsed*slackFactor {
		t.Errorf("cache-reusing call (%v) was not within %dx of the pipeline-building call (%v)", reuseElapsed, slackFactor, buildElapsed)
	}
}

// TestCacheInvalidatesAcrossAlternatingProperties exercises spec.md
// §8's invalidation invariant across >= 100 alternations between two
// distinct property sets, checking only that every call still
// succeeds and returns a correctly sized buffer (the cache rebuild
// path is exercised on every other call by construction).
func TestCacheInvalidatesAcrossAlternatingProperties(t *testing.T) {
	device, err := CreateDevice()
	if err != nil {
		t.Skipf("no Vulkan device available: %v", err)
	}
	defer device.Release()

	converter, err := device.CreateVideoConverter()
	if err != nil {
		t.Fatalf("CreateVideoConverter failed: %v", err)
	}
	defer converter.Release()

	srcA := VideoFrame{Width: 4, Height: 2, Stride: PixelFormatRGBA8.MinStride(4), Format: PixelFormatRGBA8, Range: RangeFull, Matrix: MatrixBT709}
	dstA := VideoFrame{Width: 4, Height: 2, Stride: PixelFormatBGRA8.MinStride(4), Format: PixelFormatBGRA8, Range: RangeFull, Matrix: MatrixBT709}
	srcB := VideoFrame{Width: 6, Height: 3, Stride: PixelFormatRGBA8.MinStride(6), Format: PixelFormatRGBA8, Range: RangeLegal, Matrix: MatrixBT2020NCL}
	dstB := VideoFrame{Width: 3, Height: 2, Stride: PixelFormatI420.MinStride(3), ChromaStride: 2, Format: PixelFormatI420, Range: RangeLegal, Matrix: MatrixBT2020NCL}

	dataA := make([]byte, srcA.BufferSize())
	dataB := make([]byte, srcB.BufferSize())

	for i := 0; i < 100; i++ {
		src, data, dst := srcA, dataA, dstA
		if i%2 == 1 {
			src, data, dst = srcB, dataB, dstB
		}
		out, err := converter.Convert(src, data, dst)
		if err != nil {
			t.Fatalf("alternation %d: Convert failed: %v", i, err)
		}
		if len(out) != dst.BufferSize() {
			t.Fatalf("alternation %d: output length %d, want %d", i, len(out), dst.BufferSize())
		}
	}
}

// TestDispatchCoversNonMultipleOf32Dimensions checks spec.md §8's
// dispatch-coverage invariant for dimensions that aren't multiples of
// the workgroup's 32x32-pixel footprint (16x16 workgroups of 2x2
// output blocks): the tail row/column past the last full workgroup
// must still be correctly converted, not left unwritten or garbled.
// Decodes the GPU output back to RGBA8 with the host-side oracle and
// compares the last row and last column against the known source
// gradient, the same way the in-bounds interior is implicitly checked
// by every other GPU test's buffer-size assertion.
func TestDispatchCoversNonMultipleOf32Dimensions(t *testing.T) {
	device, err := CreateDevice()
	if err != nil {
		t.Skipf("no Vulkan device available: %v", err)
	}
	defer device.Release()

	converter, err := device.CreateVideoConverter()
	if err != nil {
		t.Fatalf("CreateVideoConverter failed: %v", err)
	}
	defer converter.Release()

	width, height := 1281, 721 // 1281 = 32*40+1, 721 = 32*22+17: deliberately not multiples of 32
	src := VideoFrame{Width: width, Height: height, Stride: PixelFormatRGBA8.MinStride(width), Format: PixelFormatRGBA8, Range: RangeFull, Matrix: MatrixBT709}
	dst := VideoFrame{Width: width, Height: height, Stride: PixelFormatBGRA8.MinStride(width), Format: PixelFormatBGRA8, Range: RangeFull, Matrix: MatrixBT709}

	data := GenerateGradientRGBA8(width, height)
	out, err := converter.Convert(src, data, dst)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(out) != dst.BufferSize() {
		t.Fatalf("output length %d, want %d", len(out), dst.BufferSize())
	}

	decoded, err := DecodeToRGBA8(dst, out)
	if err != nil {
		t.Fatalf("DecodeToRGBA8 failed: %v", err)
	}
	assertRGBA8Close(t, "tail row", width, 1, data[(height-1)*width*4:], decoded[(height-1)*width*4:], 2)
	for y := 0; y < height; y++ {
		srcOff := y*width*4 + (width-1)*4
		dstOff := srcOff
		for c := 0; c < 3; c++ {
			diff := int(data[srcOff+c]) - int(decoded[dstOff+c])
			if diff < 0 {
				diff = -diff
			}
			if diff > 2 {
				t.Fatalf("tail column at y=%d channel %d: got %d, want %d (+/-2)", y, c, decoded[dstOff+c], data[srcOff+c])
			}
		}
	}
}
