// frame_test.go - VideoFrame derived-geometry tests
//
// License: GPLv3 or later

package pixelweave

import "testing"

func TestBufferSizeInterleaved(t *testing.T) {
	f := VideoFrame{Width: 4, Height: 2, Stride: PixelFormatRGBA8.MinStride(4), Format: PixelFormatRGBA8}
	if got, want := f.BufferSize(), 4*4*2; got != want {
		t.Errorf("BufferSize() = %d, want %d", got, want)
	}
}

func TestBufferSizePlanar420(t *testing.T) {
	width, height := 4, 2
	f := VideoFrame{
		Width: width, Height: height,
		Stride:       PixelFormatI420.MinStride(width),
		ChromaStride: width / 2, // 4:2:0 chroma is ceil(width/2) wide, 1 byte/sample
		Format:       PixelFormatI420,
	}
	chromaW, chromaH := f.ChromaDimensions()
	want := f.Stride*height + 2*f.ChromaStride*chromaH
	if got := f.BufferSize(); got != want {
		t.Errorf("BufferSize() = %d, want %d", got, want)
	}
	if chromaW != 2 || chromaH != 1 {
		t.Errorf("ChromaDimensions() = (%d,%d), want (2,1)", chromaW, chromaH)
	}
}

func TestBufferSizeBiplanar420(t *testing.T) {
	width, height := 4, 2
	f := VideoFrame{
		Width: width, Height: height,
		Stride:       PixelFormatNV12.MinStride(width),
		ChromaStride: (width / 2) * 2, // biplanar: Cb,Cr interleaved, 2 samples/chroma pixel
		Format:       PixelFormatNV12,
	}
	_, chromaH := f.ChromaDimensions()
	want := f.Stride*height + f.ChromaStride*chromaH
	if got := f.BufferSize(); got != want {
		t.Errorf("BufferSize() = %d, want %d", got, want)
	}
}

func TestPlaneOffsetsPlanar(t *testing.T) {
	width, height := 4, 2
	f := VideoFrame{
		Width: width, Height: height,
		Stride:       PixelFormatI420.MinStride(width),
		ChromaStride: width / 2,
		Format:       PixelFormatI420,
	}
	offsets := f.PlaneOffsets()
	if len(offsets) != 3 {
		t.Fatalf("PlaneOffsets() has %d entries, want 3", len(offsets))
	}
	_, chromaH := f.ChromaDimensions()
	lumaSize := f.Stride * height
	if offsets[0] != 0 {
		t.Errorf("plane 0 offset = %d, want 0", offsets[0])
	}
	if offsets[1] != lumaSize {
		t.Errorf("plane 1 offset = %d, want %d", offsets[1], lumaSize)
	}
	if offsets[2] != lumaSize+f.ChromaStride*chromaH {
		t.Errorf("plane 2 offset = %d, want %d", offsets[2], lumaSize+f.ChromaStride*chromaH)
	}
}

func TestPlaneOffsetsInterleavedSinglePlane(t *testing.T) {
	f := VideoFrame{Width: 4, Height: 2, Stride: PixelFormatRGBA8.MinStride(4), Format: PixelFormatRGBA8}
	offsets := f.PlaneOffsets()
	if len(offsets) != 1 || offsets[0] != 0 {
		t.Errorf("PlaneOffsets() = %v, want [0]", offsets)
	}
}

func TestValidateZeroDimensions(t *testing.T) {
	f := VideoFrame{Width: 0, Height: 2, Stride: 16, Format: PixelFormatRGBA8}
	err := f.Validate()
	if err == nil {
		t.Fatal("Validate() with zero width returned nil error")
	}
	if ResultOf(err) != InvalidInputResolutionError {
		t.Errorf("ResultOf(err) = %v, want InvalidInputResolutionError", ResultOf(err))
	}
}

func TestValidateShortStride(t *testing.T) {
	f := VideoFrame{Width: 4, Height: 2, Stride: 4, Format: PixelFormatRGBA8} // needs 16
	err := f.Validate()
	if err == nil {
		t.Fatal("Validate() with too-short stride returned nil error")
	}
	if ResultOf(err) != InvalidInputResolutionError {
		t.Errorf("ResultOf(err) = %v, want InvalidInputResolutionError", ResultOf(err))
	}
}

func TestValidateShortChromaStride(t *testing.T) {
	f := VideoFrame{
		Width: 4, Height: 2,
		Stride:       PixelFormatI420.MinStride(4),
		ChromaStride: 1, // needs 2
		Format:       PixelFormatI420,
	}
	err := f.Validate()
	if err == nil {
		t.Fatal("Validate() with too-short chroma stride returned nil error")
	}
	if ResultOf(err) != InvalidInputResolutionError {
		t.Errorf("ResultOf(err) = %v, want InvalidInputResolutionError", ResultOf(err))
	}
}

func TestValidateAccepts(t *testing.T) {
	f := VideoFrame{
		Width: 4, Height: 2,
		Stride:       PixelFormatI420.MinStride(4),
		ChromaStride: 2,
		Format:       PixelFormatI420,
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Validate() on a well-formed frame returned %v", err)
	}
}

func TestSameProperties(t *testing.T) {
	base := VideoFrame{Width: 4, Height: 2, Stride: 16, Format: PixelFormatRGBA8, Range: RangeLegal, Matrix: MatrixBT709}
	same := base
	if !base.SameProperties(same) {
		t.Error("identical frames compared unequal")
	}

	diffs := []VideoFrame{
		{Width: 8, Height: 2, Stride: 16, Format: PixelFormatRGBA8},
		{Width: 4, Height: 4, Stride: 16, Format: PixelFormatRGBA8},
		{Width: 4, Height: 2, Stride: 32, Format: PixelFormatRGBA8},
		{Width: 4, Height: 2, Stride: 16, Format: PixelFormatBGRA8},
		{Width: 4, Height: 2, Stride: 16, Format: PixelFormatRGBA8, Range: RangeFull},
		{Width: 4, Height: 2, Stride: 16, Format: PixelFormatRGBA8, Matrix: MatrixBT2020NCL},
	}
	for i, d := range diffs {
		if base.SameProperties(d) {
			t.Errorf("diffs[%d] compared equal to base, want unequal", i)
		}
	}
}
