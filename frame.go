// frame.go - VideoFrame descriptor and derived geometry
//
// License: GPLv3 or later

package pixelweave

import "fmt"

// VideoFrame describes the layout of one image buffer: its
// dimensions, pixel format, the strides of its planes, and the
// colourimetry (range + matrix) its samples were encoded with. It
// carries no pixel data itself — spec.md's source/destination bytes
// live in the host-visible GPU buffers created by Device.CreateBuffer
// (buffer.go); VideoFrame is purely the descriptor every conversion
// precondition is checked against, in the same spirit as the teacher's
// plain-data FrameSnapshot/DisplayConfig structs in video_interface.go.
type VideoFrame struct {
	Width  int
	Height int

	// Stride is the row pitch in bytes of plane 0: the sole plane for
	// interleaved/packed formats, the luma plane for planar/biplanar
	// formats.
	Stride int

	// ChromaStride is the row pitch in bytes of the chroma plane(s).
	// Unused (must be 0) for interleaved and packed formats, whose
	// chroma lives inside plane 0.
	ChromaStride int

	Format PixelFormat
	Range  VideoRange
	Matrix ColorMatrix
}

// ChromaDimensions returns this frame's chroma plane width/height.
func (f VideoFrame) ChromaDimensions() (width, height int) {
	return f.Format.ChromaDimensions(f.Width, f.Height)
}

// minChromaStride returns the minimum valid ChromaStride for this
// frame's format and chroma width: one sample per chroma pixel for
// planar formats, two interleaved samples per chroma pixel (Cb and
// Cr side by side) for biplanar formats, and 0 (unused) otherwise.
func (f VideoFrame) minChromaStride(chromaWidth int) int {
	info := lookup(f.Format)
	switch info.layout {
	case LayoutPlanar:
		return chromaWidth * f.Format.ByteDepth()
	case LayoutBiplanar:
		return chromaWidth * 2 * f.Format.ByteDepth()
	default:
		return 0
	}
}

// PlaneOffsets returns the byte offset of each plane within a single
// contiguous buffer laid out plane-major (plane 0 first, then plane 1,
// then plane 2), the same layout BufferSize assumes when sizing the
// host-visible buffer a frame's bytes are copied into.
func (f VideoFrame) PlaneOffsets() []int {
	info := lookup(f.Format)
	offsets := make([]int, info.planeCount)
	offsets[0] = 0
	if info.planeCount == 1 {
		return offsets
	}
	chromaW, chromaH := f.ChromaDimensions()
	lumaSize := f.Stride * f.Height
	chromaPlaneSize := f.ChromaStride * chromaH
	_ = chromaW
	switch info.layout {
	case LayoutBiplanar:
		offsets[1] = lumaSize
	case LayoutPlanar:
		offsets[1] = lumaSize
		offsets[2] = lumaSize + chromaPlaneSize
	}
	return offsets
}

// BufferSize returns the total number of bytes this frame occupies
// across all of its planes, given its Stride/ChromaStride.
func (f VideoFrame) BufferSize() int {
	info := lookup(f.Format)
	lumaSize := f.Stride * f.Height
	if info.planeCount == 1 {
		return lumaSize
	}
	_, chromaH := f.ChromaDimensions()
	chromaPlaneSize := f.ChromaStride * chromaH
	if info.layout == LayoutBiplanar {
		return lumaSize + chromaPlaneSize
	}
	return lumaSize + 2*chromaPlaneSize
}

// Validate checks the structural invariants spec.md §4.3/§4.10
// requires of a frame descriptor: positive dimensions, a stride wide
// enough to hold one row, and (for planar/biplanar formats) a chroma
// stride wide enough to hold one chroma row.
func (f VideoFrame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return newError("VideoFrame.Validate", InvalidInputResolutionError,
			fmt.Sprintf("width=%d height=%d must both be positive", f.Width, f.Height), nil)
	}
	if f.Stride < f.Format.MinStride(f.Width) {
		return newError("VideoFrame.Validate", InvalidInputResolutionError,
			fmt.Sprintf("stride %d is less than minimum %d for %s at width %d", f.Stride, f.Format.MinStride(f.Width), f.Format, f.Width), nil)
	}
	info := lookup(f.Format)
	if info.layout == LayoutPlanar || info.layout == LayoutBiplanar {
		chromaW, _ := f.ChromaDimensions()
		if min := f.minChromaStride(chromaW); f.ChromaStride < min {
			return newError("VideoFrame.Validate", InvalidInputResolutionError,
				fmt.Sprintf("chroma stride %d is less than minimum %d for %s", f.ChromaStride, min, f.Format), nil)
		}
	}
	return nil
}

// SameProperties reports whether f and other share every property a
// compiled pipeline and its shader specialisation are keyed on:
// dimensions, strides, format, range and matrix. A converter reuses
// its cached pipeline/buffers across calls exactly when both the
// source and destination frames compare equal to the previous call's
// under this predicate (spec.md §4.10's caching invariant).
func (f VideoFrame) SameProperties(other VideoFrame) bool {
	return f.Width == other.Width &&
		f.Height == other.Height &&
		f.Stride == other.Stride &&
		f.ChromaStride == other.ChromaStride &&
		f.Format == other.Format &&
		f.Range == other.Range &&
		f.Matrix == other.Matrix
}
