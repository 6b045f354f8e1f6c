// pixelformat.go - pixel format model for the video conversion engine
//
// License: GPLv3 or later

package pixelweave

import "fmt"

// PixelFormat is a closed enumeration of the professional-video pixel
// formats this package knows how to describe and convert between.
type PixelFormat int

const (
	// RGB family, interleaved, 8 bits per component.
	PixelFormatRGBA8 PixelFormat = iota
	PixelFormatBGRA8
	PixelFormatARGB8
	PixelFormatABGR8
	PixelFormatRGB8
	PixelFormatBGR8

	// RGB family, higher bit depth / packed.
	PixelFormatRGBA16
	PixelFormatRGB10A2

	// YCbCr 4:2:2, interleaved, 8-bit.
	PixelFormatUYVY
	PixelFormatYUYV
	PixelFormatYVYU

	// YCbCr 4:2:0, biplanar (one interleaved CbCr plane), 8-bit.
	PixelFormatNV12
	PixelFormatNV21

	// YCbCr, biplanar, 10/16-bit.
	PixelFormatP010 // 4:2:0, 10-bit samples in 16-bit LE slots
	PixelFormatP210 // 4:2:2, 10-bit samples in 16-bit LE slots
	PixelFormatP410 // 4:4:4, 10-bit samples in 16-bit LE slots
	PixelFormatP216 // 4:2:2, 16-bit samples

	// YCbCr, planar, 8-bit.
	PixelFormatI420 // 4:2:0, Y, Cb, Cr
	PixelFormatYV12 // 4:2:0, Y, Cr, Cb
	PixelFormatI422 // 4:2:2, Y, Cb, Cr
	PixelFormatI444 // 4:4:4, Y, Cb, Cr

	// YCbCr, planar, higher bit depth.
	PixelFormatI420P10 // 4:2:0, 10-bit samples in 16-bit LE slots
	PixelFormatI420P12 // 4:2:0, 12-bit samples in 16-bit LE slots

	// YCbCr, packed, fixed block size.
	PixelFormatV210 // 4:2:2, 10-bit, 6 pixels / 16 bytes
	PixelFormatV412 // 4:4:4, 12-bit, 8 pixels / 36 bytes

	pixelFormatCount
)

// String returns the conventional short name for the format.
func (f PixelFormat) String() string {
	if info, ok := formatTable[f]; ok {
		return info.name
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// Family groups formats by their colour model.
type Family int

const (
	FamilyRGB Family = iota
	FamilyYCbCr
)

// Layout describes how a format's planes/components sit in memory.
type Layout int

const (
	LayoutInterleaved Layout = iota // all components in one plane, one pixel group per sample
	LayoutPlanar                    // one plane per component
	LayoutBiplanar                  // luma plane + one interleaved chroma-pair plane
	LayoutPacked                    // fixed-size bit-packed blocks of N pixels
)

// ChromaSubsampling is a function of PixelFormat; None applies to RGB
// formats, and 4:4:4 YCbCr formats use Subsampling444 (equal
// resolution, no averaging).
type ChromaSubsampling int

const (
	SubsamplingNone ChromaSubsampling = iota
	Subsampling444
	Subsampling422
	Subsampling420
)

// factors returns (sx, sy) such that chromaW = ceil(w/sx),
// chromaH = ceil(h/sy). RGB and 4:4:4 both use (1,1).
func (s ChromaSubsampling) factors() (sx, sy int) {
	switch s {
	case Subsampling420:
		return 2, 2
	case Subsampling422:
		return 2, 1
	default: // SubsamplingNone, Subsampling444
		return 1, 1
	}
}

// ComponentOrder fixes how bytes map to components within an
// interleaved/packed sample group, or which plane holds Cb vs Cr for
// planar/biplanar formats.
type ComponentOrder int

const (
	OrderRGBA ComponentOrder = iota
	OrderBGRA
	OrderARGB
	OrderABGR
	OrderRGB
	OrderBGR
	OrderRGB10A2
	OrderUYVY // packed: U,Y0,V,Y1
	OrderYUYV // packed: Y0,U,Y1,V
	OrderYVYU // packed: Y0,V,Y1,U
	OrderYCbCr
	OrderYCrCb
)

// formatInfo is the single static row describing one PixelFormat. All
// higher-level geometry queries (chroma size, plane offsets, buffer
// size) are derived from this table plus a VideoFrame's
// width/height/stride/chromaStride.
type formatInfo struct {
	name        string
	family      Family
	bitDepth    int
	layout      Layout
	subsampling ChromaSubsampling
	planeCount  int
	order       ComponentOrder

	// Packed-format block geometry; zero for non-packed layouts.
	blockPixels int
	blockBytes  int
	// strideAlign, if non-zero, overrides blockBytes-based rounding
	// for MinStride (V210's documented 48-pixel/128-byte alignment).
	strideAlignPixels int
	strideAlignBytes  int
}

var formatTable = map[PixelFormat]formatInfo{
	PixelFormatRGBA8: {name: "RGBA8", family: FamilyRGB, bitDepth: 8, layout: LayoutInterleaved, subsampling: SubsamplingNone, planeCount: 1, order: OrderRGBA},
	PixelFormatBGRA8: {name: "BGRA8", family: FamilyRGB, bitDepth: 8, layout: LayoutInterleaved, subsampling: SubsamplingNone, planeCount: 1, order: OrderBGRA},
	PixelFormatARGB8: {name: "ARGB8", family: FamilyRGB, bitDepth: 8, layout: LayoutInterleaved, subsampling: SubsamplingNone, planeCount: 1, order: OrderARGB},
	PixelFormatABGR8: {name: "ABGR8", family: FamilyRGB, bitDepth: 8, layout: LayoutInterleaved, subsampling: SubsamplingNone, planeCount: 1, order: OrderABGR},
	PixelFormatRGB8:  {name: "RGB8", family: FamilyRGB, bitDepth: 8, layout: LayoutInterleaved, subsampling: SubsamplingNone, planeCount: 1, order: OrderRGB},
	PixelFormatBGR8:  {name: "BGR8", family: FamilyRGB, bitDepth: 8, layout: LayoutInterleaved, subsampling: SubsamplingNone, planeCount: 1, order: OrderBGR},

	PixelFormatRGBA16:    {name: "RGBA16", family: FamilyRGB, bitDepth: 16, layout: LayoutInterleaved, subsampling: SubsamplingNone, planeCount: 1, order: OrderRGBA},
	PixelFormatRGB10A2:   {name: "RGB10A2", family: FamilyRGB, bitDepth: 10, layout: LayoutInterleaved, subsampling: SubsamplingNone, planeCount: 1, order: OrderRGB10A2},

	PixelFormatUYVY: {name: "UYVY", family: FamilyYCbCr, bitDepth: 8, layout: LayoutInterleaved, subsampling: Subsampling422, planeCount: 1, order: OrderUYVY},
	PixelFormatYUYV: {name: "YUYV", family: FamilyYCbCr, bitDepth: 8, layout: LayoutInterleaved, subsampling: Subsampling422, planeCount: 1, order: OrderYUYV},
	PixelFormatYVYU: {name: "YVYU", family: FamilyYCbCr, bitDepth: 8, layout: LayoutInterleaved, subsampling: Subsampling422, planeCount: 1, order: OrderYVYU},

	PixelFormatNV12: {name: "NV12", family: FamilyYCbCr, bitDepth: 8, layout: LayoutBiplanar, subsampling: Subsampling420, planeCount: 2, order: OrderYCbCr},
	PixelFormatNV21: {name: "NV21", family: FamilyYCbCr, bitDepth: 8, layout: LayoutBiplanar, subsampling: Subsampling420, planeCount: 2, order: OrderYCrCb},

	PixelFormatP010: {name: "P010", family: FamilyYCbCr, bitDepth: 10, layout: LayoutBiplanar, subsampling: Subsampling420, planeCount: 2, order: OrderYCbCr},
	PixelFormatP210: {name: "P210", family: FamilyYCbCr, bitDepth: 10, layout: LayoutBiplanar, subsampling: Subsampling422, planeCount: 2, order: OrderYCbCr},
	PixelFormatP410: {name: "P410", family: FamilyYCbCr, bitDepth: 10, layout: LayoutBiplanar, subsampling: Subsampling444, planeCount: 2, order: OrderYCbCr},
	PixelFormatP216: {name: "P216", family: FamilyYCbCr, bitDepth: 16, layout: LayoutBiplanar, subsampling: Subsampling422, planeCount: 2, order: OrderYCbCr},

	PixelFormatI420: {name: "I420", family: FamilyYCbCr, bitDepth: 8, layout: LayoutPlanar, subsampling: Subsampling420, planeCount: 3, order: OrderYCbCr},
	PixelFormatYV12: {name: "YV12", family: FamilyYCbCr, bitDepth: 8, layout: LayoutPlanar, subsampling: Subsampling420, planeCount: 3, order: OrderYCrCb},
	PixelFormatI422: {name: "I422", family: FamilyYCbCr, bitDepth: 8, layout: LayoutPlanar, subsampling: Subsampling422, planeCount: 3, order: OrderYCbCr},
	PixelFormatI444: {name: "I444", family: FamilyYCbCr, bitDepth: 8, layout: LayoutPlanar, subsampling: Subsampling444, planeCount: 3, order: OrderYCbCr},

	PixelFormatI420P10: {name: "I420P10", family: FamilyYCbCr, bitDepth: 10, layout: LayoutPlanar, subsampling: Subsampling420, planeCount: 3, order: OrderYCbCr},
	PixelFormatI420P12: {name: "I420P12", family: FamilyYCbCr, bitDepth: 12, layout: LayoutPlanar, subsampling: Subsampling420, planeCount: 3, order: OrderYCbCr},

	PixelFormatV210: {name: "V210", family: FamilyYCbCr, bitDepth: 10, layout: LayoutPacked, subsampling: Subsampling422, planeCount: 1, order: OrderYCbCr, blockPixels: 6, blockBytes: 16, strideAlignPixels: 48, strideAlignBytes: 128},
	PixelFormatV412: {name: "V412", family: FamilyYCbCr, bitDepth: 12, layout: LayoutPacked, subsampling: Subsampling444, planeCount: 1, order: OrderYCbCr, blockPixels: 8, blockBytes: 36},
}

func init() {
	// Exhaustiveness check: every enumerator must have a table row, so
	// adding a PixelFormat without a matching entry fails fast instead
	// of silently misbehaving at conversion time.
	for f := PixelFormat(0); f < pixelFormatCount; f++ {
		if _, ok := formatTable[f]; !ok {
			panic(fmt.Sprintf("pixelweave: PixelFormat %d has no formatTable entry", int(f)))
		}
	}
}

func lookup(f PixelFormat) formatInfo {
	info, ok := formatTable[f]
	if !ok {
		panic(fmt.Sprintf("pixelweave: unknown PixelFormat %d", int(f)))
	}
	return info
}

// Family reports whether f is an RGB or YCbCr format.
func (f PixelFormat) Family() Family { return lookup(f).family }

// BitDepth reports bits per sample (8, 10, 12 or 16).
func (f PixelFormat) BitDepth() int { return lookup(f).bitDepth }

// ByteDepth reports bytes per sample slot, rounded up: 1 for 8-bit,
// 2 for 10/12/16-bit.
func (f PixelFormat) ByteDepth() int {
	if lookup(f).bitDepth <= 8 {
		return 1
	}
	return 2
}

// Layout reports the plane arrangement.
func (f PixelFormat) Layout() Layout { return lookup(f).layout }

// Subsampling reports the chroma subsampling of f.
func (f PixelFormat) Subsampling() ChromaSubsampling { return lookup(f).subsampling }

// PlaneCount reports how many memory planes f occupies.
func (f PixelFormat) PlaneCount() int { return lookup(f).planeCount }

// ComponentOrder reports the component/plane ordering of f.
func (f PixelFormat) ComponentOrder() ComponentOrder { return lookup(f).order }

// IsRGB reports whether f belongs to the RGB family.
func (f PixelFormat) IsRGB() bool { return lookup(f).family == FamilyRGB }

// IsPacked reports whether f uses fixed-size bit-packed blocks.
func (f PixelFormat) IsPacked() bool { return lookup(f).layout == LayoutPacked }

// ChromaDimensions applies the ceiling-division policy of spec §4.1:
// chromaW = ceil(width/sx), chromaH = ceil(height/sy).
func (f PixelFormat) ChromaDimensions(width, height int) (chromaWidth, chromaHeight int) {
	sx, sy := lookup(f).subsampling.factors()
	return ceilDiv(width, sx), ceilDiv(height, sy)
}

// MinStride returns the minimum valid stride (bytes per row of the
// luma/interleaved plane) for an image of the given width. For packed
// formats with a documented larger alignment group (V210's 48 pixels
// / 128 bytes) that alignment is applied; otherwise it is
// width * bytesPerSampleOfLumaPlane, generalised to the format's
// per-pixel byte cost.
func (f PixelFormat) MinStride(width int) int {
	info := lookup(f)
	switch info.layout {
	case LayoutPacked:
		if info.strideAlignPixels > 0 {
			return ceilDiv(width, info.strideAlignPixels) * info.strideAlignBytes
		}
		return ceilDiv(width, info.blockPixels) * info.blockBytes
	default:
		return width * info.componentsPerPixel() * f.ByteDepth()
	}
}

// componentsPerPixel returns how many samples (not bytes) make up one
// interleaved/planar luma-plane pixel; used by MinStride.
func (info formatInfo) componentsPerPixel() int {
	if info.family == FamilyYCbCr {
		// Luma plane (or the Y component of an interleaved 4:2:2
		// macropixel) is always one sample per pixel; chroma is
		// accounted for separately via Subsampling/PlaneCount.
		if info.layout == LayoutInterleaved {
			// UYVY/YUYV/YVYU: 2 bytes-worth of samples per pixel pair
			// (Y every pixel, U/V shared across the pair) -> average
			// of 2 samples per pixel.
			return 2
		}
		return 1
	}
	switch info.order {
	case OrderRGBA, OrderBGRA, OrderARGB, OrderABGR, OrderRGB10A2:
		return 4
	case OrderRGB, OrderBGR:
		return 3
	default:
		return 1
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// SupportedInputFormats and SupportedOutputFormats are the closed sets
// checked by VideoConverter.Convert's preconditions (spec §4.10). The
// converter is total over every supported format in both directions,
// so both sets are the full enumeration; they are kept distinct so a
// future hardware profile can narrow either independently.
var (
	SupportedInputFormats  = allFormats()
	SupportedOutputFormats = allFormats()
)

func allFormats() map[PixelFormat]bool {
	m := make(map[PixelFormat]bool, int(pixelFormatCount))
	for f := PixelFormat(0); f < pixelFormatCount; f++ {
		m[f] = true
	}
	return m
}
