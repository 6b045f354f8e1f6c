// testpattern.go - deterministic synthetic frame generator/oracle
//
// License: GPLv3 or later

package pixelweave

// GenerateGradientRGBA8 builds a deterministic RGBA8 gradient of the
// given size: red ramps with x, green ramps with y, blue cycles with
// x+y, alpha is always opaque. It is intentionally not math/rand, so
// benchmark CSV runs and round-trip tests are reproducible byte-for-
// byte across machines (spec.md's Open Questions decision on
// synthetic test-pattern randomness).
func GenerateGradientRGBA8(width, height int) []byte {
	stride := width * 4
	buf := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := y*stride + x*4
			buf[off+0] = byte((x * 255) / maxInt(width-1, 1))
			buf[off+1] = byte((y * 255) / maxInt(height-1, 1))
			buf[off+2] = byte((x + y) % 256)
			buf[off+3] = 255
		}
	}
	return buf
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// EncodeRGBA8 encodes an RGBA8 gradient buffer (stride width*4) into
// dst's declared layout, using the same colour matrix and range maths
// the GPU kernel (shaders/convert.comp) uses, so it can serve as a
// host-side reference for round-trip and precondition tests that
// can't exercise the GLSL kernel directly without a real GPU.
//
// RGB destinations encode one pixel at a time. YCbCr destinations
// write luma per pixel but walk the frame in chroma-subsampling blocks
// (1x1 for 4:4:4, 2x1 for 4:2:2, 2x2 for 4:2:0) and write one chroma
// sample per block averaged over its valid pixels, matching the
// kernel's per-invocation chroma-averaging policy (convert.comp's
// main()/writeChromaCode) rather than picking a single co-sited sample.
func EncodeRGBA8(dst VideoFrame, rgba []byte) ([]byte, error) {
	if err := dst.Validate(); err != nil {
		return nil, err
	}
	rgbaStride := dst.Width * 4
	if len(rgba) < rgbaStride*dst.Height {
		return nil, newError("EncodeRGBA8", InvalidInputResolutionError, "source RGBA8 buffer too small", nil)
	}

	out := make([]byte, dst.BufferSize())
	enc := newPixelEncoder(dst, out)

	readRGBA := func(x, y int) (r, g, b float64) {
		off := y*rgbaStride + x*4
		return float64(rgba[off+0]) / 255.0, float64(rgba[off+1]) / 255.0, float64(rgba[off+2]) / 255.0
	}

	if dst.Format.IsRGB() {
		for y := 0; y < dst.Height; y++ {
			for x := 0; x < dst.Width; x++ {
				r, g, b := readRGBA(x, y)
				enc.writeRGBPixel(x, y, r, g, b)
			}
		}
		return out, nil
	}

	sx, sy := dst.Format.Subsampling().factors()
	for by := 0; by < dst.Height; by += sy {
		for bx := 0; bx < dst.Width; bx += sx {
			var sumCb, sumCr float64
			n := 0
			for dy := 0; dy < sy; dy++ {
				for dx := 0; dx < sx; dx++ {
					x, y := bx+dx, by+dy
					if x >= dst.Width || y >= dst.Height {
						continue
					}
					r, g, b := readRGBA(x, y)
					yPrime, cb, cr := enc.toYCbCr.Apply(r, g, b)
					enc.writeLumaSample(x, y, enc.rangeParams.EncodeLuma(yPrime))
					sumCb += cb
					sumCr += cr
					n++
				}
			}
			if n == 0 {
				continue
			}
			cbCode := enc.rangeParams.EncodeChroma(sumCb / float64(n))
			crCode := enc.rangeParams.EncodeChroma(sumCr / float64(n))
			enc.writeChromaSample(bx, by, cbCode, crCode)
		}
	}
	return out, nil
}

// DecodeToRGBA8 decodes src's declared layout back into an RGBA8
// gradient buffer (stride width*4), the inverse of EncodeRGBA8.
func DecodeToRGBA8(src VideoFrame, data []byte) ([]byte, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if len(data) < src.BufferSize() {
		return nil, newError("DecodeToRGBA8", InvalidInputResolutionError, "source buffer smaller than declared size", nil)
	}

	dec := newPixelDecoder(src, data)
	rgbaStride := src.Width * 4
	out := make([]byte, rgbaStride*src.Height)

	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			r, g, b := dec.readPixel(x, y)
			off := y*rgbaStride + x*4
			out[off+0] = byte(clamp(round(r*255), 0, 255))
			out[off+1] = byte(clamp(round(g*255), 0, 255))
			out[off+2] = byte(clamp(round(b*255), 0, 255))
			out[off+3] = 255
		}
	}
	return out, nil
}

// pixelCodec holds the shared geometry/colourimetry both the encoder
// and decoder need; the two only differ in which direction they push
// bytes.
type pixelCodec struct {
	frame        VideoFrame
	info         formatInfo
	rangeParams  RangeParams
	toYCbCr      Matrix3
	toRGB        Matrix3
	planeOffsets []int
}

func newCodec(f VideoFrame) pixelCodec {
	info := lookup(f.Format)
	return pixelCodec{
		frame:        f,
		info:         info,
		rangeParams:  f.Range.Params(f.Format.BitDepth()),
		toYCbCr:      f.Matrix.RGBToYCbCr(),
		toRGB:        f.Matrix.YCbCrToRGB(),
		planeOffsets: f.PlaneOffsets(),
	}
}

type pixelEncoder struct {
	pixelCodec
	out []byte
}

func newPixelEncoder(f VideoFrame, out []byte) *pixelEncoder {
	return &pixelEncoder{pixelCodec: newCodec(f), out: out}
}

type pixelDecoder struct {
	pixelCodec
	in []byte
}

func newPixelDecoder(f VideoFrame, in []byte) *pixelDecoder {
	return &pixelDecoder{pixelCodec: newCodec(f), in: in}
}

// writeRGBPixel encodes one RGB-family pixel; RGB formats carry no
// chroma subsampling, so every pixel is independent.
func (e *pixelEncoder) writeRGBPixel(x, y int, r, g, b float64) {
	f := e.frame
	maxVal := float64(int(1)<<f.Format.BitDepth() - 1)
	byteDepth := f.Format.ByteDepth()
	base := y*f.Stride + x*rgbComponentsPerPixel(e.info)*byteDepth
	writeRGBComponents(e.out, base, e.info.order, byteDepth, r, g, b, maxVal)
}

// writeLumaSample writes one YCbCr pixel's Y sample; unlike chroma,
// luma is never subsampled and is written once per pixel regardless
// of layout.
func (e *pixelEncoder) writeLumaSample(x, y int, yCode float64) {
	f := e.frame
	byteDepth := f.Format.ByteDepth()
	switch e.info.layout {
	case LayoutInterleaved:
		writeInterleavedLuma(e.out, f.Stride, x, y, e.info.order, yCode)
	case LayoutPacked:
		writePackedLuma(e.out, f.Stride, e.info, x, y, yCode)
	default: // Planar, Biplanar
		writePlanarLuma(e.out, f.Stride, byteDepth, x, y, yCode)
	}
}

// writeChromaSample writes one already-averaged Cb/Cr pair for the
// subsampling block whose first (top-left) pixel is (blockX, blockY).
func (e *pixelEncoder) writeChromaSample(blockX, blockY int, cbCode, crCode float64) {
	f := e.frame
	byteDepth := f.Format.ByteDepth()
	switch e.info.layout {
	case LayoutInterleaved:
		writeInterleavedChroma(e.out, f.Stride, blockX, blockY, e.info.order, cbCode, crCode)
	case LayoutPacked:
		writePackedChroma(e.out, f.Stride, e.info, blockX, blockY, cbCode, crCode)
	case LayoutPlanar:
		cx, cy := chromaCoord(e.info.subsampling, blockX, blockY)
		cbOff, crOff := e.planeOffsets[1], e.planeOffsets[2]
		if e.info.order == OrderYCrCb {
			cbOff, crOff = e.planeOffsets[2], e.planeOffsets[1]
		}
		writePlanarChromaSample(e.out, cbOff, f.ChromaStride, byteDepth, cx, cy, cbCode)
		writePlanarChromaSample(e.out, crOff, f.ChromaStride, byteDepth, cx, cy, crCode)
	case LayoutBiplanar:
		cx, cy := chromaCoord(e.info.subsampling, blockX, blockY)
		first, second := cbCode, crCode
		if e.info.order == OrderYCrCb {
			first, second = crCode, cbCode
		}
		writeBiplanarChromaPair(e.out, e.planeOffsets[1], f.ChromaStride, byteDepth, cx, cy, first, second)
	}
}

func (d *pixelDecoder) readPixel(x, y int) (r, g, b float64) {
	f := d.frame
	maxVal := float64(int(1)<<f.Format.BitDepth() - 1)
	byteDepth := f.Format.ByteDepth()

	if f.Format.IsRGB() {
		base := y*f.Stride + x*rgbComponentsPerPixel(d.info)*byteDepth
		return readRGBComponents(d.in, base, d.info.order, byteDepth, maxVal)
	}

	var yCode, cbCode, crCode float64
	switch d.info.layout {
	case LayoutInterleaved:
		yCode, cbCode, crCode = readInterleavedYCbCr(d.in, f.Stride, x, y, d.info.order)
	case LayoutPacked:
		yCode, cbCode, crCode = readPackedYCbCr(d.in, f.Stride, d.info, x, y)
	case LayoutPlanar:
		yCode = readPlanarLuma(d.in, f.Stride, byteDepth, x, y)
		cx, cy := chromaCoord(d.info.subsampling, x, y)
		cbOff, crOff := d.planeOffsets[1], d.planeOffsets[2]
		if d.info.order == OrderYCrCb {
			cbOff, crOff = d.planeOffsets[2], d.planeOffsets[1]
		}
		cbCode = readPlanarChromaSample(d.in, cbOff, f.ChromaStride, byteDepth, cx, cy)
		crCode = readPlanarChromaSample(d.in, crOff, f.ChromaStride, byteDepth, cx, cy)
	case LayoutBiplanar:
		yCode = readPlanarLuma(d.in, f.Stride, byteDepth, x, y)
		cx, cy := chromaCoord(d.info.subsampling, x, y)
		first, second := readBiplanarChromaPair(d.in, d.planeOffsets[1], f.ChromaStride, byteDepth, cx, cy)
		if d.info.order == OrderYCrCb {
			crCode, cbCode = first, second
		} else {
			cbCode, crCode = first, second
		}
	}

	yPrime := d.rangeParams.DecodeLuma(yCode)
	cb := d.rangeParams.DecodeChroma(cbCode)
	cr := d.rangeParams.DecodeChroma(crCode)
	// Intentionally unclamped here, mirroring convert.comp's decodeSrc: the
	// matrix product is an exact inverse of the encode side, and clamping
	// it to [0,1] would destroy that invertibility for out-of-gamut code
	// words (spec.md §8's all-max 10-bit round-trip scenario relies on
	// this). Callers that need [0,1] RGB (DecodeToRGBA8, writeRGBPixel)
	// clamp at their own quantization step.
	return d.toRGB.Apply(yPrime, cb, cr)
}

// --- shared byte/sample helpers ---------------------------------------------

func rgbComponentsPerPixel(info formatInfo) int {
	switch info.order {
	case OrderRGBA, OrderBGRA, OrderARGB, OrderABGR, OrderRGB10A2:
		return 4
	default:
		return 3
	}
}

func writeSample(buf []byte, offset, byteDepth int, value float64) {
	v := uint32(value)
	if byteDepth == 1 {
		buf[offset] = byte(v)
		return
	}
	buf[offset] = byte(v)
	buf[offset+1] = byte(v >> 8)
}

func readSample(buf []byte, offset, byteDepth int) float64 {
	if byteDepth == 1 {
		return float64(buf[offset])
	}
	return float64(uint32(buf[offset]) | uint32(buf[offset+1])<<8)
}

// writeRGBComponents writes r/g/b in order's byte arrangement. For the
// 4-component interleaved orders (RGBA/BGRA/ARGB/ABGR) it also writes
// full opacity into the alpha slot, matching convert.comp's encodeDst
// RGB branch (which always writes maxVal into the alpha slot for
// those orders, never reading a source alpha). RGB10A2's alpha slot is
// left unwritten, matching the shader's corresponding guard.
func writeRGBComponents(buf []byte, base int, order ComponentOrder, byteDepth int, r, g, b, maxVal float64) {
	rc := clamp(round(r*maxVal), 0, maxVal)
	gc := clamp(round(g*maxVal), 0, maxVal)
	bc := clamp(round(b*maxVal), 0, maxVal)
	switch order {
	case OrderRGBA:
		writeSample(buf, base+0*byteDepth, byteDepth, rc)
		writeSample(buf, base+1*byteDepth, byteDepth, gc)
		writeSample(buf, base+2*byteDepth, byteDepth, bc)
		writeSample(buf, base+3*byteDepth, byteDepth, maxVal)
	case OrderRGB, OrderRGB10A2:
		writeSample(buf, base+0*byteDepth, byteDepth, rc)
		writeSample(buf, base+1*byteDepth, byteDepth, gc)
		writeSample(buf, base+2*byteDepth, byteDepth, bc)
	case OrderBGRA:
		writeSample(buf, base+0*byteDepth, byteDepth, bc)
		writeSample(buf, base+1*byteDepth, byteDepth, gc)
		writeSample(buf, base+2*byteDepth, byteDepth, rc)
		writeSample(buf, base+3*byteDepth, byteDepth, maxVal)
	case OrderBGR:
		writeSample(buf, base+0*byteDepth, byteDepth, bc)
		writeSample(buf, base+1*byteDepth, byteDepth, gc)
		writeSample(buf, base+2*byteDepth, byteDepth, rc)
	case OrderARGB:
		writeSample(buf, base+0*byteDepth, byteDepth, maxVal)
		writeSample(buf, base+1*byteDepth, byteDepth, rc)
		writeSample(buf, base+2*byteDepth, byteDepth, gc)
		writeSample(buf, base+3*byteDepth, byteDepth, bc)
	case OrderABGR:
		writeSample(buf, base+0*byteDepth, byteDepth, maxVal)
		writeSample(buf, base+1*byteDepth, byteDepth, bc)
		writeSample(buf, base+2*byteDepth, byteDepth, gc)
		writeSample(buf, base+3*byteDepth, byteDepth, rc)
	default:
		writeSample(buf, base+0*byteDepth, byteDepth, rc)
		writeSample(buf, base+1*byteDepth, byteDepth, gc)
		writeSample(buf, base+2*byteDepth, byteDepth, bc)
	}
}

func readRGBComponents(buf []byte, base int, order ComponentOrder, byteDepth int, maxVal float64) (r, g, b float64) {
	switch order {
	case OrderRGBA, OrderRGB:
		r = readSample(buf, base+0*byteDepth, byteDepth)
		g = readSample(buf, base+1*byteDepth, byteDepth)
		b = readSample(buf, base+2*byteDepth, byteDepth)
	case OrderBGRA, OrderBGR:
		b = readSample(buf, base+0*byteDepth, byteDepth)
		g = readSample(buf, base+1*byteDepth, byteDepth)
		r = readSample(buf, base+2*byteDepth, byteDepth)
	case OrderARGB:
		r = readSample(buf, base+1*byteDepth, byteDepth)
		g = readSample(buf, base+2*byteDepth, byteDepth)
		b = readSample(buf, base+3*byteDepth, byteDepth)
	case OrderABGR:
		b = readSample(buf, base+1*byteDepth, byteDepth)
		g = readSample(buf, base+2*byteDepth, byteDepth)
		r = readSample(buf, base+3*byteDepth, byteDepth)
	default:
		r = readSample(buf, base+0*byteDepth, byteDepth)
		g = readSample(buf, base+1*byteDepth, byteDepth)
		b = readSample(buf, base+2*byteDepth, byteDepth)
	}
	return r / maxVal, g / maxVal, b / maxVal
}

// writeInterleavedLuma writes one macropixel's Y sample; x need
// not be the pair's even x, since Y exists at every x regardless of
// parity.
func writeInterleavedLuma(buf []byte, stride, x, y int, order ComponentOrder, yCode float64) {
	pairBase := y*stride + (x/2)*4
	odd := x%2 == 1
	var idx int
	switch order {
	case OrderUYVY:
		if odd {
			idx = 3
		} else {
			idx = 1
		}
	default: // OrderYUYV, OrderYVYU
		if odd {
			idx = 2
		} else {
			idx = 0
		}
	}
	buf[pairBase+idx] = byte(yCode)
}

// writeInterleavedChroma writes the averaged Cb/Cr pair for the 4:2:2
// macropixel starting at the even x (blockX, blockY).
func writeInterleavedChroma(buf []byte, stride, blockX, blockY int, order ComponentOrder, cbCode, crCode float64) {
	pairBase := blockY*stride + (blockX/2)*4
	switch order {
	case OrderUYVY:
		buf[pairBase+0] = byte(cbCode)
		buf[pairBase+2] = byte(crCode)
	case OrderYVYU:
		buf[pairBase+1] = byte(crCode)
		buf[pairBase+3] = byte(cbCode)
	default: // OrderYUYV
		buf[pairBase+1] = byte(cbCode)
		buf[pairBase+3] = byte(crCode)
	}
}

func readInterleavedYCbCr(buf []byte, stride, x, y int, order ComponentOrder) (yCode, cbCode, crCode float64) {
	pairBase := y*stride + (x/2)*4
	odd := x%2 == 1
	switch order {
	case OrderUYVY:
		cbCode = float64(buf[pairBase+0])
		crCode = float64(buf[pairBase+2])
		if odd {
			yCode = float64(buf[pairBase+3])
		} else {
			yCode = float64(buf[pairBase+1])
		}
	case OrderYVYU:
		crCode = float64(buf[pairBase+1])
		cbCode = float64(buf[pairBase+3])
		if odd {
			yCode = float64(buf[pairBase+2])
		} else {
			yCode = float64(buf[pairBase+0])
		}
	default:
		cbCode = float64(buf[pairBase+1])
		crCode = float64(buf[pairBase+3])
		if odd {
			yCode = float64(buf[pairBase+2])
		} else {
			yCode = float64(buf[pairBase+0])
		}
	}
	return
}

func writePlanarLuma(buf []byte, stride, byteDepth, x, y int, yCode float64) {
	writeSample(buf, y*stride+x*byteDepth, byteDepth, yCode)
}

func readPlanarLuma(buf []byte, stride, byteDepth, x, y int) float64 {
	return readSample(buf, y*stride+x*byteDepth, byteDepth)
}

func writePlanarChromaSample(buf []byte, planeOffset, chromaStride, byteDepth, cx, cy int, code float64) {
	writeSample(buf, planeOffset+cy*chromaStride+cx*byteDepth, byteDepth, code)
}

func readPlanarChromaSample(buf []byte, planeOffset, chromaStride, byteDepth, cx, cy int) float64 {
	return readSample(buf, planeOffset+cy*chromaStride+cx*byteDepth, byteDepth)
}

func writeBiplanarChromaPair(buf []byte, planeOffset, chromaStride, byteDepth, cx, cy int, first, second float64) {
	base := planeOffset + cy*chromaStride + cx*2*byteDepth
	writeSample(buf, base, byteDepth, first)
	writeSample(buf, base+byteDepth, byteDepth, second)
}

func readBiplanarChromaPair(buf []byte, planeOffset, chromaStride, byteDepth, cx, cy int) (first, second float64) {
	base := planeOffset + cy*chromaStride + cx*2*byteDepth
	return readSample(buf, base, byteDepth), readSample(buf, base+byteDepth, byteDepth)
}

// chromaCoord maps a luma-plane pixel coordinate to its chroma-plane
// coordinate under s's subsampling factors.
func chromaCoord(s ChromaSubsampling, x, y int) (cx, cy int) {
	switch s {
	case Subsampling420:
		return x / 2, y / 2
	case Subsampling422:
		return x / 2, y
	default:
		return x, y
	}
}

// writePackedLuma/writePackedChroma and readPackedYCbCr implement the
// same tightly-packed, no-padding-within-sample bitstream
// convert.comp's readPackedSample/writePackedSample implement, so
// host-side tests exercise the exact bit geometry the kernel would
// produce.
func writePackedLuma(buf []byte, stride int, info formatInfo, x, y int, yCode float64) {
	blockIndex := x / info.blockPixels
	within := x % info.blockPixels
	blockBase := y*stride + blockIndex*info.blockBytes
	bits := uint(info.bitDepth)

	if info.subsampling == Subsampling444 {
		writePackedSample(buf, blockBase, uint(within*3+0), bits, uint32(yCode))
		return
	}
	writePackedSample(buf, blockBase, uint(within), bits, uint32(yCode))
}

// writePackedChroma writes the averaged Cb/Cr pair for the chroma
// group starting at the block-local x position (blockX, blockY).
func writePackedChroma(buf []byte, stride int, info formatInfo, blockX, blockY int, cbCode, crCode float64) {
	blockIndex := blockX / info.blockPixels
	within := blockX % info.blockPixels
	blockBase := blockY*stride + blockIndex*info.blockBytes
	bits := uint(info.bitDepth)

	if info.subsampling == Subsampling444 {
		writePackedSample(buf, blockBase, uint(within*3+1), bits, uint32(cbCode))
		writePackedSample(buf, blockBase, uint(within*3+2), bits, uint32(crCode))
		return
	}
	pairIndex := within / 2
	writePackedSample(buf, blockBase, uint(info.blockPixels+pairIndex*2+0), bits, uint32(cbCode))
	writePackedSample(buf, blockBase, uint(info.blockPixels+pairIndex*2+1), bits, uint32(crCode))
}

func readPackedYCbCr(buf []byte, stride int, info formatInfo, x, y int) (yCode, cbCode, crCode float64) {
	blockIndex := x / info.blockPixels
	within := x % info.blockPixels
	blockBase := y*stride + blockIndex*info.blockBytes
	bits := uint(info.bitDepth)

	if info.subsampling == Subsampling444 {
		yCode = float64(readPackedSample(buf, blockBase, uint(within*3+0), bits))
		cbCode = float64(readPackedSample(buf, blockBase, uint(within*3+1), bits))
		crCode = float64(readPackedSample(buf, blockBase, uint(within*3+2), bits))
		return
	}
	pairIndex := within / 2
	yCode = float64(readPackedSample(buf, blockBase, uint(within), bits))
	cbCode = float64(readPackedSample(buf, blockBase, uint(info.blockPixels+pairIndex*2+0), bits))
	crCode = float64(readPackedSample(buf, blockBase, uint(info.blockPixels+pairIndex*2+1), bits))
	return
}

func writePackedSample(buf []byte, blockByteBase int, sampleIndex uint, bits uint, value uint32) {
	bitOffset := sampleIndex * bits
	for b := uint(0); b < bits; b++ {
		bit := (value >> b) & 1
		totalShift := bitOffset + b
		byteIndex := blockByteBase + int(totalShift/8)
		bitInByte := totalShift % 8
		if bit == 1 {
			buf[byteIndex] |= 1 << bitInByte
		} else {
			buf[byteIndex] &^= 1 << bitInByte
		}
	}
}

func readPackedSample(buf []byte, blockByteBase int, sampleIndex uint, bits uint) uint32 {
	bitOffset := sampleIndex * bits
	var value uint32
	for b := uint(0); b < bits; b++ {
		totalShift := bitOffset + b
		byteIndex := blockByteBase + int(totalShift/8)
		bitInByte := totalShift % 8
		bit := (buf[byteIndex] >> bitInByte) & 1
		value |= uint32(bit) << b
	}
	return value
}
