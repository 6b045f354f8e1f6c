// converter.go - public VideoConverter API: convert, cache, benchmark
//
// License: GPLv3 or later

package pixelweave

import (
	"fmt"
	"sync"
	"time"
)

// BenchmarkResult reports per-stage timing for one ConvertWithBenchmark
// call, in host wall-clock microseconds: the source upload, the
// dispatch (submit plus fence wait), the destination readback, and
// their total. vkconvbench averages these into its CSV columns.
type BenchmarkResult struct {
	UploadMicros   float64
	DispatchMicros float64
	ReadbackMicros float64
	TotalMicros    float64
}

// VideoConverter converts one source VideoFrame into one destination
// VideoFrame on the GPU. It caches its compiled pipeline and GPU
// buffers across calls keyed on VideoFrame.SameProperties, rebuilding
// them only when the source or destination properties actually
// change, per spec.md §4.10. Collapsed from the teacher's
// VoodooEngine (public surface + state) / VulkanBackend (GPU
// resources) split into one type, since this package has only the one
// public surface spec.md names.
type VideoConverter struct {
	refCounted

	device *Device
	mu     sync.Mutex

	hasCached bool
	cachedSrc VideoFrame
	cachedDst VideoFrame

	pipe      *pipeline
	cmd       *commandProgram
	srcBuffer *Buffer
	dstBuffer *Buffer
}

// CreateVideoConverter builds a VideoConverter bound to d. The
// converter retains d for its own lifetime and releases it when the
// converter's own reference count reaches zero (see Release).
func (d *Device) CreateVideoConverter() (*VideoConverter, error) {
	c := &VideoConverter{device: d.Retain()}
	c.initRefCounted(c.teardown)
	return c, nil
}

// Convert converts srcData (laid out per src) into a freshly allocated
// []byte laid out per dst.
func (c *VideoConverter) Convert(src VideoFrame, srcData []byte, dst VideoFrame) ([]byte, error) {
	out, _, err := c.convert(src, srcData, dst, false)
	return out, err
}

// ConvertWithBenchmark behaves like Convert but also reports per-stage
// host wall-clock timing (upload, dispatch including the fence wait,
// readback). GPU timestamp query results are not reported.
func (c *VideoConverter) ConvertWithBenchmark(src VideoFrame, srcData []byte, dst VideoFrame) ([]byte, BenchmarkResult, error) {
	return c.convert(src, srcData, dst, true)
}

func (c *VideoConverter) convert(src VideoFrame, srcData []byte, dst VideoFrame, benchmark bool) ([]byte, BenchmarkResult, error) {
	if err := checkPreconditions(src, srcData, dst); err != nil {
		return nil, BenchmarkResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasCached || !c.cachedSrc.SameProperties(src) || !c.cachedDst.SameProperties(dst) {
		if err := c.rebuild(src, dst); err != nil {
			return nil, BenchmarkResult{}, err
		}
	}

	t0 := time.Now()
	if err := c.srcBuffer.Write(srcData); err != nil {
		return nil, BenchmarkResult{}, err
	}
	t1 := time.Now()

	if _, err := c.cmd.dispatch(c.pipe, dst.Width, dst.Height); err != nil {
		return nil, BenchmarkResult{}, err
	}
	t2 := time.Now()

	out, err := c.dstBuffer.Read()
	if err != nil {
		return nil, BenchmarkResult{}, err
	}
	t3 := time.Now()

	if !benchmark {
		return out, BenchmarkResult{}, nil
	}
	result := BenchmarkResult{
		UploadMicros:   float64(t1.Sub(t0).Microseconds()),
		DispatchMicros: float64(t2.Sub(t1).Microseconds()),
		ReadbackMicros: float64(t3.Sub(t2).Microseconds()),
		TotalMicros:    float64(t3.Sub(t0).Microseconds()),
	}
	return out, result, nil
}

// checkPreconditions implements spec.md §4.10's precondition checks in
// their specified order: zero-dimension checks on both frames first
// (InvalidOutputResolutionError is reserved for future upper-bound
// checks and is never raised here), then the input format membership
// check, then the output format membership check. Stride/chroma-stride
// validation and the source-buffer-length check follow as additional
// structural checks the spec's invariants (§3) require before a
// conversion can proceed.
func checkPreconditions(src VideoFrame, srcData []byte, dst VideoFrame) error {
	if src.Width <= 0 || src.Height <= 0 || dst.Width <= 0 || dst.Height <= 0 {
		return newError("Convert", InvalidInputResolutionError,
			fmt.Sprintf("dimensions must be positive: src=%dx%d dst=%dx%d", src.Width, src.Height, dst.Width, dst.Height), nil)
	}
	if !SupportedInputFormats[src.Format] {
		return newError("Convert", InvalidInputFormatError, fmt.Sprintf("unsupported input format %s", src.Format), nil)
	}
	if !SupportedOutputFormats[dst.Format] {
		return newError("Convert", InvalidOutputFormatError, fmt.Sprintf("unsupported output format %s", dst.Format), nil)
	}
	if err := src.Validate(); err != nil {
		return newError("Convert", InvalidInputResolutionError, "source frame", err)
	}
	if err := dst.Validate(); err != nil {
		return newError("Convert", InvalidInputResolutionError, "destination frame", err)
	}
	if len(srcData) < src.BufferSize() {
		return newError("Convert", InvalidInputResolutionError,
			fmt.Sprintf("source data length %d is smaller than declared buffer size %d", len(srcData), src.BufferSize()), nil)
	}
	return nil
}

// rebuild tears down any previously cached pipeline/buffers and
// builds fresh ones for the new (src, dst) property pair: compile a
// shader specialised for this exact format pair, allocate matching
// GPU buffers, and bind them into the pipeline's descriptor set.
func (c *VideoConverter) rebuild(src, dst VideoFrame) error {
	c.releaseCached()

	spirv, err := compileConvertShader(src, dst)
	if err != nil {
		return err
	}

	pipe, err := newPipeline(c.device, spirv)
	if err != nil {
		return err
	}

	srcBuffer, err := c.device.CreateBuffer(src.BufferSize())
	if err != nil {
		pipe.destroy()
		return err
	}
	dstBuffer, err := c.device.CreateBuffer(dst.BufferSize())
	if err != nil {
		srcBuffer.Release()
		pipe.destroy()
		return err
	}
	pipe.bindBuffers(srcBuffer, dstBuffer)

	cmd, err := newCommandProgram(c.device)
	if err != nil {
		dstBuffer.Release()
		srcBuffer.Release()
		pipe.destroy()
		return err
	}

	c.pipe = pipe
	c.srcBuffer = srcBuffer
	c.dstBuffer = dstBuffer
	c.cmd = cmd
	c.cachedSrc = src
	c.cachedDst = dst
	c.hasCached = true
	return nil
}

func (c *VideoConverter) releaseCached() {
	if c.cmd != nil {
		c.cmd.destroy()
		c.cmd = nil
	}
	if c.srcBuffer != nil {
		c.srcBuffer.Release()
		c.srcBuffer = nil
	}
	if c.dstBuffer != nil {
		c.dstBuffer.Release()
		c.dstBuffer = nil
	}
	if c.pipe != nil {
		c.pipe.destroy()
		c.pipe = nil
	}
	c.hasCached = false
}

// Retain increments the converter's reference count.
func (c *VideoConverter) Retain() *VideoConverter {
	c.addRef()
	return c
}

// Release decrements the reference count, tearing the converter's GPU
// resources down once it reaches zero.
func (c *VideoConverter) Release() {
	c.release()
}

func (c *VideoConverter) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseCached()
	c.device.Release()
}
