// shader.go - GLSL->SPIR-V compute shader specialisation
//
// License: GPLv3 or later

package pixelweave

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	vk "github.com/goki/vulkan"

	"github.com/evercast/pixelweave-chromascale/internal/shaderc"
)

//go:embed shaders/convert.comp
var convertShaderSource string

// compileConvertShader specialises the embedded GLSL compute kernel
// for one (src, dst) frame-property pair by injecting SRC_*/DST_*
// preprocessor macros and compiling to SPIR-V with libshaderc. The
// kernel branches on these macros at compile time (spec.md §4.11), so
// every format pair gets its own dedicated SPIR-V module and the
// runtime dispatch loop never branches on format.
func compileConvertShader(src, dst VideoFrame) ([]uint32, error) {
	compiler := shaderc.NewCompiler()
	defer compiler.Release()

	options := shaderc.NewCompileOptions()
	defer options.Release()
	options.SetTargetEnv(shaderc.TargetEnvVulkan, shaderc.EnvVersionVulkan_1_2)
	options.SetOptimizationLevel(shaderc.OptimizationLevelPerformance)

	for name, value := range frameMacros("SRC", src) {
		options.AddMacroDefinition(name, value)
	}
	for name, value := range frameMacros("DST", dst) {
		options.AddMacroDefinition(name, value)
	}

	result, err := compiler.CompileIntoSPV(convertShaderSource, "convert.comp", shaderc.ComputeShader, options)
	if err != nil {
		return nil, newError("compileConvertShader", ShaderCompilationFailed, "shaderc compile", err)
	}
	defer result.Release()

	return bytesToSPIRV(result.GetBytes()), nil
}

// frameMacros builds the prefix_* macro set describing one frame's
// format, geometry and colourimetry, one entry per derived quantity
// per spec.md §4.7 step 2: *_WIDTH/*_HEIGHT/*_STRIDE/*_CHROMA_WIDTH/
// *_CHROMA_HEIGHT/*_CHROMA_STRIDE for geometry, *_FORMAT/
// *_CHROMA_SUBSAMPLING/*_BIT_DEPTH/*_BYTE_DEPTH/*_RANGE/*_YUV_MATRIX
// for the format tag, and *_RGB_TO_YUV_MATRIX/*_YUV_TO_RGB_MATRIX/
// *_YUV_OFFSET/*_YUV_OFFSET_FULL/*_YUV_SCALE as baked compile-time
// literals so the kernel never computes a colour matrix or range
// scale/offset at runtime (see glslMat3ColumnMajor/glslVec3 below).
// All-numeric macro values are formatted with strconv, not fmt, so
// locale settings (decimal comma locales in particular) can never leak
// a non-"." separator into a GLSL preprocessor macro and break
// compilation; the matrix/vector literals go through glslFloat for the
// same reason.
//
// FAMILY/LAYOUT/ORDER are not named by §4.7's macro list, which
// prescribes a single *_FORMAT numeric tag; they are emitted alongside
// it as pre-decomposed, equivalent substitutes because the GLSL
// preprocessor cannot itself branch on an opaque PixelFormat code (it
// would need a ~25-way #if chain duplicating formatTable). *_FORMAT is
// still emitted for parity with the spec's macro name, even though the
// kernel addresses bytes using the decomposed values instead.
func frameMacros(prefix string, f VideoFrame) map[string]string {
	info := lookup(f.Format)
	planeOffsets := f.PlaneOffsets()
	chromaW, chromaH := f.ChromaDimensions()
	legal := RangeLegal.Params(f.Format.BitDepth())

	m := map[string]string{
		prefix + "_FORMAT":             itoa(int(f.Format)),
		prefix + "_FAMILY":             itoa(int(info.family)),
		prefix + "_LAYOUT":             itoa(int(info.layout)),
		prefix + "_CHROMA_SUBSAMPLING": itoa(int(info.subsampling)),
		prefix + "_ORDER":              itoa(int(info.order)),
		prefix + "_BIT_DEPTH":          itoa(f.Format.BitDepth()),
		prefix + "_BYTE_DEPTH":         itoa(f.Format.ByteDepth()),
		prefix + "_RANGE":              itoa(int(f.Range)),
		prefix + "_YUV_MATRIX":         itoa(int(f.Matrix)),
		prefix + "_WIDTH":              itoa(f.Width),
		prefix + "_HEIGHT":             itoa(f.Height),
		prefix + "_STRIDE":             itoa(f.Stride),
		prefix + "_CHROMA_WIDTH":       itoa(chromaW),
		prefix + "_CHROMA_HEIGHT":      itoa(chromaH),
		prefix + "_CHROMA_STRIDE":      itoa(f.ChromaStride),
		prefix + "_RGB_TO_YUV_MATRIX":  glslMat3ColumnMajor(f.Matrix.RGBToYCbCr()),
		prefix + "_YUV_TO_RGB_MATRIX":  glslMat3ColumnMajor(f.Matrix.YCbCrToRGB()),
		// Legal-range (code-offset)/scale constants, valid whichever
		// range the frame actually uses: the full-range decode/encode
		// path (SRC_RANGE/DST_RANGE == RANGE_FULL in convert.comp) uses
		// *_YUV_OFFSET_FULL and a bit-depth-derived max instead.
		prefix + "_YUV_OFFSET":      glslVec3(legal.LumaOffset, legal.ChromaOffset, legal.ChromaOffset),
		prefix + "_YUV_OFFSET_FULL": glslVec3(0, 0.5, 0.5),
		prefix + "_YUV_SCALE":       glslVec3(legal.LumaScale, legal.ChromaScale, legal.ChromaScale),
	}

	switch info.layout {
	case LayoutInterleaved:
		m[prefix+"_BYTES_PER_PIXEL"] = itoa(bytesPerPixel(info, f.Format.ByteDepth()))
	case LayoutPacked:
		m[prefix+"_BLOCK_PIXELS"] = itoa(info.blockPixels)
		m[prefix+"_BLOCK_BYTES"] = itoa(info.blockBytes)
	case LayoutPlanar:
		// Cb/Cr plane offsets are swapped here (not at shader runtime)
		// for YV12/YCrCb-ordered formats, so the kernel addresses
		// U_OFFSET/V_OFFSET directly without a per-sample order check.
		cbOffset, crOffset := planeOffsets[1], planeOffsets[2]
		if info.order == OrderYCrCb {
			cbOffset, crOffset = planeOffsets[2], planeOffsets[1]
		}
		m[prefix+"_U_OFFSET"] = itoa(cbOffset)
		m[prefix+"_V_OFFSET"] = itoa(crOffset)
	case LayoutBiplanar:
		m[prefix+"_CHROMA_OFFSET"] = itoa(planeOffsets[1])
	}

	return m
}

// glslFloat formats v as a GLSL floating-point literal: always with a
// decimal point, since GLSL's constructors (vec3(...), mat3(...)) do
// not implicitly convert a bare integer literal to float.
func glslFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// glslVec3 renders (x, y, z) as a GLSL vec3 constructor literal.
func glslVec3(x, y, z float64) string {
	return fmt.Sprintf("vec3(%s, %s, %s)", glslFloat(x), glslFloat(y), glslFloat(z))
}

// glslMat3ColumnMajor renders m (row-major, see colorspace.go) as a
// GLSL mat3 constructor literal. GLSL's mat3(...) 9-scalar constructor
// fills columns first, so the row-major matrix is transposed on the
// way out.
func glslMat3ColumnMajor(m Matrix3) string {
	return fmt.Sprintf("mat3(%s, %s, %s, %s, %s, %s, %s, %s, %s)",
		glslFloat(m[0][0]), glslFloat(m[1][0]), glslFloat(m[2][0]),
		glslFloat(m[0][1]), glslFloat(m[1][1]), glslFloat(m[2][1]),
		glslFloat(m[0][2]), glslFloat(m[1][2]), glslFloat(m[2][2]),
	)
}

func bytesPerPixel(info formatInfo, byteDepth int) int {
	switch info.order {
	case OrderRGBA, OrderBGRA, OrderARGB, OrderABGR, OrderRGB10A2:
		return 4 * byteDepth
	case OrderRGB, OrderBGR:
		return 3 * byteDepth
	default:
		return byteDepth
	}
}

func itoa(v int) string { return strconv.Itoa(v) }

func bytesToSPIRV(code []byte) []uint32 {
	out := make([]uint32, len(code)/4)
	for i := range out {
		out[i] = uint32(code[i*4]) | uint32(code[i*4+1])<<8 | uint32(code[i*4+2])<<16 | uint32(code[i*4+3])<<24
	}
	return out
}

// createShaderModule wraps SPIR-V words in a vk.ShaderModule.
func (d *Device) createShaderModule(code []uint32) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	var shaderModule vk.ShaderModule
	if res := vk.CreateShaderModule(d.device, &createInfo, nil, &shaderModule); res != vk.Success {
		return vk.NullShaderModule, fmt.Errorf("vkCreateShaderModule failed: %d", res)
	}
	return shaderModule, nil
}
