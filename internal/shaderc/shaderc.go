// Package shaderc binds the system libshaderc library for compiling
// GLSL compute shaders to SPIR-V at runtime.
//
// License: GPLv3 or later
package shaderc

/*
#cgo pkg-config: shaderc
#include <shaderc/shaderc.h>
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// Compiler wraps a shaderc_compiler_t. One Compiler is reused across
// every shader specialisation a VideoConverter compiles.
type Compiler struct {
	handle C.shaderc_compiler_t
}

// CompileOptions wraps a shaderc_compile_options_t. A fresh
// CompileOptions is built per compile so each specialisation's macro
// definitions don't leak into the next.
type CompileOptions struct {
	handle C.shaderc_compile_options_t
}

type ShaderKind int

const (
	VertexShader   ShaderKind = C.shaderc_vertex_shader
	FragmentShader ShaderKind = C.shaderc_fragment_shader
	ComputeShader  ShaderKind = C.shaderc_compute_shader
)

type CompilationResult struct {
	handle C.shaderc_compilation_result_t
}

const (
	TargetEnvVulkan              = C.shaderc_target_env_vulkan
	EnvVersionVulkan_1_2         = C.shaderc_env_version_vulkan_1_2
	OptimizationLevelPerformance = C.shaderc_optimization_level_performance
)

func NewCompiler() Compiler {
	return Compiler{handle: C.shaderc_compiler_initialize()}
}

func (c Compiler) Release() {
	C.shaderc_compiler_release(c.handle)
}

func NewCompileOptions() CompileOptions {
	return CompileOptions{handle: C.shaderc_compile_options_initialize()}
}

func (o CompileOptions) Release() {
	C.shaderc_compile_options_release(o.handle)
}

func (o CompileOptions) SetTargetEnv(env int, version uint32) {
	C.shaderc_compile_options_set_target_env(
		o.handle,
		C.shaderc_target_env(env),
		C.uint32_t(version),
	)
}

func (o CompileOptions) SetOptimizationLevel(level int) {
	C.shaderc_compile_options_set_optimization_level(
		o.handle,
		C.shaderc_optimization_level(level),
	)
}

// AddMacroDefinition injects a `#define name value` into the shader
// before compilation. This is how the shader specialiser (shader.go)
// turns one GLSL source file into a pipeline compiled specifically for
// one source/destination format pair, instead of branching on format
// at runtime inside the kernel.
func (o CompileOptions) AddMacroDefinition(name, value string) {
	cName := C.CString(name)
	cValue := C.CString(value)
	defer C.free(unsafe.Pointer(cName))
	defer C.free(unsafe.Pointer(cValue))

	C.shaderc_compile_options_add_macro_definition(
		o.handle,
		cName, C.size_t(len(name)),
		cValue, C.size_t(len(value)),
	)
}

func (c Compiler) CompileIntoSPV(source, filename string, kind ShaderKind, options CompileOptions) (CompilationResult, error) {
	cSource := C.CString(source)
	cFilename := C.CString(filename)
	cEntryPoint := C.CString("main")
	defer C.free(unsafe.Pointer(cSource))
	defer C.free(unsafe.Pointer(cFilename))
	defer C.free(unsafe.Pointer(cEntryPoint))

	result := C.shaderc_compile_into_spv(
		c.handle,
		cSource,
		C.size_t(len(source)),
		C.shaderc_shader_kind(kind),
		cFilename,
		cEntryPoint,
		options.handle,
	)

	status := C.shaderc_result_get_compilation_status(result)
	if status != C.shaderc_compilation_status_success {
		errorMsg := C.GoString(C.shaderc_result_get_error_message(result))
		C.shaderc_result_release(result)
		return CompilationResult{}, fmt.Errorf("shader compilation failed: %s", errorMsg)
	}

	return CompilationResult{handle: result}, nil
}

func (r CompilationResult) GetBytes() []byte {
	ptr := C.shaderc_result_get_bytes(r.handle)
	length := C.shaderc_result_get_length(r.handle)
	return C.GoBytes(unsafe.Pointer(ptr), C.int(length))
}

func (r CompilationResult) Release() {
	C.shaderc_result_release(r.handle)
}
