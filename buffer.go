// buffer.go - host-visible GPU storage buffer wrapper
//
// License: GPLv3 or later

package pixelweave

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Buffer is a host-visible, host-coherent Vulkan storage buffer: the
// conversion pipeline binds one as its source and one as its
// destination, and the caller uploads/downloads pixel bytes through
// Map/Unmap/Write/Read. Collapsed from the teacher's separate
// createVertexBuffer/createStagingBuffer (both host-visible+coherent,
// differing only in usage flags) into one reusable helper, since this
// package's two buffers share that exact allocation strategy.
type Buffer struct {
	refCounted

	device *Device
	handle vk.Buffer
	memory vk.DeviceMemory
	size   int

	mapped unsafe.Pointer
}

// CreateBuffer allocates a host-visible, host-coherent storage buffer
// of the given size on d.
func (d *Device) CreateBuffer(size int) (*Buffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(d.device, &bufferInfo, nil, &handle); res != vk.Success {
		return nil, newError("CreateBuffer", AllocationFailed, fmt.Sprintf("vkCreateBuffer failed: %d", res), nil)
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, handle, &memReqs)
	memReqs.Deref()

	memTypeIndex, err := d.findMemoryType(memReqs.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		vk.DestroyBuffer(d.device, handle, nil)
		return nil, newError("CreateBuffer", AllocationFailed, "no host-visible memory type", err)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.device, &allocInfo, nil, &memory); res != vk.Success {
		vk.DestroyBuffer(d.device, handle, nil)
		return nil, newError("CreateBuffer", AllocationFailed, fmt.Sprintf("vkAllocateMemory failed: %d", res), nil)
	}

	if res := vk.BindBufferMemory(d.device, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(d.device, memory, nil)
		vk.DestroyBuffer(d.device, handle, nil)
		return nil, newError("CreateBuffer", AllocationFailed, fmt.Sprintf("vkBindBufferMemory failed: %d", res), nil)
	}

	d.addRef()
	b := &Buffer{device: d, handle: handle, memory: memory, size: size}
	b.initRefCounted(b.teardown)
	return b, nil
}

// Write maps the buffer, copies data into it (truncated/zero-extended
// to the buffer's size is the caller's responsibility; data must not
// exceed Size()) and unmaps it.
func (b *Buffer) Write(data []byte) error {
	if len(data) > b.size {
		return newError("Buffer.Write", AllocationFailed, fmt.Sprintf("data length %d exceeds buffer size %d", len(data), b.size), nil)
	}
	if err := b.Map(); err != nil {
		return err
	}
	defer b.Unmap()
	vk.Memcopy(b.mapped, data)
	return nil
}

// Read maps the buffer, copies its contents into a fresh []byte, and
// unmaps it.
func (b *Buffer) Read() ([]byte, error) {
	if err := b.Map(); err != nil {
		return nil, err
	}
	defer b.Unmap()
	out := make([]byte, b.size)
	copy(out, (*[1 << 30]byte)(b.mapped)[:b.size])
	return out, nil
}

// Map makes the buffer's memory addressable from the host. Unmap must
// be called before the buffer is next used by the GPU.
func (b *Buffer) Map() error {
	var data unsafe.Pointer
	if res := vk.MapMemory(b.device.device, b.memory, 0, vk.DeviceSize(b.size), 0, &data); res != vk.Success {
		return newError("Buffer.Map", AllocationFailed, fmt.Sprintf("vkMapMemory failed: %d", res), nil)
	}
	b.mapped = data
	return nil
}

// Unmap releases the host mapping established by Map.
func (b *Buffer) Unmap() {
	vk.UnmapMemory(b.device.device, b.memory)
	b.mapped = nil
}

// Size returns the buffer's allocated size in bytes.
func (b *Buffer) Size() int { return b.size }

// Handle returns the underlying vk.Buffer, for pipeline.go's
// descriptor-set writes.
func (b *Buffer) Handle() vk.Buffer { return b.handle }

// Retain increments the buffer's reference count.
func (b *Buffer) Retain() *Buffer {
	b.addRef()
	return b
}

// Release decrements the reference count, freeing the underlying
// Vulkan buffer and memory once it reaches zero.
func (b *Buffer) Release() {
	b.release()
}

func (b *Buffer) teardown() {
	if b.handle != vk.NullBuffer {
		vk.DestroyBuffer(b.device.device, b.handle, nil)
	}
	if b.memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.device.device, b.memory, nil)
	}
	b.device.release()
}
