// command.go - recorded dispatch command buffer and synchronous submit
//
// License: GPLv3 or later

package pixelweave

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"
)

const dispatchSize = 16 // matches convert.comp's local_size_x/y

// commandProgram is the recorded command buffer for one dispatch: bind
// pipeline, bind descriptor set, optional timestamp queries either
// side of the dispatch, submit, and wait on a fence. Grounded on
// FlushTriangles'/readbackFramebuffer's record-submit-wait
// cycle in voodoo_vulkan.go, with vk.CmdBindPipeline(graphics)+CmdDraw
// replaced by vk.CmdBindPipeline(compute)+CmdDispatch and the
// image-copy readback replaced by nothing at all (our buffers are
// already host-visible; see buffer.go).
type commandProgram struct {
	device        *Device
	commandBuffer vk.CommandBuffer
	fence         vk.Fence
	queryPool     vk.QueryPool
	hasTimestamps bool
}

func newCommandProgram(d *Device) (*commandProgram, error) {
	c := &commandProgram{device: d}

	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(d.device, &allocInfo, buffers); res != vk.Success {
		return nil, newError("newCommandProgram", AllocationFailed, fmt.Sprintf("vkAllocateCommandBuffers failed: %d", res), nil)
	}
	c.commandBuffer = buffers[0]

	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	var fence vk.Fence
	if res := vk.CreateFence(d.device, &fenceInfo, nil, &fence); res != vk.Success {
		return nil, newError("newCommandProgram", AllocationFailed, fmt.Sprintf("vkCreateFence failed: %d", res), nil)
	}
	c.fence = fence

	if d.supportsTimestamps {
		queryInfo := vk.QueryPoolCreateInfo{
			SType:      vk.StructureTypeQueryPoolCreateInfo,
			QueryType:  vk.QueryTypeTimestamp,
			QueryCount: 2,
		}
		var pool vk.QueryPool
		if res := vk.CreateQueryPool(d.device, &queryInfo, nil, &pool); res == vk.Success {
			c.queryPool = pool
			c.hasTimestamps = true
		}
	}

	return c, nil
}

// dispatchResult reports the GPU-side timing (if available) of one
// dispatch.
type dispatchResult struct {
	gpuDuration time.Duration // zero if the device has no timestamp support
}

// dispatch records and synchronously submits one conversion dispatch:
// bind the pipeline and descriptor set, dispatch ceil(blockCount/16)
// work groups per axis (no over-dispatch; convert.comp bounds-guards
// each of its 2x2-block invocations against the SRC_WIDTH/SRC_HEIGHT/
// DST_WIDTH/DST_HEIGHT macros baked into the shader at specialisation
// time), then wait on the fence before returning, exactly as the
// teacher's render loop waits before reusing its single command
// buffer and fence.
func (c *commandProgram) dispatch(p *pipeline, dstW, dstH int) (dispatchResult, error) {
	if res := vk.WaitForFences(c.device.device, 1, []vk.Fence{c.fence}, vk.True, ^uint64(0)); res != vk.Success {
		return dispatchResult{}, newError("dispatch", UnknownError, fmt.Sprintf("vkWaitForFences failed: %d", res), nil)
	}
	vk.ResetFences(c.device.device, 1, []vk.Fence{c.fence})
	vk.ResetCommandBuffer(c.commandBuffer, 0)

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	vk.BeginCommandBuffer(c.commandBuffer, &beginInfo)

	if c.hasTimestamps {
		vk.CmdResetQueryPool(c.commandBuffer, c.queryPool, 0, 2)
		vk.CmdWriteTimestamp(c.commandBuffer, vk.PipelineStageTopOfPipeBit, c.queryPool, 0)
	}

	vk.CmdBindPipeline(c.commandBuffer, vk.PipelineBindPointCompute, p.computePipeline)
	vk.CmdBindDescriptorSets(c.commandBuffer, vk.PipelineBindPointCompute, p.pipelineLayout, 0, 1, []vk.DescriptorSet{p.descriptorSet}, 0, nil)

	blockCountX := ceilDiv(dstW, 2)
	blockCountY := ceilDiv(dstH, 2)
	groupCountX := ceilDiv(blockCountX, dispatchSize)
	groupCountY := ceilDiv(blockCountY, dispatchSize)
	vk.CmdDispatch(c.commandBuffer, uint32(groupCountX), uint32(groupCountY), 1)

	if c.hasTimestamps {
		vk.CmdWriteTimestamp(c.commandBuffer, vk.PipelineStageBottomOfPipeBit, c.queryPool, 1)
	}

	vk.EndCommandBuffer(c.commandBuffer)

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{c.commandBuffer},
	}
	if res := vk.QueueSubmit(c.device.computeQueue, 1, []vk.SubmitInfo{submitInfo}, c.fence); res != vk.Success {
		return dispatchResult{}, newError("dispatch", UnknownError, fmt.Sprintf("vkQueueSubmit failed: %d", res), nil)
	}
	if res := vk.WaitForFences(c.device.device, 1, []vk.Fence{c.fence}, vk.True, ^uint64(0)); res != vk.Success {
		return dispatchResult{}, newError("dispatch", UnknownError, fmt.Sprintf("vkWaitForFences failed: %d", res), nil)
	}

	result := dispatchResult{}
	if c.hasTimestamps {
		timestamps := make([]uint64, 2)
		if res := vk.GetQueryPoolResults(c.device.device, c.queryPool, 0, 2, 2*8, timestamps, 8, vk.QueryResultFlags(vk.QueryResult64Bit|vk.QueryResultWaitBit)); res == vk.Success {
			ticks := timestamps[1] - timestamps[0]
			result.gpuDuration = time.Duration(float64(ticks) * c.device.timestampPeriod)
		}
	}
	return result, nil
}

func (c *commandProgram) destroy() {
	if c.queryPool != vk.NullQueryPool {
		vk.DestroyQueryPool(c.device.device, c.queryPool, nil)
	}
	if c.fence != vk.NullFence {
		vk.DestroyFence(c.device.device, c.fence, nil)
	}
	if c.commandBuffer != vk.NullCommandBuffer {
		vk.FreeCommandBuffers(c.device.device, c.device.commandPool, 1, []vk.CommandBuffer{c.commandBuffer})
	}
}
