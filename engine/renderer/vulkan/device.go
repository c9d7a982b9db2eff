package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshforge/engine/core"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	GraphicsQueueIndex uint32
	TransferQueueIndex uint32

	GraphicsQueue vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

type VulkanPhysicalDeviceRequirements struct {
	DiscreteGPU          bool
	DeviceExtensionNames []string
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex uint32
	TransferFamilyIndex uint32

	hasGraphics, hasTransfer bool
}

// DeviceCreate selects a physical device and creates the logical device,
// its queues and the graphics command pool.
func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}
	dev := context.Device

	core.LogInfo("Creating logical device...")

	indices := []uint32{dev.GraphicsQueueIndex}
	if dev.TransferQueueIndex != dev.GraphicsQueueIndex {
		indices = append(indices, dev.TransferQueueIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{}
	if deviceHasExtension(dev.PhysicalDevice, portabilitySubsetExtension) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensionNames = append(extensionNames, portabilitySubsetExtension)
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if dev.Features.FillModeNonSolid == vk.True {
		deviceFeatures.FillModeNonSolid = vk.True
	}
	if dev.Features.WideLines == vk.True {
		deviceFeatures.WideLines = vk.True
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if err := resultError("vkCreateDevice", vk.CreateDevice(dev.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device)); err != nil {
		core.LogError(err.Error())
		return err
	}
	dev.LogicalDevice = device
	core.LogInfo("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(device, dev.GraphicsQueueIndex, 0, &queue)
	dev.GraphicsQueue = queue
	vk.GetDeviceQueue(device, dev.TransferQueueIndex, 0, &queue)
	dev.TransferQueue = queue
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: dev.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := resultError("vkCreateCommandPool", vk.CreateCommandPool(device, &poolCreateInfo, context.Allocator, &pool)); err != nil {
		core.LogError(err.Error())
		return err
	}
	dev.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	if !DeviceDetectDepthFormat(dev) {
		err := fmt.Errorf("no supported depth format on '%s'", vk.ToString(dev.Properties.DeviceName[:]))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	dev := context.Device
	vk.DeviceWaitIdle(dev.LogicalDevice)

	dev.GraphicsQueue = nil
	dev.TransferQueue = nil

	if dev.GraphicsCommandPool != nil {
		core.LogDebug("Destroying command pools...")
		vk.DestroyCommandPool(dev.LogicalDevice, dev.GraphicsCommandPool, context.Allocator)
		dev.GraphicsCommandPool = nil
	}

	core.LogDebug("Destroying logical device...")
	vk.DestroyDevice(dev.LogicalDevice, context.Allocator)
	dev.LogicalDevice = nil

	// Physical devices are not destroyed.
	dev.PhysicalDevice = nil
}

// DeviceDetectDepthFormat picks the first depth format usable as an optimally tiled attachment.
func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags {
			device.DepthFormat = candidate
			return true
		}
	}
	return false
}

/**
 * @brief Walks the physical devices twice: the first pass only accepts
 * discrete GPUs, the second one accepts anything that has the queues.
 */
func SelectPhysicalDevice(context *VulkanContext) error {
	var count uint32
	if err := resultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		err := fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrNotInitialized)
		core.LogError(err.Error())
		return err
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if err := resultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &count, physicalDevices)); err != nil {
		return err
	}

	requirements := VulkanPhysicalDeviceRequirements{
		DiscreteGPU: runtime.GOOS != "darwin",
	}

	for pass := 0; pass < 2; pass++ {
		for _, candidate := range physicalDevices {
			var properties vk.PhysicalDeviceProperties
			vk.GetPhysicalDeviceProperties(candidate, &properties)
			properties.Deref()
			properties.Limits.Deref()

			queueInfo, ok := PhysicalDeviceMeetsRequirements(candidate, &properties, &requirements)
			if !ok {
				continue
			}

			var features vk.PhysicalDeviceFeatures
			vk.GetPhysicalDeviceFeatures(candidate, &features)
			features.Deref()

			var memory vk.PhysicalDeviceMemoryProperties
			vk.GetPhysicalDeviceMemoryProperties(candidate, &memory)
			memory.Deref()

			dev := context.Device
			dev.PhysicalDevice = candidate
			dev.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
			dev.TransferQueueIndex = queueInfo.TransferFamilyIndex
			dev.Properties = properties
			dev.Features = features
			dev.Memory = memory

			logDevice(&properties, &memory)
			return nil
		}
		requirements.DiscreteGPU = false
	}

	err := fmt.Errorf("%w: no physical device meets the requirements", core.ErrNotInitialized)
	core.LogError(err.Error())
	return err
}

func logDevice(properties *vk.PhysicalDeviceProperties, memory *vk.PhysicalDeviceMemoryProperties) {
	core.LogInfo("Selected device: '%s' (%s).", vk.ToString(properties.DeviceName[:]), deviceTypeName(properties.DeviceType))
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)
	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		memory.MemoryHeaps[j].Deref()
		sizeMiB := uint64(memory.MemoryHeaps[j].Size) / 1024 / 1024
		if memory.MemoryHeaps[j].Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogDebug("Local GPU memory: %d MiB", sizeMiB)
		} else {
			core.LogDebug("Shared system memory: %d MiB", sizeMiB)
		}
	}
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "unknown"
	}
}

// PhysicalDeviceMeetsRequirements finds the queue families of device and checks them against requirements.
// The transfer family with the fewest other capabilities wins, which favours dedicated transfer queues.
func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties, requirements *VulkanPhysicalDeviceRequirements) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	info := VulkanPhysicalDeviceQueueFamilyInfo{}
	name := vk.ToString(properties.DeviceName[:])

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogDebug("'%s' is not a discrete GPU, skipping.", name)
		return info, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	minTransferScore := 255
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		flags := queueFamilies[i].QueueFlags
		score := 0

		if flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			if !info.hasGraphics {
				info.GraphicsFamilyIndex = uint32(i)
				info.hasGraphics = true
			}
			score++
		}
		if flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			score++
		}
		if flags&vk.QueueFlags(vk.QueueTransferBit) != 0 && score <= minTransferScore {
			minTransferScore = score
			info.TransferFamilyIndex = uint32(i)
			info.hasTransfer = true
		}
	}

	// Graphics queues always accept transfer commands.
	if !info.hasTransfer && info.hasGraphics {
		info.TransferFamilyIndex = info.GraphicsFamilyIndex
		info.hasTransfer = true
	}

	core.LogDebug("graphics=%t(%d) transfer=%t(%d) | %s",
		info.hasGraphics, info.GraphicsFamilyIndex,
		info.hasTransfer, info.TransferFamilyIndex,
		name)

	if !info.hasGraphics {
		core.LogDebug("'%s' lacks the required queues, skipping.", name)
		return info, false
	}

	for _, ext := range requirements.DeviceExtensionNames {
		if !deviceHasExtension(device, ext) {
			core.LogDebug("Required extension not found: '%s', skipping '%s'.", ext, name)
			return info, false
		}
	}
	return info, true
}

func deviceHasExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if vk.ToString(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}
