package accel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// errNoRuntime is the reason hardware probers decline after finding devices.
var errNoRuntime = errors.New("no compute runtime linked into this build")

// CUDAProber looks for NVIDIA devices driven by nvidia or nouveau.
type CUDAProber struct {
	sysRoot  string
	procRoot string
}

// NewCUDAProber reads the real /sys and /proc.
func NewCUDAProber() *CUDAProber {
	return &CUDAProber{sysRoot: "/sys", procRoot: "/proc"}
}

func newCUDAProberFrom(sysRoot, procRoot string) *CUDAProber {
	return &CUDAProber{sysRoot: sysRoot, procRoot: procRoot}
}

func (p *CUDAProber) Backend() Backend { return BackendCUDA }

// Devices lists NVIDIA GPUs, with the model name filled in from
// /proc/driver/nvidia when the proprietary driver is loaded.
func (p *CUDAProber) Devices() []Device {
	devices := enumerateDRM(p.sysRoot, map[string]bool{"nvidia": true, "nouveau": true})
	for i := range devices {
		if devices[i].Driver == "nvidia" && devices[i].PCISlot != "" {
			devices[i].Model = p.readModel(devices[i].PCISlot)
		}
	}
	return devices
}

// readModel parses the "Model:" line of
// /proc/driver/nvidia/gpus/<slot>/information.
func (p *CUDAProber) readModel(slot string) string {
	data, err := os.ReadFile(filepath.Join(p.procRoot, "driver/nvidia/gpus", slot, "information"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if ok && strings.TrimSpace(key) == "Model" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (p *CUDAProber) Probe() (Accelerator, error) {
	return nil, declineReason("NVIDIA", p.Devices())
}

// VulkanProber looks for AMD and Intel devices.
type VulkanProber struct {
	sysRoot string
}

// NewVulkanProber reads the real /sys.
func NewVulkanProber() *VulkanProber {
	return &VulkanProber{sysRoot: "/sys"}
}

func newVulkanProberFrom(sysRoot string) *VulkanProber {
	return &VulkanProber{sysRoot: sysRoot}
}

func (p *VulkanProber) Backend() Backend { return BackendVulkan }

// Devices lists AMD and Intel GPUs.
func (p *VulkanProber) Devices() []Device {
	return enumerateDRM(p.sysRoot, map[string]bool{
		"amdgpu": true,
		"radeon": true,
		"i915":   true,
		"xe":     true,
	})
}

func (p *VulkanProber) Probe() (Accelerator, error) {
	return nil, declineReason("AMD/Intel", p.Devices())
}

func declineReason(kind string, devices []Device) error {
	if len(devices) == 0 {
		return fmt.Errorf("no %s device found", kind)
	}
	return fmt.Errorf("found %d %s device(s): %w", len(devices), kind, errNoRuntime)
}
