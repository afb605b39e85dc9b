package system

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ivlev/scenecomp/internal/scene"
)

// DiscoverDevices lists the render devices of this host: the CPU plus any
// GPU reported by the vendor tools. Nothing is enabled yet.
func DiscoverDevices() (scene.DeviceConfig, error) {
	cfg := scene.DeviceConfig{Compute: scene.DeviceCPU}

	cores, err := cpu.Counts(true)
	if err != nil {
		return cfg, fmt.Errorf("cpu count: %w", err)
	}
	name := runtime.GOARCH + " CPU"
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 && infos[0].ModelName != "" {
		name = strings.TrimSpace(infos[0].ModelName)
	}
	cfg.Devices = append(cfg.Devices, scene.Device{Name: name, Type: scene.DeviceCPU, Cores: cores})

	for _, gpu := range nvidiaGPUs() {
		cfg.Devices = append(cfg.Devices, scene.Device{Name: gpu, Type: scene.DeviceCUDA})
		cfg.Compute = scene.DeviceCUDA
	}
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		cfg.Devices = append(cfg.Devices, scene.Device{Name: "Apple GPU", Type: scene.DeviceMetal})
		cfg.Compute = scene.DeviceMetal
	}
	return cfg, nil
}

func nvidiaGPUs() []string {
	out, err := exec.Command("nvidia-smi", "-L").Output()
	if err != nil {
		return nil
	}
	var gpus []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "GPU ") {
			continue
		}
		// GPU 0: NVIDIA GeForce RTX 3080 (UUID: GPU-...)
		if _, name, ok := strings.Cut(line, ": "); ok {
			if i := strings.Index(name, " (UUID"); i >= 0 {
				name = name[:i]
			}
			gpus = append(gpus, name)
		}
	}
	return gpus
}

// HostStats is a snapshot of host load for the performance report.
type HostStats struct {
	CPUPercent  float64
	MemUsedPct  float64
	MemTotalMB  uint64
	ProcessRSS  uint64
	LogicalCPUs int
}

// CollectHostStats samples host and process usage. Fields that cannot be
// read stay zero.
func CollectHostStats() HostStats {
	var s HostStats
	if n, err := cpu.Counts(true); err == nil {
		s.LogicalCPUs = n
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemUsedPct = vm.UsedPercent
		s.MemTotalMB = vm.Total / (1024 * 1024)
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			s.ProcessRSS = mi.RSS
		}
	}
	return s
}

func (s HostStats) String() string {
	return fmt.Sprintf("CPUs: %d | CPU: %.1f%% | Mem: %.1f%% of %d MB | RSS: %d MB",
		s.LogicalCPUs, s.CPUPercent, s.MemUsedPct, s.MemTotalMB, s.ProcessRSS/(1024*1024))
}
