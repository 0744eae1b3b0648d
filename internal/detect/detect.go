// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect reports host GPU capabilities.
package detect

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// detectTimeout bounds a full detection pass when the caller sets no deadline.
const detectTimeout = 5 * time.Second

// =============================================================================
// GPU TYPES
// =============================================================================

// GpuType identifies the kind of accelerator found on the host.
type GpuType int

const (
	// GpuTypeCPU means no dedicated GPU was found.
	GpuTypeCPU GpuType = iota
	// GpuTypeNvidia is an NVIDIA GPU (CUDA-capable).
	GpuTypeNvidia
	// GpuTypeAmd is an AMD GPU (ROCm-capable).
	GpuTypeAmd
	// GpuTypeAppleSilicon is an Apple Silicon chip with unified memory.
	GpuTypeAppleSilicon
)

// String returns the display name of the GPU type.
func (t GpuType) String() string {
	switch t {
	case GpuTypeNvidia:
		return "NVIDIA"
	case GpuTypeAmd:
		return "AMD"
	case GpuTypeAppleSilicon:
		return "Apple Silicon"
	case GpuTypeCPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// GpuInfo describes the detected accelerator.
type GpuInfo struct {
	// Name of the device (e.g. "NVIDIA GeForce RTX 4090")
	Name string
	// VramGB is usable video memory in gigabytes. Apple Silicon reports
	// its unified memory; CPU-only hosts report an estimate of the RAM
	// available to inference.
	VramGB uint32
	// Driver version when the vendor tool reports one
	Driver string
	// Type of the device
	Type GpuType
}

// Detected reports whether a dedicated GPU was found.
func (g *GpuInfo) Detected() bool {
	return g.Type != GpuTypeCPU
}

// String returns a one-line description of the device.
func (g *GpuInfo) String() string {
	s := fmt.Sprintf("%s (%dGB VRAM)", g.Name, g.VramGB)
	if g.Driver != "" {
		s += fmt.Sprintf(" [Driver: %s]", g.Driver)
	}
	return s
}

// =============================================================================
// DETECTION
// =============================================================================

// Detect probes the host for a usable GPU. NVIDIA is tried first (the
// most common case), then AMD, then Apple Silicon. Detection cannot
// fail; hosts without a GPU get the CPU fallback.
func Detect(ctx context.Context) *GpuInfo {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, detectTimeout)
		defer cancel()
	}

	if info := detectNvidia(ctx); info != nil {
		return info
	}
	if info := detectAMD(ctx); info != nil {
		return info
	}
	if info := detectAppleSilicon(ctx); info != nil {
		return info
	}
	return cpuInfo(ctx)
}

// =============================================================================
// CACHE
// =============================================================================

var (
	gpuCacheMu  sync.Mutex
	gpuCache    *GpuInfo
	gpuCacheAt  time.Time
	gpuCacheTTL = 5 * time.Minute
)

// Cached returns the last detection result when it is fresher than five
// minutes, probing again otherwise. Safe for concurrent use.
func Cached(ctx context.Context) *GpuInfo {
	gpuCacheMu.Lock()
	defer gpuCacheMu.Unlock()

	if gpuCache != nil && time.Since(gpuCacheAt) < gpuCacheTTL {
		return gpuCache
	}

	gpuCache = Detect(ctx)
	gpuCacheAt = time.Now()
	return gpuCache
}

// ClearCache drops the cached result so the next Cached call probes again.
func ClearCache() {
	gpuCacheMu.Lock()
	defer gpuCacheMu.Unlock()
	gpuCache = nil
	gpuCacheAt = time.Time{}
}

// =============================================================================
// NVIDIA
// =============================================================================

func detectNvidia(ctx context.Context) *GpuInfo {
	for _, path := range nvidiaSmiPaths() {
		out, err := exec.CommandContext(ctx, path,
			"--query-gpu=name,memory.total,driver_version",
			"--format=csv,noheader,nounits").Output()
		if err == nil {
			return parseNvidiaSmi(string(out))
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
	return nil
}

// nvidiaSmiPaths returns candidate nvidia-smi locations. Windows driver
// installs often leave the tool off PATH.
func nvidiaSmiPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{
			"nvidia-smi",
			`C:\Windows\System32\nvidia-smi.exe`,
			`C:\Program Files\NVIDIA Corporation\NVSMI\nvidia-smi.exe`,
		}
	}
	return []string{"nvidia-smi"}
}

// parseNvidiaSmi parses the first CSV line of nvidia-smi query output.
func parseNvidiaSmi(out string) *GpuInfo {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil
	}
	line := strings.TrimSpace(strings.Split(out, "\n")[0])

	// nvidia-smi emits CSV with ", " as the delimiter
	parts := strings.Split(line, ", ")
	if len(parts) < 3 {
		return nil
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return nil
	}
	// Newer drivers already include the vendor in the device name
	if !strings.HasPrefix(name, "NVIDIA") {
		name = "NVIDIA " + name
	}

	// Memory is reported in MiB
	vramMB, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil
	}

	return &GpuInfo{
		Name:   name,
		VramGB: uint32(vramMB/1024.0 + 0.5),
		Driver: strings.TrimSpace(parts[2]),
		Type:   GpuTypeNvidia,
	}
}

// =============================================================================
// AMD
// =============================================================================

var amdNumericRegex = regexp.MustCompile(`\d+`)

func detectAMD(ctx context.Context) *GpuInfo {
	// rocm-smi is effectively Linux-only; on Windows Ollama manages AMD
	// GPUs through its own HIP path and nothing here can see them.
	if runtime.GOOS == "windows" {
		return nil
	}

	out, err := exec.CommandContext(ctx, "rocm-smi", "--showproductname", "--showmeminfo", "vram").Output()
	if err != nil {
		return nil
	}
	info := parseRocmSmi(string(out))

	if out, err := exec.CommandContext(ctx, "rocm-smi", "--showdriverversion").Output(); err == nil {
		info.Driver = parseRocmDriver(string(out))
	}
	return info
}

// parseRocmSmi extracts the card name and VRAM size from rocm-smi
// output. Fields that cannot be parsed keep conservative defaults.
func parseRocmSmi(out string) *GpuInfo {
	info := &GpuInfo{Name: "AMD GPU", VramGB: 8, Type: GpuTypeAmd}

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Card series") {
			// The value follows the last colon in the row
			if idx := strings.LastIndex(line, ":"); idx >= 0 {
				if name := strings.TrimSpace(line[idx+1:]); name != "" {
					info.Name = "AMD " + name
				}
			}
			continue
		}

		if strings.Contains(line, "VRAM Total Memory") || strings.Contains(line, "Total Memory") {
			// The size is the last number on the row; earlier ones are
			// GPU indices like GPU[0]
			matches := amdNumericRegex.FindAllString(line, -1)
			if len(matches) == 0 {
				continue
			}
			val, err := strconv.ParseUint(matches[len(matches)-1], 10, 64)
			if err != nil || val == 0 {
				continue
			}
			switch {
			case val > 1_000_000_000: // bytes
				info.VramGB = uint32(val / 1_073_741_824)
			case val > 1_000_000: // MB
				info.VramGB = uint32(val / 1024)
			default: // already GB
				info.VramGB = uint32(val)
			}
		}
	}
	return info
}

// parseRocmDriver extracts the driver version line from rocm-smi output.
func parseRocmDriver(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Driver version") {
			if idx := strings.LastIndex(line, ":"); idx >= 0 {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// =============================================================================
// APPLE SILICON
// =============================================================================

func detectAppleSilicon(ctx context.Context) *GpuInfo {
	if runtime.GOOS != "darwin" || runtime.GOARCH != "arm64" {
		return nil
	}

	name := "Apple Silicon"
	if out, err := exec.CommandContext(ctx, "sysctl", "-n", "machdep.cpu.brand_string").Output(); err == nil {
		if s := strings.TrimSpace(string(out)); s != "" {
			name = s
		}
	}

	// Unified memory is shared with the GPU, so report all of it
	vramGB := uint32(8)
	if out, err := exec.CommandContext(ctx, "sysctl", "-n", "hw.memsize").Output(); err == nil {
		if bytes, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64); err == nil {
			vramGB = uint32(bytes / 1_073_741_824)
		}
	}

	driver := ""
	if out, err := exec.CommandContext(ctx, "sw_vers", "-productVersion").Output(); err == nil {
		driver = "macOS " + strings.TrimSpace(string(out))
	}

	return &GpuInfo{
		Name:   name,
		VramGB: vramGB,
		Driver: driver,
		Type:   GpuTypeAppleSilicon,
	}
}

// =============================================================================
// CPU FALLBACK
// =============================================================================

// cpuInfo builds the CPU-only report. Half of system RAM counts as
// available for inference.
func cpuInfo(ctx context.Context) *GpuInfo {
	vramGB := uint32(0)

	switch runtime.GOOS {
	case "darwin":
		if out, err := exec.CommandContext(ctx, "sysctl", "-n", "hw.memsize").Output(); err == nil {
			if bytes, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64); err == nil {
				vramGB = uint32(bytes / 1_073_741_824 / 2)
			}
		}
	case "linux":
		if data, err := os.ReadFile("/proc/meminfo"); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if strings.HasPrefix(line, "MemTotal:") {
					fields := strings.Fields(line)
					if len(fields) >= 2 {
						if kb, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
							vramGB = uint32(kb / 1024 / 1024 / 2)
						}
					}
					break
				}
			}
		}
	case "windows":
		out, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command",
			`[Math]::Round((Get-CimInstance Win32_ComputerSystem).TotalPhysicalMemory / 1GB / 2, 0)`).Output()
		if err == nil {
			if val, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 32); err == nil {
				vramGB = uint32(val)
			}
		}
	}

	if vramGB == 0 {
		vramGB = 4
	}

	return &GpuInfo{
		Name:   "CPU Only",
		VramGB: vramGB,
		Type:   GpuTypeCPU,
	}
}
