// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect reports host GPU capabilities.
package detect

import (
	"context"
	"testing"
	"time"
)

// =============================================================================
// GPU TYPE TESTS
// =============================================================================

func TestGpuType_String(t *testing.T) {
	tests := []struct {
		gpuType GpuType
		want    string
	}{
		{GpuTypeCPU, "CPU"},
		{GpuTypeNvidia, "NVIDIA"},
		{GpuTypeAmd, "AMD"},
		{GpuTypeAppleSilicon, "Apple Silicon"},
		{GpuType(99), "Unknown"},
	}

	for _, tc := range tests {
		if got := tc.gpuType.String(); got != tc.want {
			t.Errorf("GpuType(%d).String() = %q, want %q", tc.gpuType, got, tc.want)
		}
	}
}

// =============================================================================
// GPU INFO TESTS
// =============================================================================

func TestGpuInfo_String(t *testing.T) {
	tests := []struct {
		info *GpuInfo
		want string
	}{
		{
			&GpuInfo{Name: "NVIDIA RTX 4090", VramGB: 24, Type: GpuTypeNvidia},
			"NVIDIA RTX 4090 (24GB VRAM)",
		},
		{
			&GpuInfo{Name: "NVIDIA RTX 4090", VramGB: 24, Driver: "535.154.05", Type: GpuTypeNvidia},
			"NVIDIA RTX 4090 (24GB VRAM) [Driver: 535.154.05]",
		},
		{
			&GpuInfo{Name: "Apple M2 Ultra", VramGB: 192, Type: GpuTypeAppleSilicon},
			"Apple M2 Ultra (192GB VRAM)",
		},
	}

	for _, tc := range tests {
		if got := tc.info.String(); got != tc.want {
			t.Errorf("GpuInfo.String() = %q, want %q", got, tc.want)
		}
	}
}

func TestGpuInfo_Detected(t *testing.T) {
	cpu := &GpuInfo{Name: "CPU Only", Type: GpuTypeCPU}
	if cpu.Detected() {
		t.Error("CPU-only info should not report as detected")
	}

	gpu := &GpuInfo{Name: "NVIDIA RTX 4090", Type: GpuTypeNvidia}
	if !gpu.Detected() {
		t.Error("NVIDIA info should report as detected")
	}
}

// =============================================================================
// OUTPUT PARSING TESTS
// =============================================================================

func TestParseNvidiaSmi(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   *GpuInfo
	}{
		{
			name:   "modern driver with vendor prefix",
			output: "NVIDIA GeForce RTX 4090, 24564, 535.154.05\n",
			want:   &GpuInfo{Name: "NVIDIA GeForce RTX 4090", VramGB: 24, Driver: "535.154.05", Type: GpuTypeNvidia},
		},
		{
			name:   "old driver without vendor prefix",
			output: "GeForce GTX 1060 6GB, 6144, 390.87",
			want:   &GpuInfo{Name: "NVIDIA GeForce GTX 1060 6GB", VramGB: 6, Driver: "390.87", Type: GpuTypeNvidia},
		},
		{
			name:   "multi-GPU takes the first line",
			output: "NVIDIA RTX A6000, 49140, 550.54.14\nNVIDIA RTX A6000, 49140, 550.54.14\n",
			want:   &GpuInfo{Name: "NVIDIA RTX A6000", VramGB: 48, Driver: "550.54.14", Type: GpuTypeNvidia},
		},
		{
			name:   "empty output",
			output: "",
			want:   nil,
		},
		{
			name:   "too few fields",
			output: "garbage\n",
			want:   nil,
		},
		{
			name:   "unparseable memory",
			output: "Some GPU, notanumber, 1.0\n",
			want:   nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parseNvidiaSmi(tc.output)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("Expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected info, got nil")
			}
			if *got != *tc.want {
				t.Errorf("parseNvidiaSmi = %+v, want %+v", *got, *tc.want)
			}
		})
	}
}

func TestParseRocmSmi(t *testing.T) {
	output := `======================= ROCm System Management Interface =======================
================================ Product Info ==================================
GPU[0]		: Card series:		Radeon RX 7900 XT
GPU[0]		: Card model:		0x744c
================================================================================
============================ Memory Usage (Bytes) ==============================
GPU[0]		: VRAM Total Memory (B): 21458059264
GPU[0]		: VRAM Total Used Memory (B): 282497024
================================================================================
`
	info := parseRocmSmi(output)
	if info.Name != "AMD Radeon RX 7900 XT" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.VramGB != 19 {
		t.Errorf("VramGB = %d, want 19", info.VramGB)
	}
	if info.Type != GpuTypeAmd {
		t.Errorf("Type = %v", info.Type)
	}

	// Unparseable output keeps conservative defaults
	info = parseRocmSmi("")
	if info.Name != "AMD GPU" || info.VramGB != 8 {
		t.Errorf("Defaults = %q / %d", info.Name, info.VramGB)
	}
}

func TestParseRocmDriver(t *testing.T) {
	output := `======================= ROCm System Management Interface =======================
Driver version: 6.3.2
================================================================================
`
	if got := parseRocmDriver(output); got != "6.3.2" {
		t.Errorf("Driver = %q, want 6.3.2", got)
	}
	if got := parseRocmDriver("no driver line here"); got != "" {
		t.Errorf("Driver = %q, want empty", got)
	}
}

// =============================================================================
// DETECTION TESTS
// =============================================================================

func TestDetect(t *testing.T) {
	// Detection always produces a result, even on GPU-less hosts
	info := Detect(context.Background())
	if info == nil {
		t.Fatal("Detect returned nil")
	}
	if info.Name == "" {
		t.Error("Name should not be empty")
	}
	if info.Type < GpuTypeCPU || info.Type > GpuTypeAppleSilicon {
		t.Errorf("Type = %d is out of range", info.Type)
	}

	t.Logf("Detected: %s (Type: %s)", info.String(), info.Type)
}

func TestDetect_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Should not hang
	done := make(chan bool)
	go func() {
		Detect(ctx)
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Detect should respect context cancellation")
	}
}

// =============================================================================
// CACHE TESTS
// =============================================================================

func TestCached(t *testing.T) {
	ClearCache()

	info1 := Cached(context.Background())
	if info1 == nil {
		t.Fatal("Cached returned nil")
	}

	// A fresh entry is returned as-is
	info2 := Cached(context.Background())
	if info1 != info2 {
		t.Error("Second call should return the cached pointer")
	}

	// An expired entry triggers fresh detection
	gpuCacheMu.Lock()
	gpuCacheAt = time.Now().Add(-10 * time.Minute)
	gpuCacheMu.Unlock()

	info3 := Cached(context.Background())
	if info3 == nil {
		t.Fatal("Cached returned nil after expiry")
	}
	if info3 == info1 {
		t.Error("Expired cache should be refreshed")
	}
}

func TestClearCache(t *testing.T) {
	Cached(context.Background())
	ClearCache()

	gpuCacheMu.Lock()
	cleared := gpuCache == nil
	gpuCacheMu.Unlock()

	if !cleared {
		t.Error("ClearCache should drop the cached result")
	}
}

func TestCached_Concurrent(t *testing.T) {
	ClearCache()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				if info := Cached(context.Background()); info == nil {
					t.Error("Concurrent Cached returned nil")
				}
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

// =============================================================================
// RECOMMENDATION TESTS
// =============================================================================

func TestRecommendModel(t *testing.T) {
	tests := []struct {
		vramGB uint32
		want   string
	}{
		{2, "llama3.2:1b"},
		{4, "qwen2.5:3b-instruct"},
		{5, "qwen2.5:3b-instruct"},
		{6, "qwen2.5:7b-instruct"},
		{8, "qwen2.5:7b-instruct"},
		{12, "qwen2.5:14b-instruct"},
		{16, "qwen2.5:14b-instruct"},
		{24, "qwen2.5:32b-instruct"},
		{192, "qwen2.5:32b-instruct"},
	}

	for _, tc := range tests {
		rec := RecommendModel(tc.vramGB)
		if rec.Model != tc.want {
			t.Errorf("RecommendModel(%d) = %q, want %q", tc.vramGB, rec.Model, tc.want)
		}
		if rec.Description == "" {
			t.Errorf("RecommendModel(%d) has no description", tc.vramGB)
		}
		if rec.MinVramGB > tc.vramGB {
			t.Errorf("RecommendModel(%d) needs %d GB", tc.vramGB, rec.MinVramGB)
		}
	}
}

func TestEstimateVramGB(t *testing.T) {
	tests := []struct {
		model string
		want  uint32
	}{
		{"llama3.2:1b", 2},
		{"tinyllama:1.1b", 2},
		{"qwen2.5:3b-instruct", 3},
		{"qwen2.5:7b-instruct", 5},
		{"qwen2.5:14b-instruct", 9},
		{"qwen2.5:32b-instruct", 19},
		{"mystery-model", 5}, // no parameter count, estimates as 7B
	}

	for _, tc := range tests {
		if got := EstimateVramGB(tc.model); got != tc.want {
			t.Errorf("EstimateVramGB(%q) = %d, want %d", tc.model, got, tc.want)
		}
	}
}

func TestFits(t *testing.T) {
	tests := []struct {
		model  string
		vramGB uint32
		want   bool
	}{
		{"qwen2.5:3b-instruct", 4, true},
		{"qwen2.5:7b-instruct", 6, true},
		{"qwen2.5:14b-instruct", 8, false},
		{"qwen2.5:32b-instruct", 16, false},
		{"qwen2.5:32b-instruct", 24, true},
	}

	for _, tc := range tests {
		if got := Fits(tc.model, tc.vramGB); got != tc.want {
			t.Errorf("Fits(%q, %d) = %v, want %v", tc.model, tc.vramGB, got, tc.want)
		}
	}
}
