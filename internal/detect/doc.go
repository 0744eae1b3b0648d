// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect reports host GPU capabilities and recommends models
// that fit the available memory.
//
// Detection shells out to vendor tools (nvidia-smi, rocm-smi, sysctl)
// and degrades to a CPU-only report when none are present. Results are
// cached for five minutes.
//
// # Key Types
//
//   - GpuInfo: name, VRAM and driver of the detected device
//   - GpuType: NVIDIA, AMD, Apple Silicon or CPU-only
//   - ModelRecommendation: a model tag suited to the detected memory
//
// # Usage
//
//	info := detect.Cached(ctx)
//	fmt.Println(info.String())
//	if !info.Detected() {
//		fmt.Println("running on CPU")
//	}
//
//	rec := detect.RecommendModel(info.VramGB)
//	fmt.Printf("suggested model: %s\n", rec.Model)
package detect
