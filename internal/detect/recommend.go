// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect reports host GPU capabilities.
package detect

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// MODEL RECOMMENDATION
// =============================================================================

// ModelRecommendation pairs a model tag with the reason it suits the host.
type ModelRecommendation struct {
	Model       string `json:"model"`
	Description string `json:"description"`
	MinVramGB   uint32 `json:"min_vram_gb"`
}

// RecommendModel suggests a chat model for the given memory budget.
// Tiers favor models that stay responsive on modest hardware.
func RecommendModel(vramGB uint32) ModelRecommendation {
	switch {
	case vramGB < 4:
		return ModelRecommendation{
			Model:       "llama3.2:1b",
			Description: "Small enough for machines with very little memory",
			MinVramGB:   2,
		}
	case vramGB < 6:
		return ModelRecommendation{
			Model:       "qwen2.5:3b-instruct",
			Description: "The stock model, comfortable at 4 GB",
			MinVramGB:   4,
		}
	case vramGB < 12:
		return ModelRecommendation{
			Model:       "qwen2.5:7b-instruct",
			Description: "Stronger answers with memory to spare",
			MinVramGB:   6,
		}
	case vramGB < 24:
		return ModelRecommendation{
			Model:       "qwen2.5:14b-instruct",
			Description: "High quality for mid-range GPUs",
			MinVramGB:   12,
		}
	default:
		return ModelRecommendation{
			Model:       "qwen2.5:32b-instruct",
			Description: "Best quality, needs a large GPU",
			MinVramGB:   24,
		}
	}
}

// =============================================================================
// MEMORY ESTIMATION
// =============================================================================

// paramCountRegex matches parameter counts in tags like ":3b" or "1.1b".
var paramCountRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)b`)

// EstimateVramGB estimates the memory a model needs at Q4 quantization.
// Names without a parameter count estimate as a 7B model.
func EstimateVramGB(model string) uint32 {
	params := extractParamCount(strings.ToLower(model))
	if params == 0 {
		params = 7
	}
	// Q4_K_M runs about 0.56 bytes per parameter, plus KV cache overhead
	gb := params*0.56 + 1.5
	return uint32(gb + 0.5)
}

func extractParamCount(model string) float64 {
	matches := paramCountRegex.FindStringSubmatch(model)
	if len(matches) < 2 {
		return 0
	}
	params, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0
	}
	return params
}

// Fits reports whether a model is likely to run within the given memory,
// keeping a 20% margin for context growth.
func Fits(model string, vramGB uint32) bool {
	return float64(EstimateVramGB(model))*1.2 <= float64(vramGB)
}
