package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talentsignal/signal-cli/pkg/anthropic"
)

func TestCalculator_Claude(t *testing.T) {
	calc := NewCalculator(Rates{
		Anthropic: map[string]ModelRate{
			"test-model": {
				Input: 1.00, Output: 5.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
	})

	got := calc.Claude("test-model", anthropic.TokenUsage{
		InputTokens:  1_000_000,
		OutputTokens: 1_000_000,
	})
	assert.InDelta(t, 6.00, got, 0.0001)
}

func TestCalculator_Claude_CacheTokens(t *testing.T) {
	calc := NewCalculator(Rates{
		Anthropic: map[string]ModelRate{
			"test-model": {
				Input: 1.00, Output: 5.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
	})

	got := calc.Claude("test-model", anthropic.TokenUsage{
		CacheCreationInputTokens: 1_000_000,
		CacheReadInputTokens:     1_000_000,
	})
	// 1.25 for the write plus 0.10 for the read.
	assert.InDelta(t, 1.35, got, 0.0001)
}

func TestCalculator_Claude_UnknownModel(t *testing.T) {
	calc := NewCalculator(DefaultRates())

	got := calc.Claude("no-such-model", anthropic.TokenUsage{InputTokens: 1_000_000})
	assert.Zero(t, got)
}

func TestDefaultRates_CoverPipelineModels(t *testing.T) {
	rates := DefaultRates()
	assert.Contains(t, rates.Anthropic, "claude-haiku-4-5-20251001")
	assert.Contains(t, rates.Anthropic, "claude-sonnet-4-5-20250929")
}
