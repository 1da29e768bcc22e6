package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
)

// BuildCachedSystemBlocks wraps a system prompt in a single content block
// carrying a 1-hour cache breakpoint. Every classification stage sends the
// same instructions for every item in a batch, so the prompt is written to
// the provider-side cache once and read back on each subsequent call.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: "1h",
			},
		},
	}
}

// PrimerRequest issues one small sequential request before a batch fans out,
// so the cached system block is already written when the concurrent workers
// start. Without the primer, the first wave of parallel calls would each pay
// the cache-write cost for the same prompt. The response is usually discarded.
func PrimerRequest(ctx context.Context, client Client, req MessageRequest) (*MessageResponse, error) {
	resp, err := client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: primer request")
	}
	return resp, nil
}
