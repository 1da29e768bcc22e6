package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talentsignal/signal-cli/pkg/anthropic"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"relevant": true}`, `{"relevant": true}`},
		{"json fence", "```json\n{\"relevant\": true}\n```", `{"relevant": true}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"leading prose", `Here is my verdict: {"relevant": false} as requested.`, `{"relevant": false}`},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"no json at all", "I cannot answer that.", "I cannot answer that."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

func TestExtractText(t *testing.T) {
	resp := &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{
			{Type: "text", Text: "first"},
			{Type: "tool_use", Text: ""},
			{Type: "text", Text: "second"},
		},
	}
	assert.Equal(t, "first\nsecond", extractText(resp))
	assert.Empty(t, extractText(nil))
	assert.Empty(t, extractText(&anthropic.MessageResponse{}))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abcd", 2))
	// Multi-byte runes are never split.
	assert.Equal(t, "héllo", truncateRunes("héllo world", 5))
	assert.Empty(t, truncateRunes("abc", 0))
}

func TestNormalizeRoles(t *testing.T) {
	got := normalizeRoles([]string{" Backend Engineer ", "backend engineer", "", "SRE", "Designer"}, 2)
	assert.Equal(t, []string{"backend engineer", "sre"}, got)

	// Zero limit keeps everything.
	got = normalizeRoles([]string{"A", "B"}, 0)
	assert.Equal(t, []string{"a", "b"}, got)

	assert.Nil(t, normalizeRoles(nil, 3))
}

func TestJoinRoles(t *testing.T) {
	assert.Equal(t, "(none listed)", joinRoles(nil))
	assert.Equal(t, "backend engineer", joinRoles([]string{"backend engineer"}))
	assert.Equal(t, "a, b, c", joinRoles([]string{"a", "b", "c"}))
}
