package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripJSONFence(t *testing.T) {
	plain := `{"amount": 10.5, "payee": "NTUC Fairprice"}`

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "unfenced passes through",
			input: plain,
			want:  plain,
		},
		{
			name:  "json fence",
			input: "```json\n" + plain + "\n```",
			want:  plain,
		},
		{
			name:  "bare fence",
			input: "```\n" + plain + "\n```",
			want:  plain,
		},
		{
			name:  "fence without newlines",
			input: "```json" + plain + "```",
			want:  plain,
		},
		{
			name:  "surrounding whitespace",
			input: "  \n```json\n" + plain + "\n```\n  ",
			want:  plain,
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "non-json text untouched",
			input: "This is not JSON",
			want:  "This is not JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripJSONFence(tt.input))
		})
	}
}

func TestStripJSONFenceIdempotent(t *testing.T) {
	fenced := "```json\n{\"a\":1}\n```"
	once := StripJSONFence(fenced)
	assert.Equal(t, once, StripJSONFence(once))
}

func TestStripDataURLPrefix(t *testing.T) {
	assert.Equal(t, "abc123", StripDataURLPrefix("data:image/jpeg;base64,abc123"))
	assert.Equal(t, "abc123", StripDataURLPrefix("data:image/png;base64,abc123"))
	assert.Equal(t, "abc123", StripDataURLPrefix("abc123"))
	assert.Equal(t, "", StripDataURLPrefix(""))
}
