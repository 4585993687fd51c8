package llm

import "strings"

// StripJSONFence removes a surrounding markdown code fence (with or without a
// json language tag) from provider output. Unfenced input passes through
// unchanged, so the operation is idempotent.
func StripJSONFence(content string) string {
	s := strings.TrimSpace(content)

	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}

	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// StripDataURLPrefix removes a leading data-URL header ("data:image/...;base64,")
// from a base64 payload, if present.
func StripDataURLPrefix(base64Image string) string {
	if !strings.HasPrefix(base64Image, "data:") {
		return base64Image
	}
	if idx := strings.Index(base64Image, "base64,"); idx >= 0 {
		return base64Image[idx+len("base64,"):]
	}
	return base64Image
}
