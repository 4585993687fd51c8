// Package llm provides the completion provider abstraction used by the
// expense extraction pipeline. It supports OpenAI and Gemini backends behind
// one interface, with rate limiting and shared response normalization.
package llm
