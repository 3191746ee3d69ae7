// Package rewrite polishes draft text and changes its tone through an
// OpenAI-compatible chat-completions API, DeepSeek by default. MockRewriter
// stands in when no API key is configured.
package rewrite
