// Package rewrite_tools exposes draft polishing and tone changes over MCP.
package rewrite_tools
