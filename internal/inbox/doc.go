// Package inbox joins token resolution and the Gmail fetcher into the
// operations the CLI, HTTP API and MCP tools expose.
package inbox
