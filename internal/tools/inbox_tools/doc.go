// Package inbox_tools exposes the inbox over MCP: one page of the mailbox,
// the renderable body of messages, and the Gmail connection status.
package inbox_tools
