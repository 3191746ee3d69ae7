// Package cmd implements the command-line interface for inboxassist.
//
// This package provides the following commands:
//   - inbox: List one page of the Gmail inbox
//   - show: Print the renderable body of one message
//   - connect, status, disconnect: Manage the Gmail connection of the configured identity
//   - rewrite polish, rewrite tone: Rewrite text with the configured chat model
//   - serve: Start the JSON API and MCP server (stdio or http transport)
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Every command reads the same configuration: defaults, then the YAML file
// given by --config, then INBOXASSIST_* environment variables.
package cmd
