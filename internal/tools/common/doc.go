// Package common holds helpers shared by the MCP tool packages: the
// instrumented handler wrapper and the mapping from domain errors to
// user-facing tool errors.
package common
