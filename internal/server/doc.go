// Package server exposes inboxassist over HTTP.
//
// ServerContext holds the inbox service, the rewriter and the token resolver
// shared by the JSON API and the MCP tools. HTTPServer mounts:
//
//	GET    /api/messages                 one inbox page (pageSize, pageToken, filter, q)
//	GET    /api/messages/{id}/content    renderable body of one message
//	POST   /api/rewrite/polish           {"text": "..."}
//	POST   /api/rewrite/tone             {"text": "...", "tone": "professional|friendly"}
//	GET    /api/gmail/status             whether Gmail is connected
//	DELETE /api/gmail                    forget the stored Gmail token
//	/mcp                                 MCP streamable HTTP transport
//	/healthz, /readyz, /healthz/detailed
//
// When a JWT secret is configured, /api and /mcp require an HS256 bearer
// token whose subject becomes the identity. A Gmail 401 is answered with 401
// {"error":"gmail_token_expired"} so clients can ask the user to reconnect.
//
// MetricsServer serves Prometheus metrics on a separate port.
package server
