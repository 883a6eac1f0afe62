// Package mcp implements an in-process Model Context Protocol tool server.
//
// The server maintains a thread-safe registry of tools backed by the official
// MCP SDK types. Tools can be listed and invoked programmatically, which lets
// host applications embed the platform tools without running a standalone
// MCP transport.
package mcp
