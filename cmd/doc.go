// Package cmd implements the command-line interface for inboxassist.
//
// This package provides the following commands:
//   - serve: Start the MCP server with the Gmail, Calendar and cache tools
//   - slots: Find free slots in a working-hours window from a busy list
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
package cmd
