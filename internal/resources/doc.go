// Package resources provides read-only MCP resources describing the running
// server: the response cache and the settings that shape tool answers.
package resources
