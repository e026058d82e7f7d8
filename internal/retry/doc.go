// Package retry wraps upstream Google API calls with exponential backoff and
// turns failures into messages a chat user can act on.
//
// Authentication failures are never retried. Classify sorts any error into
// auth, rate limit, network, timeout or generic, and UserMessage phrases it.
package retry
