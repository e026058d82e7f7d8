// Package common holds the plumbing shared by the tool packages.
//
// Fetch implements the read path every tool follows: a fresh cache entry is
// returned as is; otherwise the upstream call is retried with backoff and its
// result cached. If the upstream keeps failing for any reason other than
// authentication, an expired entry for the same key is served and flagged
// so the answer can say it may be outdated. Mutate runs writes once and
// invalidates the affected key families afterwards.
//
// InstrumentedToolHandler adds spans, metrics and an audit record to a tool.
package common
