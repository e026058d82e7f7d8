// Package cache implements the TTL cache that sits in front of the Gmail and
// Calendar APIs.
//
// One TTLCache is created per process and handed to the tool layer. A read
// goes through Get; when the upstream call fails the tool layer may fall back
// to GetStale and label the answer as possibly outdated. Mutating tools drop
// whole key families with InvalidatePattern, for example EmailListPrefix
// after sending mail.
//
// Keys follow domain:operation:scope:params. Use the builders in keys.go so
// logically identical requests share a key.
package cache
