// Package batch runs a tool operation over many IDs and reports a result
// per ID, so one bad message never fails the whole request.
package batch
