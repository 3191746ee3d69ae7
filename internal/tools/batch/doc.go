// Package batch runs a tool operation over several ids with bounded
// concurrency and reports per-id success or failure, so one bad id never
// fails the whole call.
package batch
