// Package policy implements the pure, storage-free decisions of the
// queuectl job lifecycle: backoff delay, terminal-state detection and
// run_at parsing. Nothing in this package performs I/O, which is what
// makes it straightforward to test exhaustively and to reason about
// independent of the store or the worker loop.
package policy
