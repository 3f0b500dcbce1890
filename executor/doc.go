// Package executor runs a single job's command as a child process.
//
// An Executor never blocks on completion: start spawns the process and
// returns a Handle immediately; callers poll the Handle to observe
// whether the process has exited. This matches the Worker loop's
// need to interleave polling with shutdown checks and timeout
// enforcement at sub-second granularity.
package executor
