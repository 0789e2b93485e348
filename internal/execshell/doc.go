// Package execshell runs external executables, git in particular, behind a
// small testable abstraction.
//
// ShellExecutor logs every invocation with zap, hides credentials embedded in
// clone URLs, and converts non-zero exits into CommandFailedError values that
// still carry the captured output. OSCommandRunner is the production runner.
package execshell
