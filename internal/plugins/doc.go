// Package plugins coordinates the extension lifecycle: registering
// repositories, cloning or synchronizing them with git, resolving the
// extension each clone provides, activation, branch switches, deletion, and
// release checks against GitHub.
//
// Actions are sequential and independent. A failed git step is surfaced with
// its captured output and never retried.
package plugins
