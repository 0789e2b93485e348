// Package cli constructs the gitplugins command-line interface, wiring the
// Cobra command hierarchy, configuration loader, structured logging, and the
// repository, extension, settings, and admin API services behind each command.
package cli
