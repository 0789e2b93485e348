// Package ui renders human-readable console output for the gitplugins CLI:
// git progress lines while extensions are cloned or synchronized, and tables
// for repository, extension, and debug log listings.
package ui
