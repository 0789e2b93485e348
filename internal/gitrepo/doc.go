// Package gitrepo understands GitHub repository URLs and reads the state of
// local clones.
//
// ParseGitHubURL normalizes the URL forms administrators paste into the
// registration form, and CloneInspector uses go-git to report the branch and
// commit an extension directory is checked out at.
package gitrepo
