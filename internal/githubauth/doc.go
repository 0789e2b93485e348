// Package githubauth resolves the GitHub token used for private clones and
// API requests from settings, configured sources, and the environment.
package githubauth
