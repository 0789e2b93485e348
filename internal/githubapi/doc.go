// Package githubapi talks to the GitHub REST API to discover the latest
// released version of a repository and the branches it offers.
package githubapi
