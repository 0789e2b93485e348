package githubauth

import (
	"os"
	"strings"
)

// Environment variables consulted for a GitHub API token, in order of preference.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// ResolveEnvironmentToken returns the first non-empty token among the preferred variables.
func ResolveEnvironmentToken(lookup EnvironmentLookup) (string, bool) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range tokenPreference {
		value, found := lookup(key)
		if !found {
			continue
		}
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			return trimmedValue, true
		}
	}
	return "", false
}
