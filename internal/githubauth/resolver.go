package githubauth

import (
	"context"
	"strings"
)

// StoredTokenProvider returns the token saved in the administrator settings.
type StoredTokenProvider interface {
	GitHubToken(executionContext context.Context) (string, error)
}

// Resolver picks the token used for private clones and API calls.
// The stored setting wins, then the configured source, then the environment.
type Resolver struct {
	Stored      StoredTokenProvider
	Source      TokenSource
	Environment EnvironmentLookup
	Files       FileReader
}

// Token returns the resolved token, empty when none is available.
func (resolver Resolver) Token(executionContext context.Context) (string, error) {
	if resolver.Stored != nil {
		storedToken, storedError := resolver.Stored.GitHubToken(executionContext)
		if storedError != nil {
			return "", storedError
		}
		if trimmedToken := strings.TrimSpace(storedToken); len(trimmedToken) > 0 {
			return trimmedToken, nil
		}
	}

	if resolver.Source.Type != TokenSourceTypeNone {
		return resolver.Source.Read(resolver.Environment, resolver.Files)
	}

	environmentToken, _ := ResolveEnvironmentToken(resolver.Environment)
	return environmentToken, nil
}
