package gitrepo

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	githubHostConstant             = "github.com"
	canonicalRepositoryURLTemplate = "https://github.com/%s/%s"
	publicCloneURLTemplateConstant = "https://github.com/%s/%s.git"
	authenticatedCloneURLTemplate  = "https://%s@github.com/%s/%s.git"
	invalidGitHubURLErrorTemplate  = "%w: %s"
	repositoryIdentifierTemplate   = "%s/%s"
)

// ErrInvalidGitHubURL indicates the input does not reference a GitHub repository.
var ErrInvalidGitHubURL = errors.New("invalid GitHub repository URL")

// githubRepositoryPattern accepts https, http, scp-like git@ and bare host forms, with optional www. and .git.
var githubRepositoryPattern = regexp.MustCompile(`^(?:https?://|git@)?(?:www\.)?github\.com[:/]([^/]+)/([^/]+?)(?:\.git)?$`)

// GitHubRepository identifies a repository hosted on GitHub.
type GitHubRepository struct {
	Owner string
	Name  string
}

// ParseGitHubURL extracts the owner and repository name from a GitHub URL.
func ParseGitHubURL(rawURL string) (GitHubRepository, error) {
	trimmedURL := strings.TrimSuffix(strings.TrimSpace(rawURL), "/")
	matches := githubRepositoryPattern.FindStringSubmatch(trimmedURL)
	if len(matches) != 3 {
		return GitHubRepository{}, fmt.Errorf(invalidGitHubURLErrorTemplate, ErrInvalidGitHubURL, rawURL)
	}
	if isDotSegment(matches[1]) || isDotSegment(matches[2]) {
		return GitHubRepository{}, fmt.Errorf(invalidGitHubURLErrorTemplate, ErrInvalidGitHubURL, rawURL)
	}
	return GitHubRepository{Owner: matches[1], Name: matches[2]}, nil
}

// isDotSegment reports whether segment is a relative path element.
func isDotSegment(segment string) bool {
	return segment == "." || segment == ".."
}

// URL returns the canonical browser URL of the repository.
func (repository GitHubRepository) URL() string {
	return fmt.Sprintf(canonicalRepositoryURLTemplate, repository.Owner, repository.Name)
}

// FullName returns the owner/name identifier used by the GitHub API.
func (repository GitHubRepository) FullName() string {
	return fmt.Sprintf(repositoryIdentifierTemplate, repository.Owner, repository.Name)
}

// CloneURL returns the HTTPS clone URL, embedding the token when one is supplied.
func (repository GitHubRepository) CloneURL(token string) string {
	trimmedToken := strings.TrimSpace(token)
	if len(trimmedToken) == 0 {
		return fmt.Sprintf(publicCloneURLTemplateConstant, repository.Owner, repository.Name)
	}
	return fmt.Sprintf(authenticatedCloneURLTemplate, trimmedToken, repository.Owner, repository.Name)
}

// Host reports the hosting service of the repository.
func (repository GitHubRepository) Host() string {
	return githubHostConstant
}
