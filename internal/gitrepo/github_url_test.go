package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitplugins/internal/gitrepo"
)

func TestParseGitHubURL(testInstance *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedOwner string
		expectedName  string
		expectError   bool
	}{
		{name: "https", input: "https://github.com/acme/widget", expectedOwner: "acme", expectedName: "widget"},
		{name: "https_git_suffix", input: "https://github.com/acme/widget.git", expectedOwner: "acme", expectedName: "widget"},
		{name: "http_www", input: "http://www.github.com/acme/widget", expectedOwner: "acme", expectedName: "widget"},
		{name: "scp_like", input: "git@github.com:acme/widget.git", expectedOwner: "acme", expectedName: "widget"},
		{name: "bare_host", input: "github.com/acme/widget", expectedOwner: "acme", expectedName: "widget"},
		{name: "trailing_slash", input: " https://github.com/acme/widget/ ", expectedOwner: "acme", expectedName: "widget"},
		{name: "dotted_name", input: "https://github.com/acme/widget.js", expectedOwner: "acme", expectedName: "widget.js"},
		{name: "other_host", input: "https://gitlab.com/acme/widget", expectError: true},
		{name: "missing_name", input: "https://github.com/acme", expectError: true},
		{name: "nested_path", input: "https://github.com/acme/widget/tree/main", expectError: true},
		{name: "empty", input: "", expectError: true},
		{name: "parent_name", input: "https://github.com/acme/..", expectError: true},
		{name: "current_name", input: "https://github.com/acme/.", expectError: true},
		{name: "parent_name_git_suffix", input: "git@github.com:acme/...git", expectError: true},
		{name: "parent_owner", input: "https://github.com/../widget", expectError: true},
		{name: "dotted_prefix_name", input: "https://github.com/acme/.github", expectedOwner: "acme", expectedName: ".github"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repository, parseError := gitrepo.ParseGitHubURL(testCase.input)
			if testCase.expectError {
				require.ErrorIs(testInstance, parseError, gitrepo.ErrInvalidGitHubURL)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedOwner, repository.Owner)
			require.Equal(testInstance, testCase.expectedName, repository.Name)
		})
	}
}

func TestGitHubRepositoryURLs(testInstance *testing.T) {
	repository := gitrepo.GitHubRepository{Owner: "acme", Name: "widget"}

	require.Equal(testInstance, "https://github.com/acme/widget", repository.URL())
	require.Equal(testInstance, "acme/widget", repository.FullName())
	require.Equal(testInstance, "https://github.com/acme/widget.git", repository.CloneURL(""))
	require.Equal(testInstance, "https://ghp_secret@github.com/acme/widget.git", repository.CloneURL(" ghp_secret "))
}
