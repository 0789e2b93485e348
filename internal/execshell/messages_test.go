package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildStartedMessageForFetchIncludesRemoteAndReferences(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"fetch", "origin", "feature"},
			WorkingDirectory: "/srv/extensions/widget",
		},
	}

	require.Equal(t, "Fetching feature from origin in /srv/extensions/widget", formatter.BuildStartedMessage(command))
}

func TestBuildCloneMessagesHideCredentials(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments: []string{"clone", "--branch", "develop", "--single-branch", "--depth", "1", "https://tok@github.com/acme/widget.git", "/srv/extensions/widget"},
		},
	}

	require.Equal(t, "Cloning https://***@github.com/acme/widget.git (branch develop) into /srv/extensions/widget", formatter.BuildStartedMessage(command))
	require.Equal(t, "Failed to clone https://***@github.com/acme/widget.git (branch develop) into /srv/extensions/widget (exit code 128: fatal: not found)",
		formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 128, StandardError: "fatal: not found\n"}))
}

func TestBuildCheckoutAndPullMessages(t *testing.T) {
	formatter := CommandMessageFormatter{}
	checkout := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"checkout", "main"}, WorkingDirectory: "/srv/extensions/widget"}}
	pull := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"pull", "origin", "main"}, WorkingDirectory: "/srv/extensions/widget"}}

	require.Equal(t, "/srv/extensions/widget now on branch main", formatter.BuildSuccessMessage(checkout))
	require.Equal(t, "Pulled main from origin in /srv/extensions/widget", formatter.BuildSuccessMessage(pull))
	require.Equal(t, "Unable to pull main from origin in /srv/extensions/widget: killed", formatter.BuildExecutionFailureMessage(pull, errors.New("killed")))
}

func TestBuildGenericMessageForUnknownSubcommand(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"status"}, WorkingDirectory: "/tmp/repo"}}

	require.Equal(t, "Running git status (in /tmp/repo)", formatter.BuildStartedMessage(command))
	require.Equal(t, "git status (in /tmp/repo) failed with exit code 2: bad", formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 2, StandardError: "bad"}))
}

func TestBuildVersionMessages(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"--version"}}}

	require.Equal(t, "Checking git version", formatter.BuildStartedMessage(command))
	require.Equal(t, "Git is not available: executable file not found", formatter.BuildExecutionFailureMessage(command, errors.New("executable file not found")))
}
