package gitops_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitplugins/internal/execshell"
	"github.com/temirov/gitplugins/internal/gitops"
)

const (
	testTargetDirectoryConstant = "/srv/extensions/widget"
	testCloneURLConstant        = "https://github.com/acme/widget.git"
	testBranchConstant          = "develop"
)

type scriptedGitExecutor struct {
	results  []execshell.ExecutionResult
	errors   []error
	recorded []execshell.CommandDetails
}

func (executor *scriptedGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	index := len(executor.recorded)
	executor.recorded = append(executor.recorded, details)
	var result execshell.ExecutionResult
	var executionError error
	if index < len(executor.results) {
		result = executor.results[index]
	}
	if index < len(executor.errors) {
		executionError = executor.errors[index]
	}
	return result, executionError
}

func newRunner(testInstance *testing.T, executor gitops.GitExecutor) *gitops.Runner {
	testInstance.Helper()
	runner, creationError := gitops.NewRunner(gitops.Dependencies{
		GitExecutor: executor,
		Locator:     func(string) (string, error) { return "/usr/bin/git", nil },
	})
	require.NoError(testInstance, creationError)
	return runner
}

func TestNewRunnerRequiresExecutor(testInstance *testing.T) {
	_, creationError := gitops.NewRunner(gitops.Dependencies{})
	require.ErrorIs(testInstance, creationError, gitops.ErrGitExecutorNotConfigured)
}

func TestCloneBuildsShallowSingleBranchInvocation(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	runner := newRunner(testInstance, executor)

	require.NoError(testInstance, runner.Clone(context.Background(), testCloneURLConstant, testBranchConstant, testTargetDirectoryConstant))
	require.Len(testInstance, executor.recorded, 1)
	require.Equal(testInstance,
		[]string{"clone", "--branch", testBranchConstant, "--single-branch", "--depth", "1", testCloneURLConstant, testTargetDirectoryConstant},
		executor.recorded[0].Arguments)
	require.Equal(testInstance, "0", executor.recorded[0].EnvironmentVariables["GIT_TERMINAL_PROMPT"])
}

func TestCloneValidatesInputs(testInstance *testing.T) {
	runner := newRunner(testInstance, &scriptedGitExecutor{})

	require.ErrorIs(testInstance, runner.Clone(context.Background(), " ", testBranchConstant, testTargetDirectoryConstant), gitops.ErrCloneURLRequired)
	require.ErrorIs(testInstance, runner.Clone(context.Background(), testCloneURLConstant, "", testTargetDirectoryConstant), gitops.ErrBranchNameRequired)
	require.ErrorIs(testInstance, runner.Clone(context.Background(), testCloneURLConstant, testBranchConstant, ""), gitops.ErrTargetDirectoryRequired)
}

func TestSyncRunsFetchCheckoutPull(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	runner := newRunner(testInstance, executor)

	require.NoError(testInstance, runner.Sync(context.Background(), testTargetDirectoryConstant, testBranchConstant))
	require.Len(testInstance, executor.recorded, 3)
	require.Equal(testInstance, []string{"fetch", "origin", testBranchConstant}, executor.recorded[0].Arguments)
	require.Equal(testInstance, []string{"checkout", testBranchConstant}, executor.recorded[1].Arguments)
	require.Equal(testInstance, []string{"pull", "origin", testBranchConstant}, executor.recorded[2].Arguments)
	for _, details := range executor.recorded {
		require.Equal(testInstance, testTargetDirectoryConstant, details.WorkingDirectory)
	}
}

func TestSyncStopsAtFirstFailure(testInstance *testing.T) {
	testCases := []struct {
		name              string
		results           []execshell.ExecutionResult
		errors            []error
		expectedCommands  int
		expectedOperation gitops.Operation
		expectedMessage   string
	}{
		{
			name:              "non_zero_exit",
			errors:            []error{execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 128, StandardError: "fatal: couldn't find remote ref develop"}}},
			expectedCommands:  1,
			expectedOperation: gitops.OperationFetch,
			expectedMessage:   "Git error: fatal: couldn't find remote ref develop",
		},
		{
			name:              "error_marker_in_output",
			results:           []execshell.ExecutionResult{{}, {StandardError: "error: pathspec 'develop' did not match"}},
			expectedCommands:  2,
			expectedOperation: gitops.OperationCheckout,
			expectedMessage:   "Git error: error: pathspec 'develop' did not match",
		},
		{
			name:              "runner_failure",
			errors:            []error{nil, nil, execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: execshell.CommandGit}, Cause: errors.New("signal: killed")}},
			expectedCommands:  3,
			expectedOperation: gitops.OperationPull,
			expectedMessage:   "Git error: git could not be executed: signal: killed",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedGitExecutor{results: testCase.results, errors: testCase.errors}
			runner := newRunner(testInstance, executor)

			syncError := runner.Sync(context.Background(), testTargetDirectoryConstant, testBranchConstant)
			var gitError gitops.GitError
			require.ErrorAs(testInstance, syncError, &gitError)
			require.Equal(testInstance, testCase.expectedOperation, gitError.Operation)
			require.Equal(testInstance, testCase.expectedMessage, syncError.Error())
			require.Len(testInstance, executor.recorded, testCase.expectedCommands)
		})
	}
}

func TestAvailableUsesLocator(testInstance *testing.T) {
	runner, creationError := gitops.NewRunner(gitops.Dependencies{
		GitExecutor: &scriptedGitExecutor{},
		Locator:     func(string) (string, error) { return "", errors.New("executable file not found in $PATH") },
	})
	require.NoError(testInstance, creationError)

	require.ErrorIs(testInstance, runner.Available(), gitops.ErrGitUnavailable)
}

func TestVersionTrimsOutput(testInstance *testing.T) {
	executor := &scriptedGitExecutor{results: []execshell.ExecutionResult{{StandardOutput: "git version 2.43.0\n"}}}
	runner := newRunner(testInstance, executor)

	version, versionError := runner.Version(context.Background())
	require.NoError(testInstance, versionError)
	require.Equal(testInstance, "git version 2.43.0", version)
	require.Equal(testInstance, []string{"--version"}, executor.recorded[0].Arguments)
}
