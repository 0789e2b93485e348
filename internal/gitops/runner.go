package gitops

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/execshell"
)

const (
	gitExecutableNameConstant                   = "git"
	gitVersionFlagConstant                      = "--version"
	gitCloneSubcommandConstant                  = "clone"
	gitBranchFlagConstant                       = "--branch"
	gitSingleBranchFlagConstant                 = "--single-branch"
	gitDepthFlagConstant                        = "--depth"
	gitShallowDepthConstant                     = "1"
	gitFetchSubcommandConstant                  = "fetch"
	gitCheckoutSubcommandConstant               = "checkout"
	gitPullSubcommandConstant                   = "pull"
	gitOriginRemoteConstant                     = "origin"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
	gitOutputErrorMarkerConstant                = "error"
	gitErrorMessageTemplateConstant             = "Git error: %s"
	gitUnavailableMessageConstant               = "Git is not available on this server. Please install Git or contact your hosting provider."
	gitExecutorMissingMessageConstant           = "git executor not configured"
	targetDirectoryRequiredMessageConstant      = "target directory must be provided"
	branchNameRequiredMessageConstant           = "branch name must be provided"
	cloneURLRequiredMessageConstant             = "clone url must be provided"
	operationFieldConstant                      = "operation"
	directoryFieldConstant                      = "directory"
	branchFieldConstant                         = "branch"
)

// ErrGitUnavailable indicates the git executable could not be located.
var ErrGitUnavailable = errors.New(gitUnavailableMessageConstant)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrTargetDirectoryRequired indicates an empty target directory.
var ErrTargetDirectoryRequired = errors.New(targetDirectoryRequiredMessageConstant)

// ErrBranchNameRequired indicates an empty branch name.
var ErrBranchNameRequired = errors.New(branchNameRequiredMessageConstant)

// ErrCloneURLRequired indicates an empty clone URL.
var ErrCloneURLRequired = errors.New(cloneURLRequiredMessageConstant)

// Operation names a git lifecycle step.
type Operation string

// Lifecycle steps reported in GitError.
const (
	OperationClone    Operation = "clone"
	OperationFetch    Operation = "fetch"
	OperationCheckout Operation = "checkout"
	OperationPull     Operation = "pull"
	OperationVersion  Operation = "version"
)

// GitError reports a failed git step together with the captured output.
type GitError struct {
	Operation Operation
	Output    string
	Cause     error
}

// Error renders the captured git output.
func (gitError GitError) Error() string {
	output := strings.TrimSpace(gitError.Output)
	if len(output) == 0 && gitError.Cause != nil {
		output = gitError.Cause.Error()
	}
	return fmt.Sprintf(gitErrorMessageTemplateConstant, output)
}

// Unwrap exposes the executor failure, when there was one.
func (gitError GitError) Unwrap() error {
	return gitError.Cause
}

// GitExecutor runs git invocations.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ExecutableLocator resolves executables on the search path.
type ExecutableLocator func(file string) (string, error)

// Dependencies enumerates collaborators required by Runner.
type Dependencies struct {
	GitExecutor GitExecutor
	Locator     ExecutableLocator
	Logger      *zap.Logger
}

// Runner executes the git steps of the extension lifecycle.
type Runner struct {
	executor GitExecutor
	locator  ExecutableLocator
	logger   *zap.Logger
}

// NewRunner validates dependencies and constructs a Runner.
func NewRunner(dependencies Dependencies) (*Runner, error) {
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	locator := dependencies.Locator
	if locator == nil {
		locator = exec.LookPath
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{executor: dependencies.GitExecutor, locator: locator, logger: logger}, nil
}

// Available reports whether the git binary can be found.
func (runner *Runner) Available() error {
	if _, lookupError := runner.locator(gitExecutableNameConstant); lookupError != nil {
		return fmt.Errorf("%w: %v", ErrGitUnavailable, lookupError)
	}
	return nil
}

// Version returns the trimmed `git --version` output.
func (runner *Runner) Version(executionContext context.Context) (string, error) {
	output, versionError := runner.run(executionContext, OperationVersion, execshell.CommandDetails{Arguments: []string{gitVersionFlagConstant}})
	if versionError != nil {
		return "", versionError
	}
	return strings.TrimSpace(output), nil
}

// Clone performs a shallow single-branch clone of cloneURL into targetDirectory.
func (runner *Runner) Clone(executionContext context.Context, cloneURL string, branchName string, targetDirectory string) error {
	trimmedURL := strings.TrimSpace(cloneURL)
	if len(trimmedURL) == 0 {
		return ErrCloneURLRequired
	}
	trimmedBranch, trimmedDirectory, validationError := validateTarget(branchName, targetDirectory)
	if validationError != nil {
		return validationError
	}

	runner.logger.Info("Cloning extension repository", zap.String(directoryFieldConstant, trimmedDirectory), zap.String(branchFieldConstant, trimmedBranch))
	_, cloneError := runner.run(executionContext, OperationClone, execshell.CommandDetails{
		Arguments: []string{
			gitCloneSubcommandConstant,
			gitBranchFlagConstant, trimmedBranch,
			gitSingleBranchFlagConstant,
			gitDepthFlagConstant, gitShallowDepthConstant,
			trimmedURL,
			trimmedDirectory,
		},
	})
	return cloneError
}

// Sync fetches, checks out, and pulls branchName inside targetDirectory, stopping at the first failure.
func (runner *Runner) Sync(executionContext context.Context, targetDirectory string, branchName string) error {
	trimmedBranch, trimmedDirectory, validationError := validateTarget(branchName, targetDirectory)
	if validationError != nil {
		return validationError
	}

	runner.logger.Info("Synchronizing extension repository", zap.String(directoryFieldConstant, trimmedDirectory), zap.String(branchFieldConstant, trimmedBranch))
	steps := []struct {
		operation Operation
		arguments []string
	}{
		{operation: OperationFetch, arguments: []string{gitFetchSubcommandConstant, gitOriginRemoteConstant, trimmedBranch}},
		{operation: OperationCheckout, arguments: []string{gitCheckoutSubcommandConstant, trimmedBranch}},
		{operation: OperationPull, arguments: []string{gitPullSubcommandConstant, gitOriginRemoteConstant, trimmedBranch}},
	}
	for _, step := range steps {
		if _, stepError := runner.run(executionContext, step.operation, execshell.CommandDetails{
			Arguments:        step.arguments,
			WorkingDirectory: trimmedDirectory,
		}); stepError != nil {
			return stepError
		}
	}
	return nil
}

// run executes git and treats a non-zero exit or an "error" marker in the output as failure.
func (runner *Runner) run(executionContext context.Context, operation Operation, details execshell.CommandDetails) (string, error) {
	if details.EnvironmentVariables == nil {
		details.EnvironmentVariables = map[string]string{}
	}
	details.EnvironmentVariables[gitTerminalPromptEnvironmentNameConstant] = gitTerminalPromptEnvironmentDisableConstant

	executionResult, executionError := runner.executor.ExecuteGit(executionContext, details)
	if executionError != nil {
		var failedError execshell.CommandFailedError
		output := ""
		if errors.As(executionError, &failedError) {
			output = failedError.Result.CombinedOutput()
		}
		runner.logger.Warn("Git step failed", zap.String(operationFieldConstant, string(operation)), zap.Error(executionError))
		return "", GitError{Operation: operation, Output: execshell.RedactCredentials(output), Cause: executionError}
	}

	combinedOutput := executionResult.CombinedOutput()
	if strings.Contains(combinedOutput, gitOutputErrorMarkerConstant) {
		runner.logger.Warn("Git step reported an error", zap.String(operationFieldConstant, string(operation)), zap.String("output", combinedOutput))
		return "", GitError{Operation: operation, Output: execshell.RedactCredentials(combinedOutput)}
	}
	return combinedOutput, nil
}

func validateTarget(branchName string, targetDirectory string) (string, string, error) {
	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return "", "", ErrBranchNameRequired
	}
	trimmedDirectory := strings.TrimSpace(targetDirectory)
	if len(trimmedDirectory) == 0 {
		return "", "", ErrTargetDirectoryRequired
	}
	return trimmedBranch, trimmedDirectory, nil
}
