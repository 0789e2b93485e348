package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CommandName identifies an external executable invoked by the executor.
type CommandName string

// Supported executables.
const (
	CommandGit CommandName = "git"
)

const (
	commandNameFieldConstant              = "command"
	commandArgumentsFieldConstant         = "arguments"
	workingDirectoryFieldConstant         = "working_directory"
	exitCodeFieldConstant                 = "exit_code"
	standardOutputFieldConstant           = "stdout"
	standardErrorFieldConstant            = "stderr"
	commandFailedErrorTemplateConstant    = "%s exited with code %d"
	commandFailedOutputTemplateConstant   = "%s exited with code %d: %s"
	commandExecutionErrorTemplateConstant = "%s could not be executed: %v"
)

// ErrLoggerNotConfigured indicates that a nil logger was supplied.
var ErrLoggerNotConfigured = errors.New("execshell: logger not configured")

// ErrCommandRunnerNotConfigured indicates that a nil command runner was supplied.
var ErrCommandRunnerNotConfigured = errors.New("execshell: command runner not configured")

// CommandDetails describes a single invocation of an executable.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand couples an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a finished process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CombinedOutput joins standard output and standard error the way a terminal would show them.
func (result ExecutionResult) CombinedOutput() string {
	segments := make([]string, 0, 2)
	for _, segment := range []string{result.StandardOutput, result.StandardError} {
		trimmedSegment := strings.TrimSpace(segment)
		if len(trimmedSegment) > 0 {
			segments = append(segments, trimmedSegment)
		}
	}
	return strings.Join(segments, "\n")
}

// CommandRunner executes a shell command and reports its result.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a process that exited with a non-zero code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command.
func (failure CommandFailedError) Error() string {
	output := failure.Result.CombinedOutput()
	if len(output) == 0 {
		return fmt.Sprintf(commandFailedErrorTemplateConstant, failure.Command.Name, failure.Result.ExitCode)
	}
	return fmt.Sprintf(commandFailedOutputTemplateConstant, failure.Command.Name, failure.Result.ExitCode, output)
}

// CommandExecutionError reports a process that could not be started or awaited.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, failure.Command.Name, failure.Cause)
}

// Unwrap exposes the underlying runner error.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor runs external commands with structured logging.
type ShellExecutor struct {
	logger    *zap.Logger
	runner    CommandRunner
	observer  CommandEventObserver
	formatter CommandMessageFormatter
}

// ShellExecutorOption customizes executor construction.
type ShellExecutorOption func(*ShellExecutor)

// WithCommandEventObserver registers an observer notified about every command.
func WithCommandEventObserver(observer CommandEventObserver) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if observer != nil {
			executor.observer = observer
		}
	}
}

// NewShellExecutor validates dependencies and constructs an executor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ShellExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{
		logger:    logger,
		runner:    runner,
		observer:  noopCommandEventObserver{},
		formatter: CommandMessageFormatter{},
	}
	for _, option := range options {
		if option != nil {
			option(executor)
		}
	}
	return executor, nil
}

// ExecuteGit runs git with the supplied details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// Execute runs an arbitrary command. A non-zero exit code yields CommandFailedError carrying the result.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandFields := []zap.Field{
		zap.String(commandNameFieldConstant, string(command.Name)),
		zap.Strings(commandArgumentsFieldConstant, redactArguments(command.Details.Arguments)),
		zap.String(workingDirectoryFieldConstant, command.Details.WorkingDirectory),
	}

	executor.logger.Debug(executor.formatter.BuildStartedMessage(command), commandFields...)
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Warn(executor.formatter.BuildExecutionFailureMessage(command, runError), append(commandFields, zap.Error(runError))...)
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, executionResult)
	resultFields := append(commandFields,
		zap.Int(exitCodeFieldConstant, executionResult.ExitCode),
		zap.String(standardOutputFieldConstant, executionResult.StandardOutput),
		zap.String(standardErrorFieldConstant, executionResult.StandardError),
	)

	if executionResult.ExitCode != 0 {
		executor.logger.Warn(executor.formatter.BuildFailureMessage(command, executionResult), resultFields...)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(executor.formatter.BuildSuccessMessage(command), resultFields...)
	return executionResult, nil
}

// redactArguments hides credentials embedded in clone URLs before they reach the logs.
func redactArguments(arguments []string) []string {
	redacted := make([]string, len(arguments))
	for index, argument := range arguments {
		redacted[index] = RedactCredentials(argument)
	}
	return redacted
}

// RedactCredentials replaces the user-info portion of an URL with a placeholder.
func RedactCredentials(value string) string {
	schemeSeparatorIndex := strings.Index(value, "://")
	if schemeSeparatorIndex < 0 {
		return value
	}
	authorityStart := schemeSeparatorIndex + len("://")
	remainder := value[authorityStart:]
	atIndex := strings.Index(remainder, "@")
	slashIndex := strings.Index(remainder, "/")
	if atIndex < 0 || (slashIndex >= 0 && slashIndex < atIndex) {
		return value
	}
	return value[:authorityStart] + redactedCredentialsPlaceholderConstant + remainder[atIndex:]
}

const redactedCredentialsPlaceholderConstant = "***"
