package ui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/execshell"
)

const (
	commandStartedMessageTemplateConstant          = "Running %s"
	commandCompletedMessageTemplateConstant        = "Completed %s"
	commandFailedExitCodeMessageTemplateConstant   = "%s failed with exit code %d"
	commandExecutionFailureMessageTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant         = " (in %s)"
	commandArgumentsJoinSeparatorConstant          = " "
	standardErrorSuffixTemplateConstant            = ": %s"
	unknownFailureMessageConstant                  = "unknown error"
)

// ProgressFormatter builds progress messages for git invocations. Credentials embedded in
// clone URLs or error output never reach the rendered text.
type ProgressFormatter struct{}

// Started describes a command about to run.
func (formatter ProgressFormatter) Started(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandStartedMessageTemplateConstant, formatter.label(command))
}

// Completed describes a command that exited successfully.
func (formatter ProgressFormatter) Completed(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandCompletedMessageTemplateConstant, formatter.label(command))
}

// Failed describes a command that exited with a non-zero code, with the first line of its error output.
func (formatter ProgressFormatter) Failed(command execshell.ShellCommand, result execshell.ExecutionResult) string {
	message := fmt.Sprintf(commandFailedExitCodeMessageTemplateConstant, formatter.label(command), result.ExitCode)
	standardError := firstLine(execshell.RedactCredentials(result.StandardError))
	if len(standardError) == 0 {
		return message
	}
	return message + fmt.Sprintf(standardErrorSuffixTemplateConstant, standardError)
}

// ExecutionFailed describes a command that could not be launched.
func (formatter ProgressFormatter) ExecutionFailed(command execshell.ShellCommand, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = execshell.RedactCredentials(failure.Error())
	}
	return fmt.Sprintf(commandExecutionFailureMessageTemplateConstant, formatter.label(command), failureMessage)
}

func (formatter ProgressFormatter) label(command execshell.ShellCommand) string {
	parts := []string{string(command.Name)}
	for _, argument := range command.Details.Arguments {
		parts = append(parts, execshell.RedactCredentials(argument))
	}
	label := strings.Join(parts, commandArgumentsJoinSeparatorConstant)
	if workingDirectory := strings.TrimSpace(command.Details.WorkingDirectory); len(workingDirectory) > 0 {
		label += fmt.Sprintf(workingDirectorySuffixTemplateConstant, workingDirectory)
	}
	return label
}

func firstLine(text string) string {
	trimmed := strings.TrimSpace(text)
	if lineEnd := strings.IndexByte(trimmed, '\n'); lineEnd >= 0 {
		return strings.TrimSpace(trimmed[:lineEnd])
	}
	return trimmed
}

// ProgressReporter implements execshell.CommandEventObserver for interactive commands.
type ProgressReporter struct {
	logger    *zap.Logger
	formatter ProgressFormatter
}

// NewProgressReporter constructs a reporter writing through a console-encoded zap logger.
func NewProgressReporter(logger *zap.Logger) *ProgressReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressReporter{logger: logger}
}

// CommandStarted logs the command about to run.
func (reporter *ProgressReporter) CommandStarted(command execshell.ShellCommand) {
	if reporter == nil {
		return
	}
	reporter.logger.Info(reporter.formatter.Started(command))
}

// CommandCompleted logs success, or the failing exit code at warn level.
func (reporter *ProgressReporter) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if reporter == nil {
		return
	}
	if result.ExitCode == 0 {
		reporter.logger.Info(reporter.formatter.Completed(command))
		return
	}
	reporter.logger.Warn(reporter.formatter.Failed(command, result))
}

// CommandExecutionFailed logs launch failures.
func (reporter *ProgressReporter) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if reporter == nil {
		return
	}
	reporter.logger.Error(reporter.formatter.ExecutionFailed(command, failure))
}
