package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	gitCloneSubcommandNameConstant    = "clone"
	gitFetchSubcommandNameConstant    = "fetch"
	gitCheckoutSubcommandNameConstant = "checkout"
	gitPullSubcommandNameConstant     = "pull"
	gitVersionFlagConstant            = "--version"
	gitBranchFlagConstant             = "--branch"
	gitDepthFlagConstant              = "--depth"
)

const (
	gitCloneStartTemplateConstant               = "Cloning %s (branch %s) into %s"
	gitCloneSuccessTemplateConstant             = "Cloned %s (branch %s) into %s"
	gitCloneFailureTemplateConstant             = "Failed to clone %s (branch %s) into %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant    = "Unable to clone %s (branch %s) into %s: %s"
	gitFetchStartTemplateConstant               = "Fetching %s from %s in %s"
	gitFetchSuccessTemplateConstant             = "Fetched %s from %s in %s"
	gitFetchFailureTemplateConstant             = "Failed to fetch %s from %s in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant    = "Unable to fetch %s from %s in %s: %s"
	gitCheckoutStartTemplateConstant            = "Switching %s to branch %s"
	gitCheckoutSuccessTemplateConstant          = "%s now on branch %s"
	gitCheckoutFailureTemplateConstant          = "Failed to switch %s to branch %s (exit code %d%s)"
	gitCheckoutExecutionFailureTemplateConstant = "Unable to switch %s to branch %s: %s"
	gitPullStartTemplateConstant                = "Pulling %s from %s in %s"
	gitPullSuccessTemplateConstant              = "Pulled %s from %s in %s"
	gitPullFailureTemplateConstant              = "Failed to pull %s from %s in %s (exit code %d%s)"
	gitPullExecutionFailureTemplateConstant     = "Unable to pull %s from %s in %s: %s"
	gitVersionStartTemplateConstant             = "Checking git version"
	gitVersionSuccessTemplateConstant           = "Git is available"
	gitVersionFailureTemplateConstant           = "Git version check failed (exit code %d%s)"
	gitVersionExecutionFailureTemplateConstant  = "Git is not available: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitCloneSubcommandNameConstant:
		return formatter.describeGitCloneMessage(command, result, failure, stage)
	case gitFetchSubcommandNameConstant:
		return formatter.describeGitRemoteTransferMessage(command, result, failure, stage, gitFetchStartTemplateConstant, gitFetchSuccessTemplateConstant, gitFetchFailureTemplateConstant, gitFetchExecutionFailureTemplateConstant)
	case gitPullSubcommandNameConstant:
		return formatter.describeGitRemoteTransferMessage(command, result, failure, stage, gitPullStartTemplateConstant, gitPullSuccessTemplateConstant, gitPullFailureTemplateConstant, gitPullExecutionFailureTemplateConstant)
	case gitCheckoutSubcommandNameConstant:
		return formatter.describeGitCheckoutMessage(command, result, failure, stage)
	case gitVersionFlagConstant:
		return formatter.describeGitVersionMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCloneMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	branchName, positional := formatter.extractCloneArguments(command.Details.Arguments[1:])
	source := formatter.ensureValue(RedactCredentials(formatter.argumentAtIndex(positional, 0)))
	target := formatter.ensureValue(formatter.argumentAtIndex(positional, 1))
	branch := formatter.ensureValue(branchName)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCloneStartTemplateConstant, source, branch, target)
	case messageStageSuccess:
		return fmt.Sprintf(gitCloneSuccessTemplateConstant, source, branch, target)
	case messageStageFailure:
		return fmt.Sprintf(gitCloneFailureTemplateConstant, source, branch, target, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCloneExecutionFailureTemplateConstant, source, branch, target, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRemoteTransferMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage, startTemplate string, successTemplate string, failureTemplate string, executionFailureTemplate string) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName, references := formatter.extractRemoteAndReferences(command.Details.Arguments[1:])
	trimmedRemote := formatter.ensureValue(remoteName)
	joinedReferences := formatter.ensureValue(strings.Join(references, ", "))

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(startTemplate, joinedReferences, trimmedRemote, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(successTemplate, joinedReferences, trimmedRemote, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(failureTemplate, joinedReferences, trimmedRemote, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(executionFailureTemplate, joinedReferences, trimmedRemote, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCheckoutMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	trimmedBranch := formatter.ensureValue(formatter.argumentAtIndex(command.Details.Arguments, 1))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCheckoutStartTemplateConstant, workingDirectory, trimmedBranch)
	case messageStageSuccess:
		return fmt.Sprintf(gitCheckoutSuccessTemplateConstant, workingDirectory, trimmedBranch)
	case messageStageFailure:
		return fmt.Sprintf(gitCheckoutFailureTemplateConstant, workingDirectory, trimmedBranch, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCheckoutExecutionFailureTemplateConstant, workingDirectory, trimmedBranch, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitVersionMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch stage {
	case messageStageStart:
		return gitVersionStartTemplateConstant
	case messageStageSuccess:
		return gitVersionSuccessTemplateConstant
	case messageStageFailure:
		return fmt.Sprintf(gitVersionFailureTemplateConstant, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitVersionExecutionFailureTemplateConstant, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(redactArguments(command.Details.Arguments), commandArgumentsJoinSeparatorConstant))
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

// extractCloneArguments returns the --branch value and the positional source/target arguments.
func (formatter CommandMessageFormatter) extractCloneArguments(arguments []string) (string, []string) {
	branchName := emptyStringConstant
	positional := []string{}
	for index := 0; index < len(arguments); index++ {
		trimmed := strings.TrimSpace(arguments[index])
		if len(trimmed) == 0 {
			continue
		}
		if trimmed == gitBranchFlagConstant || trimmed == gitDepthFlagConstant {
			if index+1 < len(arguments) && trimmed == gitBranchFlagConstant {
				branchName = arguments[index+1]
			}
			index++
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			continue
		}
		positional = append(positional, trimmed)
	}
	return branchName, positional
}

func (formatter CommandMessageFormatter) extractRemoteAndReferences(arguments []string) (string, []string) {
	remoteName := emptyStringConstant
	references := []string{}
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, "-") {
			continue
		}
		if len(remoteName) == 0 {
			remoteName = trimmed
			continue
		}
		references = append(references, trimmed)
	}
	return remoteName, references
}
