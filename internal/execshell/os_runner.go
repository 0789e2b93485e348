package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
)

const environmentAssignmentSeparatorConstant = "="

// OSCommandRunner executes commands as child processes of the current process.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run executes the command and reports non-zero exits through ExecutionResult rather than an error.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executable := exec.CommandContext(executionContext, string(command.Name), append([]string{}, command.Details.Arguments...)...)
	executable.Dir = command.Details.WorkingDirectory
	if len(command.Details.EnvironmentVariables) > 0 {
		executable.Env = mergeEnvironment(os.Environ(), command.Details.EnvironmentVariables)
	}
	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executable.Stdout = &standardOutputBuffer
	executable.Stderr = &standardErrorBuffer

	exitCode := 0
	if runError := executable.Run(); runError != nil {
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) {
			return ExecutionResult{}, runError
		}
		exitCode = exitError.ExitCode()
	}

	return ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
		ExitCode:       exitCode,
	}, nil
}

// mergeEnvironment appends overrides in a stable order so later assignments win.
func mergeEnvironment(baseEnvironment []string, overrides map[string]string) []string {
	overrideKeys := make([]string, 0, len(overrides))
	for overrideKey := range overrides {
		overrideKeys = append(overrideKeys, overrideKey)
	}
	sort.Strings(overrideKeys)

	mergedEnvironment := append([]string{}, baseEnvironment...)
	for _, overrideKey := range overrideKeys {
		mergedEnvironment = append(mergedEnvironment, overrideKey+environmentAssignmentSeparatorConstant+overrides[overrideKey])
	}
	return mergedEnvironment
}
