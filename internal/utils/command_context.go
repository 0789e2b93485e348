package utils

import "context"

const (
	loadedConfigurationContextKeyConstant = commandContextKey("loadedConfiguration")
)

type commandContextKey string

// CommandContextAccessor stores and retrieves per-invocation values on command contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithLoadedConfiguration attaches the configuration metadata to the provided context.
func (accessor CommandContextAccessor) WithLoadedConfiguration(parentContext context.Context, loadedConfiguration LoadedConfiguration) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, loadedConfigurationContextKeyConstant, loadedConfiguration)
}

// LoadedConfiguration extracts the configuration metadata from the provided context.
func (accessor CommandContextAccessor) LoadedConfiguration(executionContext context.Context) (LoadedConfiguration, bool) {
	if executionContext == nil {
		return LoadedConfiguration{}, false
	}
	loadedConfiguration, available := executionContext.Value(loadedConfigurationContextKeyConstant).(LoadedConfiguration)
	return loadedConfiguration, available
}

// ConfigurationFilePath reports the configuration file recorded on the context.
// The second result is false when no file was read.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	loadedConfiguration, available := accessor.LoadedConfiguration(executionContext)
	if !available || len(loadedConfiguration.ConfigFileUsed) == 0 {
		return "", false
	}
	return loadedConfiguration.ConfigFileUsed, true
}
