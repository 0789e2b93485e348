package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitplugins/internal/utils"
)

func TestCommandContextAccessorConfigurationFilePath(testInstance *testing.T) {
	testCases := []struct {
		name              string
		executionContext  func(accessor utils.CommandContextAccessor) context.Context
		expectedPath      string
		expectedAvailable bool
	}{
		{
			name: "recorded_file",
			executionContext: func(accessor utils.CommandContextAccessor) context.Context {
				return accessor.WithLoadedConfiguration(context.Background(), utils.LoadedConfiguration{ConfigFileUsed: "/etc/gitplugins/config.yaml"})
			},
			expectedPath:      "/etc/gitplugins/config.yaml",
			expectedAvailable: true,
		},
		{
			name: "defaults_only",
			executionContext: func(accessor utils.CommandContextAccessor) context.Context {
				return accessor.WithLoadedConfiguration(context.Background(), utils.LoadedConfiguration{Keys: []string{"database.dsn"}})
			},
		},
		{
			name: "nothing_recorded",
			executionContext: func(utils.CommandContextAccessor) context.Context {
				return context.Background()
			},
		},
		{
			name: "nil_context",
			executionContext: func(utils.CommandContextAccessor) context.Context {
				return nil
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			accessor := utils.NewCommandContextAccessor()
			path, available := accessor.ConfigurationFilePath(testCase.executionContext(accessor))
			require.Equal(testInstance, testCase.expectedAvailable, available)
			require.Equal(testInstance, testCase.expectedPath, path)
		})
	}
}

func TestCommandContextAccessorNilParent(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()
	executionContext := accessor.WithLoadedConfiguration(nil, utils.LoadedConfiguration{Keys: []string{"journal.level"}})

	loadedConfiguration, available := accessor.LoadedConfiguration(executionContext)
	require.True(testInstance, available)
	require.Equal(testInstance, []string{"journal.level"}, loadedConfiguration.Keys)
}
