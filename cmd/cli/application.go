package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/adminapi"
	"github.com/temirov/gitplugins/internal/extensions"
	"github.com/temirov/gitplugins/internal/store"
	"github.com/temirov/gitplugins/internal/utils"
	"github.com/temirov/gitplugins/internal/utils/flags"
	pathutils "github.com/temirov/gitplugins/internal/utils/path"
)

const (
	applicationNameConstant                 = "gitplugins"
	applicationShortDescriptionConstant     = "Install and maintain extensions straight from GitHub repositories"
	applicationLongDescriptionConstant      = "gitplugins clones extensions from GitHub, keeps them on the configured branch, tracks their releases, and serves an admin API."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	versionFlagNameConstant                 = "version"
	versionFlagUsageConstant                = "Print the application version and exit."
	commonLogLevelConfigKeyConstant         = "common.log_level"
	commonLogFormatConfigKeyConstant        = "common.log_format"
	databaseDialectConfigKeyConstant        = "database.dialect"
	databaseDSNConfigKeyConstant            = "database.dsn"
	extensionsRootConfigKeyConstant         = "extensions.root"
	extensionsPatternConfigKeyConstant      = "extensions.entry_pattern"
	journalLevelConfigKeyConstant           = "journal.level"
	environmentPrefixConstant               = "GITPLUGINS"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	databaseCloseErrorTemplateConstant      = "unable to close database: %w"
	versionOutputTemplateConstant           = "%s %s\n"
	developmentVersionConstant              = "(devel)"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationDirectoryNameConstant  = "gitplugins"
)

// Version is stamped at build time via -ldflags.
var Version = ""

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common     ApplicationCommonConfiguration `mapstructure:"common"`
	Database   store.Config                   `mapstructure:"database"`
	Extensions extensions.Config              `mapstructure:"extensions"`
	GitHub     GitHubConfiguration            `mapstructure:"github"`
	Server     adminapi.Config                `mapstructure:"server"`
	Journal    JournalConfiguration           `mapstructure:"journal"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// GitHubConfiguration locates the GitHub API and the fallback token.
type GitHubConfiguration struct {
	APIBaseURL  string        `mapstructure:"api_base_url"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	TokenSource string        `mapstructure:"token_source"`
}

// JournalConfiguration controls which log records reach the persisted debug log.
type JournalConfiguration struct {
	Level     string `mapstructure:"level"`
	Retention int    `mapstructure:"retention"`
}

// Application wires the Cobra root command, configuration loader, structured logger, and lazily opened services.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	versionFlagValue       bool
	commandContextAccessor utils.CommandContextAccessor
	homeExpander           *pathutils.HomeExpander
	services               *services
	versionResolver        func() string
	exitFunction           func(int)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, userConfigurationDirectory+string(os.PathSeparator)+userConfigurationDirectoryNameConstant)
	}
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		searchPaths,
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		homeExpander:           pathutils.NewHomeExpander(),
		versionResolver:        resolveVersion,
		exitFunction:           os.Exit,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if application.versionFlagValue {
				fmt.Fprintf(command.OutOrStdout(), versionOutputTemplateConstant, applicationNameConstant, application.versionResolver())
				application.exitFunction(0)
				return nil
			}
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", flags.FormatChoiceUsage(utils.LogLevelInfo, []utils.LogLevel{utils.LogLevelDebug, utils.LogLevelInfo, utils.LogLevelWarn, utils.LogLevelError}, logLevelFlagUsageConstant))
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", flags.FormatChoiceUsage(utils.LogFormatConsole, []utils.LogFormat{utils.LogFormatStructured, utils.LogFormatConsole}, logFormatFlagUsageConstant))
	cobraCommand.PersistentFlags().BoolVar(&application.versionFlagValue, versionFlagNameConstant, false, versionFlagUsageConstant)

	servicesProvider := application.openServices
	cobraCommand.AddCommand(
		repositoryCommandBuilder{ServicesProvider: servicesProvider}.Build(),
		extensionCommandBuilder{ServicesProvider: servicesProvider, ValidatorProvider: extensions.NewManifestValidator}.Build(),
		updatesCommandBuilder{ServicesProvider: servicesProvider}.Build(),
		settingsCommandBuilder{ServicesProvider: servicesProvider}.Build(),
		debugLogCommandBuilder{ServicesProvider: servicesProvider}.Build(),
		doctorCommandBuilder{ServicesProvider: servicesProvider, ContextAccessor: application.commandContextAccessor}.Build(),
		serveCommandBuilder{
			ServicesProvider: servicesProvider,
			ConfigurationProvider: func() adminapi.Config {
				return application.configuration.Server
			},
		}.Build(),
	)

	application.rootCommand = cobraCommand

	return application
}

// SetOutput redirects command output, primarily for tests.
func (application *Application) SetOutput(output io.Writer) {
	application.rootCommand.SetOut(output)
	application.rootCommand.SetErr(output)
}

// SetArguments overrides the process arguments.
func (application *Application) SetArguments(arguments []string) {
	application.rootCommand.SetArgs(arguments)
}

// Execute runs the configured Cobra command hierarchy, then releases services and flushes the logger.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if closeError := application.closeServices(); closeError != nil && executionError == nil {
		executionError = closeError
	}
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:    string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:   string(utils.LogFormatConsole),
		databaseDialectConfigKeyConstant:   string(store.DialectSQLite),
		databaseDSNConfigKeyConstant:       "gitplugins.db",
		extensionsRootConfigKeyConstant:    "extensions",
		extensionsPatternConfigKeyConstant: extensions.DefaultEntryPattern,
		journalLevelConfigKeyConstant:      string(utils.LogLevelInfo),
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.homeExpander.Expand(application.configurationFilePath), defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.homeExpander.ExpandInPlace(&application.configuration.Extensions.Root)
	if !strings.EqualFold(string(application.configuration.Database.Dialect), string(store.DialectPostgres)) {
		application.homeExpander.ExpandInPlace(&application.configuration.Database.DSN)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.createLogger(application.loggerFactory)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithLoadedConfiguration(
			command.Context(),
			application.configurationMetadata,
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) createLogger(factory *utils.LoggerFactory) (*zap.Logger, error) {
	return factory.CreateLogger(
		utils.LogLevel(strings.ToLower(strings.TrimSpace(application.configuration.Common.LogLevel))),
		utils.LogFormat(strings.ToLower(strings.TrimSpace(application.configuration.Common.LogFormat))),
	)
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) closeServices() error {
	if application.services == nil {
		return nil
	}
	closeError := application.services.database.Close()
	application.services = nil
	if closeError != nil {
		return fmt.Errorf(databaseCloseErrorTemplateConstant, closeError)
	}
	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}

func resolveVersion() string {
	if trimmedVersion := strings.TrimSpace(Version); len(trimmedVersion) > 0 {
		return trimmedVersion
	}
	if buildInfo, available := debug.ReadBuildInfo(); available && len(buildInfo.Main.Version) > 0 {
		return buildInfo.Main.Version
	}
	return developmentVersionConstant
}
