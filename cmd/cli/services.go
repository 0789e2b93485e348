package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/diagnostics"
	"github.com/temirov/gitplugins/internal/execshell"
	"github.com/temirov/gitplugins/internal/extensions"
	"github.com/temirov/gitplugins/internal/githubapi"
	"github.com/temirov/gitplugins/internal/githubauth"
	"github.com/temirov/gitplugins/internal/gitops"
	"github.com/temirov/gitplugins/internal/journal"
	"github.com/temirov/gitplugins/internal/plugins"
	"github.com/temirov/gitplugins/internal/settings"
	"github.com/temirov/gitplugins/internal/store"
	"github.com/temirov/gitplugins/internal/ui"
	"github.com/temirov/gitplugins/internal/utils"
)

const (
	serviceConstructionErrorTemplateConstant = "unable to initialize %s: %w"
	storeComponentConstant                   = "database"
	journalComponentConstant                 = "debug log"
	settingsComponentConstant                = "settings"
	tokenSourceComponentConstant             = "GitHub token source"
	executorComponentConstant                = "command executor"
	gitComponentConstant                     = "git runner"
	extensionsComponentConstant              = "extension registry"
	lifecycleComponentConstant               = "extension lifecycle"
	servicesReadyMessageConstant             = "services initialized"
	databaseDialectFieldConstant             = "database_dialect"
	extensionsRootFieldConstant              = "extensions_root"
)

// services holds the collaborators shared by every subcommand.
type services struct {
	database    *store.Database
	settings    *settings.Service
	registry    *extensions.Registry
	git         *gitops.Runner
	tokens      githubauth.Resolver
	lifecycle   *plugins.Service
	journal     *journal.Journal
	diagnostics diagnostics.Collector
	logger      *zap.Logger
}

// servicesProvider opens services on first use.
type servicesProvider func(executionContext context.Context) (*services, error)

func (application *Application) openServices(executionContext context.Context) (*services, error) {
	if application.services != nil {
		return application.services, nil
	}

	database, openError := store.Open(executionContext, application.configuration.Database)
	if openError != nil {
		return nil, fmt.Errorf(serviceConstructionErrorTemplateConstant, storeComponentConstant, openError)
	}

	opened, buildError := application.buildServices(database)
	if buildError != nil {
		database.Close()
		return nil, buildError
	}
	application.services = opened
	application.logger.Debug(servicesReadyMessageConstant,
		zap.String(databaseDialectFieldConstant, string(database.Dialect())),
		zap.String(extensionsRootFieldConstant, opened.registry.Root()),
	)
	return opened, nil
}

func (application *Application) buildServices(database *store.Database) (*services, error) {
	debugJournal, journalError := journal.New(database, application.configuration.Journal.Retention)
	if journalError != nil {
		return nil, fmt.Errorf(serviceConstructionErrorTemplateConstant, journalComponentConstant, journalError)
	}
	journalLevel, levelError := utils.ParseLogLevel(application.configuration.Journal.Level)
	if levelError != nil {
		return nil, fmt.Errorf(serviceConstructionErrorTemplateConstant, journalComponentConstant, levelError)
	}
	journaledLogger, loggerError := application.createLogger(application.loggerFactory.WithCore(journal.NewCore(debugJournal, journalLevel)))
	if loggerError != nil {
		return nil, fmt.Errorf(loggerCreationErrorTemplateConstant, loggerError)
	}
	application.logger = journaledLogger
	logger := journaledLogger

	settingsService, settingsError := settings.NewService(database)
	if settingsError != nil {
		return nil, fmt.Errorf(serviceConstructionErrorTemplateConstant, settingsComponentConstant, settingsError)
	}

	tokenSource, tokenSourceError := githubauth.ParseTokenSource(application.configuration.GitHub.TokenSource)
	if tokenSourceError != nil {
		return nil, fmt.Errorf(serviceConstructionErrorTemplateConstant, tokenSourceComponentConstant, tokenSourceError)
	}
	tokenResolver := githubauth.Resolver{
		Stored:      settingsService,
		Source:      tokenSource,
		Environment: os.LookupEnv,
		Files:       os.ReadFile,
	}

	var executorOptions []execshell.ShellExecutorOption
	if application.humanReadableLoggingEnabled() {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewProgressReporter(logger)))
	}
	executor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), executorOptions...)
	if executorError != nil {
		return nil, fmt.Errorf(serviceConstructionErrorTemplateConstant, executorComponentConstant, executorError)
	}
	gitRunner, gitError := gitops.NewRunner(gitops.Dependencies{GitExecutor: executor, Logger: logger})
	if gitError != nil {
		return nil, fmt.Errorf(serviceConstructionErrorTemplateConstant, gitComponentConstant, gitError)
	}

	registry, registryError := extensions.NewRegistry(application.configuration.Extensions, database, logger)
	if registryError != nil {
		return nil, fmt.Errorf(serviceConstructionErrorTemplateConstant, extensionsComponentConstant, registryError)
	}

	releaseClient := githubapi.NewClient(nil, githubapi.Config{
		BaseURL:   application.configuration.GitHub.APIBaseURL,
		UserAgent: application.configuration.GitHub.UserAgent,
		Timeout:   application.configuration.GitHub.Timeout,
	}, logger)

	lifecycle, lifecycleError := plugins.NewService(plugins.Dependencies{
		Repositories: database,
		Git:          gitRunner,
		Extensions:   registry,
		Releases:     releaseClient,
		Tokens:       tokenResolver,
		Logger:       logger,
	})
	if lifecycleError != nil {
		return nil, fmt.Errorf(serviceConstructionErrorTemplateConstant, lifecycleComponentConstant, lifecycleError)
	}

	return &services{
		database:  database,
		settings:  settingsService,
		registry:  registry,
		git:       gitRunner,
		tokens:    tokenResolver,
		lifecycle: lifecycle,
		journal:   debugJournal,
		diagnostics: diagnostics.Collector{
			ApplicationVersion: application.versionResolver(),
			DatabaseDialect:    string(database.Dialect()),
			Git:                gitRunner,
			Extensions:         registry,
		},
		logger: logger,
	}, nil
}
