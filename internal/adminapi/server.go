package adminapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/diagnostics"
	"github.com/temirov/gitplugins/internal/journal"
	"github.com/temirov/gitplugins/internal/plugins"
	"github.com/temirov/gitplugins/internal/settings"
	"github.com/temirov/gitplugins/internal/store"
)

const (
	applicationNameConstant       = "gitplugins"
	shutdownTimeout               = 5 * time.Second
	principalLocalKeyConstant     = "principal"
	authorizationHeaderConstant   = "Authorization"
	bearerSchemeConstant          = "bearer"
	nonceHeaderConstant           = "X-Nonce"
	dependencyTemplateConstant    = "%w: %s"
	unauthorizedMessageConstant   = "Unauthorized"
	invalidNonceMessageConstant   = "The link you followed has expired."
	requestLogMessageConstant     = "Admin API request"
	methodFieldConstant           = "method"
	pathFieldConstant             = "path"
	statusFieldConstant           = "status"
	durationFieldConstant         = "duration"
	principalFieldConstant        = "principal"
	listenAddressFieldConstant    = "listen_address"
	serverStartingMessageConstant = "Admin API listening"

	// NonceAction is the action every admin mutation nonce is bound to.
	NonceAction = "gitplugins_admin"
)

// ErrDependencyMissing indicates a required collaborator was not provided.
var ErrDependencyMissing = errors.New("admin API dependency not configured")

// Lifecycle performs repository and extension operations.
type Lifecycle interface {
	AddRepository(executionContext context.Context, repositoryURL string, branchName string, isPrivate bool) (plugins.InstallResult, error)
	Install(executionContext context.Context, repositoryURL string) (plugins.InstallResult, error)
	Update(executionContext context.Context, repositoryURL string) (plugins.InstallResult, error)
	Activate(executionContext context.Context, slug string) error
	Deactivate(executionContext context.Context, slug string) error
	Delete(executionContext context.Context, repositoryURL string) error
	CheckForUpdates(executionContext context.Context) ([]plugins.AvailableUpdate, error)
	Branches(executionContext context.Context, repositoryURL string, isPrivate bool) ([]string, error)
	ChangeBranch(executionContext context.Context, repositoryURL string, branchName string, removeAndClone bool) error
	Repositories(executionContext context.Context) ([]store.Repository, error)
	Statuses(executionContext context.Context) ([]plugins.RepositoryStatus, error)
}

// SettingsManager loads and saves the settings form.
type SettingsManager interface {
	Load(executionContext context.Context) (settings.Values, error)
	Save(executionContext context.Context, values settings.Values) (settings.Values, error)
}

// DebugLog exposes the persisted debug journal.
type DebugLog interface {
	Entries(executionContext context.Context, limit int) ([]journal.Entry, error)
	Clear(executionContext context.Context) error
}

// SystemReporter collects diagnostics.
type SystemReporter interface {
	Collect(executionContext context.Context) diagnostics.Report
}

// Dependencies enumerates collaborators required by Server.
type Dependencies struct {
	Lifecycle Lifecycle
	Settings  SettingsManager
	DebugLog  DebugLog
	System    SystemReporter
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Server hosts the admin API.
type Server struct {
	configuration  Config
	administrators map[string]Administrator
	nonces         *NonceManager
	lifecycle      Lifecycle
	settings       SettingsManager
	debugLog       DebugLog
	system         SystemReporter
	logger         *zap.Logger
	clock          func() time.Time
	application    *fiber.App
}

// NewServer validates configuration and registers routes.
func NewServer(configuration Config, dependencies Dependencies) (*Server, error) {
	sanitized := configuration.Sanitize()
	if validationError := sanitized.Validate(); validationError != nil {
		return nil, validationError
	}
	switch {
	case dependencies.Lifecycle == nil:
		return nil, fmt.Errorf(dependencyTemplateConstant, ErrDependencyMissing, "lifecycle")
	case dependencies.Settings == nil:
		return nil, fmt.Errorf(dependencyTemplateConstant, ErrDependencyMissing, "settings")
	case dependencies.DebugLog == nil:
		return nil, fmt.Errorf(dependencyTemplateConstant, ErrDependencyMissing, "debug log")
	case dependencies.System == nil:
		return nil, fmt.Errorf(dependencyTemplateConstant, ErrDependencyMissing, "system reporter")
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}

	administrators := make(map[string]Administrator, len(sanitized.Administrators))
	for _, administrator := range sanitized.Administrators {
		administrators[administrator.Token] = administrator
	}

	server := &Server{
		configuration:  sanitized,
		administrators: administrators,
		nonces:         NewNonceManager(sanitized.NonceSecret, sanitized.NonceLifetime, clock),
		lifecycle:      dependencies.Lifecycle,
		settings:       dependencies.Settings,
		debugLog:       dependencies.DebugLog,
		system:         dependencies.System,
		logger:         logger,
		clock:          clock,
	}
	server.application = fiber.New(fiber.Config{
		AppName:               applicationNameConstant,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	server.registerRoutes()
	return server, nil
}

// App exposes the fiber application for tests and embedding.
func (server *Server) App() *fiber.App {
	return server.application
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (server *Server) Run(executionContext context.Context) error {
	listenErrors := make(chan error, 1)
	go func() {
		listenErrors <- server.application.Listen(server.configuration.ListenAddress)
	}()
	server.logger.Info(serverStartingMessageConstant, zap.String(listenAddressFieldConstant, server.configuration.ListenAddress))

	select {
	case <-executionContext.Done():
		return server.application.ShutdownWithTimeout(shutdownTimeout)
	case listenError := <-listenErrors:
		return listenError
	}
}

func (server *Server) registerRoutes() {
	api := server.application.Group("/api", server.logRequests, server.authenticate)

	api.Get("/nonce", server.handleNonce)
	api.Get("/repositories", server.require(CapabilityInstall), server.handleListRepositories)
	api.Post("/repositories", server.require(CapabilityInstall), server.verifyNonce, server.handleAddRepository)

	extensionRoutes := api.Group("/extensions")
	extensionRoutes.Post("/install", server.require(CapabilityInstall), server.verifyNonce, server.handleInstall)
	extensionRoutes.Post("/activate", server.require(CapabilityActivate), server.verifyNonce, server.handleActivate)
	extensionRoutes.Post("/deactivate", server.require(CapabilityDeactivate), server.verifyNonce, server.handleDeactivate)
	extensionRoutes.Post("/delete", server.require(CapabilityDelete), server.verifyNonce, server.handleDelete)
	extensionRoutes.Post("/update", server.require(CapabilityUpdate), server.verifyNonce, server.handleUpdate)

	api.Post("/updates/check", server.require(CapabilityUpdate), server.verifyNonce, server.handleCheckUpdates)
	api.Post("/branches", server.require(CapabilityInstall), server.verifyNonce, server.handleBranches)
	api.Post("/branches/change", server.require(CapabilityInstall), server.verifyNonce, server.handleChangeBranch)

	api.Get("/settings", server.require(CapabilitySettings), server.handleGetSettings)
	api.Put("/settings", server.require(CapabilitySettings), server.verifyNonce, server.handleSaveSettings)

	api.Get("/debug-log", server.require(CapabilitySettings), server.handleDebugLog)
	api.Delete("/debug-log", server.require(CapabilitySettings), server.verifyNonce, server.handleClearDebugLog)

	api.Get("/system", server.require(CapabilitySettings), server.handleSystem)
}

func (server *Server) logRequests(fiberContext *fiber.Ctx) error {
	startedAt := server.clock()
	handlerError := fiberContext.Next()
	status := fiberContext.Response().StatusCode()
	if handlerError != nil {
		status = statusForError(handlerError)
	}
	server.logger.Debug(requestLogMessageConstant,
		zap.String(methodFieldConstant, fiberContext.Method()),
		zap.String(pathFieldConstant, fiberContext.Path()),
		zap.Int(statusFieldConstant, status),
		zap.Duration(durationFieldConstant, server.clock().Sub(startedAt)),
	)
	return handlerError
}

func (server *Server) authenticate(fiberContext *fiber.Ctx) error {
	token := bearerToken(fiberContext.Get(authorizationHeaderConstant))
	administrator, known := server.administrators[token]
	if len(token) == 0 || !known {
		return fail(fiberContext, fiber.StatusUnauthorized, unauthorizedMessageConstant)
	}
	fiberContext.Locals(principalLocalKeyConstant, administrator)
	return fiberContext.Next()
}

func (server *Server) require(capability Capability) fiber.Handler {
	return func(fiberContext *fiber.Ctx) error {
		if !principal(fiberContext).Can(capability) {
			server.logger.Warn(unauthorizedMessageConstant,
				zap.String(principalFieldConstant, principal(fiberContext).Name),
				zap.String(pathFieldConstant, fiberContext.Path()),
			)
			return fail(fiberContext, fiber.StatusForbidden, permissionMessages[capability])
		}
		return fiberContext.Next()
	}
}

func (server *Server) verifyNonce(fiberContext *fiber.Ctx) error {
	if !server.nonces.Verify(NonceAction, principal(fiberContext).Name, fiberContext.Get(nonceHeaderConstant)) {
		return fail(fiberContext, fiber.StatusForbidden, invalidNonceMessageConstant)
	}
	return fiberContext.Next()
}

func principal(fiberContext *fiber.Ctx) Administrator {
	administrator, _ := fiberContext.Locals(principalLocalKeyConstant).(Administrator)
	return administrator
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerSchemeConstant) {
		return ""
	}
	return strings.TrimSpace(token)
}

var permissionMessages = map[Capability]string{
	CapabilityInstall:    "You do not have sufficient permissions to install plugins.",
	CapabilityActivate:   "You do not have sufficient permissions to activate plugins.",
	CapabilityDeactivate: "You do not have sufficient permissions to deactivate plugins.",
	CapabilityDelete:     "You do not have sufficient permissions to delete plugins.",
	CapabilityUpdate:     "You do not have sufficient permissions to update plugins.",
	CapabilitySettings:   "You do not have sufficient permissions to access this page.",
}
