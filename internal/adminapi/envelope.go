package adminapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/temirov/gitplugins/internal/extensions"
	"github.com/temirov/gitplugins/internal/gitops"
	"github.com/temirov/gitplugins/internal/gitrepo"
	"github.com/temirov/gitplugins/internal/plugins"
	"github.com/temirov/gitplugins/internal/store"
)

// Envelope is the response body of every admin API call.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// Failure carries the message shown to administrators.
type Failure struct {
	Message string `json:"message"`
}

func respond(fiberContext *fiber.Ctx, data any) error {
	return fiberContext.JSON(Envelope{Success: true, Data: data})
}

func fail(fiberContext *fiber.Ctx, status int, message string) error {
	return fiberContext.Status(status).JSON(Envelope{Success: false, Data: Failure{Message: message}})
}

// failWithError maps domain errors onto HTTP statuses.
func failWithError(fiberContext *fiber.Ctx, err error) error {
	return fail(fiberContext, statusForError(err), err.Error())
}

func statusForError(err error) int {
	var gitError gitops.GitError
	var fiberError *fiber.Error
	switch {
	case errors.Is(err, store.ErrRepositoryNotFound),
		errors.Is(err, extensions.ErrExtensionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, store.ErrRepositoryExists):
		return fiber.StatusConflict
	case errors.Is(err, plugins.ErrRepositoryURLRequired),
		errors.Is(err, plugins.ErrBranchRequired),
		errors.Is(err, plugins.ErrSlugRequired),
		errors.Is(err, gitrepo.ErrInvalidGitHubURL),
		errors.Is(err, extensions.ErrInvalidSlug),
		errors.Is(err, extensions.ErrInvalidManifest):
		return fiber.StatusBadRequest
	case errors.As(err, &gitError),
		errors.Is(err, plugins.ErrDirectoryNotRepository),
		errors.Is(err, plugins.ErrExtensionDirectoryMissing),
		errors.Is(err, plugins.ErrExtensionNotResolved):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, gitops.ErrGitUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &fiberError):
		return fiberError.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders errors escaping handlers, including fiber's own routing errors.
func errorHandler(fiberContext *fiber.Ctx, err error) error {
	return failWithError(fiberContext, err)
}
