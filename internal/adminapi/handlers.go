package adminapi

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/temirov/gitplugins/internal/journal"
	"github.com/temirov/gitplugins/internal/plugins"
	"github.com/temirov/gitplugins/internal/settings"
)

const (
	limitQueryConstant              = "limit"
	malformedRequestMessageConstant = "Malformed request body."
	updatesFoundMessageTemplate     = "%d update(s) available."
	branchChangedMessageConstant    = "Branch changed successfully."
	settingsSavedMessageConstant    = "Settings saved."
	debugLogClearedMessageConstant  = "Debug log cleared."
)

type repositoryRequest struct {
	RepositoryURL string `json:"repo_url" form:"repo_url"`
	Branch        string `json:"branch" form:"branch"`
	IsPrivate     bool   `json:"is_private" form:"is_private"`
}

type slugRequest struct {
	Slug string `json:"slug" form:"slug"`
}

type changeBranchRequest struct {
	RepositoryURL  string `json:"repo_url" form:"repo_url"`
	Branch         string `json:"branch" form:"branch"`
	RemoveAndClone bool   `json:"remove_and_clone" form:"remove_and_clone"`
}

type settingsRequest struct {
	GitHubUsername       string  `json:"github_username" form:"github_username"`
	GitHubToken          *string `json:"github_token" form:"github_token"`
	CheckUpdatesInterval string  `json:"check_updates_interval" form:"check_updates_interval"`
}

type settingsView struct {
	GitHubUsername       string                    `json:"github_username"`
	GitHubTokenSet       bool                      `json:"github_token_set"`
	CheckUpdatesInterval settings.UpdateInterval   `json:"check_updates_interval"`
	Intervals            []settings.UpdateInterval `json:"intervals"`
}

type messageView struct {
	Message string `json:"message"`
}

type updatesView struct {
	Message string                    `json:"message"`
	Updates []plugins.AvailableUpdate `json:"updates"`
}

type nonceView struct {
	Action string `json:"action"`
	Nonce  string `json:"nonce"`
}

func (server *Server) handleNonce(fiberContext *fiber.Ctx) error {
	return respond(fiberContext, nonceView{
		Action: NonceAction,
		Nonce:  server.nonces.Issue(NonceAction, principal(fiberContext).Name),
	})
}

func (server *Server) handleListRepositories(fiberContext *fiber.Ctx) error {
	statuses, statusError := server.lifecycle.Statuses(fiberContext.UserContext())
	if statusError != nil {
		return failWithError(fiberContext, statusError)
	}
	if statuses == nil {
		statuses = []plugins.RepositoryStatus{}
	}
	return respond(fiberContext, statuses)
}

func (server *Server) handleAddRepository(fiberContext *fiber.Ctx) error {
	var request repositoryRequest
	if parseError := fiberContext.BodyParser(&request); parseError != nil {
		return fail(fiberContext, fiber.StatusBadRequest, malformedRequestMessageConstant)
	}
	if isBlank(request.RepositoryURL) {
		return failWithError(fiberContext, plugins.ErrRepositoryURLRequired)
	}
	result, addError := server.lifecycle.AddRepository(fiberContext.UserContext(), request.RepositoryURL, request.Branch, request.IsPrivate)
	if addError != nil {
		return failWithError(fiberContext, addError)
	}
	return respond(fiberContext, result)
}

func (server *Server) handleInstall(fiberContext *fiber.Ctx) error {
	repositoryURL, parseError := server.repositoryURL(fiberContext)
	if parseError != nil {
		return failWithError(fiberContext, parseError)
	}
	result, installError := server.lifecycle.Install(fiberContext.UserContext(), repositoryURL)
	if installError != nil {
		return failWithError(fiberContext, installError)
	}
	return respond(fiberContext, result)
}

func (server *Server) handleUpdate(fiberContext *fiber.Ctx) error {
	repositoryURL, parseError := server.repositoryURL(fiberContext)
	if parseError != nil {
		return failWithError(fiberContext, parseError)
	}
	result, updateError := server.lifecycle.Update(fiberContext.UserContext(), repositoryURL)
	if updateError != nil {
		return failWithError(fiberContext, updateError)
	}
	return respond(fiberContext, result)
}

func (server *Server) handleDelete(fiberContext *fiber.Ctx) error {
	repositoryURL, parseError := server.repositoryURL(fiberContext)
	if parseError != nil {
		return failWithError(fiberContext, parseError)
	}
	if deleteError := server.lifecycle.Delete(fiberContext.UserContext(), repositoryURL); deleteError != nil {
		return failWithError(fiberContext, deleteError)
	}
	return respond(fiberContext, nil)
}

func (server *Server) handleActivate(fiberContext *fiber.Ctx) error {
	slug, parseError := server.slug(fiberContext)
	if parseError != nil {
		return failWithError(fiberContext, parseError)
	}
	if activateError := server.lifecycle.Activate(fiberContext.UserContext(), slug); activateError != nil {
		return failWithError(fiberContext, activateError)
	}
	return respond(fiberContext, nil)
}

func (server *Server) handleDeactivate(fiberContext *fiber.Ctx) error {
	slug, parseError := server.slug(fiberContext)
	if parseError != nil {
		return failWithError(fiberContext, parseError)
	}
	if deactivateError := server.lifecycle.Deactivate(fiberContext.UserContext(), slug); deactivateError != nil {
		return failWithError(fiberContext, deactivateError)
	}
	return respond(fiberContext, nil)
}

func (server *Server) handleCheckUpdates(fiberContext *fiber.Ctx) error {
	updates, checkError := server.lifecycle.CheckForUpdates(fiberContext.UserContext())
	if checkError != nil {
		return failWithError(fiberContext, checkError)
	}
	if updates == nil {
		updates = []plugins.AvailableUpdate{}
	}
	return respond(fiberContext, updatesView{
		Message: fmt.Sprintf(updatesFoundMessageTemplate, len(updates)),
		Updates: updates,
	})
}

func (server *Server) handleBranches(fiberContext *fiber.Ctx) error {
	var request repositoryRequest
	if parseError := fiberContext.BodyParser(&request); parseError != nil {
		return fail(fiberContext, fiber.StatusBadRequest, malformedRequestMessageConstant)
	}
	if isBlank(request.RepositoryURL) {
		return failWithError(fiberContext, plugins.ErrRepositoryURLRequired)
	}
	branches, branchesError := server.lifecycle.Branches(fiberContext.UserContext(), request.RepositoryURL, request.IsPrivate)
	if branchesError != nil {
		return failWithError(fiberContext, branchesError)
	}
	if branches == nil {
		branches = []string{}
	}
	return respond(fiberContext, branches)
}

func (server *Server) handleChangeBranch(fiberContext *fiber.Ctx) error {
	var request changeBranchRequest
	if parseError := fiberContext.BodyParser(&request); parseError != nil {
		return fail(fiberContext, fiber.StatusBadRequest, malformedRequestMessageConstant)
	}
	if isBlank(request.RepositoryURL) || isBlank(request.Branch) {
		return failWithError(fiberContext, plugins.ErrBranchRequired)
	}
	if changeError := server.lifecycle.ChangeBranch(fiberContext.UserContext(), request.RepositoryURL, request.Branch, request.RemoveAndClone); changeError != nil {
		return failWithError(fiberContext, changeError)
	}
	return respond(fiberContext, messageView{Message: branchChangedMessageConstant})
}

func (server *Server) handleGetSettings(fiberContext *fiber.Ctx) error {
	values, loadError := server.settings.Load(fiberContext.UserContext())
	if loadError != nil {
		return failWithError(fiberContext, loadError)
	}
	return respond(fiberContext, newSettingsView(values))
}

// handleSaveSettings keeps the stored token when the request omits github_token.
func (server *Server) handleSaveSettings(fiberContext *fiber.Ctx) error {
	var request settingsRequest
	if parseError := fiberContext.BodyParser(&request); parseError != nil {
		return fail(fiberContext, fiber.StatusBadRequest, malformedRequestMessageConstant)
	}
	current, loadError := server.settings.Load(fiberContext.UserContext())
	if loadError != nil {
		return failWithError(fiberContext, loadError)
	}
	updated := settings.Values{
		GitHubUsername:       request.GitHubUsername,
		GitHubToken:          current.GitHubToken,
		CheckUpdatesInterval: settings.UpdateInterval(request.CheckUpdatesInterval),
	}
	if request.GitHubToken != nil {
		updated.GitHubToken = *request.GitHubToken
	}
	saved, saveError := server.settings.Save(fiberContext.UserContext(), updated)
	if saveError != nil {
		return failWithError(fiberContext, saveError)
	}
	return respond(fiberContext, struct {
		messageView
		Settings settingsView `json:"settings"`
	}{messageView{Message: settingsSavedMessageConstant}, newSettingsView(saved)})
}

func (server *Server) handleDebugLog(fiberContext *fiber.Ctx) error {
	entries, entriesError := server.debugLog.Entries(fiberContext.UserContext(), fiberContext.QueryInt(limitQueryConstant, journal.DefaultRetention))
	if entriesError != nil {
		return failWithError(fiberContext, entriesError)
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	return respond(fiberContext, entries)
}

func (server *Server) handleClearDebugLog(fiberContext *fiber.Ctx) error {
	if clearError := server.debugLog.Clear(fiberContext.UserContext()); clearError != nil {
		return failWithError(fiberContext, clearError)
	}
	return respond(fiberContext, messageView{Message: debugLogClearedMessageConstant})
}

func (server *Server) handleSystem(fiberContext *fiber.Ctx) error {
	return respond(fiberContext, server.system.Collect(fiberContext.UserContext()))
}

func (server *Server) repositoryURL(fiberContext *fiber.Ctx) (string, error) {
	var request repositoryRequest
	if parseError := fiberContext.BodyParser(&request); parseError != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, malformedRequestMessageConstant)
	}
	if isBlank(request.RepositoryURL) {
		return "", plugins.ErrRepositoryURLRequired
	}
	return request.RepositoryURL, nil
}

func (server *Server) slug(fiberContext *fiber.Ctx) (string, error) {
	var request slugRequest
	if parseError := fiberContext.BodyParser(&request); parseError != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, malformedRequestMessageConstant)
	}
	if isBlank(request.Slug) {
		return "", plugins.ErrSlugRequired
	}
	return request.Slug, nil
}

func newSettingsView(values settings.Values) settingsView {
	return settingsView{
		GitHubUsername:       values.GitHubUsername,
		GitHubTokenSet:       len(values.GitHubToken) > 0,
		CheckUpdatesInterval: values.CheckUpdatesInterval,
		Intervals:            settings.Intervals(),
	}
}

func isBlank(value string) bool {
	return len(strings.TrimSpace(value)) == 0
}
