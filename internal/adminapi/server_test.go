package adminapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/gitplugins/internal/adminapi"
	"github.com/temirov/gitplugins/internal/diagnostics"
	"github.com/temirov/gitplugins/internal/gitops"
	"github.com/temirov/gitplugins/internal/journal"
	"github.com/temirov/gitplugins/internal/plugins"
	"github.com/temirov/gitplugins/internal/settings"
	"github.com/temirov/gitplugins/internal/store"
)

const (
	ownerTokenConstant     = "owner-token"
	operatorTokenConstant  = "operator-token"
	repositoryURLConstant  = "https://github.com/acme/widget"
	jsonContentConstant    = "application/json"
	testNonceSecret        = "test-secret"
	operatorNameConstant   = "operator"
	ownerNameConstant      = "owner"
	settingsPathConstant   = "/api/settings"
	installPathConstant    = "/api/extensions/install"
	activatePathConstant   = "/api/extensions/activate"
	debugLogPathConstant   = "/api/debug-log"
	repositoriesPathConst  = "/api/repositories"
	changeBranchPathConst  = "/api/branches/change"
	checkUpdatesPathConst  = "/api/updates/check"
	systemPathConstant     = "/api/system"
	branchesPathConstant   = "/api/branches"
	deactivatePathConstant = "/api/extensions/deactivate"
)

type recordedCall struct {
	operation string
	arguments []any
}

type fakeLifecycle struct {
	calls   []recordedCall
	failure error
	updates []plugins.AvailableUpdate
}

func (lifecycle *fakeLifecycle) record(operation string, arguments ...any) error {
	lifecycle.calls = append(lifecycle.calls, recordedCall{operation: operation, arguments: arguments})
	return lifecycle.failure
}

func (lifecycle *fakeLifecycle) AddRepository(_ context.Context, repositoryURL string, branchName string, isPrivate bool) (plugins.InstallResult, error) {
	if recordError := lifecycle.record("add", repositoryURL, branchName, isPrivate); recordError != nil {
		return plugins.InstallResult{}, recordError
	}
	return plugins.InstallResult{RepositoryURL: repositoryURL, Slug: "widget/widget.yaml", Version: "1.0.0", Activated: true}, nil
}

func (lifecycle *fakeLifecycle) Install(_ context.Context, repositoryURL string) (plugins.InstallResult, error) {
	if recordError := lifecycle.record("install", repositoryURL); recordError != nil {
		return plugins.InstallResult{}, recordError
	}
	return plugins.InstallResult{RepositoryURL: repositoryURL, Slug: "widget/widget.yaml", Version: "1.0.0", Activated: true}, nil
}

func (lifecycle *fakeLifecycle) Update(_ context.Context, repositoryURL string) (plugins.InstallResult, error) {
	if recordError := lifecycle.record("update", repositoryURL); recordError != nil {
		return plugins.InstallResult{}, recordError
	}
	return plugins.InstallResult{RepositoryURL: repositoryURL, Slug: "widget/widget.yaml", Version: "1.1.0", Activated: true}, nil
}

func (lifecycle *fakeLifecycle) Activate(_ context.Context, slug string) error {
	return lifecycle.record("activate", slug)
}

func (lifecycle *fakeLifecycle) Deactivate(_ context.Context, slug string) error {
	return lifecycle.record("deactivate", slug)
}

func (lifecycle *fakeLifecycle) Delete(_ context.Context, repositoryURL string) error {
	return lifecycle.record("delete", repositoryURL)
}

func (lifecycle *fakeLifecycle) CheckForUpdates(context.Context) ([]plugins.AvailableUpdate, error) {
	if recordError := lifecycle.record("check"); recordError != nil {
		return nil, recordError
	}
	return lifecycle.updates, nil
}

func (lifecycle *fakeLifecycle) Branches(_ context.Context, repositoryURL string, isPrivate bool) ([]string, error) {
	if recordError := lifecycle.record("branches", repositoryURL, isPrivate); recordError != nil {
		return nil, recordError
	}
	return []string{"develop", "main"}, nil
}

func (lifecycle *fakeLifecycle) ChangeBranch(_ context.Context, repositoryURL string, branchName string, removeAndClone bool) error {
	return lifecycle.record("change_branch", repositoryURL, branchName, removeAndClone)
}

func (lifecycle *fakeLifecycle) Repositories(context.Context) ([]store.Repository, error) {
	return nil, lifecycle.record("repositories")
}

func (lifecycle *fakeLifecycle) Statuses(context.Context) ([]plugins.RepositoryStatus, error) {
	if recordError := lifecycle.record("statuses"); recordError != nil {
		return nil, recordError
	}
	return []plugins.RepositoryStatus{{URL: repositoryURLConstant, Name: "widget", Branch: "main"}}, nil
}

type memorySettings struct {
	values settings.Values
}

func (manager *memorySettings) Load(context.Context) (settings.Values, error) {
	return manager.values, nil
}

func (manager *memorySettings) Save(_ context.Context, values settings.Values) (settings.Values, error) {
	manager.values = values.Sanitize()
	return manager.values, nil
}

type memoryDebugLog struct {
	entries      []journal.Entry
	cleared      bool
	requestLimit int
}

func (debugLog *memoryDebugLog) Entries(_ context.Context, limit int) ([]journal.Entry, error) {
	debugLog.requestLimit = limit
	return debugLog.entries, nil
}

func (debugLog *memoryDebugLog) Clear(context.Context) error {
	debugLog.cleared = true
	debugLog.entries = nil
	return nil
}

type staticReporter struct{}

func (staticReporter) Collect(context.Context) diagnostics.Report {
	return diagnostics.Report{ApplicationVersion: "test", GitAvailable: true, GitVersion: "git version 2.45.0"}
}

type serverFixture struct {
	server    *adminapi.Server
	lifecycle *fakeLifecycle
	settings  *memorySettings
	debugLog  *memoryDebugLog
}

func newServerFixture(testInstance *testing.T) serverFixture {
	testInstance.Helper()
	lifecycle := &fakeLifecycle{}
	settingsManager := &memorySettings{values: settings.Values{GitHubToken: "stored-token", CheckUpdatesInterval: settings.DefaultUpdateInterval}}
	debugLog := &memoryDebugLog{entries: []journal.Entry{{ID: "1", Level: "info", Message: "Installation completed"}}}
	fixedTime := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	server, serverError := adminapi.NewServer(adminapi.Config{
		NonceSecret: testNonceSecret,
		Administrators: []adminapi.Administrator{
			{Name: ownerNameConstant, Token: ownerTokenConstant, Capabilities: []adminapi.Capability{adminapi.CapabilityAll}},
			{Name: operatorNameConstant, Token: operatorTokenConstant, Capabilities: []adminapi.Capability{adminapi.CapabilityActivate}},
		},
	}, adminapi.Dependencies{
		Lifecycle: lifecycle,
		Settings:  settingsManager,
		DebugLog:  debugLog,
		System:    staticReporter{},
		Clock:     func() time.Time { return fixedTime },
	})
	require.NoError(testInstance, serverError)
	return serverFixture{server: server, lifecycle: lifecycle, settings: settingsManager, debugLog: debugLog}
}

type decodedEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (fixture serverFixture) call(testInstance *testing.T, method string, path string, token string, body string, withNonce bool) (int, decodedEnvelope) {
	testInstance.Helper()
	var reader io.Reader
	if len(body) > 0 {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, path, reader)
	if len(body) > 0 {
		request.Header.Set("Content-Type", jsonContentConstant)
	}
	if len(token) > 0 {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	if withNonce {
		request.Header.Set("X-Nonce", fixture.nonce(testInstance, token))
	}

	response, responseError := fixture.server.App().Test(request)
	require.NoError(testInstance, responseError)
	defer response.Body.Close()

	var envelope decodedEnvelope
	require.NoError(testInstance, json.NewDecoder(response.Body).Decode(&envelope))
	return response.StatusCode, envelope
}

func (fixture serverFixture) nonce(testInstance *testing.T, token string) string {
	testInstance.Helper()
	status, envelope := fixture.call(testInstance, http.MethodGet, "/api/nonce", token, "", false)
	require.Equal(testInstance, http.StatusOK, status)
	var payload struct {
		Action string `json:"action"`
		Nonce  string `json:"nonce"`
	}
	require.NoError(testInstance, json.Unmarshal(envelope.Data, &payload))
	require.Equal(testInstance, adminapi.NonceAction, payload.Action)
	require.NotEmpty(testInstance, payload.Nonce)
	return payload.Nonce
}

func failureMessage(testInstance *testing.T, envelope decodedEnvelope) string {
	testInstance.Helper()
	require.False(testInstance, envelope.Success)
	var failure adminapi.Failure
	require.NoError(testInstance, json.Unmarshal(envelope.Data, &failure))
	return failure.Message
}

func TestNewServerValidatesConfiguration(testInstance *testing.T) {
	dependencies := adminapi.Dependencies{
		Lifecycle: &fakeLifecycle{},
		Settings:  &memorySettings{},
		DebugLog:  &memoryDebugLog{},
		System:    staticReporter{},
	}
	administrators := []adminapi.Administrator{{Name: ownerNameConstant, Token: ownerTokenConstant, Capabilities: []adminapi.Capability{adminapi.CapabilityAll}}}

	testCases := []struct {
		name          string
		configuration adminapi.Config
		dependencies  adminapi.Dependencies
		expectedError error
	}{
		{name: "missing_secret", configuration: adminapi.Config{Administrators: administrators}, dependencies: dependencies, expectedError: adminapi.ErrNonceSecretRequired},
		{name: "missing_administrators", configuration: adminapi.Config{NonceSecret: testNonceSecret}, dependencies: dependencies, expectedError: adminapi.ErrAdministratorsRequired},
		{name: "blank_token", configuration: adminapi.Config{NonceSecret: testNonceSecret, Administrators: []adminapi.Administrator{{Name: "blank", Token: "  "}}}, dependencies: dependencies, expectedError: adminapi.ErrAdministratorTokenRequired},
		{name: "missing_lifecycle", configuration: adminapi.Config{NonceSecret: testNonceSecret, Administrators: administrators}, dependencies: adminapi.Dependencies{Settings: &memorySettings{}, DebugLog: &memoryDebugLog{}, System: staticReporter{}}, expectedError: adminapi.ErrDependencyMissing},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, serverError := adminapi.NewServer(testCase.configuration, testCase.dependencies)
			require.ErrorIs(testInstance, serverError, testCase.expectedError)
		})
	}
}

func TestConfigSanitizeDefaults(testInstance *testing.T) {
	sanitized := adminapi.Config{NonceSecret: " secret "}.Sanitize()
	require.Equal(testInstance, adminapi.DefaultListenAddress, sanitized.ListenAddress)
	require.Equal(testInstance, adminapi.DefaultNonceLifetime, sanitized.NonceLifetime)
	require.Equal(testInstance, "secret", sanitized.NonceSecret)
}

func TestAuthentication(testInstance *testing.T) {
	testCases := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{name: "missing_token", token: "", expectedStatus: http.StatusUnauthorized},
		{name: "unknown_token", token: "unknown", expectedStatus: http.StatusUnauthorized},
		{name: "known_token", token: ownerTokenConstant, expectedStatus: http.StatusOK},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newServerFixture(testInstance)
			status, envelope := fixture.call(testInstance, http.MethodGet, repositoriesPathConst, testCase.token, "", false)
			require.Equal(testInstance, testCase.expectedStatus, status)
			if testCase.expectedStatus == http.StatusUnauthorized {
				require.Equal(testInstance, "Unauthorized", failureMessage(testInstance, envelope))
				require.Empty(testInstance, fixture.lifecycle.calls)
			}
		})
	}
}

func TestMutationsRequireNonce(testInstance *testing.T) {
	fixture := newServerFixture(testInstance)
	body := `{"repo_url":"` + repositoryURLConstant + `"}`

	status, envelope := fixture.call(testInstance, http.MethodPost, installPathConstant, ownerTokenConstant, body, false)
	require.Equal(testInstance, http.StatusForbidden, status)
	require.Equal(testInstance, "The link you followed has expired.", failureMessage(testInstance, envelope))
	require.Empty(testInstance, fixture.lifecycle.calls)

	status, envelope = fixture.call(testInstance, http.MethodPost, installPathConstant, ownerTokenConstant, body, true)
	require.Equal(testInstance, http.StatusOK, status)
	require.True(testInstance, envelope.Success)
	var result plugins.InstallResult
	require.NoError(testInstance, json.Unmarshal(envelope.Data, &result))
	require.Equal(testInstance, "widget/widget.yaml", result.Slug)
	require.Equal(testInstance, []recordedCall{{operation: "install", arguments: []any{repositoryURLConstant}}}, fixture.lifecycle.calls)
}

func TestNonceIsBoundToPrincipal(testInstance *testing.T) {
	fixture := newServerFixture(testInstance)
	ownerNonce := fixture.nonce(testInstance, ownerTokenConstant)

	request := httptest.NewRequest(http.MethodPost, activatePathConstant, strings.NewReader(`{"slug":"widget/widget.yaml"}`))
	request.Header.Set("Content-Type", jsonContentConstant)
	request.Header.Set("Authorization", "Bearer "+operatorTokenConstant)
	request.Header.Set("X-Nonce", ownerNonce)

	response, responseError := fixture.server.App().Test(request)
	require.NoError(testInstance, responseError)
	require.Equal(testInstance, http.StatusForbidden, response.StatusCode)
	require.Empty(testInstance, fixture.lifecycle.calls)
}

func TestCapabilities(testInstance *testing.T) {
	testCases := []struct {
		name            string
		method          string
		path            string
		body            string
		expectedStatus  int
		expectedMessage string
	}{
		{name: "install_denied", method: http.MethodPost, path: installPathConstant, body: `{"repo_url":"` + repositoryURLConstant + `"}`, expectedStatus: http.StatusForbidden, expectedMessage: "You do not have sufficient permissions to install plugins."},
		{name: "deactivate_denied", method: http.MethodPost, path: deactivatePathConstant, body: `{"slug":"widget/widget.yaml"}`, expectedStatus: http.StatusForbidden, expectedMessage: "You do not have sufficient permissions to deactivate plugins."},
		{name: "settings_denied", method: http.MethodGet, path: settingsPathConstant, expectedStatus: http.StatusForbidden, expectedMessage: "You do not have sufficient permissions to access this page."},
		{name: "activate_allowed", method: http.MethodPost, path: activatePathConstant, body: `{"slug":"widget/widget.yaml"}`, expectedStatus: http.StatusOK},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newServerFixture(testInstance)
			status, envelope := fixture.call(testInstance, testCase.method, testCase.path, operatorTokenConstant, testCase.body, true)
			require.Equal(testInstance, testCase.expectedStatus, status)
			if len(testCase.expectedMessage) > 0 {
				require.Equal(testInstance, testCase.expectedMessage, failureMessage(testInstance, envelope))
				return
			}
			require.True(testInstance, envelope.Success)
		})
	}
}

func TestMissingFields(testInstance *testing.T) {
	testCases := []struct {
		name            string
		path            string
		body            string
		expectedMessage string
	}{
		{name: "add_repository", path: repositoriesPathConst, body: `{"repo_url":" "}`, expectedMessage: "Repository URL is required."},
		{name: "install", path: installPathConstant, body: `{}`, expectedMessage: "Repository URL is required."},
		{name: "delete", path: "/api/extensions/delete", body: `{}`, expectedMessage: "Repository URL is required."},
		{name: "update", path: "/api/extensions/update", body: `{}`, expectedMessage: "Repository URL is required."},
		{name: "activate", path: activatePathConstant, body: `{}`, expectedMessage: "Plugin slug is required."},
		{name: "deactivate", path: deactivatePathConstant, body: `{"slug":""}`, expectedMessage: "Plugin slug is required."},
		{name: "branches", path: branchesPathConstant, body: `{}`, expectedMessage: "Repository URL is required."},
		{name: "change_branch", path: changeBranchPathConst, body: `{"repo_url":"` + repositoryURLConstant + `"}`, expectedMessage: "Repository URL and branch are required."},
		{name: "malformed", path: installPathConstant, body: `{"repo_url":`, expectedMessage: "Malformed request body."},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newServerFixture(testInstance)
			status, envelope := fixture.call(testInstance, http.MethodPost, testCase.path, ownerTokenConstant, testCase.body, true)
			require.Equal(testInstance, http.StatusBadRequest, status)
			require.Equal(testInstance, testCase.expectedMessage, failureMessage(testInstance, envelope))
			require.Empty(testInstance, fixture.lifecycle.calls)
		})
	}
}

func TestLifecycleErrorsMapToStatuses(testInstance *testing.T) {
	testCases := []struct {
		name            string
		failure         error
		expectedStatus  int
		expectedMessage string
	}{
		{name: "not_found", failure: store.ErrRepositoryNotFound, expectedStatus: http.StatusNotFound, expectedMessage: "Repository not found."},
		{name: "exists", failure: store.ErrRepositoryExists, expectedStatus: http.StatusConflict, expectedMessage: "This repository is already added."},
		{name: "git_failure", failure: gitops.GitError{Operation: gitops.OperationClone, Output: "fatal: repository not found"}, expectedStatus: http.StatusUnprocessableEntity, expectedMessage: "Git error: fatal: repository not found"},
		{name: "directory_conflict", failure: plugins.DirectoryNotRepositoryError{Directory: "/srv/widget"}, expectedStatus: http.StatusUnprocessableEntity, expectedMessage: "Directory /srv/widget already exists and is not a Git repository."},
		{name: "git_missing", failure: gitops.ErrGitUnavailable, expectedStatus: http.StatusServiceUnavailable, expectedMessage: gitops.ErrGitUnavailable.Error()},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newServerFixture(testInstance)
			fixture.lifecycle.failure = testCase.failure
			status, envelope := fixture.call(testInstance, http.MethodPost, repositoriesPathConst, ownerTokenConstant, `{"repo_url":"`+repositoryURLConstant+`","branch":"develop","is_private":true}`, true)
			require.Equal(testInstance, testCase.expectedStatus, status)
			require.Equal(testInstance, testCase.expectedMessage, failureMessage(testInstance, envelope))
			require.Equal(testInstance, []any{repositoryURLConstant, "develop", true}, fixture.lifecycle.calls[0].arguments)
		})
	}
}

func TestRepositoryRoutes(testInstance *testing.T) {
	fixture := newServerFixture(testInstance)

	status, envelope := fixture.call(testInstance, http.MethodGet, repositoriesPathConst, ownerTokenConstant, "", false)
	require.Equal(testInstance, http.StatusOK, status)
	var statuses []plugins.RepositoryStatus
	require.NoError(testInstance, json.Unmarshal(envelope.Data, &statuses))
	require.Len(testInstance, statuses, 1)
	assert.Equal(testInstance, "widget", statuses[0].Name)

	status, envelope = fixture.call(testInstance, http.MethodPost, branchesPathConstant, ownerTokenConstant, `{"repo_url":"`+repositoryURLConstant+`"}`, true)
	require.Equal(testInstance, http.StatusOK, status)
	var branches []string
	require.NoError(testInstance, json.Unmarshal(envelope.Data, &branches))
	assert.Equal(testInstance, []string{"develop", "main"}, branches)

	status, _ = fixture.call(testInstance, http.MethodPost, changeBranchPathConst, ownerTokenConstant, `{"repo_url":"`+repositoryURLConstant+`","branch":"develop","remove_and_clone":true}`, true)
	require.Equal(testInstance, http.StatusOK, status)

	fixture.lifecycle.updates = []plugins.AvailableUpdate{{Name: "widget", CurrentVersion: "1.0.0", NewVersion: "1.1.0", URL: repositoryURLConstant}}
	status, envelope = fixture.call(testInstance, http.MethodPost, checkUpdatesPathConst, ownerTokenConstant, "", true)
	require.Equal(testInstance, http.StatusOK, status)
	var updates struct {
		Message string                    `json:"message"`
		Updates []plugins.AvailableUpdate `json:"updates"`
	}
	require.NoError(testInstance, json.Unmarshal(envelope.Data, &updates))
	assert.Equal(testInstance, "1 update(s) available.", updates.Message)
	assert.Equal(testInstance, fixture.lifecycle.updates, updates.Updates)

	operations := make([]string, 0, len(fixture.lifecycle.calls))
	for _, call := range fixture.lifecycle.calls {
		operations = append(operations, call.operation)
	}
	require.Equal(testInstance, []string{"statuses", "branches", "change_branch", "check"}, operations)
	require.Equal(testInstance, []any{repositoryURLConstant, "develop", true}, fixture.lifecycle.calls[2].arguments)
}

func TestSettingsRoutes(testInstance *testing.T) {
	fixture := newServerFixture(testInstance)

	status, envelope := fixture.call(testInstance, http.MethodGet, settingsPathConstant, ownerTokenConstant, "", false)
	require.Equal(testInstance, http.StatusOK, status)
	var view map[string]any
	require.NoError(testInstance, json.Unmarshal(envelope.Data, &view))
	assert.Equal(testInstance, true, view["github_token_set"])
	assert.NotContains(testInstance, string(envelope.Data), "stored-token")

	status, _ = fixture.call(testInstance, http.MethodPut, settingsPathConstant, ownerTokenConstant, `{"github_username":" octocat ","check_updates_interval":"weekly"}`, true)
	require.Equal(testInstance, http.StatusOK, status)
	require.Equal(testInstance, settings.Values{GitHubUsername: "octocat", GitHubToken: "stored-token", CheckUpdatesInterval: settings.IntervalWeekly}, fixture.settings.values)

	status, _ = fixture.call(testInstance, http.MethodPut, settingsPathConstant, ownerTokenConstant, `{"github_token":"","check_updates_interval":"bogus"}`, true)
	require.Equal(testInstance, http.StatusOK, status)
	require.Equal(testInstance, settings.Values{CheckUpdatesInterval: settings.DefaultUpdateInterval}, fixture.settings.values)
}

func TestDebugLogAndSystemRoutes(testInstance *testing.T) {
	fixture := newServerFixture(testInstance)

	status, envelope := fixture.call(testInstance, http.MethodGet, debugLogPathConstant+"?limit=5", ownerTokenConstant, "", false)
	require.Equal(testInstance, http.StatusOK, status)
	var entries []journal.Entry
	require.NoError(testInstance, json.Unmarshal(envelope.Data, &entries))
	require.Len(testInstance, entries, 1)
	require.Equal(testInstance, 5, fixture.debugLog.requestLimit)

	status, _ = fixture.call(testInstance, http.MethodDelete, debugLogPathConstant, ownerTokenConstant, "", false)
	require.Equal(testInstance, http.StatusForbidden, status)
	require.False(testInstance, fixture.debugLog.cleared)

	status, _ = fixture.call(testInstance, http.MethodDelete, debugLogPathConstant, ownerTokenConstant, "", true)
	require.Equal(testInstance, http.StatusOK, status)
	require.True(testInstance, fixture.debugLog.cleared)

	status, envelope = fixture.call(testInstance, http.MethodGet, systemPathConstant, ownerTokenConstant, "", false)
	require.Equal(testInstance, http.StatusOK, status)
	var report diagnostics.Report
	require.NoError(testInstance, json.Unmarshal(envelope.Data, &report))
	require.True(testInstance, report.GitAvailable)
	require.Equal(testInstance, "git version 2.45.0", report.GitVersion)
}
