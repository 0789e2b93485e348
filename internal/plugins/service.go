package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/extensions"
	"github.com/temirov/gitplugins/internal/gitrepo"
	"github.com/temirov/gitplugins/internal/store"
)

const (
	defaultBranchConstant         = "main"
	gitMetadataDirectoryName      = ".git"
	repositoryURLFieldConstant    = "repository_url"
	branchFieldConstant           = "branch"
	slugFieldConstant             = "slug"
	versionFieldConstant          = "version"
	directoryFieldConstant        = "directory"
	privateFieldConstant          = "is_private"
	strategyFieldConstant         = "strategy"
	dependencyTemplateConstant    = "%w: %s"
	statDirectoryTemplateConstant = "inspect %s: %w"
)

// RepositoryStore persists registered repositories.
type RepositoryStore interface {
	AddRepository(executionContext context.Context, repository store.Repository) (store.Repository, error)
	ListRepositories(executionContext context.Context) ([]store.Repository, error)
	GetRepository(executionContext context.Context, repositoryURL string) (store.Repository, error)
	UpdateRepository(executionContext context.Context, repositoryURL string, update store.RepositoryUpdate) error
	RemoveRepository(executionContext context.Context, repositoryURL string) error
}

// GitRunner performs the git steps of the lifecycle.
type GitRunner interface {
	Available() error
	Clone(executionContext context.Context, cloneURL string, branchName string, targetDirectory string) error
	Sync(executionContext context.Context, targetDirectory string, branchName string) error
}

// ExtensionRegistry exposes installed extensions and their activation state.
type ExtensionRegistry interface {
	EnsureRoot() error
	DirectoryPath(directoryName string) string
	Resolve(repositoryName string) (extensions.Resolution, bool, error)
	ResolveForListing(repositoryName string) (extensions.Resolution, bool, error)
	OwnedDirectory(repositoryName string) (string, bool, error)
	Manifest(slug string) (extensions.Manifest, error)
	Activate(executionContext context.Context, slug string) error
	Deactivate(executionContext context.Context, slug string) error
	IsActive(executionContext context.Context, slug string) (bool, error)
	ActiveSlugs(executionContext context.Context) ([]string, error)
	RemoveDirectory(directoryName string) error
}

// ReleaseClient queries GitHub release and branch metadata.
type ReleaseClient interface {
	LatestVersion(executionContext context.Context, owner string, name string, branch string, token string) (string, error)
	Branches(executionContext context.Context, owner string, name string, token string) ([]string, error)
}

// TokenProvider resolves the GitHub token for private clones and API calls.
type TokenProvider interface {
	Token(executionContext context.Context) (string, error)
}

// CloneInspector reads local clone metadata.
type CloneInspector interface {
	Inspect(directory string) (gitrepo.CloneState, error)
}

// Dependencies enumerates collaborators required by Service.
type Dependencies struct {
	Repositories RepositoryStore
	Git          GitRunner
	Extensions   ExtensionRegistry
	Releases     ReleaseClient
	Tokens       TokenProvider
	Inspector    CloneInspector
	Logger       *zap.Logger
	Clock        func() time.Time
}

// Service executes lifecycle actions.
type Service struct {
	repositories RepositoryStore
	git          GitRunner
	extensions   ExtensionRegistry
	releases     ReleaseClient
	tokens       TokenProvider
	inspector    CloneInspector
	logger       *zap.Logger
	clock        func() time.Time
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	switch {
	case dependencies.Repositories == nil:
		return nil, fmt.Errorf(dependencyTemplateConstant, ErrDependencyMissing, "repository store")
	case dependencies.Git == nil:
		return nil, fmt.Errorf(dependencyTemplateConstant, ErrDependencyMissing, "git runner")
	case dependencies.Extensions == nil:
		return nil, fmt.Errorf(dependencyTemplateConstant, ErrDependencyMissing, "extension registry")
	case dependencies.Releases == nil:
		return nil, fmt.Errorf(dependencyTemplateConstant, ErrDependencyMissing, "release client")
	}

	service := &Service{
		repositories: dependencies.Repositories,
		git:          dependencies.Git,
		extensions:   dependencies.Extensions,
		releases:     dependencies.Releases,
		tokens:       dependencies.Tokens,
		inspector:    dependencies.Inspector,
		logger:       dependencies.Logger,
		clock:        dependencies.Clock,
	}
	if service.tokens == nil {
		service.tokens = noToken{}
	}
	if service.inspector == nil {
		service.inspector = gitrepo.NewCloneInspector()
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	if service.clock == nil {
		service.clock = time.Now
	}
	return service, nil
}

// InstallResult reports the extension produced by an install or update.
type InstallResult struct {
	RepositoryURL string `json:"repository_url"`
	Slug          string `json:"slug"`
	Version       string `json:"version"`
	Activated     bool   `json:"activated"`
}

// AddRepository registers a repository and installs it. A failed install unregisters the repository again.
func (service *Service) AddRepository(executionContext context.Context, repositoryURL string, branchName string, isPrivate bool) (InstallResult, error) {
	trimmedURL := strings.TrimSpace(repositoryURL)
	if len(trimmedURL) == 0 {
		return InstallResult{}, ErrRepositoryURLRequired
	}
	githubRepository, parseError := gitrepo.ParseGitHubURL(trimmedURL)
	if parseError != nil {
		return InstallResult{}, parseError
	}
	branch := strings.TrimSpace(branchName)
	if len(branch) == 0 {
		branch = defaultBranchConstant
	}

	registered, addError := service.repositories.AddRepository(executionContext, store.Repository{
		URL:       githubRepository.URL(),
		Owner:     githubRepository.Owner,
		Name:      githubRepository.Name,
		Branch:    branch,
		IsPrivate: isPrivate,
		AddedAt:   service.clock(),
	})
	if addError != nil {
		return InstallResult{}, addError
	}
	service.logger.Info("Repository added",
		zap.String(repositoryURLFieldConstant, registered.URL),
		zap.String(branchFieldConstant, registered.Branch),
		zap.Bool(privateFieldConstant, registered.IsPrivate),
	)

	result, installError := service.Install(executionContext, registered.URL)
	if installError != nil {
		if removeError := service.repositories.RemoveRepository(executionContext, registered.URL); removeError != nil {
			service.logger.Warn("Unable to unregister repository after failed install", zap.String(repositoryURLFieldConstant, registered.URL), zap.Error(removeError))
		}
		return InstallResult{}, installError
	}
	return result, nil
}

// Install clones the repository, or synchronizes an existing clone, then resolves and activates its extension.
func (service *Service) Install(executionContext context.Context, repositoryURL string) (InstallResult, error) {
	repository, githubRepository, lookupError := service.lookup(executionContext, repositoryURL)
	if lookupError != nil {
		return InstallResult{}, lookupError
	}
	service.logger.Info("Starting extension installation", zap.String(repositoryURLFieldConstant, repository.URL))

	if availabilityError := service.git.Available(); availabilityError != nil {
		return InstallResult{}, availabilityError
	}
	if rootError := service.extensions.EnsureRoot(); rootError != nil {
		return InstallResult{}, rootError
	}

	targetDirectory := service.extensions.DirectoryPath(githubRepository.Name)
	directoryExists, existsError := pathExists(targetDirectory)
	if existsError != nil {
		return InstallResult{}, existsError
	}
	if directoryExists {
		if gitError := service.syncExisting(executionContext, repository, targetDirectory); gitError != nil {
			return InstallResult{}, gitError
		}
	} else {
		if gitError := service.clone(executionContext, repository, githubRepository, repository.Branch, targetDirectory); gitError != nil {
			return InstallResult{}, gitError
		}
	}

	return service.finishInstall(executionContext, repository, githubRepository, true)
}

// Update synchronizes an installed clone with its tracked branch and refreshes the recorded version.
func (service *Service) Update(executionContext context.Context, repositoryURL string) (InstallResult, error) {
	repository, githubRepository, lookupError := service.lookup(executionContext, repositoryURL)
	if lookupError != nil {
		return InstallResult{}, lookupError
	}
	targetDirectory := service.extensions.DirectoryPath(githubRepository.Name)
	directoryExists, existsError := pathExists(targetDirectory)
	if existsError != nil {
		return InstallResult{}, existsError
	}
	if !directoryExists {
		return InstallResult{}, ErrExtensionDirectoryMissing
	}
	if availabilityError := service.git.Available(); availabilityError != nil {
		return InstallResult{}, availabilityError
	}
	if gitError := service.syncExisting(executionContext, repository, targetDirectory); gitError != nil {
		return InstallResult{}, gitError
	}
	return service.finishInstall(executionContext, repository, githubRepository, true)
}

// Activate marks an installed extension active.
func (service *Service) Activate(executionContext context.Context, slug string) error {
	if len(strings.TrimSpace(slug)) == 0 {
		return ErrSlugRequired
	}
	return service.extensions.Activate(executionContext, slug)
}

// Deactivate marks an extension inactive.
func (service *Service) Deactivate(executionContext context.Context, slug string) error {
	if len(strings.TrimSpace(slug)) == 0 {
		return ErrSlugRequired
	}
	return service.extensions.Deactivate(executionContext, slug)
}

// Delete deactivates the extensions inside the repository's clone directory, removes that
// directory, and unregisters the repository. Only the "<name>" or "<name>-main" directory is touched.
func (service *Service) Delete(executionContext context.Context, repositoryURL string) error {
	repository, githubRepository, lookupError := service.lookup(executionContext, repositoryURL)
	if lookupError != nil {
		return lookupError
	}

	directoryName, owned, ownedError := service.extensions.OwnedDirectory(githubRepository.Name)
	if ownedError != nil {
		return ownedError
	}
	if !owned {
		directoryName = githubRepository.Name
	}

	activeSlugs, activeError := service.extensions.ActiveSlugs(executionContext)
	if activeError != nil {
		return activeError
	}
	for _, slug := range activeSlugs {
		if extensions.SlugDirectory(slug) != directoryName {
			continue
		}
		if deactivateError := service.extensions.Deactivate(executionContext, slug); deactivateError != nil {
			return deactivateError
		}
	}

	if removeError := service.extensions.RemoveDirectory(directoryName); removeError != nil {
		return removeError
	}
	if removeError := service.repositories.RemoveRepository(executionContext, repository.URL); removeError != nil {
		return removeError
	}
	service.logger.Info("Extension deleted", zap.String(repositoryURLFieldConstant, repository.URL), zap.String(directoryFieldConstant, directoryName))
	return nil
}

// RemoveRepository unregisters a repository without touching its files.
func (service *Service) RemoveRepository(executionContext context.Context, repositoryURL string) error {
	trimmedURL := strings.TrimSpace(repositoryURL)
	if len(trimmedURL) == 0 {
		return ErrRepositoryURLRequired
	}
	if removeError := service.repositories.RemoveRepository(executionContext, canonicalURL(trimmedURL)); removeError != nil {
		return removeError
	}
	service.logger.Info("Repository removed", zap.String(repositoryURLFieldConstant, canonicalURL(trimmedURL)))
	return nil
}

// Repositories lists the registered repositories, most recent first.
func (service *Service) Repositories(executionContext context.Context) ([]store.Repository, error) {
	return service.repositories.ListRepositories(executionContext)
}

// Branches lists the remote branches of a repository, authenticating when it is private.
func (service *Service) Branches(executionContext context.Context, repositoryURL string, isPrivate bool) ([]string, error) {
	trimmedURL := strings.TrimSpace(repositoryURL)
	if len(trimmedURL) == 0 {
		return nil, ErrRepositoryURLRequired
	}
	githubRepository, parseError := gitrepo.ParseGitHubURL(trimmedURL)
	if parseError != nil {
		return nil, parseError
	}
	token := ""
	if isPrivate {
		resolvedToken, tokenError := service.tokens.Token(executionContext)
		if tokenError != nil {
			return nil, tokenError
		}
		token = resolvedToken
	}
	return service.releases.Branches(executionContext, githubRepository.Owner, githubRepository.Name, token)
}

// ChangeBranch switches the tracked branch. With removeAndClone the local clone is replaced by a
// fresh clone of the branch; otherwise the existing clone is synchronized onto it.
func (service *Service) ChangeBranch(executionContext context.Context, repositoryURL string, branchName string, removeAndClone bool) error {
	trimmedURL := strings.TrimSpace(repositoryURL)
	branch := strings.TrimSpace(branchName)
	if len(trimmedURL) == 0 || len(branch) == 0 {
		return ErrBranchRequired
	}
	if updateError := service.repositories.UpdateRepository(executionContext, canonicalURL(trimmedURL), store.RepositoryUpdate{Branch: &branch}); updateError != nil {
		return updateError
	}
	repository, githubRepository, lookupError := service.lookup(executionContext, trimmedURL)
	if lookupError != nil {
		return lookupError
	}
	service.logger.Info("Repository branch changed", zap.String(repositoryURLFieldConstant, repository.URL), zap.String(branchFieldConstant, branch))

	if availabilityError := service.git.Available(); availabilityError != nil {
		return availabilityError
	}
	targetDirectory := service.extensions.DirectoryPath(githubRepository.Name)
	if removeAndClone {
		if rootError := service.extensions.EnsureRoot(); rootError != nil {
			return rootError
		}
		if removeError := service.extensions.RemoveDirectory(githubRepository.Name); removeError != nil {
			return removeError
		}
		if cloneError := service.clone(executionContext, repository, githubRepository, branch, targetDirectory); cloneError != nil {
			return cloneError
		}
	} else {
		directoryExists, existsError := pathExists(targetDirectory)
		if existsError != nil {
			return existsError
		}
		if !directoryExists {
			return ErrExtensionDirectoryMissing
		}
		if syncError := service.git.Sync(executionContext, targetDirectory, branch); syncError != nil {
			return syncError
		}
	}

	if _, refreshError := service.finishInstall(executionContext, repository, githubRepository, false); refreshError != nil {
		service.logger.Warn("Unable to refresh the installed version after a branch change", zap.String(repositoryURLFieldConstant, repository.URL), zap.Error(refreshError))
	}
	return nil
}

func (service *Service) syncExisting(executionContext context.Context, repository store.Repository, targetDirectory string) error {
	gitDirectoryExists, existsError := pathExists(filepath.Join(targetDirectory, gitMetadataDirectoryName))
	if existsError != nil {
		return existsError
	}
	if !gitDirectoryExists {
		service.logger.Warn("Directory exists but is not a Git repository", zap.String(directoryFieldConstant, targetDirectory))
		return DirectoryNotRepositoryError{Directory: targetDirectory}
	}
	service.logger.Info("Updating existing Git repository", zap.String(directoryFieldConstant, targetDirectory), zap.String(branchFieldConstant, repository.Branch))
	return service.git.Sync(executionContext, targetDirectory, repository.Branch)
}

func (service *Service) clone(executionContext context.Context, repository store.Repository, githubRepository gitrepo.GitHubRepository, branch string, targetDirectory string) error {
	token := ""
	if repository.IsPrivate {
		resolvedToken, tokenError := service.tokens.Token(executionContext)
		if tokenError != nil {
			return tokenError
		}
		token = resolvedToken
	}
	service.logger.Info("Cloning new repository",
		zap.String(repositoryURLFieldConstant, repository.URL),
		zap.String(branchFieldConstant, branch),
		zap.String(directoryFieldConstant, targetDirectory),
		zap.Bool(privateFieldConstant, repository.IsPrivate),
	)
	return service.git.Clone(executionContext, githubRepository.CloneURL(token), branch, targetDirectory)
}

// finishInstall resolves the clone to its entry file, optionally activates it, and records the installed version.
func (service *Service) finishInstall(executionContext context.Context, repository store.Repository, githubRepository gitrepo.GitHubRepository, activate bool) (InstallResult, error) {
	resolution, resolved, resolveError := service.extensions.Resolve(githubRepository.Name)
	if resolveError != nil {
		return InstallResult{}, resolveError
	}
	if !resolved {
		return InstallResult{}, ErrExtensionNotResolved
	}
	service.logger.Info("Found extension entry file", zap.String(slugFieldConstant, resolution.Slug), zap.String(strategyFieldConstant, resolution.Strategy))

	version := extensions.DefaultManifestVersion
	if manifest, manifestError := service.extensions.Manifest(resolution.Slug); manifestError == nil && len(manifest.Version) > 0 {
		version = manifest.Version
	}

	result := InstallResult{RepositoryURL: repository.URL, Slug: resolution.Slug, Version: version}
	if activate {
		if activationError := service.extensions.Activate(executionContext, resolution.Slug); activationError != nil {
			service.logger.Warn("Failed to activate extension", zap.String(slugFieldConstant, resolution.Slug), zap.Error(activationError))
		} else {
			result.Activated = true
		}
	}

	updatedAt := service.clock()
	if updateError := service.repositories.UpdateRepository(executionContext, repository.URL, store.RepositoryUpdate{
		InstalledVersion: &version,
		LastUpdated:      &updatedAt,
	}); updateError != nil {
		return InstallResult{}, updateError
	}
	service.logger.Info("Installation completed", zap.String(slugFieldConstant, resolution.Slug), zap.String(versionFieldConstant, version))
	return result, nil
}

func (service *Service) lookup(executionContext context.Context, repositoryURL string) (store.Repository, gitrepo.GitHubRepository, error) {
	trimmedURL := strings.TrimSpace(repositoryURL)
	if len(trimmedURL) == 0 {
		return store.Repository{}, gitrepo.GitHubRepository{}, ErrRepositoryURLRequired
	}
	repository, getError := service.repositories.GetRepository(executionContext, canonicalURL(trimmedURL))
	if getError != nil {
		return store.Repository{}, gitrepo.GitHubRepository{}, getError
	}
	githubRepository, parseError := gitrepo.ParseGitHubURL(repository.URL)
	if parseError != nil {
		return store.Repository{}, gitrepo.GitHubRepository{}, parseError
	}
	if len(strings.TrimSpace(repository.Branch)) == 0 {
		repository.Branch = defaultBranchConstant
	}
	return repository, githubRepository, nil
}

// canonicalURL maps any accepted GitHub URL form onto the registered key.
func canonicalURL(repositoryURL string) string {
	githubRepository, parseError := gitrepo.ParseGitHubURL(repositoryURL)
	if parseError != nil {
		return strings.TrimSpace(repositoryURL)
	}
	return githubRepository.URL()
}

func pathExists(path string) (bool, error) {
	_, statError := os.Stat(path)
	if statError == nil {
		return true, nil
	}
	if errors.Is(statError, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf(statDirectoryTemplateConstant, path, statError)
}

type noToken struct{}

func (noToken) Token(context.Context) (string, error) {
	return "", nil
}
