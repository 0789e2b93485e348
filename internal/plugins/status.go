package plugins

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/execshell"
	"github.com/temirov/gitplugins/internal/extensions"
	"github.com/temirov/gitplugins/internal/gitrepo"
	"github.com/temirov/gitplugins/internal/versioning"
)

// RepositoryStatus is one row of the repository listing.
type RepositoryStatus struct {
	URL              string             `json:"url"`
	Owner            string             `json:"owner"`
	Name             string             `json:"name"`
	Branch           string             `json:"branch"`
	IsPrivate        bool               `json:"is_private"`
	Slug             string             `json:"slug,omitempty"`
	Installed        bool               `json:"installed"`
	Active           bool               `json:"active"`
	ExtensionName    string             `json:"extension_name,omitempty"`
	InstalledVersion string             `json:"installed_version"`
	LatestVersion    string             `json:"latest_version"`
	UpdateAvailable  bool               `json:"update_available"`
	LastChecked      time.Time          `json:"last_checked"`
	LastUpdated      time.Time          `json:"last_updated"`
	AddedAt          time.Time          `json:"added_at"`
	Clone            gitrepo.CloneState `json:"clone"`
}

// Statuses builds the listing view of every registered repository.
func (service *Service) Statuses(executionContext context.Context) ([]RepositoryStatus, error) {
	repositories, listError := service.repositories.ListRepositories(executionContext)
	if listError != nil {
		return nil, listError
	}

	statuses := make([]RepositoryStatus, 0, len(repositories))
	for _, repository := range repositories {
		status := RepositoryStatus{
			URL:              repository.URL,
			Owner:            repository.Owner,
			Name:             repository.Name,
			Branch:           repository.Branch,
			IsPrivate:        repository.IsPrivate,
			InstalledVersion: repository.InstalledVersion,
			LatestVersion:    repository.LatestVersion,
			LastChecked:      repository.LastChecked,
			LastUpdated:      repository.LastUpdated,
			AddedAt:          repository.AddedAt,
		}

		cloneDirectory := service.extensions.DirectoryPath(repository.Name)
		resolution, resolved, resolveError := service.extensions.ResolveForListing(repository.Name)
		if resolveError != nil {
			return nil, resolveError
		}
		if resolved {
			status.Slug = resolution.Slug
			status.Installed = true
			cloneDirectory = service.extensions.DirectoryPath(extensions.SlugDirectory(resolution.Slug))
			if manifest, manifestError := service.extensions.Manifest(resolution.Slug); manifestError == nil {
				status.ExtensionName = manifest.Name
				status.InstalledVersion = manifest.Version
			}
			active, activeError := service.extensions.IsActive(executionContext, resolution.Slug)
			if activeError != nil {
				return nil, activeError
			}
			status.Active = active
		}
		if len(status.LatestVersion) > 0 && len(status.InstalledVersion) > 0 {
			status.UpdateAvailable = versioning.IsNewer(status.LatestVersion, status.InstalledVersion)
		}

		cloneState, inspectError := service.inspector.Inspect(cloneDirectory)
		if inspectError != nil {
			service.logger.Debug("Unable to inspect clone", zap.String(directoryFieldConstant, cloneDirectory), zap.Error(inspectError))
		}
		cloneState.OriginURL = execshell.RedactCredentials(cloneState.OriginURL)
		status.Clone = cloneState

		statuses = append(statuses, status)
	}
	return statuses, nil
}
