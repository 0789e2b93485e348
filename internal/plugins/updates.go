package plugins

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/store"
	"github.com/temirov/gitplugins/internal/versioning"
)

const (
	latestVersionFieldConstant    = "latest_version"
	installedVersionFieldConstant = "installed_version"
)

// AvailableUpdate describes a repository whose latest release is newer than the installed version.
type AvailableUpdate struct {
	Name           string `json:"name"`
	CurrentVersion string `json:"current_version"`
	NewVersion     string `json:"new_version"`
	URL            string `json:"url"`
}

// CheckForUpdates queries the latest release of every repository, records it, and
// returns the repositories with a newer release. A failed query is logged and only
// the check time is recorded for that repository.
func (service *Service) CheckForUpdates(executionContext context.Context) ([]AvailableUpdate, error) {
	repositories, listError := service.repositories.ListRepositories(executionContext)
	if listError != nil {
		return nil, listError
	}
	token, tokenError := service.tokens.Token(executionContext)
	if tokenError != nil {
		return nil, tokenError
	}

	updates := []AvailableUpdate{}
	for _, repository := range repositories {
		if contextError := executionContext.Err(); contextError != nil {
			return nil, contextError
		}

		checkedAt := service.clock()
		update := store.RepositoryUpdate{LastChecked: &checkedAt}

		latestVersion, latestError := service.releases.LatestVersion(executionContext, repository.Owner, repository.Name, repository.Branch, token)
		if latestError != nil {
			service.logger.Warn("Release check failed", zap.String(repositoryURLFieldConstant, repository.URL), zap.Error(latestError))
		} else {
			update.LatestVersion = &latestVersion
			if versioning.IsNewer(latestVersion, repository.InstalledVersion) {
				updates = append(updates, AvailableUpdate{
					Name:           repository.Name,
					CurrentVersion: repository.InstalledVersion,
					NewVersion:     latestVersion,
					URL:            repository.URL,
				})
			}
			service.logger.Debug("Release checked",
				zap.String(repositoryURLFieldConstant, repository.URL),
				zap.String(latestVersionFieldConstant, latestVersion),
				zap.String(installedVersionFieldConstant, repository.InstalledVersion),
			)
		}

		if updateError := service.repositories.UpdateRepository(executionContext, repository.URL, update); updateError != nil {
			return nil, updateError
		}
	}
	service.logger.Info("Updates checked", zap.Int("repositories", len(repositories)), zap.Int("updates", len(updates)))
	return updates, nil
}
