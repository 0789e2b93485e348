package extensions

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"
)

const (
	mainSuffixConstant          = "-main"
	repositoryNameFieldConstant = "repository_name"
	strategyFieldConstant       = "strategy"
)

// Matching strategies reported in resolution logs.
const (
	StrategyExactDirectory         = "exact_directory"
	StrategyCaseInsensitive        = "case_insensitive_directory"
	StrategyDirectoryScan          = "directory_scan"
	StrategyMainDirectoryScan      = "main_directory_scan"
	StrategyManifestName           = "manifest_name"
	StrategyDefaultListingSlug     = "default_listing_slug"
	StrategyListingDirectoryFamily = "listing_directory_family"
)

// Resolution names the entry file a repository resolved to.
type Resolution struct {
	Slug     string
	Strategy string
}

// Resolve maps a cloned repository name to the slug of its entry file.
// Strategies run in order and the first plausible match wins:
// exact directory (also with a -main suffix), the same case-insensitively,
// a scan of the repository directory, a scan of its -main twin, and finally
// any installed manifest whose name contains the repository name.
func (registry *Registry) Resolve(repositoryName string) (Resolution, bool, error) {
	trimmedName := strings.TrimSpace(repositoryName)
	if len(trimmedName) == 0 {
		return Resolution{}, false, nil
	}
	installed, installedError := registry.Installed()
	if installedError != nil {
		return Resolution{}, false, installedError
	}
	slugs := InstalledSlugs(installed)
	mainName := trimmedName + mainSuffixConstant

	for _, slug := range slugs {
		directory := path.Dir(slug)
		if directory == trimmedName || directory == mainName {
			return registry.resolved(trimmedName, slug, StrategyExactDirectory), true, nil
		}
	}

	lowerName := strings.ToLower(trimmedName)
	lowerMainName := lowerName + mainSuffixConstant
	for _, slug := range slugs {
		directory := strings.ToLower(path.Dir(slug))
		if directory == lowerName || directory == lowerMainName {
			return registry.resolved(trimmedName, slug, StrategyCaseInsensitive), true, nil
		}
	}

	if slug, found := registry.scanDirectory(trimmedName); found {
		return registry.resolved(trimmedName, slug, StrategyDirectoryScan), true, nil
	}
	if slug, found := registry.scanDirectory(mainName); found {
		return registry.resolved(trimmedName, slug, StrategyMainDirectoryScan), true, nil
	}

	for _, slug := range slugs {
		if strings.Contains(strings.ToLower(installed[slug].Name), lowerName) {
			return registry.resolved(trimmedName, slug, StrategyManifestName), true, nil
		}
	}

	registry.logger.Debug("No extension matched repository", zap.String(repositoryNameFieldConstant, trimmedName))
	return Resolution{}, false, nil
}

// ResolveForListing locates the extension shown next to a repository in status listings.
// The conventional "<name>/<name>.<ext>" entry wins; otherwise the first installed
// slug whose lowercased directory is the name, its -main twin, an
// underscore/dash variant, or starts with the name.
func (registry *Registry) ResolveForListing(repositoryName string) (Resolution, bool, error) {
	trimmedName := strings.TrimSpace(repositoryName)
	if len(trimmedName) == 0 {
		return Resolution{}, false, nil
	}
	installed, installedError := registry.Installed()
	if installedError != nil {
		return Resolution{}, false, installedError
	}
	slugs := InstalledSlugs(installed)

	for _, slug := range slugs {
		entryFile := path.Base(slug)
		if path.Dir(slug) == trimmedName && strings.TrimSuffix(entryFile, path.Ext(entryFile)) == trimmedName {
			return Resolution{Slug: slug, Strategy: StrategyDefaultListingSlug}, true, nil
		}
	}

	lowerName := strings.ToLower(trimmedName)
	candidates := map[string]struct{}{
		lowerName:                               {},
		lowerName + mainSuffixConstant:          {},
		strings.ReplaceAll(lowerName, "_", "-"): {},
		strings.ReplaceAll(lowerName, "-", "_"): {},
	}
	for _, slug := range slugs {
		directory := strings.ToLower(path.Dir(slug))
		if _, isCandidate := candidates[directory]; isCandidate || strings.HasPrefix(directory, lowerName) {
			return Resolution{Slug: slug, Strategy: StrategyListingDirectoryFamily}, true, nil
		}
	}
	return Resolution{}, false, nil
}

// scanDirectory picks the first entry file with a valid manifest in directoryName,
// falling back to the first entry file at all.
func (registry *Registry) scanDirectory(directoryName string) (string, bool) {
	entryFiles := registry.entryFiles(directoryName)
	if len(entryFiles) == 0 {
		return "", false
	}
	for _, entryFile := range entryFiles {
		manifest, manifestError := ReadManifest(registry.entryPath(directoryName, entryFile))
		if manifestError == nil && manifest.IsValid() {
			return buildSlug(directoryName, entryFile), true
		}
	}
	registry.logger.Debug("No entry file carries a manifest, using the first one",
		zap.String(directoryFieldConstant, directoryName),
		zap.String(entryFileFieldConstant, entryFiles[0]),
	)
	return buildSlug(directoryName, entryFiles[0]), true
}

func (registry *Registry) resolved(repositoryName string, slug string, strategy string) Resolution {
	registry.logger.Debug("Extension matched repository",
		zap.String(repositoryNameFieldConstant, repositoryName),
		zap.String(slugFieldConstant, slug),
		zap.String(strategyFieldConstant, strategy),
	)
	return Resolution{Slug: slug, Strategy: strategy}
}

// OwnedDirectory returns the directory under the root that a repository clone occupies:
// the name or its -main twin, matched exactly first and then case-insensitively.
// Entry files and manifests are not consulted.
func (registry *Registry) OwnedDirectory(repositoryName string) (string, bool, error) {
	trimmedName := strings.TrimSpace(repositoryName)
	if len(trimmedName) == 0 {
		return "", false, nil
	}
	directoryEntries, readError := os.ReadDir(registry.root)
	if errors.Is(readError, os.ErrNotExist) {
		return "", false, nil
	}
	if readError != nil {
		return "", false, fmt.Errorf(listRootErrorTemplateConstant, registry.root, readError)
	}

	mainName := trimmedName + mainSuffixConstant
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() && (directoryEntry.Name() == trimmedName || directoryEntry.Name() == mainName) {
			return directoryEntry.Name(), true, nil
		}
	}
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() && (strings.EqualFold(directoryEntry.Name(), trimmedName) || strings.EqualFold(directoryEntry.Name(), mainName)) {
			return directoryEntry.Name(), true, nil
		}
	}
	return "", false, nil
}
