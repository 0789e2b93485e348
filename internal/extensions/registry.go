package extensions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/store"
)

const (
	// ActiveExtensionsSettingKey stores the sorted list of active slugs.
	ActiveExtensionsSettingKey = "active_extensions"
	// DefaultEntryPattern matches manifest-bearing entry files.
	DefaultEntryPattern = "*.yaml"

	slugSeparatorConstant                = "/"
	rootRequiredMessageConstant          = "extensions root must be provided"
	activationStoreMissingMessage        = "activation store not configured"
	extensionNotFoundMessageConstant     = "Plugin file does not exist."
	invalidSlugMessageConstant           = "Plugin slug is required."
	entryPatternErrorTemplateConstant    = "compile entry pattern %q: %w"
	listRootErrorTemplateConstant        = "list extensions root %s: %w"
	removeDirectoryErrorTemplateConstant = "remove extension directory %s: %w"
	createRootErrorTemplateConstant      = "create extensions root %s: %w"
	unsafeDirectoryTemplateConstant      = "%w: %s"
	slugFieldConstant                    = "slug"
	directoryFieldConstant               = "directory"
	entryFileFieldConstant               = "entry_file"
)

// ErrRootRequired indicates an empty extensions root.
var ErrRootRequired = errors.New(rootRequiredMessageConstant)

// ErrActivationStoreNotConfigured indicates a nil activation store.
var ErrActivationStoreNotConfigured = errors.New(activationStoreMissingMessage)

// ErrExtensionNotFound indicates the entry file named by a slug does not exist.
var ErrExtensionNotFound = errors.New(extensionNotFoundMessageConstant)

// ErrInvalidSlug indicates an empty slug or one escaping the extensions root.
var ErrInvalidSlug = errors.New(invalidSlugMessageConstant)

// ActivationStore persists the active extension set.
type ActivationStore interface {
	GetSetting(executionContext context.Context, key string, target any) error
	SetSetting(executionContext context.Context, key string, value any) error
}

// Config locates extensions on disk.
type Config struct {
	Root         string `mapstructure:"root"`
	EntryPattern string `mapstructure:"entry_pattern"`
}

// Registry reads installed extensions and their activation state.
type Registry struct {
	root         string
	entryPattern glob.Glob
	activation   ActivationStore
	logger       *zap.Logger
}

// NewRegistry validates configuration and constructs a Registry.
func NewRegistry(configuration Config, activation ActivationStore, logger *zap.Logger) (*Registry, error) {
	root := strings.TrimSpace(configuration.Root)
	if len(root) == 0 {
		return nil, ErrRootRequired
	}
	if activation == nil {
		return nil, ErrActivationStoreNotConfigured
	}
	patternText := strings.TrimSpace(configuration.EntryPattern)
	if len(patternText) == 0 {
		patternText = DefaultEntryPattern
	}
	entryPattern, compileError := glob.Compile(patternText)
	if compileError != nil {
		return nil, fmt.Errorf(entryPatternErrorTemplateConstant, patternText, compileError)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{root: filepath.Clean(root), entryPattern: entryPattern, activation: activation, logger: logger}, nil
}

// Root returns the extensions root directory.
func (registry *Registry) Root() string {
	return registry.root
}

// DirectoryPath returns the absolute location of an extension directory.
func (registry *Registry) DirectoryPath(directoryName string) string {
	return filepath.Join(registry.root, directoryName)
}

// EnsureRoot creates the extensions root when it is missing.
func (registry *Registry) EnsureRoot() error {
	if mkdirError := os.MkdirAll(registry.root, 0o755); mkdirError != nil {
		return fmt.Errorf(createRootErrorTemplateConstant, registry.root, mkdirError)
	}
	return nil
}

// Installed returns the manifest of every valid entry file, keyed by slug.
func (registry *Registry) Installed() (map[string]Manifest, error) {
	installed := map[string]Manifest{}
	directoryEntries, readError := os.ReadDir(registry.root)
	if errors.Is(readError, os.ErrNotExist) {
		return installed, nil
	}
	if readError != nil {
		return nil, fmt.Errorf(listRootErrorTemplateConstant, registry.root, readError)
	}

	for _, directoryEntry := range directoryEntries {
		if !directoryEntry.IsDir() {
			continue
		}
		for _, entryFile := range registry.entryFiles(directoryEntry.Name()) {
			manifest, manifestError := ReadManifest(registry.entryPath(directoryEntry.Name(), entryFile))
			if manifestError != nil || !manifest.IsValid() {
				continue
			}
			installed[buildSlug(directoryEntry.Name(), entryFile)] = manifest
		}
	}
	return installed, nil
}

// InstalledSlugs returns the installed slugs in lexical order.
func InstalledSlugs(installed map[string]Manifest) []string {
	slugs := make([]string, 0, len(installed))
	for slug := range installed {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Manifest reads the manifest behind slug.
func (registry *Registry) Manifest(slug string) (Manifest, error) {
	entryPath, pathError := registry.slugPath(slug)
	if pathError != nil {
		return Manifest{}, pathError
	}
	if _, statError := os.Stat(entryPath); statError != nil {
		return Manifest{}, ErrExtensionNotFound
	}
	return ReadManifest(entryPath)
}

// Exists reports whether the entry file behind slug is present.
func (registry *Registry) Exists(slug string) bool {
	entryPath, pathError := registry.slugPath(slug)
	if pathError != nil {
		return false
	}
	info, statError := os.Stat(entryPath)
	return statError == nil && info.Mode().IsRegular()
}

// Activate marks slug active after confirming its manifest is usable.
func (registry *Registry) Activate(executionContext context.Context, slug string) error {
	manifest, manifestError := registry.Manifest(slug)
	if manifestError != nil {
		return manifestError
	}
	if !manifest.IsValid() {
		return ErrInvalidManifest
	}

	active, loadError := registry.activeSet(executionContext)
	if loadError != nil {
		return loadError
	}
	active[normalizeSlug(slug)] = struct{}{}
	if saveError := registry.saveActiveSet(executionContext, active); saveError != nil {
		return saveError
	}
	registry.logger.Info("Extension activated", zap.String(slugFieldConstant, slug))
	return nil
}

// Deactivate removes slug from the active set. Inactive slugs are ignored.
func (registry *Registry) Deactivate(executionContext context.Context, slug string) error {
	normalizedSlug := normalizeSlug(slug)
	if len(normalizedSlug) == 0 {
		return ErrInvalidSlug
	}
	active, loadError := registry.activeSet(executionContext)
	if loadError != nil {
		return loadError
	}
	if _, isActive := active[normalizedSlug]; !isActive {
		return nil
	}
	delete(active, normalizedSlug)
	if saveError := registry.saveActiveSet(executionContext, active); saveError != nil {
		return saveError
	}
	registry.logger.Info("Extension deactivated", zap.String(slugFieldConstant, slug))
	return nil
}

// IsActive reports whether slug is in the active set.
func (registry *Registry) IsActive(executionContext context.Context, slug string) (bool, error) {
	active, loadError := registry.activeSet(executionContext)
	if loadError != nil {
		return false, loadError
	}
	_, isActive := active[normalizeSlug(slug)]
	return isActive, nil
}

// ActiveSlugs returns the active slugs in lexical order.
func (registry *Registry) ActiveSlugs(executionContext context.Context) ([]string, error) {
	active, loadError := registry.activeSet(executionContext)
	if loadError != nil {
		return nil, loadError
	}
	return sortedSlugs(active), nil
}

// RemoveDirectory recursively deletes an extension directory directly under the root.
func (registry *Registry) RemoveDirectory(directoryName string) error {
	trimmedName := strings.TrimSpace(directoryName)
	if len(trimmedName) == 0 || trimmedName != filepath.Base(trimmedName) || trimmedName == "." || trimmedName == ".." {
		return fmt.Errorf(unsafeDirectoryTemplateConstant, ErrInvalidSlug, directoryName)
	}
	directoryPath := registry.DirectoryPath(trimmedName)
	if removeError := os.RemoveAll(directoryPath); removeError != nil {
		return fmt.Errorf(removeDirectoryErrorTemplateConstant, directoryPath, removeError)
	}
	registry.logger.Info("Extension directory removed", zap.String(directoryFieldConstant, directoryPath))
	return nil
}

// SlugDirectory returns the directory component of slug.
func SlugDirectory(slug string) string {
	normalizedSlug := normalizeSlug(slug)
	directory := path.Dir(normalizedSlug)
	if directory == "." {
		return normalizedSlug
	}
	return directory
}

// entryFiles lists top-level files of directoryName matching the entry pattern, in lexical order.
func (registry *Registry) entryFiles(directoryName string) []string {
	directoryEntries, readError := os.ReadDir(registry.DirectoryPath(directoryName))
	if readError != nil {
		return nil
	}
	entryFiles := []string{}
	for _, directoryEntry := range directoryEntries {
		if !directoryEntry.Type().IsRegular() {
			continue
		}
		if registry.entryPattern.Match(directoryEntry.Name()) {
			entryFiles = append(entryFiles, directoryEntry.Name())
		}
	}
	return entryFiles
}

func (registry *Registry) entryPath(directoryName string, entryFile string) string {
	return filepath.Join(registry.root, directoryName, entryFile)
}

func (registry *Registry) slugPath(slug string) (string, error) {
	normalizedSlug := normalizeSlug(slug)
	if len(normalizedSlug) == 0 {
		return "", ErrInvalidSlug
	}
	cleaned := path.Clean(normalizedSlug)
	if strings.HasPrefix(cleaned, "..") || path.IsAbs(cleaned) {
		return "", ErrInvalidSlug
	}
	return filepath.Join(registry.root, filepath.FromSlash(cleaned)), nil
}

func (registry *Registry) activeSet(executionContext context.Context) (map[string]struct{}, error) {
	var storedSlugs []string
	readError := registry.activation.GetSetting(executionContext, ActiveExtensionsSettingKey, &storedSlugs)
	if readError != nil && !errors.Is(readError, store.ErrSettingNotFound) {
		return nil, readError
	}
	active := make(map[string]struct{}, len(storedSlugs))
	for _, storedSlug := range storedSlugs {
		if normalizedSlug := normalizeSlug(storedSlug); len(normalizedSlug) > 0 {
			active[normalizedSlug] = struct{}{}
		}
	}
	return active, nil
}

func (registry *Registry) saveActiveSet(executionContext context.Context, active map[string]struct{}) error {
	return registry.activation.SetSetting(executionContext, ActiveExtensionsSettingKey, sortedSlugs(active))
}

func sortedSlugs(active map[string]struct{}) []string {
	slugs := make([]string, 0, len(active))
	for slug := range active {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

func buildSlug(directoryName string, entryFile string) string {
	return directoryName + slugSeparatorConstant + entryFile
}

func normalizeSlug(slug string) string {
	return strings.Trim(filepath.ToSlash(strings.TrimSpace(slug)), slugSeparatorConstant)
}
