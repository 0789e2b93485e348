package extensions_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/extensions"
	"github.com/temirov/gitplugins/internal/store"
)

const (
	testWidgetManifestConstant = "name: Widget\nversion: 1.4.0\ndescription: Adds widgets\n"
	testGadgetManifestConstant = "name: Gadget Toolkit\n"
)

type memorySettingsStore struct {
	values map[string][]byte
}

func newMemorySettingsStore() *memorySettingsStore {
	return &memorySettingsStore{values: map[string][]byte{}}
}

func (memoryStore *memorySettingsStore) GetSetting(_ context.Context, key string, target any) error {
	encoded, found := memoryStore.values[key]
	if !found {
		return store.ErrSettingNotFound
	}
	return json.Unmarshal(encoded, target)
}

func (memoryStore *memorySettingsStore) SetSetting(_ context.Context, key string, value any) error {
	encoded, encodeError := json.Marshal(value)
	if encodeError != nil {
		return encodeError
	}
	memoryStore.values[key] = encoded
	return nil
}

func writeEntryFile(testInstance *testing.T, root string, directory string, fileName string, contents string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(filepath.Join(root, directory), 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(root, directory, fileName), []byte(contents), 0o644))
}

func newTestRegistry(testInstance *testing.T, root string) (*extensions.Registry, *memorySettingsStore) {
	testInstance.Helper()
	settingsStore := newMemorySettingsStore()
	registry, creationError := extensions.NewRegistry(extensions.Config{Root: root}, settingsStore, zap.NewNop())
	require.NoError(testInstance, creationError)
	return registry, settingsStore
}

func TestNewRegistryValidation(testInstance *testing.T) {
	_, rootError := extensions.NewRegistry(extensions.Config{}, newMemorySettingsStore(), nil)
	require.ErrorIs(testInstance, rootError, extensions.ErrRootRequired)

	_, storeError := extensions.NewRegistry(extensions.Config{Root: testInstance.TempDir()}, nil, nil)
	require.ErrorIs(testInstance, storeError, extensions.ErrActivationStoreNotConfigured)

	_, patternError := extensions.NewRegistry(extensions.Config{Root: testInstance.TempDir(), EntryPattern: "[unterminated"}, newMemorySettingsStore(), nil)
	require.Error(testInstance, patternError)
}

func TestInstalledListsValidEntryFiles(testInstance *testing.T) {
	root := testInstance.TempDir()
	writeEntryFile(testInstance, root, "widget", "widget.yaml", testWidgetManifestConstant)
	writeEntryFile(testInstance, root, "widget", "notes.txt", "not an entry file")
	writeEntryFile(testInstance, root, "gadget", "plugin.yaml", testGadgetManifestConstant)
	writeEntryFile(testInstance, root, "broken", "broken.yaml", "description: no name\n")
	require.NoError(testInstance, os.WriteFile(filepath.Join(root, "stray.yaml"), []byte(testWidgetManifestConstant), 0o644))

	registry, _ := newTestRegistry(testInstance, root)
	installed, installedError := registry.Installed()
	require.NoError(testInstance, installedError)
	require.Equal(testInstance, []string{"gadget/plugin.yaml", "widget/widget.yaml"}, extensions.InstalledSlugs(installed))
	require.Equal(testInstance, "1.4.0", installed["widget/widget.yaml"].Version)
	require.Equal(testInstance, extensions.DefaultManifestVersion, installed["gadget/plugin.yaml"].Version)
}

func TestInstalledWithMissingRootIsEmpty(testInstance *testing.T) {
	registry, _ := newTestRegistry(testInstance, filepath.Join(testInstance.TempDir(), "absent"))
	installed, installedError := registry.Installed()
	require.NoError(testInstance, installedError)
	require.Empty(testInstance, installed)
}

func TestActivationLifecycle(testInstance *testing.T) {
	root := testInstance.TempDir()
	writeEntryFile(testInstance, root, "widget", "widget.yaml", testWidgetManifestConstant)
	writeEntryFile(testInstance, root, "broken", "broken.yaml", "description: no name\n")
	registry, settingsStore := newTestRegistry(testInstance, root)
	executionContext := context.Background()

	require.ErrorIs(testInstance, registry.Activate(executionContext, "missing/missing.yaml"), extensions.ErrExtensionNotFound)
	require.ErrorIs(testInstance, registry.Activate(executionContext, "broken/broken.yaml"), extensions.ErrInvalidManifest)
	require.ErrorIs(testInstance, registry.Activate(executionContext, "../escape.yaml"), extensions.ErrInvalidSlug)

	require.NoError(testInstance, registry.Activate(executionContext, "widget/widget.yaml"))
	active, activeError := registry.IsActive(executionContext, "widget/widget.yaml")
	require.NoError(testInstance, activeError)
	require.True(testInstance, active)
	require.JSONEq(testInstance, `["widget/widget.yaml"]`, string(settingsStore.values[extensions.ActiveExtensionsSettingKey]))

	require.NoError(testInstance, registry.Deactivate(executionContext, "widget/widget.yaml"))
	require.NoError(testInstance, registry.Deactivate(executionContext, "widget/widget.yaml"))
	active, activeError = registry.IsActive(executionContext, "widget/widget.yaml")
	require.NoError(testInstance, activeError)
	require.False(testInstance, active)
}

func TestRemoveDirectoryStaysUnderRoot(testInstance *testing.T) {
	root := testInstance.TempDir()
	writeEntryFile(testInstance, root, "widget", "widget.yaml", testWidgetManifestConstant)
	writeEntryFile(testInstance, root, filepath.Join("widget", "assets"), "logo.svg", "<svg/>")
	registry, _ := newTestRegistry(testInstance, root)

	require.ErrorIs(testInstance, registry.RemoveDirectory("../outside"), extensions.ErrInvalidSlug)
	require.ErrorIs(testInstance, registry.RemoveDirectory(""), extensions.ErrInvalidSlug)
	require.NoError(testInstance, registry.RemoveDirectory("widget"))
	_, statError := os.Stat(filepath.Join(root, "widget"))
	require.ErrorIs(testInstance, statError, os.ErrNotExist)
}

func TestSlugDirectory(testInstance *testing.T) {
	require.Equal(testInstance, "widget", extensions.SlugDirectory("widget/widget.yaml"))
	require.Equal(testInstance, "widget", extensions.SlugDirectory("widget"))
}

func TestManifestValidator(testInstance *testing.T) {
	validator, creationError := extensions.NewManifestValidator()
	require.NoError(testInstance, creationError)

	testCases := []struct {
		name          string
		document      string
		expectIssues  bool
		issueLocation string
	}{
		{name: "valid", document: testWidgetManifestConstant},
		{name: "numeric_version", document: "name: Widget\nversion: 2\n"},
		{name: "missing_name", document: "version: 1.0.0\n", expectIssues: true, issueLocation: "/"},
		{name: "empty_requirement", document: "name: Widget\nrequires: [\"\"]\n", expectIssues: true, issueLocation: "/requires/0"},
		{name: "not_yaml", document: "name: [unterminated\n", expectIssues: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			issues, validationError := validator.Validate([]byte(testCase.document))
			require.NoError(testInstance, validationError)
			if !testCase.expectIssues {
				require.Empty(testInstance, issues)
				return
			}
			require.NotEmpty(testInstance, issues)
			if len(testCase.issueLocation) > 0 {
				require.Contains(testInstance, issues[0], testCase.issueLocation)
			}
		})
	}
}
