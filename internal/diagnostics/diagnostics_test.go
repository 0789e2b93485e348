package diagnostics_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitplugins/internal/diagnostics"
	"github.com/temirov/gitplugins/internal/extensions"
)

type stubGit struct {
	availabilityError error
	version           string
}

func (git stubGit) Available() error { return git.availabilityError }

func (git stubGit) Version(context.Context) (string, error) { return git.version, nil }

type stubInventory struct{}

func (stubInventory) Root() string { return "/srv/extensions" }

func (stubInventory) Installed() (map[string]extensions.Manifest, error) {
	return map[string]extensions.Manifest{"widget/widget.yaml": {Name: "Widget"}, "gadget/plugin.yaml": {Name: "Gadget"}}, nil
}

func (stubInventory) ActiveSlugs(context.Context) ([]string, error) {
	return []string{"widget/widget.yaml"}, nil
}

func TestCollect(testInstance *testing.T) {
	report := diagnostics.Collector{
		ApplicationVersion: "v1.0.0",
		DatabaseDialect:    "sqlite",
		Git:                stubGit{version: "git version 2.43.0"},
		Extensions:         stubInventory{},
	}.Collect(context.Background())

	require.True(testInstance, report.GitAvailable)
	require.Equal(testInstance, "git version 2.43.0", report.GitVersion)
	require.Equal(testInstance, runtime.Version(), report.GoVersion)
	require.Equal(testInstance, "/srv/extensions", report.ExtensionsRoot)
	require.Equal(testInstance, 2, report.InstalledExtensions)
	require.Equal(testInstance, 1, report.ActiveExtensions)
	require.Empty(testInstance, report.Problems)
}

func TestCollectReportsMissingGit(testInstance *testing.T) {
	report := diagnostics.Collector{Git: stubGit{availabilityError: errors.New("Git is not available on this server.")}}.Collect(context.Background())
	require.False(testInstance, report.GitAvailable)
	require.Equal(testInstance, "Not available", report.GitVersion)
	require.Equal(testInstance, []string{"Git is not available on this server."}, report.Problems)
}
