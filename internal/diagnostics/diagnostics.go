// Package diagnostics gathers the system information shown on the debug page
// and by the doctor command.
package diagnostics

import (
	"context"
	"runtime"

	"github.com/temirov/gitplugins/internal/extensions"
)

const gitNotAvailableConstant = "Not available"

// GitProbe reports on the git binary.
type GitProbe interface {
	Available() error
	Version(executionContext context.Context) (string, error)
}

// ExtensionInventory lists installed and active extensions.
type ExtensionInventory interface {
	Root() string
	Installed() (map[string]extensions.Manifest, error)
	ActiveSlugs(executionContext context.Context) ([]string, error)
}

// Report is a point-in-time view of the host.
type Report struct {
	ApplicationVersion  string   `json:"application_version"`
	GoVersion           string   `json:"go_version"`
	OperatingSystem     string   `json:"os"`
	Architecture        string   `json:"arch"`
	GitAvailable        bool     `json:"git_available"`
	GitVersion          string   `json:"git_version"`
	DatabaseDialect     string   `json:"database_dialect"`
	ExtensionsRoot      string   `json:"extensions_root"`
	InstalledExtensions int      `json:"installed_extensions"`
	ActiveExtensions    int      `json:"active_extensions"`
	Problems            []string `json:"problems,omitempty"`
}

// Collector assembles reports.
type Collector struct {
	ApplicationVersion string
	DatabaseDialect    string
	Git                GitProbe
	Extensions         ExtensionInventory
}

// Collect builds a report. Failing probes are recorded as problems rather than returned.
func (collector Collector) Collect(executionContext context.Context) Report {
	report := Report{
		ApplicationVersion: collector.ApplicationVersion,
		GoVersion:          runtime.Version(),
		OperatingSystem:    runtime.GOOS,
		Architecture:       runtime.GOARCH,
		GitVersion:         gitNotAvailableConstant,
		DatabaseDialect:    collector.DatabaseDialect,
		Problems:           []string{},
	}

	if collector.Git != nil {
		if availabilityError := collector.Git.Available(); availabilityError != nil {
			report.Problems = append(report.Problems, availabilityError.Error())
		} else if version, versionError := collector.Git.Version(executionContext); versionError != nil {
			report.Problems = append(report.Problems, versionError.Error())
		} else {
			report.GitAvailable = true
			report.GitVersion = version
		}
	}

	if collector.Extensions != nil {
		report.ExtensionsRoot = collector.Extensions.Root()
		if installed, installedError := collector.Extensions.Installed(); installedError != nil {
			report.Problems = append(report.Problems, installedError.Error())
		} else {
			report.InstalledExtensions = len(installed)
		}
		if active, activeError := collector.Extensions.ActiveSlugs(executionContext); activeError != nil {
			report.Problems = append(report.Problems, activeError.Error())
		} else {
			report.ActiveExtensions = len(active)
		}
	}
	return report
}
