package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/temirov/gitplugins/internal/ui"
	"github.com/temirov/gitplugins/internal/utils"
)

const (
	doctorCommandUseConstant       = "doctor"
	doctorCommandShortConstant     = "Report git, database, and extension diagnostics"
	doctorProblemTemplateConstant  = "problem: %s\n"
	checkHeaderConstant            = "Check"
	applicationVersionLabel        = "Application version"
	goVersionLabelConstant         = "Go version"
	platformLabelConstant          = "Platform"
	platformTemplateConstant       = "%s/%s"
	gitAvailableLabelConstant      = "Git available"
	gitVersionLabelConstant        = "Git version"
	databaseDialectLabelConstant   = "Database"
	extensionsRootLabelConstant    = "Extensions root"
	installedCountLabelConstant    = "Installed extensions"
	activeCountLabelConstant       = "Active extensions"
	githubTokenStatusLabelConstant = "GitHub token"
	configurationLabelConstant     = "Configuration"
	embeddedDefaultsLabelConstant  = "embedded defaults"
)

// errDoctorProblems signals a non-zero exit after problems were printed.
var errDoctorProblems = errors.New("diagnostics reported problems")

type doctorCommandBuilder struct {
	ServicesProvider servicesProvider
	ContextAccessor  utils.CommandContextAccessor
}

func (builder doctorCommandBuilder) Build() *cobra.Command {
	return &cobra.Command{
		Use:   doctorCommandUseConstant,
		Short: doctorCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			report := opened.diagnostics.Collect(command.Context())

			tokenStatus := tokenMissingLabelConstant
			token, tokenError := opened.tokens.Token(command.Context())
			switch {
			case tokenError != nil:
				report.Problems = append(report.Problems, tokenError.Error())
			case len(token) > 0:
				tokenStatus = tokenConfiguredLabelConstant
			}

			configurationSource := embeddedDefaultsLabelConstant
			if configurationFilePath, recorded := builder.ContextAccessor.ConfigurationFilePath(command.Context()); recorded {
				configurationSource = configurationFilePath
			}

			fmt.Fprintln(command.OutOrStdout(), ui.RenderTable(
				[]string{checkHeaderConstant, valueHeaderConstant},
				[][]string{
					{applicationVersionLabel, report.ApplicationVersion},
					{configurationLabelConstant, configurationSource},
					{goVersionLabelConstant, report.GoVersion},
					{platformLabelConstant, fmt.Sprintf(platformTemplateConstant, report.OperatingSystem, report.Architecture)},
					{gitAvailableLabelConstant, ui.YesNo(report.GitAvailable)},
					{gitVersionLabelConstant, report.GitVersion},
					{databaseDialectLabelConstant, report.DatabaseDialect},
					{extensionsRootLabelConstant, report.ExtensionsRoot},
					{installedCountLabelConstant, strconv.Itoa(report.InstalledExtensions)},
					{activeCountLabelConstant, strconv.Itoa(report.ActiveExtensions)},
					{githubTokenStatusLabelConstant, tokenStatus},
				},
			))
			for _, problem := range report.Problems {
				fmt.Fprintf(command.OutOrStdout(), doctorProblemTemplateConstant, problem)
			}
			if len(report.Problems) > 0 {
				return errDoctorProblems
			}
			return nil
		},
	}
}
