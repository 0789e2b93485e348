package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/gitplugins/internal/settings"
	"github.com/temirov/gitplugins/internal/ui"
	"github.com/temirov/gitplugins/internal/utils/flags"
)

const (
	settingsCommandUseConstant      = "settings"
	settingsCommandShortConstant    = "Show or change administrator settings"
	settingsShowUseConstant         = "show"
	settingsShowShortConstant       = "Print the stored settings"
	settingsSetUseConstant          = "set"
	settingsSetShortConstant        = "Change stored settings; omitted flags keep their values"
	githubUsernameFlagNameConstant  = "github-username"
	githubUsernameFlagUsageConstant = "GitHub username shown to administrators."
	githubTokenFlagNameConstant     = "github-token"
	githubTokenFlagUsageConstant    = "GitHub token for private repositories; pass an empty value to clear it."
	intervalFlagNameConstant        = "check-updates-interval"
	settingHeaderConstant           = "Setting"
	valueHeaderConstant             = "Value"
	githubUsernameLabelConstant     = "GitHub username"
	githubTokenLabelConstant        = "GitHub token"
	intervalLabelConstant           = "Update check interval"
	tokenConfiguredLabelConstant    = "configured"
	tokenMissingLabelConstant       = "not set"
	settingsSavedOutputConstant     = "Settings saved."
	intervalFlagUsageConstant       = "Update check cadence; unknown values fall back to the default."
)

type settingsCommandBuilder struct {
	ServicesProvider servicesProvider
}

func (builder settingsCommandBuilder) Build() *cobra.Command {
	command := &cobra.Command{
		Use:   settingsCommandUseConstant,
		Short: settingsCommandShortConstant,
	}
	command.AddCommand(builder.showCommand(), builder.setCommand())
	return command
}

func (builder settingsCommandBuilder) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   settingsShowUseConstant,
		Short: settingsShowShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			values, loadError := opened.settings.Load(command.Context())
			if loadError != nil {
				return loadError
			}
			printSettings(command, values)
			return nil
		},
	}
}

func (builder settingsCommandBuilder) setCommand() *cobra.Command {
	var username, token, interval string
	command := &cobra.Command{
		Use:   settingsSetUseConstant,
		Short: settingsSetShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			values, loadError := opened.settings.Load(command.Context())
			if loadError != nil {
				return loadError
			}
			if command.Flags().Changed(githubUsernameFlagNameConstant) {
				values.GitHubUsername = username
			}
			if command.Flags().Changed(githubTokenFlagNameConstant) {
				values.GitHubToken = token
			}
			if command.Flags().Changed(intervalFlagNameConstant) {
				values.CheckUpdatesInterval = settings.UpdateInterval(interval)
			}
			saved, saveError := opened.settings.Save(command.Context(), values)
			if saveError != nil {
				return saveError
			}
			fmt.Fprintln(command.OutOrStdout(), settingsSavedOutputConstant)
			printSettings(command, saved)
			return nil
		},
	}
	command.Flags().StringVar(&username, githubUsernameFlagNameConstant, "", githubUsernameFlagUsageConstant)
	command.Flags().StringVar(&token, githubTokenFlagNameConstant, "", githubTokenFlagUsageConstant)
	command.Flags().StringVar(&interval, intervalFlagNameConstant, "", flags.FormatChoiceUsage(settings.DefaultUpdateInterval, settings.Intervals(), intervalFlagUsageConstant))
	return command
}

func printSettings(command *cobra.Command, values settings.Values) {
	tokenLabel := tokenMissingLabelConstant
	if len(values.GitHubToken) > 0 {
		tokenLabel = tokenConfiguredLabelConstant
	}
	fmt.Fprintln(command.OutOrStdout(), ui.RenderTable(
		[]string{settingHeaderConstant, valueHeaderConstant},
		[][]string{
			{githubUsernameLabelConstant, values.GitHubUsername},
			{githubTokenLabelConstant, tokenLabel},
			{intervalLabelConstant, string(values.CheckUpdatesInterval)},
		},
	))
}
