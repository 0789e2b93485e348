package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/gitplugins/internal/ui"
)

const (
	updatesCommandUseConstant      = "updates"
	updatesCommandShortConstant    = "Query GitHub releases for newer extension versions"
	updatesCheckUseConstant        = "check"
	updatesCheckShortConstant      = "Record the latest release of every repository and list available updates"
	noUpdatesMessageConstant       = "All extensions are up to date."
	currentVersionHeaderConstant   = "Current"
	availableVersionHeaderConstant = "Available"
)

type updatesCommandBuilder struct {
	ServicesProvider servicesProvider
}

func (builder updatesCommandBuilder) Build() *cobra.Command {
	command := &cobra.Command{
		Use:   updatesCommandUseConstant,
		Short: updatesCommandShortConstant,
	}
	command.AddCommand(&cobra.Command{
		Use:   updatesCheckUseConstant,
		Short: updatesCheckShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			updates, checkError := opened.lifecycle.CheckForUpdates(command.Context())
			if checkError != nil {
				return checkError
			}
			if len(updates) == 0 {
				fmt.Fprintln(command.OutOrStdout(), noUpdatesMessageConstant)
				return nil
			}
			rows := make([][]string, 0, len(updates))
			for _, update := range updates {
				rows = append(rows, []string{update.Name, update.CurrentVersion, update.NewVersion, update.URL})
			}
			fmt.Fprintln(command.OutOrStdout(), ui.RenderTable(
				[]string{nameHeaderConstant, currentVersionHeaderConstant, availableVersionHeaderConstant, repositoryHeaderConstant},
				rows,
			))
			return nil
		},
	})
	return command
}
