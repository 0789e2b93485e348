package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/gitplugins/internal/plugins"
	"github.com/temirov/gitplugins/internal/ui"
)

const (
	repositoryCommandUseConstant          = "repo"
	repositoryCommandShortConstant        = "Manage registered GitHub repositories"
	repositoryAddUseConstant              = "add <repository-url>"
	repositoryAddShortConstant            = "Register a repository and install its extension"
	repositoryListUseConstant             = "list"
	repositoryListShortConstant           = "List registered repositories with extension and clone status"
	repositoryRemoveUseConstant           = "remove <repository-url>"
	repositoryRemoveShortConstant         = "Unregister a repository"
	repositoryBranchesUseConstant         = "branches <repository-url>"
	repositoryBranchesShortConstant       = "List the remote branches of a repository"
	repositorySwitchUseConstant           = "switch-branch <repository-url> <branch>"
	repositorySwitchShortConstant         = "Move an installed extension to another branch"
	branchFlagNameConstant                = "branch"
	branchFlagUsageConstant               = "Branch to track (defaults to main)."
	privateFlagNameConstant               = "private"
	privateFlagUsageConstant              = "Use the configured GitHub token for clones and API calls."
	deleteFilesFlagNameConstant           = "delete-files"
	deleteFilesFlagUsageConstant          = "Also deactivate the extension and remove its directory."
	recloneFlagNameConstant               = "reclone"
	recloneFlagUsageConstant              = "Remove the clone and clone the branch again instead of checking it out."
	installResultTemplateConstant         = "Installed %s (%s) version %s%s\n"
	activatedSuffixConstant               = ", activated"
	repositoryRemovedTemplateConstant     = "Removed %s\n"
	branchChangedTemplateConstant         = "%s now tracks %s\n"
	noRepositoriesMessageConstant         = "No repositories registered."
	repositoryHeaderConstant              = "Repository"
	branchHeaderConstant                  = "Branch"
	extensionHeaderConstant               = "Extension"
	installedHeaderConstant               = "Installed"
	latestHeaderConstant                  = "Latest"
	activeHeaderConstant                  = "Active"
	updateHeaderConstant                  = "Update"
	commitHeaderConstant                  = "Commit"
	detachedCommitTemplateConstant        = "%s (detached)"
	repositoryFullNameTemplateConstant    = "%s/%s"
	privateRepositoryMarkerConstant       = " [private]"
	branchesListItemTemplateConstant      = "%s\n"
	emptyBranchListMessageConstant        = "No branches found."
	exactlyOneRepositoryArgumentConstant  = 1
	repositoryAndBranchArgumentsConstant  = 2
	repositoryURLArgumentIndexConstant    = 0
	switchBranchNameArgumentIndexConstant = 1
)

type repositoryCommandBuilder struct {
	ServicesProvider servicesProvider
}

func (builder repositoryCommandBuilder) Build() *cobra.Command {
	command := &cobra.Command{
		Use:   repositoryCommandUseConstant,
		Short: repositoryCommandShortConstant,
	}
	command.AddCommand(
		builder.addCommand(),
		builder.listCommand(),
		builder.removeCommand(),
		builder.branchesCommand(),
		builder.switchBranchCommand(),
	)
	return command
}

func (builder repositoryCommandBuilder) addCommand() *cobra.Command {
	var branchName string
	var isPrivate bool
	command := &cobra.Command{
		Use:   repositoryAddUseConstant,
		Short: repositoryAddShortConstant,
		Args:  cobra.ExactArgs(exactlyOneRepositoryArgumentConstant),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			result, addError := opened.lifecycle.AddRepository(command.Context(), arguments[repositoryURLArgumentIndexConstant], branchName, isPrivate)
			if addError != nil {
				return addError
			}
			printInstallResult(command, result)
			return nil
		},
	}
	command.Flags().StringVar(&branchName, branchFlagNameConstant, "", branchFlagUsageConstant)
	command.Flags().BoolVar(&isPrivate, privateFlagNameConstant, false, privateFlagUsageConstant)
	return command
}

func (builder repositoryCommandBuilder) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   repositoryListUseConstant,
		Short: repositoryListShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			statuses, statusError := opened.lifecycle.Statuses(command.Context())
			if statusError != nil {
				return statusError
			}
			if len(statuses) == 0 {
				fmt.Fprintln(command.OutOrStdout(), noRepositoriesMessageConstant)
				return nil
			}

			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				repositoryLabel := fmt.Sprintf(repositoryFullNameTemplateConstant, status.Owner, status.Name)
				if status.IsPrivate {
					repositoryLabel += privateRepositoryMarkerConstant
				}
				rows = append(rows, []string{
					repositoryLabel,
					status.Branch,
					status.ExtensionName,
					status.InstalledVersion,
					status.LatestVersion,
					ui.YesNo(status.Active),
					ui.YesNo(status.UpdateAvailable),
					commitLabel(status),
				})
			}
			fmt.Fprintln(command.OutOrStdout(), ui.RenderTable(
				[]string{repositoryHeaderConstant, branchHeaderConstant, extensionHeaderConstant, installedHeaderConstant, latestHeaderConstant, activeHeaderConstant, updateHeaderConstant, commitHeaderConstant},
				rows,
			))
			return nil
		},
	}
}

func (builder repositoryCommandBuilder) removeCommand() *cobra.Command {
	var deleteFiles bool
	command := &cobra.Command{
		Use:   repositoryRemoveUseConstant,
		Short: repositoryRemoveShortConstant,
		Args:  cobra.ExactArgs(exactlyOneRepositoryArgumentConstant),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			repositoryURL := arguments[repositoryURLArgumentIndexConstant]
			var removeError error
			if deleteFiles {
				removeError = opened.lifecycle.Delete(command.Context(), repositoryURL)
			} else {
				removeError = opened.lifecycle.RemoveRepository(command.Context(), repositoryURL)
			}
			if removeError != nil {
				return removeError
			}
			fmt.Fprintf(command.OutOrStdout(), repositoryRemovedTemplateConstant, repositoryURL)
			return nil
		},
	}
	command.Flags().BoolVar(&deleteFiles, deleteFilesFlagNameConstant, false, deleteFilesFlagUsageConstant)
	return command
}

func (builder repositoryCommandBuilder) branchesCommand() *cobra.Command {
	var isPrivate bool
	command := &cobra.Command{
		Use:   repositoryBranchesUseConstant,
		Short: repositoryBranchesShortConstant,
		Args:  cobra.ExactArgs(exactlyOneRepositoryArgumentConstant),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			branches, branchesError := opened.lifecycle.Branches(command.Context(), arguments[repositoryURLArgumentIndexConstant], isPrivate)
			if branchesError != nil {
				return branchesError
			}
			if len(branches) == 0 {
				fmt.Fprintln(command.OutOrStdout(), emptyBranchListMessageConstant)
				return nil
			}
			for _, branch := range branches {
				fmt.Fprintf(command.OutOrStdout(), branchesListItemTemplateConstant, branch)
			}
			return nil
		},
	}
	command.Flags().BoolVar(&isPrivate, privateFlagNameConstant, false, privateFlagUsageConstant)
	return command
}

func (builder repositoryCommandBuilder) switchBranchCommand() *cobra.Command {
	var reclone bool
	command := &cobra.Command{
		Use:   repositorySwitchUseConstant,
		Short: repositorySwitchShortConstant,
		Args:  cobra.ExactArgs(repositoryAndBranchArgumentsConstant),
		RunE: func(command *cobra.Command, arguments []string) error {
			repositoryURL := strings.TrimSpace(arguments[repositoryURLArgumentIndexConstant])
			branchName := strings.TrimSpace(arguments[switchBranchNameArgumentIndexConstant])
			if len(repositoryURL) == 0 || len(branchName) == 0 {
				return plugins.ErrBranchRequired
			}
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			if changeError := opened.lifecycle.ChangeBranch(command.Context(), repositoryURL, branchName, reclone); changeError != nil {
				return changeError
			}
			fmt.Fprintf(command.OutOrStdout(), branchChangedTemplateConstant, repositoryURL, branchName)
			return nil
		},
	}
	command.Flags().BoolVar(&reclone, recloneFlagNameConstant, false, recloneFlagUsageConstant)
	return command
}

func printInstallResult(command *cobra.Command, result plugins.InstallResult) {
	suffix := ""
	if result.Activated {
		suffix = activatedSuffixConstant
	}
	fmt.Fprintf(command.OutOrStdout(), installResultTemplateConstant, result.RepositoryURL, result.Slug, result.Version, suffix)
}

func commitLabel(status plugins.RepositoryStatus) string {
	if !status.Clone.IsRepository {
		return ""
	}
	if status.Clone.Detached {
		return fmt.Sprintf(detachedCommitTemplateConstant, status.Clone.ShortCommit)
	}
	return status.Clone.ShortCommit
}
