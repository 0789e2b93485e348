package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/gitplugins/internal/extensions"
	"github.com/temirov/gitplugins/internal/ui"
)

const (
	extensionCommandUseConstant        = "extension"
	extensionCommandShortConstant      = "Install, update, and toggle extensions"
	extensionInstallUseConstant        = "install <repository-url>"
	extensionInstallShortConstant      = "Clone or synchronize a registered repository and activate its extension"
	extensionUpdateUseConstant         = "update <repository-url>"
	extensionUpdateShortConstant       = "Pull the tracked branch of an installed extension"
	extensionActivateUseConstant       = "activate <slug>"
	extensionActivateShortConstant     = "Activate an installed extension"
	extensionDeactivateUseConstant     = "deactivate <slug>"
	extensionDeactivateShortConstant   = "Deactivate an extension"
	extensionDeleteUseConstant         = "delete <repository-url>"
	extensionDeleteShortConstant       = "Deactivate, remove, and unregister an extension"
	extensionListUseConstant           = "list"
	extensionListShortConstant         = "List extensions installed under the extensions root"
	extensionValidateUseConstant       = "validate <manifest>..."
	extensionValidateShortConstant     = "Check extension manifests against the manifest schema"
	extensionActivatedTemplateConstant = "Activated %s\n"
	extensionDeactivatedTemplate       = "Deactivated %s\n"
	extensionDeletedTemplateConstant   = "Deleted %s\n"
	manifestValidTemplateConstant      = "%s: valid\n"
	manifestIssueTemplateConstant      = "%s: %s\n"
	noExtensionsMessageConstant        = "No extensions installed."
	slugHeaderConstant                 = "Slug"
	nameHeaderConstant                 = "Name"
	versionHeaderConstant              = "Version"
	exactlyOneSlugArgumentConstant     = 1
	slugArgumentIndexConstant          = 0
	minimumManifestArgumentsConstant   = 1
)

// errManifestsInvalid is returned after every invalid manifest has been reported.
var errManifestsInvalid = errors.New("one or more manifests are invalid")

type extensionCommandBuilder struct {
	ServicesProvider  servicesProvider
	ValidatorProvider func() (*extensions.ManifestValidator, error)
}

func (builder extensionCommandBuilder) Build() *cobra.Command {
	command := &cobra.Command{
		Use:   extensionCommandUseConstant,
		Short: extensionCommandShortConstant,
	}
	command.AddCommand(
		builder.installCommand(),
		builder.updateCommand(),
		builder.activateCommand(),
		builder.deactivateCommand(),
		builder.deleteCommand(),
		builder.listCommand(),
		builder.validateCommand(),
	)
	return command
}

func (builder extensionCommandBuilder) installCommand() *cobra.Command {
	return &cobra.Command{
		Use:   extensionInstallUseConstant,
		Short: extensionInstallShortConstant,
		Args:  cobra.ExactArgs(exactlyOneRepositoryArgumentConstant),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			result, installError := opened.lifecycle.Install(command.Context(), arguments[repositoryURLArgumentIndexConstant])
			if installError != nil {
				return installError
			}
			printInstallResult(command, result)
			return nil
		},
	}
}

func (builder extensionCommandBuilder) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   extensionUpdateUseConstant,
		Short: extensionUpdateShortConstant,
		Args:  cobra.ExactArgs(exactlyOneRepositoryArgumentConstant),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			result, updateError := opened.lifecycle.Update(command.Context(), arguments[repositoryURLArgumentIndexConstant])
			if updateError != nil {
				return updateError
			}
			printInstallResult(command, result)
			return nil
		},
	}
}

func (builder extensionCommandBuilder) activateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   extensionActivateUseConstant,
		Short: extensionActivateShortConstant,
		Args:  cobra.ExactArgs(exactlyOneSlugArgumentConstant),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			slug := arguments[slugArgumentIndexConstant]
			if activateError := opened.lifecycle.Activate(command.Context(), slug); activateError != nil {
				return activateError
			}
			fmt.Fprintf(command.OutOrStdout(), extensionActivatedTemplateConstant, slug)
			return nil
		},
	}
}

func (builder extensionCommandBuilder) deactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   extensionDeactivateUseConstant,
		Short: extensionDeactivateShortConstant,
		Args:  cobra.ExactArgs(exactlyOneSlugArgumentConstant),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			slug := arguments[slugArgumentIndexConstant]
			if deactivateError := opened.lifecycle.Deactivate(command.Context(), slug); deactivateError != nil {
				return deactivateError
			}
			fmt.Fprintf(command.OutOrStdout(), extensionDeactivatedTemplate, slug)
			return nil
		},
	}
}

func (builder extensionCommandBuilder) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   extensionDeleteUseConstant,
		Short: extensionDeleteShortConstant,
		Args:  cobra.ExactArgs(exactlyOneRepositoryArgumentConstant),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			repositoryURL := arguments[repositoryURLArgumentIndexConstant]
			if deleteError := opened.lifecycle.Delete(command.Context(), repositoryURL); deleteError != nil {
				return deleteError
			}
			fmt.Fprintf(command.OutOrStdout(), extensionDeletedTemplateConstant, repositoryURL)
			return nil
		},
	}
}

func (builder extensionCommandBuilder) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   extensionListUseConstant,
		Short: extensionListShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			installed, installedError := opened.registry.Installed()
			if installedError != nil {
				return installedError
			}
			if len(installed) == 0 {
				fmt.Fprintln(command.OutOrStdout(), noExtensionsMessageConstant)
				return nil
			}
			activeSlugs, activeError := opened.registry.ActiveSlugs(command.Context())
			if activeError != nil {
				return activeError
			}
			active := make(map[string]struct{}, len(activeSlugs))
			for _, slug := range activeSlugs {
				active[slug] = struct{}{}
			}

			slugs := extensions.InstalledSlugs(installed)
			rows := make([][]string, 0, len(slugs))
			for _, slug := range slugs {
				_, isActive := active[slug]
				manifest := installed[slug]
				rows = append(rows, []string{slug, manifest.Name, manifest.Version, ui.YesNo(isActive)})
			}
			fmt.Fprintln(command.OutOrStdout(), ui.RenderTable(
				[]string{slugHeaderConstant, nameHeaderConstant, versionHeaderConstant, activeHeaderConstant},
				rows,
			))
			return nil
		},
	}
}

func (builder extensionCommandBuilder) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   extensionValidateUseConstant,
		Short: extensionValidateShortConstant,
		Args:  cobra.MinimumNArgs(minimumManifestArgumentsConstant),
		RunE: func(command *cobra.Command, arguments []string) error {
			validator, validatorError := builder.ValidatorProvider()
			if validatorError != nil {
				return validatorError
			}
			invalid := false
			for _, manifestPath := range arguments {
				issues, validationError := validator.ValidateFile(manifestPath)
				if validationError != nil {
					return validationError
				}
				if len(issues) == 0 {
					fmt.Fprintf(command.OutOrStdout(), manifestValidTemplateConstant, manifestPath)
					continue
				}
				invalid = true
				for _, issue := range issues {
					fmt.Fprintf(command.OutOrStdout(), manifestIssueTemplateConstant, manifestPath, issue)
				}
			}
			if invalid {
				return errManifestsInvalid
			}
			return nil
		},
	}
}
