package cli

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/gitplugins/internal/adminapi"
	"github.com/temirov/gitplugins/internal/scheduler"
)

const (
	serveCommandUseConstant      = "serve"
	serveCommandShortConstant    = "Serve the admin API and run scheduled update checks"
	listenFlagNameConstant       = "listen"
	listenFlagUsageConstant      = "Override the configured listen address."
	noSchedulerFlagNameConstant  = "no-scheduler"
	noSchedulerFlagUsageConstant = "Disable background update checks."
)

type serveCommandBuilder struct {
	ServicesProvider      servicesProvider
	ConfigurationProvider func() adminapi.Config
}

func (builder serveCommandBuilder) Build() *cobra.Command {
	var listenAddress string
	var disableScheduler bool
	command := &cobra.Command{
		Use:   serveCommandUseConstant,
		Short: serveCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			serverConfiguration := builder.ConfigurationProvider()
			if trimmedAddress := strings.TrimSpace(listenAddress); len(trimmedAddress) > 0 {
				serverConfiguration.ListenAddress = trimmedAddress
			}

			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}

			server, serverError := adminapi.NewServer(serverConfiguration, adminapi.Dependencies{
				Lifecycle: opened.lifecycle,
				Settings:  opened.settings,
				DebugLog:  opened.journal,
				System:    opened.diagnostics,
				Logger:    opened.logger,
			})
			if serverError != nil {
				return serverError
			}

			var updateScheduler *scheduler.Scheduler
			if !disableScheduler {
				var schedulerError error
				updateScheduler, schedulerError = scheduler.New(opened.lifecycle, opened.settings, opened.logger)
				if schedulerError != nil {
					return schedulerError
				}
			}

			signalContext, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			group, groupContext := errgroup.WithContext(signalContext)
			group.Go(func() error {
				return server.Run(groupContext)
			})
			if updateScheduler != nil {
				group.Go(func() error {
					return updateScheduler.Run(groupContext)
				})
			}
			return group.Wait()
		},
	}
	command.Flags().StringVar(&listenAddress, listenFlagNameConstant, "", listenFlagUsageConstant)
	command.Flags().BoolVar(&disableScheduler, noSchedulerFlagNameConstant, false, noSchedulerFlagUsageConstant)
	return command
}
