package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/temirov/gitplugins/internal/journal"
	"github.com/temirov/gitplugins/internal/ui"
)

const (
	debugLogCommandUseConstant   = "debug-log"
	debugLogCommandShortConstant = "Inspect the persisted debug log"
	debugLogShowUseConstant      = "show"
	debugLogShowShortConstant    = "Print the newest debug log entries"
	debugLogClearUseConstant     = "clear"
	debugLogClearShortConstant   = "Remove every debug log entry"
	limitFlagNameConstant        = "limit"
	limitFlagUsageConstant       = "Maximum number of entries to print."
	defaultDebugLogLimitConstant = 50
	emptyDebugLogMessageConstant = "Debug log is empty."
	debugLogClearedOutput        = "Debug log cleared."
	timeHeaderConstant           = "Time"
	levelHeaderConstant          = "Level"
	messageHeaderConstant        = "Message"
	dataHeaderConstant           = "Data"
	debugLogTimeLayoutConstant   = time.DateTime
)

type debugLogCommandBuilder struct {
	ServicesProvider servicesProvider
}

func (builder debugLogCommandBuilder) Build() *cobra.Command {
	command := &cobra.Command{
		Use:   debugLogCommandUseConstant,
		Short: debugLogCommandShortConstant,
	}
	command.AddCommand(builder.showCommand(), builder.clearCommand())
	return command
}

func (builder debugLogCommandBuilder) showCommand() *cobra.Command {
	var limit int
	command := &cobra.Command{
		Use:   debugLogShowUseConstant,
		Short: debugLogShowShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			entries, entriesError := opened.journal.Entries(command.Context(), limit)
			if entriesError != nil {
				return entriesError
			}
			if len(entries) == 0 {
				fmt.Fprintln(command.OutOrStdout(), emptyDebugLogMessageConstant)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{entry.Time.Local().Format(debugLogTimeLayoutConstant), entry.Level, entry.Message, formatEntryData(entry)})
			}
			fmt.Fprintln(command.OutOrStdout(), ui.RenderTable(
				[]string{timeHeaderConstant, levelHeaderConstant, messageHeaderConstant, dataHeaderConstant},
				rows,
			))
			return nil
		},
	}
	command.Flags().IntVar(&limit, limitFlagNameConstant, defaultDebugLogLimitConstant, limitFlagUsageConstant)
	return command
}

func (builder debugLogCommandBuilder) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   debugLogClearUseConstant,
		Short: debugLogClearShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := builder.ServicesProvider(command.Context())
			if openError != nil {
				return openError
			}
			if clearError := opened.journal.Clear(command.Context()); clearError != nil {
				return clearError
			}
			fmt.Fprintln(command.OutOrStdout(), debugLogClearedOutput)
			return nil
		},
	}
}

func formatEntryData(entry journal.Entry) string {
	if len(entry.Data) == 0 {
		return ""
	}
	encoded, encodeError := json.Marshal(entry.Data)
	if encodeError != nil {
		return ""
	}
	return string(encoded)
}
