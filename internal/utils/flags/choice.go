package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderTemplate = "<%s>"
	choiceSeparatorLiteral    = "|"
	choiceUsageEmptyTemplate  = "`%s`"
	choiceUsageFullTemplate   = "`%s` %s"
)

// FormatChoiceUsage renders description behind a placeholder listing choices.
// The default choice is upper-cased, blank and repeated choices are dropped.
func FormatChoiceUsage[Choice ~string](defaultChoice Choice, choices []Choice, description string) string {
	placeholder := fmt.Sprintf(choicePlaceholderTemplate, strings.Join(displayChoices(defaultChoice, choices), choiceSeparatorLiteral))
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplate, placeholder, description)
}

// ChoiceNames converts typed choices to their string form.
func ChoiceNames[Choice ~string](choices []Choice) []string {
	names := make([]string, 0, len(choices))
	for _, choice := range choices {
		names = append(names, string(choice))
	}
	return names
}

func displayChoices[Choice ~string](defaultChoice Choice, choices []Choice) []string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(string(defaultChoice)))
	displayed := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))

	for _, name := range ChoiceNames(choices) {
		trimmedName := strings.TrimSpace(name)
		normalizedName := strings.ToLower(trimmedName)
		if len(normalizedName) == 0 {
			continue
		}
		if _, exists := seen[normalizedName]; exists {
			continue
		}
		seen[normalizedName] = struct{}{}
		if normalizedName == normalizedDefault {
			trimmedName = strings.ToUpper(trimmedName)
		}
		displayed = append(displayed, trimmedName)
	}
	return displayed
}
