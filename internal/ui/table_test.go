package ui_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitplugins/internal/ui"
)

func TestRenderTable(testInstance *testing.T) {
	rendered := ui.RenderTable(
		[]string{"Repository", "Branch", "Version"},
		[][]string{
			{"acme/widget", "main", "1.2.0"},
			{"acme/gadget", ""},
		},
	)

	lines := strings.Split(strings.TrimSpace(rendered), "\n")
	require.GreaterOrEqual(testInstance, len(lines), 4)
	require.Contains(testInstance, rendered, "Repository")
	require.Contains(testInstance, rendered, "acme/widget")
	require.Contains(testInstance, rendered, "1.2.0")

	var gadgetLine string
	for _, line := range lines {
		if strings.Contains(line, "acme/gadget") {
			gadgetLine = line
		}
	}
	require.NotEmpty(testInstance, gadgetLine)
	require.Equal(testInstance, 2, strings.Count(gadgetLine, " - "))
}

func TestYesNo(testInstance *testing.T) {
	require.Equal(testInstance, "yes", ui.YesNo(true))
	require.Equal(testInstance, "no", ui.YesNo(false))
}
