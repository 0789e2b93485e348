package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	headerColorConstant = "12"
	emptyCellConstant   = "-"
	cellPaddingConstant = 1
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(headerColorConstant)).Padding(0, cellPaddingConstant)
	cellStyle   = lipgloss.NewStyle().Padding(0, cellPaddingConstant)
	borderStyle = lipgloss.NewStyle().Faint(true)
)

// RenderTable lays out rows under headers. Empty cells render as a dash and short rows are padded.
func RenderTable(headers []string, rows [][]string) string {
	normalizedRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		normalized := make([]string, len(headers))
		for columnIndex := range normalized {
			normalized[columnIndex] = emptyCellConstant
			if columnIndex < len(row) && len(row[columnIndex]) > 0 {
				normalized[columnIndex] = row[columnIndex]
			}
		}
		normalizedRows = append(normalizedRows, normalized)
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(normalizedRows...).
		StyleFunc(func(row int, column int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

// YesNo renders a boolean table cell.
func YesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
