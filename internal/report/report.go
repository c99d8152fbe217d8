// Package report renders run output for the operator: the decision table of
// a preview and the closing summary of an apply.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"catalogsync/internal/catalog"
)

// Styles used when rendering to a terminal.
var (
	Success = lipgloss.Color("#8BC34A")
	Warning = lipgloss.Color("#FFC107")
	Failure = lipgloss.Color("#e53935")
	Muted   = lipgloss.Color("#6b7785")
)

// Renderer writes reports. A plain renderer never emits escape codes.
type Renderer struct {
	styled bool

	header lipgloss.Style
	yes    lipgloss.Style
	no     lipgloss.Style
	fail   lipgloss.Style
	muted  lipgloss.Style
}

// NewRenderer returns a renderer; styled enables colors.
func NewRenderer(styled bool) *Renderer {
	return &Renderer{
		styled: styled,
		header: lipgloss.NewStyle().Bold(true),
		yes:    lipgloss.NewStyle().Foreground(Success),
		no:     lipgloss.NewStyle().Foreground(Warning),
		fail:   lipgloss.NewStyle().Foreground(Failure).Bold(true),
		muted:  lipgloss.NewStyle().Foreground(Muted),
	}
}

func (r *Renderer) paint(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// Preview writes the decisions computed from document, one row per item.
func (r *Renderer) Preview(w io.Writer, document string, decisions []catalog.Decision) error {
	available := 0
	for _, d := range decisions {
		if d.Available {
			available++
		}
	}
	if _, err := fmt.Fprintf(w, "Preview of %s: %d items (%d available, %d unavailable)\n\n",
		document, len(decisions), available, len(decisions)-available); err != nil {
		return err
	}
	if len(decisions) == 0 {
		_, err := fmt.Fprintln(w, r.paint(r.muted, "nothing to sync"))
		return err
	}

	rows := [][]string{{"ITEM", "DISPLAY NAME", "AVAILABLE", "QTY"}}
	for _, d := range decisions {
		rows = append(rows, []string{d.Item.Name, d.DisplayName, yesNo(d.Available), strconv.Itoa(d.Quantity)})
	}
	widths := columnWidths(rows)

	for i, row := range rows {
		cells := make([]string, len(row))
		for c, cell := range row {
			padded := cell
			if c < len(row)-1 {
				padded = pad(cell, widths[c])
			}
			switch {
			case i == 0:
				padded = r.paint(r.header, padded)
			case c == 2 && decisions[i-1].Available:
				padded = r.paint(r.yes, padded)
			case c == 2:
				padded = r.paint(r.no, padded)
			}
			cells[c] = padded
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "  ")); err != nil {
			return err
		}
	}
	return nil
}

// ItemFailure is one item that could not be applied.
type ItemFailure struct {
	DisplayName string
	Reason      string
}

// Summary writes the final tally of an apply run followed by its failures.
func (r *Renderer) Summary(w io.Writer, ok, failed, changed int, failures []ItemFailure) error {
	line := fmt.Sprintf("Apply finished: %d ok, %d failed, %d changed", ok, failed, changed)
	if failed > 0 {
		line = r.paint(r.fail, line)
	} else {
		line = r.paint(r.yes, line)
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, f := range failures {
		if _, err := fmt.Fprintf(w, "  %s %s: %s\n", r.paint(r.fail, "x"), f.DisplayName, r.paint(r.muted, f.Reason)); err != nil {
			return err
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func columnWidths(rows [][]string) []int {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for c, cell := range row {
			if w := lipgloss.Width(cell); w > widths[c] {
				widths[c] = w
			}
		}
	}
	return widths
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
