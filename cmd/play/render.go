package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tilesage/takeiteasy-engine/internal/game"
)

// printCentered re-centers a multi-line block in the terminal, the same
// width-probing pattern internal/ui/cli.printCentered uses (golang.org/x/term
// for the terminal width, since len() alone would count ANSI escapes as
// visible characters).
func printCentered(block string) {
	lines := strings.Split(block, "\n")
	terminalWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		terminalWidth = 80
	}
	width := 0
	for _, line := range lines {
		if w := lipgloss.Width(line); w > width {
			width = w
		}
	}
	indent := (terminalWidth - width) / 2
	if indent < 0 {
		indent = 0
	}
	pad := strings.Repeat(" ", indent)
	for _, line := range lines {
		fmt.Printf("%s%s\n", pad, line)
	}
}

var (
	placedStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("15"))
	chosenStyle = lipgloss.NewStyle().Padding(0, 1).
			Background(lipgloss.Color("13")).Foreground(lipgloss.Color("0")).Bold(true)
	emptyStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("8"))
)

// renderBoard draws the 5x5 grid embedding of the 19-cell board (§4.1,
// game.CellToGrid), styled with lipgloss the way internal/ui/cli styles the
// board it prints: highlightCell, if >= 0, marks the cell just placed.
func renderBoard(b *game.Board, highlightCell int) string {
	var rows []string
	for r := 0; r < game.GridSize; r++ {
		var cells []string
		for c := 0; c < game.GridSize; c++ {
			cell := game.GridToCell(r, c)
			if cell < 0 {
				cells = append(cells, emptyStyle.Render("     "))
				continue
			}
			tile := b.At(cell)
			style := placedStyle
			if cell == highlightCell {
				style = chosenStyle
			}
			if tile.IsEmpty() {
				cells = append(cells, emptyStyle.Render(fmt.Sprintf("#%-3d", cell)))
			} else {
				cells = append(cells, style.Render(tile.String()))
			}
		}
		rows = append(rows, strings.Join(cells, ""))
	}
	return strings.Join(rows, "\n")
}

func printBoard(b *game.Board, highlightCell int) {
	printCentered(renderBoard(b, highlightCell))
}
