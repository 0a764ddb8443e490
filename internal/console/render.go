package console

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"seabattle/internal/game"
)

var symbols = [...]byte{
	game.Empty:       '~',
	game.ShipPresent: 'O',
	game.Hit:         '0',
	game.Miss:        '*',
	game.Sunk:        'X',
}

func Symbol(s game.CellState) byte {
	if int(s) < len(symbols) {
		return symbols[s]
	}
	return '?'
}

const Legend = "~ - undiscovered water | O - your ship | * - miss (empty tile) | 0 - ship is hit | X - sunk ship"

// cell width produced by newTable for one-character cells and two-digit
// column numbers.
const cellWidth = 3

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, cellWidth, 0, 1, ' ', 0)
}

func header(tw io.Writer, size int) {
	fmt.Fprint(tw, "\t")
	for x := 0; x < size; x++ {
		fmt.Fprint(tw, strconv.Itoa(x+1)+"\t")
	}
}

func row(tw io.Writer, y, size int, at func(game.Coord) game.CellState) {
	fmt.Fprintf(tw, "%c\t", 'A'+y)
	for x := 0; x < size; x++ {
		fmt.Fprintf(tw, "%c\t", Symbol(at(game.Coord{X: x, Y: y})))
	}
}

// WriteBoard prints a single board with every cell visible, as seen by its
// owner while placing ships.
func WriteBoard(w io.Writer, b *game.Board) error {
	tw := newTable(w)
	header(tw, b.Size())
	fmt.Fprint(tw, "\n")
	for y := 0; y < b.Size(); y++ {
		row(tw, y, b.Size(), ownCell(b))
		fmt.Fprint(tw, "\n")
	}
	return tw.Flush()
}

// WriteBoards prints the player's own board beside what is known of the
// enemy board.
func WriteBoards(w io.Writer, own *game.Board, enemy game.Radar) error {
	n := own.Size()
	fmt.Fprintf(w, "%-*s%s\n", cellWidth*(n+2), "Your fleet:", "Hits and Misses:")

	tw := newTable(w)
	header(tw, n)
	fmt.Fprint(tw, "\t")
	header(tw, enemy.Size())
	fmt.Fprint(tw, "\n")
	for y := 0; y < max(n, enemy.Size()); y++ {
		if y < n {
			row(tw, y, n, ownCell(own))
		}
		fmt.Fprint(tw, "\t")
		if y < enemy.Size() {
			row(tw, y, enemy.Size(), func(c game.Coord) game.CellState {
				s, _ := enemy.Visible(c)
				return s
			})
		}
		fmt.Fprint(tw, "\n")
	}
	return tw.Flush()
}

func ownCell(b *game.Board) func(game.Coord) game.CellState {
	return func(c game.Coord) game.CellState {
		s, _ := b.Cell(c)
		return s
	}
}

// WriteFleets prints the alive/sunk table of both fleets side by side.
func WriteFleets(w io.Writer, active, opponent *game.Player) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "%s's fleet:\t\t%s's fleet:\t\n", active.Name, opponent.Name)
	for _, t := range game.StandardFleet {
		fmt.Fprintf(tw, "%s [%d]\t%s\t%s [%d]\t%s\t\n",
			t, t.Size(), shipState(active.Fleet, t), t, t.Size(), shipState(opponent.Fleet, t))
	}
	return tw.Flush()
}

func shipState(f *game.Fleet, t game.ShipType) string {
	s := f.Ship(t)
	switch {
	case s == nil:
		return "-"
	case s.Sunk:
		return "sunk"
	}
	return "afloat"
}

// Status builds the two-part status line shown before a player's turn. The
// last shots are read from the current state of the boards, so a hit that
// has since sunk a ship reads as sinking.
func Status(active, opponent *game.Player) string {
	ours := fmt.Sprintf("'Reporting for duty %s! What are your commands?'", active.Name)
	if active.LastShot != nil {
		switch s, _ := opponent.Board.Cell(active.LastShot.Coord); s {
		case game.Miss:
			ours = "'We missed Sir!'"
		case game.Hit:
			ours = fmt.Sprintf("'Great hit %s!'", active.Name)
		case game.Sunk:
			ours = fmt.Sprintf("'Good job %s! Enemy vessel is sinking.'", active.Name)
		}
	}
	theirs := "'Let's hunt these dogs.'"
	if opponent.LastShot != nil {
		switch s, _ := active.Board.Cell(opponent.LastShot.Coord); s {
		case game.Miss:
			theirs = "'Enemy shell missed us.'"
		case game.Hit:
			theirs = "'We've been hit!'"
		case game.Sunk:
			theirs = "'Our boat is sinking! Mayday!'"
		}
	}
	return "STATUS: " + ours + " " + theirs
}

// WriteScreen prints everything a player sees before choosing a shot.
func WriteScreen(w io.Writer, active, opponent *game.Player) error {
	fmt.Fprintf(w, "\n%s's turn\n\n%s\n\n", active.Name, Status(active, opponent))
	if err := WriteBoards(w, active.Board, opponent.Board.Radar()); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := WriteFleets(w, active, opponent); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", Legend)
	return err
}
