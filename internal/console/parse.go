// Package console is the line-based front end: it parses typed coordinates
// and placements, renders boards as plain text and seats a human at a
// match through an io.Reader/io.Writer pair.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"seabattle/internal/game"
)

// ErrMalformedInput means the text could not be read as a coordinate or a
// placement. It never reaches the game core.
var ErrMalformedInput = errors.New("malformed input")

// ParseCoord reads "A6" style input: the letter picks the row, the number
// the column, both as printed by the renderer. Bounds are left to the board.
func ParseCoord(s string) (game.Coord, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return game.Coord{}, fmt.Errorf("%w: coordinate %q", ErrMalformedInput, s)
	}
	letter := s[0]
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	if letter < 'A' || letter > 'Z' {
		return game.Coord{}, fmt.Errorf("%w: row %q", ErrMalformedInput, s[:1])
	}
	col, err := strconv.Atoi(s[1:])
	if err != nil {
		return game.Coord{}, fmt.Errorf("%w: column %q", ErrMalformedInput, s[1:])
	}
	return game.Coord{X: col - 1, Y: int(letter - 'A')}, nil
}

// FormatCoord is the inverse of ParseCoord.
func FormatCoord(c game.Coord) string {
	if c == game.NoCoord {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'A'+c.Y, c.X+1)
}

// ParsePlacement reads "B3 V": an anchor (top or left end of the ship)
// followed by H for horizontal or V for vertical.
func ParsePlacement(s string) (game.Coord, game.Orientation, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return game.Coord{}, 0, fmt.Errorf("%w: placement %q, want e.g. \"B3 V\"", ErrMalformedInput, strings.TrimSpace(s))
	}
	anchor, err := ParseCoord(fields[0])
	if err != nil {
		return game.Coord{}, 0, err
	}
	switch strings.ToUpper(fields[1]) {
	case "H":
		return anchor, game.Horizontal, nil
	case "V":
		return anchor, game.Vertical, nil
	}
	return game.Coord{}, 0, fmt.Errorf("%w: orientation %q, want H or V", ErrMalformedInput, fields[1])
}
