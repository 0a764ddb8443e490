package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"seabattle/internal/game"
)

const Intro = `
SEA BATTLE
------------
Sea Battle is a turn-based strategy game for two players. You can play
against the computer or a friend. Each player has a fleet of 5 ships of
different length, and the goal is to sink all of the enemy ships.
First you place your ships on the board. Then you take turns typing
coordinates on the enemy board to shoot at. Your shots are tracked on the
right side of the screen, with the active ships of both players below.
The STATUS line on top sums up the last round. Small boards make a fast
clash and large ones a long battle; 10 is recommended.
`

const Guide = `
The fleet is a Carrier (5), Battleship (4), Destroyer (3), Submarine (3) and
Patrol Boat (2). Before the battle you place each ship vertically or
horizontally on a board of the chosen size. During the battle you alternate
turns with your opponent; against a friend, look away while they play.
STATUS tells whether your last shot hit and whether you were hit. The left
board shows your ships and enemy strikes, the right one tracks your shots,
and the tables below list each player's ships. On your turn type one enemy
tile (e.g. A2). A player without afloat ships loses.
`

// ParseSize reads a board size: leading digits count, unreadable input is
// 0, and the result is clamped to the board limits.
func ParseSize(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		n = 0
	}
	return game.ClampSize(n)
}

// Menu shows the introduction, the guide on request, and asks for the board
// size.
func (c *Console) Menu(ctx context.Context) (int, error) {
	c.Printf("%s", Intro)
	s, err := c.Line(ctx, "\nType 'H' for additional hint or type anything else to proceed: ")
	if err != nil {
		return 0, err
	}
	if strings.EqualFold(s, "h") {
		c.Printf("%s", Guide)
	}
	s, err = c.Line(ctx, fmt.Sprintf("\nType size of the board in range %d to %d (e.g. '10'): ", game.MinSize, game.MaxSize))
	if err != nil {
		return 0, err
	}
	return ParseSize(s), nil
}
