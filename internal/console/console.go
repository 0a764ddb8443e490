package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"seabattle/internal/game"
)

// Console reads answers line by line and writes prompts and screens.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) Out() io.Writer { return c.out }

func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Line prints prompt and returns the next input line without surrounding
// whitespace. A final line without newline is still returned.
func (c *Console) Line(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, prompt)
	s, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// Ask reports whether the answer to prompt starts with letter, ignoring case.
func (c *Console) Ask(ctx context.Context, prompt string, letter byte) (bool, error) {
	s, err := c.Line(ctx, prompt)
	if err != nil || s == "" {
		return false, err
	}
	return strings.EqualFold(s[:1], string(letter)), nil
}

// Human seats a person at the console. Own and Enemy are only read, to draw
// the screen before each shot.
type Human struct {
	c     *Console
	Own   *game.Player
	Enemy *game.Player
}

func (c *Console) Human(own, enemy *game.Player) *Human {
	return &Human{c: c, Own: own, Enemy: enemy}
}

func (h *Human) NextShot(ctx context.Context, _ game.Radar, rejected error) (game.Coord, error) {
	if rejected != nil {
		h.c.Printf("\nInvalid shot Captain! (%v)", rejected)
	} else if err := WriteScreen(h.c.out, h.Own, h.Enemy); err != nil {
		return game.Coord{}, err
	}
	for {
		s, err := h.c.Line(ctx, "\nAhoy! Give us position to shoot at (e.g. A6): ")
		if err != nil {
			return game.Coord{}, err
		}
		c, err := ParseCoord(s)
		if err == nil {
			return c, nil
		}
		h.c.Printf("\nInvalid shot Captain! (%v)", err)
	}
}

// Observe is a no-op: every shot, human or not, is announced through the
// match observer.
func (h *Human) Observe(game.ShotReport) {}

// Announce describes a shot in one line.
func Announce(shooter string, rep game.ShotReport) string {
	msg := fmt.Sprintf("%s fires at %s: %s", shooter, FormatCoord(rep.Coord), rep.Outcome)
	if rep.Sunk != nil {
		msg += fmt.Sprintf(", %s sunk", rep.Sunk.Type)
	}
	if rep.FleetDestroyed {
		msg += fmt.Sprintf(". VICTORY %s", shooter)
	}
	return msg
}

// ManualSource asks a person where to put each ship. Typing "random"
// places the current ship and every remaining one at random.
type ManualSource struct {
	c      *Console
	name   string
	rng    *rand.Rand
	random bool
	misses int
}

// after this many rejected random placements the person is asked again
const maxRandomMisses = 1000

func (c *Console) Placement(name string, rng *rand.Rand) *ManualSource {
	return &ManualSource{c: c, name: name, rng: rng}
}

func (m *ManualSource) NextPlacement(ctx context.Context, t game.ShipType, b *game.Board, rejected error) (game.Placement, error) {
	switch {
	case m.random && rejected != nil:
		m.misses++
	case m.random:
		m.misses = 0
	}
	if m.random && m.misses < maxRandomMisses {
		return game.RandomPlacement(t, b.Size(), m.rng), nil
	}
	if m.random {
		m.c.Printf("\nNo room left to place the %s at random.\n", t)
		m.random, m.misses, rejected = false, 0, nil
	}
	if rejected != nil {
		m.c.Printf("\nUnable to place here (%v), try again.\n", rejected)
	}
	for {
		m.c.Printf("\n%s is now placing ships!\n", m.name)
		if err := WriteBoard(m.c.out, b); err != nil {
			return game.Placement{}, err
		}
		m.c.Printf("\nPlacing %s (%d)\n", t, t.Size())
		m.c.Printf("Type coordinates of the TOP or LEFT end of the ship followed by\n" +
			"'H' for horizontal or 'V' for vertical, or 'random' for the rest of the fleet.\n")
		s, err := m.c.Line(ctx, "Enter ship placement (e.g. 'A2 H'): ")
		if err != nil {
			return game.Placement{}, err
		}
		if strings.EqualFold(s, "random") {
			m.random, m.misses = true, 0
			return game.RandomPlacement(t, b.Size(), m.rng), nil
		}
		anchor, o, err := ParsePlacement(s)
		if err != nil {
			m.c.Printf("\nFormatting ERROR: %v\n", err)
			continue
		}
		return game.Placement{Type: t, Anchor: anchor, Orientation: o}, nil
	}
}

// PlaceFleet runs placement for one player until they confirm the result,
// starting over on request.
func (c *Console) PlaceFleet(ctx context.Context, name string, size int, rng *rand.Rand) (*game.Board, *game.Fleet, error) {
	for {
		b, f, err := game.PlaceFleet(ctx, size, c.Placement(name, rng))
		if err != nil {
			return nil, nil, err
		}
		c.Printf("\n%s has placed every ship.\n", name)
		if err := WriteBoard(c.out, b); err != nil {
			return nil, nil, err
		}
		restart, err := c.Ask(ctx, "\nType 'R' to RESTART placement or anything else to confirm: ", 'r')
		if err != nil {
			return nil, nil, err
		}
		if !restart {
			return b, f, nil
		}
	}
}
