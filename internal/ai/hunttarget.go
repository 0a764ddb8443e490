// Package ai implements the computer opponent: a hunt/target search that
// only ever looks at resolved cells of the enemy board.
package ai

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"

	"seabattle/internal/game"
)

// Probe order for line extension and perimeter probing. Fixed so that
// shots are reproducible.
var directions = [...]game.Direction{game.Right, game.Left, game.Up, game.Down}

// Memory is the targeting state carried from one turn to the next within a
// single game.
type Memory struct {
	// Target is the hit currently pursued, game.NoCoord when hunting.
	Target game.Coord
	// Last is the last coordinate that was actually fired at.
	Last game.Coord
}

func NewMemory() Memory { return Memory{Target: game.NoCoord, Last: game.NoCoord} }

// Targeter chooses shots for one computer player.
type Targeter struct {
	Memory Memory

	rng *rand.Rand
	log zerolog.Logger
}

func New(rng *rand.Rand, log zerolog.Logger) *Targeter {
	return &Targeter{Memory: NewMemory(), rng: rng, log: log}
}

// CalculateShot returns the next coordinate to fire at. It may return a cell
// that is already resolved (random fire); callers ask again in that case.
func (t *Targeter) CalculateShot(r game.Radar) game.Coord {
	if !isHit(r, t.Memory.Target) {
		t.Memory.Target = firstHit(r)
	}
	if t.Memory.Target == game.NoCoord {
		return t.randomShot(r, "hunt")
	}
	target := t.Memory.Target

	// only follow a line while the previous shot is still an unsunk hit
	if isHit(r, t.Memory.Last) {
		for _, d := range directions {
			if c, ok := extendLine(r, target, d); ok {
				t.log.Debug().Stringer("target", target).Stringer("shot", c).Msg("line extension")
				return c
			}
		}
	}
	for _, d := range directions {
		if c := target.Step(d); unknown(r, c) {
			t.log.Debug().Stringer("target", target).Stringer("shot", c).Msg("perimeter probe")
			return c
		}
	}
	return t.randomShot(r, "target exhausted")
}

// NextShot makes Targeter a match participant.
func (t *Targeter) NextShot(_ context.Context, enemy game.Radar, rejected error) (game.Coord, error) {
	if rejected != nil {
		t.log.Debug().Err(rejected).Msg("shot rejected, recalculating")
	}
	return t.CalculateShot(enemy), nil
}

// Observe records the outcome of a shot that was fired.
func (t *Targeter) Observe(rep game.ShotReport) {
	t.Memory.Last = rep.Coord
	if rep.Outcome == game.ShotHit && rep.Sunk == nil && t.Memory.Target == game.NoCoord {
		t.Memory.Target = rep.Coord
	}
}

// randomShot samples a uniform coordinate with x%2 != y%2. The parity bias
// is intentional: every ship covers at least one such cell. If all of them
// are resolved, the first unresolved cell is taken instead.
func (t *Targeter) randomShot(r game.Radar, why string) game.Coord {
	t.Memory.Target = game.NoCoord
	n := r.Size()
	if !anyUnknownOffParity(r) {
		c := firstUnknown(r)
		t.log.Debug().Str("phase", why).Stringer("shot", c).Msg("parity cells exhausted")
		return c
	}
	for {
		c := game.Coord{X: t.rng.Intn(n), Y: t.rng.Intn(n)}
		if c.X%2 != c.Y%2 {
			t.log.Debug().Str("phase", why).Stringer("shot", c).Msg("random fire")
			return c
		}
	}
}

func isHit(r game.Radar, c game.Coord) bool {
	s, ok := r.Visible(c)
	return ok && s == game.Hit
}

// unknown reports whether c is on the board and not yet shot at.
func unknown(r game.Radar, c game.Coord) bool {
	s, ok := r.Visible(c)
	return ok && !s.Resolved()
}

// extendLine walks from target past the consecutive hits in direction d and
// returns the first unknown cell after them.
func extendLine(r game.Radar, target game.Coord, d game.Direction) (game.Coord, bool) {
	c := target.Step(d)
	if !isHit(r, c) {
		return game.Coord{}, false
	}
	for {
		c = c.Step(d)
		s, ok := r.Visible(c)
		switch {
		case !ok:
			return game.Coord{}, false
		case s == game.Hit:
			continue
		case !s.Resolved():
			return c, true
		default:
			return game.Coord{}, false
		}
	}
}

// firstHit scans row-major for a Hit cell.
func firstHit(r game.Radar) game.Coord {
	n := r.Size()
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := game.Coord{X: x, Y: y}
			if isHit(r, c) {
				return c
			}
		}
	}
	return game.NoCoord
}

func firstUnknown(r game.Radar) game.Coord {
	n := r.Size()
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := game.Coord{X: x, Y: y}
			if unknown(r, c) {
				return c
			}
		}
	}
	return game.NoCoord
}

func anyUnknownOffParity(r game.Radar) bool {
	n := r.Size()
	for y := 0; y < n; y++ {
		for x := (y + 1) % 2; x < n; x += 2 {
			if unknown(r, game.Coord{X: x, Y: y}) {
				return true
			}
		}
	}
	return false
}
