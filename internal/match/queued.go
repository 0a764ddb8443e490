package match

import (
	"context"
	"errors"

	"seabattle/internal/game"
)

// ErrNoShot is returned by a Queued participant with nothing queued.
var ErrNoShot = errors.New("no shot queued")

// Queued is a participant fed one coordinate at a time by a caller that
// drives the match step by step, such as a request handler. It never
// retries on its own: an invalid shot ends the Step with the rejection.
type Queued struct {
	next *game.Coord
	Last *game.ShotReport
}

func (q *Queued) Push(c game.Coord) { q.next = &c }

func (q *Queued) NextShot(_ context.Context, _ game.Radar, rejected error) (game.Coord, error) {
	if rejected != nil {
		q.next = nil
		return game.Coord{}, rejected
	}
	if q.next == nil {
		return game.Coord{}, ErrNoShot
	}
	c := *q.next
	q.next = nil
	return c, nil
}

func (q *Queued) Observe(rep game.ShotReport) { q.Last = &rep }
