// Package match alternates shots between two seated participants until one
// fleet is destroyed.
package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"seabattle/internal/game"
)

var ErrGameOver = errors.New("game is over")

// Participant chooses shots for one seat: a human behind some input source
// or the computer.
type Participant interface {
	// NextShot returns the coordinate to fire at. rejected is non-nil when
	// the previous answer in the same half-turn was invalid.
	NextShot(ctx context.Context, enemy game.Radar, rejected error) (game.Coord, error)
	// Observe is called once per valid shot with its outcome.
	Observe(rep game.ShotReport)
}

type State uint8

const (
	AwaitingShot State = iota
	Resolved
	GameOver
)

func (s State) String() string {
	switch s {
	case AwaitingShot:
		return "awaiting-shot"
	case Resolved:
		return "resolved"
	case GameOver:
		return "game-over"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Seat binds a player's board and fleet to whoever picks its shots.
type Seat struct {
	Player      *game.Player
	Participant Participant
}

// TurnReport describes one resolved half-turn.
type TurnReport struct {
	N        int // 1-based count of valid shots in the match
	Shooter  int // seat index
	Report   game.ShotReport
	Rejected int // invalid attempts before the valid shot
	Winner   int // seat index, -1 while the game goes on
}

type Match struct {
	seats  [2]Seat
	turn   int
	state  State
	winner int
	shots  int
	log    zerolog.Logger

	// OnShot, if set, is called after every resolved half-turn.
	OnShot func(TurnReport)
}

// New seats a and b; seat a moves first.
func New(a, b Seat, log zerolog.Logger) *Match {
	return &Match{seats: [2]Seat{a, b}, winner: -1, log: log}
}

func (m *Match) State() State { return m.state }
func (m *Match) Turn() int { return m.turn }
func (m *Match) Seat(i int) Seat { return m.seats[i] }
func (m *Match) Shots() int { return m.shots }
func (m *Match) Over() bool { return m.state == GameOver }
func (m *Match) Current() Seat { return m.seats[m.turn] }
func (m *Match) Opponent() Seat { return m.seats[1-m.turn] }

// Winner returns the winning seat index, or -1.
func (m *Match) Winner() int { return m.winner }

// Step plays one half-turn for the acting seat. Invalid shots are handed
// back to the same participant and never pass the turn.
func (m *Match) Step(ctx context.Context) (TurnReport, error) {
	if m.state == GameOver {
		return TurnReport{}, ErrGameOver
	}
	m.state = AwaitingShot
	shooter, target := m.seats[m.turn], m.seats[1-m.turn]
	enemy := target.Player.Board.Radar()

	var rejected error
	tries := 0
	for {
		if err := ctx.Err(); err != nil {
			return TurnReport{}, err
		}
		c, err := shooter.Participant.NextShot(ctx, enemy, rejected)
		if err != nil {
			return TurnReport{}, err
		}
		rep, err := target.Player.TakeFire(c)
		if err != nil {
			rejected = err
			tries++
			continue
		}

		m.shots++
		shooter.Player.LastShot = &rep
		shooter.Participant.Observe(rep)

		tr := TurnReport{N: m.shots, Shooter: m.turn, Report: rep, Rejected: tries, Winner: -1}
		ev := m.log.Debug().Str("shooter", shooter.Player.Name).Stringer("coord", c).Stringer("outcome", rep.Outcome)
		if rep.Sunk != nil {
			ev = ev.Stringer("sunk", rep.Sunk.Type)
		}
		ev.Msg("shot")

		if rep.FleetDestroyed {
			m.state = GameOver
			m.winner = m.turn
			tr.Winner = m.turn
			m.log.Info().Str("winner", shooter.Player.Name).Int("shots", m.shots).Msg("fleet destroyed")
		} else {
			m.state = Resolved
			m.turn = 1 - m.turn
		}
		if m.OnShot != nil {
			m.OnShot(tr)
		}
		return tr, nil
	}
}

// Run steps until a fleet is destroyed and returns the winning seat.
func (m *Match) Run(ctx context.Context) (int, error) {
	for m.state != GameOver {
		if _, err := m.Step(ctx); err != nil {
			return -1, err
		}
	}
	return m.winner, nil
}
