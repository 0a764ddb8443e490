package match

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"seabattle/internal/ai"
	"seabattle/internal/game"
)

// script fires a fixed list of coordinates and records what it was told.
type script struct {
	shots    []game.Coord
	rejected []error
	observed []game.ShotReport
}

func (s *script) NextShot(_ context.Context, _ game.Radar, rejected error) (game.Coord, error) {
	if rejected != nil {
		s.rejected = append(s.rejected, rejected)
	}
	if len(s.shots) == 0 {
		return game.Coord{}, errors.New("script exhausted")
	}
	c := s.shots[0]
	s.shots = s.shots[1:]
	return c, nil
}

func (s *script) Observe(rep game.ShotReport) { s.observed = append(s.observed, rep) }

func patrolBoatPlayer(t *testing.T, name string) *game.Player {
	t.Helper()
	b, _ := game.NewBoard(5)
	f := game.NewFleet()
	if _, err := game.Deploy(b, f, game.Placement{Type: game.PatrolBoat, Anchor: game.Coord{X: 0, Y: 0}}); err != nil {
		t.Fatal(err)
	}
	return game.NewPlayer(name, b, f)
}

func TestInvalidShotKeepsTurn(t *testing.T) {
	first := &script{shots: []game.Coord{{X: 7, Y: 7}, {X: 0, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 0}}}
	second := &script{shots: []game.Coord{{X: 4, Y: 4}}}
	m := New(
		Seat{Player: patrolBoatPlayer(t, "one"), Participant: first},
		Seat{Player: patrolBoatPlayer(t, "two"), Participant: second},
		zerolog.Nop(),
	)
	var seen []TurnReport
	m.OnShot = func(tr TurnReport) { seen = append(seen, tr) }
	ctx := context.Background()

	tr, err := m.Step(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Shooter != 0 || tr.Rejected != 1 || tr.Report.Outcome != game.ShotHit {
		t.Fatalf("first step = %+v", tr)
	}
	if !errors.Is(first.rejected[0], game.ErrOutOfBounds) {
		t.Fatalf("rejection = %v, want ErrOutOfBounds", first.rejected[0])
	}
	if m.Turn() != 1 || m.State() != Resolved {
		t.Fatalf("turn = %d state = %s after first step", m.Turn(), m.State())
	}

	if tr, _ = m.Step(ctx); tr.Shooter != 1 || tr.Report.Outcome != game.ShotMiss {
		t.Fatalf("second step = %+v", tr)
	}

	tr, err = m.Step(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Rejected != 1 || !errors.Is(first.rejected[1], game.ErrAlreadyResolved) {
		t.Fatalf("repeat shot not rejected: %+v %v", tr, first.rejected)
	}
	if tr.Report.Sunk == nil || !tr.Report.FleetDestroyed || tr.Winner != 0 {
		t.Fatalf("final step = %+v", tr)
	}
	if !m.Over() || m.Winner() != 0 {
		t.Fatalf("over=%v winner=%d", m.Over(), m.Winner())
	}
	if _, err := m.Step(ctx); !errors.Is(err, ErrGameOver) {
		t.Fatalf("step after game over: %v", err)
	}

	if len(seen) != 3 || seen[2].N != 3 {
		t.Fatalf("observer saw %d reports", len(seen))
	}
	if len(first.observed) != 2 || len(second.observed) != 1 {
		t.Fatalf("observe counts %d/%d", len(first.observed), len(second.observed))
	}
	if last := m.Seat(0).Player.LastShot; last == nil || last.Coord != (game.Coord{X: 1, Y: 0}) {
		t.Fatalf("last shot = %+v", last)
	}
}

func TestComputerGamesTerminate(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		size := []int{5, 8, 10, 15, 26}[seed%5]
		rng := rand.New(rand.NewSource(seed))
		seats := [2]Seat{}
		for i := range seats {
			b, f, err := game.RandomFleet(size, rng)
			if err != nil {
				t.Fatal(err)
			}
			seats[i] = Seat{
				Player:      game.NewPlayer("COMPUTER", b, f),
				Participant: ai.New(rand.New(rand.NewSource(seed*10+int64(i))), zerolog.Nop()),
			}
		}
		m := New(seats[0], seats[1], zerolog.Nop())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		winner, err := m.Run(ctx)
		cancel()
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		loser := m.Seat(1 - winner).Player
		if !loser.Fleet.Destroyed() {
			t.Fatalf("seed %d: loser fleet not destroyed", seed)
		}
		if m.Seat(winner).Player.Fleet.Destroyed() {
			t.Fatalf("seed %d: winner fleet destroyed too", seed)
		}
		if max := 2 * size * size; m.Shots() > max {
			t.Fatalf("seed %d: %d shots exceeds %d", seed, m.Shots(), max)
		}
	}
}

type blocking struct{}

func (blocking) NextShot(ctx context.Context, _ game.Radar, _ error) (game.Coord, error) {
	<-ctx.Done()
	return game.Coord{}, ctx.Err()
}

func (blocking) Observe(game.ShotReport) {}

func TestStepHonoursCancellation(t *testing.T) {
	m := New(
		Seat{Player: patrolBoatPlayer(t, "human"), Participant: blocking{}},
		Seat{Player: patrolBoatPlayer(t, "other"), Participant: blocking{}},
		zerolog.Nop(),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run err = %v, want deadline exceeded", err)
	}
	if m.Turn() != 0 || m.Shots() != 0 {
		t.Fatalf("cancelled step changed the match: turn=%d shots=%d", m.Turn(), m.Shots())
	}
}

func TestQueuedParticipant(t *testing.T) {
	q := &Queued{}
	m := New(
		Seat{Player: patrolBoatPlayer(t, "remote"), Participant: q},
		Seat{Player: patrolBoatPlayer(t, "other"), Participant: &script{shots: []game.Coord{{X: 3, Y: 3}}}},
		zerolog.Nop(),
	)
	ctx := context.Background()

	if _, err := m.Step(ctx); !errors.Is(err, ErrNoShot) {
		t.Fatalf("empty queue err = %v", err)
	}
	q.Push(game.Coord{X: 2, Y: 2})
	if tr, err := m.Step(ctx); err != nil || tr.Report.Outcome != game.ShotMiss {
		t.Fatalf("queued step = %+v, %v", tr, err)
	}
	if q.Last == nil || q.Last.Coord != (game.Coord{X: 2, Y: 2}) {
		t.Fatalf("queued last = %+v", q.Last)
	}
	if _, err := m.Step(ctx); err != nil {
		t.Fatal(err)
	}

	q.Push(game.Coord{X: 2, Y: 2})
	if _, err := m.Step(ctx); !errors.Is(err, game.ErrAlreadyResolved) {
		t.Fatalf("repeat err = %v, want ErrAlreadyResolved", err)
	}
	if m.Turn() != 0 {
		t.Fatal("invalid queued shot passed the turn")
	}
}
