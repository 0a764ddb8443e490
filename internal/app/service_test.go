package app

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"seabattle/internal/codec"
	"seabattle/internal/console"
	"seabattle/internal/game"
	"seabattle/internal/zk"
)

func newService() *Service { return NewService(zerolog.Nop(), nil) }

func create(t *testing.T, s *Service, req codec.CreateGame) codec.Status {
	t.Helper()
	st, err := s.Create(req)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestCreate(t *testing.T) {
	s := newService()
	st := create(t, s, codec.CreateGame{Size: 40, Players: []string{"ann"}, Seed: 1})

	if st.Size != game.MaxSize || st.Mode != ModePvC {
		t.Fatalf("size %d mode %s", st.Size, st.Mode)
	}
	if st.State != "awaiting-shot" || st.Turn != 0 || st.Winner != -1 {
		t.Fatalf("state %s turn %d winner %d", st.State, st.Turn, st.Winner)
	}
	if st.Players[0].Name != "ann" || st.Players[1].Name != ComputerName || !st.Players[1].Computer {
		t.Fatalf("players = %s, %s", st.Players[0].Name, st.Players[1].Name)
	}
	for i, p := range st.Players {
		if !p.Placed || p.Commitment == "" || len(p.Fleet) != 5 {
			t.Fatalf("player %d not ready: %+v", i, p)
		}
	}
	if st.Players[0].Own == nil || st.Players[1].Own != nil {
		t.Fatal("own grid shown to the wrong seat")
	}
	if st.Players[1].Fleet[0].Cells != nil {
		t.Fatal("computer ship cells revealed")
	}
	if st.Players[0].Token == "" || st.Players[1].Token != "" {
		t.Fatalf("tokens = %q, %q", st.Players[0].Token, st.Players[1].Token)
	}
	if later, _ := s.Status(st.ID, st.Players[0].Token); later.Players[0].Token != "" {
		t.Fatal("token repeated outside the create response")
	}

	if _, err := s.Create(codec.CreateGame{Mode: "solo"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("bad mode err = %v", err)
	}
	if _, err := s.Create(codec.CreateGame{Placement: "drawn"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("bad placement err = %v", err)
	}
}

func TestShootVsComputer(t *testing.T) {
	s := newService()
	st := create(t, s, codec.CreateGame{Seed: 3})
	ctx := context.Background()
	ann := st.Players[0].Token

	events, err := s.Shoot(ctx, st.ID, ann, codec.Shot{Coord: "A1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Shooter != 0 || events[1].Shooter != 1 || events[1].Name != ComputerName {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Report.Label != "A1" {
		t.Fatalf("label = %s", events[0].Report.Label)
	}

	cases := []struct {
		coord string
		want  error
	}{
		{"A1", game.ErrAlreadyResolved},
		{"Z99", game.ErrOutOfBounds},
		{"11", console.ErrMalformedInput},
	}
	for _, tc := range cases {
		if _, err := s.Shoot(ctx, st.ID, ann, codec.Shot{Coord: tc.coord}); !errors.Is(err, tc.want) {
			t.Fatalf("shot %s err = %v, want %v", tc.coord, err, tc.want)
		}
	}
	if _, err := s.Shoot(ctx, st.ID, "", codec.Shot{Coord: "B1"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("shot without a token err = %v", err)
	}

	after, _ := s.Status(st.ID, ann)
	if after.Turn != 0 || after.Shots != 2 {
		t.Fatalf("rejected shots changed the game: turn %d shots %d", after.Turn, after.Shots)
	}
	if after.Players[0].LastShot == nil || after.Players[0].LastShot.Label != "A1" {
		t.Fatalf("last shot = %+v", after.Players[0].LastShot)
	}
}

func TestPlayToTheEnd(t *testing.T) {
	s := newService()
	st := create(t, s, codec.CreateGame{Size: 5, Seed: 11})
	ctx := context.Background()
	ann := st.Players[0].Token

	over := false
	for y := 0; y < 5 && !over; y++ {
		for x := 0; x < 5 && !over; x++ {
			coord := console.FormatCoord(game.Coord{X: x, Y: y})
			events, err := s.Shoot(ctx, st.ID, ann, codec.Shot{Coord: coord})
			if errors.Is(err, ErrGameOver) {
				over = true
				break
			}
			if err != nil {
				t.Fatalf("shot %s: %v", coord, err)
			}
			over = events[len(events)-1].Winner >= 0
		}
	}

	end, _ := s.Status(st.ID, ann)
	if end.State != "game-over" || end.Winner < 0 {
		t.Fatalf("state %s winner %d", end.State, end.Winner)
	}
	if _, err := s.Shoot(ctx, st.ID, ann, codec.Shot{Coord: "A1"}); !errors.Is(err, ErrGameOver) {
		t.Fatalf("shot after the end err = %v", err)
	}
}

func TestManualPlacementTwoPlayers(t *testing.T) {
	s := newService()
	st := create(t, s, codec.CreateGame{Mode: ModePvP, Placement: PlacementManual, Players: []string{"ann", "bob"}})
	if st.State != "placing" || st.Players[0].NextShip != "Carrier" {
		t.Fatalf("state %s next %s", st.State, st.Players[0].NextShip)
	}
	ctx := context.Background()
	ann, bob := st.Players[0].Token, st.Players[1].Token
	if _, err := s.Shoot(ctx, st.ID, ann, codec.Shot{Coord: "A1"}); !errors.Is(err, ErrPlacementPending) {
		t.Fatalf("early shot err = %v", err)
	}

	if _, err := s.PlaceShip(st.ID, ann, codec.PlaceShip{Placement: "A1"}); !errors.Is(err, console.ErrMalformedInput) {
		t.Fatalf("malformed placement err = %v", err)
	}
	for _, p := range []string{"A1 H", "B1 H", "C1 H", "D1 H"} {
		if _, err := s.PlaceShip(st.ID, ann, codec.PlaceShip{Placement: p}); err != nil {
			t.Fatalf("place %s: %v", p, err)
		}
	}
	if _, err := s.PlaceShip(st.ID, ann, codec.PlaceShip{Placement: "D1 V"}); !errors.Is(err, game.ErrOverlapOrBounds) {
		t.Fatalf("overlap err = %v", err)
	}
	if _, err := s.PlaceShip(st.ID, ann, codec.PlaceShip{Placement: "E1 H"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PlaceShip(st.ID, ann, codec.PlaceShip{Placement: "F1 H"}); !errors.Is(err, ErrPlacementDone) {
		t.Fatalf("sixth ship err = %v", err)
	}

	mid, _ := s.Status(st.ID, ann)
	if mid.State != "placing" || !mid.Players[0].Placed || mid.Players[1].Placed {
		t.Fatalf("mid placement status %+v", mid)
	}

	st, err := s.PlaceShip(st.ID, bob, codec.PlaceShip{Random: true})
	if err != nil {
		t.Fatal(err)
	}
	if st.State != "awaiting-shot" || st.Players[0].Commitment == "" || st.Players[1].Commitment == "" {
		t.Fatalf("match not started: %+v", st)
	}

	if _, err := s.Shoot(ctx, st.ID, bob, codec.Shot{Coord: "A1"}); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("out of turn err = %v", err)
	}
	events, err := s.Shoot(ctx, st.ID, ann, codec.Shot{Coord: "J10"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("pvp shot produced %d events", len(events))
	}
	// bob fires at ann's carrier on row A
	events, err = s.Shoot(ctx, st.ID, bob, codec.Shot{Coord: "A3"})
	if err != nil || events[0].Report.Outcome != "hit" {
		t.Fatalf("bob's shot = %+v, %v", events, err)
	}
}

func TestUnknownGame(t *testing.T) {
	s := newService()
	if _, err := s.Status("nope", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("status err = %v", err)
	}
	if err := s.Delete("nope", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete err = %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	s := newService()
	st := create(t, s, codec.CreateGame{Seed: 5})
	ch, cancel, err := s.Subscribe(st.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	if _, err := s.Shoot(context.Background(), st.ID, st.Players[0].Token, codec.Shot{Coord: "C3"}); err != nil {
		t.Fatal(err)
	}
	for want := 1; want <= 2; want++ {
		select {
		case ev := <-ch:
			if ev.N != want {
				t.Fatalf("event n = %d, want %d", ev.N, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", want)
		}
	}

	if err := s.Delete(st.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("anonymous delete err = %v", err)
	}
	if err := s.Delete(st.ID, st.Players[0].Token); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after delete")
	}
}

func TestProofOpenings(t *testing.T) {
	s := newService()
	st := create(t, s, codec.CreateGame{Seed: 9})
	events, err := s.Shoot(context.Background(), st.ID, st.Players[0].Token, codec.Shot{Coord: "E5"})
	if err != nil {
		t.Fatal(err)
	}

	for n, ev := range events {
		p, err := s.Proof(st.ID, n+1)
		if err != nil {
			t.Fatal(err)
		}
		if p.Target != 1-ev.Shooter || p.Proof != nil {
			t.Fatalf("payload %d: target %d proof %d bytes", n+1, p.Target, len(p.Proof))
		}
		root, err := ParseRoot(st.Players[p.Target].Commitment)
		if err != nil {
			t.Fatal(err)
		}
		res, err := VerifyPayload(nil, root, p)
		if err != nil {
			t.Fatal(err)
		}
		if res.Hit != (ev.Report.Outcome == "hit") || res.Proved {
			t.Fatalf("shot %d verified as %+v, outcome %s", n+1, res, ev.Report.Outcome)
		}

		lie := p
		lie.Opening.Bit ^= 1
		if _, err := VerifyPayload(nil, root, lie); !errors.Is(err, ErrBadProof) {
			t.Fatalf("tampered opening err = %v", err)
		}
		other, _ := ParseRoot(st.Players[ev.Shooter].Commitment)
		if _, err := VerifyPayload(nil, other, p); !errors.Is(err, zk.ErrRootMismatch) {
			t.Fatalf("wrong root err = %v", err)
		}
	}

	if _, err := s.Proof(st.ID, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing shot err = %v", err)
	}
}

func TestGroth16Proof(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup skipped in short mode")
	}
	prover, verifier, err := zk.Setup()
	if err != nil {
		t.Fatal(err)
	}
	s := NewService(zerolog.Nop(), prover)
	st := create(t, s, codec.CreateGame{Seed: 2})
	if _, err := s.Shoot(context.Background(), st.ID, st.Players[0].Token, codec.Shot{Coord: "B7"}); err != nil {
		t.Fatal(err)
	}

	p, err := s.Proof(st.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	root, _ := ParseRoot(st.Players[1].Commitment)
	res, err := VerifyPayload(verifier, root, p)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Proved {
		t.Fatal("proof not checked")
	}

	forged := p
	pub := *p.Public
	pub.Hit ^= 1
	forged.Public = &pub
	if _, err := VerifyPayload(verifier, root, forged); !errors.Is(err, ErrBadProof) {
		t.Fatalf("forged public input err = %v", err)
	}
}

func TestSeatTokens(t *testing.T) {
	s := newService()
	st := create(t, s, codec.CreateGame{Mode: ModePvP, Seed: 6})
	ann, bob := st.Players[0].Token, st.Players[1].Token
	if ann == "" || bob == "" || ann == bob {
		t.Fatalf("tokens %q %q", ann, bob)
	}

	for _, token := range []string{"", "guess", ann + "x"} {
		view, err := s.Status(st.ID, token)
		if err != nil {
			t.Fatal(err)
		}
		for i, p := range view.Players {
			if p.Own != nil || p.Fleet[0].Cells != nil {
				t.Fatalf("token %q sees board %d", token, i)
			}
			if p.Radar == nil {
				t.Fatalf("token %q gets no radar %d", token, i)
			}
		}
		if _, err := s.Shoot(context.Background(), st.ID, token, codec.Shot{Coord: "A1"}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("shot with %q err = %v", token, err)
		}
		if _, err := s.PlaceShip(st.ID, token, codec.PlaceShip{Random: true}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("placement with %q err = %v", token, err)
		}
	}

	view, _ := s.Status(st.ID, bob)
	if view.Players[0].Own != nil || view.Players[0].Fleet[0].Cells != nil {
		t.Fatal("bob sees ann's ships")
	}
	if view.Players[1].Own == nil || view.Players[1].Fleet[0].Cells == nil {
		t.Fatal("bob cannot see his own ships")
	}
	if _, err := s.Shoot(context.Background(), st.ID, bob, codec.Shot{Coord: "A1"}); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("bob on ann's turn err = %v", err)
	}
}

func TestSubscribeToDeletedSession(t *testing.T) {
	s := newService()
	st := create(t, s, codec.CreateGame{Seed: 5})
	sess, _ := s.Get(st.ID)
	if err := s.Delete(st.ID, st.Players[0].Token); err != nil {
		t.Fatal(err)
	}
	// a lookup that raced with the delete still finds the session
	s.mu.Lock()
	s.sessions[st.ID] = sess
	s.mu.Unlock()

	if _, _, err := s.Subscribe(st.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("subscribe err = %v", err)
	}
	if len(sess.subs) != 0 {
		t.Fatal("channel registered on a deleted session")
	}
}

func TestPlaceRestWithoutRoom(t *testing.T) {
	b, _ := game.NewBoard(5)
	f := game.NewFleet()
	if _, err := game.Deploy(b, f, game.Placement{Type: game.Carrier}); err != nil {
		t.Fatal(err)
	}
	// rows C and E are taken, leaving two separate rows of five: the
	// battleship and destroyer fit, the submarine never does
	for _, y := range []int{2, 4} {
		if _, err := game.PlaceShip(b, game.Placement{Type: game.Carrier, Anchor: game.Coord{Y: y}}); err != nil {
			t.Fatal(err)
		}
	}
	before := b.Occupancy().Count()

	if _, _, err := placeRest(b, f, rand.New(rand.NewSource(1))); !errors.Is(err, game.ErrOverlapOrBounds) {
		t.Fatalf("err = %v", err)
	}
	if got := b.Occupancy().Count(); got != before {
		t.Fatalf("board changed: %d occupied cells, want %d", got, before)
	}
	if next, _ := f.Next(); next != game.Battleship || len(f.Ships()) != 1 {
		t.Fatalf("fleet changed: next %s, %d ships", next, len(f.Ships()))
	}
}
