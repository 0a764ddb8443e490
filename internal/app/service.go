// Package app runs game sessions for the HTTP service: creation, manual
// placement, shots, status views and fair-play proofs.
package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seabattle/internal/ai"
	"seabattle/internal/codec"
	"seabattle/internal/console"
	"seabattle/internal/game"
	"seabattle/internal/match"
	"seabattle/internal/merkle"
	"seabattle/internal/zk"
)

var (
	ErrNotFound         = errors.New("game not found")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrGameOver         = match.ErrGameOver
	ErrPlacementPending = errors.New("fleets are still being placed")
	ErrPlacementDone    = errors.New("fleet already placed")
	ErrBadRequest       = errors.New("bad request")
	ErrForbidden        = errors.New("seat token missing or wrong")
)

const (
	ModePvC = "pvc"
	ModePvP = "pvp"

	PlacementRandom = "random"
	PlacementManual = "manual"

	ComputerName = "COMPUTER"
	DefaultSize  = 10

	// random placement gives up after this many misses in a row, which only
	// happens when manual placements left no room
	maxRandomTries = 10000

	subscriberBuffer = 16
)

type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	prover   *zk.Prover
	log      zerolog.Logger
}

// NewService returns an empty service. prover may be nil, in which case
// shot proofs carry only the Merkle opening.
func NewService(log zerolog.Logger, prover *zk.Prover) *Service {
	return &Service{sessions: make(map[string]*Session), prover: prover, log: log}
}

// Session is one game. Every operation on it holds mu, so a shot and its
// sunk and fleet checks are never interleaved with another request.
type Session struct {
	ID   string
	Mode string
	Size int

	mu       sync.Mutex
	deleted  bool
	names    [2]string
	computer [2]bool
	tokens   [2]string // empty for the computer seat
	boards   [2]*game.Board
	fleets   [2]*game.Fleet
	players  [2]*game.Player
	commits  [2]*merkle.Commitment
	queued   [2]*match.Queued
	rng      *rand.Rand
	m        *match.Match
	shots    []match.TurnReport
	subs     map[chan codec.TurnEvent]struct{}
	log      zerolog.Logger
}

// === Create / Delete ===

// Create starts a game. The response is the only place seat tokens are
// shown: every human seat gets one, and the creator hands them out.
func (s *Service) Create(req codec.CreateGame) (codec.Status, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModePvC
	}
	if mode != ModePvC && mode != ModePvP {
		return codec.Status{}, fmt.Errorf("%w: mode %q", ErrBadRequest, req.Mode)
	}
	placement := req.Placement
	if placement == "" {
		placement = PlacementRandom
	}
	if placement != PlacementRandom && placement != PlacementManual {
		return codec.Status{}, fmt.Errorf("%w: placement %q", ErrBadRequest, req.Placement)
	}
	size := DefaultSize
	if req.Size != 0 {
		size = game.ClampSize(req.Size)
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	sess := &Session{
		ID:   uuid.NewString(),
		Mode: mode,
		Size: size,
		rng:  rand.New(rand.NewSource(seed)),
		subs: make(map[chan codec.TurnEvent]struct{}),
	}
	sess.log = s.log.With().Str("game", sess.ID).Logger()
	for i := range sess.names {
		sess.names[i] = fmt.Sprintf("PLAYER %d", i+1)
		if i < len(req.Players) && req.Players[i] != "" {
			sess.names[i] = req.Players[i]
		}
	}
	if mode == ModePvC {
		sess.names[1] = ComputerName
		sess.computer[1] = true
	}
	for i := range sess.tokens {
		if !sess.computer[i] {
			sess.tokens[i] = uuid.NewString()
		}
	}

	for i := range sess.boards {
		if sess.computer[i] || placement == PlacementRandom {
			b, f, err := game.RandomFleet(size, sess.rng)
			if err != nil {
				return codec.Status{}, err
			}
			sess.boards[i], sess.fleets[i] = b, f
			continue
		}
		b, err := game.NewBoard(size)
		if err != nil {
			return codec.Status{}, err
		}
		sess.boards[i], sess.fleets[i] = b, game.NewFleet()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.maybeStart(); err != nil {
		return codec.Status{}, err
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	sess.log.Info().Str("mode", mode).Int("size", size).Int64("seed", seed).Int("sessions", n).Msg("game created")
	st := sess.status(0)
	for i := range st.Players {
		st.Players[i].Token = sess.tokens[i]
	}
	return st, nil
}

func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// lock returns the session with its mutex held, unless it was deleted
// between the lookup and the lock.
func (s *Service) lock(id string) (*Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	if sess.deleted {
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Delete discards a game and ends its event streams. Either human seat may
// delete it.
func (s *Service) Delete(id, token string) error {
	sess, err := s.lock(id)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()
	if _, err := sess.actor(token); err != nil {
		return err
	}

	sess.deleted = true
	for ch := range sess.subs {
		close(ch)
		delete(sess.subs, ch)
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	sess.log.Info().Int("shots", len(sess.shots)).Msg("game deleted")
	return nil
}

// === Placement ===

// PlaceShip places the next ship for the seat holding token.
func (s *Service) PlaceShip(id, token string, req codec.PlaceShip) (codec.Status, error) {
	sess, err := s.lock(id)
	if err != nil {
		return codec.Status{}, err
	}
	defer sess.mu.Unlock()

	player, err := sess.actor(token)
	if err != nil {
		return codec.Status{}, err
	}
	b, f := sess.boards[player], sess.fleets[player]
	t, ok := f.Next()
	if !ok {
		return codec.Status{}, ErrPlacementDone
	}

	if req.Random {
		b, f, err = placeRest(b, f, sess.rng)
		if err != nil {
			return codec.Status{}, err
		}
		sess.boards[player], sess.fleets[player] = b, f
	} else {
		anchor, o, err := console.ParsePlacement(req.Placement)
		if err != nil {
			return codec.Status{}, err
		}
		if _, err := game.Deploy(b, f, game.Placement{Type: t, Anchor: anchor, Orientation: o}); err != nil {
			return codec.Status{}, err
		}
	}
	sess.log.Debug().Int("player", player).Bool("random", req.Random).Msg("ship placed")

	if err := sess.maybeStart(); err != nil {
		return codec.Status{}, err
	}
	return sess.status(player), nil
}

// placeRest places the missing ships at random on copies of b and f, so a
// fleet that does not fit leaves the originals as they were.
func placeRest(b *game.Board, f *game.Fleet, rng *rand.Rand) (*game.Board, *game.Fleet, error) {
	b, f = b.Clone(), f.Clone()
	for t, ok := f.Next(); ok; t, ok = f.Next() {
		var err error
		for tries := 0; ; tries++ {
			if tries == maxRandomTries {
				return nil, nil, fmt.Errorf("no room left for %s: %w", t, err)
			}
			if _, err = game.Deploy(b, f, game.RandomPlacement(t, b.Size(), rng)); err == nil {
				break
			}
		}
	}
	return b, f, nil
}

// maybeStart commits both boards and seats the match once every fleet is
// complete. Called with mu held.
func (sess *Session) maybeStart() error {
	if sess.m != nil || !sess.fleets[0].Complete() || !sess.fleets[1].Complete() {
		return nil
	}
	var seats [2]match.Seat
	for i := range seats {
		c, err := merkle.Commit(sess.boards[i].Occupancy(), sess.Size*sess.Size)
		if err != nil {
			return fmt.Errorf("commit board %d: %w", i, err)
		}
		sess.commits[i] = c
		sess.players[i] = game.NewPlayer(sess.names[i], sess.boards[i], sess.fleets[i])

		var p match.Participant
		if sess.computer[i] {
			p = ai.New(rand.New(rand.NewSource(sess.rng.Int63())), sess.log.With().Str("ai", sess.names[i]).Logger())
		} else {
			sess.queued[i] = &match.Queued{}
			p = sess.queued[i]
		}
		seats[i] = match.Seat{Player: sess.players[i], Participant: p}
	}
	sess.m = match.New(seats[0], seats[1], sess.log)
	sess.m.OnShot = sess.record
	sess.log.Info().Msg("fleets committed, match started")
	return nil
}

// === Shots ===

// Shoot fires a shot for the seat holding token. In pvc mode the computer
// answers in the same call, so up to two events are returned.
func (s *Service) Shoot(ctx context.Context, id, token string, req codec.Shot) ([]codec.TurnEvent, error) {
	sess, err := s.lock(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	player, err := sess.actor(token)
	if err != nil {
		return nil, err
	}
	if sess.m == nil {
		return nil, ErrPlacementPending
	}
	if sess.m.Over() {
		return nil, ErrGameOver
	}
	if sess.m.Turn() != player {
		return nil, ErrNotYourTurn
	}
	c, err := console.ParseCoord(req.Coord)
	if err != nil {
		return nil, err
	}

	sess.queued[player].Push(c)
	tr, err := sess.m.Step(ctx)
	if err != nil {
		return nil, err
	}
	events := []codec.TurnEvent{sess.event(tr)}

	for !sess.m.Over() && sess.computer[sess.m.Turn()] {
		tr, err := sess.m.Step(ctx)
		if err != nil {
			return events, err
		}
		events = append(events, sess.event(tr))
	}
	return events, nil
}

// record is the match observer: it keeps the shot log and feeds
// subscribers. Subscribers that fall behind are dropped.
func (sess *Session) record(tr match.TurnReport) {
	sess.shots = append(sess.shots, tr)
	ev := sess.event(tr)
	for ch := range sess.subs {
		select {
		case ch <- ev:
		default:
			close(ch)
			delete(sess.subs, ch)
			sess.log.Warn().Msg("dropped slow subscriber")
		}
	}
}

func (sess *Session) event(tr match.TurnReport) codec.TurnEvent {
	return codec.TurnEvent{
		N:        tr.N,
		Shooter:  tr.Shooter,
		Name:     sess.names[tr.Shooter],
		Rejected: tr.Rejected,
		Report:   codec.FromReport(tr.Report),
		Winner:   tr.Winner,
	}
}

// Subscribe streams every later shot of the game. The channel is closed
// when the game is deleted, when the subscriber falls behind, or by cancel.
func (s *Service) Subscribe(id string) (<-chan codec.TurnEvent, func(), error) {
	sess, err := s.lock(id)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan codec.TurnEvent, subscriberBuffer)
	sess.subs[ch] = struct{}{}
	sess.mu.Unlock()

	cancel := func() {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if _, ok := sess.subs[ch]; ok {
			delete(sess.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

// === Status ===

// Status returns the game as seen by the seat holding token. Without a
// valid token the caller gets the spectator view: radars and ship types,
// no own board and no ship cells.
func (s *Service) Status(id, token string) (codec.Status, error) {
	sess, err := s.lock(id)
	if err != nil {
		return codec.Status{}, err
	}
	defer sess.mu.Unlock()
	return sess.status(sess.seat(token)), nil
}

func (sess *Session) status(viewer int) codec.Status {
	st := codec.Status{
		ID:     sess.ID,
		Mode:   sess.Mode,
		Size:   sess.Size,
		State:  "placing",
		Turn:   -1,
		Winner: -1,
		Shots:  len(sess.shots),
	}
	if sess.m != nil {
		st.State = sess.m.State().String()
		st.Turn = sess.m.Turn()
		st.Winner = sess.m.Winner()
	}
	for i := range sess.boards {
		v := codec.PlayerView{
			Name:     sess.names[i],
			Computer: sess.computer[i],
			Placed:   sess.fleets[i].Complete(),
			Radar:    codec.RadarGrid(sess.boards[i].Radar()),
			Fleet:    codec.Fleet(sess.fleets[i], viewer == i),
		}
		if t, ok := sess.fleets[i].Next(); ok {
			v.NextShip = t.String()
		}
		if viewer == i {
			v.Own = codec.OwnGrid(sess.boards[i])
		}
		if c := sess.commits[i]; c != nil {
			v.Commitment = fmt.Sprintf("0x%x", c.Root())
		}
		if p := sess.players[i]; p != nil && p.LastShot != nil {
			r := codec.FromReport(*p.LastShot)
			v.LastShot = &r
		}
		st.Players = append(st.Players, v)
	}
	return st
}

// seat returns the seat whose token matches, or -1.
func (sess *Session) seat(token string) int {
	for i, t := range sess.tokens {
		if t != "" && subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			return i
		}
	}
	return -1
}

func (sess *Session) actor(token string) (int, error) {
	if p := sess.seat(token); p >= 0 {
		return p, nil
	}
	return -1, ErrForbidden
}
