package game

import "fmt"

// Outcome of a single shot.
type Outcome uint8

const (
	ShotInvalid Outcome = iota
	ShotMiss
	ShotHit
)

func (o Outcome) String() string {
	switch o {
	case ShotMiss:
		return "miss"
	case ShotHit:
		return "hit"
	}
	return "invalid"
}

// Fire resolves a shot at c. It changes exactly one cell, or none when the
// shot is invalid.
func Fire(b *Board, c Coord) (Outcome, error) {
	s, ok := b.Cell(c)
	if !ok {
		return ShotInvalid, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	switch s {
	case Empty:
		return ShotMiss, b.set(c, Miss)
	case ShipPresent:
		return ShotHit, b.set(c, Hit)
	}
	return ShotInvalid, fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, c, s)
}

// CheckShipSunk promotes a ship whose cells are all Hit to Sunk and returns
// it. Ships already sunk are skipped, so a second call reports nothing.
func CheckShipSunk(b *Board, f *Fleet) *Ship {
	for _, s := range f.ships {
		if s.Sunk || !allHit(b, s) {
			continue
		}
		for _, c := range s.Cells {
			_ = b.set(c, Sunk)
		}
		s.Sunk = true
		return s
	}
	return nil
}

func allHit(b *Board, s *Ship) bool {
	for _, c := range s.Cells {
		if st, _ := b.Cell(c); st != Hit {
			return false
		}
	}
	return true
}

func CheckFleetDestroyed(f *Fleet) bool { return f.Destroyed() }

// ShotReport is the full result of one valid shot.
type ShotReport struct {
	Coord          Coord
	Outcome        Outcome
	Sunk           *Ship // newly sunk ship, if any
	FleetDestroyed bool
}
