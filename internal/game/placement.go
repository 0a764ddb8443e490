package game

import (
	"context"
	"fmt"
	"math/rand"
)

// PlaceShip puts a ship on the board if every cell is on the board and Empty.
// On failure the board is left untouched.
func PlaceShip(b *Board, p Placement) (*Ship, error) {
	cells := p.Cells()
	for _, c := range cells {
		s, ok := b.Cell(c)
		if !ok || s != Empty {
			return nil, fmt.Errorf("%w: %s at %s", ErrOverlapOrBounds, p.Type, c)
		}
	}
	for _, c := range cells {
		b.cells[b.index(c)] = ShipPresent
	}
	return &Ship{Type: p.Type, Anchor: p.Anchor, Orientation: p.Orientation, Cells: cells}, nil
}

// Deploy places p on b and records the ship in f.
func Deploy(b *Board, f *Fleet, p Placement) (*Ship, error) {
	if f.Ship(p.Type) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateShip, p.Type)
	}
	s, err := PlaceShip(b, p)
	if err != nil {
		return nil, err
	}
	return s, f.Add(s)
}

// PlacementSource supplies anchor and orientation for the next ship.
// rejected carries the reason the previous request for the same ship failed.
type PlacementSource interface {
	NextPlacement(ctx context.Context, t ShipType, b *Board, rejected error) (Placement, error)
}

// PlaceFleet builds a board of the given size from requests of src, largest
// ship first, re-asking src until each ship fits.
func PlaceFleet(ctx context.Context, size int, src PlacementSource) (*Board, *Fleet, error) {
	b, err := NewBoard(size)
	if err != nil {
		return nil, nil, err
	}
	f := NewFleet()
	for _, t := range StandardFleet {
		var rejected error
		for {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			p, err := src.NextPlacement(ctx, t, b, rejected)
			if err != nil {
				return nil, nil, err
			}
			p.Type = t
			if _, rejected = Deploy(b, f, p); rejected == nil {
				break
			}
		}
	}
	return b, f, nil
}

// RandomPlacement samples a uniform anchor and orientation; it may not fit.
func RandomPlacement(t ShipType, size int, rng *rand.Rand) Placement {
	o := Orientation(rng.Intn(2))
	return Placement{
		Type:        t,
		Anchor:      Coord{X: rng.Intn(size), Y: rng.Intn(size)},
		Orientation: o,
	}
}

// RandomFleet places the standard fleet at random. Retries are unbounded:
// the fleet always fits on boards of MinSize or larger.
func RandomFleet(size int, rng *rand.Rand) (*Board, *Fleet, error) {
	return PlaceFleet(context.Background(), size, RandomSource{Rand: rng})
}

// RandomSource answers every placement request with a random placement.
type RandomSource struct{ Rand *rand.Rand }

func (r RandomSource) NextPlacement(_ context.Context, t ShipType, b *Board, _ error) (Placement, error) {
	return RandomPlacement(t, b.Size(), r.Rand), nil
}
