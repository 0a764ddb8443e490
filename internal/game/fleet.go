package game

import (
	"errors"
	"fmt"
)

var ErrDuplicateShip = errors.New("ship type already placed")

type ShipType uint8

const (
	Carrier ShipType = iota
	Battleship
	Destroyer
	Submarine
	PatrolBoat
)

// StandardFleet lists the five ship types largest first; placement follows this order.
var StandardFleet = []ShipType{Carrier, Battleship, Destroyer, Submarine, PatrolBoat}

var shipSizes = [...]int{5, 4, 3, 3, 2} // total 17

var shipNames = [...]string{"Carrier", "Battleship", "Destroyer", "Submarine", "Patrol Boat"}

func (t ShipType) Size() int { return shipSizes[t] }

func (t ShipType) String() string {
	if int(t) < len(shipNames) {
		return shipNames[t]
	}
	return fmt.Sprintf("ShipType(%d)", uint8(t))
}

// Orientation of a ship: Horizontal grows along +X, Vertical along +Y.
type Orientation uint8

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Placement asks for a ship of Type anchored at its top or left cell.
type Placement struct {
	Type        ShipType    `json:"type"`
	Anchor      Coord       `json:"anchor"`
	Orientation Orientation `json:"orientation"`
}

func (p Placement) Cells() []Coord {
	d := Right
	if p.Orientation == Vertical {
		d = Down
	}
	cells := make([]Coord, p.Type.Size())
	c := p.Anchor
	for i := range cells {
		cells[i] = c
		c = c.Step(d)
	}
	return cells
}

// Ship owns the list of coordinates it occupies; hit and sunk checks re-read
// the board through them.
type Ship struct {
	Type        ShipType
	Anchor      Coord
	Orientation Orientation
	Cells       []Coord
	Sunk        bool
}

// Fleet is one player's ships indexed by type.
type Fleet struct {
	ships []*Ship
}

func NewFleet() *Fleet { return &Fleet{} }

// Add records a placed ship. Each type may appear once.
func (f *Fleet) Add(s *Ship) error {
	if f.Ship(s.Type) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateShip, s.Type)
	}
	f.ships = append(f.ships, s)
	return nil
}

func (f *Fleet) Ship(t ShipType) *Ship {
	for _, s := range f.ships {
		if s.Type == t {
			return s
		}
	}
	return nil
}

// Clone copies the fleet and every ship record in it.
func (f *Fleet) Clone() *Fleet {
	c := &Fleet{ships: make([]*Ship, len(f.ships))}
	for i, s := range f.ships {
		cp := *s
		cp.Cells = append([]Coord(nil), s.Cells...)
		c.ships[i] = &cp
	}
	return c
}

// Ships returns the placed ships in placement order.
func (f *Fleet) Ships() []*Ship { return f.ships }

// Next returns the largest standard ship type not placed yet.
func (f *Fleet) Next() (ShipType, bool) {
	for _, t := range StandardFleet {
		if f.Ship(t) == nil {
			return t, true
		}
	}
	return 0, false
}

// Complete reports whether every standard ship type has been placed.
func (f *Fleet) Complete() bool {
	_, missing := f.Next()
	return !missing
}

// Destroyed reports whether every ship of the fleet is sunk.
func (f *Fleet) Destroyed() bool {
	if len(f.ships) == 0 {
		return false
	}
	for _, s := range f.ships {
		if !s.Sunk {
			return false
		}
	}
	return true
}
