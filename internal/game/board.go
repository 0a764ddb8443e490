package game

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

const (
	MinSize = 5
	MaxSize = 26
)

var (
	ErrBoardSize       = errors.New("board size out of range")
	ErrOutOfBounds     = errors.New("coordinate outside board")
	ErrAlreadyResolved = errors.New("cell already resolved")
	ErrOverlapOrBounds = errors.New("ship overlaps another ship or leaves the board")
	errTransition      = errors.New("illegal cell transition")
)

// CellState is the state of one tile. Transitions only move forward:
// Empty -> ShipPresent -> Hit -> Sunk, or Empty -> Miss.
type CellState uint8

const (
	Empty CellState = iota
	ShipPresent
	Hit
	Miss
	Sunk
)

var cellNames = [...]string{"empty", "ship", "hit", "miss", "sunk"}

func (s CellState) String() string {
	if int(s) < len(cellNames) {
		return cellNames[s]
	}
	return fmt.Sprintf("CellState(%d)", uint8(s))
}

// Resolved reports whether the cell has already been shot at.
func (s CellState) Resolved() bool { return s == Hit || s == Miss || s == Sunk }

func canAdvance(from, to CellState) bool {
	switch from {
	case Empty:
		return to == ShipPresent || to == Miss
	case ShipPresent:
		return to == Hit
	case Hit:
		return to == Sunk
	}
	return false
}

// Coord is a 0-indexed (x, y) position; X is the column, Y the row.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NoCoord lies outside every supported board and marks "no target".
var NoCoord = Coord{X: 27, Y: 27}

func (c Coord) Step(d Direction) Coord { return Coord{X: c.X + d.DX, Y: c.Y + d.DY} }

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

type Direction struct{ DX, DY int }

var (
	Right = Direction{DX: 1}
	Left  = Direction{DX: -1}
	Up    = Direction{DY: -1}
	Down  = Direction{DY: 1}
)

// Board is an N x N grid of cells stored row-major.
type Board struct {
	size  int
	cells []CellState
}

func NewBoard(size int) (*Board, error) {
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrBoardSize, size, MinSize, MaxSize)
	}
	return &Board{size: size, cells: make([]CellState, size*size)}, nil
}

// ClampSize forces a requested board size into [MinSize, MaxSize].
func ClampSize(n int) int {
	if n > MaxSize {
		return MaxSize
	}
	if n < MinSize {
		return MinSize
	}
	return n
}

func (b *Board) Size() int { return b.size }

// Clone returns an independent copy of b.
func (b *Board) Clone() *Board {
	return &Board{size: b.size, cells: append([]CellState(nil), b.cells...)}
}

func (b *Board) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < b.size && c.Y >= 0 && c.Y < b.size
}

func (b *Board) index(c Coord) int { return c.Y*b.size + c.X }

// CellIndex is the row-major position of c, also its Occupancy bit.
func (b *Board) CellIndex(c Coord) int { return b.index(c) }

// Cell returns the true state of c; ok is false when c is off the board.
func (b *Board) Cell(c Coord) (CellState, bool) {
	if !b.InBounds(c) {
		return Empty, false
	}
	return b.cells[b.index(c)], true
}

func (b *Board) set(c Coord, s CellState) error {
	i := b.index(c)
	if !canAdvance(b.cells[i], s) {
		return fmt.Errorf("%w: %s %s -> %s", errTransition, c, b.cells[i], s)
	}
	b.cells[i] = s
	return nil
}

// Rows returns a copy of the grid indexed [y][x].
func (b *Board) Rows() [][]CellState {
	out := make([][]CellState, b.size)
	for y := range out {
		out[y] = make([]CellState, b.size)
		copy(out[y], b.cells[y*b.size:(y+1)*b.size])
	}
	return out
}

// Occupancy has bit y*N+x set for every cell a ship was placed on,
// whatever has happened to it since.
func (b *Board) Occupancy() *bitset.BitSet {
	bs := bitset.New(uint(len(b.cells)))
	for i, s := range b.cells {
		if s == ShipPresent || s == Hit || s == Sunk {
			bs.Set(uint(i))
		}
	}
	return bs
}

// Radar is what a shooter may know about an enemy board.
type Radar interface {
	Size() int
	// Visible returns the state of c with placed ships reported as Empty.
	Visible(c Coord) (CellState, bool)
}

type radar struct{ b *Board }

func (r radar) Size() int { return r.b.size }

func (r radar) Visible(c Coord) (CellState, bool) {
	s, ok := r.b.Cell(c)
	if s == ShipPresent {
		s = Empty
	}
	return s, ok
}

// Radar returns the enemy-side view of b.
func (b *Board) Radar() Radar { return radar{b: b} }
