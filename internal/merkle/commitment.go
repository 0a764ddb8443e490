package merkle

import (
	"fmt"
	"math/big"

	"github.com/bits-and-blooms/bitset"
)

// Depth of board commitments: 1024 leaves cover the largest 26x26 board.
const Depth = 10

const Leaves = 1 << Depth

// Commitment binds a board's occupancy before play starts. Each leaf is
// MiMC(bit, nonce) with its own random nonce, so an opening of one cell
// says nothing about its neighbours.
type Commitment struct {
	tree   *Tree
	bits   *bitset.BitSet
	nonces []*big.Int
	cells  int
}

// Commit builds the commitment for the first cells bits of occ. Leaves past
// the board commit to 0.
func Commit(occ *bitset.BitSet, cells int) (*Commitment, error) {
	if cells < 0 || cells > Leaves {
		return nil, fmt.Errorf("%d cells do not fit %d leaves", cells, Leaves)
	}
	nonces := make([]*big.Int, Leaves)
	leaves := make([]*big.Int, Leaves)
	for i := range leaves {
		n, err := RandomElement()
		if err != nil {
			return nil, fmt.Errorf("nonce: %w", err)
		}
		nonces[i] = n
		leaves[i] = HashLeafMiMC(bitAt(occ, i, cells), n)
	}
	tree, err := BuildFixedTree(leaves, Leaves, nil, HashNodeMiMC)
	if err != nil {
		return nil, err
	}
	return &Commitment{tree: tree, bits: occ.Clone(), nonces: nonces, cells: cells}, nil
}

func bitAt(occ *bitset.BitSet, i, cells int) uint8 {
	if i < cells && occ.Test(uint(i)) {
		return 1
	}
	return 0
}

// Root is the public commitment value.
func (c *Commitment) Root() *big.Int { return c.tree.Root() }

func (c *Commitment) Cells() int { return c.cells }

// Opening reveals one committed cell.
type Opening struct {
	Index int        `json:"index"`
	Bit   uint8      `json:"bit"`
	Nonce *big.Int   `json:"nonce"`
	Path  []*big.Int `json:"path"`
}

func (c *Commitment) Open(idx int) (Opening, error) {
	if idx < 0 || idx >= c.cells {
		return Opening{}, fmt.Errorf("cell %d outside the committed board", idx)
	}
	path, err := c.tree.Path(idx)
	if err != nil {
		return Opening{}, err
	}
	return Opening{
		Index: idx,
		Bit:   bitAt(c.bits, idx, c.cells),
		Nonce: new(big.Int).Set(c.nonces[idx]),
		Path:  path,
	}, nil
}

// Verify reports whether o opens root.
func (o Opening) Verify(root *big.Int) bool {
	if o.Nonce == nil || len(o.Path) != Depth || o.Bit > 1 || o.Index < 0 || o.Index >= Leaves {
		return false
	}
	return RootFromPath(HashLeafMiMC(o.Bit, o.Nonce), o.Index, o.Path).Cmp(root) == 0
}
