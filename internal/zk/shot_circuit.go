package zk

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"seabattle/internal/merkle"
)

const MerkleDepth = merkle.Depth // 1024 leaves

// ShotCircuit proves that the cell at Index of the board committed to by
// Root holds Hit, without revealing the nonce or any other cell.
type ShotCircuit struct {
	Bit   frontend.Variable              `gnark:",secret"`
	Nonce frontend.Variable              `gnark:",secret"`
	Path  [MerkleDepth]frontend.Variable `gnark:",secret"`

	Root  frontend.Variable `gnark:",public"`
	Index frontend.Variable `gnark:",public"`
	Hit   frontend.Variable `gnark:",public"`
}

func (c *ShotCircuit) Define(api frontend.API) error {
	api.AssertIsBoolean(c.Bit)
	api.AssertIsEqual(c.Hit, c.Bit)

	// direction bits come from the public index, so the proof is bound to
	// the cell that was shot at
	dir := api.ToBinary(c.Index, MerkleDepth)

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Reset()
	h.Write(c.Bit, c.Nonce)
	curr := h.Sum()

	for i := 0; i < MerkleDepth; i++ {
		h.Reset()
		left := api.Select(dir[i], c.Path[i], curr)
		right := api.Select(dir[i], curr, c.Path[i])
		h.Write(left, right)
		curr = h.Sum()
	}

	api.AssertIsEqual(curr, c.Root)
	return nil
}
