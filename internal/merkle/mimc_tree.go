package merkle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bnmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// --- encode BN254 field elements as 32-byte big-endian ---
func feBytes(x *big.Int) []byte {
	b := x.Bytes()
	if len(b) == 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func bytesToFE(b []byte) *big.Int { return new(big.Int).SetBytes(b) }

// HashLeafMiMC hides a cell bit behind its nonce. Must match the in-circuit
// leaf hash: MiMC(bit, nonce).
func HashLeafMiMC(bit uint8, nonce *big.Int) *big.Int {
	h := bnmimc.NewMiMC()
	h.Write(feBytes(new(big.Int).SetUint64(uint64(bit))))
	h.Write(feBytes(nonce))
	return bytesToFE(h.Sum(nil))
}

func HashNodeMiMC(left, right *big.Int) *big.Int {
	h := bnmimc.NewMiMC()
	h.Write(feBytes(left))
	h.Write(feBytes(right))
	return bytesToFE(h.Sum(nil))
}

// RandomElement draws a uniform BN254 scalar from crypto/rand.
func RandomElement() (*big.Int, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return nil, err
	}
	return e.BigInt(new(big.Int)), nil
}

// Fixed-size binary Merkle tree stored level-by-level.
type Tree struct {
	Depth  int          `json:"depth"`
	Levels [][]*big.Int `json:"levels"` // Levels[0]=leaves, Levels[Depth]=root
}

func BuildFixedTree(leaves []*big.Int, size int, padLeaf *big.Int,
	hashMerge func(*big.Int, *big.Int) *big.Int) (*Tree, error) {

	if size < 2 || size&(size-1) != 0 {
		return nil, errors.New("size must be a power of two")
	}
	if len(leaves) > size {
		return nil, errors.New("too many leaves")
	}

	L0 := make([]*big.Int, size)
	for i := range L0 {
		if i < len(leaves) {
			L0[i] = new(big.Int).Set(leaves[i])
		} else {
			L0[i] = new(big.Int).Set(padLeaf)
		}
	}
	levels := [][]*big.Int{L0}

	for n := size; n > 1; n /= 2 {
		prev := levels[len(levels)-1]
		up := make([]*big.Int, n/2)
		for i := range up {
			up[i] = hashMerge(prev[2*i], prev[2*i+1])
		}
		levels = append(levels, up)
	}

	return &Tree{Depth: len(levels) - 1, Levels: levels}, nil
}

func (t *Tree) Root() *big.Int { return new(big.Int).Set(t.Levels[len(t.Levels)-1][0]) }

// Path returns the sibling hashes from leaf idx up to the root.
func (t *Tree) Path(idx int) ([]*big.Int, error) {
	if idx < 0 || idx >= len(t.Levels[0]) {
		return nil, fmt.Errorf("leaf index %d out of range", idx)
	}
	path := make([]*big.Int, 0, t.Depth)
	cur := idx
	for level := 0; level < t.Depth; level++ {
		path = append(path, new(big.Int).Set(t.Levels[level][cur^1]))
		cur /= 2
	}
	return path, nil
}

// Dirs expands idx into per-level direction bits, least significant first.
// dir[i]=0 means the running hash is the left child at level i.
func Dirs(idx, depth int) []uint8 {
	dir := make([]uint8, depth)
	for i := range dir {
		dir[i] = uint8(idx>>i) & 1
	}
	return dir
}

// RootFromPath folds leaf up through path, steering with the bits of idx.
func RootFromPath(leaf *big.Int, idx int, path []*big.Int) *big.Int {
	cur := leaf
	for i, sib := range path {
		if (idx>>i)&1 == 1 {
			cur = HashNodeMiMC(sib, cur)
		} else {
			cur = HashNodeMiMC(cur, sib)
		}
	}
	return cur
}
