package zk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"

	"seabattle/internal/merkle"
)

const (
	vkFile = "shot.vk"
	pkFile = "shot.pk"
)

var ErrRootMismatch = errors.New("proof root does not match the commitment")

// ShotPublic is what a verifier learns from a shot proof.
type ShotPublic struct {
	Root  *big.Int `json:"root"`
	Index int      `json:"index"`
	Hit   uint8    `json:"hit"`
}

func compile() (constraint.ConstraintSystem, error) {
	var circuit ShotCircuit
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
}

// EnsureShotKeys makes sure dir holds a proving and verifying key pair,
// running a fresh setup when either is missing or unreadable.
func EnsureShotKeys(dir string, log zerolog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	vkPath, pkPath := filepath.Join(dir, vkFile), filepath.Join(dir, pkFile)

	if vk, pk, err := readKeys(vkPath, pkPath); err == nil && vk != nil && pk != nil {
		log.Info().Str("dir", dir).Msg("reusing shot keys")
		return nil
	}

	cs, err := compile()
	if err != nil {
		return err
	}
	log.Info().Int("constraints", cs.GetNbConstraints()).Msg("running groth16 setup")
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return err
	}

	if err := writeKey(vkPath, vk); err != nil {
		return err
	}
	if err := writeKey(pkPath, pk); err != nil {
		return err
	}
	log.Info().Str("dir", dir).Msg("shot keys written")
	return nil
}

// Prover holds the compiled circuit and proving key, so each proof costs
// only the proving itself.
type Prover struct {
	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
}

type Verifier struct {
	vk groth16.VerifyingKey
}

// Setup runs an in-memory setup, for servers without a key directory.
func Setup() (*Prover, *Verifier, error) {
	cs, err := compile()
	if err != nil {
		return nil, nil, err
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, nil, err
	}
	return &Prover{cs: cs, pk: pk}, &Verifier{vk: vk}, nil
}

func LoadProver(dir string) (*Prover, error) {
	cs, err := compile()
	if err != nil {
		return nil, err
	}
	pk, err := readPK(filepath.Join(dir, pkFile))
	if err != nil {
		return nil, fmt.Errorf("proving key: %w", err)
	}
	return &Prover{cs: cs, pk: pk}, nil
}

func LoadVerifier(dir string) (*Verifier, error) {
	vk, err := readVK(filepath.Join(dir, vkFile))
	if err != nil {
		return nil, fmt.Errorf("verifying key: %w", err)
	}
	return &Verifier{vk: vk}, nil
}

// Prove one shot from the opening of the cell that was fired at.
func (p *Prover) Prove(root *big.Int, o merkle.Opening) ([]byte, ShotPublic, error) {
	if len(o.Path) != MerkleDepth {
		return nil, ShotPublic{}, errors.New("bad path length")
	}

	var assign ShotCircuit
	assign.Bit = o.Bit
	assign.Nonce = o.Nonce
	for i := 0; i < MerkleDepth; i++ {
		assign.Path[i] = o.Path[i]
	}
	assign.Root = root
	assign.Index = o.Index
	assign.Hit = o.Bit

	fullWit, err := frontend.NewWitness(&assign, ecc.BN254.ScalarField())
	if err != nil {
		return nil, ShotPublic{}, err
	}
	proof, err := groth16.Prove(p.cs, p.pk, fullWit)
	if err != nil {
		return nil, ShotPublic{}, err
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, ShotPublic{}, err
	}
	return buf.Bytes(), ShotPublic{Root: new(big.Int).Set(root), Index: o.Index, Hit: o.Bit}, nil
}

// Verify checks a shot proof against the commitment root the verifier
// recorded before play. nil means valid.
func (v *Verifier) Verify(proofBin []byte, pub ShotPublic, root *big.Int) error {
	if pub.Root == nil {
		return errors.New("proof payload missing public root")
	}
	if pub.Root.Cmp(root) != 0 {
		return ErrRootMismatch
	}

	var pubAssign ShotCircuit
	pubAssign.Root = root
	pubAssign.Index = pub.Index
	pubAssign.Hit = pub.Hit

	pubWit, err := frontend.NewWitness(&pubAssign, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}

	pr := groth16.NewProof(ecc.BN254)
	if _, err := pr.ReadFrom(bytes.NewReader(proofBin)); err != nil {
		return err
	}
	return groth16.Verify(pr, v.vk, pubWit)
}

// --- key IO helpers using io.WriterTo / io.ReaderFrom ---

func writeKey(path string, key io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := key.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readVK(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

func readPK(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

func readKeys(vkPath, pkPath string) (groth16.VerifyingKey, groth16.ProvingKey, error) {
	vk, err := readVK(vkPath)
	if err != nil {
		return nil, nil, err
	}
	pk, err := readPK(pkPath)
	if err != nil {
		return nil, nil, err
	}
	return vk, pk, nil
}
