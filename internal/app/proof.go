package app

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"seabattle/internal/codec"
	"seabattle/internal/zk"
)

var ErrBadProof = errors.New("shot proof rejected")

// Proof opens the target cell of shot n (1-based) against the target's
// commitment, and proves it in zero knowledge when the service has a prover.
func (s *Service) Proof(id string, n int) (codec.ShotProofPayload, error) {
	sess, err := s.lock(id)
	if err != nil {
		return codec.ShotProofPayload{}, err
	}
	if n < 1 || n > len(sess.shots) {
		sess.mu.Unlock()
		return codec.ShotProofPayload{}, fmt.Errorf("%w: shot %d of %d", ErrNotFound, n, len(sess.shots))
	}
	tr := sess.shots[n-1]
	target := 1 - tr.Shooter
	commit := sess.commits[target]
	opening, err := commit.Open(sess.boards[target].CellIndex(tr.Report.Coord))
	sess.mu.Unlock()
	if err != nil {
		return codec.ShotProofPayload{}, err
	}

	root := commit.Root()
	payload := codec.ShotProofPayload{
		Shot:    n,
		Target:  target,
		Root:    fmt.Sprintf("0x%x", root),
		Opening: opening,
	}
	if s.prover == nil {
		return payload, nil
	}

	// proving is slow; the session lock is not held
	proof, pub, err := s.prover.Prove(root, opening)
	if err != nil {
		return codec.ShotProofPayload{}, fmt.Errorf("prove shot %d: %w", n, err)
	}
	payload.Proof = proof
	payload.Public = &pub
	sess.log.Debug().Int("shot", n).Int("bytes", len(proof)).Msg("shot proved")
	return payload, nil
}

type VerifyResult struct {
	Hit    bool `json:"hit"`
	Proved bool `json:"proved"` // checked by Groth16 proof, not only by opening
}

// ParseRoot reads a commitment root as printed by the service ("0x..." hex).
func ParseRoot(s string) (*big.Int, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	root, ok := new(big.Int).SetString(h, 16)
	if !ok {
		return nil, fmt.Errorf("%w: root %q", ErrBadRequest, s)
	}
	return root, nil
}

// VerifyPayload checks a shot payload against the root the verifier saw
// before play started. v may be nil when only the opening is checked.
func VerifyPayload(v *zk.Verifier, root *big.Int, p codec.ShotProofPayload) (VerifyResult, error) {
	claimed, err := ParseRoot(p.Root)
	if err != nil {
		return VerifyResult{}, err
	}
	if claimed.Cmp(root) != 0 {
		return VerifyResult{}, zk.ErrRootMismatch
	}
	if !p.Opening.Verify(root) {
		return VerifyResult{}, fmt.Errorf("%w: opening does not match the commitment", ErrBadProof)
	}
	res := VerifyResult{Hit: p.Opening.Bit == 1}
	if len(p.Proof) == 0 {
		return res, nil
	}

	if v == nil {
		return VerifyResult{}, errors.New("payload carries a proof but no verifying key was given")
	}
	if p.Public == nil || p.Public.Index != p.Opening.Index || p.Public.Hit != p.Opening.Bit {
		return VerifyResult{}, fmt.Errorf("%w: public inputs disagree with the opening", ErrBadProof)
	}
	if err := v.Verify(p.Proof, *p.Public, root); err != nil {
		return VerifyResult{}, fmt.Errorf("%w: %v", ErrBadProof, err)
	}
	res.Proved = true
	return res, nil
}
