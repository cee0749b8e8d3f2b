// Package accumulator implements a positive pairing-based accumulator
// over BLS12-381. An accumulator value V represents a set of scalar
// elements; for each member y the issuer can derive a membership witness
// C = V^(1/(y+α)) which anyone can check against the public key
// Q̃ = α·P̃ via the pairing equation e(C, y·P̃ + Q̃) == e(V, P̃).
//
// The element stays external to the witness so a verifier can recompute
// it from claim data and bind the check to that exact value.
package accumulator

import (
	"io"

	"github.com/coinbase/kryptology/pkg/core/curves"
	"github.com/pkg/errors"
)

var (
	ErrAccumulation      = errors.New("batch accumulation failed")
	ErrWitnessDerivation = errors.New("membership witness derivation failed")
	ErrMembership        = errors.New("membership verification failed")
)

// Params carries the public setup: the curve, the G1 base point the
// accumulator starts from and the G2 base point keys are built on.
type Params struct {
	curve  *curves.PairingCurve
	p      curves.Point // G1
	pTilde curves.Point // G2
}

// NewParams generates setup parameters. The G1 base is hashed from a
// random seed so distinct setups use independent bases.
func NewParams(rng io.Reader) (*Params, error) {
	curve := curves.BLS12381(&curves.PointBls12381G1{})
	seed := make([]byte, 32)
	if _, err := io.ReadFull(rng, seed); err != nil {
		return nil, errors.Wrap(err, "setup seed")
	}
	return &Params{
		curve:  curve,
		p:      curve.PointG1.Hash(seed),
		pTilde: curve.PointG2.Generator(),
	}, nil
}

// SecretKey is the accumulator manager's trapdoor α.
type SecretKey struct {
	alpha curves.Scalar
}

// PublicKey is Q̃ = α·P̃ in G2.
type PublicKey struct {
	qTilde curves.Point
}

// Keypair bundles the accumulator manager's keys.
type Keypair struct {
	Secret *SecretKey
	Public *PublicKey
}

// GenerateKeypair draws α from rng and derives the public key.
func (p *Params) GenerateKeypair(rng io.Reader) (*Keypair, error) {
	alpha := p.curve.Scalar.Random(rng)
	if alpha.IsZero() {
		return nil, errors.New("degenerate secret key")
	}
	return &Keypair{
		Secret: &SecretKey{alpha: alpha},
		Public: &PublicKey{qTilde: p.pTilde.Mul(alpha)},
	}, nil
}

// State is the auxiliary ledger of currently accumulated elements. It is
// owned by a single issuance call and required for witness derivation.
type State struct {
	elements map[string]struct{}
}

// NewState returns an empty ledger.
func NewState() *State {
	return &State{elements: make(map[string]struct{})}
}

func (s *State) has(y curves.Scalar) bool {
	_, ok := s.elements[string(y.Bytes())]
	return ok
}

func (s *State) add(y curves.Scalar) {
	s.elements[string(y.Bytes())] = struct{}{}
}

// Size reports the number of accumulated elements.
func (s *State) Size() int { return len(s.elements) }

// Accumulator is the algebraic set representative, a point in G1.
type Accumulator struct {
	v curves.Point
}

// NewAccumulator initializes an empty accumulator at the G1 base point.
func (p *Params) NewAccumulator() *Accumulator {
	return &Accumulator{v: p.p}
}

// AddBatch accumulates all elements in a single exponentiation
// V' = V^(∏(yᵢ+α)) and records them in the state. Duplicate or
// degenerate elements fail the whole batch.
func (a *Accumulator) AddBatch(sk *SecretKey, elements []curves.Scalar, st *State) (*Accumulator, error) {
	if len(elements) == 0 {
		return &Accumulator{v: a.v}, nil
	}
	prod := sk.alpha.One()
	for _, y := range elements {
		if st.has(y) {
			return nil, errors.Wrap(ErrAccumulation, "element already accumulated")
		}
		t := y.Add(sk.alpha)
		if t.IsZero() {
			return nil, errors.Wrap(ErrAccumulation, "element cancels the secret key")
		}
		prod = prod.Mul(t)
		st.add(y)
	}
	return &Accumulator{v: a.v.Mul(prod)}, nil
}

// MembershipWitness derives the witness for one element against this
// accumulator value. The element must be present in the state: witnesses
// are only meaningful for the set the accumulator actually represents.
func (a *Accumulator) MembershipWitness(sk *SecretKey, y curves.Scalar, st *State) (*Witness, error) {
	if !st.has(y) {
		return nil, errors.Wrap(ErrWitnessDerivation, "element is not accumulated")
	}
	d := y.Add(sk.alpha)
	inv, err := d.Invert()
	if err != nil {
		return nil, errors.Wrap(ErrWitnessDerivation, err.Error())
	}
	return &Witness{c: a.v.Mul(inv)}, nil
}

// Witness proves membership of one element in one accumulator value.
type Witness struct {
	c curves.Point
}

// Verify checks e(C, y·P̃ + Q̃) == e(V, P̃). It reads only immutable
// values and is safe to call concurrently.
func (w *Witness) Verify(y curves.Scalar, pk *PublicKey, params *Params, acc *Accumulator) error {
	t := params.pTilde.Mul(y).Add(pk.qTilde)
	c, ok := w.c.(curves.PairingPoint)
	if !ok {
		return errors.Wrap(ErrMembership, "witness point is not pairable")
	}
	v, ok := acc.v.(curves.PairingPoint)
	if !ok {
		return errors.Wrap(ErrMembership, "accumulator point is not pairable")
	}
	rhsG2, ok := params.pTilde.(curves.PairingPoint)
	if !ok {
		return errors.Wrap(ErrMembership, "setup point is not pairable")
	}
	lhsG2, ok := t.(curves.PairingPoint)
	if !ok {
		return errors.Wrap(ErrMembership, "derived point is not pairable")
	}
	lhs := c.Pairing(lhsG2)
	rhs := v.Pairing(rhsG2)
	if lhs.Cmp(rhs) != 0 {
		return ErrMembership
	}
	return nil
}

// HashToElement maps arbitrary bytes one-way into the scalar field.
func (p *Params) HashToElement(data []byte) curves.Scalar {
	return p.curve.Scalar.Hash(data)
}
