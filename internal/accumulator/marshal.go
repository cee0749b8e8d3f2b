package accumulator

import "github.com/pkg/errors"

// Compressed-point encodings. Deserialization needs the curve, so the
// unmarshal side lives on Params.

// MarshalBinary returns the compressed G1 encoding of the accumulator.
func (a *Accumulator) MarshalBinary() []byte {
	return a.v.ToAffineCompressed()
}

// UnmarshalAccumulator decodes a compressed accumulator value.
func (p *Params) UnmarshalAccumulator(b []byte) (*Accumulator, error) {
	pt, err := p.curve.PointG1.FromAffineCompressed(b)
	if err != nil {
		return nil, errors.Wrap(err, "accumulator point")
	}
	return &Accumulator{v: pt}, nil
}

// MarshalBinary returns the compressed G1 encoding of the witness.
func (w *Witness) MarshalBinary() []byte {
	return w.c.ToAffineCompressed()
}

// UnmarshalWitness decodes a compressed membership witness.
func (p *Params) UnmarshalWitness(b []byte) (*Witness, error) {
	pt, err := p.curve.PointG1.FromAffineCompressed(b)
	if err != nil {
		return nil, errors.Wrap(err, "witness point")
	}
	return &Witness{c: pt}, nil
}

// MarshalBinary returns the compressed G2 encoding of the public key.
func (pk *PublicKey) MarshalBinary() []byte {
	return pk.qTilde.ToAffineCompressed()
}

// UnmarshalPublicKey decodes a compressed public key.
func (p *Params) UnmarshalPublicKey(b []byte) (*PublicKey, error) {
	pt, err := p.curve.PointG2.FromAffineCompressed(b)
	if err != nil {
		return nil, errors.Wrap(err, "public key point")
	}
	return &PublicKey{qTilde: pt}, nil
}

// MarshalBinary returns the scalar encoding of the secret key.
func (sk *SecretKey) MarshalBinary() []byte {
	return sk.alpha.Bytes()
}
