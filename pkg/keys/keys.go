// Package keys generates the ES256 key pairs used to sign presentation
// envelopes and, for the hash-based schemes, issuer proof material.
// Randomness is always taken from the caller-supplied reader so tests can
// run deterministically.
package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"io"

	"github.com/pkg/errors"
)

// ErrKeyGeneration reports that key material could not be constructed.
var ErrKeyGeneration = errors.New("key generation failed")

// Pair holds the PEM encodings of an ES256 key pair. The PEM form is what
// the envelope codec consumes.
type Pair struct {
	Public  []byte
	Private []byte
}

// GenerateES256 creates a fresh P-256 key pair from the given randomness
// source.
func GenerateES256(rng io.Reader) (*Pair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rng)
	if err != nil {
		return nil, errors.Wrap(ErrKeyGeneration, err.Error())
	}
	privDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return nil, errors.Wrap(ErrKeyGeneration, err.Error())
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, errors.Wrap(ErrKeyGeneration, err.Error())
	}
	return &Pair{
		Public:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
		Private: pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privDER}),
	}, nil
}

// ReadSeed draws n bytes from rng, for libraries that take seed material
// instead of a reader.
func ReadSeed(rng io.Reader, n int) ([]byte, error) {
	seed := make([]byte, n)
	if _, err := io.ReadFull(rng, seed); err != nil {
		return nil, errors.Wrap(err, "read seed")
	}
	return seed, nil
}
