// Package bbsplus implements selective disclosure with BBS+ signatures.
// The issuer signs every claim as one message vector; the holder derives
// a zero-knowledge proof of knowledge revealing only the chosen message
// indices. Unlike the digest-based schemes the claims stay in the
// document, so no proof-value container is needed.
package bbsplus

import (
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"github.com/suutaku/go-bbs/pkg/bbs"

	"github.com/suutaku/go-sdvc/pkg/adapter"
	"github.com/suutaku/go-sdvc/pkg/claims"
	"github.com/suutaku/go-sdvc/pkg/envelope"
	"github.com/suutaku/go-sdvc/pkg/keys"
)

const (
	// Name identifies the scheme.
	Name = "BBS+"

	signatureField = "signature"
	indicesField   = "indices"
	nonceField     = "nonce"

	seedLen  = 32
	nonceLen = 32
)

// Scheme holds the issuer BBS+ key pair and the holder key pair.
type Scheme struct {
	algo   *bbs.Bbs
	pub    *bbs.PublicKey
	priv   *bbs.PrivateKey
	holder *keys.Pair
	rng    io.Reader
}

var _ adapter.Adapter = (*Scheme)(nil)

// New generates a BBS+ key pair from a seed drawn from rng.
func New(claimCount int, holder *keys.Pair, rng io.Reader) (*Scheme, error) {
	_ = claimCount
	seed, err := keys.ReadSeed(rng, seedLen)
	if err != nil {
		return nil, adapter.Wrap(adapter.ErrKeyGeneration, err)
	}
	pub, priv, err := bbs.GenerateKeyPair(sha256.New, seed)
	if err != nil {
		return nil, adapter.Wrap(adapter.ErrKeyGeneration, err)
	}
	return &Scheme{
		algo:   bbs.NewBbs(),
		pub:    pub,
		priv:   priv,
		holder: holder,
		rng:    rng,
	}, nil
}

// Name implements adapter.Adapter.
func (s *Scheme) Name() string { return Name }

// IssueCredential signs the claim messages in canonical order. The
// claims remain in the document next to the signature.
func (s *Scheme) IssueCredential(raw map[string]interface{}) (map[string]interface{}, string, error) {
	set, err := claims.Extract(raw)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	sig, err := s.algo.SignWithKey(claims.ToCanonicalBytes(set), s.priv)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	vc, err := envelope.SetField(raw, signatureField, envelope.EncodeBinary(sig))
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	env, err := envelope.Encode(vc)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	return vc, env, nil
}

// VerifyCredential checks the BBS+ signature over the full message
// vector.
func (s *Scheme) VerifyCredential(vc map[string]interface{}) error {
	set, err := claims.Extract(vc)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	sig, err := s.signatureBytes(vc)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	pubBytes, err := s.pub.Marshal()
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	if err := s.algo.Verify(claims.ToCanonicalBytes(set), sig, pubBytes); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	return nil
}

// IssuePresentation derives a proof of knowledge revealing only the
// disclosed message indices under a fresh nonce. Indices address the
// signed message vector, so non-string claims, which carry no message,
// can never be disclosed. When nothing is disclosed no proof exists to
// derive; the holder-signed envelope then carries just the empty
// claim-set.
func (s *Scheme) IssuePresentation(vc map[string]interface{}, disclosed []string) (map[string]interface{}, string, error) {
	set, err := claims.Extract(vc)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	msgs := claims.ToCanonicalBytes(set)
	filtered, indices, err := claims.FilterByDisclosure(vc, disclosed)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	if len(indices) == 0 {
		vp := make(map[string]interface{}, len(filtered))
		for k, v := range filtered {
			if k == signatureField {
				continue
			}
			vp[k] = v
		}
		env, err := envelope.EncodeSigned(vp, s.holder.Private)
		if err != nil {
			return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
		}
		return vp, env, nil
	}
	sig, err := s.signatureBytes(vc)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	nonce, err := keys.ReadSeed(s.rng, nonceLen)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	pubBytes, err := s.pub.Marshal()
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	proof, err := s.algo.DeriveProof(msgs, sig, nonce, pubBytes, indices)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}

	vp, err := envelope.SetField(filtered, signatureField, envelope.EncodeBinary(proof))
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	vp, err = envelope.SetField(vp, indicesField, indices)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	vp, err = envelope.SetField(vp, nonceField, envelope.EncodeBinary(nonce))
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	env, err := envelope.EncodeSigned(vp, s.holder.Private)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	return vp, env, nil
}

// VerifyPresentation checks the holder signature, then the proof of
// knowledge over the revealed claim messages.
func (s *Scheme) VerifyPresentation(env string) error {
	vp, err := envelope.DecodeVerified(env, s.holder.Public)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	set, err := claims.Extract(vp)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	revealed := claims.ToCanonicalBytes(set)
	// An empty revealed set discloses nothing, so there is no proof to
	// check beyond the holder signature.
	if len(revealed) == 0 {
		return nil
	}
	proof, err := s.signatureBytes(vp)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	var encodedNonce string
	if err := envelope.GetField(vp, nonceField, &encodedNonce); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	nonce, err := envelope.DecodeBinary(encodedNonce)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, errors.Wrap(envelope.ErrMalformedField, err.Error()))
	}
	pubBytes, err := s.pub.Marshal()
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	if err := s.algo.VerifyProof(revealed, proof, nonce, pubBytes); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	return nil
}

// IssuerKeyMaterial exports the compressed BBS+ key encodings.
func (s *Scheme) IssuerKeyMaterial() (string, string, error) {
	pubBytes, err := s.pub.Marshal()
	if err != nil {
		return "", "", adapter.Wrap(adapter.ErrSerialization, err)
	}
	privBytes, err := s.priv.Marshal()
	if err != nil {
		return "", "", adapter.Wrap(adapter.ErrSerialization, err)
	}
	return envelope.EncodeBinary(pubBytes), envelope.EncodeBinary(privBytes), nil
}

func (s *Scheme) signatureBytes(doc map[string]interface{}) ([]byte, error) {
	var encoded string
	if err := envelope.GetField(doc, signatureField, &encoded); err != nil {
		return nil, err
	}
	sig, err := envelope.DecodeBinary(encoded)
	if err != nil {
		return nil, errors.Wrap(envelope.ErrMalformedField, err.Error())
	}
	return sig, nil
}
