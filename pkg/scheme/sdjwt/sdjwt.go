// Package sdjwt implements the hash-based selective-disclosure scheme.
// Every claim gets a random salt; the issuer signs the list of salted
// claim digests, and the salt-value container carries the per-claim
// (salt, value) pairs the verifier needs to recompute digests. Filtering
// the container leaves the signed digest list untouched, so disclosure
// never breaks the issuer signature.
package sdjwt

import (
	"crypto/sha256"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/suutaku/go-sdvc/pkg/adapter"
	"github.com/suutaku/go-sdvc/pkg/claims"
	"github.com/suutaku/go-sdvc/pkg/envelope"
	"github.com/suutaku/go-sdvc/pkg/keys"
)

const (
	// Name identifies the scheme.
	Name = "SD-JWT"

	digestsField = "digests"
	svcField     = "svc"

	saltLen = 16
)

// ErrDigestMismatch reports a disclosed claim whose recomputed digest is
// not in the issuer-signed digest list.
var ErrDigestMismatch = errors.New("claim digest is not covered by the issuer signature")

// Scheme holds the issuer ES256 key pair and the holder key pair.
type Scheme struct {
	issuer *keys.Pair
	holder *keys.Pair
	rng    io.Reader
}

var _ adapter.Adapter = (*Scheme)(nil)

// New generates a fresh issuer key pair from rng. claimCount does not
// influence the parameters.
func New(claimCount int, holder *keys.Pair, rng io.Reader) (*Scheme, error) {
	_ = claimCount
	issuer, err := keys.GenerateES256(rng)
	if err != nil {
		return nil, err
	}
	return &Scheme{issuer: issuer, holder: holder, rng: rng}, nil
}

// Name implements adapter.Adapter.
func (s *Scheme) Name() string { return Name }

// digest hashes salt, key and the JSON form of the value into the
// disclosure digest.
func digest(salt, key string, value interface{}) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", errors.Wrap(err, "claim value")
	}
	sum := sha256.Sum256([]byte(salt + ":" + key + ":" + string(raw)))
	return envelope.EncodeBinary(sum[:]), nil
}

// IssueCredential salts every claim, signs the digest list and replaces
// the claim-set with the salt-value container.
func (s *Scheme) IssueCredential(raw map[string]interface{}) (map[string]interface{}, string, error) {
	set, err := claims.Extract(raw)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	order := claims.SortedKeys(set)
	svc := make(map[string]interface{}, len(order))
	digests := make([]string, 0, len(order))
	for _, key := range order {
		saltBytes, err := keys.ReadSeed(s.rng, saltLen)
		if err != nil {
			return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
		}
		salt := envelope.EncodeBinary(saltBytes)
		d, err := digest(salt, key, set[key])
		if err != nil {
			return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
		}
		digests = append(digests, d)
		svc[key] = []interface{}{salt, set[key]}
	}

	signed, err := envelope.SignPayload(digests, s.issuer.Private)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	vc, err := envelope.SetField(raw, digestsField, signed)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	vc, err = envelope.SetField(vc, svcField, svc)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	vc, err = claims.Without(vc)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	env, err := envelope.Encode(vc)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	return vc, env, nil
}

// VerifyCredential recomputes each disclosed claim's digest and requires
// it to appear in the issuer-signed digest list.
func (s *Scheme) VerifyCredential(vc map[string]interface{}) error {
	return s.verifyContainer(vc)
}

// IssuePresentation filters the salt-value container to the disclosed
// keys and signs with the holder key. The signed digest list travels
// unchanged.
func (s *Scheme) IssuePresentation(vc map[string]interface{}, disclosed []string) (map[string]interface{}, string, error) {
	var svc map[string]interface{}
	if err := envelope.GetField(vc, svcField, &svc); err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	want := make(map[string]bool, len(disclosed))
	for _, d := range disclosed {
		want[d] = true
	}
	kept := make(map[string]interface{})
	for key, entry := range svc {
		if want[key] {
			kept[key] = entry
		}
	}
	vp, err := envelope.SetField(vc, svcField, kept)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	env, err := envelope.EncodeSigned(vp, s.holder.Private)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	return vp, env, nil
}

// VerifyPresentation checks the holder signature, then the disclosed
// digests.
func (s *Scheme) VerifyPresentation(env string) error {
	vp, err := envelope.DecodeVerified(env, s.holder.Public)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	return s.verifyContainer(vp)
}

// IssuerKeyMaterial exports the issuer PEM encodings.
func (s *Scheme) IssuerKeyMaterial() (string, string, error) {
	return string(s.issuer.Public), string(s.issuer.Private), nil
}

func (s *Scheme) verifyContainer(doc map[string]interface{}) error {
	var svc map[string]interface{}
	if err := envelope.GetField(doc, svcField, &svc); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	var signed string
	if err := envelope.GetField(doc, digestsField, &signed); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	var digests []string
	if err := envelope.VerifyPayload(signed, s.issuer.Public, &digests); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	issued := make(map[string]bool, len(digests))
	for _, d := range digests {
		issued[d] = true
	}
	for _, key := range claims.SortedKeys(svc) {
		entry, ok := svc[key].([]interface{})
		if !ok || len(entry) != 2 {
			return adapter.Wrap(adapter.ErrVerification,
				errors.Wrapf(envelope.ErrMalformedField, "salt-value entry %q", key))
		}
		salt, ok := entry[0].(string)
		if !ok {
			return adapter.Wrap(adapter.ErrVerification,
				errors.Wrapf(envelope.ErrMalformedField, "salt for claim %q is not a string", key))
		}
		d, err := digest(salt, key, entry[1])
		if err != nil {
			return adapter.Wrap(adapter.ErrVerification, err)
		}
		if !issued[d] {
			return adapter.Wrap(adapter.ErrVerification, errors.Wrapf(ErrDigestMismatch, "claim %q", key))
		}
	}
	return nil
}
