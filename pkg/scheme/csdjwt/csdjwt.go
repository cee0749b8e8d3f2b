// Package csdjwt implements the accumulator-based selective-disclosure
// scheme. At issuance every claim is mapped to a field element, the
// elements are batch-accumulated, and each claim receives a membership
// witness against the final accumulator value. Holders disclose a subset
// by filtering the witness-value container; verifiers recompute each
// disclosed claim's element and check its membership independently.
package csdjwt

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/coinbase/kryptology/pkg/core/curves"
	"github.com/pkg/errors"

	"github.com/suutaku/go-sdvc/internal/accumulator"
	"github.com/suutaku/go-sdvc/pkg/adapter"
	"github.com/suutaku/go-sdvc/pkg/claims"
	"github.com/suutaku/go-sdvc/pkg/envelope"
	"github.com/suutaku/go-sdvc/pkg/keys"
)

const (
	// Name identifies the scheme.
	Name = "CSD-JWT"

	accumulatorField = "accumulator"
	wvcField         = "wvc"
)

// Scheme holds the issuer's accumulator setup and the holder key pair.
// Setup is independent of the claim count.
type Scheme struct {
	params  *accumulator.Params
	keypair *accumulator.Keypair
	holder  *keys.Pair
}

var _ adapter.Adapter = (*Scheme)(nil)

// New generates setup parameters and an accumulator key pair from rng.
// claimCount is ignored: the accumulator does not size to the claim-set.
func New(claimCount int, holder *keys.Pair, rng io.Reader) (*Scheme, error) {
	_ = claimCount
	params, err := accumulator.NewParams(rng)
	if err != nil {
		return nil, adapter.Wrap(adapter.ErrKeyGeneration, err)
	}
	kp, err := params.GenerateKeypair(rng)
	if err != nil {
		return nil, adapter.Wrap(adapter.ErrKeyGeneration, err)
	}
	return &Scheme{params: params, keypair: kp, holder: holder}, nil
}

// Name implements adapter.Adapter.
func (s *Scheme) Name() string { return Name }

// element maps a claim to a scalar by hashing "<key>:<valueJSON>" into
// the field. Distinct claims map to distinct elements under the usual
// collision assumptions.
func (s *Scheme) element(key string, value interface{}) (curves.Scalar, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "claim value")
	}
	return s.params.HashToElement([]byte(key + ":" + string(raw))), nil
}

// IssueCredential maps every claim to an element, batch-accumulates them,
// derives one membership witness per claim against the final accumulator
// and embeds accumulator plus witness-value container in place of the
// claim-set.
func (s *Scheme) IssueCredential(raw map[string]interface{}) (map[string]interface{}, string, error) {
	set, err := claims.Extract(raw)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	order := claims.SortedKeys(set)
	elements := make([]curves.Scalar, 0, len(order))
	for _, key := range order {
		y, err := s.element(key, set[key])
		if err != nil {
			return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
		}
		elements = append(elements, y)
	}

	// The state lives only for this issuance call.
	state := accumulator.NewState()
	acc, err := s.params.NewAccumulator().AddBatch(s.keypair.Secret, elements, state)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}

	// Witnesses are derived against the final accumulator so they stay
	// valid for the one value embedded below.
	wvc := make(map[string]interface{}, len(order))
	for i, key := range order {
		wit, err := acc.MembershipWitness(s.keypair.Secret, elements[i], state)
		if err != nil {
			return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
		}
		wvc[key] = []interface{}{envelope.EncodeBinary(wit.MarshalBinary()), set[key]}
	}

	vc, err := envelope.SetField(raw, accumulatorField, envelope.EncodeBinary(acc.MarshalBinary()))
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	vc, err = envelope.SetField(vc, wvcField, wvc)
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

// VerifyCredential checks every entry of the witness-value container
// against the embedded accumulator under the issuer public key.
func (s *Scheme) VerifyCredential(vc map[string]interface{}) error {
	return s.verifyContainer(vc)
}

// IssuePresentation filters the witness-value container to the disclosed
// keys and signs the result with the holder key. Disclosed keys absent
// from the container are ignored.
func (s *Scheme) IssuePresentation(vc map[string]interface{}, disclosed []string) (map[string]interface{}, string, error) {
	var wvc map[string]interface{}
	if err := envelope.GetField(vc, wvcField, &wvc); err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	want := make(map[string]bool, len(disclosed))
	for _, d := range disclosed {
		want[d] = true
	}
	kept := make(map[string]interface{})
	for key, entry := range wvc {
		if want[key] {
			kept[key] = entry
		}
	}
	vp, err := envelope.SetField(vc, wvcField, kept)
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
// claims' witnesses. Undisclosed claims are simply absent from the
// container and play no part.
func (s *Scheme) VerifyPresentation(env string) error {
	vp, err := envelope.DecodeVerified(env, s.holder.Public)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	return s.verifyContainer(vp)
}

// IssuerKeyMaterial exports the accumulator key pair encodings.
func (s *Scheme) IssuerKeyMaterial() (string, string, error) {
	return envelope.EncodeBinary(s.keypair.Public.MarshalBinary()),
		envelope.EncodeBinary(s.keypair.Secret.MarshalBinary()),
		nil
}

// verifyContainer runs the shared verification algorithm of credentials
// and presentations: decode the accumulator, then check every container
// entry. Tampered proof material surfaces as a membership failure, not a
// decode failure, so forged credentials are distinguishable from
// malformed requests.
func (s *Scheme) verifyContainer(doc map[string]interface{}) error {
	var wvc map[string]interface{}
	if err := envelope.GetField(doc, wvcField, &wvc); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	var accEncoded string
	if err := envelope.GetField(doc, accumulatorField, &accEncoded); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	accBytes, err := envelope.DecodeBinary(accEncoded)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, errors.Wrap(accumulator.ErrMembership, err.Error()))
	}
	acc, err := s.params.UnmarshalAccumulator(accBytes)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, errors.Wrap(accumulator.ErrMembership, err.Error()))
	}

	// Witness checks are independent: each reads only the shared
	// immutable accumulator and key material plus its own entry. Every
	// check is joined before the results are folded.
	order := claims.SortedKeys(wvc)
	errs := make([]error, len(order))
	var wg sync.WaitGroup
	for i, key := range order {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			errs[i] = s.verifyEntry(key, wvc[key], acc)
		}(i, key)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return adapter.Wrap(adapter.ErrVerification, err)
		}
	}
	return nil
}

// verifyEntry recomputes one claim's element and checks its membership.
func (s *Scheme) verifyEntry(key string, raw interface{}, acc *accumulator.Accumulator) error {
	entry, ok := raw.([]interface{})
	if !ok || len(entry) != 2 {
		return errors.Wrapf(envelope.ErrMalformedField, "witness-value entry %q", key)
	}
	witEncoded, ok := entry[0].(string)
	if !ok {
		return errors.Wrapf(envelope.ErrMalformedField, "witness for claim %q is not a string", key)
	}
	witBytes, err := envelope.DecodeBinary(witEncoded)
	if err != nil {
		return errors.Wrapf(accumulator.ErrMembership, "claim %q: %s", key, err)
	}
	wit, err := s.params.UnmarshalWitness(witBytes)
	if err != nil {
		return errors.Wrapf(accumulator.ErrMembership, "claim %q: %s", key, err)
	}
	y, err := s.element(key, entry[1])
	if err != nil {
		return errors.Wrapf(envelope.ErrMalformedField, "claim %q: %s", key, err)
	}
	if err := wit.Verify(y, s.keypair.Public, s.params, acc); err != nil {
		return errors.Wrapf(err, "claim %q", key)
	}
	return nil
}
