// Package claims provides the shared claim-set operations every
// selective-disclosure scheme builds on. All operations treat credential
// maps as values: they return fresh maps and never mutate their inputs.
package claims

import (
	"sort"

	"github.com/pkg/errors"
)

// Field is the reserved credential field that holds the claim-set.
const Field = "credentialSubject"

var (
	ErrMissingClaims   = errors.New("credential does not contain the claim-set field")
	ErrMalformedClaims = errors.New("claim-set field is not an object")
)

// Extract returns the claim-set of a credential or presentation map.
// Calling it repeatedly on the same map yields equal results.
func Extract(doc map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := doc[Field]
	if !ok {
		return nil, ErrMissingClaims
	}
	set, ok := raw.(map[string]interface{})
	if !ok {
		return nil, ErrMalformedClaims
	}
	return set, nil
}

// SortedKeys returns the canonical iteration order of a claim-set.
// Claim positions, canonical byte sequences and disclosure indices are all
// defined relative to this order.
func SortedKeys(set map[string]interface{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy of doc whose claim-set field is set to the given
// claims.
func With(doc map[string]interface{}, set map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[Field] = set
	return out
}

// Without returns a copy of doc with the claim-set field removed. The
// field must be present: a credential without claims at this stage is a
// logic error, not a recoverable condition.
func Without(doc map[string]interface{}) (map[string]interface{}, error) {
	if _, ok := doc[Field]; !ok {
		return nil, ErrMissingClaims
	}
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k != Field {
			out[k] = v
		}
	}
	return out, nil
}

// FilterByDisclosure returns a copy of doc whose claim-set retains only
// the claims named in disclosed, together with the positions of the
// retained claims in the canonical message sequence of ToCanonicalBytes.
// Signature-based schemes index disclosure by position rather than name,
// so positions must line up with the message vector that was signed.
// Disclosed keys that do not appear in the claim-set, and claims whose
// values are not strings (which occupy no message position), are
// silently ignored.
func FilterByDisclosure(doc map[string]interface{}, disclosed []string) (map[string]interface{}, []int, error) {
	set, err := Extract(doc)
	if err != nil {
		return nil, nil, err
	}
	want := make(map[string]bool, len(disclosed))
	for _, d := range disclosed {
		want[d] = true
	}
	kept := make(map[string]interface{})
	indices := make([]int, 0, len(disclosed))
	pos := 0
	for _, key := range SortedKeys(set) {
		if _, ok := set[key].(string); !ok {
			continue
		}
		if want[key] {
			kept[key] = set[key]
			indices = append(indices, pos)
		}
		pos++
	}
	return With(doc, kept), indices, nil
}

// ToCanonicalBytes encodes each claim as "<key>:<value>" in canonical
// order. Only string-typed values are supported; claims with other value
// types are dropped from the sequence.
func ToCanonicalBytes(set map[string]interface{}) [][]byte {
	msgs := make([][]byte, 0, len(set))
	for _, key := range SortedKeys(set) {
		val, ok := set[key].(string)
		if !ok {
			continue
		}
		msgs = append(msgs, []byte(key+":"+val))
	}
	return msgs
}
