// Package merkle implements the Merkle-tree selective-disclosure scheme.
// Salted claim digests form the tree leaves; the issuer signs the root,
// and each claim carries its audit path in the proof-value container.
// Verifiers replay the path from the recomputed leaf digest up to the
// signed root, so undisclosed leaves stay hidden behind their hashes.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"io"

	"github.com/cbergoon/merkletree"
	"github.com/pkg/errors"

	"github.com/suutaku/go-sdvc/pkg/adapter"
	"github.com/suutaku/go-sdvc/pkg/claims"
	"github.com/suutaku/go-sdvc/pkg/envelope"
	"github.com/suutaku/go-sdvc/pkg/keys"
)

const (
	// Name identifies the scheme.
	Name = "Merkle"

	rootField = "root"
	pvcField  = "pvc"

	saltLen = 16
)

// ErrPathMismatch reports a disclosed claim whose audit path does not
// reach the issuer-signed root.
var ErrPathMismatch = errors.New("claim audit path does not match the signed root")

// Scheme holds the issuer ES256 key pair and the holder key pair.
type Scheme struct {
	issuer *keys.Pair
	holder *keys.Pair
	rng    io.Reader
}

var _ adapter.Adapter = (*Scheme)(nil)

// New generates a fresh issuer key pair from rng.
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

// leaf is the tree content for one salted claim.
type leaf struct {
	salt  string
	key   string
	value string // JSON encoding of the claim value
}

func (l leaf) CalculateHash() ([]byte, error) {
	sum := sha256.Sum256([]byte(l.salt + ":" + l.key + ":" + l.value))
	return sum[:], nil
}

func (l leaf) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(leaf)
	if !ok {
		return false, errors.New("content type mismatch")
	}
	return l.salt == o.salt && l.key == o.key && l.value == o.value, nil
}

// auditPath is the serialized per-claim proof: the salt plus the sibling
// hashes and their sides from leaf to root.
type auditPath struct {
	Salt  string   `json:"salt"`
	Path  []string `json:"path"`
	Index []int64  `json:"index"`
}

// IssueCredential builds the salted tree, signs its root and embeds one
// audit path per claim.
func (s *Scheme) IssueCredential(raw map[string]interface{}) (map[string]interface{}, string, error) {
	set, err := claims.Extract(raw)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	order := claims.SortedKeys(set)
	leaves := make([]merkletree.Content, 0, len(order))
	for _, key := range order {
		saltBytes, err := keys.ReadSeed(s.rng, saltLen)
		if err != nil {
			return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
		}
		valJSON, err := json.Marshal(set[key])
		if err != nil {
			return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
		}
		leaves = append(leaves, leaf{
			salt:  envelope.EncodeBinary(saltBytes),
			key:   key,
			value: string(valJSON),
		})
	}

	tree, err := merkletree.NewTree(leaves)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	root := envelope.EncodeBinary(tree.MerkleRoot())
	signedRoot, err := envelope.SignPayload(root, s.issuer.Private)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}

	pvc := make(map[string]interface{}, len(order))
	for i, key := range order {
		l := leaves[i].(leaf)
		path, index, err := tree.GetMerklePath(l)
		if err != nil {
			return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
		}
		encodedPath := make([]string, 0, len(path))
		for _, sibling := range path {
			encodedPath = append(encodedPath, envelope.EncodeBinary(sibling))
		}
		proof, err := envelope.SerializeField(auditPath{Salt: l.salt, Path: encodedPath, Index: index})
		if err != nil {
			return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
		}
		pvc[key] = []interface{}{proof, set[key]}
	}

	vc, err := envelope.SetField(raw, rootField, signedRoot)
	if err != nil {
		return nil, "", adapter.Wrap(adapter.ErrIssuance, err)
	}
	vc, err = envelope.SetField(vc, pvcField, pvc)
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

// VerifyCredential replays every audit path against the signed root.
func (s *Scheme) VerifyCredential(vc map[string]interface{}) error {
	return s.verifyContainer(vc)
}

// IssuePresentation filters the proof-value container and holder-signs
// the result. The signed root travels unchanged.
func (s *Scheme) IssuePresentation(vc map[string]interface{}, disclosed []string) (map[string]interface{}, string, error) {
	var pvc map[string]interface{}
	if err := envelope.GetField(vc, pvcField, &pvc); err != nil {
		return nil, "", adapter.Wrap(adapter.ErrPresentation, err)
	}
	want := make(map[string]bool, len(disclosed))
	for _, d := range disclosed {
		want[d] = true
	}
	kept := make(map[string]interface{})
	for key, entry := range pvc {
		if want[key] {
			kept[key] = entry
		}
	}
	vp, err := envelope.SetField(vc, pvcField, kept)
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
// audit paths.
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
	var pvc map[string]interface{}
	if err := envelope.GetField(doc, pvcField, &pvc); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	var signedRoot string
	if err := envelope.GetField(doc, rootField, &signedRoot); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	var root string
	if err := envelope.VerifyPayload(signedRoot, s.issuer.Public, &root); err != nil {
		return adapter.Wrap(adapter.ErrVerification, err)
	}
	rootBytes, err := envelope.DecodeBinary(root)
	if err != nil {
		return adapter.Wrap(adapter.ErrVerification, errors.Wrap(ErrPathMismatch, err.Error()))
	}

	for _, key := range claims.SortedKeys(pvc) {
		if err := s.verifyEntry(key, pvc[key], rootBytes); err != nil {
			return adapter.Wrap(adapter.ErrVerification, err)
		}
	}
	return nil
}

// verifyEntry recomputes the leaf digest of one claim and folds the
// audit path up to the root.
func (s *Scheme) verifyEntry(key string, raw interface{}, root []byte) error {
	entry, ok := raw.([]interface{})
	if !ok || len(entry) != 2 {
		return errors.Wrapf(envelope.ErrMalformedField, "proof-value entry %q", key)
	}
	proofEncoded, ok := entry[0].(string)
	if !ok {
		return errors.Wrapf(envelope.ErrMalformedField, "proof for claim %q is not a string", key)
	}
	var proof auditPath
	if err := envelope.DeserializeField(proofEncoded, &proof); err != nil {
		return errors.Wrapf(ErrPathMismatch, "claim %q: %s", key, err)
	}
	if len(proof.Path) != len(proof.Index) {
		return errors.Wrapf(ErrPathMismatch, "claim %q: path and index length differ", key)
	}
	valJSON, err := json.Marshal(entry[1])
	if err != nil {
		return errors.Wrapf(envelope.ErrMalformedField, "claim %q: %s", key, err)
	}

	h, err := leaf{salt: proof.Salt, key: key, value: string(valJSON)}.CalculateHash()
	if err != nil {
		return errors.Wrapf(ErrPathMismatch, "claim %q: %s", key, err)
	}
	for i, encoded := range proof.Path {
		sibling, err := envelope.DecodeBinary(encoded)
		if err != nil {
			return errors.Wrapf(ErrPathMismatch, "claim %q: %s", key, err)
		}
		// index 1 means the sibling sits to the right of the running hash
		var sum [sha256.Size]byte
		if proof.Index[i] == 1 {
			sum = sha256.Sum256(append(h, sibling...))
		} else {
			sum = sha256.Sum256(append(sibling, h...))
		}
		h = sum[:]
	}
	if !bytes.Equal(h, root) {
		return errors.Wrapf(ErrPathMismatch, "claim %q", key)
	}
	return nil
}
