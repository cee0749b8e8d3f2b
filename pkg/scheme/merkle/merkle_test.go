package merkle

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suutaku/go-sdvc/pkg/adapter"
	"github.com/suutaku/go-sdvc/pkg/claims"
	"github.com/suutaku/go-sdvc/pkg/envelope"
	"github.com/suutaku/go-sdvc/pkg/keys"
)

func newScheme(t *testing.T) *Scheme {
	t.Helper()
	holder, err := keys.GenerateES256(rand.Reader)
	require.NoError(t, err)
	s, err := New(3, holder, rand.Reader)
	require.NoError(t, err)
	return s
}

func rawCredential() map[string]interface{} {
	return map[string]interface{}{
		"id": "https://issuer.example/credentials/77",
		claims.Field: map[string]interface{}{
			"name":      "Alice",
			"birthdate": "2000-01-01",
			"country":   "NL",
		},
	}
}

func TestIssueAndVerify(t *testing.T) {
	s := newScheme(t)
	vc, env, err := s.IssueCredential(rawCredential())
	require.NoError(t, err)
	require.NotEmpty(t, env)
	require.NotContains(t, vc, claims.Field)

	require.NoError(t, s.VerifyCredential(vc))

	decoded, err := envelope.Decode(env)
	require.NoError(t, err)
	require.NoError(t, s.VerifyCredential(decoded))
}

func TestSingleClaimTree(t *testing.T) {
	s := newScheme(t)
	raw := map[string]interface{}{
		claims.Field: map[string]interface{}{"name": "Alice"},
	}
	vc, _, err := s.IssueCredential(raw)
	require.NoError(t, err)
	require.NoError(t, s.VerifyCredential(vc))
}

func TestTamperedValueFails(t *testing.T) {
	s := newScheme(t)
	vc, _, err := s.IssueCredential(rawCredential())
	require.NoError(t, err)

	var pvc map[string]interface{}
	require.NoError(t, envelope.GetField(vc, pvcField, &pvc))
	entry := pvc["name"].([]interface{})
	entry[1] = "Mallory"
	tampered, err := envelope.SetField(vc, pvcField, pvc)
	require.NoError(t, err)

	err = s.VerifyCredential(tampered)
	require.ErrorIs(t, err, adapter.ErrVerification)
	require.ErrorIs(t, err, ErrPathMismatch)
	require.Contains(t, err.Error(), "name")
}

func TestTamperedPathFails(t *testing.T) {
	s := newScheme(t)
	vc, _, err := s.IssueCredential(rawCredential())
	require.NoError(t, err)

	var pvc map[string]interface{}
	require.NoError(t, envelope.GetField(vc, pvcField, &pvc))
	entry := pvc["birthdate"].([]interface{})
	var proof auditPath
	require.NoError(t, envelope.DeserializeField(entry[0].(string), &proof))
	require.NotEmpty(t, proof.Path)

	sibling, err := envelope.DecodeBinary(proof.Path[0])
	require.NoError(t, err)
	sibling[0] ^= 0xff
	proof.Path[0] = envelope.EncodeBinary(sibling)
	forged, err := envelope.SerializeField(proof)
	require.NoError(t, err)
	entry[0] = forged
	tampered, err := envelope.SetField(vc, pvcField, pvc)
	require.NoError(t, err)

	err = s.VerifyCredential(tampered)
	require.ErrorIs(t, err, ErrPathMismatch)
}

func TestForgedRootRejected(t *testing.T) {
	s := newScheme(t)
	vc, _, err := s.IssueCredential(rawCredential())
	require.NoError(t, err)

	// Sign an arbitrary root with a key the verifier does not trust.
	rogue, err := keys.GenerateES256(rand.Reader)
	require.NoError(t, err)
	forged, err := envelope.SignPayload(envelope.EncodeBinary(make([]byte, 32)), rogue.Private)
	require.NoError(t, err)
	tampered, err := envelope.SetField(vc, rootField, forged)
	require.NoError(t, err)

	err = s.VerifyCredential(tampered)
	require.ErrorIs(t, err, adapter.ErrVerification)
	require.ErrorIs(t, err, envelope.ErrSignatureInvalid)
}

func TestPresentationDisclosesExactly(t *testing.T) {
	s := newScheme(t)
	vc, _, err := s.IssueCredential(rawCredential())
	require.NoError(t, err)

	vp, env, err := s.IssuePresentation(vc, []string{"country"})
	require.NoError(t, err)

	var pvc map[string]interface{}
	require.NoError(t, envelope.GetField(vp, pvcField, &pvc))
	require.Len(t, pvc, 1)
	require.Contains(t, pvc, "country")

	require.NoError(t, s.VerifyPresentation(env))
}

func TestVacuousDisclosureVerifies(t *testing.T) {
	s := newScheme(t)
	vc, _, err := s.IssueCredential(rawCredential())
	require.NoError(t, err)

	_, env, err := s.IssuePresentation(vc, []string{"email"})
	require.NoError(t, err)
	require.NoError(t, s.VerifyPresentation(env))
}

func TestPresentationSignatureChecked(t *testing.T) {
	s := newScheme(t)
	vc, _, err := s.IssueCredential(rawCredential())
	require.NoError(t, err)

	_, env, err := s.IssuePresentation(vc, []string{"name"})
	require.NoError(t, err)

	parts := strings.Split(env, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	payload[len(payload)/2] ^= 0x01
	parts[1] = string(payload)

	err = s.VerifyPresentation(strings.Join(parts, "."))
	require.Error(t, err)
}

func TestIssuerKeyMaterial(t *testing.T) {
	s := newScheme(t)
	pub, priv, err := s.IssuerKeyMaterial()
	require.NoError(t, err)
	require.Contains(t, pub, "PUBLIC KEY")
	require.Contains(t, priv, "EC PRIVATE KEY")
}
