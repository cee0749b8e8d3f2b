package accumulator

import (
	"crypto/rand"
	"testing"

	"github.com/coinbase/kryptology/pkg/core/curves"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Params, *Keypair) {
	t.Helper()
	params, err := NewParams(rand.Reader)
	require.NoError(t, err)
	kp, err := params.GenerateKeypair(rand.Reader)
	require.NoError(t, err)
	return params, kp
}

func hashAll(params *Params, labels []string) []curves.Scalar {
	out := make([]curves.Scalar, 0, len(labels))
	for _, l := range labels {
		out = append(out, params.HashToElement([]byte(l)))
	}
	return out
}

func TestBatchMembership(t *testing.T) {
	params, kp := setup(t)
	elements := hashAll(params, []string{"name:Alice", "birthdate:2000-01-01", "email:a@example.com"})

	st := NewState()
	acc, err := params.NewAccumulator().AddBatch(kp.Secret, elements, st)
	require.NoError(t, err)
	require.Equal(t, len(elements), st.Size())

	for _, y := range elements {
		wit, err := acc.MembershipWitness(kp.Secret, y, st)
		require.NoError(t, err)
		require.NoError(t, wit.Verify(y, kp.Public, params, acc))
	}
}

func TestNonMemberFails(t *testing.T) {
	params, kp := setup(t)
	elements := hashAll(params, []string{"name:Alice"})
	outsider := params.HashToElement([]byte("name:Mallory"))

	st := NewState()
	acc, err := params.NewAccumulator().AddBatch(kp.Secret, elements, st)
	require.NoError(t, err)

	// no witness for an element the state never saw
	_, err = acc.MembershipWitness(kp.Secret, outsider, st)
	require.ErrorIs(t, err, ErrWitnessDerivation)

	// a valid witness does not verify against a different element
	wit, err := acc.MembershipWitness(kp.Secret, elements[0], st)
	require.NoError(t, err)
	require.ErrorIs(t, wit.Verify(outsider, kp.Public, params, acc), ErrMembership)
}

func TestDuplicateElementRejected(t *testing.T) {
	params, kp := setup(t)
	y := params.HashToElement([]byte("name:Alice"))

	st := NewState()
	_, err := params.NewAccumulator().AddBatch(kp.Secret, []curves.Scalar{y, y}, st)
	require.ErrorIs(t, err, ErrAccumulation)
}

func TestMarshalRoundTrip(t *testing.T) {
	params, kp := setup(t)
	elements := hashAll(params, []string{"name:Alice", "birthdate:2000-01-01"})

	st := NewState()
	acc, err := params.NewAccumulator().AddBatch(kp.Secret, elements, st)
	require.NoError(t, err)
	wit, err := acc.MembershipWitness(kp.Secret, elements[0], st)
	require.NoError(t, err)

	acc2, err := params.UnmarshalAccumulator(acc.MarshalBinary())
	require.NoError(t, err)
	wit2, err := params.UnmarshalWitness(wit.MarshalBinary())
	require.NoError(t, err)
	pk2, err := params.UnmarshalPublicKey(kp.Public.MarshalBinary())
	require.NoError(t, err)

	require.NoError(t, wit2.Verify(elements[0], pk2, params, acc2))
	require.NotEmpty(t, kp.Secret.MarshalBinary())
}

func TestWrongKeyFails(t *testing.T) {
	params, kp := setup(t)
	other, err := params.GenerateKeypair(rand.Reader)
	require.NoError(t, err)

	y := params.HashToElement([]byte("name:Alice"))
	st := NewState()
	acc, err := params.NewAccumulator().AddBatch(kp.Secret, []curves.Scalar{y}, st)
	require.NoError(t, err)
	wit, err := acc.MembershipWitness(kp.Secret, y, st)
	require.NoError(t, err)

	require.ErrorIs(t, wit.Verify(y, other.Public, params, acc), ErrMembership)
}

func TestErrorChains(t *testing.T) {
	require.True(t, errors.Is(errors.Wrap(ErrMembership, "claim"), ErrMembership))
}
