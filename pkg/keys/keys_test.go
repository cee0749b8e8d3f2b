package keys

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type noEntropy struct{}

func (noEntropy) Read(p []byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestGenerateES256(t *testing.T) {
	pair, err := GenerateES256(rand.Reader)
	require.NoError(t, err)
	require.Contains(t, string(pair.Public), "PUBLIC KEY")
	require.Contains(t, string(pair.Private), "EC PRIVATE KEY")
}

func TestGenerateES256ClassifiesFailure(t *testing.T) {
	_, err := GenerateES256(noEntropy{})
	require.ErrorIs(t, err, ErrKeyGeneration)
}

func TestReadSeed(t *testing.T) {
	seed, err := ReadSeed(rand.Reader, 32)
	require.NoError(t, err)
	require.Len(t, seed, 32)

	_, err = ReadSeed(noEntropy{}, 16)
	require.Error(t, err)
}
