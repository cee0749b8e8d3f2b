package envelope

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suutaku/go-sdvc/pkg/keys"
)

func sampleDoc() map[string]interface{} {
	return map[string]interface{}{
		"id":     "https://issuer.example/credentials/1",
		"issuer": "https://issuer.example/issuers/14",
		"nested": map[string]interface{}{"a": "b"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	env, err := Encode(sampleDoc())
	require.NoError(t, err)
	require.Len(t, strings.Split(env, "."), 3)

	doc, err := Decode(env)
	require.NoError(t, err)
	require.Equal(t, "https://issuer.example/credentials/1", doc["id"])
	require.Equal(t, map[string]interface{}{"a": "b"}, doc["nested"])
}

func TestDecodeGarbageFails(t *testing.T) {
	_, err := Decode("not a jws")
	require.ErrorIs(t, err, ErrDecoding)
}

func TestSignedRoundTrip(t *testing.T) {
	pair, err := keys.GenerateES256(rand.Reader)
	require.NoError(t, err)

	env, err := EncodeSigned(sampleDoc(), pair.Private)
	require.NoError(t, err)

	doc, err := DecodeVerified(env, pair.Public)
	require.NoError(t, err)
	require.Equal(t, "https://issuer.example/issuers/14", doc["issuer"])
}

func TestDecodeVerifiedRejectsWrongKey(t *testing.T) {
	pair, err := keys.GenerateES256(rand.Reader)
	require.NoError(t, err)
	rogue, err := keys.GenerateES256(rand.Reader)
	require.NoError(t, err)

	env, err := EncodeSigned(sampleDoc(), rogue.Private)
	require.NoError(t, err)

	_, err = DecodeVerified(env, pair.Public)
	require.ErrorIs(t, err, ErrSignatureInvalid)
	require.NotErrorIs(t, err, ErrDecoding)
}

func TestDecodeVerifiedDistinguishesMalformed(t *testing.T) {
	pair, err := keys.GenerateES256(rand.Reader)
	require.NoError(t, err)

	_, err = DecodeVerified("broken", pair.Public)
	require.ErrorIs(t, err, ErrDecoding)
	require.NotErrorIs(t, err, ErrSignatureInvalid)
}

func TestBadKeyMaterial(t *testing.T) {
	_, err := EncodeSigned(sampleDoc(), []byte("not pem"))
	require.ErrorIs(t, err, ErrKeyFormat)

	_, err = DecodeVerified("x.y.z", []byte("not pem"))
	require.ErrorIs(t, err, ErrKeyFormat)
}

func TestSignedPayloadRoundTrip(t *testing.T) {
	pair, err := keys.GenerateES256(rand.Reader)
	require.NoError(t, err)

	token, err := SignPayload([]string{"a", "b"}, pair.Private)
	require.NoError(t, err)

	var out []string
	require.NoError(t, VerifyPayload(token, pair.Public, &out))
	require.Equal(t, []string{"a", "b"}, out)
}

func TestSignedPayloadRejectsForgery(t *testing.T) {
	pair, err := keys.GenerateES256(rand.Reader)
	require.NoError(t, err)
	rogue, err := keys.GenerateES256(rand.Reader)
	require.NoError(t, err)

	token, err := SignPayload("root", rogue.Private)
	require.NoError(t, err)

	var out string
	err = VerifyPayload(token, pair.Public, &out)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestFieldSerializationRoundTrip(t *testing.T) {
	type proof struct {
		Salt string  `json:"salt"`
		Idx  []int64 `json:"idx"`
	}
	s, err := SerializeField(proof{Salt: "abc", Idx: []int64{0, 1}})
	require.NoError(t, err)

	var out proof
	require.NoError(t, DeserializeField(s, &out))
	require.Equal(t, proof{Salt: "abc", Idx: []int64{0, 1}}, out)
}

func TestDeserializeFieldRejectsGarbage(t *testing.T) {
	var out map[string]interface{}
	err := DeserializeField("!!!", &out)
	require.ErrorIs(t, err, ErrDecoding)
}

func TestBinaryRoundTrip(t *testing.T) {
	b := []byte{0x00, 0xff, 0x10, 0x80}
	out, err := DecodeBinary(EncodeBinary(b))
	require.NoError(t, err)
	require.Equal(t, b, out)
}

func TestSetFieldCopies(t *testing.T) {
	doc := sampleDoc()
	withField, err := SetField(doc, "extra", "value")
	require.NoError(t, err)
	require.NotContains(t, doc, "extra")
	require.Contains(t, withField, "extra")

	var got string
	require.NoError(t, GetField(withField, "extra", &got))
	require.Equal(t, "value", got)
}

func TestGetFieldMissing(t *testing.T) {
	var got string
	err := GetField(sampleDoc(), "absent", &got)
	require.ErrorIs(t, err, ErrMissingField)
}
